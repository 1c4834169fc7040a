// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/openbinder/binderproxy/budget"
)

// proxyRow is one live proxy shown in the list, sourced from the
// budget tracker's per-originator snapshot plus operator-entered notes
// (there is no wire query for arbitrary proxy metadata; this viewer
// only ever shows what the local process's tracker already knows).
type proxyRow struct {
	Originator uint32
	Count      uint32
	Notes      string
}

type tickMsg time.Time

type model struct {
	tracker *budget.Tracker
	filter  textinput.Model
	rows    []proxyRow
	visible []proxyRow
	cursor  int
	width   int
	height  int
}

func newModel(tracker *budget.Tracker, notes map[uint32]string) model {
	filter := textinput.New()
	filter.Placeholder = "filter by originator"
	filter.Prompt = "/ "

	m := model{tracker: tracker, filter: filter}
	m.refresh(notes)
	return m
}

func (m *model) refresh(notes map[uint32]string) {
	if notes == nil {
		notes = make(map[uint32]string, len(m.rows))
		for _, row := range m.rows {
			notes[row.Originator] = row.Notes
		}
	}
	snapshot := m.tracker.Snapshot()
	rows := make([]proxyRow, 0, len(snapshot))
	for originator, count := range snapshot {
		rows = append(rows, proxyRow{Originator: originator, Count: count, Notes: notes[originator]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Originator < rows[j].Originator })
	m.rows = rows
	m.applyFilter()
}

func (m *model) applyFilter() {
	pattern := m.filter.Value()
	visible := make([]proxyRow, 0, len(m.rows))
	for _, row := range m.rows {
		if _, ok := fuzzyScore(fmt.Sprintf("%d", row.Originator), pattern); ok {
			visible = append(visible, row)
		}
	}
	m.visible = visible
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.refresh(nil)
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true)
	selectedStyle := lipgloss.NewStyle().Reverse(true)

	fmt.Fprintf(&b, "%s  total=%d\n", headerStyle.Render("binder-viewer"), m.tracker.Total())
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	for i, row := range m.visible {
		line := fmt.Sprintf("originator=%-10d proxies=%d", row.Originator, row.Count)
		if m.width > 0 {
			line = ansi.Truncate(line, m.width, "…")
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if len(m.visible) == 0 {
		b.WriteString("(no proxies match filter)\n")
	}

	b.WriteString("\n")
	if m.cursor < len(m.visible) {
		b.WriteString(detailPane(m.visible[m.cursor]))
	}

	b.WriteString("\nesc/ctrl+c to quit, type to filter by originator id\n")
	return b.String()
}

// detailPane renders the selected proxy's notes as markdown and a
// syntax-highlighted CBOR-diagnostic sample of its budget accounting,
// matching the split-pane style of a ticket detail view.
func detailPane(row proxyRow) string {
	var b strings.Builder
	b.WriteString(renderNotes(row.Notes))
	b.WriteString("\n")

	diagnostic := fmt.Sprintf("{originator: %d, proxies: %d}", row.Originator, row.Count)
	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, diagnostic, "json", "terminal256", "monokai"); err == nil {
		b.WriteString(highlighted.String())
	} else {
		b.WriteString(diagnostic)
	}
	return b.String()
}
