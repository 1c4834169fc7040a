// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// notesRenderer pins the detail pane's markdown styling to a fixed
// ANSI256 color profile via termenv, so the heading/emphasis colors
// stay stable across terminals instead of drifting with whatever
// COLORTERM guess lipgloss's default renderer would otherwise make.
var notesRenderer = sync.OnceValue(func() *lipgloss.Renderer {
	return lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
})

// renderNotes converts a small amount of markdown attached to a proxy
// (operator notes shown in the detail pane) into styled terminal text.
// Unlike a full document renderer this only distinguishes headings,
// emphasis, and paragraph breaks — the detail pane never carries lists,
// tables, or code fences, so there is nothing to gain from walking the
// rest of goldmark's block types.
func renderNotes(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	renderer := notesRenderer()
	headingStyle := renderer.NewStyle().Bold(true).Underline(true)
	boldStyle := renderer.NewStyle().Bold(true)
	italicStyle := renderer.NewStyle().Italic(true)

	reader := text.NewReader([]byte(source))
	document := goldmark.DefaultParser().Parse(reader)
	raw := []byte(source)

	var out strings.Builder
	var emphasisDepth int
	err := ast.Walk(document, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering {
				out.WriteString(headingStyle.Render(strings.Repeat("#", node.Level) + " "))
			} else {
				out.WriteString("\n\n")
			}
		case *ast.Paragraph:
			if !entering {
				out.WriteString("\n\n")
			}
		case *ast.Emphasis:
			if entering {
				emphasisDepth = node.Level
			} else {
				emphasisDepth = 0
			}
		case *ast.Text:
			if entering {
				segment := string(node.Segment.Value(raw))
				switch {
				case emphasisDepth >= 2:
					out.WriteString(boldStyle.Render(segment))
				case emphasisDepth == 1:
					out.WriteString(italicStyle.Render(segment))
				default:
					out.WriteString(segment)
				}
				if node.SoftLineBreak() {
					out.WriteString(" ")
				}
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return source
	}
	return strings.TrimRight(out.String(), "\n")
}
