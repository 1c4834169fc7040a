// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// binder-viewer is a live terminal UI over a process's budget tracker,
// listing registered proxy originators with fuzzy filtering and a
// markdown/CBOR detail pane, the way bureau-viewer browses live
// tickets over a socket instead of a file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/openbinder/binderproxy/budget"
	"github.com/openbinder/binderproxy/lib/process"
	"github.com/openbinder/binderproxy/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var demo bool

	flagSet := pflag.NewFlagSet("binder-viewer", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "budget tracker config file (JSON with comments)")
	flagSet.BoolVar(&demo, "demo", false, "seed the tracker with synthetic proxies for a demo run")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("binder-viewer", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	tracker := budget.Default()
	if configPath != "" {
		cfg, err := budget.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("binder-viewer: %w", err)
		}
		tracker.SetWatermarks(cfg.HighWatermark, cfg.LowWatermark)
		tracker.SetCountByUidEnabled(cfg.CountByUidEnabled)
	}

	notes := map[uint32]string{}
	if demo {
		notes = seedDemoTracker(tracker)
	}

	program := tea.NewProgram(newModel(tracker, notes))
	_, err := program.Run()
	return err
}

// seedDemoTracker registers a handful of synthetic proxy counts so the
// viewer has something to display without a live process attached.
func seedDemoTracker(tracker *budget.Tracker) map[uint32]string {
	tracker.EnableCountByUid(1000)
	tracker.EnableCountByUid(1001)
	for i := 0; i < 5; i++ {
		tracker.Incr(1000)
	}
	tracker.Incr(1001)
	return map[uint32]string{
		1000: "**system service** — owns most long-lived proxies.",
		1001: "*sandboxed agent* — should stay near zero between runs.",
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `binder-viewer — live view of a process's proxy budget tracker.

Usage:
  binder-viewer [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
