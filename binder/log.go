// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// logger is the structured logger backing the core's own diagnostics
// (the large-transaction warning). Handler selection follows the same
// terminal-detection convention used across this codebase's command
// line tools: human-readable text on a terminal, JSON when piped.
var logger = newLogger()

func newLogger() *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// SetLogger overrides the package's structured logger, letting a
// hosting process scope it with its own fields or redirect it
// entirely.
func SetLogger(l *slog.Logger) { logger = l }
