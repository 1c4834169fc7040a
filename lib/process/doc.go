// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for this module's
// command line tools. It centralizes the one legitimate raw I/O
// pattern that exists before or after the structured logger: fatal
// error reporting to stderr followed by process exit, for errors
// surfaced from a command's run() before the logger is guaranteed to
// be initialized.
package process
