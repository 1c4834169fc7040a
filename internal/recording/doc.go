// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package recording implements the payload semantics behind
// START_RECORDING_TRANSACTIONS / STOP_RECORDING_TRANSACTIONS: while
// active, every transaction's request and reply bytes are captured into
// an in-memory ring of LZ4-compressed frames (LZ4 for its fast decode on
// binary payloads); Export produces a zstd-compressed human-readable
// transcript (method code, status, byte lengths — text-like content, so
// zstd's better ratio wins) plus a BLAKE3 checksum of that transcript
// for cheap integrity comparison across export runs.
package recording
