// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kerneltransport is a reference implementation of
// transport.Kernel over a single ioctl-driven device file descriptor.
//
// It does not attempt binary compatibility with Android's /dev/binder
// UAPI — there is no such kernel driver to be compatible with here.
// Instead it defines its own small ioctl protocol: one command number,
// one fixed-size request/response struct carrying a discriminant for
// which Kernel operation it performs. A real deployment points this at
// a purpose-built character device or a userspace ioctl-shim process;
// tests exercise the encoding constants and the death-subscription
// bookkeeping without checking any ioctl outcome.
package kerneltransport
