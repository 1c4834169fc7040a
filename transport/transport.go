// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport defines the interfaces the binder proxy core
// consumes from its two possible backends (a kernel IPC driver wrapper,
// or a user-space RPC session) without owning either implementation.
package transport

import "github.com/openbinder/binderproxy/status"

// Flags carries the transaction flags word. Bit 0 is reserved for the
// private-vendor marker the core strips before dispatch; all other
// bits pass through to the transport verbatim.
type Flags uint32

// FlagPrivateVendor marks a transaction as originating from a vendor
// context requesting the VENDOR stability level instead of the
// process's local level. The core strips this bit before it reaches
// either transport.
const FlagPrivateVendor Flags = 1 << 0

// Data is the outgoing transaction payload. The core only needs its
// length (for the large-transaction warning) and opaque bytes to hand
// to the transport — it never interprets the contents.
type Data interface {
	// Len returns the payload size in bytes.
	Len() int
	// Bytes returns the raw payload.
	Bytes() []byte
}

// Reply receives the transport's response payload. Implementations are
// supplied by the caller of Object.Transact; the core never allocates one.
type Reply interface {
	// SetBytes replaces the reply payload.
	SetBytes([]byte)
}

// Kernel is the contract required for a kernel-handle proxy. All
// operations round-trip through the per-thread kernel driver wrapper
// and therefore may block.
type Kernel interface {
	// Transact issues a transaction against handle and returns the
	// transport's status.
	Transact(handle int32, code uint32, data Data, reply Reply, flags Flags) status.Status

	// IncStrong increments the remote strong reference count for handle.
	IncStrong(handle int32)
	// DecStrong decrements the remote strong reference count for handle.
	DecStrong(handle int32)
	// IncWeak increments the remote weak reference count for handle.
	IncWeak(handle int32)
	// DecWeak decrements the remote weak reference count for handle.
	DecWeak(handle int32)
	// AttemptIncStrong asks the driver whether a strong reference is
	// still acquirable for handle, atomically acquiring one if so.
	AttemptIncStrong(handle int32) bool

	// RequestDeath subscribes self for a death notification on handle.
	RequestDeath(handle int32, self any)
	// ClearDeath unsubscribes self from death notifications on handle.
	ClearDeath(handle int32, self any)
	// Flush forces any buffered driver commands (subscribe/unsubscribe)
	// out before the caller proceeds, matching IPCThreadState::flushCommands.
	Flush()

	// CallingOriginator returns the identity of the user on whose
	// behalf the current thread is creating a proxy, for budget
	// accounting.
	CallingOriginator() uint32
}

// Session is the contract required for an RPC-handle proxy. Session
// values are shared (ref-counted) by every proxy address within the
// same session; the core holds a Session for the lifetime of any proxy
// built on it.
type Session interface {
	// Transact issues a transaction against address within the session.
	Transact(address uint64, code uint32, data Data, reply Reply, flags Flags) status.Status

	// SendDecStrong notifies the session's peer that self's last strong
	// reference has been released. RPC sessions have no equivalent to
	// the kernel driver's inc/dec strong/weak commands; this is the
	// only reference-count signal they carry.
	SendDecStrong(address uint64)

	// MaxIncomingThreads reports how many threads the session has
	// configured to service incoming calls. Link fails with
	// InvalidOperation when this is less than 1.
	MaxIncomingThreads() int
}
