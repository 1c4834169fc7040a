// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"fmt"

	"github.com/openbinder/binderproxy/transport"
)

// KernelIPCEnabled marks whether this build can create kernel-variant
// handles at all. It is a plain const here rather than a build tag
// switch because this module ships no platform variant that needs the
// kernel transport compiled out; it exists so NewKernelHandle documents
// a real precondition rather than an unconditional guarantee.
const KernelIPCEnabled = true

// Handle is the immutable, tagged identity of a remote object: either a
// kernel driver handle or an RPC session address. Set once at
// construction and never mutated.
type Handle interface {
	// DebugKernelHandle returns the raw kernel handle integer for a
	// kernel Handle, or (0, false) for an RPC Handle.
	DebugKernelHandle() (int32, bool)

	isHandle()
}

type kernelHandle struct {
	value int32
}

func (h kernelHandle) DebugKernelHandle() (int32, bool) { return h.value, true }
func (h kernelHandle) isHandle()                        {}

// NewKernelHandle constructs a kernel-variant Handle wrapping a
// non-negative driver-side reference number. Panics if the kernel
// transport is disabled at build, or if value is negative.
func NewKernelHandle(value int32) Handle {
	if !KernelIPCEnabled {
		panic("binder: kernel IPC disabled at build time")
	}
	if value < 0 {
		panic(fmt.Sprintf("binder: negative kernel handle %d", value))
	}
	return kernelHandle{value: value}
}

type rpcHandle struct {
	session transport.Session
	address uint64
}

func (h rpcHandle) DebugKernelHandle() (int32, bool) { return 0, false }
func (h rpcHandle) isHandle()                        {}

// NewRPCHandle constructs an RPC-variant Handle addressing an object
// within session. Panics if session is nil.
func NewRPCHandle(session transport.Session, address uint64) Handle {
	if session == nil {
		panic("binder: NewRPCHandle called with nil session")
	}
	return rpcHandle{session: session, address: address}
}

// IsRPC reports whether h addresses an object via an RPC session
// rather than a kernel driver handle.
func IsRPC(h Handle) bool {
	_, ok := h.(rpcHandle)
	return ok
}

// rpcSessionOf returns the session and address backing h. Panics if h
// is not an RPC handle — callers must check IsRPC first.
func rpcSessionOf(h Handle) (transport.Session, uint64) {
	rh := h.(rpcHandle)
	return rh.session, rh.address
}

func kernelValueOf(h Handle) int32 {
	kh := h.(kernelHandle)
	return kh.value
}
