// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kerneltransport

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/openbinder/binderproxy/status"
	"github.com/openbinder/binderproxy/transport"
)

// ioctlCommand is this package's single ioctl request number: direction
// read/write (3), size of struct command (64 bytes), type 'b', number 1.
const ioctlCommand uint32 = (3 << 30) | (64 << 16) | ('b' << 8) | 1

// opcode discriminates which Kernel operation a command performs.
type opcode uint32

const (
	opTransact opcode = iota
	opIncStrong
	opDecStrong
	opIncWeak
	opDecWeak
	opAttemptIncStrong
	opRequestDeath
	opClearDeath
	opFlush
	opCallingOriginator
)

// command is the fixed-size struct passed by pointer to the ioctl. Data
// and reply are passed as raw pointer/length pairs because the kernel
// side (real device or shim process) must be able to read/write the
// caller's buffers directly, the same way BINDER_WRITE_READ does.
type command struct {
	op         uint32
	handle     int32
	code       uint32
	flags      uint32
	dataPtr    uint64
	dataLen    uint64
	replyPtr   uint64
	replyCap   uint64
	replyLen   uint64 // out: bytes the device wrote into replyPtr
	resultCode int32  // out: status.Status for opTransact, bool (0/1) for opAttemptIncStrong
	originator uint32 // out: for opCallingOriginator
}

// Kernel is a transport.Kernel backed by ioctl calls against fd.
type Kernel struct {
	fd uintptr

	mu       sync.Mutex // serializes ioctl calls: one in flight per Kernel
	deathMu  sync.Mutex
	deathSet map[int32]map[any]struct{}
}

// New wraps an already-open device file descriptor.
func New(fd uintptr) *Kernel {
	return &Kernel{fd: fd, deathSet: make(map[int32]map[any]struct{})}
}

// Open opens path and wraps the resulting file descriptor.
func Open(path string) (*Kernel, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("kerneltransport: opening %s: %w", path, err)
	}
	return New(uintptr(fd)), nil
}

// Close releases the underlying file descriptor.
func (k *Kernel) Close() error {
	return unix.Close(int(k.fd))
}

func (k *Kernel) ioctl(cmd *command) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, k.fd, uintptr(ioctlCommand), uintptr(unsafe.Pointer(cmd)))
	if errno != 0 {
		return fmt.Errorf("kerneltransport: ioctl op %d: %w", cmd.op, errno)
	}
	return nil
}

func (k *Kernel) Transact(handle int32, code uint32, data transport.Data, reply transport.Reply, flags transport.Flags) status.Status {
	var dataBytes []byte
	if data != nil {
		dataBytes = data.Bytes()
	}
	replyBuf := make([]byte, 64*1024)

	cmd := &command{
		op:       uint32(opTransact),
		handle:   handle,
		code:     code,
		flags:    uint32(flags),
		replyCap: uint64(len(replyBuf)),
	}
	if len(dataBytes) > 0 {
		cmd.dataPtr = uint64(uintptr(unsafe.Pointer(&dataBytes[0])))
		cmd.dataLen = uint64(len(dataBytes))
	}
	if len(replyBuf) > 0 {
		cmd.replyPtr = uint64(uintptr(unsafe.Pointer(&replyBuf[0])))
	}

	if err := k.ioctl(cmd); err != nil {
		return status.Transport
	}
	if reply != nil {
		reply.SetBytes(replyBuf[:cmd.replyLen])
	}
	return status.Status(cmd.resultCode)
}

func (k *Kernel) IncStrong(handle int32) {
	_ = k.ioctl(&command{op: uint32(opIncStrong), handle: handle})
}

func (k *Kernel) DecStrong(handle int32) {
	_ = k.ioctl(&command{op: uint32(opDecStrong), handle: handle})
}

func (k *Kernel) IncWeak(handle int32) {
	_ = k.ioctl(&command{op: uint32(opIncWeak), handle: handle})
}

func (k *Kernel) DecWeak(handle int32) {
	_ = k.ioctl(&command{op: uint32(opDecWeak), handle: handle})
}

func (k *Kernel) AttemptIncStrong(handle int32) bool {
	cmd := &command{op: uint32(opAttemptIncStrong), handle: handle}
	if err := k.ioctl(cmd); err != nil {
		return false
	}
	return cmd.resultCode != 0
}

// RequestDeath subscribes self for a death notification on handle. self
// is retained only as a map key for ClearDeath to identify the
// subscription; the device is told once per distinct handle, matching
// the underlying driver's own dedup of death registrations per handle.
func (k *Kernel) RequestDeath(handle int32, self any) {
	k.deathMu.Lock()
	first := len(k.deathSet[handle]) == 0
	if k.deathSet[handle] == nil {
		k.deathSet[handle] = make(map[any]struct{})
	}
	k.deathSet[handle][self] = struct{}{}
	k.deathMu.Unlock()

	if first {
		_ = k.ioctl(&command{op: uint32(opRequestDeath), handle: handle})
	}
}

// ClearDeath unsubscribes self from death notifications on handle,
// telling the device only once the last subscriber for handle clears.
func (k *Kernel) ClearDeath(handle int32, self any) {
	k.deathMu.Lock()
	subscribers := k.deathSet[handle]
	delete(subscribers, self)
	last := len(subscribers) == 0
	if last {
		delete(k.deathSet, handle)
	}
	k.deathMu.Unlock()

	if last {
		_ = k.ioctl(&command{op: uint32(opClearDeath), handle: handle})
	}
}

func (k *Kernel) Flush() {
	_ = k.ioctl(&command{op: uint32(opFlush)})
}

func (k *Kernel) CallingOriginator() uint32 {
	cmd := &command{op: uint32(opCallingOriginator)}
	if err := k.ioctl(cmd); err != nil {
		return 0
	}
	return cmd.originator
}
