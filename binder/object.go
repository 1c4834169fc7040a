// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binder implements the client-side proxy core of a
// binder-style IPC system: a handle to a remote object, transaction
// dispatch with stability enforcement, an attached-object table, and
// death notification.
package binder

import (
	"sync"
	"sync/atomic"

	"github.com/openbinder/binderproxy/budget"
	"github.com/openbinder/binderproxy/status"
	"github.com/openbinder/binderproxy/transport"
)

// largeTransactionWarnBytes is the payload size above which Transact
// logs a warning before dispatching. 300 KiB matches the threshold the
// original driver wrapper uses to flag transactions large enough to
// risk exhausting the transport's fixed-size buffer.
const largeTransactionWarnBytes = 300 * 1024

// Object is a proxy standing in for a single remote object, addressed
// by exactly one Handle for its entire lifetime.
type Object struct {
	handle Handle
	kernel transport.Kernel // non-nil only for a kernel-variant handle

	stability Stability

	alive atomic.Bool

	mu         sync.Mutex
	obitsSent  bool
	obituaries []obituaryEntry
	attached   attachedObjectTable

	descriptor      atomic.Pointer[string]
	descriptorFetch *descriptorFetch // non-nil while one InterfaceDescriptor call is in flight; guarded by mu

	strong atomic.Int32
	weak   atomic.Int32

	tracker           *budget.Tracker
	trackedOriginator *uint32
}

// CreateKernel constructs a proxy addressing a kernel driver handle. If
// tracker is non-nil, originator's proxy count is consulted before
// construction: a throttled originator gets no Object at all, and
// CreateKernel returns status.AbsentProxy. Otherwise the proxy's
// creation and eventual last-strong-ref release are recorded against
// originator in tracker. The returned Object starts with a strong
// reference count of one, as if freshly returned to a single owning
// caller.
func CreateKernel(kernel transport.Kernel, handleValue int32, stability Stability, originator uint32, tracker *budget.Tracker) (*Object, status.Status) {
	if kernel == nil {
		panic("binder: CreateKernel called with nil kernel transport")
	}
	if tracker != nil {
		if st := tracker.Incr(originator); st != status.OK {
			return nil, st
		}
	}
	obj := &Object{
		handle:            NewKernelHandle(handleValue),
		kernel:            kernel,
		stability:         stability,
		tracker:           tracker,
		trackedOriginator: &originator,
	}
	obj.alive.Store(true)
	obj.strong.Store(1)
	obj.weak.Store(1)
	return obj, status.OK
}

// CreateRPC constructs a proxy addressing an object within an RPC
// session. RPC proxies are not subject to per-originator budget
// tracking: that accounting exists for the kernel driver's fixed-size
// handle table, which an RPC session has no equivalent of.
func CreateRPC(session transport.Session, address uint64, stability Stability) *Object {
	obj := &Object{
		handle:    NewRPCHandle(session, address),
		stability: stability,
	}
	obj.alive.Store(true)
	obj.strong.Store(1)
	obj.weak.Store(1)
	return obj
}

// Handle returns obj's immutable identity.
func (obj *Object) Handle() Handle { return obj.handle }

// Alive reports whether obj's peer is still believed live. Becomes
// false permanently once a death obituary has been delivered or a
// transaction observes DeadPeer.
func (obj *Object) Alive() bool { return obj.alive.Load() }

// DebugKernelHandle returns the raw kernel handle integer, or
// (0, false) for an RPC-backed proxy.
func (obj *Object) DebugKernelHandle() (int32, bool) { return obj.handle.DebugKernelHandle() }

// WithLock runs fn with obj's per-proxy lock held. Exposed for callers
// that need to read or update multiple pieces of proxy state
// atomically with respect to death delivery and attached-object
// mutation; fn must not call back into any Object method that also
// takes obj's lock.
func (obj *Object) WithLock(fn func()) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	fn()
}

// Transact dispatches a transaction to obj's peer.
//
// Application-defined codes (FirstCallTransaction..LastCallTransaction)
// are checked against the process's required stability level before
// being sent; FlagPrivateVendor relaxes that check to StabilityVendor
// and is stripped before the flags reach the transport either way.
// Reserved codes bypass the stability check entirely.
//
// A payload larger than largeTransactionWarnBytes is logged before
// dispatch. A transport result of DeadPeer triggers immediate obituary
// delivery to every linked DeathRecipient, without waiting for a
// separate death signal to arrive.
func (obj *Object) Transact(code TransactionCode, data transport.Data, reply transport.Reply, flags transport.Flags) status.Status {
	if !obj.alive.Load() {
		return status.DeadPeer
	}

	if isUserCall(code) {
		required := localRequiredLevel
		if flags&transport.FlagPrivateVendor != 0 {
			required = StabilityVendor
		}
		if !checkStability(obj.stability, required) {
			return status.BadType
		}
	}
	flags &^= transport.FlagPrivateVendor

	if data != nil && data.Len() > largeTransactionWarnBytes {
		logger.Warn("binder: large transaction",
			"code", code,
			"bytes", data.Len(),
			"rpc", IsRPC(obj.handle),
		)
	}

	var result status.Status
	if IsRPC(obj.handle) {
		session, address := rpcSessionOf(obj.handle)
		result = session.Transact(address, uint32(code), data, reply, flags)
	} else {
		result = obj.kernel.Transact(kernelValueOf(obj.handle), uint32(code), data, reply, flags)
	}

	if result == status.DeadPeer {
		obj.sendObituary()
	}
	return result
}

// interfaceDescriptorReader is the minimal shape Transact's reply
// argument needs to support for InterfaceDescriptor to pull the result
// back out, satisfied by *wire.Parcel without this package importing
// wire (which would make every proxy pay for a codec it may not use).
type interfaceDescriptorReader interface {
	transport.Reply
	ReadString16() (string, error)
}

// descriptorFetch tracks the single in-flight Interface transaction
// any number of concurrent InterfaceDescriptor callers converge on: the
// caller that creates one issues the transaction outside obj's lock,
// and every other caller waits on done instead of issuing its own.
type descriptorFetch struct {
	done   chan struct{}
	result status.Status // valid only after done is closed
}

// InterfaceDescriptor returns the descriptor string identifying the
// concrete type obj's peer implements, issuing an Interface transaction
// on first call and caching the result for every call after. newData
// and newReply construct the Data/Reply values the Interface
// transaction is sent and received with. newData can wrap
// wire.NewParcel, e.g. func() transport.Data { return wire.NewParcel() }.
// newReply's result type, interfaceDescriptorReader, is unexported, so
// only code inside package binder can write a newReply function.
//
// Any number of callers racing before the descriptor is cached converge
// on exactly one Interface transaction: the first caller issues it
// (without holding obj's lock, so the round trip never blocks a
// concurrent Transact or death delivery), and the rest wait for that
// result instead of each issuing their own. A failed fetch is not
// cached, so a later call retries.
func (obj *Object) InterfaceDescriptor(newData func() transport.Data, newReply func() interfaceDescriptorReader) (string, status.Status) {
	if cached := obj.descriptor.Load(); cached != nil {
		return *cached, status.OK
	}
	if !obj.alive.Load() {
		return "", status.DeadPeer
	}

	obj.mu.Lock()
	if cached := obj.descriptor.Load(); cached != nil {
		obj.mu.Unlock()
		return *cached, status.OK
	}
	if fetch := obj.descriptorFetch; fetch != nil {
		obj.mu.Unlock()
		<-fetch.done
		if cached := obj.descriptor.Load(); cached != nil {
			return *cached, status.OK
		}
		return "", fetch.result
	}
	fetch := &descriptorFetch{done: make(chan struct{})}
	obj.descriptorFetch = fetch
	obj.mu.Unlock()

	reply := newReply()
	result := obj.Transact(Interface, newData(), reply, 0)
	var descriptor string
	if result == status.OK {
		var err error
		descriptor, err = reply.ReadString16()
		if err != nil {
			result = status.BadType
		}
	}
	obj.mu.Lock()
	if result == status.OK {
		obj.descriptor.CompareAndSwap(nil, &descriptor)
	}
	fetch.result = result
	obj.descriptorFetch = nil
	obj.mu.Unlock()
	close(fetch.done)

	if cached := obj.descriptor.Load(); cached != nil {
		return *cached, status.OK
	}
	return "", result
}

// Ping issues the reserved Ping transaction, a liveness check that
// carries no payload and expects no reply body.
func (obj *Object) Ping() status.Status {
	return obj.Transact(Ping, nil, nil, 0)
}

// Dump issues the reserved Dump transaction, requesting the peer write
// its diagnostic state into reply.
func (obj *Object) Dump(data transport.Data, reply transport.Reply) status.Status {
	return obj.Transact(Dump, data, reply, 0)
}

// StartRecordingBinder issues the reserved StartRecording transaction,
// asking the peer to begin capturing a transcript of the transactions
// it services.
func (obj *Object) StartRecordingBinder(data transport.Data, reply transport.Reply) status.Status {
	return obj.Transact(StartRecording, data, reply, 0)
}

// StopRecordingBinder issues the reserved StopRecording transaction.
func (obj *Object) StopRecordingBinder(data transport.Data, reply transport.Reply) status.Status {
	return obj.Transact(StopRecording, data, reply, 0)
}

// IncStrong records one more strong reference to obj. The transition
// from zero to one strong references notifies the remote peer.
func (obj *Object) IncStrong() {
	if obj.strong.Add(1) == 1 {
		obj.onFirstRef()
	}
}

func (obj *Object) onFirstRef() {
	if obj.kernel != nil {
		obj.kernel.IncStrong(kernelValueOf(obj.handle))
	}
}

// DecStrong releases one strong reference to obj. When the count
// reaches zero, obj's death recipients are dropped without
// notification and the remote peer is told the
// strong reference is gone.
func (obj *Object) DecStrong() {
	if obj.strong.Add(-1) == 0 {
		obj.onLastStrongRef()
	}
}

func (obj *Object) onLastStrongRef() {
	obj.dropObituariesSilently()

	if obj.kernel != nil {
		obj.kernel.DecStrong(kernelValueOf(obj.handle))
	} else {
		session, address := rpcSessionOf(obj.handle)
		session.SendDecStrong(address)
	}

	if obj.tracker != nil {
		obj.tracker.Decr(*obj.trackedOriginator)
	}
}

// IncWeak records one more weak reference to obj.
func (obj *Object) IncWeak() {
	obj.weak.Add(1)
	if obj.kernel != nil {
		obj.kernel.IncWeak(kernelValueOf(obj.handle))
	}
}

// DecWeak releases one weak reference to obj. Panics if called without
// a matching prior IncWeak — every Object starts with an implicit
// weak reference of its own held by its creator, so this only fires on
// genuine caller misuse.
//
// When the weak count reaches zero, obj is considered destroyed: every
// entry left in its attached-object table is torn down and its
// CleanupFunc invoked, in unspecified order, exactly once, outside
// obj's lock.
func (obj *Object) DecWeak() {
	remaining := obj.weak.Add(-1)
	if remaining < 0 {
		panic("binder: DecWeak called without a matching IncWeak")
	}
	if obj.kernel != nil {
		obj.kernel.DecWeak(kernelValueOf(obj.handle))
	}
	if remaining == 0 {
		obj.destroy()
	}
}

func (obj *Object) destroy() {
	obj.mu.Lock()
	killed := obj.attached.kill()
	obj.mu.Unlock()

	for _, e := range killed {
		if e.cleanup != nil {
			e.cleanup(e.id, e.value, e.cookie)
		}
	}
}

// AttemptIncStrong tries to acquire a strong reference on a proxy that
// may currently be held only weakly, returning false if the remote
// peer already dropped its own last strong reference.
func (obj *Object) AttemptIncStrong() bool {
	if obj.strong.Load() > 0 {
		obj.IncStrong()
		return true
	}
	if obj.kernel != nil && !obj.kernel.AttemptIncStrong(kernelValueOf(obj.handle)) {
		return false
	}
	if obj.strong.Add(1) == 1 {
		obj.onFirstRef()
	}
	return true
}
