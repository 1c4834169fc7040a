// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"weak"

	"github.com/openbinder/binderproxy/status"
)

// DeathRecipient is notified when the remote peer behind a proxy dies.
type DeathRecipient interface {
	BinderDied(who Handle)
}

// recipientBox is the heap allocation an obituary entry keeps a strong
// reference to for as long as it is linked, and that RecipientHandle
// weakly targets for identity comparison on Unlink.
type recipientBox struct {
	recipient DeathRecipient
	cookie    any
}

// RecipientHandle identifies a previously linked DeathRecipient for a
// later Unlink call. It holds only a weak.Pointer to the recipient's
// bookkeeping box, never the recipient itself — the obituary list is
// what keeps a linked recipient alive; a RecipientHandle
// squirreled away by a caller after Unlink or after delivery does not
// resurrect it.
type RecipientHandle struct {
	ptr weak.Pointer[recipientBox]
}

// Valid reports whether h was ever produced by a successful Link call.
func (h RecipientHandle) Valid() bool { return h.ptr != (weak.Pointer[recipientBox]{}) }

type obituaryEntry struct {
	box   *recipientBox
	weak  weak.Pointer[recipientBox]
	flags uint32
}

// matches reports whether e was registered with flags, and either
// handle identifies e's recipient (weak-equal, without promoting it)
// or handle is absent and cookie equals the one e was linked with.
// This is the three-way match Unlink uses to locate a registration,
// mirroring BpBinder::unlinkToDeath's (recipient, cookie, flags) key.
func (e obituaryEntry) matches(handle RecipientHandle, cookie any, flags uint32) bool {
	if e.flags != flags {
		return false
	}
	if handle.Valid() {
		return e.weak == handle.ptr
	}
	return e.box.cookie == cookie
}

// Link subscribes recipient for a death notification on obj's peer,
// carrying cookie and flags back to it unexamined. flags is opaque to
// the core; it is only ever compared for equality against the flags a
// later Unlink call supplies. Returns a RecipientHandle identifying
// this subscription for Unlink.
//
// Fails with InvalidOperation if obj addresses an RPC session
// configured to service zero incoming threads — such a session can
// never deliver an asynchronous obituary. Fails with
// DeadPeer if the peer is already known dead; the obituary for a peer
// that died before Link was called is never delivered retroactively.
func Link(obj *Object, recipient DeathRecipient, cookie any, flags uint32) (RecipientHandle, status.Status) {
	if recipient == nil {
		panic("binder: Link called with nil recipient")
	}
	if IsRPC(obj.handle) {
		session, _ := rpcSessionOf(obj.handle)
		if session.MaxIncomingThreads() < 1 {
			return RecipientHandle{}, status.InvalidOperation
		}
	}

	obj.mu.Lock()
	defer obj.mu.Unlock()

	if !obj.alive.Load() {
		return RecipientHandle{}, status.DeadPeer
	}

	if len(obj.obituaries) == 0 && obj.kernel != nil {
		obj.kernel.RequestDeath(kernelValueOf(obj.handle), obj)
		obj.kernel.Flush()
	}

	box := &recipientBox{recipient: recipient, cookie: cookie}
	wp := weak.Make(box)
	obj.obituaries = append(obj.obituaries, obituaryEntry{box: box, weak: wp, flags: flags})
	return RecipientHandle{ptr: wp}, status.OK
}

// Unlink removes a subscription previously registered via Link.
// Matching follows the rule flags must equal, and either handle
// identifies the linked recipient (weak-equal) or handle is the zero
// RecipientHandle — "recipient absent" — and cookie equals the one
// supplied to Link. Pass the RecipientHandle Link returned to unlink a
// specific registration regardless of its cookie, or the zero
// RecipientHandle with the original cookie to unlink by cookie alone,
// the way a caller that never kept the handle around still can.
//
// Returns the matched recipient and OK on success, NameNotFound if no
// entry matches, or DeadPeer if obj's obituaries have already been
// delivered — including when the matching entry was itself delivered.
// Entries dropped silently at last-strong-ref release are simply gone:
// a later Unlink for one of them returns NameNotFound.
func Unlink(obj *Object, handle RecipientHandle, cookie any, flags uint32) (DeathRecipient, status.Status) {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	if obj.obitsSent {
		return nil, status.DeadPeer
	}

	for i, e := range obj.obituaries {
		if !e.matches(handle, cookie, flags) {
			continue
		}
		obj.obituaries = append(obj.obituaries[:i], obj.obituaries[i+1:]...)
		if len(obj.obituaries) == 0 && obj.kernel != nil {
			obj.kernel.ClearDeath(kernelValueOf(obj.handle), obj)
			obj.kernel.Flush()
		}
		return e.box.recipient, status.OK
	}
	return nil, status.NameNotFound
}

// sendObituary marks obj's peer dead and delivers every linked
// recipient's BinderDied exactly once, in link order. Idempotent: a
// second call after the first is a no-op, matching the transport's own
// at-most-once death signal per peer.
//
// Delivery happens after the lock is released, so a recipient calling
// back into obj — including Unlink on a handle other than its own — is
// never blocked on the lock it would otherwise be racing this method
// for.
func (obj *Object) sendObituary() {
	obj.mu.Lock()
	if obj.obitsSent {
		obj.mu.Unlock()
		return
	}
	obj.obitsSent = true
	obj.alive.Store(false)
	entries := obj.obituaries
	obj.obituaries = nil
	if len(entries) != 0 && obj.kernel != nil {
		obj.kernel.ClearDeath(kernelValueOf(obj.handle), obj)
		obj.kernel.Flush()
	}
	obj.mu.Unlock()

	for _, e := range entries {
		e.box.recipient.BinderDied(obj.handle)
	}
}

// dropObituariesSilently discards every linked recipient without
// invoking BinderDied. Called exactly once, from onLastStrongRef: a
// proxy that has simply run out of local strong references was never
// told its peer died, so its death recipients must not be told either.
// Logs when the dropped list was non-empty, since that is the one case
// where a caller's registered recipients silently stop mattering.
func (obj *Object) dropObituariesSilently() {
	obj.mu.Lock()
	hadObituaries := len(obj.obituaries) != 0
	obj.obituaries = nil
	obj.mu.Unlock()

	if hadObituaries {
		logger.Info("binder: dropped obituaries on last strong ref release", "rpc", IsRPC(obj.handle))
	}
}
