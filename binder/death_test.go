// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"testing"

	"github.com/openbinder/binderproxy/status"
)

func TestLinkDeliversInOrderAndOnce(t *testing.T) {
	t.Parallel()

	kernel := &fakeKernel{}
	obj, st := CreateKernel(kernel, 1, StabilityLocal, 1, nil)
	if st != status.OK {
		t.Fatalf("CreateKernel: %v", st)
	}

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if _, st := Link(obj, deathFunc(func(Handle) { order = append(order, i) }), nil, 0); st != status.OK {
			t.Fatalf("Link[%d]: %v", i, st)
		}
	}
	if len(kernel.requestDeathCalls) != 1 {
		t.Fatalf("expected exactly one RequestDeath call across 3 Links on the same object, got %d", len(kernel.requestDeathCalls))
	}
	if kernel.flushCalls != 1 {
		t.Fatalf("expected exactly one Flush call after the first Link, got %d", kernel.flushCalls)
	}

	obj.sendObituary()
	obj.sendObituary() // idempotent: must not deliver a second time

	if len(order) != 3 {
		t.Fatalf("expected 3 deliveries, got %d: %v", len(order), order)
	}
	for i, v := range order {
		if v != i {
			t.Errorf("expected link order delivery, got %v", order)
			break
		}
	}
	if obj.Alive() {
		t.Error("expected obj to be dead after sendObituary")
	}
	if len(kernel.clearDeathCalls) != 1 {
		t.Fatalf("expected sendObituary to unsubscribe once, got %d ClearDeath calls", len(kernel.clearDeathCalls))
	}
	if kernel.flushCalls != 2 {
		t.Fatalf("expected a second Flush after sendObituary's ClearDeath, got %d", kernel.flushCalls)
	}
}

func TestUnlinkPreventsDelivery(t *testing.T) {
	t.Parallel()

	kernel := &fakeKernel{}
	obj, st := CreateKernel(kernel, 1, StabilityLocal, 1, nil)
	if st != status.OK {
		t.Fatalf("CreateKernel: %v", st)
	}

	delivered := false
	handle, st := Link(obj, deathFunc(func(Handle) { delivered = true }), nil, 0)
	if st != status.OK {
		t.Fatalf("Link: %v", st)
	}
	if _, st := Unlink(obj, handle, nil, 0); st != status.OK {
		t.Fatalf("Unlink: %v", st)
	}
	if len(kernel.clearDeathCalls) != 1 {
		t.Fatalf("expected Unlink emptying the obituary list to unsubscribe, got %d ClearDeath calls", len(kernel.clearDeathCalls))
	}
	if kernel.flushCalls != 2 {
		t.Fatalf("expected Flush after Link and after Unlink's ClearDeath, got %d", kernel.flushCalls)
	}

	obj.sendObituary()
	if delivered {
		t.Error("expected no delivery after Unlink")
	}
	if len(kernel.clearDeathCalls) != 1 {
		t.Fatalf("sendObituary must not re-unsubscribe an already-empty obituary list, got %d ClearDeath calls", len(kernel.clearDeathCalls))
	}

	// sendObituary ran (even against an already-empty list), so obits
	// are now delivered: any further Unlink reports DeadPeer rather than
	// NameNotFound, regardless of whether the entry was present.
	if _, st := Unlink(obj, handle, nil, 0); st != status.DeadPeer {
		t.Errorf("second Unlink after sendObituary: got %v, want DeadPeer", st)
	}
}

func TestUnlinkMatchesByCookieWhenRecipientAbsent(t *testing.T) {
	t.Parallel()

	kernel := &fakeKernel{}
	obj, st := CreateKernel(kernel, 1, StabilityLocal, 1, nil)
	if st != status.OK {
		t.Fatalf("CreateKernel: %v", st)
	}

	delivered := false
	const cookie = "cookie-7"
	if _, st := Link(obj, deathFunc(func(Handle) { delivered = true }), cookie, 3); st != status.OK {
		t.Fatalf("Link: %v", st)
	}

	// The zero RecipientHandle means "recipient absent": match by
	// cookie and flags alone, the way a caller that never retained the
	// handle Link returned still can.
	recipient, st := Unlink(obj, RecipientHandle{}, cookie, 3)
	if st != status.OK {
		t.Fatalf("Unlink by cookie: %v", st)
	}
	if recipient == nil {
		t.Fatal("expected Unlink to report the matched recipient")
	}

	obj.sendObituary()
	if delivered {
		t.Error("expected no delivery after cookie-only Unlink")
	}
}

func TestUnlinkRequiresMatchingFlags(t *testing.T) {
	t.Parallel()

	kernel := &fakeKernel{}
	obj, st := CreateKernel(kernel, 1, StabilityLocal, 1, nil)
	if st != status.OK {
		t.Fatalf("CreateKernel: %v", st)
	}

	delivered := false
	handle, st := Link(obj, deathFunc(func(Handle) { delivered = true }), nil, 1)
	if st != status.OK {
		t.Fatalf("Link: %v", st)
	}

	// Same handle, wrong flags: flags must equal before the
	// recipient/cookie half of the match is even considered.
	if _, st := Unlink(obj, handle, nil, 2); st != status.NameNotFound {
		t.Fatalf("Unlink with mismatched flags: got %v, want NameNotFound", st)
	}

	if _, st := Unlink(obj, handle, nil, 1); st != status.OK {
		t.Fatalf("Unlink with matching flags: %v", st)
	}

	obj.sendObituary()
	if delivered {
		t.Error("expected no delivery after Unlink")
	}
}

func TestLastStrongRefDropsObituariesSilently(t *testing.T) {
	t.Parallel()

	kernel := &fakeKernel{}
	obj, st := CreateKernel(kernel, 1, StabilityLocal, 1, nil)
	if st != status.OK {
		t.Fatalf("CreateKernel: %v", st)
	}

	delivered := false
	if _, st := Link(obj, deathFunc(func(Handle) { delivered = true }), nil, 0); st != status.OK {
		t.Fatalf("Link: %v", st)
	}

	obj.DecStrong() // strong count 1 -> 0

	if delivered {
		t.Error("a proxy that simply lost its last strong ref must not notify death recipients")
	}
	if len(obj.obituaries) != 0 {
		t.Error("expected the obituary list to be cleared")
	}
}

func TestLinkFailsOnRPCSessionWithNoIncomingThreads(t *testing.T) {
	t.Parallel()

	session := &fakeSession{maxIncoming: 0}
	obj := CreateRPC(session, 1, StabilityLocal)

	if _, st := Link(obj, deathFunc(func(Handle) {}), nil, 0); st != status.InvalidOperation {
		t.Fatalf("got %v, want InvalidOperation", st)
	}
}

func TestLinkFailsWhenPeerAlreadyDead(t *testing.T) {
	t.Parallel()

	kernel := &fakeKernel{}
	obj, st := CreateKernel(kernel, 1, StabilityLocal, 1, nil)
	if st != status.OK {
		t.Fatalf("CreateKernel: %v", st)
	}
	obj.sendObituary()

	if _, st := Link(obj, deathFunc(func(Handle) {}), nil, 0); st != status.DeadPeer {
		t.Fatalf("got %v, want DeadPeer", st)
	}
}
