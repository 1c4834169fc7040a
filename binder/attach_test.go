// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"runtime"
	"testing"

	"github.com/openbinder/binderproxy/status"
)

func newTestObject() *Object {
	obj, st := CreateKernel(&fakeKernel{}, 1, StabilityLocal, 1, nil)
	if st != status.OK {
		panic("newTestObject: CreateKernel: " + st.String())
	}
	return obj
}

func TestAttachFirstWriterWins(t *testing.T) {
	t.Parallel()

	obj := newTestObject()
	id := IdentityOf(t)

	existing, present := obj.Attach(id, "first", nil, nil)
	if present {
		t.Fatalf("expected no existing entry, got (%v, %v)", existing, present)
	}

	existing, present = obj.Attach(id, "second", nil, nil)
	if !present || existing != "first" {
		t.Fatalf("expected the first value to win, got (%v, %v)", existing, present)
	}

	value, ok := obj.Find(id)
	if !ok || value != "first" {
		t.Fatalf("Find: got (%v, %v), want (\"first\", true)", value, ok)
	}
}

func TestDetachRemovesWithoutCleanup(t *testing.T) {
	t.Parallel()

	obj := newTestObject()
	id := IdentityOf(t)

	cleaned := false
	obj.Attach(id, "value", nil, func(ObjectID, any, any) { cleaned = true })

	value, ok := obj.Detach(id)
	if !ok || value != "value" {
		t.Fatalf("Detach: got (%v, %v)", value, ok)
	}
	if cleaned {
		t.Error("Detach must not invoke the cleanup callback")
	}
	if _, ok := obj.Find(id); ok {
		t.Error("expected the entry to be gone after Detach")
	}
}

func TestDestroyInvokesCleanupExactlyOnce(t *testing.T) {
	t.Parallel()

	obj := newTestObject()
	id := IdentityOf(t)

	var calls int
	var gotID ObjectID
	var gotCookie any
	obj.Attach(id, "value", "cookie", func(gotIDArg ObjectID, value any, cookie any) {
		calls++
		gotID = gotIDArg
		gotCookie = cookie
		if value != "value" {
			t.Errorf("cleanup saw value %v, want %q", value, "value")
		}
	})

	obj.DecWeak() // strong=1, weak=1 -> weak=0: destroys

	if calls != 1 {
		t.Fatalf("expected cleanup exactly once, got %d", calls)
	}
	if gotID != id {
		t.Errorf("cleanup saw id %v, want %v", gotID, id)
	}
	if gotCookie != "cookie" {
		t.Errorf("cleanup saw cookie %v, want %q", gotCookie, "cookie")
	}

	if _, present := obj.Attach(id, "reentrant", nil, nil); present {
		t.Error("Attach after destroy unexpectedly reports an existing entry")
	}
	if _, ok := obj.Find(id); ok {
		t.Error("expected Attach after destroy to be refused, not installed")
	}
}

type weakSlotValue struct{ n int }

func TestLookupOrCreateWeakPromotesWhileReferenced(t *testing.T) {
	t.Parallel()

	obj := newTestObject()
	id := IdentityOf(t)

	creations := 0
	makeFn := func() *weakSlotValue {
		creations++
		return &weakSlotValue{n: creations}
	}

	first := LookupOrCreateWeak(obj, id, makeFn)
	second := LookupOrCreateWeak(obj, id, makeFn)

	if first != second {
		t.Fatal("expected the same instance while a strong reference to it is held")
	}
	if creations != 1 {
		t.Fatalf("expected exactly one creation, got %d", creations)
	}
	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}

func TestLookupOrCreateWeakRecreatesOnceUnreferenced(t *testing.T) {
	obj := newTestObject()
	id := IdentityOf(t)

	creations := 0
	makeFn := func() *weakSlotValue {
		creations++
		return &weakSlotValue{n: creations}
	}

	func() {
		v := LookupOrCreateWeak(obj, id, makeFn)
		runtime.KeepAlive(v)
	}()

	runtime.GC()
	runtime.GC()

	_ = LookupOrCreateWeak(obj, id, makeFn)
	if creations != 2 {
		t.Skipf("weak slot was not collected before the second lookup (creations=%d); the GC is not obligated to run synchronously", creations)
	}
}
