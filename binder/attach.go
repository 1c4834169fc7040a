// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"reflect"
	"sync/atomic"
	"weak"
)

// ObjectID is the opaque, pointer-shaped identity a caller attaches a
// value under. Two ObjectIDs are equal exactly when they were derived
// from the same identity.
type ObjectID uintptr

var syntheticIdentityCounter atomic.Uintptr

// IdentityOf derives an ObjectID for v. Pointer-shaped values
// (pointers, maps, chans, funcs, and non-nil interfaces wrapping one of
// those) use their runtime address, the Go analog of using a raw
// pointer as the map key, so the same pointer always yields the same
// ObjectID. Non-pointer values — where "address" is not meaningful in
// Go — get a fresh, process-unique id on every call, even when the same
// value is passed again; hold onto the returned ObjectID to refer to
// the same entry later.
func IdentityOf(v any) ObjectID {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if !rv.IsNil() {
			return ObjectID(rv.Pointer())
		}
	}
	return ObjectID(syntheticIdentityCounter.Add(1))
}

// CleanupFunc is invoked exactly once when an attached entry is torn
// down at proxy destruction, receiving the id, the attached value, and
// the cleanup cookie supplied at Attach time. Never invoked for a
// value removed via Detach.
type CleanupFunc func(id ObjectID, value any, cookie any)

type attachEntry struct {
	value   any
	cookie  any
	cleanup CleanupFunc
}

// weakPromoter lets LookupOrCreateWeak's generic weak.Pointer[T]
// wrapper live inside the same, non-generic attachEntry.value slot
// used by ordinary Attach/Find/Detach entries.
type weakPromoter interface {
	promote() (any, bool)
}

type weakHolder[T any] struct {
	ptr weak.Pointer[T]
}

func (h weakHolder[T]) promote() (any, bool) {
	v := h.ptr.Value()
	if v == nil {
		return nil, false
	}
	return v, true
}

// attachedObjectTable is the per-proxy id → entry mapping.
// Every method assumes the caller already holds the owning Object's
// lock; the table has no lock of its own.
type attachedObjectTable struct {
	entries map[ObjectID]*attachEntry
	killed  bool
}

func (t *attachedObjectTable) attach(id ObjectID, value any, cookie any, cleanup CleanupFunc) (any, bool) {
	if t.killed {
		return nil, false
	}
	if t.entries == nil {
		t.entries = make(map[ObjectID]*attachEntry)
	}
	if existing, ok := t.entries[id]; ok {
		return existing.value, true
	}
	t.entries[id] = &attachEntry{value: value, cookie: cookie, cleanup: cleanup}
	return nil, false
}

func (t *attachedObjectTable) find(id ObjectID) (any, bool) {
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (t *attachedObjectTable) detach(id ObjectID) (any, bool) {
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	delete(t.entries, id)
	return e.value, true
}

// killedEntry pairs a torn-down attachEntry with the id it was
// registered under, since CleanupFunc needs both.
type killedEntry struct {
	id ObjectID
	*attachEntry
}

// kill detaches every entry and returns them for cleanup invocation
// outside the owning lock. Marks the table killed so any Attach
// reentering from within a cleanup callback is silently refused rather
// than corrupting a map mid-drain.
func (t *attachedObjectTable) kill() []killedEntry {
	entries := make([]killedEntry, 0, len(t.entries))
	for id, e := range t.entries {
		entries = append(entries, killedEntry{id: id, attachEntry: e})
	}
	t.entries = nil
	t.killed = true
	return entries
}

// Attach installs value under id if id is not already present. Returns
// the existing value and true if id was already in use — in that case
// value is NOT installed; the table is first-writer-wins.
func (obj *Object) Attach(id ObjectID, value any, cookie any, cleanup CleanupFunc) (existing any, present bool) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.attached.attach(id, value, cookie, cleanup)
}

// Find returns the value attached under id, if any.
func (obj *Object) Find(id ObjectID) (value any, present bool) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.attached.find(id)
}

// Detach removes and returns the value attached under id without
// invoking its cleanup callback.
func (obj *Object) Detach(id ObjectID) (value any, present bool) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.attached.detach(id)
}

// LookupOrCreateWeak returns the promoted strong value of the weak
// reference stored under id if it is still alive, or calls makeFn to
// produce a fresh value, stores a weak reference to it, and returns it.
//
// The weak reference is a real Go weak.Pointer[T] (available since Go
// 1.24): once nothing outside this table holds a strong *T, Value()
// starts returning nil and the next call recreates the slot. Go's
// garbage collector reclaims the weak.Pointer's backing bookkeeping on
// its own, so the installed cleanup is a no-op kept only to preserve
// the entry's shape.
func LookupOrCreateWeak[T any](obj *Object, id ObjectID, makeFn func() *T) *T {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	if obj.attached.entries != nil {
		if e, ok := obj.attached.entries[id]; ok {
			if promoter, ok := e.value.(weakPromoter); ok {
				if v, ok := promoter.promote(); ok {
					return v.(*T)
				}
			}
		}
	}

	created := makeFn()
	holder := weakHolder[T]{ptr: weak.Make(created)}
	if obj.attached.entries == nil {
		obj.attached.entries = make(map[ObjectID]*attachEntry)
	}
	obj.attached.entries[id] = &attachEntry{
		value:   holder,
		cleanup: func(ObjectID, any, any) {},
	}
	return created
}
