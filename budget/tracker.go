// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package budget tracks how many live proxy objects each originator
// (calling uid, in the kernel-transport sense) currently holds, and
// throttles originators that climb past a configured high watermark
// until they fall back below a lower one.
package budget

import (
	"sync"
	"sync/atomic"

	"github.com/openbinder/binderproxy/status"
)

// DefaultHighWatermark and DefaultLowWatermark are the watermarks a
// Tracker starts with absent an explicit Config, chosen to match the
// original's own defaults.
const (
	DefaultHighWatermark = 2500
	DefaultLowWatermark  = 2000
)

// LimitCallback is invoked when an originator's proxy count crosses
// above the high watermark. While the originator stays over it, the
// callback fires again only when the count has grown by more than
// another high watermark's worth past the count at the last callback;
// once the count falls back to or below the low watermark, the next
// crossing of the high watermark fires it again. It runs outside the Tracker's lock; it must not call back into
// the Tracker synchronously without risking self-deadlock through
// whatever external throttling it performs.
type LimitCallback func(originator uint32, count uint32)

type originatorState struct {
	count             uint32
	limitReached      bool
	lastCallbackCount uint32
}

// Tracker is a process-wide (or, via New, test-scoped) registry of
// per-originator proxy counts. The zero value is not usable; construct
// with New or use Default.
type Tracker struct {
	mu sync.Mutex

	high, low uint32
	throttle  bool

	enabledGlobal bool
	enabledUids   map[uint32]bool // explicit per-uid override of enabledGlobal
	states        map[uint32]*originatorState

	callback LimitCallback

	total atomic.Int64
}

// New constructs a Tracker with the given watermarks. Intended for
// tests that need isolation from the process-wide Default tracker;
// production code normally uses Default.
func New(high, low uint32) *Tracker {
	return &Tracker{
		high:        high,
		low:         low,
		enabledUids: make(map[uint32]bool),
		states:      make(map[uint32]*originatorState),
	}
}

var (
	defaultTracker     *Tracker
	defaultTrackerOnce sync.Once
)

// Default returns the process-wide Tracker, initialized lazily with
// DefaultHighWatermark and DefaultLowWatermark. binder.CreateKernel
// registers a proxy against whichever tracker its caller passes in;
// this is the one to pass for process-wide accounting.
func Default() *Tracker {
	defaultTrackerOnce.Do(func() {
		defaultTracker = New(DefaultHighWatermark, DefaultLowWatermark)
	})
	return defaultTracker
}

// SetWatermarks changes the high and low watermarks. Takes effect on
// the next Incr/Decr; does not retroactively re-evaluate originators
// already past the old high watermark.
func (t *Tracker) SetWatermarks(high, low uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.high, t.low = high, low
}

// SetThrottleEnabled controls whether an originator whose limit-reached
// flag is set has its further proxy creations refused outright (Incr
// returns status.AbsentProxy) instead of merely re-firing the limit
// callback.
func (t *Tracker) SetThrottleEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.throttle = enabled
}

// SetLimitCallback installs the function invoked when an originator
// crosses the high watermark. A nil callback disables notification
// without disabling accounting.
func (t *Tracker) SetLimitCallback(cb LimitCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = cb
}

// SetCountByUidEnabled turns per-originator accounting on or off for
// every originator that has no explicit EnableCountByUid /
// DisableCountByUid override.
func (t *Tracker) SetCountByUidEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabledGlobal = enabled
}

// EnableCountByUid forces per-originator accounting on for originator
// regardless of the global setting.
func (t *Tracker) EnableCountByUid(originator uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabledUids[originator] = true
}

// DisableCountByUid forces per-originator accounting off for
// originator regardless of the global setting.
func (t *Tracker) DisableCountByUid(originator uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabledUids[originator] = false
}

func (t *Tracker) countingEnabledLocked(originator uint32) bool {
	if enabled, explicit := t.enabledUids[originator]; explicit {
		return enabled
	}
	return t.enabledGlobal
}

// Incr records one more proxy created on originator's behalf and
// reports whether the creation is allowed to proceed. It returns
// status.AbsentProxy instead of incrementing when originator is already
// past the high watermark and throttling is enabled — the caller must
// not construct the proxy in that case. Crossing the high watermark for
// the first time, or growing by more than another high watermark's
// worth past the last callback while still over it, fires the
// installed LimitCallback once, outside the lock.
func (t *Tracker) Incr(originator uint32) status.Status {
	t.mu.Lock()
	if !t.countingEnabledLocked(originator) {
		t.mu.Unlock()
		t.total.Add(1)
		return status.OK
	}
	st, ok := t.states[originator]
	if !ok {
		st = &originatorState{}
		t.states[originator] = st
	}

	var fire bool
	var fireCount uint32
	cb := t.callback

	switch {
	case st.limitReached:
		if t.throttle {
			t.mu.Unlock()
			return status.AbsentProxy
		}
		if st.count > st.lastCallbackCount+t.high {
			fire = cb != nil
			fireCount = st.count
			st.lastCallbackCount = st.count
		}
	case st.count >= t.high:
		st.limitReached = true
		fire = cb != nil
		fireCount = st.count
		st.lastCallbackCount = st.count
		if t.throttle {
			t.mu.Unlock()
			if fire {
				cb(originator, fireCount)
			}
			return status.AbsentProxy
		}
	}

	st.count++
	t.mu.Unlock()

	if fire {
		cb(originator, fireCount)
	}
	t.total.Add(1)
	return status.OK
}

// Decr records the release of one proxy created on originator's
// behalf. Once the count falls to or below the low watermark, the
// limit flag clears and a future Incr past the high watermark can fire
// the callback again.
func (t *Tracker) Decr(originator uint32) {
	t.total.Add(-1)

	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[originator]
	if !ok || st.count == 0 {
		return
	}
	st.count--
	if st.limitReached && st.count <= t.low {
		st.limitReached = false
		st.lastCallbackCount = 0
	}
	if st.count == 0 {
		delete(t.states, originator)
	}
}

// Count returns originator's current tracked proxy count. Returns 0
// for an originator with no live proxies, or for one accounting is
// disabled for.
func (t *Tracker) Count(originator uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[originator]
	if !ok {
		return 0
	}
	return st.count
}

// Total returns the process-wide count of live proxies tracked by t,
// independent of per-originator accounting being enabled.
func (t *Tracker) Total() int64 {
	return t.total.Load()
}

// Snapshot returns a copy of every originator's current count,
// including originators at zero limit-reached state but nonzero count.
func (t *Tracker) Snapshot() map[uint32]uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[uint32]uint32, len(t.states))
	for originator, st := range t.states {
		out[originator] = st.count
	}
	return out
}
