// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package budget

import (
	"testing"

	"github.com/openbinder/binderproxy/status"
)

func TestTrackerCountsDisabledByDefault(t *testing.T) {
	t.Parallel()

	tr := New(10, 5)
	tr.Incr(1)
	tr.Incr(1)

	if got := tr.Count(1); got != 0 {
		t.Errorf("expected 0 with accounting disabled, got %d", got)
	}
	if got := tr.Total(); got != 2 {
		t.Errorf("expected process-wide total 2 regardless of per-uid accounting, got %d", got)
	}
}

func TestTrackerPerUidOverrideBeatsGlobal(t *testing.T) {
	t.Parallel()

	tr := New(10, 5)
	tr.SetCountByUidEnabled(true)
	tr.DisableCountByUid(7)

	tr.Incr(1)
	tr.Incr(7)

	if got := tr.Count(1); got != 1 {
		t.Errorf("originator 1: expected count 1, got %d", got)
	}
	if got := tr.Count(7); got != 0 {
		t.Errorf("originator 7: expected count 0 under explicit disable, got %d", got)
	}
}

func TestTrackerLimitCallbackFiresOnceUntilLowWatermark(t *testing.T) {
	t.Parallel()

	tr := New(3, 1)
	tr.SetCountByUidEnabled(true)

	var fired []uint32
	tr.SetLimitCallback(func(originator uint32, count uint32) {
		fired = append(fired, count)
	})

	const originator = 42
	for i := 0; i < 5; i++ {
		tr.Incr(originator)
	}
	if len(fired) != 1 {
		t.Fatalf("expected exactly one callback while climbing past the high watermark, got %d: %v", len(fired), fired)
	}
	if fired[0] != 3 {
		t.Errorf("expected callback to report the pre-increment count 3 (first crossing), got %d", fired[0])
	}

	for i := 0; i < 5; i++ {
		tr.Decr(originator)
	}
	if got := tr.Count(originator); got != 0 {
		t.Fatalf("expected count 0 after matching decrements, got %d", got)
	}

	for i := 0; i < 5; i++ {
		tr.Incr(originator)
	}
	if len(fired) != 2 {
		t.Fatalf("expected a second callback after falling back below the low watermark and re-crossing high, got %d: %v", len(fired), fired)
	}
}

func TestTrackerLimitCallbackRefiresOnExcessDeltaWithoutThrottle(t *testing.T) {
	t.Parallel()

	tr := New(3, 1)
	tr.SetCountByUidEnabled(true)

	var fired []uint32
	tr.SetLimitCallback(func(originator uint32, count uint32) {
		fired = append(fired, count)
	})

	const originator = 99
	for i := 0; i < 8; i++ {
		if st := tr.Incr(originator); st != status.OK {
			t.Fatalf("Incr[%d]: got %v, want OK (throttling is off)", i, st)
		}
	}

	if len(fired) != 2 {
		t.Fatalf("expected two callbacks: the initial crossing and one re-fire on excess delta while still climbing, got %d: %v", len(fired), fired)
	}
	if fired[0] != 3 {
		t.Errorf("expected first callback to report count 3, got %d", fired[0])
	}
	if fired[1] != 7 {
		t.Errorf("expected the re-fire to report count 7 (grown by more than the high watermark past the last callback), got %d", fired[1])
	}
	if got := tr.Count(originator); got != 8 {
		t.Errorf("expected count 8 with throttling off, got %d", got)
	}
}

func TestTrackerThrottleRefusesCreationPastHighWatermark(t *testing.T) {
	t.Parallel()

	tr := New(3, 1)
	tr.SetCountByUidEnabled(true)
	tr.SetThrottleEnabled(true)

	var fired []uint32
	tr.SetLimitCallback(func(originator uint32, count uint32) {
		fired = append(fired, count)
	})

	const originator = 7
	for i := 0; i < 3; i++ {
		if st := tr.Incr(originator); st != status.OK {
			t.Fatalf("Incr[%d]: got %v, want OK", i, st)
		}
	}

	if st := tr.Incr(originator); st != status.AbsentProxy {
		t.Fatalf("the fourth Incr past the high watermark with throttling on: got %v, want AbsentProxy", st)
	}
	if got := tr.Count(originator); got != 3 {
		t.Errorf("a throttled Incr must not increment the count, got %d", got)
	}
	if len(fired) != 1 || fired[0] != 3 {
		t.Fatalf("expected the limit callback to fire once with count 3 even though creation was refused, got %v", fired)
	}

	if st := tr.Incr(originator); st != status.AbsentProxy {
		t.Fatalf("a further Incr while still throttled: got %v, want AbsentProxy", st)
	}
	if len(fired) != 1 {
		t.Fatalf("a throttled originator that never falls back below the high watermark must not re-fire, got %v", fired)
	}

	tr.Decr(originator)
	tr.Decr(originator)
	if got := tr.Count(originator); got != 1 {
		t.Fatalf("expected count 1 after two decrements from 3, got %d", got)
	}

	if st := tr.Incr(originator); st != status.OK {
		t.Fatalf("Incr after falling back to the low watermark: got %v, want OK", st)
	}
	if got := tr.Count(originator); got != 2 {
		t.Errorf("expected count 2 after the throttle cleared, got %d", got)
	}
}

func TestTrackerDecrBelowZeroIsNoop(t *testing.T) {
	t.Parallel()

	tr := New(10, 5)
	tr.SetCountByUidEnabled(true)
	tr.Decr(9) // never Incr'd

	if got := tr.Count(9); got != 0 {
		t.Errorf("expected count to stay 0, got %d", got)
	}
}

func TestTrackerSnapshot(t *testing.T) {
	t.Parallel()

	tr := New(10, 5)
	tr.SetCountByUidEnabled(true)
	tr.Incr(1)
	tr.Incr(1)
	tr.Incr(2)

	snap := tr.Snapshot()
	if snap[1] != 2 || snap[2] != 1 {
		t.Errorf("unexpected snapshot: %v", snap)
	}
}
