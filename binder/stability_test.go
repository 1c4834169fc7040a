// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import "testing"

func TestCheckStability(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label, required Stability
		want            bool
	}{
		{StabilitySystem, StabilityLocal, true},
		{StabilitySystem, StabilityVendor, true},
		{StabilitySystem, StabilitySystem, true},
		{StabilityVendor, StabilitySystem, false},
		{StabilityLocal, StabilityVendor, false},
		{StabilityLocal, StabilityLocal, true},
	}
	for _, c := range cases {
		if got := checkStability(c.label, c.required); got != c.want {
			t.Errorf("checkStability(%v, %v) = %v, want %v", c.label, c.required, got, c.want)
		}
	}
}
