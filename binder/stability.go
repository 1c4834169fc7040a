// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binder

// Stability is the opaque 16-bit bitset marking which ABI tier a proxy
// belongs to. The core only ever compares a proxy's label against a
// required level; it never inspects individual bits for any other
// purpose.
type Stability uint16

// Stability levels, ordered from least to most restrictive. A proxy
// stamped at a given level satisfies a stability check requiring that
// level or any less restrictive one.
const (
	StabilityLocal  Stability = 0x0
	StabilityVendor Stability = 0x1
	StabilitySystem Stability = 0x3
)

// localRequiredLevel is the stability level a user transaction must
// satisfy on this process by default. Overridable per-process via
// SetLocalRequiredLevel; production processes typically set this once
// at startup to StabilitySystem or StabilityVendor.
var localRequiredLevel = StabilityLocal

// SetLocalRequiredLevel sets the process-wide required stability level
// checked by non-vendor user transactions.
func SetLocalRequiredLevel(level Stability) { localRequiredLevel = level }

// checkStability reports whether a proxy stamped with label satisfies
// required. A proxy satisfies a required level when its own label is
// at least as restrictive: every bit set in required must also be set
// in label.
func checkStability(label, required Stability) bool {
	return label&required == required
}
