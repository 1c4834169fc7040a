// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testsupport

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer.
//
//	address := testsupport.UniqueID("rpc-addr") // "rpc-addr-1", "rpc-addr-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
