// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// fuzzyScore returns the fzf match score of pattern against text, or
// (0, false) when pattern does not match at all. A zero-length pattern
// always matches with score 0, so an empty filter box shows everything.
func fuzzyScore(text string, pattern string) (int, bool) {
	if pattern == "" {
		return 0, true
	}
	chars := util.RunesToChars([]rune(text))
	slab := util.MakeSlab(100*1024, 2048)
	result, _ := algo.FuzzyMatchV2(false, true, true, &chars, []rune(pattern), false, slab)
	if result.Start < 0 {
		return 0, false
	}
	return result.Score, true
}
