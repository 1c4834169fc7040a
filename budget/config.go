// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package budget

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Config is the on-disk watermark configuration for a Tracker, stored
// as JSON with // and /* */ comments and trailing commas allowed.
type Config struct {
	// HighWatermark is the per-originator proxy count above which the
	// limit callback fires.
	HighWatermark uint32 `json:"highWatermark"`
	// LowWatermark is the count an originator must fall back to before
	// the limit callback is eligible to fire again.
	LowWatermark uint32 `json:"lowWatermark"`
	// CountByUidEnabled turns on per-originator accounting globally.
	CountByUidEnabled bool `json:"countByUidEnabled"`
	// ThrottleEnabled refuses proxy creation outright for an originator
	// past the high watermark, instead of only re-firing the limit
	// callback as it keeps climbing.
	ThrottleEnabled bool `json:"throttleEnabled"`
}

// LoadConfig reads and parses a watermark configuration file. The file
// may use JSONC comments and trailing commas, matching every other
// configuration format across this codebase's tooling.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading budget config: %w", err)
	}
	stripped := jsonc.ToJSON(raw)

	var cfg Config
	if err := json.Unmarshal(stripped, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing budget config: %w", err)
	}
	if cfg.LowWatermark > cfg.HighWatermark {
		return Config{}, fmt.Errorf("parsing budget config: lowWatermark %d exceeds highWatermark %d", cfg.LowWatermark, cfg.HighWatermark)
	}
	return cfg, nil
}
