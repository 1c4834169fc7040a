// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

var (
	transcriptEncoderOnce sync.Once
	transcriptEncoder     *zstd.Encoder
)

func encoder() *zstd.Encoder {
	transcriptEncoderOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic("recording: zstd encoder initialization failed: " + err.Error())
		}
		transcriptEncoder = enc
	})
	return transcriptEncoder
}

// transcriptDomainKey separates this checksum's domain from any other
// BLAKE3 usage in the process, so identical bytes hashed for a
// different purpose never collide with a transcript checksum.
var transcriptDomainKey = [32]byte{
	'b', 'i', 'n', 'd', 'e', 'r', 'p', 'r', 'o', 'x', 'y', '.',
	'r', 'e', 'c', 'o', 'r', 'd', 'i', 'n', 'g', '.', 't', 'r', 'a', 'n', 's', 'c', 'r', 'i', 'p', 't',
}

// Export renders every retained frame as a one-line-per-frame
// human-readable transcript ("code=<n> status=<n> request=<bytes>B
// reply=<bytes>B"), zstd-compresses it, and returns the compressed
// bytes alongside a BLAKE3 checksum (hex-encoded) of the uncompressed
// transcript, so two exports can be compared for equality without
// decompressing either.
func (r *Recorder) Export() (compressed []byte, checksum string, err error) {
	frames, err := r.Frames()
	if err != nil {
		return nil, "", err
	}

	var transcript strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&transcript, "code=%d status=%d request=%dB reply=%dB\n",
			f.Code, f.Status, f.RequestBytes, f.ReplyBytes)
	}

	raw := []byte(transcript.String())
	compressed = encoder().EncodeAll(raw, nil)

	hasher, err := blake3.NewKeyed(transcriptDomainKey[:])
	if err != nil {
		return nil, "", fmt.Errorf("recording: blake3 init: %w", err)
	}
	hasher.Write(raw)
	checksum = hex.EncodeToString(hasher.Sum(nil))

	return compressed, checksum, nil
}
