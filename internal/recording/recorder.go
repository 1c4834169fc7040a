// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recording

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"
)

// Frame is one captured transaction, decompressed for the caller.
type Frame struct {
	Code         uint32
	Status       int32
	RequestBytes int
	ReplyBytes   int
}

type compressedFrame struct {
	code              uint32
	status            int32
	requestCompressed []byte
	requestSize       int
	replyCompressed   []byte
	replySize         int
}

// Recorder captures transaction frames while active and holds them in
// an in-memory ring, matching the "recording is a debug aid, not a
// durable log" scope of the operation it implements: it does not
// persist across process restarts.
type Recorder struct {
	mu       sync.Mutex
	active   bool
	frames   []compressedFrame
	capacity int

	frameCount atomic.Uint64
}

// New creates a Recorder retaining at most capacity frames; once full,
// the oldest frame is dropped to make room for the newest (a ring, not
// an unbounded log).
func New(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Recorder{capacity: capacity}
}

// Start begins capturing. Safe to call while already active (no-op).
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
}

// Stop ends capturing without discarding already-captured frames.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
}

// Active reports whether the recorder is currently capturing.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Record captures one transaction's request/reply bytes if the recorder
// is active. It is a no-op otherwise, so callers can invoke it
// unconditionally on every transaction without checking Active first.
func (r *Recorder) Record(code uint32, status int32, request, reply []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}

	cf := compressedFrame{code: code, status: status}
	cf.requestCompressed, cf.requestSize = compressLZ4Lenient(request)
	cf.replyCompressed, cf.replySize = compressLZ4Lenient(reply)

	r.frames = append(r.frames, cf)
	if len(r.frames) > r.capacity {
		r.frames = r.frames[len(r.frames)-r.capacity:]
	}
	r.frameCount.Add(1)
}

// compressLZ4Lenient compresses data, falling back to storing it
// uncompressed when LZ4 determines the input is incompressible (its
// documented behavior for high-entropy or very small inputs).
func compressLZ4Lenient(data []byte) (compressed []byte, originalSize int) {
	if len(data) == 0 {
		return nil, 0
	}
	bound := lz4.CompressBlockBound(len(data))
	dst := make([]byte, bound)
	written, err := lz4.CompressBlock(data, dst, nil)
	if err != nil || written == 0 || written >= len(data) {
		stored := make([]byte, len(data))
		copy(stored, data)
		return stored, -len(data) // negative size marks "stored uncompressed"
	}
	return dst[:written], len(data)
}

func decompressLZ4Lenient(compressed []byte, originalSize int) ([]byte, error) {
	if compressed == nil {
		return nil, nil
	}
	if originalSize < 0 {
		return compressed, nil
	}
	dst := make([]byte, originalSize)
	n, err := lz4.UncompressBlock(compressed, dst)
	if err != nil {
		return nil, fmt.Errorf("recording: lz4 decompress: %w", err)
	}
	return dst[:n], nil
}

// Frames returns the summary (code, status, byte lengths) of every
// currently-retained frame, decompressing lazily so a caller that only
// wants counts does not pay for full payload reconstruction.
func (r *Recorder) Frames() ([]Frame, error) {
	r.mu.Lock()
	captured := make([]compressedFrame, len(r.frames))
	copy(captured, r.frames)
	r.mu.Unlock()

	out := make([]Frame, 0, len(captured))
	for _, cf := range captured {
		requestLen := absInt(cf.requestSize)
		replyLen := absInt(cf.replySize)
		out = append(out, Frame{
			Code:         cf.code,
			Status:       cf.status,
			RequestBytes: requestLen,
			ReplyBytes:   replyLen,
		})
	}
	return out, nil
}

// FrameCount returns the total number of frames ever recorded,
// including ones since evicted from the ring.
func (r *Recorder) FrameCount() uint64 {
	return r.frameCount.Load()
}

// Payload decompresses and returns the request and reply bytes for the
// frame at index, one of the indices returned alongside Frames.
func (r *Recorder) Payload(index int) (request, reply []byte, err error) {
	r.mu.Lock()
	if index < 0 || index >= len(r.frames) {
		r.mu.Unlock()
		return nil, nil, fmt.Errorf("recording: frame index %d out of range", index)
	}
	cf := r.frames[index]
	r.mu.Unlock()

	request, err = decompressLZ4Lenient(cf.requestCompressed, cf.requestSize)
	if err != nil {
		return nil, nil, err
	}
	reply, err = decompressLZ4Lenient(cf.replyCompressed, cf.replySize)
	if err != nil {
		return nil, nil, err
	}
	return request, reply, nil
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
