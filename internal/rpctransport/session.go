// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpctransport

import (
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/openbinder/binderproxy/status"
	"github.com/openbinder/binderproxy/transport"
)

// NewAddress mints a fresh 64-bit RPC address from a random UUID's low
// eight bytes.
func NewAddress() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[8:16])
}

type pendingCall struct {
	replyCh chan frame
}

// Session multiplexes transactions and decStrong notifications over a
// single detached data channel. It implements transport.Session.
type Session struct {
	channel io.ReadWriteCloser

	maxIncomingThreads int

	requestCounter atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]*pendingCall
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// New wraps an already-open, detached data channel. maxIncomingThreads
// mirrors the session's configured inbound-call concurrency; Link
// refuses to register a death recipient on a Session configured with
// zero, matching a session that never services incoming calls.
func New(channel io.ReadWriteCloser, maxIncomingThreads int) *Session {
	s := &Session{
		channel:            channel,
		maxIncomingThreads: maxIncomingThreads,
		pending:            make(map[uint64]*pendingCall),
		closed:             make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Session) MaxIncomingThreads() int {
	return s.maxIncomingThreads
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return s.channel.Close()
}

func (s *Session) Transact(address uint64, code uint32, data transport.Data, reply transport.Reply, flags transport.Flags) status.Status {
	var payload []byte
	if data != nil {
		payload = data.Bytes()
	}

	requestID := s.requestCounter.Add(1)
	call := &pendingCall{replyCh: make(chan frame, 1)}

	s.mu.Lock()
	s.pending[requestID] = call
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, requestID)
		s.mu.Unlock()
	}()

	req := frame{
		Kind:      frameRequest,
		RequestID: requestID,
		Address:   address,
		Code:      code,
		Flags:     uint32(flags),
		Payload:   payload,
	}
	if err := s.writeFrameLocked(req); err != nil {
		return status.Transport
	}

	select {
	case resp := <-call.replyCh:
		if reply != nil {
			reply.SetBytes(resp.Payload)
		}
		return status.Status(resp.Status)
	case <-s.closed:
		return status.DeadPeer
	}
}

func (s *Session) SendDecStrong(address uint64) {
	_ = s.writeFrameLocked(frame{Kind: frameDecStrong, Address: address})
}

func (s *Session) writeFrameLocked(f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeFrame(s.channel, f)
}

// readLoop dispatches inbound frames until the channel closes. Reply
// frames complete the matching pending call; request and decStrong
// frames are inbound traffic this reference client does not service
// (a full peer would route them to a local object's Transact handler).
func (s *Session) readLoop() {
	for {
		f, err := readFrame(s.channel)
		if err != nil {
			s.closeOnce.Do(func() { close(s.closed) })
			s.failPending()
			return
		}
		if f.Kind != frameReply {
			continue
		}
		s.mu.Lock()
		call, ok := s.pending[f.RequestID]
		s.mu.Unlock()
		if ok {
			call.replyCh <- f
		}
	}
}

// failPending drops every in-flight call's bookkeeping once the channel
// has closed. It does not signal call.replyCh directly: Transact already
// selects on s.closed, which was closed by the caller before this runs.
func (s *Session) failPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.pending {
		delete(s.pending, id)
	}
}
