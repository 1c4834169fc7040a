// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpctransport is a reference implementation of transport.Session
// over a WebRTC data channel.
//
// A Session wraps one already-established, detached data channel (an
// io.ReadWriteCloser, matching what pion's DataChannel.Detach returns)
// and multiplexes Transact calls and one-way SendDecStrong notifications
// over it with a length-prefixed frame format. Establishing the
// underlying PeerConnection — SDP offer/answer signaling and ICE
// gathering — is out of scope for this package; callers construct the
// data channel however they see fit (direct pion API, a signaling
// server, or a net.Pipe in tests) and hand the detached channel to New.
//
// Each RPC address is a 64-bit value derived from a random UUID's low
// eight bytes, using google/uuid the way node/session identifiers are
// minted elsewhere in this codebase's ecosystem.
package rpctransport
