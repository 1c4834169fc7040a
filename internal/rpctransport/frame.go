// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpctransport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/openbinder/binderproxy/wire"
)

type frameKind uint8

const (
	frameRequest frameKind = iota
	frameReply
	frameDecStrong
)

// frame is the CBOR-encoded header written after the 4-byte length
// prefix. Request payload and reply payload travel as raw bytes inside
// the same struct to avoid a second length prefix.
type frame struct {
	Kind      frameKind
	RequestID uint64
	Address   uint64
	Code      uint32
	Flags     uint32
	Status    int32
	Payload   []byte
}

// writeFrame writes f to w as [4-byte big-endian length][CBOR body].
func writeFrame(w io.Writer, f frame) error {
	body, err := wire.MarshalCBOR(f)
	if err != nil {
		return fmt.Errorf("rpctransport: encoding frame: %w", err)
	}
	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(len(body)))
	if _, err := w.Write(lengthPrefix[:]); err != nil {
		return fmt.Errorf("rpctransport: writing frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("rpctransport: writing frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed frame from r.
func readFrame(r io.Reader) (frame, error) {
	var lengthPrefix [4]byte
	if _, err := io.ReadFull(r, lengthPrefix[:]); err != nil {
		return frame{}, err
	}
	length := binary.BigEndian.Uint32(lengthPrefix[:])
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return frame{}, fmt.Errorf("rpctransport: reading frame body: %w", err)
	}
	var f frame
	if err := wire.UnmarshalCBOR(body, &f); err != nil {
		return frame{}, fmt.Errorf("rpctransport: decoding frame: %w", err)
	}
	return f, nil
}
