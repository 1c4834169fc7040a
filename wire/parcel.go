// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Parcel is a growable byte buffer with the primitive read/write
// methods every transaction payload needs. It implements
// transport.Data (as a write side handed to Object.Transact) and
// transport.Reply (as the destination a transport writes its response
// into) without importing the transport package — both interfaces are
// structurally satisfied.
type Parcel struct {
	buf []byte
	pos int
}

// NewParcel returns an empty Parcel ready for writing.
func NewParcel() *Parcel { return &Parcel{} }

// NewParcelFromBytes returns a Parcel positioned at the start of an
// existing byte slice, ready for reading.
func NewParcelFromBytes(data []byte) *Parcel { return &Parcel{buf: data} }

// Len reports the total number of bytes written to the parcel,
// regardless of the current read position.
func (p *Parcel) Len() int { return len(p.buf) }

// Bytes returns the parcel's full backing buffer.
func (p *Parcel) Bytes() []byte { return p.buf }

// SetBytes replaces the parcel's contents and resets the read position
// to the start, satisfying transport.Reply.
func (p *Parcel) SetBytes(data []byte) {
	p.buf = data
	p.pos = 0
}

// Remaining reports how many unread bytes are left.
func (p *Parcel) Remaining() int { return len(p.buf) - p.pos }

// WriteUint32 appends v in little-endian byte order.
func (p *Parcel) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	p.buf = append(p.buf, tmp[:]...)
}

// ReadUint32 consumes and returns the next 4 bytes as a little-endian
// uint32.
func (p *Parcel) ReadUint32() (uint32, error) {
	if p.Remaining() < 4 {
		return 0, fmt.Errorf("wire: short read for uint32: %d bytes remaining", p.Remaining())
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v, nil
}

// WriteString16 appends s as a UTF-16LE code unit count followed by
// its code units, matching binder's classic String16 wire shape.
func (p *Parcel) WriteString16(s string) {
	units := utf16.Encode([]rune(s))
	p.WriteUint32(uint32(len(units)))
	for _, u := range units {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], u)
		p.buf = append(p.buf, tmp[:]...)
	}
}

// ReadString16 consumes a String16-encoded string written by WriteString16.
func (p *Parcel) ReadString16() (string, error) {
	count, err := p.ReadUint32()
	if err != nil {
		return "", fmt.Errorf("wire: reading string16 length: %w", err)
	}
	need := int(count) * 2
	if p.Remaining() < need {
		return "", fmt.Errorf("wire: short read for string16: need %d bytes, have %d", need, p.Remaining())
	}
	units := make([]uint16, count)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(p.buf[p.pos:])
		p.pos += 2
	}
	return string(utf16.Decode(units)), nil
}

// WriteCBOR appends v CBOR-encoded, length-prefixed so ReadCBOR knows
// exactly how many bytes to consume without decoding twice.
func (p *Parcel) WriteCBOR(v any) error {
	data, err := MarshalCBOR(v)
	if err != nil {
		return fmt.Errorf("wire: encoding CBOR field: %w", err)
	}
	p.WriteUint32(uint32(len(data)))
	p.buf = append(p.buf, data...)
	return nil
}

// ReadCBOR decodes the next length-prefixed CBOR value written by
// WriteCBOR into v.
func (p *Parcel) ReadCBOR(v any) error {
	n, err := p.ReadUint32()
	if err != nil {
		return fmt.Errorf("wire: reading CBOR field length: %w", err)
	}
	if p.Remaining() < int(n) {
		return fmt.Errorf("wire: short read for CBOR field: need %d bytes, have %d", n, p.Remaining())
	}
	if err := UnmarshalCBOR(p.buf[p.pos:p.pos+int(n)], v); err != nil {
		return fmt.Errorf("wire: decoding CBOR field: %w", err)
	}
	p.pos += int(n)
	return nil
}
