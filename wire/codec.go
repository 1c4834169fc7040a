// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire provides the transaction payload encoding shared by
// every proxy: a length-prefixed byte buffer (Parcel) with primitive
// read/write methods, and a CBOR mode used for anything richer than a
// scalar or a string.
//
// CBOR uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. The same
// logical value always produces identical bytes, which matters for the
// transaction-frame recorder's checksums.
package wire

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// A transaction may carry a bare map with no schema attached
		// (e.g. Dump's key/value section); decode those into
		// map[string]any rather than CBOR's default
		// map[interface{}]interface{}, so callers can use ordinary
		// Go map indexing without a type assertion on every key.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR encodes v using Core Deterministic Encoding.
func MarshalCBOR(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalCBOR decodes CBOR data into v.
func UnmarshalCBOR(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
