// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the Core Deterministic encoder.
var encMode cbor.EncMode

// decMode rejects duplicate map keys so a hand-edited or corrupt cache
// entry fails to decode instead of silently picking one value. Unknown
// fields are ignored: an older binary can still read a newer entry far
// enough to see that its schema version differs.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: 32,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value. Decoding into a
// map[string]RawMessage splits a struct into its encoded fields.
type RawMessage = cbor.RawMessage

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for
// data. The CLI uses it to dump cache entries.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
