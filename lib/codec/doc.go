// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by every
// Yokoi package that persists internal state.
//
// Two serialization formats exist with a clear boundary:
//
//   - The YKP1 pack file is a hand-laid binary format (see lib/pack);
//     it is the public compatibility surface read by the runtime.
//   - Everything internal (build cache entries, cached pack metadata)
//     is CBOR through this package.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same logical value always produces identical bytes, which lets the
// build cache compare stored pack metadata byte for byte across runs.
//
//	data, err := codec.Marshal(entry)
//	err = codec.Unmarshal(data, &entry)
//
// Internal-only types use `cbor` struct tags. Types that are also
// printed as JSON by the CLI use `json` tags, which fxamacker/cbor
// falls back to when no `cbor` tag is present. Never put both tags on
// one field.
package codec
