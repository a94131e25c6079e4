// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes content digests of build inputs.
//
// The build cache decides whether a title can be reused by comparing
// digests of every referenced input file (ROM, melody, artwork,
// backgrounds, console photo). A digest is a 32-byte BLAKE3 keyed hash
// over the full file bytes. The key is a fixed ASCII domain string, so
// input digests can never be confused with a plain BLAKE3 of the same
// bytes computed somewhere else.
//
// The API surface is small:
//
//   - [File] streams a file through the hasher with constant memory
//   - [Reader] hashes any io.Reader
//   - [Bytes] hashes an in-memory buffer
//   - [Digest.String] and [Parse] convert to and from hex
//
// This package has no dependencies on other Yokoi packages.
package digest
