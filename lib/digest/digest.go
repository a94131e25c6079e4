// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed hash of a file's content.
type Digest [32]byte

// inputDomainKey is the BLAKE3 key for input digests: the ASCII domain
// name zero-padded to 32 bytes. Changing it invalidates every cache
// entry ever written.
var inputDomainKey = [32]byte{
	'y', 'o', 'k', 'o', 'i', '.', 'b', 'u', 'i', 'l', 'd', '.',
	'i', 'n', 'p', 'u', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// File computes the digest of the file at path.
func File(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	result, err := Reader(file)
	if err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return result, nil
}

// Reader computes the digest of everything read from r.
func Reader(r io.Reader) (Digest, error) {
	hasher := newHasher()
	if _, err := io.Copy(hasher, r); err != nil {
		return Digest{}, err
	}
	var result Digest
	copy(result[:], hasher.Sum(nil))
	return result, nil
}

// Bytes computes the digest of data.
func Bytes(data []byte) Digest {
	hasher := newHasher()
	hasher.Write(data)
	var result Digest
	copy(result[:], hasher.Sum(nil))
	return result
}

// String returns the hex encoding used in cache entries and logs.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero value (no digest computed).
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Parse parses a 64-character hex string into a Digest.
func Parse(hexString string) (Digest, error) {
	var result Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return result, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(result) {
		return result, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(result))
	}
	copy(result[:], decoded)
	return result, nil
}

func newHasher() *blake3.Hasher {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(inputDomainKey[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}
