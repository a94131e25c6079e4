// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress frames small blobs with an optional compression
// layer. The build cache uses it for entry files: one tag byte, the
// uncompressed length as a uvarint, then the payload.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies the compression algorithm used for a framed blob.
// Tags are the first byte of every cache entry file, so the values
// are on-disk constants.
type Tag uint8

const (
	// None stores the payload verbatim.
	None Tag = 0

	// LZ4 uses LZ4 block compression.
	LZ4 Tag = 1

	// Zstd uses zstd at the default level.
	Zstd Tag = 2
)

// maxFramedSize bounds the uncompressed length a frame may claim.
// Cache entries are a few kilobytes; anything near this limit is
// corruption.
const maxFramedSize = 64 << 20

// errIncompressible reports that the algorithm did not shrink the data.
var errIncompressible = errors.New("data is incompressible")

// String returns the configuration name of a tag.
func (tag Tag) String() string {
	switch tag {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseTag parses a tag from its configuration name.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, lz4, or zstd)", name)
	}
}

// Frame compresses data with the requested algorithm and prepends the
// frame header. When the algorithm does not reduce the size, the data
// is stored with [None] instead.
func Frame(data []byte, tag Tag) ([]byte, error) {
	payload, used, err := compressPayload(data, tag)
	if err != nil {
		return nil, err
	}
	header := make([]byte, 1, 1+binary.MaxVarintLen64+len(payload))
	header[0] = byte(used)
	header = binary.AppendUvarint(header, uint64(len(data)))
	return append(header, payload...), nil
}

// Unframe reverses [Frame]. It fails on unknown tags, truncated
// headers, and payloads whose decompressed length disagrees with the
// header.
func Unframe(framed []byte) ([]byte, error) {
	if len(framed) < 2 {
		return nil, fmt.Errorf("frame is %d bytes, too short for a header", len(framed))
	}
	tag := Tag(framed[0])
	size, n := binary.Uvarint(framed[1:])
	if n <= 0 {
		return nil, errors.New("frame has a malformed length")
	}
	if size > maxFramedSize {
		return nil, fmt.Errorf("frame claims %d bytes, limit is %d", size, maxFramedSize)
	}
	payload := framed[1+n:]
	expected := int(size)

	switch tag {
	case None:
		if len(payload) != expected {
			return nil, fmt.Errorf("uncompressed frame: size %d does not match header %d", len(payload), expected)
		}
		return payload, nil
	case LZ4:
		return decompressLZ4(payload, expected)
	case Zstd:
		return decompressZstd(payload, expected)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func compressPayload(data []byte, tag Tag) ([]byte, Tag, error) {
	var (
		compressed []byte
		err        error
	)
	switch tag {
	case None:
		return data, None, nil
	case LZ4:
		compressed, err = compressLZ4(data)
	case Zstd:
		compressed, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("unsupported compression tag: %d", tag)
	}
	if errors.Is(err, errIncompressible) {
		return data, None, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compressed, tag, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data) > math.MaxInt32 {
		return nil, errIncompressible
	}
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxFramedSize))
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(destination) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(destination), uncompressedSize)
	}
	return destination, nil
}
