// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	compressible := []byte(strings.Repeat("segment_info 256 128 1 0 320 240\n", 200))
	random := make([]byte, 512)
	for i := range random {
		random[i] = byte(i*131 + i/7)
	}

	tests := []struct {
		name string
		data []byte
		tag  Tag
	}{
		{"none", compressible, None},
		{"lz4", compressible, LZ4},
		{"zstd", compressible, Zstd},
		{"lz4 short", []byte("ab"), LZ4},
		{"zstd empty", nil, Zstd},
		{"lz4 mixed", random, LZ4},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			framed, err := Frame(test.data, test.tag)
			if err != nil {
				t.Fatalf("Frame: %v", err)
			}
			got, err := Unframe(framed)
			if err != nil {
				t.Fatalf("Unframe: %v", err)
			}
			if !bytes.Equal(got, test.data) {
				t.Errorf("round-trip mismatch: got %d bytes, want %d", len(got), len(test.data))
			}
		})
	}
}

func TestFrameCompressesRepetitiveData(t *testing.T) {
	data := []byte(strings.Repeat("abcdefgh", 1000))
	for _, tag := range []Tag{LZ4, Zstd} {
		framed, err := Frame(data, tag)
		if err != nil {
			t.Fatalf("Frame(%s): %v", tag, err)
		}
		if Tag(framed[0]) != tag {
			t.Errorf("Frame(%s) stored tag %s", tag, Tag(framed[0]))
		}
		if len(framed) >= len(data) {
			t.Errorf("Frame(%s) produced %d bytes from %d", tag, len(framed), len(data))
		}
	}
}

func TestFrameFallsBackToNone(t *testing.T) {
	framed, err := Frame([]byte("x"), Zstd)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if Tag(framed[0]) != None {
		t.Errorf("tag = %s, want none for incompressible input", Tag(framed[0]))
	}
}

func TestUnframeRejectsCorruption(t *testing.T) {
	valid, err := Frame([]byte(strings.Repeat("z", 400)), Zstd)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}

	tests := []struct {
		name   string
		framed []byte
	}{
		{"empty", nil},
		{"one byte", []byte{0}},
		{"unknown tag", []byte{9, 1, 'a'}},
		{"length mismatch", []byte{0, 5, 'a'}},
		{"truncated zstd", valid[:len(valid)-3]},
		{"oversized claim", []byte{0, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Unframe(test.framed); err == nil {
				t.Error("Unframe should fail")
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	for _, tag := range []Tag{None, LZ4, Zstd} {
		parsed, err := ParseTag(tag.String())
		if err != nil {
			t.Fatalf("ParseTag(%q): %v", tag.String(), err)
		}
		if parsed != tag {
			t.Errorf("ParseTag(%q) = %s", tag.String(), parsed)
		}
	}
	if _, err := ParseTag("brotli"); err == nil {
		t.Error("ParseTag should reject unknown names")
	}
}
