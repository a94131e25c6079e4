// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleEntry struct {
	Key     string   `cbor:"key"`
	Inputs  []string `cbor:"inputs,omitempty"`
	Version int      `cbor:"version"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleEntry{Key: "gnw_ball", Inputs: []string{"rom/ball.bin"}, Version: 1}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Key != original.Key || decoded.Version != original.Version ||
		len(decoded.Inputs) != 1 || decoded.Inputs[0] != original.Inputs[0] {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministicMapOrder(t *testing.T) {
	first, err := Marshal(map[string]int{"zeta": 1, "alpha": 2, "mid": 3})
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(map[string]int{"mid": 3, "alpha": 2, "zeta": 1})
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestUnmarshalRejectsDuplicateKeys(t *testing.T) {
	// {"key": "a", "key": "b"}
	data := []byte{0xa2, 0x63, 'k', 'e', 'y', 0x61, 'a', 0x63, 'k', 'e', 'y', 0x61, 'b'}
	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err == nil {
		t.Error("Unmarshal should reject duplicate map keys")
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	data, err := Marshal(sampleEntry{Key: "gnw_ball", Version: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleEntry
	if err := Unmarshal(data[:len(data)-2], &decoded); err == nil {
		t.Error("Unmarshal should fail on truncated input")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(sampleEntry{Key: "gnw_ball", Version: 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	text, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(text, `"gnw_ball"`) {
		t.Errorf("Diagnose output %q does not mention the key", text)
	}
}
