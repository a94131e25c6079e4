// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package geom holds the two-integer size value shared by target
// profiles, title manifests, and record encoding.
//
// A Size is written as a two-element list everywhere it is serialized
// ([400, 240] in YAML and JSON, a two-element array in CBOR), matching
// how screen resolutions appear in hand-written manifests.
package geom

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Size is a width and height in pixels.
type Size struct {
	_      struct{} `cbor:",toarray"`
	Width  int
	Height int
}

// Sz constructs a Size.
func Sz(width, height int) Size {
	return Size{Width: width, Height: height}
}

// Scale multiplies both dimensions by factor.
func (s Size) Scale(factor int) Size {
	return Size{Width: s.Width * factor, Height: s.Height * factor}
}

// Swap returns the size with width and height exchanged.
func (s Size) Swap() Size {
	return Size{Width: s.Height, Height: s.Width}
}

// Positive reports whether both dimensions are greater than zero.
func (s Size) Positive() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

func (s *Size) fromPair(pair []int) error {
	if len(pair) != 2 {
		return fmt.Errorf("size must be a [width, height] pair, got %d values", len(pair))
	}
	s.Width, s.Height = pair[0], pair[1]
	return nil
}

// UnmarshalYAML accepts a two-element sequence.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	var pair []int
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	if err := s.fromPair(pair); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

// MarshalYAML emits a two-element flow sequence.
func (s Size) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, value := range []int{s.Width, s.Height} {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: fmt.Sprint(value),
		})
	}
	return node, nil
}

// UnmarshalJSON accepts a two-element array.
func (s *Size) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	return s.fromPair(pair)
}

// MarshalJSON emits a two-element array.
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal([]int{s.Width, s.Height})
}
