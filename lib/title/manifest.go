// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package title

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/retrovalou/yokoi/lib/geom"
)

// Manifest is the list of titles a build considers, in build order.
type Manifest struct {
	Titles []Entry `yaml:"titles" json:"titles"`
}

// Entry is one title as written in the manifest. Pointer fields
// distinguish "absent" from the zero value so [Resolve] can apply
// defaults.
type Entry struct {
	Key         string `yaml:"key" json:"key"`
	Ref         string `yaml:"ref" json:"ref"`
	DisplayName string `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Date        string `yaml:"date,omitempty" json:"date,omitempty"`

	ROM        string   `yaml:"rom" json:"rom"`
	Melody     string   `yaml:"melody,omitempty" json:"melody,omitempty"`
	Visual     []string `yaml:"visual" json:"visual"`
	Background []string `yaml:"background,omitempty" json:"background,omitempty"`
	Console    string   `yaml:"console,omitempty" json:"console,omitempty"`

	Rotate            *bool    `yaml:"rotate,omitempty" json:"rotate,omitempty"`
	Mask              *bool    `yaml:"mask,omitempty" json:"mask,omitempty"`
	ColorSegment      *bool    `yaml:"color_segment,omitempty" json:"color_segment,omitempty"`
	TwoInOneScreen    *bool    `yaml:"two_in_one_screen,omitempty" json:"two_in_one_screen,omitempty"`
	AlphaBright       *float64 `yaml:"alpha_bright,omitempty" json:"alpha_bright,omitempty"`
	FondBright        *float64 `yaml:"fond_bright,omitempty" json:"fond_bright,omitempty"`
	Shadow            *bool    `yaml:"shadow,omitempty" json:"shadow,omitempty"`
	BackgroundInFront *bool    `yaml:"background_in_front,omitempty" json:"background_in_front,omitempty"`
	Camera            *bool    `yaml:"camera,omitempty" json:"camera,omitempty"`

	// TransformVisual holds one [[width, cutLeft, cutRight],
	// [height, cutTop, cutBottom]] crop per screen, in source units.
	TransformVisual [][][]int `yaml:"transform_visual,omitempty" json:"transform_visual,omitempty"`

	// SizeVisual holds one logical screen size per visual.
	SizeVisual []geom.Size `yaml:"size_visual,omitempty" json:"size_visual,omitempty"`

	// Manufacturer accepts an integer id or a numeric string.
	Manufacturer any `yaml:"manufacturer,omitempty" json:"manufacturer,omitempty"`
}

// LoadManifest reads a manifest file. Files ending in .json or .jsonc
// are parsed as JSON with comments and trailing commas; anything else
// is YAML. Unknown fields are rejected in both formats so typos do
// not silently fall back to defaults.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	manifest, err := ParseManifest(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return manifest, nil
}

// ParseManifest parses manifest bytes. extension selects the format
// the same way [LoadManifest] does.
func ParseManifest(data []byte, extension string) (*Manifest, error) {
	var manifest Manifest
	switch strings.ToLower(extension) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&manifest); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&manifest); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
	}

	seen := make(map[string]bool, len(manifest.Titles))
	for index, entry := range manifest.Titles {
		if entry.Key == "" {
			return nil, fmt.Errorf("titles[%d]: key is required", index)
		}
		if seen[entry.Key] {
			return nil, fmt.Errorf("titles[%d]: duplicate key %q", index, entry.Key)
		}
		seen[entry.Key] = true
	}
	return &manifest, nil
}

// Find returns the entry with the given key.
func (m *Manifest) Find(key string) (Entry, bool) {
	for _, entry := range m.Titles {
		if entry.Key == key {
			return entry, true
		}
	}
	return Entry{}, false
}

// Keys returns every title key in manifest order.
func (m *Manifest) Keys() []string {
	keys := make([]string, len(m.Titles))
	for index, entry := range m.Titles {
		keys[index] = entry.Key
	}
	return keys
}

// Rebase makes every relative input path in the manifest relative to
// directory instead of the working directory.
func (m *Manifest) Rebase(directory string) {
	rebase := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(directory, path)
	}
	for index := range m.Titles {
		entry := &m.Titles[index]
		entry.ROM = rebase(entry.ROM)
		entry.Melody = rebase(entry.Melody)
		entry.Console = rebase(entry.Console)
		for position := range entry.Visual {
			entry.Visual[position] = rebase(entry.Visual[position])
		}
		for position := range entry.Background {
			entry.Background[position] = rebase(entry.Background[position])
		}
	}
}
