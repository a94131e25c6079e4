// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package raster

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Layer is one rasterized segment file.
type Layer struct {
	// Name is the file's base name, unique within a title.
	Name   string
	Path   string
	ID     [3]uint8
	Color  uint8
	Screen int
}

// LayerName returns the file name for a layer. A zero color is left
// out unless withColor is set.
func LayerName(id [3]uint8, color uint8, withColor bool, screen int) string {
	z := strconv.Itoa(int(id[2]))
	if withColor || color != 0 {
		z += "_" + strconv.Itoa(int(color))
	}
	return fmt.Sprintf("%d.%d.%s.%d.png", id[0], id[1], z, screen)
}

// ParseLayerName parses a layer file name.
func ParseLayerName(name string) (Layer, error) {
	stem, ok := strings.CutSuffix(name, ".png")
	if !ok {
		return Layer{}, fmt.Errorf("layer %q is not a .png file", name)
	}
	parts := strings.Split(stem, ".")
	if len(parts) != 4 {
		return Layer{}, fmt.Errorf("layer %q: want <x>.<y>.<z>[_<color>].<screen>.png", name)
	}

	layer := Layer{Name: name}
	zPart, colorPart, hasColor := strings.Cut(parts[2], "_")
	for index, text := range []string{parts[0], parts[1], zPart} {
		value, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return Layer{}, fmt.Errorf("layer %q: segment id %q: %w", name, text, err)
		}
		layer.ID[index] = uint8(value)
	}
	if hasColor {
		value, err := strconv.ParseUint(colorPart, 10, 8)
		if err != nil {
			return Layer{}, fmt.Errorf("layer %q: color %q: %w", name, colorPart, err)
		}
		layer.Color = uint8(value)
	}
	screen, err := strconv.Atoi(parts[3])
	if err != nil || screen < 0 {
		return Layer{}, fmt.Errorf("layer %q: bad screen %q", name, parts[3])
	}
	layer.Screen = screen
	return layer, nil
}

// ReadLayers returns every layer in directory, ordered by screen and
// then by file name. Files that are not PNGs are ignored.
func ReadLayers(directory string) ([]Layer, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("reading layers: %w", err)
	}
	var layers []Layer
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		layer, err := ParseLayerName(entry.Name())
		if err != nil {
			return nil, err
		}
		layer.Path = filepath.Join(directory, entry.Name())
		layers = append(layers, layer)
	}
	slices.SortFunc(layers, func(a, b Layer) int {
		return cmp.Or(cmp.Compare(a.Screen, b.Screen), strings.Compare(a.Name, b.Name))
	})
	return layers, nil
}
