// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to name under directory, creating parent
// directories as needed, and returns the full path.
func WriteFile(t *testing.T, directory, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(directory, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// WritePNG encodes img as a PNG at name under directory and returns
// the full path.
func WritePNG(t *testing.T, directory, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(directory, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory for %s: %v", name, err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", name, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("encoding %s: %v", name, err)
	}
	return path
}

// Layer returns a width x height transparent RGBA image with each of
// the given rectangles filled opaque white.
func Layer(width, height int, opaque ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, rect := range opaque {
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return img
}
