// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package raster

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
)

// Fake is a [Rasterizer] that writes layers from memory. Layers maps
// an input path to the layer images it produces, keyed by file name.
// An input missing from Layers fails with [ErrToolFailed].
type Fake struct {
	Layers map[string]map[string]image.Image

	mu       sync.Mutex
	requests []Request
}

// Rasterize writes the configured layers for each request.
func (f *Fake) Rasterize(ctx context.Context, requests []Request) error {
	f.mu.Lock()
	f.requests = append(f.requests, requests...)
	f.mu.Unlock()

	for _, request := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}
		layers, ok := f.Layers[request.Input]
		if !ok {
			return fmt.Errorf("%w: no layers for %s (stderr: cannot open input)", ErrToolFailed, request.Input)
		}
		if err := os.MkdirAll(request.Output, 0o755); err != nil {
			return err
		}
		for name, img := range layers {
			if err := writePNG(filepath.Join(request.Output, name), img); err != nil {
				return err
			}
		}
	}
	return nil
}

// Requests returns every request received so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return file.Close()
}
