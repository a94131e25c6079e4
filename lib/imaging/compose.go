// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	// Console and background photos may be JPEG.
	_ "image/jpeg"

	"golang.org/x/image/draw"

	"github.com/retrovalou/yokoi/lib/geom"
)

// Piece is an image placed in an atlas at a top-left position.
type Piece struct {
	Image image.Image
	At    image.Point
}

// Compose draws pieces onto a transparent canvas of the given size.
// Pieces replace what is under them.
func Compose(size geom.Size, pieces []Piece) (*image.NRGBA, error) {
	canvas := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for index, piece := range pieces {
		bounds := piece.Image.Bounds()
		target := image.Rectangle{Min: piece.At, Max: piece.At.Add(bounds.Size())}
		if !target.In(canvas.Bounds()) {
			return nil, fmt.Errorf("piece %d at %v does not fit the %v canvas", index, target, size)
		}
		draw.Draw(canvas, target, piece.Image, bounds.Min, draw.Src)
	}
	return canvas, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buffer, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buffer.Bytes(), nil
}

// Load decodes the image file at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}
