// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"image"

	"github.com/retrovalou/yokoi/lib/geom"
)

// Segment is one rasterized layer reduced to its opaque area.
type Segment struct {
	// Image is the cropped, whitened tile.
	Image *image.NRGBA

	// Origin is where Image's top-left corner sat in the transformed
	// layer.
	Origin image.Point

	// Screen is the size of the transformed layer, which is the
	// logical screen size for this title.
	Screen geom.Size
}

// PrepareSegment transforms a layer and crops it to its opaque pixels.
// A fully transparent layer yields its top-left pixel.
func PrepareSegment(layer image.Image, fit Fit) (Segment, error) {
	transformed, err := Transform(layer, fit)
	if err != nil {
		return Segment{}, err
	}
	bounds, ok := OpaqueBounds(transformed)
	if !ok {
		bounds = image.Rect(0, 0, 1, 1)
	}
	tile := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := range bounds.Dy() {
		source := transformed.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		target := tile.PixOffset(0, y)
		copy(tile.Pix[target:target+4*bounds.Dx()], transformed.Pix[source:source+4*bounds.Dx()])
	}
	Whiten(tile)
	size := transformed.Bounds().Size()
	return Segment{
		Image:  tile,
		Origin: bounds.Min,
		Screen: geom.Sz(size.X, size.Y),
	}, nil
}

// PrepareBackground scales a background photo to a screen and derives
// its alpha. screen is the final, post-rotation screen size.
func PrepareBackground(photo image.Image, screen geom.Size, rotate bool, fondBright, alphaBright float64) (*image.NRGBA, error) {
	box := screen
	if rotate {
		box = box.Swap()
	}
	scaled, err := Transform(photo, Fit{Size: box, Mirror: true, Rotate: rotate})
	if err != nil {
		return nil, err
	}
	return MakeAlpha(scaled, fondBright, alphaBright), nil
}

// PrepareMask scales a mask title's background to a screen and
// brightens it, ready for [Tint].
func PrepareMask(photo image.Image, screen geom.Size, rotate bool, fondBright float64) (*image.NRGBA, error) {
	box := screen
	if rotate {
		box = box.Swap()
	}
	scaled, err := Transform(photo, Fit{Size: box, Mirror: true, Rotate: rotate})
	if err != nil {
		return nil, err
	}
	return Brighten(scaled, fondBright), nil
}

// ConsoleCrop returns the centered crop that gives an image of size
// source the aspect ratio of target.
func ConsoleCrop(source, target geom.Size) Crop {
	targetRatio := float64(target.Width) / float64(target.Height)
	sourceRatio := float64(source.Width) / float64(source.Height)
	if sourceRatio > targetRatio {
		keep := int(float64(source.Height) * targetRatio)
		side := float64(source.Width-keep) / 2 / float64(source.Width)
		return Crop{Left: side, Right: side}
	}
	keep := int(float64(source.Width) / targetRatio)
	side := float64(source.Height-keep) / 2 / float64(source.Height)
	return Crop{Top: side, Bottom: side}
}

// PrepareConsole center-crops a console photo to the target aspect
// ratio and scales it to fit target.
func PrepareConsole(photo image.Image, target geom.Size) (*image.NRGBA, error) {
	size := photo.Bounds().Size()
	return Transform(photo, Fit{
		Size:      target,
		KeepRatio: true,
		Crop:      ConsoleCrop(geom.Sz(size.X, size.Y), target),
		Mirror:    true,
	})
}
