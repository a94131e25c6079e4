// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"image"
	"math"
)

// Thresholds for deriving background alpha from brightness. Pixels
// brighter than transparentLevel in every channel vanish; pixels with
// a channel darker than opaqueLevel keep their alpha; the band between
// fades linearly.
const (
	transparentLevel = 170
	opaqueLevel      = 100
)

// OpaqueBounds returns the smallest rectangle holding every pixel with
// non-zero alpha. ok is false when the image is fully transparent.
func OpaqueBounds(img *image.NRGBA) (bounds image.Rectangle, ok bool) {
	region := img.Bounds()
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			if img.Pix[img.PixOffset(x, y)+3] == 0 {
				continue
			}
			pixel := image.Rect(x, y, x+1, y+1)
			if !ok {
				bounds, ok = pixel, true
				continue
			}
			bounds = bounds.Union(pixel)
		}
	}
	return bounds, ok
}

// Brighten scales the color channels by factor, leaving alpha alone.
func Brighten(img *image.NRGBA, factor float64) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	for offset := 0; offset < len(out.Pix); offset += 4 {
		for channel := range 3 {
			scaled := math.Round(float64(out.Pix[offset+channel]) * factor)
			out.Pix[offset+channel] = clamp8(int(scaled))
		}
	}
	return out
}

// Whiten sets every color channel to white, keeping alpha. Segment
// tiles are tinted at runtime, so only their coverage matters.
func Whiten(img *image.NRGBA) {
	for offset := 0; offset < len(img.Pix); offset += 4 {
		img.Pix[offset], img.Pix[offset+1], img.Pix[offset+2] = 255, 255, 255
	}
}

// MakeAlpha turns a background photo into a translucent overlay. The
// colors come from the photo brightened by fondBright; the alpha comes
// from the photo brightened by alphaBright, where light paper becomes
// transparent and printed areas stay opaque.
func MakeAlpha(img *image.NRGBA, fondBright, alphaBright float64) *image.NRGBA {
	colors := Brighten(img, fondBright)
	lit := Brighten(img, alphaBright)
	for offset := 0; offset < len(lit.Pix); offset += 4 {
		red, green, blue, alpha := lit.Pix[offset], lit.Pix[offset+1], lit.Pix[offset+2], lit.Pix[offset+3]
		darkest := min(red, green, blue)
		switch {
		case red > transparentLevel && green > transparentLevel && blue > transparentLevel:
			alpha = 0
		case darkest < opaqueLevel:
			// Printed area keeps its alpha.
		default:
			fade := 255 * (transparentLevel - int(darkest)) / (transparentLevel - opaqueLevel)
			alpha = min(uint8(fade), alpha)
		}
		colors.Pix[offset+3] = alpha
	}
	return colors
}

// Tint copies colors from background into the color channels of tile,
// where tile's top-left corner sits at origin in background. Pixels
// outside the background keep their color.
func Tint(tile, background *image.NRGBA, origin image.Point) {
	bounds := tile.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			at := origin.Add(image.Pt(x-bounds.Min.X, y-bounds.Min.Y))
			if !at.In(background.Bounds()) {
				continue
			}
			source := background.PixOffset(at.X, at.Y)
			target := tile.PixOffset(x, y)
			copy(tile.Pix[target:target+3], background.Pix[source:source+3])
		}
	}
}
