// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/retrovalou/yokoi/lib/geom"
)

// alphaFloor is the lowest alpha kept; anything below becomes zero.
const alphaFloor = 30

// Crop trims fractions of the source image before scaling. Negative
// values extend the canvas with transparent pixels instead.
type Crop struct {
	Left, Right float64
	Top, Bottom float64
}

// Fit describes how [Transform] maps an image into a target box.
type Fit struct {
	// Size is the box the result must fit in, before rotation.
	Size geom.Size

	// KeepRatio shrinks one side of Size so the image keeps its aspect
	// ratio. Ratio, when non-zero, forces that aspect ratio instead.
	KeepRatio bool
	Ratio     float64

	Crop Crop

	// Mirror flips left to right; Rotate then turns the image a
	// quarter clockwise and swaps the box.
	Mirror bool
	Rotate bool

	// Sharpen applies a light unsharp mask after scaling.
	Sharpen bool
}

// Transform crops, mirrors, rotates, and scales src according to fit.
func Transform(src image.Image, fit Fit) (*image.NRGBA, error) {
	img := toNRGBA(src)
	clearLowAlpha(img)

	img, err := crop(img, fit.Crop, fit.Ratio)
	if err != nil {
		return nil, err
	}
	if fit.Mirror {
		img = mirror(img)
	}
	box, ratio := fit.Size, fit.Ratio
	if fit.Rotate {
		img = rotateClockwise(img)
		box = box.Swap()
		if ratio != 0 {
			ratio = 1 / ratio
		}
	}

	width, height := box.Width, box.Height
	switch {
	case ratio != 0:
		height = min(height, int(float64(width)/ratio))
		width = min(width, int(float64(height)*ratio))
	case fit.KeepRatio:
		bounds := img.Bounds()
		imageRatio := float64(bounds.Dx()) / float64(bounds.Dy())
		height = min(height, int(float64(width)/imageRatio))
		width = min(width, int(float64(height)*imageRatio))
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("scaling %v into %v leaves no pixels", img.Bounds().Size(), box)
	}

	scaled := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	if fit.Sharpen {
		scaled = sharpen(scaled)
	}
	clearLowAlpha(scaled)
	return scaled, nil
}

func crop(img *image.NRGBA, cut Crop, ratio float64) (*image.NRGBA, error) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	left := int(cut.Left * float64(width))
	right := int(cut.Right * float64(width))
	var top, bottom int
	if ratio != 0 {
		top = int(cut.Top * float64(width) / ratio)
		bottom = int(cut.Bottom * float64(width) / ratio)
	} else {
		top = int(cut.Top * float64(height))
		bottom = int(cut.Bottom * float64(height))
	}
	if left == 0 && right == 0 && top == 0 && bottom == 0 {
		return img, nil
	}

	keptWidth := width - max(left, 0) - max(right, 0)
	keptHeight := height - max(top, 0) - max(bottom, 0)
	if keptWidth <= 0 || keptHeight <= 0 {
		return nil, fmt.Errorf("crop %+v removes the whole %dx%d image", cut, width, height)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0,
		keptWidth+max(-left, 0)+max(-right, 0),
		keptHeight+max(-top, 0)+max(-bottom, 0)))
	origin := image.Pt(max(-left, 0), max(-top, 0))
	source := image.Pt(max(left, 0), max(top, 0)).Add(img.Bounds().Min)
	draw.Draw(canvas, image.Rectangle{Min: origin, Max: origin.Add(image.Pt(keptWidth, keptHeight))}, img, source, draw.Src)
	return canvas, nil
}

func mirror(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			out.SetNRGBA(width-1-x, y, img.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

func rotateClockwise(img *image.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, height, width))
	for y := range width {
		for x := range height {
			out.SetNRGBA(x, y, img.NRGBAAt(bounds.Min.X+y, bounds.Min.Y+height-1-x))
		}
	}
	return out
}

// sharpen is an unsharp mask with a 3x3 Gaussian blur, 50% strength,
// and a threshold of 3 levels, applied to the color channels.
func sharpen(img *image.NRGBA) *image.NRGBA {
	const (
		percent   = 50
		threshold = 3
	)
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	copy(out.Pix, img.Pix)
	kernel := [3]int{1, 2, 1}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var sums [3]int
			weight := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					point := image.Pt(x+dx, y+dy)
					if !point.In(bounds) {
						continue
					}
					k := kernel[dx+1] * kernel[dy+1]
					offset := img.PixOffset(point.X, point.Y)
					for channel := range 3 {
						sums[channel] += k * int(img.Pix[offset+channel])
					}
					weight += k
				}
			}
			offset := img.PixOffset(x, y)
			for channel := range 3 {
				original := int(img.Pix[offset+channel])
				difference := original - (sums[channel]+weight/2)/weight
				if difference > threshold || difference < -threshold {
					out.Pix[offset+channel] = clamp8(original + difference*percent/100)
				}
			}
		}
	}
	return out
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	img := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(img, img.Bounds(), src, bounds.Min, draw.Src)
	return img
}

func clearLowAlpha(img *image.NRGBA) {
	for offset := 3; offset < len(img.Pix); offset += 4 {
		if img.Pix[offset] < alphaFloor {
			img.Pix[offset] = 0
		}
	}
}

func clamp8(value int) uint8 {
	return uint8(min(max(value, 0), 255))
}
