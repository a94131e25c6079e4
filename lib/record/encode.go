// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"math"

	"github.com/retrovalou/yokoi/lib/atlas"
	"github.com/retrovalou/yokoi/lib/geom"
)

// Segment flag bits in segment_info[3].
const (
	FlagMask           uint16 = 1 << 0
	FlagTwoInOneScreen uint16 = 1 << 1
)

// segmentInfoVersion is segment_info[2]. The runtime only knows 1.
const segmentInfoVersion = 1

// Tile is one rasterized segment as handed over by the rasterization
// step. Width and Height are unpadded; ScreenX and ScreenY are the
// segment's top-left corner in logical screen coordinates.
type Tile struct {
	Name    string
	ID      [3]uint8
	Color   uint8
	Screen  uint8
	ScreenX int
	ScreenY int
	Width   int
	Height  int
}

// Rects returns the padded packing rectangles for tiles, keyed by
// tile name.
func Rects(tiles []Tile, pad int) []atlas.Rect {
	rects := make([]atlas.Rect, len(tiles))
	for index, tile := range tiles {
		rects[index] = atlas.Rect{
			ID:     tile.Name,
			Width:  tile.Width + 2*pad,
			Height: tile.Height + 2*pad,
		}
	}
	return rects
}

// SegmentFlags builds segment_info[3].
func SegmentFlags(mask, twoInOneScreen bool) uint16 {
	var flags uint16
	if mask {
		flags |= FlagMask
	}
	if twoInOneScreen {
		flags |= FlagTwoInOneScreen
	}
	return flags
}

// EncodeSegments produces the segment records, in tile order, and the
// segment_info array [atlasW, atlasH, 1, flags, W0, H0, W1, H1, ...].
func EncodeSegments(placement *atlas.Placement, tiles []Tile, pad int, screens []geom.Size, flags uint16) ([]SegmentRecord, []uint16, error) {
	records := make([]SegmentRecord, len(tiles))
	for index, tile := range tiles {
		position, ok := placement.Positions[tile.Name]
		if !ok {
			return nil, nil, fmt.Errorf("tile %q has no placement", tile.Name)
		}
		paddedHeight := tile.Height + 2*pad

		var err error
		record := SegmentRecord{ID: tile.ID, Color: tile.Color, Screen: tile.Screen}
		if record.ScreenX, err = toInt32(tile.ScreenX, tile.Name+" screen x"); err != nil {
			return nil, nil, err
		}
		if record.ScreenY, err = toInt32(tile.ScreenY, tile.Name+" screen y"); err != nil {
			return nil, nil, err
		}
		if record.TexX, err = toUint16(position.X+pad, tile.Name+" texture x"); err != nil {
			return nil, nil, err
		}
		if record.TexY, err = toUint16(placement.Height-position.Y-paddedHeight+pad, tile.Name+" texture y"); err != nil {
			return nil, nil, err
		}
		if record.SizeX, err = toUint16(tile.Width, tile.Name+" width"); err != nil {
			return nil, nil, err
		}
		if record.SizeY, err = toUint16(tile.Height, tile.Name+" height"); err != nil {
			return nil, nil, err
		}
		records[index] = record
	}

	info := []int{placement.Width, placement.Height, segmentInfoVersion, int(flags)}
	for _, screen := range screens {
		info = append(info, screen.Width, screen.Height)
	}
	encoded, err := toUint16s(info, "segment_info")
	if err != nil {
		return nil, nil, err
	}
	return records, encoded, nil
}

// BackgroundLayout places each screen's background image in the
// background atlas.
type BackgroundLayout struct {
	Atlas     geom.Size
	Positions []atlas.Point
}

// LayoutBackground stacks one image per screen vertically at x=1,
// starting at y=1 with a one-pixel gap between images. The atlas is
// sized with a two-pixel allowance per image, and each dimension is
// rounded up to the first candidate that holds it, or the largest
// candidate.
func LayoutBackground(images []geom.Size, candidates []int) BackgroundLayout {
	width, height := 1, 1
	top := 1
	positions := make([]atlas.Point, len(images))
	for index, image := range images {
		width = max(1+width+1, image.Width)
		height += image.Height + 2
		positions[index] = atlas.Point{X: 1, Y: top}
		top += image.Height + 1
	}
	return BackgroundLayout{
		Atlas:     geom.Sz(roundUpToOneOf(width, candidates), roundUpToOneOf(height, candidates)),
		Positions: positions,
	}
}

// BackgroundFlags are the three trailing background_info values.
type BackgroundFlags struct {
	Shadow  bool
	InFront bool
	Camera  bool
}

// EncodeBackground produces background_info
// [atlasW, atlasH, (posX, posY, sizeX, sizeY) per screen, shadow,
// inFront, camera]. images holds the placed image sizes when the title
// has a background; pass nil otherwise, and every screen gets position
// zero with its screen size.
func EncodeBackground(layout BackgroundLayout, images []geom.Size, screens []geom.Size, flags BackgroundFlags) ([]uint16, error) {
	info := []int{layout.Atlas.Width, layout.Atlas.Height}
	if len(images) > 0 {
		if len(layout.Positions) != len(images) {
			return nil, fmt.Errorf("background layout has %d positions for %d images", len(layout.Positions), len(images))
		}
		for index, image := range images {
			top := layout.Positions[index].Y
			info = append(info, layout.Positions[index].X, layout.Atlas.Height-top-image.Height, image.Width, image.Height)
		}
	} else {
		for _, screen := range screens {
			info = append(info, 0, 0, screen.Width, screen.Height)
		}
	}
	info = append(info, boolInt(flags.Shadow), boolInt(flags.InFront), boolInt(flags.Camera))
	return toUint16s(info, "background_info")
}

// EncodeConsole produces console_info [atlasW, atlasH, 0, posY, w, h]
// for a photo placed at the atlas's top-left corner.
func EncodeConsole(atlasSize, image geom.Size) ([]uint16, error) {
	if image.Width > atlasSize.Width || image.Height > atlasSize.Height {
		return nil, fmt.Errorf("console image %v does not fit atlas %v", image, atlasSize)
	}
	return toUint16s([]int{
		atlasSize.Width, atlasSize.Height,
		0, atlasSize.Height - image.Height,
		image.Width, image.Height,
	}, "console_info")
}

func roundUpToOneOf(value int, candidates []int) int {
	largest := 0
	found := false
	best := 0
	for _, candidate := range candidates {
		largest = max(largest, candidate)
		if candidate >= value && (!found || candidate < best) {
			best, found = candidate, true
		}
	}
	switch {
	case found:
		return best
	case len(candidates) > 0:
		return largest
	default:
		return value
	}
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func toUint16(value int, what string) (uint16, error) {
	if value < 0 || value > math.MaxUint16 {
		return 0, fmt.Errorf("%s %d does not fit in 16 bits", what, value)
	}
	return uint16(value), nil
}

func toInt32(value int, what string) (int32, error) {
	if value < math.MinInt32 || value > math.MaxInt32 {
		return 0, fmt.Errorf("%s %d does not fit in 32 bits", what, value)
	}
	return int32(value), nil
}

func toUint16s(values []int, what string) ([]uint16, error) {
	encoded := make([]uint16, len(values))
	for index, value := range values {
		narrowed, err := toUint16(value, fmt.Sprintf("%s[%d]", what, index))
		if err != nil {
			return nil, err
		}
		encoded[index] = narrowed
	}
	return encoded, nil
}
