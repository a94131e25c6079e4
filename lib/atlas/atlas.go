// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInfeasible is returned by [Pack] when no candidate bin holds every
// rectangle. It is fatal for the title being built.
var ErrInfeasible = errors.New("no candidate atlas size fits all tiles")

// Rect is one tile to place. Width and Height include the padding
// margin on both sides.
type Rect struct {
	ID     string
	Width  int
	Height int
}

// Point is a top-left position inside the atlas, y growing downward.
type Point struct {
	X int
	Y int
}

// Placement is the chosen bin size and the position of every
// rectangle, keyed by Rect.ID.
type Placement struct {
	Width     int
	Height    int
	Positions map[string]Point
}

// Area returns Width*Height.
func (p *Placement) Area() int {
	return p.Width * p.Height
}

// Pack returns the minimal-area placement of rects over all
// candidates×candidates bins. See the package documentation for the
// search order and tie-break rule.
func Pack(rects []Rect, candidates []int) (*Placement, error) {
	sizes := normalizeCandidates(candidates)
	if len(sizes) == 0 {
		return nil, fmt.Errorf("packing %d tiles: no positive candidate sizes", len(rects))
	}

	seen := make(map[string]struct{}, len(rects))
	for _, rect := range rects {
		if rect.Width <= 0 || rect.Height <= 0 {
			return nil, fmt.Errorf("tile %q has non-positive size %dx%d", rect.ID, rect.Width, rect.Height)
		}
		if _, duplicate := seen[rect.ID]; duplicate {
			return nil, fmt.Errorf("duplicate tile id %q", rect.ID)
		}
		seen[rect.ID] = struct{}{}
	}

	order := sortedByArea(rects)

	var best *Placement
	for _, width := range sizes {
		for _, height := range sizes {
			positions, ok := packBin(order, width, height)
			if !ok {
				continue
			}
			if best == nil || width*height < best.Area() {
				best = &Placement{Width: width, Height: height, Positions: positions}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("packing %d tiles into at most %dx%d: %w",
			len(rects), sizes[len(sizes)-1], sizes[len(sizes)-1], ErrInfeasible)
	}
	return best, nil
}

// Validate checks that every rect has a position, that all positions
// lie inside the bin, and that no two rects overlap.
func (p *Placement) Validate(rects []Rect) error {
	for i, a := range rects {
		pa, ok := p.Positions[a.ID]
		if !ok {
			return fmt.Errorf("tile %q has no position", a.ID)
		}
		if pa.X < 0 || pa.Y < 0 || pa.X+a.Width > p.Width || pa.Y+a.Height > p.Height {
			return fmt.Errorf("tile %q at (%d,%d) size %dx%d exceeds %dx%d atlas",
				a.ID, pa.X, pa.Y, a.Width, a.Height, p.Width, p.Height)
		}
		for _, b := range rects[i+1:] {
			pb := p.Positions[b.ID]
			if pa.X < pb.X+b.Width && pb.X < pa.X+a.Width &&
				pa.Y < pb.Y+b.Height && pb.Y < pa.Y+a.Height {
				return fmt.Errorf("tiles %q and %q overlap", a.ID, b.ID)
			}
		}
	}
	return nil
}

// normalizeCandidates returns the positive candidates sorted ascending
// without duplicates. Callers may pass the profile list in any order.
func normalizeCandidates(candidates []int) []int {
	sizes := make([]int, 0, len(candidates))
	for _, size := range candidates {
		if size > 0 {
			sizes = append(sizes, size)
		}
	}
	slices.Sort(sizes)
	return slices.Compact(sizes)
}

// sortedByArea returns a copy of rects ordered by area descending,
// keeping input order among equal areas.
func sortedByArea(rects []Rect) []Rect {
	order := slices.Clone(rects)
	slices.SortStableFunc(order, func(a, b Rect) int {
		return b.Width*b.Height - a.Width*a.Height
	})
	return order
}
