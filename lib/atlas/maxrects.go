// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

// freeRect is an axis-aligned free region of a bin.
type freeRect struct {
	x, y, width, height int
}

func (r freeRect) right() int  { return r.x + r.width }
func (r freeRect) bottom() int { return r.y + r.height }

// overlaps reports whether r and o share interior area. Touching edges
// do not count.
func (r freeRect) overlaps(o freeRect) bool {
	return r.x < o.right() && o.x < r.right() && r.y < o.bottom() && o.y < r.bottom()
}

// contains reports whether o lies entirely inside r.
func (r freeRect) contains(o freeRect) bool {
	return o.x >= r.x && o.y >= r.y && o.right() <= r.right() && o.bottom() <= r.bottom()
}

// packBin places every rect in one width×height bin. It returns false
// as soon as one rect cannot be placed: a partial fit is useless to the
// caller.
func packBin(rects []Rect, width, height int) (map[string]Point, bool) {
	free := []freeRect{{width: width, height: height}}
	positions := make(map[string]Point, len(rects))

	for _, rect := range rects {
		index := bestShortSideFit(free, rect.Width, rect.Height)
		if index < 0 {
			return nil, false
		}
		placed := freeRect{x: free[index].x, y: free[index].y, width: rect.Width, height: rect.Height}
		positions[rect.ID] = Point{X: placed.x, Y: placed.y}
		free = splitFree(free, placed)
	}
	return positions, true
}

// bestShortSideFit returns the index of the free rect leaving the
// smallest leftover short side for a width×height rect. The leftover
// long side is ignored: of equal candidates the first in list order
// wins. Returns -1 if nothing fits.
func bestShortSideFit(free []freeRect, width, height int) int {
	best, bestShort := -1, 0
	for i, candidate := range free {
		if width > candidate.width || height > candidate.height {
			continue
		}
		short := min(candidate.width-width, candidate.height-height)
		if best < 0 || short < bestShort {
			best, bestShort = i, short
		}
	}
	return best
}

// splitFree carves placed out of every free rect it overlaps, then
// drops free rects contained in another one. The pieces of a split
// region are emitted left, right, below, above; placement order
// depends on it.
func splitFree(free []freeRect, placed freeRect) []freeRect {
	next := make([]freeRect, 0, len(free)+4)
	for _, region := range free {
		if !region.overlaps(placed) {
			next = append(next, region)
			continue
		}
		if placed.x > region.x {
			next = append(next, freeRect{region.x, region.y, placed.x - region.x, region.height})
		}
		if placed.right() < region.right() {
			next = append(next, freeRect{placed.right(), region.y, region.right() - placed.right(), region.height})
		}
		if placed.bottom() < region.bottom() {
			next = append(next, freeRect{region.x, placed.bottom(), region.width, region.bottom() - placed.bottom()})
		}
		if placed.y > region.y {
			next = append(next, freeRect{region.x, region.y, region.width, placed.y - region.y})
		}
	}
	return pruneContained(next)
}

// pruneContained removes free rects that lie inside another free rect.
// Of two identical rects the earlier one is kept.
func pruneContained(free []freeRect) []freeRect {
	kept := free[:0:0]
	for i, a := range free {
		redundant := false
		for j, b := range free {
			if i == j || !b.contains(a) {
				continue
			}
			if a == b && i < j {
				continue
			}
			redundant = true
			break
		}
		if !redundant {
			kept = append(kept, a)
		}
	}
	return kept
}
