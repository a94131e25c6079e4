// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package atlas

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
)

func TestPackThreeRects(t *testing.T) {
	rects := []Rect{
		{ID: "a", Width: 40, Height: 40},
		{ID: "b", Width: 30, Height: 20},
		{ID: "c", Width: 60, Height: 60},
	}

	placement, err := Pack(rects, []int{32, 64, 128})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	// 64x64 cannot hold 5800 px of tiles; 64x128 and 128x64 tie on area
	// and the width-ascending outer loop reaches 64x128 first.
	if placement.Width != 64 || placement.Height != 128 {
		t.Errorf("atlas = %dx%d, want 64x128", placement.Width, placement.Height)
	}
	if err := placement.Validate(rects); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestPackTieKeepsFirstInIterationOrder(t *testing.T) {
	// A 100x10 strip is too wide for any 32-wide bin, so 128x32 wins
	// even though the candidates arrive out of order.
	wide, err := Pack([]Rect{{ID: "w", Width: 100, Height: 10}}, []int{128, 32})
	if err != nil {
		t.Fatalf("Pack(wide): %v", err)
	}
	if wide.Width != 128 || wide.Height != 32 {
		t.Errorf("wide atlas = %dx%d, want 128x32", wide.Width, wide.Height)
	}

	square, err := Pack([]Rect{{ID: "s", Width: 20, Height: 20}}, []int{32, 64})
	if err != nil {
		t.Fatalf("Pack(square): %v", err)
	}
	if square.Width != 32 || square.Height != 32 {
		t.Errorf("square atlas = %dx%d, want 32x32", square.Width, square.Height)
	}
}

func TestPackInfeasible(t *testing.T) {
	_, err := Pack([]Rect{{ID: "big", Width: 300, Height: 10}}, []int{32, 64, 256})
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("Pack error = %v, want ErrInfeasible", err)
	}
}

func TestPackEmpty(t *testing.T) {
	placement, err := Pack(nil, []int{64, 32})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if placement.Width != 32 || placement.Height != 32 || len(placement.Positions) != 0 {
		t.Errorf("empty placement = %+v, want 32x32 with no positions", placement)
	}
}

func TestPackRejectsBadInput(t *testing.T) {
	tests := []struct {
		name       string
		rects      []Rect
		candidates []int
	}{
		{"duplicate id", []Rect{{ID: "x", Width: 1, Height: 1}, {ID: "x", Width: 2, Height: 2}}, []int{8}},
		{"zero width", []Rect{{ID: "x", Width: 0, Height: 1}}, []int{8}},
		{"no candidates", []Rect{{ID: "x", Width: 1, Height: 1}}, nil},
		{"only negative candidates", []Rect{{ID: "x", Width: 1, Height: 1}}, []int{-8, 0}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Pack(test.rects, test.candidates); err == nil {
				t.Error("Pack should fail")
			}
		})
	}
}

func TestPackDeterministic(t *testing.T) {
	rects := randomRects(rand.New(rand.NewPCG(7, 11)), 24, 40)
	first, err := Pack(rects, []int{32, 64, 128, 256, 512})
	if err != nil {
		t.Fatalf("first Pack: %v", err)
	}
	second, err := Pack(rects, []int{512, 256, 128, 64, 32})
	if err != nil {
		t.Fatalf("second Pack: %v", err)
	}
	if first.Width != second.Width || first.Height != second.Height {
		t.Fatalf("sizes differ: %dx%d vs %dx%d", first.Width, first.Height, second.Width, second.Height)
	}
	for id, position := range first.Positions {
		if second.Positions[id] != position {
			t.Errorf("tile %s: %v vs %v", id, position, second.Positions[id])
		}
	}
}

// TestPackMatchesExhaustiveSearch compares Pack with an independent
// walk over every candidate pair using the same single-bin routine, and
// checks the geometric invariants of the result.
func TestPackMatchesExhaustiveSearch(t *testing.T) {
	random := rand.New(rand.NewPCG(1, 2))
	candidates := []int{16, 32, 64, 128}

	for trial := range 200 {
		rects := randomRects(random, 1+random.IntN(8), 48)
		placement, err := Pack(rects, candidates)

		wantWidth, wantHeight := 0, 0
		order := sortedByArea(rects)
		for _, w := range candidates {
			for _, h := range candidates {
				if _, ok := packBin(order, w, h); ok && (wantWidth == 0 || w*h < wantWidth*wantHeight) {
					wantWidth, wantHeight = w, h
				}
			}
		}

		if wantWidth == 0 {
			if !errors.Is(err, ErrInfeasible) {
				t.Fatalf("trial %d: error = %v, want ErrInfeasible", trial, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("trial %d: Pack: %v", trial, err)
		}
		if placement.Width != wantWidth || placement.Height != wantHeight {
			t.Fatalf("trial %d: atlas = %dx%d, want %dx%d", trial, placement.Width, placement.Height, wantWidth, wantHeight)
		}
		if err := placement.Validate(rects); err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
	}
}

// TestPackTwoRectsOptimal checks against an exact feasibility oracle:
// two rectangles fit a bin exactly when they fit side by side or
// stacked, and MaxRects must find every such bin.
func TestPackTwoRectsOptimal(t *testing.T) {
	random := rand.New(rand.NewPCG(3, 4))
	candidates := []int{8, 16, 32, 64}

	fits := func(a, b Rect, w, h int) bool {
		sideBySide := a.Width+b.Width <= w && max(a.Height, b.Height) <= h
		stacked := a.Height+b.Height <= h && max(a.Width, b.Width) <= w
		return sideBySide || stacked
	}

	for trial := range 500 {
		a := Rect{ID: "a", Width: 1 + random.IntN(40), Height: 1 + random.IntN(40)}
		b := Rect{ID: "b", Width: 1 + random.IntN(40), Height: 1 + random.IntN(40)}

		bestArea := 0
		for _, w := range candidates {
			for _, h := range candidates {
				if fits(a, b, w, h) && (bestArea == 0 || w*h < bestArea) {
					bestArea = w * h
				}
			}
		}

		placement, err := Pack([]Rect{a, b}, candidates)
		if bestArea == 0 {
			if !errors.Is(err, ErrInfeasible) {
				t.Fatalf("trial %d (%v %v): error = %v, want ErrInfeasible", trial, a, b, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("trial %d (%v %v): Pack: %v", trial, a, b, err)
		}
		if placement.Area() != bestArea {
			t.Fatalf("trial %d (%v %v): area = %d, want %d", trial, a, b, placement.Area(), bestArea)
		}
	}
}

func TestValidateDetectsOverlap(t *testing.T) {
	rects := []Rect{{ID: "a", Width: 10, Height: 10}, {ID: "b", Width: 10, Height: 10}}
	placement := &Placement{Width: 32, Height: 32, Positions: map[string]Point{
		"a": {X: 0, Y: 0},
		"b": {X: 5, Y: 5},
	}}
	if err := placement.Validate(rects); err == nil {
		t.Error("Validate should report the overlap")
	}

	placement.Positions["b"] = Point{X: 25, Y: 0}
	if err := placement.Validate(rects); err == nil {
		t.Error("Validate should report the out-of-bounds tile")
	}

	placement.Positions["b"] = Point{X: 10, Y: 0}
	if err := placement.Validate(rects); err != nil {
		t.Errorf("touching tiles are valid: %v", err)
	}
}

func randomRects(random *rand.Rand, count, maxSide int) []Rect {
	rects := make([]Rect, count)
	for i := range rects {
		rects[i] = Rect{
			ID:     fmt.Sprintf("tile-%02d", i),
			Width:  1 + random.IntN(maxSide),
			Height: 1 + random.IntN(maxSide),
		}
	}
	return rects
}
