// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package atlas packs rasterized segment tiles into a single texture
// atlas.
//
// [Pack] searches a fixed list of candidate edge lengths for the
// smallest-area (width, height) bin that holds every rectangle without
// rotation. The search is exhaustive and ordered: width ascending in the
// outer loop, height ascending in the inner loop, and the first pair
// reaching a given minimal area wins. That order decides which bin is
// chosen when two pairs tie on area (64×128 versus 128×64), so it must
// not be reordered or short-circuited: packs built from the same tiles
// must come out byte-identical.
//
// Inside one bin the placement is MaxRects with the best-short-side-fit
// heuristic. Rectangles are offered largest area first (stable on input
// order) and placed at the top-left corner of the free rectangle that
// leaves the smallest leftover short side. Equal short sides go to the
// free rectangle listed first, so the order in which splits append new
// free rectangles (left, right, below, above) is part of the output.
//
// Rectangle sizes already include the caller's padding margin. The
// returned positions are the top-left corners of those padded
// rectangles; callers add the pad themselves to find the image origin.
//
// This package has no dependencies on other Yokoi packages.
package atlas
