// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package raster turns a title's vector artwork into one PNG layer per
// segment.
//
// The build talks to rasterizers only through [Rasterizer]. [Command]
// runs an external tool once per request; [Fake] writes layers from
// memory for tests.
//
// A rasterizer writes every layer of a request's input into the
// request's output directory, named
//
//	<x>.<y>.<z>.<screen>.png
//	<x>.<y>.<z>_<color>.<screen>.png
//
// where x, y, and z are the segment's coordinate ids in the title's
// program, color is an optional color index, and screen is the screen
// the segment belongs to. [ReadLayers] parses a directory of such
// files back.
package raster
