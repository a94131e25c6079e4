// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Yokoi packages.
//
// [WriteFile] and [WritePNG] create input fixtures (ROM images, melody
// files, artwork) under a test's temporary directory. [Layer] builds
// an RGBA layer with opaque rectangles, the shape rasterized screen
// artwork takes.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Yokoi-internal dependencies.
package testutil
