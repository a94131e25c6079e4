// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package record encodes atlas placements and title options into the
// fixed-width metadata the runtime reads: per-segment records and the
// segment_info, background_info, and console_info arrays.
//
// Textures are addressed bottom-up: the runtime's texture origin is the
// lower-left corner, so a tile placed at top-left (x, y) in an atlas of
// height H has texture y = H - y - paddedHeight + pad.
//
// Every value is range-checked before narrowing. A placement that
// would need a texture coordinate above 65535 is an error, not a
// silently wrapped number.
//
// [Metadata] bundles the encoded arrays with the texture paths. It is
// what the build cache stores per title and what the pack writer
// consumes, so a cache hit reproduces the pack bytes exactly.
package record
