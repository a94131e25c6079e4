// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package build turns a manifest of titles into a pack.
//
// [Run] processes each title independently, sequentially or on a
// bounded worker pool:
//
//  1. check that every input file exists
//  2. consult the build cache; a hit reuses the stored metadata
//  3. otherwise rasterize the artwork, pack the segment atlas, encode
//     the records, prepare the background and console atlases, and
//     write the textures, descriptors, and C++ sources
//
// A failing title is recorded in the [Report] and left out of the
// pack; the others carry on. Once every worker has finished, Run
// stores fresh cache entries, writes the global header, and assembles
// and publishes the pack, all from a single goroutine. The run fails
// only when no title succeeded or the pack could not be written.
//
// Run holds an advisory lock on the pack directory for its whole
// duration so two builds never interleave their outputs.
package build
