// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package pack reads and writes YKP1 pack files, the single binary the
// runtime loads to find every title's program, melody, metadata, and
// shared textures.
//
// # Layout
//
// All integers are little-endian u32 unless noted.
//
//	Header (36 bytes)
//	  magic "YKP1", format_version, platform_id, content_version,
//	  game_count, file_count, games_offset, files_offset, data_offset
//	Game table (game_count entries)
//	  12 (offset, length) pairs; format 3 appends a manufacturer id
//	File table (file_count entries of 16 bytes)
//	  name (offset, length), data (offset, length)
//	Data heap
//
// The tables follow the header back to back, and the heap starts
// exactly where the file table ends. Each title's fields are appended
// to the heap in table order: name, ref, date, rom, melody, segment
// path, segments, segment_info, background path, background_info,
// console path, console_info. Shared files follow all title data.
//
// Lengths are byte counts for strings and blobs and element counts
// for the segment array and the three u16 info arrays, which is what
// the loader multiplies by the element size. A zero-length field is
// stored as (0, 0).
//
// # Publishing
//
// [WriteFiles] publishes a pack under two names: a versioned name kept
// for auditing, then the canonical name the runtime loads. The
// canonical file is replaced only after the versioned write has fully
// succeeded, so a failed build never damages the pack consumers
// already have.
package pack
