// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"fmt"

	"github.com/retrovalou/yokoi/lib/record"
)

// Magic is "YKP1" read as a little-endian u32.
const Magic uint32 = 0x31504B59

// Format versions. Version 1 predates content_version and is no
// longer produced or accepted.
const (
	FormatV1 uint32 = 1
	FormatV2 uint32 = 2
	FormatV3 uint32 = 3
)

// Fixed record sizes in bytes.
const (
	HeaderSize      = 36
	GameEntrySizeV2 = 96
	GameEntrySizeV3 = 100
	FileEntrySize   = 16
)

// gameFieldCount is the number of (offset, length) pairs per game.
const gameFieldCount = 12

// Header is the caller-controlled part of the pack header. Counts and
// offsets are derived from the content.
type Header struct {
	FormatVersion  uint32
	Platform       uint32
	ContentVersion uint32
}

// GameEntrySize returns the game table entry size for a format.
func GameEntrySize(formatVersion uint32) (int, error) {
	switch formatVersion {
	case FormatV2:
		return GameEntrySizeV2, nil
	case FormatV3:
		return GameEntrySizeV3, nil
	case FormatV1:
		return 0, fmt.Errorf("pack format %d is no longer supported", formatVersion)
	default:
		return 0, fmt.Errorf("unknown pack format %d", formatVersion)
	}
}

// Game is one title's content in a pack.
type Game struct {
	Name   string
	Ref    string
	Date   string
	ROM    []byte
	Melody []byte

	record.Metadata

	// Manufacturer is only stored by format 3.
	Manufacturer uint32
}

// File is a shared blob addressed by name, such as an atlas PNG.
type File struct {
	Name string
	Data []byte
}

// Slice locates one field in the data heap.
type Slice struct {
	Offset uint32
	Length uint32
}

// GameEntry is a decoded game table row.
type GameEntry struct {
	Name, Ref, Date                Slice
	ROM, Melody                    Slice
	SegmentPath, Segments          Slice
	SegmentInfo                    Slice
	BackgroundPath, BackgroundInfo Slice
	ConsolePath, ConsoleInfo       Slice
	Manufacturer                   uint32
}

func (e *GameEntry) fields() [gameFieldCount]*Slice {
	return [gameFieldCount]*Slice{
		&e.Name, &e.Ref, &e.Date,
		&e.ROM, &e.Melody,
		&e.SegmentPath, &e.Segments, &e.SegmentInfo,
		&e.BackgroundPath, &e.BackgroundInfo,
		&e.ConsolePath, &e.ConsoleInfo,
	}
}

// FileEntry is a decoded file table row.
type FileEntry struct {
	Name Slice
	Data Slice
}

// Layout is the table placement recorded in a header.
type Layout struct {
	GamesOffset uint32
	FilesOffset uint32
	DataOffset  uint32
}

// Pack is a fully decoded pack file.
type Pack struct {
	Header Header
	Layout Layout
	Games  []Game
	Files  []File

	// Entries and FileEntries are the raw table rows, for inspection.
	Entries     []GameEntry
	FileEntries []FileEntry
}
