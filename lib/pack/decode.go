// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"encoding/binary"
	"fmt"

	"github.com/retrovalou/yokoi/lib/record"
)

// Decode parses a pack, checking every table and heap reference
// against the file bounds.
func Decode(data []byte) (*Pack, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("pack is %d bytes, shorter than the %d-byte header", len(data), HeaderSize)
	}
	word := func(offset int) uint32 { return binary.LittleEndian.Uint32(data[offset:]) }

	if magic := word(0); magic != Magic {
		return nil, fmt.Errorf("bad magic %#08x, want %#08x", magic, Magic)
	}
	result := &Pack{
		Header: Header{
			FormatVersion:  word(4),
			Platform:       word(8),
			ContentVersion: word(12),
		},
		Layout: Layout{
			GamesOffset: word(24),
			FilesOffset: word(28),
			DataOffset:  word(32),
		},
	}
	gameCount, fileCount := uint64(word(16)), uint64(word(20))

	entrySize, err := GameEntrySize(result.Header.FormatVersion)
	if err != nil {
		return nil, err
	}

	layout := result.Layout
	if layout.GamesOffset != HeaderSize {
		return nil, fmt.Errorf("games table at %d, want %d", layout.GamesOffset, HeaderSize)
	}
	if uint64(layout.FilesOffset) != uint64(layout.GamesOffset)+gameCount*uint64(entrySize) {
		return nil, fmt.Errorf("files table at %d does not follow %d games", layout.FilesOffset, gameCount)
	}
	if uint64(layout.DataOffset) != uint64(layout.FilesOffset)+fileCount*FileEntrySize {
		return nil, fmt.Errorf("data heap at %d does not follow %d files", layout.DataOffset, fileCount)
	}
	if uint64(layout.DataOffset) > uint64(len(data)) {
		return nil, fmt.Errorf("tables end at %d, beyond the %d-byte file", layout.DataOffset, len(data))
	}

	reader := heapReader{data: data, start: layout.DataOffset}

	for index := range int(gameCount) {
		base := int(layout.GamesOffset) + index*entrySize
		var entry GameEntry
		for field, slice := range entry.fields() {
			slice.Offset = word(base + field*8)
			slice.Length = word(base + field*8 + 4)
		}
		if result.Header.FormatVersion >= FormatV3 {
			entry.Manufacturer = word(base + gameFieldCount*8)
		}

		game, err := reader.game(entry)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", index, err)
		}
		result.Entries = append(result.Entries, entry)
		result.Games = append(result.Games, game)
	}

	for index := range int(fileCount) {
		base := int(layout.FilesOffset) + index*FileEntrySize
		entry := FileEntry{
			Name: Slice{Offset: word(base), Length: word(base + 4)},
			Data: Slice{Offset: word(base + 8), Length: word(base + 12)},
		}
		name, err := reader.bytes(entry.Name, 1, "name")
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", index, err)
		}
		if len(name) == 0 {
			return nil, fmt.Errorf("file %d has an empty name", index)
		}
		content, err := reader.bytes(entry.Data, 1, "data")
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", name, err)
		}
		result.FileEntries = append(result.FileEntries, entry)
		result.Files = append(result.Files, File{Name: string(name), Data: content})
	}

	return result, nil
}

type heapReader struct {
	data  []byte
	start uint32
}

// bytes returns the heap bytes for slice, whose length counts
// elements of elementSize bytes.
func (r heapReader) bytes(slice Slice, elementSize int, what string) ([]byte, error) {
	if slice.Length == 0 {
		return nil, nil
	}
	size := uint64(slice.Length) * uint64(elementSize)
	end := uint64(slice.Offset) + size
	if slice.Offset < r.start || end > uint64(len(r.data)) {
		return nil, fmt.Errorf("%s [%d, %d) outside the data heap [%d, %d)", what, slice.Offset, end, r.start, len(r.data))
	}
	return r.data[slice.Offset:end], nil
}

func (r heapReader) uint16s(slice Slice, what string) ([]uint16, error) {
	raw, err := r.bytes(slice, 2, what)
	if err != nil || raw == nil {
		return nil, err
	}
	values := make([]uint16, len(raw)/2)
	for index := range values {
		values[index] = binary.LittleEndian.Uint16(raw[2*index:])
	}
	return values, nil
}

func (r heapReader) game(entry GameEntry) (Game, error) {
	var game Game
	strings := []struct {
		slice  Slice
		target *string
		what   string
	}{
		{entry.Name, &game.Name, "name"},
		{entry.Ref, &game.Ref, "ref"},
		{entry.Date, &game.Date, "date"},
		{entry.SegmentPath, &game.SegmentPath, "segment path"},
		{entry.BackgroundPath, &game.BackgroundPath, "background path"},
		{entry.ConsolePath, &game.ConsolePath, "console path"},
	}
	for _, field := range strings {
		raw, err := r.bytes(field.slice, 1, field.what)
		if err != nil {
			return Game{}, err
		}
		*field.target = string(raw)
	}

	var err error
	if game.ROM, err = r.bytes(entry.ROM, 1, "rom"); err != nil {
		return Game{}, err
	}
	if game.Melody, err = r.bytes(entry.Melody, 1, "melody"); err != nil {
		return Game{}, err
	}
	segments, err := r.bytes(entry.Segments, record.SegmentRecordSize, "segments")
	if err != nil {
		return Game{}, err
	}
	if segments != nil {
		if game.Segments, err = record.ParseSegments(segments); err != nil {
			return Game{}, err
		}
	}
	if game.SegmentInfo, err = r.uint16s(entry.SegmentInfo, "segment_info"); err != nil {
		return Game{}, err
	}
	if game.BackgroundInfo, err = r.uint16s(entry.BackgroundInfo, "background_info"); err != nil {
		return Game{}, err
	}
	if game.ConsoleInfo, err = r.uint16s(entry.ConsoleInfo, "console_info"); err != nil {
		return Game{}, err
	}
	game.Manufacturer = entry.Manufacturer
	return game, nil
}
