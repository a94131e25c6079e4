// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/retrovalou/yokoi/lib/record"
)

// Encode serializes games and shared files into a pack. Games and
// files keep their input order. File names must be unique.
func Encode(header Header, games []Game, files []File) ([]byte, error) {
	entrySize, err := GameEntrySize(header.FormatVersion)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(files))
	for _, file := range files {
		if file.Name == "" {
			return nil, fmt.Errorf("shared file with an empty name")
		}
		if seen[file.Name] {
			return nil, fmt.Errorf("shared file %q appears twice", file.Name)
		}
		seen[file.Name] = true
	}

	gamesOffset := uint64(HeaderSize)
	filesOffset := gamesOffset + uint64(len(games))*uint64(entrySize)
	dataOffset := filesOffset + uint64(len(files))*FileEntrySize
	if dataOffset > math.MaxUint32 {
		return nil, fmt.Errorf("pack tables end at %d, beyond 32-bit offsets", dataOffset)
	}

	heap := &heapWriter{base: dataOffset}
	entries := make([]GameEntry, len(games))
	for index, game := range games {
		entry := &entries[index]
		entry.Name = heap.appendBytes([]byte(game.Name), 1)
		entry.Ref = heap.appendBytes([]byte(game.Ref), 1)
		entry.Date = heap.appendBytes([]byte(game.Date), 1)
		entry.ROM = heap.appendBytes(game.ROM, 1)
		entry.Melody = heap.appendBytes(game.Melody, 1)
		entry.SegmentPath = heap.appendBytes([]byte(game.SegmentPath), 1)
		entry.Segments = heap.appendBytes(record.AppendSegments(nil, game.Segments), record.SegmentRecordSize)
		entry.SegmentInfo = heap.appendUint16s(game.SegmentInfo)
		entry.BackgroundPath = heap.appendBytes([]byte(game.BackgroundPath), 1)
		entry.BackgroundInfo = heap.appendUint16s(game.BackgroundInfo)
		entry.ConsolePath = heap.appendBytes([]byte(game.ConsolePath), 1)
		entry.ConsoleInfo = heap.appendUint16s(game.ConsoleInfo)
		entry.Manufacturer = game.Manufacturer
		if heap.err != nil {
			return nil, fmt.Errorf("game %q: %w", game.Name, heap.err)
		}
	}

	fileEntries := make([]FileEntry, len(files))
	for index, file := range files {
		fileEntries[index] = FileEntry{
			Name: heap.appendBytes([]byte(file.Name), 1),
			Data: heap.appendBytes(file.Data, 1),
		}
		if heap.err != nil {
			return nil, fmt.Errorf("file %q: %w", file.Name, heap.err)
		}
	}

	out := make([]byte, 0, dataOffset+uint64(len(heap.data)))
	for _, value := range []uint32{
		Magic,
		header.FormatVersion,
		header.Platform,
		header.ContentVersion,
		uint32(len(games)),
		uint32(len(files)),
		uint32(gamesOffset),
		uint32(filesOffset),
		uint32(dataOffset),
	} {
		out = binary.LittleEndian.AppendUint32(out, value)
	}
	for index := range entries {
		for _, field := range entries[index].fields() {
			out = binary.LittleEndian.AppendUint32(out, field.Offset)
			out = binary.LittleEndian.AppendUint32(out, field.Length)
		}
		if header.FormatVersion >= FormatV3 {
			out = binary.LittleEndian.AppendUint32(out, entries[index].Manufacturer)
		}
	}
	for _, entry := range fileEntries {
		for _, value := range []uint32{entry.Name.Offset, entry.Name.Length, entry.Data.Offset, entry.Data.Length} {
			out = binary.LittleEndian.AppendUint32(out, value)
		}
	}
	return append(out, heap.data...), nil
}

// heapWriter appends fields to the data heap and records where they
// landed. The first error sticks; later appends are no-ops.
type heapWriter struct {
	base uint64
	data []byte
	err  error
}

// appendBytes appends data and returns its slice with the length
// expressed in units of elementSize bytes.
func (h *heapWriter) appendBytes(data []byte, elementSize int) Slice {
	if h.err != nil || len(data) == 0 {
		return Slice{}
	}
	offset := h.base + uint64(len(h.data))
	end := offset + uint64(len(data))
	if end > math.MaxUint32 {
		h.err = fmt.Errorf("heap field at %d with %d bytes exceeds 32-bit offsets", offset, len(data))
		return Slice{}
	}
	h.data = append(h.data, data...)
	return Slice{Offset: uint32(offset), Length: uint32(len(data) / elementSize)}
}

func (h *heapWriter) appendUint16s(values []uint16) Slice {
	encoded := make([]byte, 0, 2*len(values))
	for _, value := range values {
		encoded = binary.LittleEndian.AppendUint16(encoded, value)
	}
	return h.appendBytes(encoded, 2)
}
