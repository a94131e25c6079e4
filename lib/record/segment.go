// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/binary"
	"fmt"
)

// SegmentRecordSize is the packed on-disk size of one segment:
// three u8 ids, two i32 screen coordinates, four u16 texture values,
// and two u8 indexes.
const SegmentRecordSize = 21

// SegmentRecord describes one lit element of an LCD: where it sits on
// screen and where its pixels live in the segment atlas.
type SegmentRecord struct {
	_       struct{} `cbor:",toarray"`
	ID      [3]uint8
	ScreenX int32
	ScreenY int32
	TexX    uint16
	TexY    uint16
	SizeX   uint16
	SizeY   uint16
	Color   uint8
	Screen  uint8
}

// AppendPacked appends the little-endian packed form of r to b.
//
// Neither this nor Packed may satisfy encoding.BinaryAppender or
// encoding.BinaryMarshaler, or CBOR stores records as byte strings
// instead of the toarray form.
func (r SegmentRecord) AppendPacked(b []byte) []byte {
	b = append(b, r.ID[0], r.ID[1], r.ID[2])
	b = binary.LittleEndian.AppendUint32(b, uint32(r.ScreenX))
	b = binary.LittleEndian.AppendUint32(b, uint32(r.ScreenY))
	b = binary.LittleEndian.AppendUint16(b, r.TexX)
	b = binary.LittleEndian.AppendUint16(b, r.TexY)
	b = binary.LittleEndian.AppendUint16(b, r.SizeX)
	b = binary.LittleEndian.AppendUint16(b, r.SizeY)
	return append(b, r.Color, r.Screen)
}

// Packed returns the packed form of r.
func (r SegmentRecord) Packed() []byte {
	return r.AppendPacked(make([]byte, 0, SegmentRecordSize))
}

// AppendSegments appends the packed form of every record to b.
func AppendSegments(b []byte, records []SegmentRecord) []byte {
	for _, record := range records {
		b = record.AppendPacked(b)
	}
	return b
}

// ParseSegments decodes a packed segment array. The length must be a
// whole number of records.
func ParseSegments(data []byte) ([]SegmentRecord, error) {
	if len(data)%SegmentRecordSize != 0 {
		return nil, fmt.Errorf("segment array is %d bytes, not a multiple of %d", len(data), SegmentRecordSize)
	}
	records := make([]SegmentRecord, len(data)/SegmentRecordSize)
	for index := range records {
		chunk := data[index*SegmentRecordSize : (index+1)*SegmentRecordSize]
		records[index] = SegmentRecord{
			ID:      [3]uint8{chunk[0], chunk[1], chunk[2]},
			ScreenX: int32(binary.LittleEndian.Uint32(chunk[3:])),
			ScreenY: int32(binary.LittleEndian.Uint32(chunk[7:])),
			TexX:    binary.LittleEndian.Uint16(chunk[11:]),
			TexY:    binary.LittleEndian.Uint16(chunk[13:]),
			SizeX:   binary.LittleEndian.Uint16(chunk[15:]),
			SizeY:   binary.LittleEndian.Uint16(chunk[17:]),
			Color:   chunk[19],
			Screen:  chunk[20],
		}
	}
	return records, nil
}
