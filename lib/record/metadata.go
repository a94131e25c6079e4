// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package record

// Texture kinds, used as filename prefixes.
const (
	KindSegment    = "segment"
	KindBackground = "background"
	KindConsole    = "console"
)

// Metadata is everything the pack needs about one title beyond its
// ROM images and names.
type Metadata struct {
	SegmentPath    string          `cbor:"segment_path"`
	Segments       []SegmentRecord `cbor:"segments"`
	SegmentInfo    []uint16        `cbor:"segment_info"`
	BackgroundPath string          `cbor:"background_path"`
	BackgroundInfo []uint16        `cbor:"background_info"`
	ConsolePath    string          `cbor:"console_path"`
	ConsoleInfo    []uint16        `cbor:"console_info"`

	// Textures are the graphics files the title references, by base
	// name (e.g. "segment_gnw_ball.png"), in segment, background,
	// console order.
	Textures []string `cbor:"textures"`
}

// Addressing describes how the runtime names textures.
type Addressing struct {
	Prefix string
	Ext    string
}

// TexturePath returns the runtime path of one of a title's textures.
func (a Addressing) TexturePath(kind, key string) string {
	return a.Prefix + kind + "_" + key + a.Ext
}

// TextureFile returns the base name of the PNG written for a texture.
func TextureFile(kind, key string) string {
	return kind + "_" + key + ".png"
}

// DescriptorFile returns the base name of a texture's .t3s descriptor.
func DescriptorFile(kind, key string) string {
	return kind + "_" + key + ".t3s"
}

// Descriptor returns the .t3s content for a texture. tex3ds targets
// get a format line and the PNG name; other targets get an empty
// file.
func Descriptor(kind, key string, tex3ds, mask bool) string {
	if !tex3ds {
		return ""
	}
	var format string
	switch kind {
	case KindSegment:
		format = "-f a8 -z none"
		if mask {
			format = "-f rgba8 -z none"
		}
	case KindBackground:
		format = "-f RGBA8 -z none"
	default:
		format = "-f RGB8 -z none"
	}
	return format + "\n" + TextureFile(kind, key)
}
