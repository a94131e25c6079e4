// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"slices"
	"strings"

	"github.com/retrovalou/yokoi/lib/geom"
)

// Platform ids written into the pack header. The runtime loader
// rejects a pack whose platform does not match its own build.
const (
	Platform3DS  uint32 = 1
	PlatformRGDS uint32 = 2
)

// Profile is the built-in description of one output target.
type Profile struct {
	Name     string
	Platform uint32

	// ResolutionUp and ResolutionDown are the default size_visual for
	// titles that do not specify one.
	ResolutionUp     geom.Size
	ResolutionDown   geom.Size
	DemiResolutionUp geom.Size

	// ConsoleSize is the console photo size; ConsoleAtlasSize is the
	// texture it is placed in.
	ConsoleSize      geom.Size
	ConsoleAtlasSize geom.Size

	// ExportDPI is the vector rasterization resolution.
	ExportDPI int

	// AtlasSizes are the candidate segment atlas dimensions.
	AtlasSizes []int

	// BackgroundAtlasSizes are the candidate background atlas
	// dimensions.
	BackgroundAtlasSizes []int

	// SizeScale multiplies every title's size_visual.
	SizeScale int

	// Multi-screen logical panel sizes, used when authoring manifests
	// for titles with more than one LCD.
	MultiscreenLeftRight geom.Size
	MultiscreenTopBottom geom.Size

	// Texture addressing: the runtime path prefix and extension, and
	// whether .t3s descriptors carry tex3ds format lines.
	TexturePrefix string
	TextureExt    string
	Tex3DS        bool

	// IncludeDir is the directory the global header includes per-title
	// headers from.
	IncludeDir string

	// EmbedTextures is the default for pack.embed_textures.
	EmbedTextures bool
}

// Profiles are the built-in targets, keyed by name.
var Profiles = map[string]Profile{
	"3ds": {
		Name:                 "3ds",
		Platform:             Platform3DS,
		ResolutionUp:         geom.Sz(400, 240),
		ResolutionDown:       geom.Sz(320, 240),
		DemiResolutionUp:     geom.Sz(200, 240),
		ConsoleSize:          geom.Sz(320, 240),
		ConsoleAtlasSize:     geom.Sz(512, 256),
		ExportDPI:            50,
		AtlasSizes:           []int{32, 64, 128, 256, 512, 1024},
		BackgroundAtlasSizes: []int{128, 256, 512, 1024},
		SizeScale:            1,
		MultiscreenLeftRight: geom.Sz(200, 240),
		MultiscreenTopBottom: geom.Sz(320, 240),
		TexturePrefix:        "romfs:/gfx/",
		TextureExt:           ".t3x",
		Tex3DS:               true,
		IncludeDir:           "GW_ROM",
		EmbedTextures:        false,
	},
	// Sizes are already the RG DS logical sizes (2x the 3DS ones), so
	// the scale stays 1.
	"rgds": {
		Name:                 "rgds",
		Platform:             PlatformRGDS,
		ResolutionUp:         geom.Sz(640, 480),
		ResolutionDown:       geom.Sz(640, 480),
		DemiResolutionUp:     geom.Sz(320, 480),
		ConsoleSize:          geom.Sz(640, 480),
		ConsoleAtlasSize:     geom.Sz(1024, 512),
		ExportDPI:            100,
		AtlasSizes:           []int{32, 64, 128, 256, 512, 1024, 2048},
		BackgroundAtlasSizes: []int{128, 256, 512, 1024, 2048},
		SizeScale:            1,
		MultiscreenLeftRight: geom.Sz(320, 480),
		MultiscreenTopBottom: geom.Sz(640, 480),
		TexturePrefix:        "gfx/",
		TextureExt:           ".png",
		Tex3DS:               false,
		IncludeDir:           "GW_ROM_RGDS",
		EmbedTextures:        true,
	},
}

func profileNames() string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
