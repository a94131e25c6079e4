// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"slices"

	"github.com/retrovalou/yokoi/lib/geom"
)

// Knobs are the resolved global build parameters. They are computed
// once by [Resolve] and passed by value to every build step; nothing
// mutates them afterwards. The CBOR-tagged fields form the global part
// of every cache signature.
type Knobs struct {
	Target           string    `cbor:"target"`
	Platform         uint32    `cbor:"platform"`
	ExportDPI        int       `cbor:"export_dpi"`
	SizeScale        int       `cbor:"size_scale"`
	ResolutionUp     geom.Size `cbor:"resolution_up"`
	ResolutionDown   geom.Size `cbor:"resolution_down"`
	ConsoleSize      geom.Size `cbor:"console_size"`
	ConsoleAtlasSize geom.Size `cbor:"console_atlas_size"`
	AtlasSizes       []int     `cbor:"atlas_sizes"`
	BackgroundSizes  []int     `cbor:"background_atlas_sizes"`
	Pad              int       `cbor:"pad"`
	Tex3DS           bool      `cbor:"tex3ds_enabled"`
	TexturePrefix    string    `cbor:"texture_path_prefix"`
	TextureExt       string    `cbor:"texture_path_ext"`

	// Title defaults. These reach the signature through each title's
	// resolved options rather than directly.
	DefaultConsole     string  `cbor:"-"`
	DefaultAlphaBright float64 `cbor:"-"`
	DefaultFondBright  float64 `cbor:"-"`
	DefaultRotate      bool    `cbor:"-"`
}

// Title option defaults shared by every target.
const (
	DefaultAlphaBright = 1.7
	DefaultFondBright  = 1.35
)

// Resolve combines the selected profile with the configuration's
// overrides. A non-positive DPI or scale override falls back to the
// profile value.
func Resolve(cfg *Config) (Knobs, error) {
	profile, ok := Profiles[cfg.Target]
	if !ok {
		return Knobs{}, fmt.Errorf("unknown target %q (valid targets: %s)", cfg.Target, profileNames())
	}

	exportDPI := profile.ExportDPI
	if cfg.Build.ExportDPI > 0 {
		exportDPI = cfg.Build.ExportDPI
	}
	sizeScale := profile.SizeScale
	if cfg.Build.Scale > 0 {
		sizeScale = cfg.Build.Scale
	}

	return Knobs{
		Target:             profile.Name,
		Platform:           profile.Platform,
		ExportDPI:          exportDPI,
		SizeScale:          sizeScale,
		ResolutionUp:       profile.ResolutionUp,
		ResolutionDown:     profile.ResolutionDown,
		ConsoleSize:        profile.ConsoleSize,
		ConsoleAtlasSize:   profile.ConsoleAtlasSize,
		AtlasSizes:         slices.Clone(profile.AtlasSizes),
		BackgroundSizes:    slices.Clone(profile.BackgroundAtlasSizes),
		Pad:                cfg.Build.Pad,
		Tex3DS:             profile.Tex3DS,
		TexturePrefix:      profile.TexturePrefix,
		TextureExt:         profile.TextureExt,
		DefaultConsole:     cfg.Paths.DefaultConsole,
		DefaultAlphaBright: DefaultAlphaBright,
		DefaultFondBright:  DefaultFondBright,
		DefaultRotate:      false,
	}, nil
}

// EmbedTextures reports whether atlas PNGs go into the pack for cfg's
// target.
func EmbedTextures(cfg *Config) bool {
	if cfg.Pack.EmbedTextures != nil {
		return *cfg.Pack.EmbedTextures
	}
	return Profiles[cfg.Target].EmbedTextures
}

// IncludeDir returns the directory name used in the global header's
// #include lines.
func IncludeDir(cfg *Config) string {
	if cfg.Paths.IncludeDir != "" {
		return cfg.Paths.IncludeDir
	}
	return Profiles[cfg.Target].IncludeDir
}
