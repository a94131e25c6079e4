// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/retrovalou/yokoi/lib/buildcache"
	"github.com/retrovalou/yokoi/lib/clock"
	"github.com/retrovalou/yokoi/lib/config"
	"github.com/retrovalou/yokoi/lib/pack"
	"github.com/retrovalou/yokoi/lib/raster"
	"github.com/retrovalou/yokoi/lib/record"
	"github.com/retrovalou/yokoi/lib/title"
)

// Sentinel errors for per-title and run-level failures.
var (
	ErrMissingInput = errors.New("missing input file")
	ErrNoScreens    = errors.New("artwork produced no segments")
	ErrNoTitles     = errors.New("no title was built")
	ErrUnknownTitle = errors.New("unknown title")
)

// Paths are the directories and files a run writes.
type Paths struct {
	// Games receives <key>.cpp and <key>.h.
	Games string

	// Graphics receives textures and their .t3s descriptors.
	Graphics string

	// GlobalHeader lists every title in the build.
	GlobalHeader string

	// PackDir receives the pack files and the build lock.
	PackDir string

	// Work holds rasterized layers, one directory per title.
	Work string
}

// PackSettings describe the pack a run publishes.
type PackSettings struct {
	// Name is the base file name, without extension.
	Name           string
	FormatVersion  uint32
	ContentVersion uint32

	// EmbedTextures stores every referenced texture in the pack's file
	// table.
	EmbedTextures bool

	// IncludeDir prefixes per-title headers in the global header.
	IncludeDir string
}

// Options configure a [Run].
type Options struct {
	Knobs config.Knobs

	// Titles is the whole manifest, resolved, in manifest order.
	Titles []title.Options

	// Only, when set, rebuilds just that title. The others are taken
	// from the cache when it has them and left out otherwise.
	Only string

	Paths Paths
	Pack  PackSettings

	Cache      *buildcache.Cache
	Rasterizer raster.Rasterizer

	// Workers is the number of titles built at once. Values below 1
	// mean sequential.
	Workers int

	// Clean deletes a title's previous outputs before rebuilding it.
	Clean bool

	Logger *slog.Logger
	Clock  clock.Clock
}

// Run builds every selected title and publishes the pack. The report
// is returned even when the run fails.
func Run(ctx context.Context, options Options) (*Report, error) {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Cache == nil {
		options.Cache = buildcache.New(buildcache.Config{Knobs: options.Knobs, Logger: options.Logger})
	}
	if options.Only != "" && !hasTitle(options.Titles, options.Only) {
		return nil, fmt.Errorf("%w %q", ErrUnknownTitle, options.Only)
	}
	logger := options.Logger.With("target", options.Knobs.Target)
	started := options.Clock.Now()

	release, err := lockDirectory(options.Paths.PackDir)
	if err != nil {
		return nil, err
	}
	defer release()

	for _, directory := range []string{options.Paths.Games, options.Paths.Graphics, options.Paths.Work} {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	report := &Report{Target: options.Knobs.Target, Titles: make([]TitleResult, len(options.Titles))}
	builder := &titleBuilder{options: options, logger: logger}

	var group errgroup.Group
	group.SetLimit(max(options.Workers, 1))
	for index, titleOptions := range options.Titles {
		if options.Only != "" && titleOptions.Key != options.Only {
			report.Titles[index] = builder.fromCache(titleOptions)
			continue
		}
		group.Go(func() error {
			report.Titles[index] = builder.build(ctx, titleOptions)
			return nil
		})
	}
	// Workers record failures in their result slot and always return nil.
	_ = group.Wait()

	for index := range report.Titles {
		result := &report.Titles[index]
		if result.Status == StatusBuilt {
			options.Cache.Store(options.Titles[index], result.Metadata)
		}
		if result.Err != nil {
			logger.Error("title failed", "key", result.Key, "error", result.Err)
		}
	}

	if report.Succeeded() == 0 {
		report.Duration = clock.Since(options.Clock, started)
		return report, ErrNoTitles
	}

	if err := writeGlobalHeader(options.Paths.GlobalHeader, options.Pack.IncludeDir, report.includedKeys()); err != nil {
		report.Duration = clock.Since(options.Clock, started)
		return report, err
	}
	report.GlobalHeader = options.Paths.GlobalHeader

	if err := publishPack(options, report); err != nil {
		report.Duration = clock.Since(options.Clock, started)
		return report, err
	}

	report.Duration = clock.Since(options.Clock, started)
	logger.Info("build finished",
		"built", report.Count(StatusBuilt),
		"cached", report.Count(StatusCached),
		"failed", report.Count(StatusFailed),
		"pack", report.PackPath,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// publishPack assembles the pack from every included title and writes
// it under both names.
func publishPack(options Options, report *Report) error {
	var games []pack.Game
	var files []pack.File
	seen := make(map[string]bool)

	for index, result := range report.Titles {
		if !result.Included() {
			continue
		}
		titleOptions := options.Titles[index]
		game, err := packGame(titleOptions, result.Metadata)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", pack.ErrWrite, titleOptions.Key, err)
		}
		games = append(games, game)

		if !options.Pack.EmbedTextures {
			continue
		}
		for _, name := range result.Metadata.Textures {
			if seen[name] {
				continue
			}
			seen[name] = true
			data, err := os.ReadFile(filepath.Join(options.Paths.Graphics, name))
			if err != nil {
				return fmt.Errorf("%w: reading texture: %w", pack.ErrWrite, err)
			}
			files = append(files, pack.File{Name: name, Data: data})
		}
	}

	header := pack.Header{
		FormatVersion:  options.Pack.FormatVersion,
		Platform:       options.Knobs.Platform,
		ContentVersion: options.Pack.ContentVersion,
	}
	data, err := pack.Encode(header, games, files)
	if err != nil {
		return fmt.Errorf("%w: %w", pack.ErrWrite, err)
	}
	names := pack.FileNames(options.Pack.Name, header)
	if err := pack.WriteFiles(options.Paths.PackDir, names, data); err != nil {
		return err
	}
	report.PackPath = filepath.Join(options.Paths.PackDir, names.Canonical)
	report.VersionedPackPath = filepath.Join(options.Paths.PackDir, names.Versioned)
	report.PackSize = len(data)
	report.SharedFiles = len(files)
	return nil
}

func packGame(options title.Options, metadata record.Metadata) (pack.Game, error) {
	rom, err := os.ReadFile(options.ROM)
	if err != nil {
		return pack.Game{}, err
	}
	var melody []byte
	if options.Melody != "" {
		if melody, err = os.ReadFile(options.Melody); err != nil {
			return pack.Game{}, err
		}
	}
	return pack.Game{
		Name:         options.DisplayName,
		Ref:          options.Ref,
		Date:         options.Date,
		ROM:          rom,
		Melody:       melody,
		Metadata:     metadata,
		Manufacturer: options.Manufacturer,
	}, nil
}

func hasTitle(titles []title.Options, key string) bool {
	for _, candidate := range titles {
		if candidate.Key == key {
			return true
		}
	}
	return false
}
