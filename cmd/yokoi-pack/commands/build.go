// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/retrovalou/yokoi/cmd/yokoi-pack/cli"
	"github.com/retrovalou/yokoi/lib/build"
	"github.com/retrovalou/yokoi/lib/config"
	"github.com/retrovalou/yokoi/lib/raster"
	"github.com/retrovalou/yokoi/lib/title"
)

type buildParams struct {
	ConfigParams
	Game      string `flag:"game,g" desc:"rebuild only this title; the others come from the cache"`
	Clean     bool   `flag:"clean" desc:"ignore the cache and delete each rebuilt title's previous outputs"`
	Parallel  bool   `flag:"parallel,p" desc:"build titles in parallel"`
	ExportDPI int    `flag:"export-dpi" desc:"rasterization DPI (default from the target profile)"`
	Scale     int    `flag:"scale" desc:"screen size multiplier (default from the target profile)"`
}

func buildCommand() *cli.Command {
	var params buildParams
	return &cli.Command{
		Name:    "build",
		Summary: "Build every title and write the pack",
		Description: `Build every title in the manifest and publish the pack.

Titles whose inputs and options are unchanged since the last build are
taken from the cache. A title that fails is reported and left out of
the pack. The command succeeds as long as the pack was written, and
exits 1 only when no title could be built.`,
		Usage: "yokoi-pack build [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("build", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q (use --game to select a title)", args[0])
			}
			return runBuild(ctx, params, logger)
		},
	}
}

func runBuild(ctx context.Context, params buildParams, logger *slog.Logger) error {
	env, err := loadSetup(params.ConfigParams, func(cfg *config.Config) {
		if params.ExportDPI != 0 {
			cfg.Build.ExportDPI = params.ExportDPI
		}
		if params.Scale != 0 {
			cfg.Build.Scale = params.Scale
		}
	})
	if err != nil {
		return err
	}
	cfg := env.config
	logger = logger.With("target", env.knobs.Target)

	titles, err := env.titles()
	if err != nil {
		return err
	}
	if params.Game != "" {
		if err := checkGame(params.Game, titles); err != nil {
			return err
		}
	}
	cache, err := env.cache(params.Clean, logger)
	if err != nil {
		return err
	}

	workers := 1
	if params.Parallel {
		workers = cfg.Build.Workers
		if workers == 0 {
			workers = min(runtime.NumCPU(), 4)
		}
	}

	report, err := build.Run(ctx, build.Options{
		Knobs:  env.knobs,
		Titles: titles,
		Only:   params.Game,
		Paths: build.Paths{
			Games:        cfg.Paths.Games,
			Graphics:     cfg.Paths.Graphics,
			GlobalHeader: cfg.Paths.GlobalHeader,
			PackDir:      cfg.Paths.PackDir,
			Work:         cfg.Paths.Work,
		},
		Pack: build.PackSettings{
			Name:           cfg.Pack.Name,
			FormatVersion:  cfg.Pack.FormatVersion,
			ContentVersion: cfg.Pack.ContentVersion,
			EmbedTextures:  config.EmbedTextures(cfg),
			IncludeDir:     config.IncludeDir(cfg),
		},
		Cache: cache,
		Rasterizer: &raster.Command{
			Path:   cfg.Rasterizer.Command,
			Args:   cfg.Rasterizer.Args,
			Logger: logger,
		},
		Workers: workers,
		Clean:   params.Clean,
		Logger:  logger,
	})
	if report != nil {
		renderReport(os.Stdout, report, isTerminal(os.Stdout))
	}
	return buildResult(err)
}

// buildResult maps the error from build.Run to the command's result.
// Failed titles alone are not an error: the pack was written and the
// report lists them. When nothing was built the report has already
// said why, so the exit is silent.
func buildResult(err error) error {
	if errors.Is(err, build.ErrNoTitles) {
		return &cli.ExitError{Code: 1}
	}
	return err
}

// checkGame reports an unknown --game key, naming the closest title.
func checkGame(key string, titles []title.Options) error {
	keys := make([]string, len(titles))
	for index, options := range titles {
		if options.Key == key {
			return nil
		}
		keys[index] = options.Key
	}
	if suggestion := cli.Closest(key, keys); suggestion != "" {
		return fmt.Errorf("%w %q (did you mean %q?)", build.ErrUnknownTitle, key, suggestion)
	}
	return fmt.Errorf("%w %q", build.ErrUnknownTitle, key)
}
