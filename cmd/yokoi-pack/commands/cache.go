// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/retrovalou/yokoi/cmd/yokoi-pack/cli"
	"github.com/retrovalou/yokoi/lib/buildcache"
)

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:    "cache",
		Summary: "Inspect or invalidate build cache entries",
		Subcommands: []*cli.Command{
			cacheInvalidateCommand(),
			cacheShowCommand(),
		},
	}
}

type cacheInvalidateParams struct {
	ConfigParams
	All bool `flag:"all" desc:"invalidate every title in the manifest"`
}

func cacheInvalidateCommand() *cli.Command {
	var params cacheInvalidateParams
	return &cli.Command{
		Name:    "invalidate",
		Summary: "Force titles to rebuild on the next build",
		Usage:   "yokoi-pack cache invalidate [flags] <key>... | --all",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("invalidate", &params)
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if params.All == (len(args) > 0) {
				return errors.New("name one or more title keys, or pass --all")
			}
			env, err := loadSetup(params.ConfigParams, nil)
			if err != nil {
				return err
			}
			cache, err := env.cache(false, logger)
			if err != nil {
				return err
			}
			keys := args
			if params.All {
				titles, err := env.titles()
				if err != nil {
					return err
				}
				keys = nil
				for _, options := range titles {
					keys = append(keys, options.Key)
				}
			}
			for _, key := range keys {
				cache.Invalidate(key)
				logger.Info("cache entry invalidated", "key", key, "path", cache.EntryPath(key))
			}
			return nil
		},
	}
}

// entrySummary is the cache show output.
type entrySummary struct {
	Key           string                      `json:"key"`
	Path          string                      `json:"path"`
	SchemaVersion int                         `json:"schema_version"`
	Target        string                      `json:"target"`
	WrittenAt     time.Time                   `json:"written_at"`
	Inputs        []buildcache.InputSignature `json:"inputs"`
	Segments      int                         `json:"segments"`
	Textures      []string                    `json:"textures"`
}

func cacheShowCommand() *cli.Command {
	var params ConfigParams
	return &cli.Command{
		Name:    "show",
		Summary: "Print a title's cache entry",
		Usage:   "yokoi-pack cache show [flags] <key>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return errors.New("show takes exactly one title key")
			}
			env, err := loadSetup(params, nil)
			if err != nil {
				return err
			}
			cache, err := env.cache(false, logger)
			if err != nil {
				return err
			}
			key := args[0]
			entry, err := cache.ReadEntry(key)
			if err != nil {
				return fmt.Errorf("reading cache entry for %s: %w", key, err)
			}
			return cli.WriteJSON(os.Stdout, entrySummary{
				Key:           key,
				Path:          cache.EntryPath(key),
				SchemaVersion: entry.Signature.SchemaVersion,
				Target:        entry.Signature.Target,
				WrittenAt:     time.Unix(entry.WrittenAt, 0).UTC(),
				Inputs:        entry.Signature.Inputs,
				Segments:      len(entry.Metadata.Segments),
				Textures:      entry.Metadata.Textures,
			})
		},
	}
}
