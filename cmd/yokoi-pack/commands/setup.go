// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/retrovalou/yokoi/lib/buildcache"
	"github.com/retrovalou/yokoi/lib/compress"
	"github.com/retrovalou/yokoi/lib/config"
	"github.com/retrovalou/yokoi/lib/title"
)

// ConfigParams are the flags every command that reads the
// configuration accepts.
type ConfigParams struct {
	Config string `flag:"config,c" desc:"configuration file (default $YOKOI_CONFIG, then built-in defaults)"`
	Target string `flag:"target,t" desc:"target profile: 3ds or rgds (default from the configuration)"`
}

// setup is the resolved state shared by the commands.
type setup struct {
	config *config.Config
	knobs  config.Knobs
}

func loadSetup(params ConfigParams, adjust func(*config.Config)) (*setup, error) {
	path := params.Config
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.LoadTarget(path, params.Target)
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	knobs, err := config.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return &setup{config: cfg, knobs: knobs}, nil
}

// cache opens the build cache. clean makes every lookup miss.
func (s *setup) cache(clean bool, logger *slog.Logger) (*buildcache.Cache, error) {
	tag, err := compress.ParseTag(s.config.Cache.Compression)
	if err != nil {
		return nil, err
	}
	return buildcache.New(buildcache.Config{
		Directory:   s.config.Paths.Cache,
		Enabled:     s.config.CacheEnabled(),
		Clean:       clean,
		Compression: tag,
		Knobs:       s.knobs,
		GamesDir:    s.config.Paths.Games,
		GraphicsDir: s.config.Paths.Graphics,
		Logger:      logger,
	}), nil
}

// titles loads the manifest and resolves every title. Relative input
// paths are taken from the configuration root.
func (s *setup) titles() ([]title.Options, error) {
	manifest, err := title.LoadManifest(s.config.Paths.Manifest)
	if err != nil {
		return nil, err
	}
	manifest.Rebase(s.config.Paths.Root)

	var errs []error
	resolved := make([]title.Options, 0, len(manifest.Titles))
	for _, entry := range manifest.Titles {
		options, err := title.Resolve(entry, s.knobs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resolved = append(resolved, options)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return resolved, nil
}
