// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable [Load] reads.
const EnvConfig = "YOKOI_CONFIG"

// Config is the yokoi-pack configuration file.
type Config struct {
	// Target selects the built-in profile ("3ds" or "rgds").
	Target string `yaml:"target"`

	// Paths configures input and output locations.
	Paths PathsConfig `yaml:"paths"`

	// Pack configures the container file.
	Pack PackConfig `yaml:"pack"`

	// Cache configures the per-title build cache.
	Cache CacheConfig `yaml:"cache"`

	// Build configures rasterization and scheduling.
	Build BuildConfig `yaml:"build"`

	// Rasterizer configures the external vector rasterizer.
	Rasterizer RasterizerConfig `yaml:"rasterizer"`

	// Targets contains per-target overrides, applied after the base
	// config is loaded when the key matches Target.
	Targets map[string]*Overrides `yaml:"targets,omitempty"`
}

// Overrides contains the sections that can be overridden per target.
type Overrides struct {
	Paths      *PathsConfig      `yaml:"paths,omitempty"`
	Pack       *PackConfig       `yaml:"pack,omitempty"`
	Cache      *CacheConfig      `yaml:"cache,omitempty"`
	Build      *BuildConfig      `yaml:"build,omitempty"`
	Rasterizer *RasterizerConfig `yaml:"rasterizer,omitempty"`
}

// PathsConfig configures input and output locations.
type PathsConfig struct {
	// Root is the base directory other defaults are relative to.
	Root string `yaml:"root"`

	// Manifest is the title manifest (YAML or JSON with comments).
	Manifest string `yaml:"manifest"`

	// Games receives the generated per-title C++ source and header.
	Games string `yaml:"games"`

	// Graphics receives atlas PNGs and .t3s descriptors.
	Graphics string `yaml:"graphics"`

	// GlobalHeader is the generated header listing every built title.
	GlobalHeader string `yaml:"global_header"`

	// IncludeDir is the directory name the global header uses in its
	// #include lines. Empty means the profile default.
	IncludeDir string `yaml:"include_dir"`

	// PackDir receives the versioned and canonical pack files.
	PackDir string `yaml:"pack_dir"`

	// Cache holds one entry file per (target, title).
	Cache string `yaml:"cache"`

	// Work holds rasterized layers, one subdirectory per title.
	Work string `yaml:"work"`

	// DefaultConsole is the console photo used by titles that do not
	// name one.
	DefaultConsole string `yaml:"default_console"`
}

// PackConfig configures the container file.
type PackConfig struct {
	// Name is the base filename without extension.
	Name string `yaml:"name"`

	// FormatVersion selects the container layout (2 or 3).
	FormatVersion uint32 `yaml:"format_version"`

	// ContentVersion is bumped on same-layout semantic changes.
	ContentVersion uint32 `yaml:"content_version"`

	// EmbedTextures stores atlas PNGs as shared files inside the
	// pack. Nil means the profile default.
	EmbedTextures *bool `yaml:"embed_textures,omitempty"`
}

// CacheConfig configures the build cache.
type CacheConfig struct {
	// Enabled turns the cache on. A disabled cache never hits and
	// never writes.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Compression is the entry compression: none, lz4, or zstd.
	Compression string `yaml:"compression"`
}

// BuildConfig configures rasterization and scheduling.
type BuildConfig struct {
	// ExportDPI overrides the profile rasterization DPI when positive.
	ExportDPI int `yaml:"export_dpi"`

	// Scale overrides the profile size multiplier when positive.
	Scale int `yaml:"scale"`

	// Pad is the transparent margin around every atlas tile.
	Pad int `yaml:"pad"`

	// Workers bounds the parallel worker pool. Zero means
	// min(NumCPU, 4).
	Workers int `yaml:"workers"`
}

// RasterizerConfig configures the external vector rasterizer.
type RasterizerConfig struct {
	// Command is the executable, resolved through PATH when relative.
	Command string `yaml:"command"`

	// Args are passed to Command with {input}, {output}, {dpi}, and
	// {screen} replaced per request.
	Args []string `yaml:"args"`
}

// Default returns the default configuration. Paths are expressed
// relative to ${YOKOI_ROOT} and expanded by [LoadFile] or [Finalize].
func Default() *Config {
	enabled := true
	return &Config{
		Target: "3ds",
		Paths: PathsConfig{
			Root:           ".",
			Manifest:       "${YOKOI_ROOT}/games_${YOKOI_TARGET}.yaml",
			Games:          "${YOKOI_ROOT}/out/${YOKOI_TARGET}/GW_ROM",
			Graphics:       "${YOKOI_ROOT}/out/${YOKOI_TARGET}/gfx",
			GlobalHeader:   "${YOKOI_ROOT}/out/${YOKOI_TARGET}/GW_ALL.h",
			PackDir:        "${YOKOI_ROOT}/out/${YOKOI_TARGET}",
			Cache:          "${YOKOI_ROOT}/tmp/cache",
			Work:           "${YOKOI_ROOT}/tmp/img",
			DefaultConsole: "${YOKOI_ROOT}/rom/default.png",
		},
		Pack: PackConfig{
			Name:           "yokoi",
			FormatVersion:  2,
			ContentVersion: 1,
		},
		Cache: CacheConfig{
			Enabled:     &enabled,
			Compression: "zstd",
		},
		Build: BuildConfig{
			Pad: 1,
		},
		Rasterizer: RasterizerConfig{
			Command: "yokoi-rasterize",
			Args:    []string{"--dpi", "{dpi}", "--screen", "{screen}", "--output", "{output}", "{input}"},
		},
	}
}

// Load loads configuration from the YOKOI_CONFIG environment variable.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfig)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your yokoi.yaml config file, or use --config", EnvConfig)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, applies the
// matching target section, and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Finalize()
	return cfg, nil
}

// LoadTarget loads the configuration for a command line: the file at
// path (the defaults when path is empty) with target, when non-empty,
// replacing the file's target before target sections and variables are
// applied.
func LoadTarget(path, target string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if target != "" {
		cfg.Target = target
	}
	cfg.Finalize()
	return cfg, nil
}

// Finalize applies the target overrides and expands variables. It is
// called by [LoadFile]; callers that build a Config in code (or change
// Target after loading) call it themselves.
func (c *Config) Finalize() {
	c.applyTargetOverrides()
	c.expandVariables()
}

// CacheEnabled reports whether the build cache is on.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// applyTargetOverrides merges the section for the selected target.
func (c *Config) applyTargetOverrides() {
	overrides := c.Targets[c.Target]
	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		mergeString(&c.Paths.Root, overrides.Paths.Root)
		mergeString(&c.Paths.Manifest, overrides.Paths.Manifest)
		mergeString(&c.Paths.Games, overrides.Paths.Games)
		mergeString(&c.Paths.Graphics, overrides.Paths.Graphics)
		mergeString(&c.Paths.GlobalHeader, overrides.Paths.GlobalHeader)
		mergeString(&c.Paths.IncludeDir, overrides.Paths.IncludeDir)
		mergeString(&c.Paths.PackDir, overrides.Paths.PackDir)
		mergeString(&c.Paths.Cache, overrides.Paths.Cache)
		mergeString(&c.Paths.Work, overrides.Paths.Work)
		mergeString(&c.Paths.DefaultConsole, overrides.Paths.DefaultConsole)
	}

	if overrides.Pack != nil {
		mergeString(&c.Pack.Name, overrides.Pack.Name)
		if overrides.Pack.FormatVersion != 0 {
			c.Pack.FormatVersion = overrides.Pack.FormatVersion
		}
		if overrides.Pack.ContentVersion != 0 {
			c.Pack.ContentVersion = overrides.Pack.ContentVersion
		}
		if overrides.Pack.EmbedTextures != nil {
			c.Pack.EmbedTextures = overrides.Pack.EmbedTextures
		}
	}

	if overrides.Cache != nil {
		if overrides.Cache.Enabled != nil {
			c.Cache.Enabled = overrides.Cache.Enabled
		}
		mergeString(&c.Cache.Compression, overrides.Cache.Compression)
	}

	if overrides.Build != nil {
		if overrides.Build.ExportDPI != 0 {
			c.Build.ExportDPI = overrides.Build.ExportDPI
		}
		if overrides.Build.Scale != 0 {
			c.Build.Scale = overrides.Build.Scale
		}
		if overrides.Build.Pad != 0 {
			c.Build.Pad = overrides.Build.Pad
		}
		if overrides.Build.Workers != 0 {
			c.Build.Workers = overrides.Build.Workers
		}
	}

	if overrides.Rasterizer != nil {
		mergeString(&c.Rasterizer.Command, overrides.Rasterizer.Command)
		if len(overrides.Rasterizer.Args) > 0 {
			c.Rasterizer.Args = overrides.Rasterizer.Args
		}
	}
}

func mergeString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"YOKOI_ROOT":   c.Paths.Root,
		"YOKOI_TARGET": c.Target,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["YOKOI_ROOT"] = c.Paths.Root

	for _, field := range []*string{
		&c.Paths.Manifest,
		&c.Paths.Games,
		&c.Paths.Graphics,
		&c.Paths.GlobalHeader,
		&c.Paths.PackDir,
		&c.Paths.Cache,
		&c.Paths.Work,
		&c.Paths.DefaultConsole,
		&c.Rasterizer.Command,
	} {
		*field = expandVars(*field, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then the process environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := Profiles[c.Target]; !ok {
		errs = append(errs, fmt.Errorf("unknown target %q (valid targets: %s)", c.Target, profileNames()))
	}

	for name, value := range map[string]string{
		"paths.manifest":      c.Paths.Manifest,
		"paths.games":         c.Paths.Games,
		"paths.graphics":      c.Paths.Graphics,
		"paths.global_header": c.Paths.GlobalHeader,
		"paths.pack_dir":      c.Paths.PackDir,
		"paths.work":          c.Paths.Work,
		"pack.name":           c.Pack.Name,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	if c.CacheEnabled() && c.Paths.Cache == "" {
		errs = append(errs, errors.New("paths.cache is required when the cache is enabled"))
	}

	if c.Pack.FormatVersion != 2 && c.Pack.FormatVersion != 3 {
		errs = append(errs, fmt.Errorf("pack.format_version must be 2 or 3, got %d", c.Pack.FormatVersion))
	}

	switch c.Cache.Compression {
	case "", "none", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Errorf("cache.compression must be one of none, lz4, zstd; got %q", c.Cache.Compression))
	}

	if c.Build.Pad < 0 {
		errs = append(errs, fmt.Errorf("build.pad must not be negative, got %d", c.Build.Pad))
	}
	if c.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers must not be negative, got %d", c.Build.Workers))
	}

	if c.Rasterizer.Command == "" {
		errs = append(errs, errors.New("rasterizer.command is required"))
	}

	for name := range c.Targets {
		if _, ok := Profiles[name]; !ok {
			errs = append(errs, fmt.Errorf("targets.%s does not name a known target", name))
		}
	}

	return errors.Join(errs...)
}
