// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package buildcache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/retrovalou/yokoi/lib/atomicfile"
	"github.com/retrovalou/yokoi/lib/clock"
	"github.com/retrovalou/yokoi/lib/codec"
	"github.com/retrovalou/yokoi/lib/compress"
	"github.com/retrovalou/yokoi/lib/config"
	"github.com/retrovalou/yokoi/lib/record"
	"github.com/retrovalou/yokoi/lib/title"
)

// Config configures a [Cache].
type Config struct {
	// Directory holds the entry files.
	Directory string

	// Enabled turns the cache on. A disabled cache never hits and never
	// writes.
	Enabled bool

	// Clean makes every lookup miss while still storing fresh entries.
	Clean bool

	// Compression is applied to entries when they are written.
	Compression compress.Tag

	// Knobs are the resolved global build parameters; they are part of
	// every signature.
	Knobs config.Knobs

	// GamesDir and GraphicsDir are where the build writes a title's
	// source files and textures.
	GamesDir    string
	GraphicsDir string

	// Clock stamps entries. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives miss reasons and swallowed I/O errors. Defaults
	// to slog.Default().
	Logger *slog.Logger

	// Open opens an input file for hashing. Defaults to os.Open.
	Open func(path string) (io.ReadCloser, error)
}

// Reason says why a lookup missed.
type Reason string

const (
	ReasonDisabled  Reason = "disabled"
	ReasonClean     Reason = "clean"
	ReasonAbsent    Reason = "absent"
	ReasonCorrupt   Reason = "corrupt"
	ReasonInputs    Reason = "inputs"
	ReasonSignature Reason = "signature"
	ReasonOutputs   Reason = "outputs"
)

// Lookup is the result of [Cache.TryLoad].
type Lookup struct {
	Hit      bool
	Metadata record.Metadata

	// Reason is set on a miss.
	Reason Reason

	// Changes lists the differing signature fields for a
	// [ReasonSignature] miss, at most 25 lines.
	Changes []string

	// MissingOutputs lists absent output files for a [ReasonOutputs]
	// miss.
	MissingOutputs []string
}

// Cache is the per-title build cache for one target. It is safe for
// concurrent use by build workers.
type Cache struct {
	config Config
	logger *slog.Logger

	mu    sync.Mutex
	hints map[string]Hint
}

// New returns a cache for cfg. It touches the filesystem only to
// create the cache directory when enabled.
func New(cfg Config) *Cache {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Open == nil {
		cfg.Open = openFile
	}
	cache := &Cache{
		config: cfg,
		logger: cfg.Logger.With("component", "buildcache", "target", cfg.Knobs.Target),
		hints:  make(map[string]Hint),
	}
	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			cache.logger.Warn("creating cache directory", "directory", cfg.Directory, "error", err)
		}
	}
	return cache
}

// EntryPath returns the entry file for a title key.
func (c *Cache) EntryPath(key string) string {
	return filepath.Join(c.config.Directory, fmt.Sprintf("gamecache_%s_%s.cbor", c.config.Knobs.Target, key))
}

// TryLoad returns the stored metadata for a title when the entry is
// still valid for the title's current options and inputs.
func (c *Cache) TryLoad(options title.Options) Lookup {
	key := options.Key
	if !c.config.Enabled {
		return Lookup{Reason: ReasonDisabled}
	}
	if c.config.Clean {
		return Lookup{Reason: ReasonClean}
	}

	entry, err := c.read(key)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("no cache entry", "key", key)
		return Lookup{Reason: ReasonAbsent}
	}
	if err != nil {
		c.logger.Info("rebuilding title: unreadable cache entry", "key", key, "error", err)
		return Lookup{Reason: ReasonCorrupt}
	}
	c.remember(entry.Hints...)

	current, _, err := c.signature(options)
	if err != nil {
		c.logger.Info("rebuilding title: cannot fingerprint inputs", "key", key, "error", err)
		return Lookup{Reason: ReasonInputs}
	}
	if !sameSignature(entry.Signature, current) {
		changes := describeChanges(entry.Signature, current)
		c.logger.Info("rebuilding title: signature changed", "key", key, "changes", changes)
		return Lookup{Reason: ReasonSignature, Changes: changes}
	}

	if missing := c.MissingOutputs(options); len(missing) > 0 {
		c.logger.Info("rebuilding title: outputs missing", "key", key, "missing", missing)
		return Lookup{Reason: ReasonOutputs, MissingOutputs: missing}
	}

	return Lookup{Hit: true, Metadata: entry.Metadata}
}

// Store records metadata as the result of building a title with its
// current options and inputs. Failures are logged, never returned.
func (c *Cache) Store(options title.Options, metadata record.Metadata) {
	if !c.config.Enabled {
		return
	}
	key := options.Key
	signature, hints, err := c.signature(options)
	if err != nil {
		c.logger.Warn("not caching title", "key", key, "error", err)
		return
	}
	entry := Entry{
		Signature: signature,
		Hints:     hints,
		Metadata:  metadata,
		WrittenAt: c.config.Clock.Now().Unix(),
	}
	if err := c.write(key, entry); err != nil {
		c.logger.Warn("writing cache entry", "key", key, "error", err)
	}
}

// Invalidate removes a title's entry. A missing entry is not an error.
func (c *Cache) Invalidate(key string) {
	err := os.Remove(c.EntryPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("removing cache entry", "key", key, "error", err)
	}
}

// ReadEntry decodes a title's stored entry.
func (c *Cache) ReadEntry(key string) (Entry, error) {
	return c.read(key)
}

// ExpectedOutputs returns every file building the title writes, in a
// fixed order: source and header, then the segment, console, and (when
// the title has one) background texture with its descriptor.
func (c *Cache) ExpectedOutputs(options title.Options) []string {
	return ExpectedOutputs(c.config.GamesDir, c.config.GraphicsDir, options)
}

// ExpectedOutputs is [Cache.ExpectedOutputs] for explicit directories.
func ExpectedOutputs(gamesDir, graphicsDir string, options title.Options) []string {
	key := options.Key
	outputs := []string{
		filepath.Join(gamesDir, key+".cpp"),
		filepath.Join(gamesDir, key+".h"),
	}
	kinds := []string{record.KindSegment, record.KindConsole}
	if options.HasBackground() {
		kinds = append(kinds, record.KindBackground)
	}
	for _, kind := range kinds {
		outputs = append(outputs,
			filepath.Join(graphicsDir, record.TextureFile(kind, key)),
			filepath.Join(graphicsDir, record.DescriptorFile(kind, key)),
		)
	}
	return outputs
}

// MissingOutputs returns the expected outputs that are not on disk.
func (c *Cache) MissingOutputs(options title.Options) []string {
	var missing []string
	for _, path := range c.ExpectedOutputs(options) {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	return missing
}

func (c *Cache) read(key string) (Entry, error) {
	framed, err := os.ReadFile(c.EntryPath(key))
	if err != nil {
		return Entry{}, err
	}
	data, err := compress.Unframe(framed)
	if err != nil {
		return Entry{}, fmt.Errorf("unframing cache entry: %w", err)
	}
	var entry Entry
	if err := codec.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("decoding cache entry: %w", err)
	}
	return entry, nil
}

func (c *Cache) write(key string, entry Entry) error {
	data, err := codec.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	framed, err := compress.Frame(data, c.config.Compression)
	if err != nil {
		return fmt.Errorf("compressing cache entry: %w", err)
	}
	if err := os.MkdirAll(c.config.Directory, 0o755); err != nil {
		return err
	}
	return atomicfile.WriteFile(c.EntryPath(key), framed, 0o644)
}

// sameSignature compares signatures by their deterministic encoding,
// which covers every field in order.
func sameSignature(stored, current Signature) bool {
	storedBytes, err := codec.Marshal(stored)
	if err != nil {
		return false
	}
	currentBytes, err := codec.Marshal(current)
	if err != nil {
		return false
	}
	return bytes.Equal(storedBytes, currentBytes)
}
