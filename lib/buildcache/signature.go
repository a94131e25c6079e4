// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package buildcache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/retrovalou/yokoi/lib/config"
	"github.com/retrovalou/yokoi/lib/digest"
	"github.com/retrovalou/yokoi/lib/record"
	"github.com/retrovalou/yokoi/lib/title"
)

// SchemaVersion is the entry layout version. Entries written with any
// other version never hit.
const SchemaVersion = 1

// Signature is the fingerprint a title's metadata was built from.
type Signature struct {
	SchemaVersion int              `cbor:"schema_version"`
	Key           string           `cbor:"key"`
	Target        string           `cbor:"target"`
	Knobs         config.Knobs     `cbor:"knobs"`
	Title         title.Options    `cbor:"title"`
	Inputs        []InputSignature `cbor:"inputs"`
}

// InputSignature identifies the content of one input file.
type InputSignature struct {
	Path   string        `cbor:"path"`
	Exists bool          `cbor:"exists"`
	Size   int64         `cbor:"size"`
	Digest digest.Digest `cbor:"digest"`
}

// Hint remembers the stat result a digest was computed at.
type Hint struct {
	Path    string        `cbor:"path"`
	Exists  bool          `cbor:"exists"`
	Size    int64         `cbor:"size"`
	ModTime int64         `cbor:"mtime_ns"`
	Digest  digest.Digest `cbor:"digest"`
}

// Entry is the persisted form of one title's cache state.
type Entry struct {
	Signature Signature       `cbor:"signature"`
	Hints     []Hint          `cbor:"hints"`
	Metadata  record.Metadata `cbor:"metadata"`

	// WrittenAt is in Unix seconds.
	WrittenAt int64 `cbor:"written_at"`
}

// signature computes the current signature for a title, reusing hinted
// digests where the file's size and modification time are unchanged.
// It also returns the refreshed hints for the title's inputs.
func (c *Cache) signature(options title.Options) (Signature, []Hint, error) {
	inputs := options.Inputs()
	signature := Signature{
		SchemaVersion: SchemaVersion,
		Key:           options.Key,
		Target:        c.config.Knobs.Target,
		Knobs:         c.config.Knobs,
		Title:         options,
		Inputs:        make([]InputSignature, 0, len(inputs)),
	}
	hints := make([]Hint, 0, len(inputs))

	for _, input := range inputs {
		hint, err := c.hint(input.Path)
		if err != nil {
			return Signature{}, nil, err
		}
		hints = append(hints, hint)
		signature.Inputs = append(signature.Inputs, InputSignature{
			Path:   hint.Path,
			Exists: hint.Exists,
			Size:   hint.Size,
			Digest: hint.Digest,
		})
	}
	return signature, hints, nil
}

// hint returns the current hint for path, hashing the file only when
// no matching hint is known.
func (c *Cache) hint(path string) (Hint, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		hint := Hint{Path: path}
		c.remember(hint)
		return hint, nil
	}
	if err != nil {
		return Hint{}, fmt.Errorf("stat %s: %w", path, err)
	}

	current := Hint{
		Path:    path,
		Exists:  true,
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
	}

	c.mu.Lock()
	known, ok := c.hints[path]
	c.mu.Unlock()
	if ok && known.Exists && known.Size == current.Size && known.ModTime == current.ModTime && !known.Digest.IsZero() {
		current.Digest = known.Digest
		return current, nil
	}

	reader, err := c.config.Open(path)
	if err != nil {
		return Hint{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer reader.Close()
	current.Digest, err = digest.Reader(reader)
	if err != nil {
		return Hint{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	c.remember(current)
	return current, nil
}

func (c *Cache) remember(hints ...Hint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, hint := range hints {
		c.hints[hint.Path] = hint
	}
}

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
