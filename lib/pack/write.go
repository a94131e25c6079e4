// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/retrovalou/yokoi/lib/atomicfile"
)

// ErrWrite marks failures to publish a pack. The run fails when it
// sees one; the canonical file keeps its previous content.
var ErrWrite = errors.New("writing pack")

// Names are the two filenames a pack is published under.
type Names struct {
	Versioned string
	Canonical string
}

// FileNames returns the names for a pack with the given base name:
// "<base>.v<format>-c<content>.ykp" and "<base>.ykp".
func FileNames(base string, header Header) Names {
	return Names{
		Versioned: fmt.Sprintf("%s.v%d-c%d.ykp", base, header.FormatVersion, header.ContentVersion),
		Canonical: base + ".ykp",
	}
}

// WriteFiles publishes data in directory: first the versioned file,
// then, only if that succeeded, the canonical file. Both writes are
// atomic. Every error wraps [ErrWrite].
func WriteFiles(directory string, names Names, data []byte) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrWrite, directory, err)
	}
	if err := atomicfile.WriteFile(filepath.Join(directory, names.Versioned), data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := atomicfile.WriteFile(filepath.Join(directory, names.Canonical), data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
