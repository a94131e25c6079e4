// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrLocked means another build is writing to the same pack
// directory.
var ErrLocked = errors.New("another build holds the pack directory lock")

// lockFileName is created in the pack directory and never removed.
const lockFileName = ".yokoi-build.lock"

// lockDirectory takes an exclusive, non-blocking flock on the
// directory's lock file. The returned function releases it.
func lockDirectory(directory string) (func(), error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating pack directory: %w", err)
	}
	path := filepath.Join(directory, lockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening build lock: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return func() {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
	}, nil
}
