// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces files so that readers see either the old
// content or the new content, never a torn write.
//
// [WriteFile] writes to a temporary file in the destination directory,
// syncs it, renames it over the destination, and syncs the directory.
// A failure at any step removes the temporary file and leaves the
// destination untouched.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile atomically replaces path with data. The parent directory
// must exist.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	directory := filepath.Dir(path)
	file, err := os.CreateTemp(directory, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	// Write, sync, chmod, close, in that order.
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := file.Chmod(perm); err != nil {
		file.Close()
		return fmt.Errorf("setting mode on temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("renaming into place at %s: %w", path, err)
	}
	success = true

	// Make the rename durable across power loss.
	if parent, err := os.Open(directory); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}
