// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"time"

	"github.com/retrovalou/yokoi/lib/buildcache"
	"github.com/retrovalou/yokoi/lib/record"
)

// Status is the outcome for one title.
type Status string

const (
	// StatusBuilt means the title was rebuilt this run.
	StatusBuilt Status = "built"

	// StatusCached means the cache supplied the title's metadata.
	StatusCached Status = "cached"

	// StatusFailed means the title is missing from the pack.
	StatusFailed Status = "failed"

	// StatusSkipped means the title was not selected and the cache
	// had nothing usable for it.
	StatusSkipped Status = "skipped"
)

// TitleResult is what happened to one title.
type TitleResult struct {
	Key    string
	Status Status

	// Cache is the lookup that decided whether to rebuild.
	Cache buildcache.Lookup

	// Err is set for failed titles.
	Err error

	// Missing lists absent inputs as "Kind: path" when Err wraps
	// [ErrMissingInput].
	Missing []string

	Metadata record.Metadata
	Duration time.Duration
}

// Included reports whether the title goes into the pack.
func (r TitleResult) Included() bool {
	return r.Status == StatusBuilt || r.Status == StatusCached
}

// Report summarizes a run.
type Report struct {
	Target string

	// Titles has one entry per manifest title, in manifest order.
	Titles []TitleResult

	GlobalHeader      string
	PackPath          string
	VersionedPackPath string
	PackSize          int
	SharedFiles       int

	Duration time.Duration
}

// Count returns the number of titles with the given status.
func (r *Report) Count(status Status) int {
	count := 0
	for _, result := range r.Titles {
		if result.Status == status {
			count++
		}
	}
	return count
}

// Succeeded returns the number of titles that go into the pack.
func (r *Report) Succeeded() int {
	return r.Count(StatusBuilt) + r.Count(StatusCached)
}

// Failed returns the failed titles.
func (r *Report) Failed() []TitleResult {
	var failed []TitleResult
	for _, result := range r.Titles {
		if result.Status == StatusFailed {
			failed = append(failed, result)
		}
	}
	return failed
}

func (r *Report) includedKeys() []string {
	var keys []string
	for _, result := range r.Titles {
		if result.Included() {
			keys = append(keys, result.Key)
		}
	}
	return keys
}
