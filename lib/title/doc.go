// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package title turns hand-written manifest entries into validated,
// fully defaulted per-title build options.
//
// A manifest lists titles as YAML (games.yaml) or as JSON with
// comments (games.jsonc). Each [Entry] carries only what the author
// wrote; optional fields are pointers or empty slices. [Resolve]
// applies every default exactly once, producing an [Options] value
// that the rest of the build (the cache signature included) treats as
// read-only. Two builds that resolve the same entry against the same
// knobs get structurally equal Options, which is what makes cache
// signatures stable.
package title
