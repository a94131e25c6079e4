// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for yokoi-pack.
//
// Configuration is loaded from a single file specified by either the
// YOKOI_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). Without either, the command runs on [Default].
// There is no automatic file search.
//
// The configuration file may contain per-target sections under
// "targets" (keyed by profile name, e.g. "3ds" or "rgds") that
// override base values when [Config].Target matches. This is how one
// file describes both the 3DS and the RG DS output trees.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${YOKOI_ROOT}, ${YOKOI_TARGET}, and ${VAR:-default} patterns
// are expanded.
//
// [Profiles] holds the built-in target profiles: screen resolutions,
// console photo geometry, rasterization DPI, and the candidate atlas
// sizes. [Resolve] combines a profile with the configuration overrides
// into [Knobs], the immutable set of global build parameters every
// build step receives. Knobs are part of each cache signature, so
// changing any of them rebuilds every title.
//
// This package depends only on lib/geom.
package config
