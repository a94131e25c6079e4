// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildcache decides whether a title's pack metadata from a
// previous run can be reused, and persists it after a rebuild.
//
// Each title has one entry per target, stored as
// gamecache_<target>_<key>.cbor in the cache directory. An entry holds
// the signature the metadata was built from, the file hints gathered
// while computing it, the metadata itself, and a timestamp. The file
// is a [compress] frame around deterministic CBOR, written atomically.
//
// A lookup hits only when all of these hold:
//
//   - the build is not running in clean mode
//   - the stored signature equals a freshly computed one, covering the
//     schema version, the global knobs, every resolved title option,
//     and the existence, size, and content digest of every input file
//   - every output file the title's current options produce is still
//     on disk
//
// Content digests are BLAKE3 over the full file. A hint records the
// size and modification time a digest was computed at; while both
// still match, the digest is reused without reading the file again.
//
// The cache never fails a build. Unreadable entries are misses, and
// write or delete failures are logged and otherwise ignored.
package buildcache
