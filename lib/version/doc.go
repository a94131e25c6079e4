// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the yokoi-pack build.
//
// [GitCommit], [GitDirty], [BuildTime], and [Version] are injected
// with -ldflags -X. A development build that skips the injection
// still gets its commit and time from the go command's VCS stamp
// through [Current].
package version
