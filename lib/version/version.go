// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/retrovalou/yokoi/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Current returns the running binary's build information. Values not
// injected with -ldflags fall back to the VCS stamp the go command
// records, when there is one.
func Current() Build {
	build := Build{
		Version:   Version,
		Commit:    GitCommit,
		Dirty:     GitDirty == "true",
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		build.applyVCS(info.Settings)
	}
	return build
}

func (b *Build) applyVCS(settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if b.Commit == "unknown" && len(setting.Value) >= 7 {
				b.Commit = setting.Value[:7]
			}
		case "vcs.time":
			if b.BuildTime == "unknown" {
				b.BuildTime = setting.Value
			}
		case "vcs.modified":
			if setting.Value == "true" {
				b.Dirty = true
			}
		}
	}
}

// String is the one-line form used by --version output.
func (b Build) String() string {
	dirty := ""
	if b.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", b.Version, b.Commit, dirty, b.BuildTime)
}

// Full returns the one-line form followed by the Go version and
// platform.
func (b Build) Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s", b, b.GoVersion, b.Platform)
}
