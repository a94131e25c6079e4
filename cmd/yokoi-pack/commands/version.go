// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/retrovalou/yokoi/cmd/yokoi-pack/cli"
	"github.com/retrovalou/yokoi/lib/buildcache"
	"github.com/retrovalou/yokoi/lib/pack"
	"github.com/retrovalou/yokoi/lib/version"
)

// versionInfo is the version output: the build plus the file formats
// this binary reads and writes.
type versionInfo struct {
	version.Build
	PackFormats []uint32 `json:"pack_formats"`
	CacheSchema int      `json:"cache_schema"`
}

func versionCommand() *cli.Command {
	var params cli.JSONOutput
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			info := currentVersion()
			if done, err := params.EmitJSON(info); done {
				return err
			}
			writeVersion(os.Stdout, info)
			return nil
		},
	}
}

func currentVersion() versionInfo {
	return versionInfo{
		Build:       version.Current(),
		PackFormats: []uint32{pack.FormatV2, pack.FormatV3},
		CacheSchema: buildcache.SchemaVersion,
	}
}

func writeVersion(w io.Writer, info versionInfo) {
	fmt.Fprintf(w, "yokoi-pack %s\n", info.Full())
	fmt.Fprintf(w, "  Pack formats: %d, %d\n", info.PackFormats[0], info.PackFormats[1])
	fmt.Fprintf(w, "  Cache schema: %d\n", info.CacheSchema)
}
