// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the yokoi-pack command tree.
package commands

import "github.com/retrovalou/yokoi/cmd/yokoi-pack/cli"

// Root builds and returns the complete yokoi-pack command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "yokoi-pack",
		Description: `yokoi-pack: Game & Watch ROM pack builder.

Rasterizes each title's artwork, packs the segment atlases, generates
the C++ sources, and writes the YKP1 pack the emulator loads.`,
		Subcommands: []*cli.Command{
			buildCommand(),
			inspectCommand(),
			cacheCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Build every title for the 3DS",
				Command:     "yokoi-pack build --config yokoi.yaml",
			},
			{
				Description: "Rebuild one title for the handheld Android target, ignoring the cache",
				Command:     "yokoi-pack build --target rgds --game gnw_ball --clean",
			},
			{
				Description: "List the titles in a pack",
				Command:     "yokoi-pack inspect out/3ds/yokoi.ykp",
			},
		},
	}
}
