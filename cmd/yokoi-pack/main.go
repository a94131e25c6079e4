// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// yokoi-pack builds Game & Watch ROM packs: it rasterizes each title's
// artwork into texture atlases, generates the per-title C++ sources,
// and writes the YKP1 pack file the emulator loads.
package main

import (
	"os"

	"github.com/retrovalou/yokoi/cmd/yokoi-pack/commands"
	"github.com/retrovalou/yokoi/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like build when no
		// title could be built) return an ExitError, which exits without an extra
		// "error:" line.
		process.Exit(err)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
