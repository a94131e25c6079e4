// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/retrovalou/yokoi/cmd/yokoi-pack/cli"
	"github.com/retrovalou/yokoi/lib/pack"
)

type inspectParams struct {
	cli.JSONOutput
}

// packSummary is the inspect output.
type packSummary struct {
	FormatVersion  uint32        `json:"format_version"`
	Platform       uint32        `json:"platform"`
	ContentVersion uint32        `json:"content_version"`
	GamesOffset    uint32        `json:"games_offset"`
	FilesOffset    uint32        `json:"files_offset"`
	DataOffset     uint32        `json:"data_offset"`
	Games          []gameSummary `json:"games"`
	Files          []fileSummary `json:"files"`
}

type gameSummary struct {
	Name           string `json:"name"`
	Ref            string `json:"ref"`
	Date           string `json:"date"`
	ROMBytes       int    `json:"rom_bytes"`
	MelodyBytes    int    `json:"melody_bytes"`
	Segments       int    `json:"segments"`
	SegmentPath    string `json:"segment_path"`
	BackgroundPath string `json:"background_path,omitempty"`
	ConsolePath    string `json:"console_path"`
	Manufacturer   uint32 `json:"manufacturer"`
}

type fileSummary struct {
	Name  string `json:"name"`
	Bytes int    `json:"bytes"`
}

func inspectCommand() *cli.Command {
	var params inspectParams
	return &cli.Command{
		Name:    "inspect",
		Summary: "Describe a pack file",
		Description: `Decode a pack file, validating its layout, and list its titles and
shared files.`,
		Usage: "yokoi-pack inspect [flags] <pack>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return errors.New("inspect takes exactly one pack file")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			decoded, err := pack.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			summary := summarizePack(decoded)
			if done, err := params.EmitJSON(summary); done {
				return err
			}
			return writePackSummary(os.Stdout, summary)
		},
	}
}

func summarizePack(decoded *pack.Pack) packSummary {
	summary := packSummary{
		FormatVersion:  decoded.Header.FormatVersion,
		Platform:       decoded.Header.Platform,
		ContentVersion: decoded.Header.ContentVersion,
		GamesOffset:    decoded.Layout.GamesOffset,
		FilesOffset:    decoded.Layout.FilesOffset,
		DataOffset:     decoded.Layout.DataOffset,
		Games:          make([]gameSummary, len(decoded.Games)),
		Files:          make([]fileSummary, len(decoded.Files)),
	}
	for index, game := range decoded.Games {
		summary.Games[index] = gameSummary{
			Name:           game.Name,
			Ref:            game.Ref,
			Date:           game.Date,
			ROMBytes:       len(game.ROM),
			MelodyBytes:    len(game.Melody),
			Segments:       len(game.Segments),
			SegmentPath:    game.SegmentPath,
			BackgroundPath: game.BackgroundPath,
			ConsolePath:    game.ConsolePath,
			Manufacturer:   game.Manufacturer,
		}
	}
	for index, file := range decoded.Files {
		summary.Files[index] = fileSummary{Name: file.Name, Bytes: len(file.Data)}
	}
	return summary
}

func writePackSummary(w io.Writer, summary packSummary) error {
	fmt.Fprintf(w, "Format %d, platform %d, content version %d\n",
		summary.FormatVersion, summary.Platform, summary.ContentVersion)
	fmt.Fprintf(w, "Games at %d, files at %d, data at %d\n\n",
		summary.GamesOffset, summary.FilesOffset, summary.DataOffset)

	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tREF\tDATE\tROM\tMELODY\tSEGMENTS\tBACKGROUND")
	for _, game := range summary.Games {
		background := "-"
		if game.BackgroundPath != "" {
			background = game.BackgroundPath
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			game.Name, game.Ref, game.Date, game.ROMBytes, game.MelodyBytes, game.Segments, background)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(summary.Files) > 0 {
		fmt.Fprintf(w, "\n%d shared files:\n", len(summary.Files))
		for _, file := range summary.Files {
			fmt.Fprintf(w, "  %s (%d bytes)\n", file.Name, file.Bytes)
		}
	}
	return nil
}
