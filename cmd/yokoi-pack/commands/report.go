// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/retrovalou/yokoi/lib/build"
)

// reportStyles color the end-of-run report. The zero value renders
// plain text.
type reportStyles struct {
	heading lipgloss.Style
	status  map[build.Status]lipgloss.Style
	faint   lipgloss.Style
}

func newReportStyles(color bool) reportStyles {
	if !color {
		return reportStyles{}
	}
	return reportStyles{
		heading: lipgloss.NewStyle().Bold(true),
		status: map[build.Status]lipgloss.Style{
			build.StatusBuilt:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
			build.StatusCached:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
			build.StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			build.StatusSkipped: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		},
		faint: lipgloss.NewStyle().Faint(true),
	}
}

func (s reportStyles) render(style lipgloss.Style, ok bool, text string) string {
	if !ok {
		return text
	}
	return style.Render(text)
}

// renderReport writes one line per title followed by the failures and
// a summary.
func renderReport(w io.Writer, report *build.Report, color bool) {
	styles := newReportStyles(color)

	keyWidth := 0
	for _, result := range report.Titles {
		keyWidth = max(keyWidth, lipgloss.Width(result.Key))
	}

	fmt.Fprintln(w, styles.render(styles.heading, color, "Build report ("+report.Target+")"))
	for _, result := range report.Titles {
		style, ok := styles.status[result.Status]
		status := styles.render(style, ok && color, fmt.Sprintf("%-7s", result.Status))
		detail := ""
		switch result.Status {
		case build.StatusBuilt:
			detail = fmt.Sprintf("%d segments, %s", len(result.Metadata.Segments), result.Duration.Round(time.Millisecond))
			if result.Cache.Reason != "" {
				detail += ", cache " + string(result.Cache.Reason)
			}
		case build.StatusCached:
			detail = fmt.Sprintf("%d segments", len(result.Metadata.Segments))
		case build.StatusFailed:
			detail = result.Err.Error()
		}
		fmt.Fprintf(w, "  %-*s  %s  %s\n", keyWidth, result.Key, status, styles.render(styles.faint, color, detail))
		for _, change := range result.Cache.Changes {
			fmt.Fprintf(w, "  %*s    %s\n", keyWidth, "", styles.render(styles.faint, color, change))
		}
	}

	if failed := report.Failed(); len(failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.render(styles.heading, color, "Failed titles"))
		for _, result := range failed {
			fmt.Fprintf(w, "  %s: %v\n", result.Key, result.Err)
			for _, missing := range result.Missing {
				fmt.Fprintf(w, "    missing %s\n", missing)
			}
		}
	}

	fmt.Fprintln(w)
	summary := []string{
		fmt.Sprintf("%d built", report.Count(build.StatusBuilt)),
		fmt.Sprintf("%d cached", report.Count(build.StatusCached)),
		fmt.Sprintf("%d failed", report.Count(build.StatusFailed)),
	}
	if skipped := report.Count(build.StatusSkipped); skipped > 0 {
		summary = append(summary, fmt.Sprintf("%d skipped", skipped))
	}
	fmt.Fprintf(w, "%s in %s\n", strings.Join(summary, ", "), report.Duration.Round(time.Millisecond))
	if report.PackPath != "" {
		fmt.Fprintf(w, "Pack: %s (%d bytes, %d shared files)\n", report.PackPath, report.PackSize, report.SharedFiles)
	}
}

func isTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}
