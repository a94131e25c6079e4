// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrToolFailed marks a rasterizer process that could not run or
// exited non-zero. The error text carries the tool's stderr.
var ErrToolFailed = errors.New("rasterizer failed")

// Request asks for the layers of one vector file.
type Request struct {
	// Input is the vector artwork for one screen.
	Input string

	// Screen is written into every layer name.
	Screen int

	// DPI is the export resolution.
	DPI int

	// Output is the directory receiving the layers. It is created if
	// needed.
	Output string
}

// Rasterizer renders batches of requests. Requests in a batch are
// independent; an implementation may run them in any order.
type Rasterizer interface {
	Rasterize(ctx context.Context, requests []Request) error
}

// Command runs an external rasterizer once per request.
type Command struct {
	// Path is the executable, looked up in PATH when it has no
	// separator.
	Path string

	// Args are the arguments with {input}, {output}, {dpi}, and
	// {screen} replaced per request.
	Args []string

	Logger *slog.Logger
}

// Rasterize runs the tool for each request in order and stops at the
// first failure.
func (c *Command) Rasterize(ctx context.Context, requests []Request) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, request := range requests {
		if err := os.MkdirAll(request.Output, 0o755); err != nil {
			return fmt.Errorf("creating layer directory: %w", err)
		}
		args := c.expand(request)
		var stdout, stderr bytes.Buffer
		command := exec.CommandContext(ctx, c.Path, args...)
		command.Stdout = &stdout
		command.Stderr = &stderr

		logger.Debug("rasterizing", "input", request.Input, "screen", request.Screen, "dpi", request.DPI)
		if err := command.Run(); err != nil {
			return fmt.Errorf("%w: %s %s: %w (stderr: %s)",
				ErrToolFailed, c.Path, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
		}
	}
	return nil
}

func (c *Command) expand(request Request) []string {
	replacer := strings.NewReplacer(
		"{input}", request.Input,
		"{output}", request.Output,
		"{dpi}", strconv.Itoa(request.DPI),
		"{screen}", strconv.Itoa(request.Screen),
	)
	args := make([]string, len(c.Args))
	for index, arg := range c.Args {
		args[index] = replacer.Replace(arg)
	}
	return args
}
