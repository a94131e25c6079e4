// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
)

// Command is one node of the yokoi-pack command tree. A node either
// runs something or groups subcommands; when it has both, Run handles
// arguments that name no subcommand.
type Command struct {
	Name string

	// Summary is the one-liner listed under the parent's Commands.
	Summary string

	// Description replaces Summary at the top of the command's own help.
	Description string

	// Usage overrides the synthesized usage line.
	Usage string

	Examples []Example

	// Flags builds a fresh flag set on every call. Nil means no flags.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run gets the arguments left after flag parsing. ctx is cancelled
	// on SIGINT or SIGTERM.
	Run func(ctx context.Context, args []string, logger *slog.Logger) error

	parent *Command

	// stderr overrides where help goes; the nearest ancestor that sets
	// it wins, then os.Stderr.
	stderr io.Writer
}

// Example is one entry of the Examples help section.
type Example struct {
	Description string
	Command     string
}

// Execute routes args down the tree and runs the selected command.
func (c *Command) Execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.helpOutput())
		return nil
	}

	if len(c.Subcommands) > 0 {
		if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
			sub, err := c.subcommand(args[0])
			if err != nil {
				return err
			}
			return sub.Execute(args[1:])
		}
		if c.Run == nil {
			c.PrintHelp(c.helpOutput())
			if len(args) == 0 {
				return errors.New("subcommand required")
			}
			return fmt.Errorf("subcommand required (got flag %q)", args[0])
		}
	}

	args, err := c.parseFlags(args)
	if err != nil {
		return err
	}
	if c.Run == nil {
		c.PrintHelp(c.helpOutput())
		return fmt.Errorf("no action defined for %q", c.fullName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.Run(ctx, args, NewCommandLogger().With("command", c.fullName()))
}

func (c *Command) subcommand(name string) (*Command, error) {
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			sub.parent = c
			return sub, nil
		}
	}
	if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
		return nil, c.usageError(fmt.Sprintf("unknown command %q (did you mean %q?)", name, suggestion))
	}
	return nil, c.usageError(fmt.Sprintf("unknown command %q", name))
}

// parseFlags returns the positional arguments left after parsing. pflag
// stays quiet; parse errors come back with a flag suggestion when one
// is close enough.
func (c *Command) parseFlags(args []string) ([]string, error) {
	if c.Flags == nil {
		return args, nil
	}
	flagSet := c.Flags()
	flagSet.SetOutput(io.Discard)
	if err := flagSet.Parse(args); err != nil {
		message := err.Error()
		if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand") {
			// The failed parse may have left state behind; look the
			// suggestion up in a fresh set.
			if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
				message = fmt.Sprintf("%s (did you mean %s?)", message, suggestion)
			}
		}
		return nil, c.usageError(message)
	}
	return flagSet.Args(), nil
}

func (c *Command) usageError(message string) error {
	return fmt.Errorf("%s\n\nRun '%s --help' for usage.", message, c.fullName())
}

// PrintHelp writes the command's help page to w: description, usage,
// then whichever of the Commands, Flags and Examples sections apply.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	if text := cmp.Or(c.Description, c.Summary); text != "" {
		fmt.Fprintf(w, "%s\n\n", text)
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", c.usageLine(name))

	if len(c.Subcommands) > 0 {
		writeCommandList(w, c.Subcommands)
	}
	if defaults := c.flagDefaults(); defaults != "" {
		fmt.Fprintf(w, "\nFlags:\n%s", defaults)
	}
	if len(c.Examples) > 0 {
		writeExamples(w, c.Examples)
	}
	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for the flags of a command.\n", name)
	}
}

func (c *Command) usageLine(name string) string {
	switch {
	case c.Usage != "":
		return c.Usage
	case len(c.Subcommands) > 0:
		return name + " <command> [flags]"
	default:
		return name + " [flags]"
	}
}

func (c *Command) flagDefaults() string {
	if c.Flags == nil {
		return ""
	}
	var defaults strings.Builder
	flagSet := c.Flags()
	flagSet.SetOutput(&defaults)
	flagSet.PrintDefaults()
	return defaults.String()
}

func writeCommandList(w io.Writer, commands []*Command) {
	width := 0
	for _, sub := range commands {
		width = max(width, len(sub.Name))
	}
	fmt.Fprintln(w, "\nCommands:")
	for _, sub := range commands {
		fmt.Fprintf(w, "  %-*s   %s\n", width, sub.Name, sub.Summary)
	}
}

func writeExamples(w io.Writer, examples []Example) {
	fmt.Fprintln(w, "\nExamples:")
	for index, example := range examples {
		if index > 0 {
			fmt.Fprintln(w)
		}
		if example.Description != "" {
			fmt.Fprintf(w, "  # %s\n", example.Description)
		}
		fmt.Fprintf(w, "  %s\n", example.Command)
	}
}

// fullName is the command path from the root, e.g.
// "yokoi-pack cache invalidate".
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func (c *Command) helpOutput() io.Writer {
	for command := c; command != nil; command = command.parent {
		if command.stderr != nil {
			return command.stderr
		}
	}
	return os.Stderr
}

func isHelpFlag(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}
