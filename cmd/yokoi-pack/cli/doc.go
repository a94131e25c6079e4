// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for yokoi-pack.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree by the commands
// package and dispatched via [Command.Execute], which handles flag
// parsing, subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3).
//
// [FlagsFromParams] binds a tagged parameter struct to a flag set, and
// [NewCommandLogger] builds the logger handed to every Run function.
package cli
