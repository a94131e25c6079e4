// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// Closest returns the candidate nearest to unknown by edit distance,
// or "" when none is within 3 edits. Ties keep the earlier candidate.
func Closest(unknown string, candidates []string) string {
	bestName := ""
	bestDistance := 4
	for _, candidate := range candidates {
		if distance := levenshtein(unknown, candidate); distance < bestDistance {
			bestDistance = distance
			bestName = candidate
		}
	}
	return bestName
}

// suggestCommand returns the closest subcommand name to the unknown
// input, or "".
func suggestCommand(unknown string, commands []*Command) string {
	names := make([]string, len(commands))
	for index, command := range commands {
		names[index] = command.Name
	}
	return Closest(unknown, names)
}

// suggestFlag looks at the args for the first unrecognized flag and returns
// the closest defined flag name, formatted with the appropriate prefix
// (-- or -). Returns "" if no good suggestion is found.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	var defined []string
	flagSet.VisitAll(func(f *pflag.Flag) {
		defined = append(defined, f.Name)
	})

	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if index := strings.IndexByte(name, '='); index >= 0 {
			name = name[:index]
		}
		if flagSet.Lookup(name) != nil {
			continue
		}
		if len(name) == 1 && flagSet.ShorthandLookup(name) != nil {
			continue
		}

		if bestName := Closest(name, defined); bestName != "" {
			return "--" + bestName
		}

		// Only check the first unrecognized flag.
		break
	}

	return ""
}

// levenshtein computes the Levenshtein edit distance between two strings.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// A single row of the distance matrix, updated in place.
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}

	for j := 1; j <= len(b); j++ {
		current := make([]int, len(a)+1)
		current[0] = j

		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}

		previous = current
	}

	return previous[len(a)]
}
