// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestDistance is the largest edit distance still suggested.
const maxSuggestDistance = 3

// suggestCommand returns the subcommand closest to unknown, or "".
func suggestCommand(unknown string, commands []*Command) string {
	best := ""
	bestDistance := maxSuggestDistance + 1
	for _, command := range commands {
		if distance := levenshtein(unknown, command.Name); distance < bestDistance {
			bestDistance = distance
			best = command.Name
		}
	}
	return best
}

// suggestFlag finds the first undefined flag in args and returns the
// closest defined flag with its prefix, or "".
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
			continue
		}
		long := strings.HasPrefix(arg, "--")
		name := strings.TrimLeft(arg, "-")
		if index := strings.IndexByte(name, '='); index >= 0 {
			name = name[:index]
		}
		if long && flagSet.Lookup(name) != nil {
			continue
		}
		if !long && len(name) > 0 && flagSet.ShorthandLookup(name[:1]) != nil {
			continue
		}

		best := ""
		bestDistance := maxSuggestDistance + 1
		flagSet.VisitAll(func(f *pflag.Flag) {
			if distance := levenshtein(name, f.Name); distance < bestDistance {
				bestDistance = distance
				best = f.Name
			}
		})
		if best == "" {
			return ""
		}
		return "--" + best
	}
	return ""
}

// levenshtein computes the edit distance between a and b using a
// single row of the distance matrix.
func levenshtein(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return len(b)
	}

	previous := make([]int, len(a)+1)
	current := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}
	for j := 1; j <= len(b); j++ {
		current[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous, current = current, previous
	}
	return previous[len(a)]
}
