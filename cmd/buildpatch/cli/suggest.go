// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// suggestionLimit is the largest edit distance that still earns a
// "did you mean" hint.
const suggestionLimit = 3

// suggestCommand returns the subcommand name nearest to typed, or "".
func suggestCommand(typed string, commands []*Command) string {
	best, bestDistance := "", suggestionLimit+1
	for _, command := range commands {
		if distance := levenshtein(typed, command.Name); distance < bestDistance {
			best, bestDistance = command.Name, distance
		}
	}
	return best
}

// suggestFlag returns "--name" for the defined flag nearest to the
// first flag in args that flagSet does not know, or "" when there is
// no unknown flag or nothing close to it. Arguments after "--" are
// positional and ignored.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	unknown, found := firstUnknownFlag(args, flagSet)
	if !found {
		return ""
	}
	best, bestDistance := "", suggestionLimit+1
	flagSet.VisitAll(func(flag *pflag.Flag) {
		if distance := levenshtein(unknown, flag.Name); distance < bestDistance {
			best, bestDistance = flag.Name, distance
		}
	})
	if best == "" {
		return ""
	}
	return "--" + best
}

func firstUnknownFlag(args []string, flagSet *pflag.FlagSet) (string, bool) {
	for _, arg := range args {
		if arg == "--" {
			return "", false
		}
		name, isFlag := strings.CutPrefix(arg, "-")
		if !isFlag {
			continue
		}
		name = strings.TrimPrefix(name, "-")
		name, _, _ = strings.Cut(name, "=")

		known := flagSet.Lookup(name) != nil
		if len(name) == 1 {
			known = known || flagSet.ShorthandLookup(name) != nil
		}
		if !known {
			return name, true
		}
	}
	return "", false
}

// levenshtein returns the edit distance between a and b, counting
// insertions, deletions and substitutions of bytes.
func levenshtein(a, b string) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	// row[i] holds the distance between a[:i] and the prefix of b
	// processed so far.
	row := make([]int, len(a)+1)
	for i := range row {
		row[i] = i
	}
	for j := range len(b) {
		diagonal := row[0]
		row[0] = j + 1
		for i := range len(a) {
			substitution := diagonal
			if a[i] != b[j] {
				substitution++
			}
			diagonal = row[i+1]
			row[i+1] = min(row[i+1]+1, row[i]+1, substitution)
		}
	}
	return row[len(a)]
}
