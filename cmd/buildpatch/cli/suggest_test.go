// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"extract", "extract", 0},
		{"extarct", "extract", 2},
		{"inspct", "inspect", 1},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagSet.StringP("output", "o", "", "")
	flagSet.Bool("json", false, "")

	if got := suggestFlag([]string{"-o", "x", "--jsn"}, flagSet); got != "--json" {
		t.Errorf("suggestFlag = %q, want --json", got)
	}
	if got := suggestFlag([]string{"--completely-unrelated"}, flagSet); got != "" {
		t.Errorf("suggestFlag = %q, want none", got)
	}
	if got := suggestFlag([]string{"--", "--jsn"}, flagSet); got != "" {
		t.Errorf("suggestFlag after -- = %q, want none", got)
	}
}
