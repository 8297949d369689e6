// suggest.go - "did you mean" suggestions for mistyped commands.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import "strings"

var validCommands = []string{
	"ask",
	"chat",
	"models",
	"sessions",
	"config",
	"setup",
	"status",
	"serve",
	"version",
	"help",
}

// SuggestCommand returns the closest known command within edit distance 2,
// or "" when nothing is close enough.
func SuggestCommand(input string) string {
	input = strings.ToLower(input)

	best := ""
	bestDist := 3
	for _, cmd := range validCommands {
		if d := levenshteinDistance(input, cmd); d < bestDist {
			best = cmd
			bestDist = d
		}
	}
	return best
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
