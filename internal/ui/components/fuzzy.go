// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sort"
	"strings"
	"unicode"
)

// =============================================================================
// FUZZY MATCHING
// =============================================================================

// FuzzyMatch scores a query against a target. Every query rune must appear
// in order in the target. Consecutive runs, word boundaries, and a match at
// the start of the target all raise the score. Matching is case-insensitive.
//
// "sv" scores "/save" above "/sessions"; "hlp" still matches "/help".
func FuzzyMatch(query, target string) (score int, matched bool) {
	if query == "" {
		return 0, true
	}

	queryRunes := []rune(strings.ToLower(query))
	targetRunes := []rune(strings.ToLower(target))

	if len(queryRunes) > len(targetRunes) {
		return 0, false
	}

	queryPos := 0
	lastMatchPos := -1

	for targetPos := 0; targetPos < len(targetRunes) && queryPos < len(queryRunes); targetPos++ {
		if targetRunes[targetPos] != queryRunes[queryPos] {
			continue
		}

		matchScore := 1
		if lastMatchPos == targetPos-1 {
			matchScore += 5
		}
		if targetPos == 0 {
			matchScore += 10
		}
		if isWordBoundary(targetRunes, targetPos) {
			matchScore += 7
		}

		score += matchScore
		lastMatchPos = targetPos
		queryPos++
	}

	matched = queryPos == len(queryRunes)

	// Shorter targets win ties.
	if matched {
		score -= len(targetRunes) / 4
	}

	return score, matched
}

// isWordBoundary reports whether pos starts a word. Separators are space,
// slash, dash, and underscore; a lower-to-upper transition also counts.
func isWordBoundary(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	if pos >= len(runes) {
		return false
	}

	prev := runes[pos-1]
	if prev == ' ' || prev == '/' || prev == '-' || prev == '_' {
		return true
	}
	if unicode.IsLower(prev) && unicode.IsUpper(runes[pos]) {
		return true
	}
	return false
}

// FuzzyMatches reports whether the query fuzzy-matches the target.
func FuzzyMatches(query, target string) bool {
	_, matched := FuzzyMatch(query, target)
	return matched
}

// ScoredMatch is a fuzzy match result.
type ScoredMatch struct {
	Target string
	Score  int
}

// FuzzyFilter matches the query against each target and returns the hits
// sorted best first.
func FuzzyFilter(query string, targets []string) []ScoredMatch {
	var matches []ScoredMatch
	for _, target := range targets {
		if score, ok := FuzzyMatch(query, target); ok {
			matches = append(matches, ScoredMatch{Target: target, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
