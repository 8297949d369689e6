// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the jpchat application.
package util

import (
	"strings"

	"golang.org/x/text/width"
)

// Japanese IMEs frequently emit fullwidth forms for ASCII punctuation.
// A user typing "／ｈｅｌｐ" means "/help", and the trailing space after
// kana conversion is U+3000, not U+0020.

// NormalizeCommand folds fullwidth ASCII variants to their halfwidth
// forms and trims surrounding whitespace (including ideographic space).
// Message content is never normalized, only command input.
func NormalizeCommand(s string) string {
	folded := width.Fold.String(s)
	return strings.TrimFunc(folded, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '　'
	})
}

// IsCommand reports whether normalized input starts a slash command.
func IsCommand(s string) bool {
	return strings.HasPrefix(NormalizeCommand(s), "/")
}
