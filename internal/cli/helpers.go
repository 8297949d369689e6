// helpers.go - Small shared formatting helpers for CLI commands.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// formatDuration renders a duration in a short human form (320ms, 2.4s, 1m05s).
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}

// promptInput reads one line from stdin after printing a prompt.
func promptInput(prompt string) string {
	fmt.Print(prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

// confirmPrompt asks a yes/no question in Japanese. Empty input takes the
// default.
func confirmPrompt(question string, def bool) bool {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	answer := strings.ToLower(promptInput(question + " " + hint + " "))
	if answer == "" {
		return def
	}
	return answer == "y" || answer == "yes"
}
