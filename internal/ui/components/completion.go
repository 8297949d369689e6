// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// SLASH COMMAND COMPLETION
// =============================================================================

// Completion is a single completion candidate.
type Completion struct {
	Value       string // text inserted into the input, e.g. "/model"
	Description string // short Japanese description shown next to it
}

// CompleteCommands fuzzy-matches the typed prefix (including the leading
// slash) against the known commands, best match first.
func CompleteCommands(input string, commands []Completion) []Completion {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	type scored struct {
		comp  Completion
		score int
	}
	var hits []scored
	for _, c := range commands {
		if score, ok := FuzzyMatch(input, c.Value); ok {
			hits = append(hits, scored{comp: c, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]Completion, len(hits))
	for i, h := range hits {
		out[i] = h.comp
	}
	return out
}

// CompletionPopup renders completion suggestions above the input area.
type CompletionPopup struct {
	completions []Completion
	selected    int
	maxVisible  int
	width       int
	theme       *styles.Theme
}

// NewCompletionPopup creates an empty popup.
func NewCompletionPopup(theme *styles.Theme) *CompletionPopup {
	return &CompletionPopup{
		maxVisible: 8,
		width:      50,
		theme:      theme,
	}
}

// SetCompletions replaces the candidates and resets the selection.
func (c *CompletionPopup) SetCompletions(completions []Completion) {
	c.completions = completions
	c.selected = 0
}

// HasCompletions reports whether anything is shown.
func (c *CompletionPopup) HasCompletions() bool {
	return len(c.completions) > 0
}

// Clear empties the popup.
func (c *CompletionPopup) Clear() {
	c.completions = nil
	c.selected = 0
}

// SetWidth sets the popup width.
func (c *CompletionPopup) SetWidth(width int) {
	c.width = width
}

// Next moves the selection down, wrapping.
func (c *CompletionPopup) Next() {
	if len(c.completions) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(c.completions)
}

// Prev moves the selection up, wrapping.
func (c *CompletionPopup) Prev() {
	if len(c.completions) == 0 {
		return
	}
	c.selected--
	if c.selected < 0 {
		c.selected = len(c.completions) - 1
	}
}

// Selected returns the highlighted completion, or nil.
func (c *CompletionPopup) Selected() *Completion {
	if c.selected < 0 || c.selected >= len(c.completions) {
		return nil
	}
	return &c.completions[c.selected]
}

// View renders the popup box.
func (c *CompletionPopup) View() string {
	if len(c.completions) == 0 {
		return ""
	}

	start := 0
	end := len(c.completions)
	if len(c.completions) > c.maxVisible {
		start = c.selected - c.maxVisible/2
		if start < 0 {
			start = 0
		}
		end = start + c.maxVisible
		if end > len(c.completions) {
			end = len(c.completions)
			start = end - c.maxVisible
		}
	}

	var items []string
	for i := start; i < end; i++ {
		items = append(items, c.renderItem(c.completions[i], i == c.selected))
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Cyan).
		Padding(0, 1).
		Width(c.width).
		MaxWidth(c.width).
		Render(strings.Join(items, "\n"))
}

func (c *CompletionPopup) renderItem(comp Completion, isSelected bool) string {
	valueStyle := lipgloss.NewStyle().
		Width(14).
		Foreground(styles.TextPrimary)

	descStyle := lipgloss.NewStyle().
		Width(c.width - 18).
		Foreground(styles.TextSecondary)

	indicator := " "
	if isSelected {
		indicator = ">"
		valueStyle = valueStyle.
			Background(styles.Cyan).
			Foreground(styles.Surface).
			Bold(true)
		descStyle = descStyle.Foreground(styles.TextPrimary)
	}

	indicatorStyle := lipgloss.NewStyle().
		Width(2).
		Foreground(styles.Cyan)

	// Descriptions are Japanese, so truncation is by display width.
	desc := runewidth.Truncate(comp.Description, c.width-18, "…")

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		indicatorStyle.Render(indicator),
		valueStyle.Render(runewidth.Truncate(comp.Value, 14, "…")),
		descStyle.Render(desc),
	)
}

// ViewInline renders up to three candidates on one line for narrow layouts.
func (c *CompletionPopup) ViewInline() string {
	if len(c.completions) == 0 {
		return ""
	}

	maxInline := 3
	if len(c.completions) < maxInline {
		maxInline = len(c.completions)
	}

	var parts []string
	for i := 0; i < maxInline; i++ {
		style := lipgloss.NewStyle().Foreground(styles.TextSecondary)
		if i == c.selected {
			style = style.Foreground(styles.Cyan).Bold(true)
		}
		parts = append(parts, style.Render(c.completions[i].Value))
	}

	if rest := len(c.completions) - maxInline; rest > 0 {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render("ほか"+fmtNumber(rest)+"件"))
	}

	return strings.Join(parts, " | ")
}
