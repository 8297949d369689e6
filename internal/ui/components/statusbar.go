// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the jpchat TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current chat state shown in the bar.
type Status int

const (
	StatusReady Status = iota
	StatusSending
	StatusLoading
	StatusStreaming
	StatusError
)

// String returns the Japanese display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "準備完了"
	case StatusSending:
		return "送信中…"
	case StatusLoading:
		return "モデル読込中…"
	case StatusStreaming:
		return "生成中…"
	case StatusError:
		return "エラー"
	default:
		return "?"
	}
}

// Icon returns a shape indicator for the status, shown alongside the color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return "[OK]"
	case StatusSending, StatusLoading:
		return "[ ]"
	case StatusStreaming:
		return "~"
	case StatusError:
		return "[X]"
	default:
		return "?"
	}
}

// StatusBar is the bottom bar showing the active model, the token estimate
// for the next request, the chat state, and key hints.
type StatusBar struct {
	ModelName     string // short name of the active model
	TokenCount    int    // estimated prompt tokens for the next request
	TokenBudget   int    // prompt token budget
	Status        Status
	Width         int
	ShowShortcuts bool
	theme         *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		TokenBudget:   1800,
		Status:        StatusReady,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetModel updates the displayed model name.
func (s *StatusBar) SetModel(name string) {
	s.ModelName = name
}

// SetTokenUsage updates the token estimate display.
func (s *StatusBar) SetTokenUsage(used, budget int) {
	s.TokenCount = used
	s.TokenBudget = budget
}

// SetStatus updates the current status.
func (s *StatusBar) SetStatus(status Status) {
	s.Status = status
}

// View renders the status bar, choosing a layout based on width.
func (s *StatusBar) View() string {
	if s.Width < 60 {
		return s.viewNarrow()
	}
	return s.viewWide()
}

// viewNarrow renders a compact bar: [icon] bar status
func (s *StatusBar) viewNarrow() string {
	statusText := s.getStatusStyle().Render(s.Status.Icon())
	bar := s.renderTokenBar(6)

	sep := " "
	result := statusText + sep + bar

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Width(s.Width).
		Render(result)
}

// viewWide renders the full bar: model | tokens | status | shortcuts
func (s *StatusBar) viewWide() string {
	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(" | ")

	parts := []string{}

	if s.ModelName != "" {
		name := s.ModelName
		if runes := []rune(name); len(runes) > 24 {
			name = string(runes[:21]) + "..."
		}
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Render(name))
	}

	tokenLabel := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render("トークン:")
	parts = append(parts, tokenLabel+" "+s.renderTokenBar(10)+" "+s.renderTokenCount())

	parts = append(parts, s.getStatusStyle().Render(s.Status.String()))

	if s.ShowShortcuts {
		parts = append(parts, s.renderShortcuts())
	}

	result := strings.Join(parts, separator)

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(styles.Overlay).
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Padding(0, 1).
		Width(s.Width).
		Render(result)
}

// ==========================================================================
// HELPER RENDER METHODS
// ==========================================================================

// renderTokenBar renders the prompt budget usage bar.
func (s *StatusBar) renderTokenBar(width int) string {
	percent := 0.0
	if s.TokenBudget > 0 {
		percent = float64(s.TokenCount) / float64(s.TokenBudget) * 100
	}

	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled

	barColor := styles.Cyan
	if percent >= 90 {
		barColor = styles.Rose
	} else if percent >= 75 {
		barColor = styles.Amber
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor)
	emptyStyle := lipgloss.NewStyle().Foreground(styles.Overlay)

	return "[" + filledStyle.Render(strings.Repeat("#", filled)) +
		emptyStyle.Render(strings.Repeat("-", empty)) + "]"
}

// renderTokenCount renders "used/budget" with warning colors near the limit.
func (s *StatusBar) renderTokenCount() string {
	percent := 0.0
	if s.TokenBudget > 0 {
		percent = float64(s.TokenCount) / float64(s.TokenBudget) * 100
	}

	color := styles.TextMuted
	if percent >= 90 {
		color = styles.Rose
	} else if percent >= 75 {
		color = styles.Amber
	}

	return lipgloss.NewStyle().Foreground(color).Render(
		fmtNumber(s.TokenCount) + "/" + fmtNumber(s.TokenBudget))
}

// renderShortcuts renders keyboard shortcut hints.
func (s *StatusBar) renderShortcuts() string {
	keyStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted)

	shortcuts := []string{
		keyStyle.Render("Enter") + descStyle.Render("送信"),
		keyStyle.Render("Esc") + descStyle.Render("中断"),
		keyStyle.Render("/help") + descStyle.Render("ヘルプ"),
	}

	return strings.Join(shortcuts, " ")
}

// getStatusStyle returns the style for the current status.
func (s *StatusBar) getStatusStyle() lipgloss.Style {
	switch s.Status {
	case StatusReady:
		return lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	case StatusSending, StatusStreaming:
		return lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	case StatusLoading:
		return lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	case StatusError:
		return lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(styles.TextMuted)
	}
}
