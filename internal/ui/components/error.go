// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the jpchat TUI.
package components

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// ErrorDisplay is a styled error box with optional suggestions.
type ErrorDisplay struct {
	title       string
	message     string
	suggestions []string

	visible   bool
	createdAt time.Time
	width     int
}

// NewError creates an error display with a title and message.
func NewError(title, message string) ErrorDisplay {
	return ErrorDisplay{
		title:     title,
		message:   message,
		visible:   true,
		createdAt: time.Now(),
		width:     80,
	}
}

// NewErrorFromErr builds an error display from an API error, using the
// Japanese user-facing message and a suggestion matched to the cause.
func NewErrorFromErr(err error) ErrorDisplay {
	e := NewError("エラー", hf.UserMessage(err))
	e.suggestions = suggestionsFor(err)
	return e
}

// WithSuggestions attaches suggestion lines.
func (e ErrorDisplay) WithSuggestions(suggestions []string) ErrorDisplay {
	e.suggestions = suggestions
	return e
}

// SetWidth sets the display width.
func (e *ErrorDisplay) SetWidth(width int) {
	e.width = width
}

// Visible reports whether the error is shown.
func (e *ErrorDisplay) Visible() bool {
	return e.visible
}

// Dismiss hides the error.
func (e *ErrorDisplay) Dismiss() {
	e.visible = false
}

// View renders the error box.
func (e ErrorDisplay) View() string {
	if !e.visible {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Rose).
		Bold(true)

	messageStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	var lines []string
	lines = append(lines, titleStyle.Render(e.title))
	lines = append(lines, messageStyle.Render(e.message))

	if len(e.suggestions) > 0 {
		suggestionStyle := lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			PaddingLeft(2)
		for _, s := range e.suggestions {
			lines = append(lines, suggestionStyle.Render("・"+s))
		}
	}

	maxWidth := e.width - 8
	if maxWidth < 30 {
		maxWidth = 30
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Rose).
		Padding(1, 2).
		MaxWidth(maxWidth).
		Render(strings.Join(lines, "\n"))
}

// suggestionsFor returns recovery hints for well-known API failures.
func suggestionsFor(err error) []string {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hf.ErrNoToken):
		return []string{
			"jpchat setup でAPIキーを設定してください",
			"環境変数 JPCHAT_TOKEN でも設定できます",
		}
	case errors.Is(err, hf.ErrInvalidToken):
		return []string{
			"https://huggingface.co/settings/tokens で新しいトークンを発行してください",
			"jpchat setup で再設定できます",
		}
	case errors.Is(err, hf.ErrModelLoading):
		return []string{"数十秒後に自動で再試行します"}
	case errors.Is(err, hf.ErrRateLimited):
		return []string{"少し待ってから送信してください"}
	case errors.Is(err, hf.ErrModelNotFound):
		return []string{"/models で利用可能なモデルを確認してください"}
	default:
		return nil
	}
}
