// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the jpchat TUI.
package components

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// INPUT AREA COMPONENT - Multiline text input with character counter
// =============================================================================

// InputArea wraps a bubbles textarea. Enter is intercepted by the chat
// update loop to submit; the textarea itself only sees the newline key
// bound to shift+enter (and alt+enter for terminals that cannot report
// shift+enter).
type InputArea struct {
	input    textarea.Model
	maxChars int
	width    int
	focused  bool
	theme    *styles.Theme
}

// NewInputArea creates a new InputArea component.
func NewInputArea(theme *styles.Theme) *InputArea {
	ta := textarea.New()
	ta.Placeholder = "メッセージを入力…(/ でコマンド、Shift+Enterで改行)"
	ta.CharLimit = 4000
	ta.SetWidth(70)
	ta.SetHeight(3)
	ta.Prompt = "> "
	ta.ShowLineNumbers = false

	ta.KeyMap.InsertNewline.SetKeys("shift+enter", "alt+enter")

	ta.FocusedStyle.Prompt = lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)
	ta.FocusedStyle.Text = lipgloss.NewStyle().
		Foreground(styles.TextPrimary)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)
	ta.BlurredStyle = ta.FocusedStyle
	ta.Cursor.Style = lipgloss.NewStyle().
		Foreground(styles.Cyan)

	return &InputArea{
		input:    ta,
		maxChars: 4000,
		width:    80,
		theme:    theme,
	}
}

// Focus focuses the input.
func (i *InputArea) Focus() tea.Cmd {
	i.focused = true
	return i.input.Focus()
}

// Blur removes focus from the input.
func (i *InputArea) Blur() {
	i.focused = false
	i.input.Blur()
}

// Focused returns whether the input is focused.
func (i *InputArea) Focused() bool {
	return i.focused
}

// SetWidth sets the input area width.
func (i *InputArea) SetWidth(width int) {
	i.width = width
	inputWidth := width - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	i.input.SetWidth(inputWidth)
}

// SetMaxChars sets the maximum character limit.
func (i *InputArea) SetMaxChars(max int) {
	i.maxChars = max
	i.input.CharLimit = max
}

// Value returns the current input value.
func (i *InputArea) Value() string {
	return i.input.Value()
}

// SetValue sets the input value.
func (i *InputArea) SetValue(value string) {
	i.input.SetValue(value)
}

// Reset clears the input.
func (i *InputArea) Reset() {
	i.input.Reset()
}

// Update handles input updates.
func (i *InputArea) Update(msg tea.Msg) (*InputArea, tea.Cmd) {
	var cmd tea.Cmd
	i.input, cmd = i.input.Update(msg)
	return i, cmd
}

// View renders the input area with its counter.
func (i *InputArea) View() string {
	borderColor := styles.Overlay
	if i.focused {
		borderColor = styles.Cyan
	}

	containerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(i.width - 2)

	inputSection := containerStyle.Render(i.input.View())

	counterStyle := lipgloss.NewStyle().
		Width(i.width - 4).
		Align(lipgloss.Right)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		inputSection,
		counterStyle.Render(i.renderCharCounter()),
	)
}

// ==========================================================================
// HELPER RENDER METHODS
// ==========================================================================

// renderCharCounter renders the character counter with color coding.
func (i *InputArea) renderCharCounter() string {
	count := len([]rune(i.input.Value()))

	percent := 0.0
	if i.maxChars > 0 {
		percent = float64(count) / float64(i.maxChars) * 100
	}

	text := fmtNumber(count) + " / " + fmtNumber(i.maxChars) + " 文字"
	if percent >= 90 {
		text += " [!]"
	}

	return i.getCharCountStyle(percent).Render(text)
}

// getCharCountStyle returns the style for the given usage percentage.
func (i *InputArea) getCharCountStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 90:
		return lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	case percent >= 75:
		return lipgloss.NewStyle().Foreground(styles.Amber)
	default:
		return lipgloss.NewStyle().Foreground(styles.TextMuted)
	}
}
