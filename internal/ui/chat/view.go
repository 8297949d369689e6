// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/components"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "起動中…"
	}

	if m.showWelcome {
		return m.welcome.View()
	}

	if m.picker.Visible() {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			m.picker.View())
	}

	base := m.renderChat()

	if m.toasts.HasToasts() {
		overlay := components.RenderToastStack(m.toasts.Active(), m.width, m.height)
		return m.overlayToasts(base, overlay)
	}
	return base
}

// renderChat assembles the main vertical layout.
func (m Model) renderChat() string {
	var sections []string

	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		sections = append(sections, m.header.ViewCompact())
	} else {
		sections = append(sections, m.header.View())
	}

	sections = append(sections, m.viewport.View())

	switch {
	case m.state == StateSending:
		sections = append(sections, m.thinking.View())
	case m.state == StateLoading:
		sections = append(sections, m.loading.View())
	case m.errDisplay.Visible():
		sections = append(sections, m.errDisplay.View())
	}

	if m.completions.HasCompletions() {
		sections = append(sections, m.completions.View())
	}

	sections = append(sections, m.input.View())
	sections = append(sections, m.statusBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// TOAST OVERLAY
// =============================================================================

// overlayToasts composites the toast stack over the bottom-right corner of
// the base view so notifications never shift the layout.
func (m Model) overlayToasts(baseView, toastView string) string {
	baseLines := strings.Split(baseView, "\n")
	toastLines := strings.Split(toastView, "\n")

	// Leave the status bar visible under the stack.
	startRow := m.height - len(toastLines) - 2
	if startRow < 0 {
		startRow = 0
	}

	result := make([]string, len(baseLines))
	for i, baseLine := range baseLines {
		idx := i - startRow
		if idx < 0 || idx >= len(toastLines) || lipgloss.Width(toastLines[idx]) == 0 {
			result[i] = baseLine
			continue
		}

		toastLine := toastLines[idx]
		avail := m.width - lipgloss.Width(toastLine) - 1
		if avail < 0 {
			avail = 0
		}

		if w := lipgloss.Width(baseLine); w < avail {
			baseLine += strings.Repeat(" ", avail-w)
		} else if w > avail {
			baseLine = truncateToWidth(baseLine, avail)
		}
		result[i] = baseLine + toastLine
	}

	return strings.Join(result, "\n")
}

// truncateToWidth cuts a plain line to the given display width. ANSI-styled
// lines are left alone rather than risk splitting an escape sequence.
func truncateToWidth(s string, width int) string {
	if strings.Contains(s, "\x1b") {
		return s
	}
	return runewidth.Truncate(s, width, "")
}
