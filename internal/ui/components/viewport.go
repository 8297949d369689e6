// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the jpchat TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// CHAT VIEWPORT COMPONENT - Scrollable chat area with follow-bottom behavior
// =============================================================================

// ChatViewport is the scrollable chat history. While autoScroll is on it
// follows the bottom as streamed tokens arrive; scrolling up hands control
// to the user until they return to the bottom.
type ChatViewport struct {
	viewport    viewport.Model
	messages    []*model.Message
	width       int
	height      int
	ready       bool
	autoScroll  bool
	theme       *styles.Theme
	messageList *MessageList

	scrollY    int
	maxScrollY int
}

// NewChatViewport creates a new ChatViewport.
func NewChatViewport(theme *styles.Theme) *ChatViewport {
	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	return &ChatViewport{
		viewport:    vp,
		messages:    []*model.Message{},
		width:       80,
		height:      20,
		autoScroll:  true,
		theme:       theme,
		messageList: NewMessageList(theme),
	}
}

// SetSize updates the viewport dimensions.
func (cv *ChatViewport) SetSize(width, height int) {
	cv.width = width
	cv.height = height
	cv.viewport.Width = width - 2
	cv.viewport.Height = height
	cv.messageList.SetWidth(width - 4)
	cv.ready = true

	cv.updateContent()
}

// SetMessages replaces the displayed messages.
func (cv *ChatViewport) SetMessages(messages []*model.Message) {
	cv.messages = messages
	cv.messageList.SetMessages(messages)
	cv.updateContent()

	if cv.autoScroll {
		cv.ScrollToBottom()
	}
}

// AppendMessage adds a message to the list.
func (cv *ChatViewport) AppendMessage(msg *model.Message) {
	cv.messages = append(cv.messages, msg)
	cv.messageList.SetMessages(cv.messages)
	cv.updateContent()

	if cv.autoScroll {
		cv.ScrollToBottom()
	}
}

// UpdateLastMessage re-renders after the last message's content changed,
// which happens on every streaming flush.
func (cv *ChatViewport) UpdateLastMessage() {
	cv.updateContent()

	if cv.autoScroll {
		cv.ScrollToBottom()
	}
}

// updateContent re-renders the message content and updates scroll tracking.
func (cv *ChatViewport) updateContent() {
	content := cv.messageList.View()

	wrapped := wrapContentForViewport(content, cv.width-2)
	cv.viewport.SetContent(wrapped)

	lines := strings.Count(wrapped, "\n") + 1
	cv.maxScrollY = lines - cv.height
	if cv.maxScrollY < 0 {
		cv.maxScrollY = 0
	}

	cv.scrollY = cv.viewport.YOffset
	if cv.scrollY > cv.maxScrollY {
		cv.scrollY = cv.maxScrollY
	}
	if cv.scrollY < 0 {
		cv.scrollY = 0
	}
}

// ScrollToBottom scrolls to the bottom and re-enables follow mode.
func (cv *ChatViewport) ScrollToBottom() {
	cv.viewport.GotoBottom()
	cv.scrollY = cv.maxScrollY
	cv.autoScroll = true
}

// ScrollToTop scrolls to the top and disables follow mode.
func (cv *ChatViewport) ScrollToTop() {
	cv.viewport.GotoTop()
	cv.scrollY = 0
	cv.autoScroll = false
}

// ScrollUp scrolls up by the specified number of lines.
func (cv *ChatViewport) ScrollUp(lines int) {
	cv.autoScroll = false
	cv.scrollY -= lines
	if cv.scrollY < 0 {
		cv.scrollY = 0
	}
	cv.viewport.SetYOffset(cv.scrollY)
}

// ScrollDown scrolls down by the specified number of lines. Reaching the
// bottom re-enables follow mode.
func (cv *ChatViewport) ScrollDown(lines int) {
	cv.scrollY += lines
	if cv.scrollY > cv.maxScrollY {
		cv.scrollY = cv.maxScrollY
	}
	cv.viewport.SetYOffset(cv.scrollY)

	if cv.scrollY >= cv.maxScrollY {
		cv.autoScroll = true
	}
}

// AtTop returns true if the viewport is at the top.
func (cv *ChatViewport) AtTop() bool {
	return cv.viewport.AtTop()
}

// AtBottom returns true if the viewport is at the bottom.
func (cv *ChatViewport) AtBottom() bool {
	return cv.viewport.AtBottom()
}

// ScrollPercent returns the scroll position as a fraction.
func (cv *ChatViewport) ScrollPercent() float64 {
	return cv.viewport.ScrollPercent()
}

// IsFollowing reports whether follow-bottom mode is active.
func (cv *ChatViewport) IsFollowing() bool {
	return cv.autoScroll
}

// Update handles key and mouse scrolling.
func (cv *ChatViewport) Update(msg tea.Msg) (*ChatViewport, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up":
			cv.ScrollUp(1)
			return cv, nil
		case "down":
			cv.ScrollDown(1)
			return cv, nil
		case "pgup":
			cv.ScrollUp(cv.height)
			return cv, nil
		case "pgdn", "pgdown":
			cv.ScrollDown(cv.height)
			return cv, nil
		case "home":
			cv.ScrollToTop()
			return cv, nil
		case "end":
			cv.ScrollToBottom()
			return cv, nil
		}

	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseWheelUp:
			cv.ScrollUp(3)
			return cv, nil
		case tea.MouseWheelDown:
			cv.ScrollDown(3)
			return cv, nil
		}
	}

	cv.viewport, cmd = cv.viewport.Update(msg)
	cv.scrollY = cv.viewport.YOffset

	return cv, cmd
}

// View renders the viewport with scroll indicators.
func (cv *ChatViewport) View() string {
	if !cv.ready {
		return ""
	}

	var result strings.Builder

	if top := cv.renderTopIndicator(); top != "" {
		result.WriteString(top)
		result.WriteString("\n")
	}

	result.WriteString(cv.viewport.View())

	if bottom := cv.renderBottomIndicator(); bottom != "" {
		result.WriteString("\n")
		result.WriteString(bottom)
	}

	return result.String()
}

// ==========================================================================
// SCROLL INDICATORS
// ==========================================================================

// renderTopIndicator renders the "more above" indicator.
func (cv *ChatViewport) renderTopIndicator() string {
	if cv.AtTop() {
		return ""
	}

	indicatorStyle := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Width(cv.width).
		Align(lipgloss.Center)

	arrowStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan)

	textStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)

	indicator := arrowStyle.Render("^") + " " +
		textStyle.Render("上にスクロール") + " " +
		arrowStyle.Render("^")

	return indicatorStyle.Render(indicator)
}

// renderBottomIndicator renders the "more below" indicator with position.
func (cv *ChatViewport) renderBottomIndicator() string {
	if cv.AtBottom() {
		return ""
	}

	indicatorStyle := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Width(cv.width).
		Align(lipgloss.Center)

	arrowStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan)

	textStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)

	posStyle := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Bold(true)

	scrollPos := ""
	if cv.maxScrollY > 0 {
		scrollPos = posStyle.Render(fmt.Sprintf(" [%d/%d] ", cv.scrollY+1, cv.maxScrollY+1))
	}

	indicator := arrowStyle.Render("v") + scrollPos +
		textStyle.Render("下にスクロール") + " " +
		arrowStyle.Render("v")

	return indicatorStyle.Render(indicator)
}

// =============================================================================
// CONTENT WRAPPING WITH RUNEWIDTH SUPPORT
// =============================================================================

// wrapContentForViewport wraps content to fit within the given width using
// go-runewidth so full-width Japanese characters count as two columns.
func wrapContentForViewport(content string, width int) string {
	if width <= 0 {
		return content
	}

	var wrapped strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if wrapped.Len() > 0 {
			wrapped.WriteByte('\n')
		}
		if runewidth.StringWidth(line) <= width {
			wrapped.WriteString(line)
			continue
		}
		wrapped.WriteString(wrapLine(line, width))
	}

	return wrapped.String()
}

// wrapLine wraps a single line to the given display width, breaking at
// spaces when one is available. Japanese text rarely contains spaces, so
// the hard break at width is the common path.
func wrapLine(line string, width int) string {
	var result strings.Builder
	var current strings.Builder
	currentWidth := 0

	flush := func() {
		if result.Len() > 0 {
			result.WriteByte('\n')
		}
		result.WriteString(strings.TrimRight(current.String(), " "))
		current.Reset()
		currentWidth = 0
	}

	for _, r := range line {
		charWidth := runewidth.RuneWidth(r)
		if currentWidth+charWidth > width {
			flush()
			if r == ' ' {
				continue
			}
		}
		current.WriteRune(r)
		currentWidth += charWidth
	}

	if current.Len() > 0 {
		flush()
	}

	return result.String()
}
