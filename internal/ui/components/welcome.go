// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN MODEL
// =============================================================================

// Welcome is the startup screen shown before the first message.
type Welcome struct {
	version   string
	modelName string
	hasToken  bool

	width  int
	height int

	theme *styles.Theme
}

// NewWelcome creates a new welcome screen.
func NewWelcome(theme *styles.Theme) Welcome {
	return Welcome{
		version: "dev",
		theme:   theme,
	}
}

// SetVersion sets the version string.
func (w *Welcome) SetVersion(version string) {
	w.version = version
}

// SetModelName sets the active model name.
func (w *Welcome) SetModelName(name string) {
	w.modelName = name
}

// SetHasToken records whether an API token is configured.
func (w *Welcome) SetHasToken(has bool) {
	w.hasToken = has
}

// SetSize updates the dimensions.
func (w *Welcome) SetSize(width, height int) {
	w.width = width
	w.height = height
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the welcome screen.
func (w Welcome) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (w Welcome) Update(msg tea.Msg) (Welcome, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
	}
	return w, nil
}

// View renders the welcome screen centered in the terminal.
func (w Welcome) View() string {
	width := w.width
	if width == 0 {
		width = 80
	}
	height := w.height
	if height == 0 {
		height = 24
	}

	boxWidth := 56
	if boxWidth > width-4 {
		boxWidth = width - 4
	}
	if boxWidth < 36 {
		boxWidth = 36
	}

	content := w.renderLogo()
	content += "\n\n" + w.renderVersion()
	content += "\n\n" + w.renderSystemInfo()
	content += "\n\n" + w.renderQuickStart()
	content += "\n\n" + w.renderPressKey()

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Purple).
		Padding(1, 3).
		Width(boxWidth).
		Align(lipgloss.Center).
		Render(content)

	return lipgloss.Place(
		width, height,
		lipgloss.Center, lipgloss.Center,
		box,
	)
}

// =============================================================================
// RENDER HELPERS
// =============================================================================

// renderLogo renders the ASCII logo. Plain ASCII keeps the box aligned on
// terminals that render full-width glyphs inconsistently.
func (w Welcome) renderLogo() string {
	logoStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)

	if w.width >= 50 {
		logo := `   _             _           _
  (_)_ __   ___| |__   __ _| |_
  | | '_ \ / __| '_ \ / _' | __|
  | | |_) | (__| | | | (_| | |_
 _/ | .__/ \___|_| |_|\__,_|\__|
|__/|_|`
		return logoStyle.Render(logo)
	}
	return logoStyle.Render("jpchat")
}

// renderVersion renders the version subtitle.
func (w Welcome) renderVersion() string {
	return lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		Render("日本語チャットデモ v" + w.version)
}

// renderSystemInfo renders the model and token status lines.
func (w Welcome) renderSystemInfo() string {
	labelStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)

	model := w.modelName
	if model == "" {
		model = "(未選択)"
	}

	var tokenLine string
	if w.hasToken {
		tokenLine = lipgloss.NewStyle().Foreground(styles.Emerald).Render("設定済み")
	} else {
		tokenLine = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true).Render("未設定 (/setup で設定)")
	}

	lines := []string{
		labelStyle.Render("モデル: ") + valueStyle.Render(model),
		labelStyle.Render("APIキー: ") + tokenLine,
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderQuickStart renders usage hints.
func (w Welcome) renderQuickStart() string {
	bulletStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan)

	tipStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary)

	tips := []string{
		bulletStyle.Render("・") + tipStyle.Render("メッセージを入力して Enter で送信"),
		bulletStyle.Render("・") + tipStyle.Render("/help でコマンド一覧を表示"),
		bulletStyle.Render("・") + tipStyle.Render("/model でモデルを切り替え"),
		bulletStyle.Render("・") + tipStyle.Render("Esc で生成を中断"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, tips...)
}

// renderPressKey renders the continue prompt.
func (w Welcome) renderPressKey() string {
	return lipgloss.NewStyle().
		Foreground(styles.Purple).
		Render("何かキーを押して開始...")
}
