// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the jpchat TUI.
package components

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// MODEL PICKER - bubbles list over the model catalog
// =============================================================================

// modelItem adapts a catalog entry to the bubbles list item interface.
type modelItem struct {
	info model.ModelInfo
}

func (i modelItem) FilterValue() string {
	return i.info.ID + " " + i.info.Name
}

// ModelPicker is an overlay list for switching the active model.
type ModelPicker struct {
	list    list.Model
	theme   *styles.Theme
	visible bool
}

// NewModelPicker creates a picker over the full model catalog with the
// given model preselected.
func NewModelPicker(theme *styles.Theme, currentID string) *ModelPicker {
	items := make([]list.Item, len(model.Models))
	selected := 0
	for i, info := range model.Models {
		items[i] = modelItem{info: info}
		if info.ID == currentID {
			selected = i
		}
	}

	delegate := modelDelegate{theme: theme}
	l := list.New(items, delegate, 60, 18)
	l.Title = "モデルを選択"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(styles.Purple).
		Bold(true).
		Padding(0, 1)
	l.Select(selected)

	return &ModelPicker{
		list:  l,
		theme: theme,
	}
}

// Show makes the picker visible.
func (p *ModelPicker) Show() {
	p.visible = true
}

// Hide dismisses the picker.
func (p *ModelPicker) Hide() {
	p.visible = false
}

// Visible reports whether the picker is shown.
func (p *ModelPicker) Visible() bool {
	return p.visible
}

// SetSize updates the picker dimensions.
func (p *ModelPicker) SetSize(width, height int) {
	if width > 80 {
		width = 80
	}
	if height > 22 {
		height = 22
	}
	p.list.SetSize(width-4, height-2)
}

// Selected returns the currently highlighted catalog entry.
func (p *ModelPicker) Selected() (model.ModelInfo, bool) {
	item, ok := p.list.SelectedItem().(modelItem)
	if !ok {
		return model.ModelInfo{}, false
	}
	return item.info, true
}

// Update handles list navigation.
func (p *ModelPicker) Update(msg tea.Msg) (*ModelPicker, tea.Cmd) {
	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View renders the picker overlay.
func (p *ModelPicker) View() string {
	if !p.visible {
		return ""
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Purple).
		Padding(0, 1).
		Render(p.list.View())
}

// =============================================================================
// LIST DELEGATE
// =============================================================================

// modelDelegate renders catalog entries with 日本語/PRO badges.
type modelDelegate struct {
	theme *styles.Theme
}

func (d modelDelegate) Height() int  { return 2 }
func (d modelDelegate) Spacing() int { return 1 }

func (d modelDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d modelDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(modelItem)
	if !ok {
		return
	}

	nameStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary)
	descStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
	if index == m.Index() {
		nameStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
		descStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary)
	}

	title := entry.info.Name
	if badge := entry.info.Badge(); badge != "" {
		badgeStyle := lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
		if entry.info.Pro {
			badgeStyle = lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
		}
		title += " " + badgeStyle.Render("["+badge+"]")
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	fmt.Fprintf(w, "%s%s\n  %s", cursor, nameStyle.Render(title), descStyle.Render(entry.info.Description))
}
