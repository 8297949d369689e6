// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the jpchat TUI.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner is a loading spinner with a message and optional elapsed timer.
type Spinner struct {
	spinner spinner.Model

	message   string
	detail    string
	startTime time.Time

	isActive  bool
	showTimer bool
}

// NewSpinner creates a new spinner with default settings.
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}

	return Spinner{
		spinner:   s,
		message:   "読み込み中",
		showTimer: true,
	}
}

// NewThinkingSpinner creates the spinner shown while waiting for the model
// to generate a reply.
func NewThinkingSpinner() Spinner {
	s := NewSpinner()
	s.message = "考え中"
	s.showTimer = true
	return s
}

// SetMessage sets the text displayed next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// SetDetail sets additional detail text below the spinner.
func (s *Spinner) SetDetail(detail string) {
	s.detail = detail
}

// SetShowTimer enables or disables the elapsed time display.
func (s *Spinner) SetShowTimer(show bool) {
	s.showTimer = show
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// Start activates the spinner and records the start time.
func (s *Spinner) Start() tea.Cmd {
	s.isActive = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive returns whether the spinner is currently running.
func (s *Spinner) IsActive() bool {
	return s.isActive
}

// GetElapsed returns the duration since the spinner started.
func (s *Spinner) GetElapsed() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles messages for the spinner.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}

	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}

	spinnerView := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Render(s.spinner.View())

	messageView := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Render(s.message + "…")

	result := spinnerView + " " + messageView

	if s.showTimer && !s.startTime.IsZero() {
		elapsed := time.Since(s.startTime)
		timerView := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(" (" + formatElapsed(elapsed) + ")")
		result += timerView
	}

	if s.detail != "" {
		detailView := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			PaddingLeft(2).
			Render(s.detail)
		result += "\n" + detailView
	}

	return result
}

// =============================================================================
// MODEL LOADING SPINNER
// =============================================================================

// ModelLoadingSpinner shows the cold-start state of a Hugging Face model,
// counting down the estimated time the API reported.
type ModelLoadingSpinner struct {
	spinner   Spinner
	modelName string
	estimated time.Duration
}

// NewModelLoadingSpinner creates a model loading spinner. estimated is the
// wait the API reported; zero hides the countdown.
func NewModelLoadingSpinner(modelName string, estimated time.Duration) ModelLoadingSpinner {
	s := NewSpinner()
	s.SetShowTimer(false)
	m := ModelLoadingSpinner{
		spinner:   s,
		modelName: modelName,
		estimated: estimated,
	}
	m.spinner.SetMessage(m.loadingMessage())
	return m
}

func (m ModelLoadingSpinner) loadingMessage() string {
	if m.estimated > 0 {
		return fmt.Sprintf("モデルを読み込んでいます…(約%d秒)", int(m.estimated.Seconds()))
	}
	return "モデルを読み込んでいます"
}

// Start begins the loading animation.
func (m *ModelLoadingSpinner) Start() tea.Cmd {
	return m.spinner.Start()
}

// Stop ends the loading animation.
func (m *ModelLoadingSpinner) Stop() {
	m.spinner.Stop()
}

// Update handles messages.
func (m ModelLoadingSpinner) Update(msg tea.Msg) (ModelLoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the loading spinner inside a bordered box, with a progress
// bar against the estimated wait when one is known.
func (m ModelLoadingSpinner) View() string {
	if !m.spinner.IsActive() {
		return ""
	}

	content := m.spinner.View()
	if m.estimated > 0 {
		elapsed := m.spinner.GetElapsed()
		percent := 100 * float64(elapsed) / float64(m.estimated)
		bar := styles.RenderProgressBar(24, percent)
		content += "\n" + lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(bar)
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Amber).
		Padding(1, 2).
		Render(content)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// formatElapsed formats a duration for display.
func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
