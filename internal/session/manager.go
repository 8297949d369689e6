// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides idle timeout and autosave tracking for chat
// sessions.
package session

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oggata/huggingface-jp-chat-demo/internal/util"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks session activity, idle timeout and autosave state.
type Manager struct {
	mu sync.Mutex

	// Session tracking
	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	// Timeout configuration
	timeout       time.Duration
	warningBefore time.Duration
	warningShown  bool

	// Auto-save configuration
	autoSaveEnabled  bool
	autoSaveInterval time.Duration
	lastAutoSave     time.Time
	isDirty          bool

	// now is replaceable in tests.
	now func() time.Time
}

// Config holds configuration for the session manager.
type Config struct {
	// Timeout is the idle timeout duration (default: 30 minutes)
	Timeout time.Duration

	// WarningBefore is how long before timeout to warn (default: 5 minutes)
	WarningBefore time.Duration

	// AutoSaveEnabled enables automatic saving
	AutoSaveEnabled bool

	// AutoSaveInterval is how often to auto-save (default: 60 seconds)
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Minute,
		WarningBefore:    5 * time.Minute,
		AutoSaveEnabled:  true,
		AutoSaveInterval: 60 * time.Second,
	}
}

// NewManager creates a new session manager.
func NewManager(cfg Config) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.WarningBefore <= 0 || cfg.WarningBefore >= cfg.Timeout {
		cfg.WarningBefore = DefaultConfig().WarningBefore
	}
	if cfg.AutoSaveInterval <= 0 {
		cfg.AutoSaveInterval = DefaultConfig().AutoSaveInterval
	}

	m := &Manager{
		sessionID:        generateSessionID(),
		timeout:          cfg.Timeout,
		warningBefore:    cfg.WarningBefore,
		autoSaveEnabled:  cfg.AutoSaveEnabled,
		autoSaveInterval: cfg.AutoSaveInterval,
		now:              time.Now,
	}
	now := m.now()
	m.startTime = now
	m.lastActivity = now
	m.lastAutoSave = now
	return m
}

// SetClock replaces the time source. Test hook.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionID returns the current session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// StartTime returns when the session started.
func (m *Manager) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTime
}

// Duration returns how long the session has been active.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.startTime)
}

// IdleFor returns how long since last activity.
func (m *Manager) IdleFor() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity)
}

// RemainingTime returns time until the idle timeout.
func (m *Manager) RemainingTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.timeout - m.now().Sub(m.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// =============================================================================
// ACTIVITY TRACKING
// =============================================================================

// RecordActivity updates the last activity timestamp. Called on user
// input.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
	m.warningShown = false
}

// MarkDirty indicates the session has unsaved changes.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
}

// MarkClean indicates the session has been saved.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = false
	m.lastAutoSave = m.now()
}

// IsDirty returns whether the session has unsaved changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty
}

// =============================================================================
// TIMEOUT CHECKING
// =============================================================================

// Expired returns true if the session idle timeout has passed.
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity) >= m.timeout
}

// ShouldWarn returns true if the timeout warning should be shown.
func (m *Manager) ShouldWarn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.warningShown {
		return false
	}

	idle := m.now().Sub(m.lastActivity)
	threshold := m.timeout - m.warningBefore

	return idle >= threshold && idle < m.timeout
}

// ShouldAutoSave returns true if auto-save should trigger.
func (m *Manager) ShouldAutoSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.autoSaveEnabled || !m.isDirty {
		return false
	}

	return m.now().Sub(m.lastAutoSave) >= m.autoSaveInterval
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is the outcome of a session tick.
type Event int

const (
	// EventNone means nothing needs attention.
	EventNone Event = iota
	// EventWarn means the idle warning should be shown.
	EventWarn
	// EventExpire means the session has idled out.
	EventExpire
	// EventAutoSave means the conversation should be autosaved.
	EventAutoSave
)

// HandleTick evaluates the session state for one tick. Expiry wins over
// warning; autosave is independent and reported only when neither fires.
func (m *Manager) HandleTick() Event {
	if m.Expired() {
		return EventExpire
	}
	if m.ShouldWarn() {
		m.mu.Lock()
		m.warningShown = true
		m.mu.Unlock()
		return EventWarn
	}
	if m.ShouldAutoSave() {
		return EventAutoSave
	}
	return EventNone
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// TimeoutWarningMsg indicates the session is about to idle out.
type TimeoutWarningMsg struct {
	Remaining time.Duration
}

// TimeoutMsg indicates the session has idled out.
type TimeoutMsg struct{}

// AutoSaveMsg indicates auto-save should occur.
type AutoSaveMsg struct{}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// TickHandler processes a tick and returns the matching Bubble Tea
// command plus the next tick.
func (m *Manager) TickHandler() tea.Cmd {
	var cmds []tea.Cmd

	switch m.HandleTick() {
	case EventWarn:
		remaining := m.RemainingTime()
		cmds = append(cmds, func() tea.Msg {
			return TimeoutWarningMsg{Remaining: remaining}
		})
	case EventExpire:
		cmds = append(cmds, func() tea.Msg {
			return TimeoutMsg{}
		})
	case EventAutoSave:
		cmds = append(cmds, func() tea.Msg {
			return AutoSaveMsg{}
		})
	}

	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// SetTimeout updates the timeout duration.
func (m *Manager) SetTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
}

// SetAutoSaveEnabled enables or disables auto-save.
func (m *Manager) SetAutoSaveEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoSaveEnabled = enabled
}

// =============================================================================
// STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	SessionID     string
	StartTime     time.Time
	Duration      time.Duration
	IdleTime      time.Duration
	RemainingTime time.Duration
	IsDirty       bool
	IsExpired     bool
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	idle := now.Sub(m.lastActivity)
	remaining := m.timeout - idle
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		SessionID:     m.sessionID,
		StartTime:     m.startTime,
		Duration:      now.Sub(m.startTime),
		IdleTime:      idle,
		RemainingTime: remaining,
		IsDirty:       m.isDirty,
		IsExpired:     idle >= m.timeout,
	}
}

// FormatRemaining renders the remaining time for the status bar.
func FormatRemaining(d time.Duration) string {
	return util.FormatDuration(d)
}

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	return "sess_" + time.Now().Format("20060102_150405")
}
