// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Timeout != 30*time.Minute {
		t.Errorf("Default Timeout = %v, want 30m", cfg.Timeout)
	}
	if cfg.WarningBefore != 5*time.Minute {
		t.Errorf("Default WarningBefore = %v, want 5m", cfg.WarningBefore)
	}
	if !cfg.AutoSaveEnabled {
		t.Error("Default AutoSaveEnabled should be true")
	}
	if cfg.AutoSaveInterval != 60*time.Second {
		t.Errorf("Default AutoSaveInterval = %v, want 60s", cfg.AutoSaveInterval)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// fakeClock is an adjustable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(cfg Config) (*Manager, *fakeClock) {
	m := NewManager(cfg)
	clock := &fakeClock{t: time.Now()}
	m.SetClock(clock.now)
	// Re-anchor the timestamps on the fake clock.
	m.RecordActivity()
	m.MarkClean()
	return m, clock
}

// =============================================================================
// MANAGER TESTS
// =============================================================================

func TestNewManager(t *testing.T) {
	m := NewManager(DefaultConfig())

	if !strings.HasPrefix(m.SessionID(), "sess_") {
		t.Errorf("SessionID = %q, want sess_ prefix", m.SessionID())
	}
	if m.IsDirty() {
		t.Error("new manager should be clean")
	}
	if m.Expired() {
		t.Error("new manager should not be expired")
	}
}

func TestManager_DirtyTracking(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.MarkDirty()
	if !m.IsDirty() {
		t.Error("expected dirty after MarkDirty")
	}
	m.MarkClean()
	if m.IsDirty() {
		t.Error("expected clean after MarkClean")
	}
}

func TestManager_WarnThenExpire(t *testing.T) {
	m, clock := newTestManager(Config{
		Timeout:          30 * time.Minute,
		WarningBefore:    5 * time.Minute,
		AutoSaveEnabled:  false,
		AutoSaveInterval: time.Minute,
	})

	if got := m.HandleTick(); got != EventNone {
		t.Fatalf("fresh session tick = %v, want EventNone", got)
	}

	// Just before the warning threshold.
	clock.advance(24 * time.Minute)
	if got := m.HandleTick(); got != EventNone {
		t.Errorf("tick at 24m = %v, want EventNone", got)
	}

	// Past the warning threshold (25m idle).
	clock.advance(2 * time.Minute)
	if got := m.HandleTick(); got != EventWarn {
		t.Errorf("tick at 26m = %v, want EventWarn", got)
	}

	// The warning fires once.
	if got := m.HandleTick(); got != EventNone {
		t.Errorf("second tick at 26m = %v, want EventNone", got)
	}

	// Past the timeout.
	clock.advance(5 * time.Minute)
	if got := m.HandleTick(); got != EventExpire {
		t.Errorf("tick at 31m = %v, want EventExpire", got)
	}
}

func TestManager_ActivityResetsWarning(t *testing.T) {
	m, clock := newTestManager(Config{
		Timeout:       30 * time.Minute,
		WarningBefore: 5 * time.Minute,
	})

	clock.advance(26 * time.Minute)
	if got := m.HandleTick(); got != EventWarn {
		t.Fatalf("tick = %v, want EventWarn", got)
	}

	m.RecordActivity()
	if m.Expired() {
		t.Error("activity should reset the idle clock")
	}
	if got := m.HandleTick(); got != EventNone {
		t.Errorf("tick after activity = %v, want EventNone", got)
	}

	// Warning can fire again after activity.
	clock.advance(26 * time.Minute)
	if got := m.HandleTick(); got != EventWarn {
		t.Errorf("tick = %v, want EventWarn after reset", got)
	}
}

func TestManager_AutoSave(t *testing.T) {
	m, clock := newTestManager(Config{
		Timeout:          30 * time.Minute,
		WarningBefore:    5 * time.Minute,
		AutoSaveEnabled:  true,
		AutoSaveInterval: time.Minute,
	})

	// Clean sessions never autosave.
	clock.advance(2 * time.Minute)
	m.RecordActivity()
	if got := m.HandleTick(); got != EventNone {
		t.Errorf("clean tick = %v, want EventNone", got)
	}

	// Dirty plus elapsed interval triggers autosave.
	m.MarkDirty()
	clock.advance(2 * time.Minute)
	m.RecordActivity()
	if got := m.HandleTick(); got != EventAutoSave {
		t.Errorf("dirty tick = %v, want EventAutoSave", got)
	}

	// MarkClean re-arms the interval.
	m.MarkClean()
	if got := m.HandleTick(); got != EventNone {
		t.Errorf("tick after save = %v, want EventNone", got)
	}
}

func TestManager_AutoSaveDisabled(t *testing.T) {
	m, clock := newTestManager(Config{
		Timeout:          30 * time.Minute,
		WarningBefore:    5 * time.Minute,
		AutoSaveEnabled:  false,
		AutoSaveInterval: time.Minute,
	})

	m.MarkDirty()
	clock.advance(2 * time.Minute)
	m.RecordActivity()
	if got := m.HandleTick(); got != EventNone {
		t.Errorf("tick = %v, want EventNone with autosave disabled", got)
	}
}

func TestManager_RemainingTime(t *testing.T) {
	m, clock := newTestManager(Config{
		Timeout:       30 * time.Minute,
		WarningBefore: 5 * time.Minute,
	})

	clock.advance(10 * time.Minute)
	remaining := m.RemainingTime()
	if remaining != 20*time.Minute {
		t.Errorf("RemainingTime = %v, want 20m", remaining)
	}

	clock.advance(25 * time.Minute)
	if m.RemainingTime() != 0 {
		t.Errorf("RemainingTime past expiry = %v, want 0", m.RemainingTime())
	}
}

func TestManager_GetStatus(t *testing.T) {
	m, clock := newTestManager(Config{
		Timeout:       30 * time.Minute,
		WarningBefore: 5 * time.Minute,
	})

	m.MarkDirty()
	clock.advance(31 * time.Minute)

	st := m.GetStatus()
	if !st.IsExpired {
		t.Error("status should report expired")
	}
	if !st.IsDirty {
		t.Error("status should report dirty")
	}
	if st.RemainingTime != 0 {
		t.Errorf("RemainingTime = %v, want 0", st.RemainingTime)
	}
}
