// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"
)

func TestNewToastDurations(t *testing.T) {
	if d := NewToast("ok", ToastKindStatus).Duration; d != DefaultToastDuration {
		t.Errorf("status toast duration = %v, want %v", d, DefaultToastDuration)
	}
	if d := NewToast("ng", ToastKindError).Duration; d != ErrorToastDuration {
		t.Errorf("error toast duration = %v, want %v", d, ErrorToastDuration)
	}
}

func TestToastIsExpired(t *testing.T) {
	toast := NewToast("test", ToastKindStatus)
	if toast.IsExpired() {
		t.Error("fresh toast should not be expired")
	}

	toast.CreatedAt = time.Now().Add(-10 * time.Second)
	if !toast.IsExpired() {
		t.Error("old toast should be expired")
	}
}

func TestToastManagerAddRemove(t *testing.T) {
	m := NewToastManager()
	if m.HasToasts() {
		t.Error("new manager should be empty")
	}

	id := m.AddSuccess("保存しました")
	if !m.HasToasts() {
		t.Error("manager should have a toast after Add")
	}

	m.Remove(id)
	if m.HasToasts() {
		t.Error("manager should be empty after Remove")
	}
}

func TestToastManagerNewestFirst(t *testing.T) {
	m := NewToastManager()
	m.AddStatus("first")
	m.AddStatus("second")

	toasts := m.Tick()
	if len(toasts) != 2 {
		t.Fatalf("got %d toasts, want 2", len(toasts))
	}
	if toasts[0].Message != "second" {
		t.Errorf("newest toast should be first, got %q", toasts[0].Message)
	}
}

func TestToastManagerCapsCount(t *testing.T) {
	m := NewToastManager()
	for i := 0; i < 10; i++ {
		m.AddStatus("toast")
	}

	if got := len(m.Tick()); got > 5 {
		t.Errorf("manager holds %d toasts, want at most 5", got)
	}
}

func TestToastManagerTickDropsExpired(t *testing.T) {
	m := NewToastManager()
	expired := NewToast("古い", ToastKindStatus)
	expired.CreatedAt = time.Now().Add(-time.Minute)
	m.Add(expired)
	m.AddStatus("新しい")

	toasts := m.Tick()
	if len(toasts) != 1 {
		t.Fatalf("got %d toasts after tick, want 1", len(toasts))
	}
	if toasts[0].Message != "新しい" {
		t.Errorf("surviving toast = %q, want %q", toasts[0].Message, "新しい")
	}
}

func TestRenderToastContainsMessage(t *testing.T) {
	toast := NewToast("モデルを切り替えました", ToastKindSuccess)

	view := RenderToast(toast, 80)
	if !strings.Contains(view, "モデルを切り替えました") {
		t.Errorf("RenderToast() should contain the message, got %q", view)
	}
	if !strings.Contains(view, "[OK]") {
		t.Errorf("success toast should carry the [OK] icon, got %q", view)
	}
}

func TestRenderToastStackEmpty(t *testing.T) {
	if got := RenderToastStack(nil, 80, 24); got != "" {
		t.Errorf("empty stack should render nothing, got %q", got)
	}
}

func TestWrapToastText(t *testing.T) {
	// 10 full-width runes = 20 columns, wrapped at 10 columns per line.
	wrapped := wrapToastText("あいうえおかきくけこ", 10)
	lines := strings.Split(wrapped, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), wrapped)
	}
	if lines[0] != "あいうえお" {
		t.Errorf("first line = %q, want %q", lines[0], "あいうえお")
	}
}
