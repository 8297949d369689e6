// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusReady, "準備完了"},
		{StatusSending, "送信中…"},
		{StatusLoading, "モデル読込中…"},
		{StatusStreaming, "生成中…"},
		{StatusError, "エラー"},
	}

	for _, tc := range tests {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("Status(%d).String() = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestStatusBarViewContainsModel(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme())
	sb.SetModel("elyza/ELYZA-japanese-Llama-2-7b-instruct")
	sb.SetWidth(120)

	view := sb.View()
	if !strings.Contains(view, "ELYZA") {
		t.Errorf("View() should contain the model name, got %q", view)
	}
	if !strings.Contains(view, "トークン") {
		t.Errorf("View() should contain the token label, got %q", view)
	}
}

func TestStatusBarTokenCount(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme())
	sb.SetTokenUsage(1234, 1800)
	sb.SetWidth(120)

	if view := sb.View(); !strings.Contains(view, "1,234") {
		t.Errorf("View() should contain the formatted token count, got %q", view)
	}
}

func TestStatusBarShowsState(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme())
	sb.SetWidth(120)
	sb.SetStatus(StatusStreaming)

	if view := sb.View(); !strings.Contains(view, "生成中…") {
		t.Errorf("View() should contain the streaming state, got %q", view)
	}
}

func TestStatusBarNarrow(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme())
	sb.SetModel("cyberagent/open-calm-7b")
	sb.SetWidth(50)

	// Narrow layout still renders a single line.
	view := sb.View()
	if view == "" {
		t.Error("narrow View() should not be empty")
	}
	if strings.Count(view, "\n") != 0 {
		t.Error("narrow View() should be a single line")
	}
}
