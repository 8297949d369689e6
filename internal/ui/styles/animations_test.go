// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"
	"time"
)

func TestSpinnerConfigs(t *testing.T) {
	for _, s := range []SpinnerConfig{BrailleSpinner, DotsSpinner, LineSpinner} {
		if len(s.Frames) == 0 {
			t.Error("spinner has no frames")
		}
		if s.FPS <= 0 {
			t.Errorf("spinner FPS = %d", s.FPS)
		}
		if s.Duration() <= 0 || s.Duration() > time.Second {
			t.Errorf("spinner duration = %v", s.Duration())
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		percent float64
		wantLen int
	}{
		{"empty", 10, 0, 10},
		{"half", 10, 50, 10},
		{"full", 10, 100, 10},
		{"clamped high", 10, 150, 10},
		{"clamped low", 10, -5, 10},
		{"zero width", 0, 50, 0},
		{"negative width", -3, 50, 0},
	}

	for _, tt := range tests {
		got := RenderProgressBar(tt.width, tt.percent)
		if len(got) != tt.wantLen {
			t.Errorf("%s: len = %d, want %d (%q)", tt.name, len(got), tt.wantLen, got)
		}
	}
}

func TestRenderProgressBarMonotonic(t *testing.T) {
	count := func(s string) int {
		n := 0
		for _, r := range s {
			if string(r) == ProgressFull {
				n++
			}
		}
		return n
	}
	prev := -1
	for p := 0.0; p <= 100; p += 10 {
		n := count(RenderProgressBar(20, p))
		if n < prev {
			t.Errorf("filled count decreased at %.0f%%: %d < %d", p, n, prev)
		}
		prev = n
	}
}
