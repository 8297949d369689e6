// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

func TestNewHeaderDefaults(t *testing.T) {
	h := NewHeader(styles.NewTheme())

	if h.Title != "jpchat" {
		t.Errorf("Title = %q, want %q", h.Title, "jpchat")
	}
	if h.Width != 80 {
		t.Errorf("Width = %d, want 80", h.Width)
	}
}

func TestHeaderViewContainsModel(t *testing.T) {
	h := NewHeader(styles.NewTheme())
	h.SetModel("cyberagent/open-calm-7b", true, false)

	view := h.View()
	if !strings.Contains(view, "open-calm-7b") {
		t.Errorf("View() should contain the model name, got %q", view)
	}
	if !strings.Contains(view, styles.BadgeJapanese) {
		t.Errorf("View() should contain the %s badge", styles.BadgeJapanese)
	}
	if strings.Contains(view, styles.BadgePro) {
		t.Error("View() should not contain the PRO badge for a free model")
	}
}

func TestHeaderProBadge(t *testing.T) {
	h := NewHeader(styles.NewTheme())
	h.SetModel("meta-llama/Llama-2-70b-chat-hf", false, true)

	if view := h.View(); !strings.Contains(view, styles.BadgePro) {
		t.Errorf("View() should contain the PRO badge, got %q", view)
	}
}

func TestHeaderViewCompact(t *testing.T) {
	h := NewHeader(styles.NewTheme())
	h.SetModel("rinna/japanese-gpt-neox-3.6b", true, false)

	compact := h.ViewCompact()
	if !strings.Contains(compact, "jpchat") {
		t.Errorf("ViewCompact() should contain the title, got %q", compact)
	}
	if !strings.Contains(compact, "japanese-gpt-neox") {
		t.Errorf("ViewCompact() should contain the model name, got %q", compact)
	}
	if strings.Count(compact, "\n") != 0 {
		t.Error("ViewCompact() should be a single line")
	}
}

func TestHeaderMinimumWidth(t *testing.T) {
	h := NewHeader(styles.NewTheme())
	h.SetWidth(10)

	// Must not panic on tiny widths.
	if view := h.View(); view == "" {
		t.Error("View() should render even at tiny widths")
	}
}
