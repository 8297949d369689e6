// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/oggata/huggingface-jp-chat-demo/internal/ui/styles"
)

var testCommands = []Completion{
	{Value: "/help", Description: "コマンド一覧を表示"},
	{Value: "/model", Description: "モデルを切り替え"},
	{Value: "/models", Description: "モデル一覧を表示"},
	{Value: "/save", Description: "会話を保存"},
	{Value: "/sessions", Description: "保存済みセッションを表示"},
}

func TestCompleteCommandsRequiresSlash(t *testing.T) {
	if got := CompleteCommands("help", testCommands); got != nil {
		t.Errorf("input without a slash should not complete, got %v", got)
	}
}

func TestCompleteCommandsMatches(t *testing.T) {
	got := CompleteCommands("/mod", testCommands)
	if len(got) != 2 {
		t.Fatalf("got %d completions, want 2: %v", len(got), got)
	}
	if got[0].Value != "/model" {
		t.Errorf("best match = %q, want %q", got[0].Value, "/model")
	}
}

func TestCompleteCommandsBareSlash(t *testing.T) {
	got := CompleteCommands("/", testCommands)
	if len(got) != len(testCommands) {
		t.Errorf("bare slash should list all commands, got %d", len(got))
	}
}

func TestCompletionPopupNavigation(t *testing.T) {
	p := NewCompletionPopup(styles.NewTheme())
	p.SetCompletions(testCommands[:3])

	if sel := p.Selected(); sel == nil || sel.Value != "/help" {
		t.Fatalf("initial selection = %v, want /help", sel)
	}

	p.Next()
	if sel := p.Selected(); sel.Value != "/model" {
		t.Errorf("after Next() selection = %q, want /model", sel.Value)
	}

	p.Prev()
	p.Prev()
	if sel := p.Selected(); sel.Value != "/models" {
		t.Errorf("Prev() should wrap to the end, got %q", sel.Value)
	}
}

func TestCompletionPopupView(t *testing.T) {
	p := NewCompletionPopup(styles.NewTheme())

	if p.View() != "" {
		t.Error("empty popup should render nothing")
	}

	p.SetCompletions(testCommands)
	view := p.View()
	if !strings.Contains(view, "/help") {
		t.Errorf("View() should list candidates, got %q", view)
	}

	p.Clear()
	if p.HasCompletions() {
		t.Error("Clear() should remove all candidates")
	}
}

func TestCompletionPopupViewInline(t *testing.T) {
	p := NewCompletionPopup(styles.NewTheme())
	p.SetCompletions(testCommands)

	inline := p.ViewInline()
	if !strings.Contains(inline, "ほか2件") {
		t.Errorf("ViewInline() should count the overflow, got %q", inline)
	}
}
