// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// =============================================================================
// FAMILY DETECTION
// =============================================================================

func TestDetect(t *testing.T) {
	testCases := []struct {
		modelID string
		want    Family
	}{
		// Japanese instruction models
		{"matsuo-lab/weblab-10b-instruction-sft", FamilyWebLab},
		{"rinna/japanese-gpt-neox-3.6b-instruction-sft", FamilyRinna},
		// ELYZA carries "Llama" in its ID but must get the ELYZA format.
		{"elyza/ELYZA-japanese-Llama-2-7b-instruct", FamilyElyza},
		{"tokyotech-llm/Swallow-7b-instruct-hf", FamilyElyza},
		// Llama variants
		{"meta-llama/Meta-Llama-3.1-70B-Instruct", FamilyLlama3},
		{"meta-llama/Meta-Llama-3-70B-Instruct", FamilyLlama3},
		{"meta-llama/Llama-2-70b-chat-hf", FamilyLlama2},
		// Mistral-style, must not fall through to generic instruct.
		{"mistralai/Mistral-7B-Instruct-v0.2", FamilyMistral},
		{"HuggingFaceH4/zephyr-7b-beta", FamilyMistral},
		{"NousResearch/Nous-Hermes-2-Yi-34B", FamilyNous},
		{"upstage/SOLAR-10.7B-Instruct-v1.0", FamilySolar},
		// Generic instruct catch-all
		{"stabilityai/japanese-stablelm-instruct-alpha-7b", FamilyInstruct},
		// Base completion models
		{"cyberagent/open-calm-7b", FamilyPlain},
		{"microsoft/DialoGPT-large", FamilyPlain},
		{"microsoft/DialoGPT-medium", FamilyPlain},
		{"bigscience/bloom-7b1", FamilyPlain},
	}

	for _, tc := range testCases {
		t.Run(tc.modelID, func(t *testing.T) {
			if got := Detect(tc.modelID); got != tc.want {
				t.Errorf("Detect(%q) = %s, want %s", tc.modelID, got, tc.want)
			}
		})
	}
}

func TestFamilyString(t *testing.T) {
	if FamilyPlain.String() != "plain" {
		t.Errorf("FamilyPlain = %q", FamilyPlain.String())
	}
	if FamilyLlama3.String() != "llama3" {
		t.Errorf("FamilyLlama3 = %q", FamilyLlama3.String())
	}
}

// =============================================================================
// CONTEXT BLOCK
// =============================================================================

func TestBuildContext(t *testing.T) {
	if got := BuildContext(nil); got != "" {
		t.Errorf("empty context = %q", got)
	}

	exchanges := []model.Exchange{
		{User: "元気？", Assistant: "元気です。"},
		{User: "天気は？", Assistant: "晴れです。"},
	}
	want := "ユーザー: 元気？\nアシスタント: 元気です。\nユーザー: 天気は？\nアシスタント: 晴れです。\n"
	if got := BuildContext(exchanges); got != want {
		t.Errorf("BuildContext = %q, want %q", got, want)
	}
}

// =============================================================================
// TEMPLATE GOLDEN TESTS
// =============================================================================

func TestBuildPlain(t *testing.T) {
	got := Build("cyberagent/open-calm-7b", "こんにちは", nil)
	want := "ユーザー: こんにちは\nアシスタント:"
	if got != want {
		t.Errorf("plain prompt = %q, want %q", got, want)
	}
}

func TestBuildPlainWithHistory(t *testing.T) {
	exchanges := []model.Exchange{{User: "元気？", Assistant: "元気です。"}}
	got := Build("cyberagent/open-calm-7b", "こんにちは", exchanges)
	want := "ユーザー: 元気？\nアシスタント: 元気です。\nユーザー: こんにちは\nアシスタント:"
	if got != want {
		t.Errorf("plain prompt with history = %q, want %q", got, want)
	}
}

func TestBuildRinna(t *testing.T) {
	got := Build("rinna/japanese-gpt-neox-3.6b-instruction-sft", "こんにちは", nil)
	want := "ユーザー: こんにちは\nアシスタント:"
	if got != want {
		t.Errorf("rinna prompt = %q, want %q", got, want)
	}
}

func TestBuildWebLab(t *testing.T) {
	got := Build("matsuo-lab/weblab-10b-instruction-sft", "こんにちは", nil)
	want := "以下は、タスクを説明する指示と、文脈のある入力の組み合わせです。要求を適切に満たす応答を書いてください。\n\n### 指示:\n日本語で自然な会話を行ってください。\n\n### 入力:\nユーザー: こんにちは\n\n### 応答:\n"
	if got != want {
		t.Errorf("weblab prompt = %q, want %q", got, want)
	}
}

func TestBuildElyza(t *testing.T) {
	got := Build("elyza/ELYZA-japanese-Llama-2-7b-instruct", "こんにちは", nil)
	want := "以下は、タスクを説明する指示です。要求を適切に満たす応答を書きなさい。\n\n### 指示:\nユーザー: こんにちは\n\n### 応答:"
	if got != want {
		t.Errorf("elyza prompt = %q, want %q", got, want)
	}
}

func TestBuildLlama3(t *testing.T) {
	got := Build("meta-llama/Meta-Llama-3.1-70B-Instruct", "こんにちは", nil)
	want := "<|begin_of_text|><|start_header_id|>user<|end_header_id|>\n\nユーザー: こんにちは<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n\n"
	if got != want {
		t.Errorf("llama3 prompt = %q, want %q", got, want)
	}
}

func TestBuildLlama2(t *testing.T) {
	got := Build("meta-llama/Llama-2-70b-chat-hf", "こんにちは", nil)
	want := "<s>[INST] ユーザー: こんにちは [/INST]"
	if got != want {
		t.Errorf("llama2 prompt = %q, want %q", got, want)
	}
}

func TestBuildMistral(t *testing.T) {
	got := Build("mistralai/Mistral-7B-Instruct-v0.2", "こんにちは", nil)
	want := "<s>[INST] ユーザー: こんにちは [/INST]"
	if got != want {
		t.Errorf("mistral prompt = %q, want %q", got, want)
	}
}

func TestBuildNous(t *testing.T) {
	got := Build("NousResearch/Nous-Hermes-2-Yi-34B", "こんにちは", nil)
	want := "### Instruction:\nユーザー: こんにちは\n\n### Response:"
	if got != want {
		t.Errorf("nous prompt = %q, want %q", got, want)
	}
}

func TestBuildSolar(t *testing.T) {
	got := Build("upstage/SOLAR-10.7B-Instruct-v1.0", "こんにちは", nil)
	want := "### User:\nユーザー: こんにちは\n\n### Assistant:"
	if got != want {
		t.Errorf("solar prompt = %q, want %q", got, want)
	}
}

func TestBuildGenericInstruct(t *testing.T) {
	// StableLM has no dedicated template and gets the WebLab-style format.
	got := Build("stabilityai/japanese-stablelm-instruct-alpha-7b", "こんにちは", nil)
	want := Build("matsuo-lab/weblab-10b-instruction-sft", "こんにちは", nil)
	if got != want {
		t.Errorf("generic instruct prompt = %q, want %q", got, want)
	}
}

// =============================================================================
// BUDGET TRIMMING
// =============================================================================

// runeCounter is a deterministic Counter for tests: one token per rune.
type runeCounter struct{}

func (runeCounter) Count(text string) int {
	return utf8.RuneCountInString(text)
}

func TestTrimToBudget(t *testing.T) {
	exchanges := []model.Exchange{
		{User: "古い質問", Assistant: "古い回答"},
		{User: "新しい質問", Assistant: "新しい回答"},
	}

	// Budget large enough for both.
	kept := TrimToBudget(exchanges, 1000, runeCounter{})
	if len(kept) != 2 {
		t.Errorf("large budget kept %d exchanges", len(kept))
	}

	// One formatted exchange here is ~20 runes; a 30-rune budget fits only
	// the newest.
	kept = TrimToBudget(exchanges, 30, runeCounter{})
	if len(kept) != 1 {
		t.Fatalf("small budget kept %d exchanges, want 1", len(kept))
	}
	if kept[0].User != "新しい質問" {
		t.Errorf("kept wrong exchange: %+v", kept[0])
	}

	// Impossible budget drops everything rather than exceeding it.
	kept = TrimToBudget(exchanges, 1, runeCounter{})
	if len(kept) != 0 {
		t.Errorf("impossible budget kept %d exchanges", len(kept))
	}

	// Zero budget disables trimming.
	kept = TrimToBudget(exchanges, 0, runeCounter{})
	if len(kept) != 2 {
		t.Errorf("zero budget trimmed to %d exchanges", len(kept))
	}
}

func TestEstimatorCount(t *testing.T) {
	e := NewEstimator()
	if got := e.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d", got)
	}
	if got := e.Count("hello world"); got <= 0 {
		t.Errorf("Count(\"hello world\") = %d", got)
	}
	// Longer text never counts lower than a prefix of itself.
	short := e.Count("こんにちは")
	long := e.Count("こんにちは、今日はいい天気ですね")
	if long < short {
		t.Errorf("long text counted %d, short %d", long, short)
	}
}

// =============================================================================
// BUILDER
// =============================================================================

func TestBuilderDefaults(t *testing.T) {
	b := NewBuilder(nil)
	if b.Window() != DefaultWindow {
		t.Errorf("window = %d", b.Window())
	}
	if b.TokenBudget() != DefaultTokenBudget {
		t.Errorf("budget = %d", b.TokenBudget())
	}
}

func TestBuilderWindowsHistory(t *testing.T) {
	conv := model.NewConversation("cyberagent/open-calm-7b")
	topics := []string{"一番目", "二番目", "三番目", "四番目", "五番目"}
	for _, topic := range topics {
		conv.AddUserMessage(topic + "の質問")
		asst := conv.AddAssistantMessage()
		asst.AppendToken(topic + "の回答")
		asst.FinalizeStream(nil)
	}

	b := NewBuilder(&BuilderConfig{Counter: runeCounter{}})
	got := b.BuildForConversation(conv, "次の質問")

	// Only the last three exchanges survive the window.
	for _, absent := range []string{"一番目", "二番目"} {
		if strings.Contains(got, absent) {
			t.Errorf("prompt contains windowed-out topic %q", absent)
		}
	}
	for _, present := range []string{"三番目", "四番目", "五番目", "次の質問"} {
		if !strings.Contains(got, present) {
			t.Errorf("prompt missing topic %q", present)
		}
	}
}

func TestBuilderBudgetTrims(t *testing.T) {
	conv := model.NewConversation("cyberagent/open-calm-7b")
	long := strings.Repeat("長い話。", 20)
	for i := 0; i < 3; i++ {
		conv.AddUserMessage(long)
		asst := conv.AddAssistantMessage()
		asst.AppendToken(long)
		asst.FinalizeStream(nil)
	}

	// Each exchange is ~180 runes formatted; a 200-rune budget keeps one.
	b := NewBuilder(&BuilderConfig{TokenBudget: 200, Counter: runeCounter{}})
	got := b.BuildForConversation(conv, "短い質問")

	if n := strings.Count(got, "アシスタント: "); n != 1 {
		t.Errorf("budgeted prompt has %d history replies, want 1", n)
	}
	if !strings.Contains(got, "短い質問") {
		t.Error("current message missing from budgeted prompt")
	}
}
