// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"fmt"
	"strings"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultWindow is the number of recent exchanges included as context.
const DefaultWindow = 3

// DefaultTokenBudget caps the estimated token count of the context block.
// Prompts for 7B-class models degrade sharply past ~2k tokens of input, so
// the context is trimmed before the current message is appended.
const DefaultTokenBudget = 1800

// =============================================================================
// CONTEXT BLOCK
// =============================================================================

// BuildContext formats past exchanges into the shared context block that
// every template embeds before the current message. The block ends with a
// trailing newline so the current turn starts on its own line.
func BuildContext(exchanges []model.Exchange) string {
	var sb strings.Builder
	for _, ex := range exchanges {
		sb.WriteString("ユーザー: ")
		sb.WriteString(ex.User)
		sb.WriteString("\nアシスタント: ")
		sb.WriteString(ex.Assistant)
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// TEMPLATE RENDERING
// =============================================================================

// Build renders the full prompt for a model given the current message and
// prior exchanges. Exchanges are used as-is; callers wanting windowing and
// budget trimming go through a Builder.
func Build(modelID, message string, exchanges []model.Exchange) string {
	ctx := BuildContext(exchanges)

	switch Detect(modelID) {
	case FamilyWebLab, FamilyInstruct:
		return fmt.Sprintf("以下は、タスクを説明する指示と、文脈のある入力の組み合わせです。要求を適切に満たす応答を書いてください。\n\n### 指示:\n日本語で自然な会話を行ってください。\n\n### 入力:\n%sユーザー: %s\n\n### 応答:\n", ctx, message)
	case FamilyElyza:
		return fmt.Sprintf("以下は、タスクを説明する指示です。要求を適切に満たす応答を書きなさい。\n\n### 指示:\n%sユーザー: %s\n\n### 応答:", ctx, message)
	case FamilyLlama3:
		return fmt.Sprintf("<|begin_of_text|><|start_header_id|>user<|end_header_id|>\n\n%sユーザー: %s<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n\n", ctx, message)
	case FamilyLlama2, FamilyMistral:
		return fmt.Sprintf("<s>[INST] %sユーザー: %s [/INST]", ctx, message)
	case FamilyNous:
		return fmt.Sprintf("### Instruction:\n%sユーザー: %s\n\n### Response:", ctx, message)
	case FamilySolar:
		return fmt.Sprintf("### User:\n%sユーザー: %s\n\n### Assistant:", ctx, message)
	default:
		// FamilyRinna and FamilyPlain share the bare completion format.
		return fmt.Sprintf("%sユーザー: %s\nアシスタント:", ctx, message)
	}
}

// =============================================================================
// BUILDER
// =============================================================================

// BuilderConfig holds configuration for a prompt Builder.
type BuilderConfig struct {
	// Window is the number of recent exchanges to include (default: 3)
	Window int

	// TokenBudget caps the estimated context size (default: 1800)
	TokenBudget int

	// Counter estimates token counts for budget trimming
	Counter Counter
}

// Builder renders prompts for a conversation, applying history windowing
// and token budget trimming before the template is filled in.
type Builder struct {
	window  int
	budget  int
	counter Counter
}

// NewBuilder creates a prompt builder. A nil config selects all defaults.
func NewBuilder(config *BuilderConfig) *Builder {
	if config == nil {
		config = &BuilderConfig{}
	}

	window := config.Window
	if window <= 0 {
		window = DefaultWindow
	}
	budget := config.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	counter := config.Counter
	if counter == nil {
		counter = NewEstimator()
	}

	return &Builder{
		window:  window,
		budget:  budget,
		counter: counter,
	}
}

// BuildForConversation renders the prompt for the next turn of conv. The
// context window is the last Window completed exchanges, trimmed oldest
// first when the token budget is exceeded. The current message is always
// included in full.
func (b *Builder) BuildForConversation(conv *model.Conversation, message string) string {
	exchanges := conv.LastExchanges(b.window)
	exchanges = TrimToBudget(exchanges, b.budget, b.counter)
	return Build(conv.Model, message, exchanges)
}

// Window returns the configured exchange window size.
func (b *Builder) Window() int {
	return b.window
}

// TokenBudget returns the configured context token budget.
func (b *Builder) TokenBudget() int {
	return b.budget
}
