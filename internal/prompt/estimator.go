// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// =============================================================================
// TOKEN COUNTING
// =============================================================================

// Counter reports the estimated token count of a piece of text.
type Counter interface {
	Count(text string) int
}

// Estimator counts tokens with the cl100k_base BPE encoding when available.
// The encoding dictionary is fetched lazily on first use; when it cannot be
// loaded (offline environments), counting falls back to the character
// heuristic shared with the conversation layer.
type Estimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewEstimator creates a token estimator. Loading the BPE dictionary is
// deferred until the first Count call.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Count returns the estimated token count for text.
func (e *Estimator) Count(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			e.enc = enc
		}
	})

	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	return model.EstimateTokens(text)
}

// =============================================================================
// BUDGET TRIMMING
// =============================================================================

// TrimToBudget drops the oldest exchanges until the formatted context block
// fits within the token budget. A budget of zero or less disables trimming.
func TrimToBudget(exchanges []model.Exchange, budget int, counter Counter) []model.Exchange {
	if budget <= 0 || counter == nil {
		return exchanges
	}

	for len(exchanges) > 0 && counter.Count(BuildContext(exchanges)) > budget {
		exchanges = exchanges[1:]
	}
	return exchanges
}
