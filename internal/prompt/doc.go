// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt renders model-specific prompts for the HuggingFace
// Inference API.
//
// Hosted text generation models are completion models, not chat models:
// each family expects its own plain-text instruction format. Detect maps a
// model ID to its Family, Build fills in that family's template, and
// Builder layers history windowing and token budget trimming on top:
//
//	b := prompt.NewBuilder(nil)
//	p := b.BuildForConversation(conv, "日本の首都はどこですか？")
//
// Token counting uses the cl100k_base BPE encoding when its dictionary can
// be loaded, and a character heuristic otherwise.
package prompt
