// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import "strings"

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes one entry of the model catalog.
// This is used for model selection and display in the UI.
type ModelInfo struct {
	// ID is the Hugging Face model identifier (namespace/name) used in
	// Inference API request paths.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Japanese marks models trained primarily on Japanese text.
	Japanese bool `json:"japanese"`

	// Pro marks 70B-class models that require a PRO account.
	Pro bool `json:"pro"`

	// Description is a brief note on the model's strengths.
	Description string `json:"description"`
}

// DefaultModelID is the model selected when none is configured.
const DefaultModelID = "cyberagent/open-calm-7b"

// =============================================================================
// MODEL CATALOG
// =============================================================================

// Models lists every catalog entry in display order. All entries are
// confirmed to work with the hosted Inference API; models without API
// support are deliberately absent.
var Models = []ModelInfo{
	// 日本語特化モデル
	{
		ID:          "cyberagent/open-calm-7b",
		Name:        "CyberAgent Open CALM 7B",
		Japanese:    true,
		Description: "日本語の自然な対話に向いた汎用モデル",
	},
	{
		ID:          "rinna/japanese-gpt-neox-3.6b-instruction-sft",
		Name:        "Rinna GPT-NeoX 3.6B",
		Japanese:    true,
		Description: "指示チューニング済みの軽量日本語モデル",
	},
	{
		ID:          "matsuo-lab/weblab-10b-instruction-sft",
		Name:        "Matsuo Lab WebLab 10B",
		Japanese:    true,
		Description: "東大松尾研の指示応答モデル",
	},
	{
		ID:          "stabilityai/japanese-stablelm-instruct-alpha-7b",
		Name:        "Japanese StableLM 7B",
		Japanese:    true,
		Description: "Stability AI の日本語指示応答モデル",
	},
	{
		ID:          "tokyotech-llm/Swallow-7b-instruct-hf",
		Name:        "Swallow 7B Instruct (日本語対応)",
		Japanese:    true,
		Description: "Llama 2 ベースの日本語継続事前学習モデル",
	},
	{
		ID:          "elyza/ELYZA-japanese-Llama-2-7b-instruct",
		Name:        "ELYZA Japanese Llama 2 7B",
		Japanese:    true,
		Description: "ELYZA による日本語 Llama 2 派生モデル",
	},

	// 多言語対応・英語モデル
	{
		ID:          "microsoft/DialoGPT-large",
		Name:        "DialoGPT Large (対話特化)",
		Description: "対話に特化した英語モデル",
	},
	{
		ID:          "bigscience/bloom-7b1",
		Name:        "BLOOM 7B (多言語)",
		Description: "多言語対応のオープンモデル",
	},
	{
		ID:          "mistralai/Mistral-7B-Instruct-v0.2",
		Name:        "Mistral 7B Instruct v0.2",
		Description: "高速で軽量な指示応答モデル",
	},
	{
		ID:          "microsoft/DialoGPT-medium",
		Name:        "DialoGPT Medium (対話特化)",
		Description: "対話特化モデルの軽量版",
	},
	{
		ID:          "HuggingFaceH4/zephyr-7b-beta",
		Name:        "Zephyr 7B Beta (対話特化)",
		Description: "Mistral ベースの対話チューニングモデル",
	},
	{
		ID:          "NousResearch/Nous-Hermes-2-Yi-34B",
		Name:        "Nous Hermes 2 Yi 34B",
		Description: "Yi 34B ベースの高性能指示応答モデル",
	},
	{
		ID:          "upstage/SOLAR-10.7B-Instruct-v1.0",
		Name:        "SOLAR 10.7B Instruct",
		Description: "深層アップスケーリングによる高効率モデル",
	},

	// 70Bクラス（PRO/Enterprise向け）
	{
		ID:          "meta-llama/Meta-Llama-3.1-70B-Instruct",
		Name:        "Llama 3.1 70B Instruct (PRO)",
		Pro:         true,
		Description: "最新世代の大規模指示応答モデル",
	},
	{
		ID:          "meta-llama/Llama-2-70b-chat-hf",
		Name:        "Llama 2 70B Chat (PRO)",
		Pro:         true,
		Description: "Llama 2 世代の大規模チャットモデル",
	},
	{
		ID:          "meta-llama/Meta-Llama-3-70B-Instruct",
		Name:        "Llama 3 70B Instruct (PRO)",
		Pro:         true,
		Description: "Llama 3 世代の大規模指示応答モデル",
	},
}

// modelsByID indexes the catalog for exact lookups.
var modelsByID = func() map[string]ModelInfo {
	m := make(map[string]ModelInfo, len(Models))
	for _, info := range Models {
		m[info.ID] = info
	}
	return m
}()

// =============================================================================
// MODEL INFO METHODS
// =============================================================================

// ShortName returns the model name without its namespace.
func (m ModelInfo) ShortName() string {
	if idx := strings.LastIndex(m.ID, "/"); idx >= 0 {
		return m.ID[idx+1:]
	}
	return m.ID
}

// Badge returns a short marker for list display: "日本語" for
// Japanese-focused models, "PRO" for 70B-class models, empty otherwise.
func (m ModelInfo) Badge() string {
	switch {
	case m.Pro:
		return "PRO"
	case m.Japanese:
		return "日本語"
	default:
		return ""
	}
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by ID, short name, or partial match.
// Returns the ModelInfo and true if found.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	if info, ok := modelsByID[nameOrID]; ok {
		return info, true
	}

	// Short name match ("open-calm-7b" for "cyberagent/open-calm-7b").
	for _, info := range Models {
		if info.ShortName() == nameOrID {
			return info, true
		}
	}

	// Case-insensitive substring match on ID and display name.
	needle := strings.ToLower(nameOrID)
	if needle == "" {
		return ModelInfo{}, false
	}
	for _, info := range Models {
		if strings.Contains(strings.ToLower(info.ID), needle) ||
			strings.Contains(strings.ToLower(info.Name), needle) {
			return info, true
		}
	}

	return ModelInfo{}, false
}

// IsKnownModel reports whether the exact model ID is in the catalog.
func IsKnownModel(id string) bool {
	_, ok := modelsByID[id]
	return ok
}

// ModelIDs returns all catalog IDs in display order.
func ModelIDs() []string {
	ids := make([]string, len(Models))
	for i, info := range Models {
		ids[i] = info.ID
	}
	return ids
}

// JapaneseModels returns the Japanese-focused subset in display order.
func JapaneseModels() []ModelInfo {
	result := make([]ModelInfo, 0, len(Models))
	for _, info := range Models {
		if info.Japanese {
			result = append(result, info)
		}
	}
	return result
}

// ProModels returns the PRO-tier subset in display order.
func ProModels() []ModelInfo {
	result := make([]ModelInfo, 0, len(Models))
	for _, info := range Models {
		if info.Pro {
			result = append(result, info)
		}
	}
	return result
}

// DisplayName returns the catalog display name for an ID, or the ID
// itself for models outside the catalog.
func DisplayName(id string) string {
	if info, ok := modelsByID[id]; ok {
		return info.Name
	}
	return id
}
