// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import "strings"

// =============================================================================
// MODEL FAMILIES
// =============================================================================

// Family identifies the prompt format a model expects. Text generation
// endpoints are not chat-aware: each family has its own plain-text
// instruction format, and sending the wrong one degrades output badly.
type Family int

const (
	// FamilyPlain is the bare completion format used by base models
	// (Open CALM, DialoGPT, BLOOM).
	FamilyPlain Family = iota

	// FamilyWebLab is the Alpaca-style Japanese instruction format used by
	// Matsuo Lab WebLab models.
	FamilyWebLab

	// FamilyRinna is the plain user/assistant format used by rinna
	// instruction-tuned models.
	FamilyRinna

	// FamilyElyza is the Japanese instruction format shared by ELYZA and
	// Swallow models.
	FamilyElyza

	// FamilyLlama2 is the [INST] bracket format used by Llama 2 chat models.
	FamilyLlama2

	// FamilyLlama3 is the header-token format used by Llama 3 instruct models.
	FamilyLlama3

	// FamilyMistral is the [INST] bracket format used by Mistral and Zephyr.
	FamilyMistral

	// FamilyNous is the Instruction/Response format used by Nous Hermes.
	FamilyNous

	// FamilySolar is the User/Assistant format used by SOLAR models.
	FamilySolar

	// FamilyInstruct is the generic Japanese instruction format applied to
	// any other model with "instruct" in its name (Japanese StableLM etc).
	FamilyInstruct
)

// String returns a short identifier for the family.
func (f Family) String() string {
	switch f {
	case FamilyWebLab:
		return "weblab"
	case FamilyRinna:
		return "rinna"
	case FamilyElyza:
		return "elyza"
	case FamilyLlama2:
		return "llama2"
	case FamilyLlama3:
		return "llama3"
	case FamilyMistral:
		return "mistral"
	case FamilyNous:
		return "nous"
	case FamilySolar:
		return "solar"
	case FamilyInstruct:
		return "instruct"
	default:
		return "plain"
	}
}

// Detect determines the prompt family for a model ID. Matching is substring
// based on the lowercased ID, and the order of the checks matters: ELYZA
// models carry "Llama" in their IDs but need the ELYZA format, Swallow must
// not fall through to the Llama branch, and Mistral instruct models must not
// land on the generic instruct format.
func Detect(modelID string) Family {
	id := strings.ToLower(modelID)

	switch {
	case strings.Contains(id, "weblab") || strings.Contains(id, "matsuo-lab"):
		return FamilyWebLab
	case strings.Contains(id, "rinna") && strings.Contains(id, "instruction"):
		return FamilyRinna
	case strings.Contains(id, "elyza") || strings.Contains(id, "swallow"):
		return FamilyElyza
	case strings.Contains(id, "llama") && (strings.Contains(id, "chat") || strings.Contains(id, "instruct")):
		if strings.Contains(id, "llama-3") {
			return FamilyLlama3
		}
		return FamilyLlama2
	case strings.Contains(id, "mistral") || strings.Contains(id, "zephyr"):
		return FamilyMistral
	case strings.Contains(id, "nous"):
		return FamilyNous
	case strings.Contains(id, "solar"):
		return FamilySolar
	case strings.Contains(id, "instruct"):
		return FamilyInstruct
	default:
		return FamilyPlain
	}
}
