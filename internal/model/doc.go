// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the
// application for representing chat conversations, messages, and the
// model catalog.
//
// # Key Types
//
//   - Conversation: container for a chat session with messages and metadata
//   - Message: single message with role, content, timestamp, and statistics
//   - Exchange: one completed user/assistant turn pair, the unit of
//     history fed into prompt templates
//   - ModelInfo: catalog entry for a Hugging Face model (ID, display
//     name, Japanese/PRO markers)
//   - Role: message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a conversation and add messages:
//
//	conv := model.NewConversation(model.DefaultModelID)
//	conv.AddUserMessage("こんにちは！")
//
// Look up catalog models:
//
//	info, ok := model.GetModelInfo("open-calm")
//	fmt.Println(info.Name) // CyberAgent Open CALM 7B
package model
