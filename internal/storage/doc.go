// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for jpchat.
//
// This package handles saving and loading conversations to/from disk,
// with support for search, listing, and export.
//
// # Key Types
//
//   - Store: Main storage interface for conversations
//   - StoredConversation: Serializable conversation with metadata
//   - ConversationMeta: Lightweight metadata for listing
//
// # Usage
//
// Create a store and save a conversation:
//
//	store, err := storage.NewStore(dataDir)
//	id, err := store.Save(conversation)
//
// List and load conversations:
//
//	metas, err := store.List()
//	conv, err := store.Load(metas[0].ID)
//
// Search conversations:
//
//	results, err := store.Search("query text")
//
// Search is case-folded substring matching over titles and message
// content, so Japanese queries match without word segmentation.
//
// # Storage Location
//
// Conversations are stored as one JSON file each, atomically written,
// under ~/.jpchat/conversations/ by default.
package storage
