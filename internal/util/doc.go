// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the jpchat application.
//
// This package contains common helper functions used throughout the
// application for Japanese-aware text handling and file operations.
//
// # Key Functions
//
// Text Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - DisplayWidth, TruncateWidth, PadRight: terminal-column aware
//     helpers (kana and kanji occupy two columns)
//   - NormalizeCommand: folds fullwidth IME input so "／ｈｅｌｐ"
//     parses as "/help"
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	// Truncate a conversation title safely for display
//	title := util.TruncateWidth(firstMessage, 40)
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
package util
