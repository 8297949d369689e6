// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides a SQLite search index over saved conversations.
//
// The index mirrors the JSON conversation store into a small SQLite
// database so searches do not have to read every file. Search is
// substring LIKE rather than FTS because the bundled FTS tokenizers do
// not segment Japanese text.
//
// # Key Types
//
//   - Index: SQLite-backed conversation index
//   - Hit: Search result with a snippet around the first match
//   - FsnotifyWatcher: keeps the index in sync with the store directory
//
// # Usage
//
// Open and populate an index:
//
//	idx, err := index.Open(dbPath)
//	err = idx.Rebuild(store)
//
// Search the index:
//
//	hits, err := idx.Search("東京", 20)
//	for _, h := range hits {
//	    fmt.Printf("%s %s\n", h.ConvID, h.Snippet)
//	}
//
// Enable file watching for incremental updates:
//
//	err = idx.StartWatcher(store, 0)
package index
