// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index provides a SQLite search index over saved conversations.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/oggata/huggingface-jp-chat-demo/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("index closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// INDEX
// =============================================================================

// Index maintains a SQLite database mirroring the conversation store for
// fast search.
type Index struct {
	db      *sql.DB
	path    string
	watcher FileWatcher

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the index database at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time; a single connection
	// avoids SQLITE_BUSY between the watcher and queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &Index{db: db, path: path}

	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return idx, nil
}

// initSchema creates the database schema.
func (idx *Index) initSchema() error {
	if _, err := idx.db.Exec(Schema); err != nil {
		return err
	}
	_, err := idx.db.Exec(InitMetadata)
	return err
}

// Close closes the index and releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true

	if idx.watcher != nil {
		idx.watcher.Close()
		idx.watcher = nil
	}

	return idx.db.Close()
}

// =============================================================================
// INDEXING
// =============================================================================

// IndexConversation inserts or replaces a conversation in the index.
func (idx *Index) IndexConversation(sc *storage.StoredConversation) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return ErrClosed
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	// Replace any previous rows for this conversation.
	if _, err := tx.Exec("DELETE FROM conversations WHERE id = ?", sc.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, model, updated_at, message_count)
		VALUES (?, ?, ?, ?, ?)
	`, sc.ID, sc.Title, sc.Model, sc.UpdatedAt.Unix(), len(sc.Messages))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (conv_id, seq, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for seq, msg := range sc.Messages {
		if _, err := stmt.Exec(sc.ID, seq, msg.Role, msg.Content, msg.Timestamp.Unix()); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	return tx.Commit()
}

// Remove deletes a conversation from the index.
func (idx *Index) Remove(id string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return ErrClosed
	}

	// Cascade removes the messages.
	_, err := idx.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Rebuild drops all index rows and re-indexes every conversation in the
// store. Corrupted store files are skipped.
func (idx *Index) Rebuild(store *storage.Store) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	idx.mu.RLock()
	if idx.closed {
		idx.mu.RUnlock()
		return ErrClosed
	}
	if _, err := idx.db.Exec("DELETE FROM conversations"); err != nil {
		idx.mu.RUnlock()
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	idx.mu.RUnlock()

	for _, meta := range metas {
		sc, err := store.Load(meta.ID)
		if err != nil {
			continue
		}
		if err := idx.IndexConversation(sc); err != nil {
			return err
		}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return ErrClosed
	}
	_, err = idx.db.Exec("UPDATE metadata SET value = ? WHERE key = 'last_rebuild'",
		strconv.FormatInt(time.Now().Unix(), 10))
	return err
}

// =============================================================================
// STATS
// =============================================================================

// Stats returns the number of indexed conversations and messages.
func (idx *Index) Stats() (convs, msgs int, err error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return 0, 0, ErrClosed
	}

	if err := idx.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&convs); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&msgs); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return convs, msgs, nil
}
