// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oggata/huggingface-jp-chat-demo/internal/storage"
)

// =============================================================================
// FILE WATCHER INTERFACE
// =============================================================================

// DefaultDebounce is the default debounce window for file change events.
// Atomic saves produce a create+rename burst per conversation; the window
// collapses it into one re-index.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher is the interface for file watching implementations.
type FileWatcher interface {
	// Watch starts watching for file changes
	Watch() error

	// Close stops watching and releases resources
	Close() error
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// FsnotifyWatcher keeps the index in sync with the conversation
// directory using fsnotify.
type FsnotifyWatcher struct {
	idx      *Index
	store    *storage.Store
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time // conversation ID -> last change time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewFsnotifyWatcher creates a watcher over the store's directory.
func NewFsnotifyWatcher(idx *Index, store *storage.Store, debounce time.Duration) (*FsnotifyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FsnotifyWatcher{
		idx:      idx,
		store:    store,
		watcher:  watcher,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching for conversation file changes.
func (fw *FsnotifyWatcher) Watch() error {
	if err := fw.watcher.Add(fw.store.Dir); err != nil {
		return err
	}

	go fw.processEvents()
	go fw.processPending()

	return nil
}

// conversationID extracts the conversation ID from an event path, or ""
// for paths the watcher does not care about (temp files, directories).
func conversationID(path string) string {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return ""
	}
	return strings.TrimSuffix(name, ".json")
}

// processEvents processes file system events.
func (fw *FsnotifyWatcher) processEvents() {
	defer func() {
		// A panic here would take down the whole program from a
		// background goroutine; swallow it and let the watcher die.
		_ = recover()
	}()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			id := conversationID(event.Name)
			if id == "" {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				fw.mu.Lock()
				fw.pending[id] = time.Now()
				fw.mu.Unlock()
			}

			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				fw.mu.Lock()
				delete(fw.pending, id)
				fw.mu.Unlock()
				_ = fw.idx.Remove(id)
			}

		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// processPending re-indexes changed conversations after the debounce
// window passes.
func (fw *FsnotifyWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			fw.mu.Lock()
			var toProcess []string
			for id, changeTime := range fw.pending {
				if now.Sub(changeTime) >= fw.debounce {
					toProcess = append(toProcess, id)
					delete(fw.pending, id)
				}
			}
			fw.mu.Unlock()

			for _, id := range toProcess {
				fw.updateConversation(id)
			}
		}
	}
}

// updateConversation re-indexes a single conversation from the store.
func (fw *FsnotifyWatcher) updateConversation(id string) {
	sc, err := fw.store.Load(id)
	if err != nil {
		// File may have been deleted between the event and now.
		_ = fw.idx.Remove(id)
		return
	}
	_ = fw.idx.IndexConversation(sc)
}

// Close stops watching and releases resources.
func (fw *FsnotifyWatcher) Close() error {
	fw.cancel()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}

// =============================================================================
// WATCHER WIRING
// =============================================================================

// StartWatcher attaches an fsnotify watcher to the index. The watcher is
// closed together with the index.
func (idx *Index) StartWatcher(store *storage.Store, debounce time.Duration) error {
	fw, err := NewFsnotifyWatcher(idx, store, debounce)
	if err != nil {
		return err
	}
	if err := fw.Watch(); err != nil {
		fw.Close()
		return err
	}

	idx.mu.Lock()
	idx.watcher = fw
	idx.mu.Unlock()
	return nil
}
