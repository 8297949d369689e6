// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func sampleConversation(user, assistant string) *model.Conversation {
	conv := model.NewConversation("cyberagent/open-calm-7b")
	conv.AddUserMessage(user)
	msg := conv.AddAssistantMessage()
	msg.SetContent(assistant)
	return conv
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "conversations")

	store, err := NewStore(dir)
	require.NoError(t, err)

	if store.Dir != dir {
		t.Errorf("Dir = %q, want %q", store.Dir, dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("store directory not created: %v", err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	conv := sampleConversation("こんにちは", "こんにちは！何かお手伝いできますか？")

	id, err := store.Save(conv)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.True(t, strings.HasPrefix(id, "conv_"), "ID should start with conv_, got %q", id)

	loaded, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, conv.Model, loaded.Model)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "こんにちは", loaded.Messages[0].Content)
	assert.Equal(t, "user", loaded.Messages[0].Role)
	assert.Equal(t, "assistant", loaded.Messages[1].Role)
}

func TestStore_RoundTripConversation(t *testing.T) {
	store := newTestStore(t)

	conv := sampleConversation("日本の首都は？", "東京です。")
	id, err := store.Save(conv)
	require.NoError(t, err)

	back, err := store.LoadConversation(id)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, back.ID)
	assert.Equal(t, conv.GetTitle(), back.GetTitle())
	require.Len(t, back.Messages, 2)
	assert.Equal(t, conv.Messages[0].Content, back.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, back.Messages[1].Role)
}

func TestStore_AtomicWriteLeavesNoTemp(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(sampleConversation("a", "b"))
	require.NoError(t, err)

	entries, err := os.ReadDir(store.Dir)
	require.NoError(t, err)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			t.Errorf("unexpected leftover file: %s", e.Name())
		}
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("conv_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "want ErrNotFound, got %v", err)

	var convErr *ConversationError
	assert.True(t, errors.As(err, &convErr))
	assert.Equal(t, "load", convErr.Op)
}

func TestStore_InvalidID(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"../escape", "a/b", "", "conv id"} {
		_, err := store.Load(id)
		assert.True(t, errors.Is(err, ErrInvalidID), "id %q: want ErrInvalidID, got %v", id, err)
	}
}

func TestStore_ListOrdering(t *testing.T) {
	store := newTestStore(t)

	first := sampleConversation("first", "resp")
	first.UpdatedAt = time.Now().Add(-2 * time.Hour)
	second := sampleConversation("second", "resp")
	second.UpdatedAt = time.Now().Add(-1 * time.Hour)
	third := sampleConversation("third", "resp")

	for _, conv := range []*model.Conversation{first, second, third} {
		_, err := store.Save(conv)
		require.NoError(t, err)
	}

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, third.ID, metas[0].ID, "most recent first")
	assert.Equal(t, first.ID, metas[2].ID, "oldest last")
}

func TestStore_ListSkipsCorrupted(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(sampleConversation("ok", "resp"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "conv_bad.json"), []byte("{notjson"), 0644))

	metas, err := store.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestStore_SearchJapanese(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(sampleConversation("東京の天気を教えて", "晴れです。"))
	require.NoError(t, err)
	_, err = store.Save(sampleConversation("大阪のおすすめ料理", "たこ焼きが有名です。"))
	require.NoError(t, err)

	// Title match (title comes from the first user message).
	hits, err := store.Search("東京")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Title, "東京")

	// Message content match only.
	hits, err = store.Search("たこ焼き")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	// Miss.
	hits, err = store.Search("存在しない話題")
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Empty query lists everything.
	hits, err = store.Search("  ")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save(sampleConversation("hello", "hi"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	_, err = store.Load(id)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.Delete(id)
	assert.True(t, errors.Is(err, ErrNotFound), "double delete should report not found")
}

func TestStore_EnforceLimit(t *testing.T) {
	store := newTestStore(t)
	store.MaxConversations = 3

	var oldest string
	for i := 0; i < 5; i++ {
		conv := sampleConversation("message", "resp")
		conv.UpdatedAt = time.Now().Add(time.Duration(i-10) * time.Minute)
		if i == 0 {
			oldest = conv.ID
		}
		_, err := store.Save(conv)
		require.NoError(t, err)
	}

	metas, err := store.List()
	require.NoError(t, err)
	assert.Len(t, metas, 3)

	for _, meta := range metas {
		assert.NotEqual(t, oldest, meta.ID, "oldest conversation should have been pruned")
	}
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestStore_ExportMarkdown(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save(sampleConversation("こんにちは", "こんにちは！"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.ExportMarkdown(id, &buf))

	out := buf.String()
	assert.Contains(t, out, "**あなた**")
	assert.Contains(t, out, "**アシスタント**")
	assert.Contains(t, out, "こんにちは！")
	assert.Contains(t, out, "モデル: cyberagent/open-calm-7b")
}

func TestStore_ExportJSON(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save(sampleConversation("質問", "回答"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(id, &buf))

	var sc StoredConversation
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sc))
	assert.Equal(t, id, sc.ID)
	assert.Len(t, sc.Messages, 2)
}

func TestStoredConversation_Preview(t *testing.T) {
	sc := &StoredConversation{
		Messages: []StoredMessage{
			{Role: "system", Content: "setup"},
			{Role: "user", Content: "line one\nline two"},
		},
	}
	preview := sc.Preview()
	assert.NotContains(t, preview, "\n", "preview should be single line")
	assert.Contains(t, preview, "line one")

	empty := &StoredConversation{}
	assert.Equal(t, "", empty.Preview())
}
