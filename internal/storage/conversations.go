// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for jpchat.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/util"
)

// =============================================================================
// STORED TYPES
// =============================================================================

// StoredConversation is the persisted JSON shape of a conversation.
type StoredConversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []StoredMessage `json:"messages"`
}

// StoredMessage is the persisted JSON shape of a message.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Statistics (assistant messages)
	TokenCount int   `json:"token_count,omitempty"`
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// FromConversation converts a live conversation to its stored shape.
func FromConversation(conv *model.Conversation) *StoredConversation {
	sc := &StoredConversation{
		ID:        conv.ID,
		Title:     conv.GetTitle(),
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  make([]StoredMessage, 0, len(conv.Messages)),
	}
	for _, msg := range conv.Messages {
		sc.Messages = append(sc.Messages, StoredMessage{
			ID:         msg.ID,
			Role:       msg.Role.String(),
			Content:    msg.Content,
			Timestamp:  msg.Timestamp,
			TokenCount: msg.TokenCount,
			DurationMs: msg.TotalDuration.Milliseconds(),
		})
	}
	return sc
}

// ToConversation converts a stored conversation back to the live shape.
func (c *StoredConversation) ToConversation() *model.Conversation {
	conv := &model.Conversation{
		ID:        c.ID,
		Title:     c.Title,
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]*model.Message, 0, len(c.Messages)),
		MaxTokens: model.DefaultContextTokens,
	}
	for _, sm := range c.Messages {
		msg := model.NewMessage(model.Role(sm.Role), sm.Content)
		msg.ID = sm.ID
		msg.Timestamp = sm.Timestamp
		msg.TokenCount = sm.TokenCount
		msg.TotalDuration = time.Duration(sm.DurationMs) * time.Millisecond
		conv.Messages = append(conv.Messages, msg)
	}
	return conv
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// ErrInvalidID is returned for IDs that could escape the storage dir.
var ErrInvalidID = errors.New("invalid conversation id")

// ConversationError wraps a storage failure with its operation and ID.
type ConversationError struct {
	Op  string
	ID  string
	Err error
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConversationError) Unwrap() error {
	return e.Err
}

// validID matches conversation IDs that are safe to join into a path.
var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// =============================================================================
// STORE
// =============================================================================

// Store handles conversation persistence as one JSON file per
// conversation.
type Store struct {
	// Dir is the directory for storing conversations.
	Dir string

	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int
}

// NewStore creates a conversation store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &ConversationError{Op: "init", Err: err}
	}
	return &Store{Dir: dir, MaxConversations: 100}, nil
}

// filePath returns the file path for a conversation ID.
func (s *Store) filePath(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", ErrInvalidID
	}
	return filepath.Join(s.Dir, id+".json"), nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a conversation and returns its ID.
func (s *Store) Save(conv *model.Conversation) (string, error) {
	sc := FromConversation(conv)

	if sc.UpdatedAt.IsZero() {
		sc.UpdatedAt = time.Now()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = sc.UpdatedAt
	}

	path, err := s.filePath(sc.ID)
	if err != nil {
		return "", &ConversationError{Op: "save", ID: sc.ID, Err: err}
	}

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return "", &ConversationError{Op: "save", ID: sc.ID, Err: err}
	}

	// Atomic write with fsync prevents data loss on crash.
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", &ConversationError{Op: "save", ID: sc.ID, Err: err}
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}

	return sc.ID, nil
}

// enforceLimit removes oldest conversations if over limit.
func (s *Store) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxConversations {
		return
	}

	// List is newest-first; the tail holds the oldest entries.
	excess := metas[s.MaxConversations:]
	for _, meta := range excess {
		_ = s.Delete(meta.ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID.
func (s *Store) Load(id string) (*StoredConversation, error) {
	path, err := s.filePath(id)
	if err != nil {
		return nil, &ConversationError{Op: "load", ID: id, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConversationError{Op: "load", ID: id, Err: ErrNotFound}
		}
		return nil, &ConversationError{Op: "load", ID: id, Err: err}
	}

	var sc StoredConversation
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, &ConversationError{Op: "load", ID: id, Err: err}
	}
	return &sc, nil
}

// LoadConversation retrieves a conversation by ID in the live shape.
func (s *Store) LoadConversation(id string) (*model.Conversation, error) {
	sc, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	return sc.ToConversation(), nil
}

// LoadByIndex loads a conversation by its list index (0 = most recent).
func (s *Store) LoadByIndex(index int) (*StoredConversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, &ConversationError{Op: "load", Err: ErrNotFound}
	}
	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved conversations (most recent first).
func (s *Store) List() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ConversationMeta{}, nil
		}
		return nil, &ConversationError{Op: "list", Err: err}
	}

	var metas []ConversationMeta

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		sc, err := s.Load(id)
		if err != nil {
			continue // Skip corrupted files
		}

		metas = append(metas, sc.Meta())
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// Meta returns the listing metadata for a stored conversation.
func (c *StoredConversation) Meta() ConversationMeta {
	return ConversationMeta{
		ID:           c.ID,
		Title:        c.Title,
		Model:        c.Model,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
		Preview:      c.Preview(),
	}
}

// Preview returns a preview string from the first user message.
func (c *StoredConversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == "user" && msg.Content != "" {
			preview := strings.ReplaceAll(msg.Content, "\n", " ")
			return util.TruncateRunes(preview, 80)
		}
	}
	return ""
}

// Search finds conversations whose title or any message contains the
// query. Matching is case-folded substring comparison, which works for
// Japanese text without any word segmentation assumption.
func (s *Store) Search(query string) ([]ConversationMeta, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.List()
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) {
			results = append(results, meta)
			continue
		}

		sc, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range sc.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}

	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID.
func (s *Store) Delete(id string) error {
	path, err := s.filePath(id)
	if err != nil {
		return &ConversationError{Op: "delete", ID: id, Err: err}
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &ConversationError{Op: "delete", ID: id, Err: ErrNotFound}
		}
		return &ConversationError{Op: "delete", ID: id, Err: err}
	}
	return nil
}

// Clear removes all saved conversations.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &ConversationError{Op: "clear", Err: err}
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.Dir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown writes the conversation as Markdown to w.
func (s *Store) ExportMarkdown(id string, w io.Writer) error {
	sc, err := s.Load(id)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, sc.Markdown())
	return err
}

// ExportJSON writes the conversation as pretty-printed JSON to w.
func (s *Store) ExportJSON(id string, w io.Writer) error {
	sc, err := s.Load(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return &ConversationError{Op: "export", ID: id, Err: err}
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Markdown renders the conversation as a Markdown document. Role labels
// follow the chat surface wording.
func (c *StoredConversation) Markdown() string {
	var sb strings.Builder
	title := c.Title
	if title == "" {
		title = c.ID
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString("- モデル: " + c.Model + "\n")
	sb.WriteString("- 作成: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		label := "**あなた**"
		switch msg.Role {
		case "assistant":
			label = "**アシスタント**"
		case "system":
			label = "**システム**"
		}
		sb.WriteString(label + " (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}
