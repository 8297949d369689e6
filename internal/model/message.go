// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the Japanese label shown for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "あなた"
	case RoleAssistant:
		return "アシスタント"
	case RoleSystem:
		return "システム"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Streaming state (not persisted). streamContent accumulates tokens
	// during generation and is merged into Content on FinalizeStream.
	IsStreaming   bool `json:"-"`
	streamContent strings.Builder

	// Token statistics
	TokenCount int `json:"token_count,omitempty"`

	// Generation metrics (assistant messages)
	TTFT          time.Duration `json:"ttft_ns,omitempty"`
	TotalDuration time.Duration `json:"total_duration_ns,omitempty"`
	TokensPerSec  float64       `json:"tokens_per_sec,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message in streaming state.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          generateID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendToken appends a token to a streaming message.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// SetContent replaces the content of a non-streaming message.
func (m *Message) SetContent(content string) {
	m.Content = content
}

// FinalizeStream completes streaming and records statistics.
func (m *Message) FinalizeStream(stats *Statistics) {
	if !m.IsStreaming {
		return
	}

	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false

	if stats != nil {
		m.TTFT = stats.TTFT
		m.TotalDuration = stats.TotalDuration
		m.TokenCount = stats.CompletionTokens
		m.TokensPerSec = stats.TokensPerSecond
	}
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Rune-based so kana and kanji are never split mid-character.
func (m *Message) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.GetDisplayContent(), "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// EstimateTokens gives a rough token count. Japanese text runs close to
// one token per character on most of the catalog's tokenizers, ASCII
// close to one per four bytes, so count runes and bytes and blend.
func (m *Message) EstimateTokens() int {
	content := m.GetDisplayContent()
	return EstimateTokens(content)
}

// EstimateTokens estimates the token count of arbitrary text.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	bytes := len(s)
	runes := len([]rune(s))
	// Multibyte-heavy text: runes dominate. ASCII text: bytes/4.
	multibyte := bytes - runes
	if multibyte > runes/2 {
		return runes
	}
	return (bytes + 3) / 4
}

// FormatStats renders generation statistics for display, for example
// "2.5s | 128 tokens | 51.2 tok/s | TTFT 234ms".
func (m *Message) FormatStats() string {
	if m.Role != RoleAssistant || m.TotalDuration == 0 {
		return ""
	}

	parts := []string{
		formatSeconds(m.TotalDuration),
		strconv.Itoa(m.TokenCount) + " tokens",
		strconv.FormatFloat(m.TokensPerSec, 'f', 1, 64) + " tok/s",
		"TTFT " + strconv.FormatInt(m.TTFT.Milliseconds(), 10) + "ms",
	}
	return strings.Join(parts, " | ")
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds timing and token count information for a generation.
type Statistics struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	PromptTokens     int
	CompletionTokens int

	// Derived on Finalize
	TTFT            time.Duration
	TotalDuration   time.Duration
	TokensPerSecond float64
}

// NewStatistics creates a new Statistics with the start time set.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordFirstToken records when the first token was received.
func (s *Statistics) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes the derived statistics.
func (s *Statistics) Finalize(tokenCount int) {
	s.EndTime = time.Now()
	s.CompletionTokens = tokenCount
	s.TotalDuration = s.EndTime.Sub(s.StartTime)

	if s.TotalDuration > 0 {
		s.TokensPerSecond = float64(tokenCount) / s.TotalDuration.Seconds()
	}
}

// Format renders the statistics in the same shape as Message.FormatStats.
func (s *Statistics) Format() string {
	parts := []string{
		formatSeconds(s.TotalDuration),
		strconv.Itoa(s.CompletionTokens) + " tokens",
		strconv.FormatFloat(s.TokensPerSecond, 'f', 1, 64) + " tok/s",
		"TTFT " + strconv.FormatInt(s.TTFT.Milliseconds(), 10) + "ms",
	}
	return strings.Join(parts, " | ")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}

// formatSeconds renders a duration as milliseconds below one second,
// otherwise as seconds with one decimal.
func formatSeconds(d time.Duration) string {
	if d < time.Second {
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
}
