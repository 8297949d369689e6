// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat
// interface: streaming events, model status and switching, conversation
// persistence, session lifecycle, and error display.
package chat

import (
	"time"

	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/session"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that streaming has begun.
type StreamStartMsg struct {
	MessageID string
	StartTime time.Time
}

// StreamTokenMsg delivers generated text from the stream. With buffering
// active a single message may carry several tokens worth of text.
type StreamTokenMsg struct {
	MessageID string
	Token     string
	IsFirst   bool
}

// StreamCompleteMsg signals that streaming has finished.
type StreamCompleteMsg struct {
	MessageID string
	Stats     *model.Statistics
}

// StreamErrorMsg signals an error during streaming.
type StreamErrorMsg struct {
	MessageID string
	Error     error
}

// StreamTickMsg is sent at the render frame rate during streaming so
// buffered tokens flush in batches instead of per token.
type StreamTickMsg struct {
	Time time.Time
}

// ModelLoadingMsg signals that the API returned a cold-start response.
// The chat switches to the loading state and retries after the estimate.
type ModelLoadingMsg struct {
	MessageID     string
	EstimatedTime time.Duration
	Attempt       int
}

// retryStreamMsg fires when the loading wait elapses and the request
// should be reissued.
type retryStreamMsg struct {
	MessageID string
	Attempt   int
}

// =============================================================================
// MODEL MESSAGES
// =============================================================================

// ModelSwitchedMsg confirms a model switch.
type ModelSwitchedMsg struct {
	ModelID string
	Error   error
}

// StatusCheckMsg reports the warm/cold status of the active model.
type StatusCheckMsg struct {
	Status *hf.ModelStatus
	Error  error
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// ConversationSavedMsg confirms a save operation.
type ConversationSavedMsg struct {
	ID    string
	Error error
}

// ConversationLoadedMsg delivers a loaded conversation.
type ConversationLoadedMsg struct {
	Conversation *model.Conversation
	Error        error
}

// ExportCompleteMsg confirms an export operation.
type ExportCompleteMsg struct {
	Path  string
	Error error
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionEventMsg carries an idle-tracking event from the session manager.
type SessionEventMsg struct {
	Event session.Event
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrorMsg displays an error to the user.
type ErrorMsg struct {
	Title       string
	Message     string
	Suggestions []string
}

// ErrorDismissMsg dismisses the current error.
type ErrorDismissMsg struct{}

// =============================================================================
// HELPER CONSTRUCTORS
// =============================================================================

// NewStreamStartMsg creates a StreamStartMsg stamped with the current time.
func NewStreamStartMsg(messageID string) StreamStartMsg {
	return StreamStartMsg{
		MessageID: messageID,
		StartTime: time.Now(),
	}
}

// NewErrorMsg creates an error message with the standard Japanese title.
func NewErrorMsg(message string) ErrorMsg {
	return ErrorMsg{
		Title:   "エラー",
		Message: message,
	}
}

// NewAPIErrorMsg builds an error display from an API error, reusing the
// user-facing Japanese message and recovery suggestions.
func NewAPIErrorMsg(err error) ErrorMsg {
	return ErrorMsg{
		Title:   "エラー",
		Message: hf.UserMessage(err),
	}
}
