// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements the streaming pipeline: a goroutine consumes the
// API client's SSE stream, tokens accumulate in a StreamingBuffer, and
// the Bubble Tea loop drains the buffer at a capped frame rate. Without
// batching a fast stream redraws the terminal per token, which flickers
// and burns CPU.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches tokens for rendering. Tokens accumulate in the
// buffer and flush when either the batch size is reached or enough time
// has passed since the last flush.
//
// Thread-safety: writes come from the streaming goroutine while flushes
// happen in the main Bubble Tea loop, so every operation takes the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize    int
	minFlushWait time.Duration
}

// NewStreamingBuffer creates a buffer with the default settings: 15
// tokens per batch, 30 frames per second.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(15, 30)
}

// NewStreamingBufferWithConfig creates a buffer with a custom batch size
// and frame rate cap.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = 15
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 30
	}

	return &StreamingBuffer{
		batchSize:    batchSize,
		minFlushWait: time.Second / time.Duration(maxFPS),
		lastFlush:    time.Now(),
	}
}

// Write adds a token to the buffer. Called from the streaming goroutine.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns the accumulated content when a flush threshold has been
// reached. Called from the main Bubble Tea loop.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.shouldFlushLocked() {
		return "", false
	}
	return sb.drainLocked()
}

// ForceFlush returns all buffered content regardless of thresholds. Used
// when a stream completes so no tokens are lost.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.drainLocked()
}

// Reset clears the buffer without flushing. Used when a stream is
// cancelled.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of buffered tokens.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

func (sb *StreamingBuffer) shouldFlushLocked() bool {
	if sb.buffer.Len() == 0 {
		return false
	}
	if sb.tokenCount >= sb.batchSize {
		return true
	}
	return time.Since(sb.lastFlush) >= sb.minFlushWait
}

func (sb *StreamingBuffer) drainLocked() (string, bool) {
	if sb.buffer.Len() == 0 {
		return "", false
	}

	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content, true
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// streamEventKind classifies lifecycle events from the stream goroutine.
// Token text never travels on the event channel; it goes through the
// StreamingBuffer and is picked up by the tick loop.
type streamEventKind int

const (
	eventFirstToken streamEventKind = iota
	eventComplete
	eventError
	eventModelLoading
)

// streamEvent is a lifecycle notification from the stream goroutine.
type streamEvent struct {
	kind      streamEventKind
	stats     *model.Statistics
	err       error
	estimated time.Duration
}

// =============================================================================
// STREAM COMMANDS
// =============================================================================

// startStream launches the streaming goroutine for the given prompt and
// returns the event channel plus the cancel function for Esc handling.
//
// The goroutine consumes the client's channel-based stream; tokens go
// into buf, lifecycle events onto the returned channel. The channel is
// buffered so a slow UI cannot deadlock the producer, and every send
// also selects on ctx.Done.
func startStream(client *hf.Client, modelID, promptText string, params hf.GenerationParams, buf *StreamingBuffer) (<-chan streamEvent, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan streamEvent, 8)

	go func() {
		defer close(events)

		stats := model.NewStatistics()
		tokenCount := 0
		first := true

		chunks, errs := client.StreamChan(ctx, modelID, promptText, params)

		for chunk := range chunks {
			if text := chunk.GetText(); text != "" {
				buf.Write(text)
				tokenCount++
				if first {
					first = false
					stats.RecordFirstToken()
					select {
					case events <- streamEvent{kind: eventFirstToken}:
					case <-ctx.Done():
						return
					}
				}
			}
			if chunk.IsFinal() && chunk.Details != nil && chunk.Details.GeneratedTokens > 0 {
				tokenCount = chunk.Details.GeneratedTokens
			}
		}

		if err := <-errs; err != nil {
			ev := streamEvent{kind: eventError, err: err}

			var loading *hf.ModelLoadingError
			if errors.As(err, &loading) {
				ev = streamEvent{
					kind:      eventModelLoading,
					err:       err,
					estimated: loading.EstimatedDuration(),
				}
			}

			select {
			case events <- ev:
			case <-ctx.Done():
			}
			return
		}

		stats.Finalize(tokenCount)
		select {
		case events <- streamEvent{kind: eventComplete, stats: stats}:
		case <-ctx.Done():
		}
	}()

	return events, cancel
}

// waitForStreamEvent returns a command that blocks on the next lifecycle
// event and converts it into a Bubble Tea message.
func waitForStreamEvent(messageID string, events <-chan streamEvent, attempt int) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			// Channel closed without a terminal event: the stream was
			// cancelled.
			return nil
		}

		switch ev.kind {
		case eventFirstToken:
			return StreamTokenMsg{MessageID: messageID, IsFirst: true}
		case eventModelLoading:
			return ModelLoadingMsg{
				MessageID:     messageID,
				EstimatedTime: ev.estimated,
				Attempt:       attempt,
			}
		case eventError:
			return StreamErrorMsg{MessageID: messageID, Error: ev.err}
		default:
			return StreamCompleteMsg{MessageID: messageID, Stats: ev.stats}
		}
	}
}

// streamTickCmd drives the 30fps flush cycle while streaming.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// retryAfterCmd schedules a stream retry once the model-loading wait has
// elapsed.
func retryAfterCmd(messageID string, wait time.Duration, attempt int) tea.Cmd {
	return tea.Tick(wait, func(time.Time) tea.Msg {
		return retryStreamMsg{MessageID: messageID, Attempt: attempt}
	})
}
