// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hf

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxChunkSize is the maximum allowed size for a single SSE event (64KB).
const MaxChunkSize = 64 * 1024

// =============================================================================
// STREAMING TYPES
// =============================================================================

// TokenChunk is one generated token in a streaming response.
type TokenChunk struct {
	ID      int     `json:"id"`
	Text    string  `json:"text"`
	Logprob float64 `json:"logprob"`
	Special bool    `json:"special"`
}

// StreamDetails is carried by the final event of a stream.
type StreamDetails struct {
	FinishReason    string `json:"finish_reason"`
	GeneratedTokens int    `json:"generated_tokens"`
}

// StreamChunk represents a single event from a text-generation stream.
// The final event carries the full GeneratedText and Details.
type StreamChunk struct {
	Token         TokenChunk     `json:"token"`
	GeneratedText *string        `json:"generated_text"`
	Details       *StreamDetails `json:"details"`
	Err           error          `json:"-"` // Error field for channel-based streaming
}

// GetText returns the token text, suppressing special tokens (EOS markers
// and the like) that must not reach the display.
func (c *StreamChunk) GetText() string {
	if c.Token.Special {
		return ""
	}
	return c.Token.Text
}

// IsFinal returns true if this is the closing event of the stream.
func (c *StreamChunk) IsFinal() bool {
	return c.GeneratedText != nil || c.Details != nil
}

// HasError returns true if the chunk carries an error.
func (c *StreamChunk) HasError() bool {
	return c.Err != nil
}

// FinishReason returns the finish reason from the final event, if any.
func (c *StreamChunk) FinishReason() string {
	if c.Details != nil {
		return c.Details.FinishReason
	}
	return ""
}

// StreamCallback is the function type called for each received chunk.
type StreamCallback func(chunk StreamChunk)

// StreamStats holds statistics collected during streaming.
type StreamStats struct {
	FirstTokenTime time.Duration
	TotalTime      time.Duration
	TokenCount     int
	Model          string
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream and returns the event
// type and data. Events larger than MaxChunkSize are rejected. Returns
// io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	total := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Flush any buffered data before reporting EOF.
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := bytes.TrimSpace(line[5:])
			total += len(data)
			if total > MaxChunkSize {
				return "", nil, fmt.Errorf("SSE event too large: %d bytes", total)
			}
			dataLines = append(dataLines, data)
		}
		// Ignore other fields (id:, retry:, comments starting with :).
	}
}

// =============================================================================
// STREAMING GENERATION
// =============================================================================

// Stream performs a streaming generation request. The callback is invoked
// for each token event; statistics are collected and returned when the
// stream ends. A mid-stream failure returns a StreamError preserving the
// partial text.
func (c *Client) Stream(ctx context.Context, modelID, prompt string, params GenerationParams, callback StreamCallback) (*StreamStats, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if !c.HasToken() {
		return nil, ErrNoToken
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.applyDefaults()

	body, err := c.marshalRequest(prompt, params, true)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.modelURL(modelID), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := readResponse(resp)
		if readErr != nil {
			return nil, readErr
		}
		// Classic api-inference deployments predate TGI streaming and
		// reject stream mode outright. Retry once without streaming and
		// replay the full text through the callback.
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
			return c.streamFallback(ctx, modelID, prompt, params, callback)
		}
		return nil, handleErrorResponse(resp.StatusCode, respBody, resp.Header)
	}

	stats := &StreamStats{Model: modelID}
	startTime := time.Now()
	var firstTokenTime time.Time
	var accumulated strings.Builder

	wrappedCallback := func(chunk StreamChunk) {
		text := chunk.GetText()
		if text != "" {
			stats.TokenCount++
			accumulated.WriteString(text)
			if firstTokenTime.IsZero() {
				firstTokenTime = time.Now()
				stats.FirstTokenTime = firstTokenTime.Sub(startTime)
			}
		}
		callback(chunk)
	}

	err = processStream(ctx, resp.Body, wrappedCallback)
	stats.TotalTime = time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return stats, err
		}
		return stats, &StreamError{
			Partial: accumulated.String(),
			Err:     err,
		}
	}

	return stats, nil
}

// streamFallback services a stream request through the non-streaming
// endpoint. The generated text arrives as one token chunk followed by a
// final event, so callers see the same event sequence as a real stream.
func (c *Client) streamFallback(ctx context.Context, modelID, prompt string, params GenerationParams, callback StreamCallback) (*StreamStats, error) {
	start := time.Now()

	result, err := c.Generate(ctx, modelID, prompt, params)
	if err != nil {
		return nil, err
	}

	callback(StreamChunk{Token: TokenChunk{Text: result.Text}})
	text := result.Text
	callback(StreamChunk{
		GeneratedText: &text,
		Details:       &StreamDetails{GeneratedTokens: result.TokenCount},
	})

	elapsed := time.Since(start)
	return &StreamStats{
		FirstTokenTime: elapsed,
		TotalTime:      elapsed,
		TokenCount:     result.TokenCount,
		Model:          modelID,
	}, nil
}

// processStream reads and processes the SSE stream.
func processStream(ctx context.Context, body io.Reader, callback StreamCallback) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		// Check for [DONE] signal.
		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed events.
			continue
		}

		callback(chunk)

		if chunk.IsFinal() {
			return nil
		}
	}
}

// =============================================================================
// CHANNEL-BASED STREAMING
// =============================================================================

// StreamChan performs a streaming generation and returns a channel of
// chunks. The channel is closed when streaming completes; errors arrive on
// the second channel.
func (c *Client) StreamChan(ctx context.Context, modelID, prompt string, params GenerationParams) (<-chan StreamChunk, <-chan error) {
	chunkChan := make(chan StreamChunk, 64)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		_, err := c.Stream(ctx, modelID, prompt, params, func(chunk StreamChunk) {
			select {
			case chunkChan <- chunk:
			case <-ctx.Done():
				return
			}
		})

		if err != nil {
			select {
			case errChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	return chunkChan, errChan
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects streaming chunks and builds a complete
// response.
type StreamAccumulator struct {
	Content      strings.Builder
	TokenCount   int
	Model        string
	FinishReason string
	StartTime    time.Time
	FirstTokenAt time.Time
	Done         bool
	Error        error
}

// NewStreamAccumulator creates a new accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		StartTime: time.Now(),
	}
}

// Add processes a new chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.HasError() {
		a.Error = chunk.Err
		return
	}

	text := chunk.GetText()
	if text != "" {
		a.TokenCount++
		if a.FirstTokenAt.IsZero() {
			a.FirstTokenAt = time.Now()
		}
		a.Content.WriteString(text)
	}

	if chunk.IsFinal() {
		a.Done = true
		a.FinishReason = chunk.FinishReason()
	}
}

// GetContent returns the accumulated content.
func (a *StreamAccumulator) GetContent() string {
	return a.Content.String()
}

// GetStats returns the collected statistics.
func (a *StreamAccumulator) GetStats() *StreamStats {
	var ttft time.Duration
	if !a.FirstTokenAt.IsZero() {
		ttft = a.FirstTokenAt.Sub(a.StartTime)
	}

	return &StreamStats{
		FirstTokenTime: ttft,
		TotalTime:      time.Since(a.StartTime),
		TokenCount:     a.TokenCount,
		Model:          a.Model,
	}
}

// Callback returns a StreamCallback that accumulates to this accumulator.
func (a *StreamAccumulator) Callback() StreamCallback {
	return func(chunk StreamChunk) {
		a.Add(chunk)
	}
}
