// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Error variables for common Inference API failures.
var (
	// ErrNoToken indicates no API token is configured.
	ErrNoToken = errors.New("API token not configured")

	// ErrEmptyPrompt indicates an empty prompt was submitted.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrInvalidToken indicates the token was rejected (401/403).
	ErrInvalidToken = errors.New("invalid API token")

	// ErrModelLoading indicates the model is cold and still loading (503).
	ErrModelLoading = errors.New("model is loading")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates a server-side failure.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrUnexpectedResponse indicates a 200 response whose body did not
	// have the expected generated_text array shape.
	ErrUnexpectedResponse = errors.New("unexpected response format")
)

// APIError represents an error response from the Inference API.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("inference API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("inference API error (HTTP %d)", e.Status)
}

// Is reports server-side APIErrors as ErrServiceUnavailable so callers can
// match with errors.Is without knowing the concrete type.
func (e *APIError) Is(target error) bool {
	return target == ErrServiceUnavailable && e.Status >= 500
}

// ModelLoadingError is returned for 503 responses while a cold model is
// being loaded. EstimatedTime is the server's load estimate in seconds,
// zero when the body carried none.
type ModelLoadingError struct {
	Message       string
	EstimatedTime float64
}

// Error implements the error interface.
func (e *ModelLoadingError) Error() string {
	if e.EstimatedTime > 0 {
		return fmt.Sprintf("model is loading (estimated %.0fs)", e.EstimatedTime)
	}
	return "model is loading"
}

// Is allows ModelLoadingError to be compared with ErrModelLoading.
func (e *ModelLoadingError) Is(target error) bool {
	return target == ErrModelLoading
}

// EstimatedDuration returns the load estimate as a time.Duration.
func (e *ModelLoadingError) EstimatedDuration() time.Duration {
	return time.Duration(e.EstimatedTime * float64(time.Second))
}

// RateLimitError represents a rate limit error with retry information.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
	}
	return "rate limited"
}

// Is allows RateLimitError to be compared with ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StreamError represents an error that occurred during streaming,
// preserving any partial content received before the error.
type StreamError struct {
	Partial string // Content received before error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// USER-FACING MESSAGES
// =============================================================================

// UserMessage maps an API error to the Japanese message shown to users.
// Internal errors stay in English for logs; this is the display surface.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNoToken):
		return "❌ APIキーが設定されていません"
	case errors.Is(err, ErrInvalidToken):
		return "❌ APIキーが無効です"
	case errors.Is(err, ErrModelLoading):
		return "⏳ モデルが読み込み中です。しばらく待ってから再試行してください。"
	case errors.Is(err, ErrRateLimited):
		return "⏳ リクエストが多すぎます。少し待ってから再試行してください。"
	case errors.Is(err, ErrModelNotFound):
		return "❌ モデルが見つかりません"
	case errors.Is(err, ErrUnexpectedResponse):
		return "❌ 予期しないレスポンス形式です"
	case errors.Is(err, context.DeadlineExceeded):
		return "⏳ リクエストがタイムアウトしました。再試行してください。"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("❌ エラーが発生しました (ステータス: %d)", apiErr.Status)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "⏳ リクエストがタイムアウトしました。再試行してください。"
		}
		return "❌ 接続エラー: " + netErr.Error()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "❌ 接続エラー: " + opErr.Error()
	}

	return "❌ エラーが発生しました: " + err.Error()
}

// =============================================================================
// ERROR RESPONSE PARSING
// =============================================================================

// apiErrorBody is the error payload shape of the Inference API. The error
// field is a string for most endpoints but an array of strings for some
// validation failures, so it is decoded leniently.
type apiErrorBody struct {
	Error         json.RawMessage `json:"error"`
	EstimatedTime float64         `json:"estimated_time"`
}

// errorMessage extracts a printable message from the raw error field.
func (b *apiErrorBody) errorMessage() string {
	if len(b.Error) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(b.Error, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(b.Error, &list); err == nil && len(list) > 0 {
		return list[0]
	}

	return string(b.Error)
}

// handleErrorResponse converts HTTP error responses to appropriate Go
// errors. The header is consulted for Retry-After on 429 responses.
func handleErrorResponse(statusCode int, body []byte, header http.Header) error {
	var parsed apiErrorBody
	_ = json.Unmarshal(body, &parsed)
	message := parsed.errorMessage()

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrInvalidToken, message)
		}
		return ErrInvalidToken

	case http.StatusNotFound:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrModelNotFound, message)
		}
		return ErrModelNotFound

	case http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(header)}

	case http.StatusServiceUnavailable:
		return &ModelLoadingError{
			Message:       message,
			EstimatedTime: parsed.EstimatedTime,
		}

	default:
		if message == "" {
			message = string(body)
		}
		return &APIError{
			Status:  statusCode,
			Message: message,
		}
	}
}

// parseRetryAfter reads the Retry-After header as either a second count or
// an HTTP date. Returns zero when absent or unparseable.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}

	return 0
}
