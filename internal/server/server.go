// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// server.go - HTTP server core: routes, handlers, lifecycle.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/prompt"
)

//go:embed static/index.html
var indexHTML []byte

// =============================================================================
// LIMITS
// =============================================================================

const (
	// MaxRequestBody bounds the decoded request size.
	MaxRequestBody = 1 << 20

	// MaxMessageRunes bounds a single chat message.
	MaxMessageRunes = 8000

	// ShutdownTimeout is the graceful drain window.
	ShutdownTimeout = 30 * time.Second
)

// =============================================================================
// STATS
// =============================================================================

// serverStats tracks usage counters with atomics so handlers never
// contend on a lock.
type serverStats struct {
	requests      atomic.Int64
	errors        atomic.Int64
	activeStreams atomic.Int64
	startTime     time.Time
}

// =============================================================================
// SERVER
// =============================================================================

// Server is the web chat server.
type Server struct {
	cfg    *config.Config
	client *hf.Client
	logger *zap.Logger
	stats  serverStats

	mux  *http.ServeMux
	http *http.Server

	// hubURL overrides the Hub origin for token verification. Tests
	// point this at a local fake.
	hubURL string
}

// New creates a Server. A nil logger disables request logging.
func New(cfg *config.Config, client *hf.Client, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
	s.stats.startTime = time.Now()

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)
	s.mux.HandleFunc("GET /api/models", s.handleModels)
	s.mux.HandleFunc("GET /api/token", s.handleTokenGet)
	s.mux.HandleFunc("POST /api/token", s.handleTokenSet)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s
}

// WithHubURL overrides the Hub origin used to verify tokens.
func (s *Server) WithHubURL(url string) *Server {
	s.hubURL = url
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.withRecovery(s.withLogging(s.mux))
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Server.Host, fmt.Sprintf("%d", s.cfg.Server.Port))
}

// Run serves until the context is cancelled or SIGINT/SIGTERM arrives,
// then drains connections for up to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.Addr()))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ChatRequest is the request shape shared by /api/chat and
// /api/chat/stream. History is a list of [user, assistant] pairs; the
// server keeps no conversation state of its own.
type ChatRequest struct {
	Message string      `json:"message"`
	Model   string      `json:"model,omitempty"`
	History [][2]string `json:"history,omitempty"`
	Params  *ChatParams `json:"params,omitempty"`
}

// ChatParams carries optional generation overrides.
type ChatParams struct {
	MaxLength   int     `json:"max_length,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ChatResponse is the non-streaming reply.
type ChatResponse struct {
	Response   string `json:"response"`
	Model      string `json:"model"`
	DurationMs int64  `json:"duration_ms"`
}

// TokenState reports whether a token is configured, never the token
// itself.
type TokenState struct {
	Set         bool   `json:"set"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Identity    string `json:"identity,omitempty"`
}

// =============================================================================
// VALIDATION
// =============================================================================

// validateChatRequest normalizes and bounds-checks a chat request.
// Returns the resolved model ID and generation parameters.
func (s *Server) validateChatRequest(req *ChatRequest) (string, hf.GenerationParams, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return "", hf.GenerationParams{}, errors.New("message は必須です")
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageRunes {
		return "", hf.GenerationParams{}, fmt.Errorf("message が長すぎます (最大 %d 文字)", MaxMessageRunes)
	}
	if len(req.History) > config.MaxHistoryPairs {
		return "", hf.GenerationParams{}, fmt.Errorf("history が多すぎます (最大 %d ペア)", config.MaxHistoryPairs)
	}

	modelID := req.Model
	if modelID == "" {
		modelID = s.cfg.Chat.Model
	}
	if modelID == "" {
		modelID = model.DefaultModelID
	}

	params := hf.GenerationParams{
		MaxLength:   s.cfg.Generation.MaxLength,
		Temperature: s.cfg.Generation.Temperature,
		TopP:        s.cfg.Generation.TopP,
		DoSample:    s.cfg.Generation.DoSample,
	}
	if req.Params != nil {
		if req.Params.MaxLength != 0 {
			params.MaxLength = clampInt(req.Params.MaxLength, config.MinMaxLength, config.MaxMaxLength)
		}
		if req.Params.Temperature != 0 {
			params.Temperature = clampFloat(req.Params.Temperature, config.MinTemperature, config.MaxTemperature)
		}
	}

	return modelID, params, nil
}

// buildPrompt assembles the model prompt from the request history.
func buildPrompt(modelID string, req *ChatRequest) string {
	exchanges := make([]model.Exchange, 0, len(req.History))
	for _, pair := range req.History {
		exchanges = append(exchanges, model.Exchange{User: pair[0], Assistant: pair[1]})
	}
	return prompt.Build(modelID, req.Message, exchanges)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// =============================================================================
// PAGE AND CATALOG HANDLERS
// =============================================================================

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  model.Models,
		"default": model.DefaultModelID,
	})
}

// =============================================================================
// CHAT HANDLERS
// =============================================================================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	modelID, params, err := s.validateChatRequest(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	result, err := s.client.GenerateWithRetry(r.Context(), modelID, buildPrompt(modelID, req), params)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ChatResponse{
		Response:   result.Text,
		Model:      modelID,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	modelID, params, err := s.validateChatRequest(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "ストリーミングに対応していません")
		return
	}

	s.stats.activeStreams.Add(1)
	defer s.stats.activeStreams.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	start := time.Now()
	tokenCount := 0

	chunks, errs := s.client.StreamChan(r.Context(), modelID, buildPrompt(modelID, req), params)
	for chunk := range chunks {
		text := chunk.GetText()
		if text == "" {
			continue
		}
		tokenCount++
		s.writeSSE(w, flusher, map[string]interface{}{"token": text})
	}

	if err := <-errs; err != nil {
		s.stats.errors.Add(1)

		var loadErr *hf.ModelLoadingError
		if errors.As(err, &loadErr) {
			s.writeSSE(w, flusher, map[string]interface{}{
				"loading":        true,
				"estimated_time": loadErr.EstimatedTime,
			})
			return
		}

		s.logger.Warn("stream failed", zap.String("model", modelID), zap.Error(err))
		s.writeSSE(w, flusher, map[string]interface{}{"error": hf.UserMessage(err)})
		return
	}

	elapsed := time.Since(start)
	stats := map[string]interface{}{
		"tokens":      tokenCount,
		"duration_ms": elapsed.Milliseconds(),
	}
	if elapsed > 0 {
		stats["tokens_per_second"] = float64(tokenCount) / elapsed.Seconds()
	}
	s.writeSSE(w, flusher, map[string]interface{}{"done": true, "stats": stats})
}

// decodeChatRequest reads and decodes the body, writing the error
// response itself on failure.
func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (*ChatRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBody)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("リクエストが大きすぎます (最大 %d バイト)", MaxRequestBody))
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return nil, false
	}
	return &req, true
}

// =============================================================================
// TOKEN HANDLERS
// =============================================================================

func (s *Server) handleTokenGet(w http.ResponseWriter, r *http.Request) {
	state := TokenState{Set: s.client.HasToken()}
	if state.Set {
		state.Fingerprint = s.client.TokenFingerprint()
	}
	s.writeJSON(w, http.StatusOK, state)
}

// handleTokenSet verifies and installs a token for this process only,
// mirroring the in-memory token field of the original page. Nothing is
// written to disk.
func (s *Server) handleTokenSet(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4096)

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}

	token := strings.TrimSpace(req.Token)
	if err := hf.ValidateTokenFormat(token); err != nil {
		s.writeError(w, http.StatusBadRequest, hf.UserMessage(err))
		return
	}

	verify := hf.NewClient(hf.ClientConfig{
		BaseURL:    s.cfg.API.BaseURL,
		Token:      token,
		Timeout:    s.cfg.Timeout(),
		MaxRetries: 1,
	})
	if s.hubURL != "" {
		verify = verify.WithHubURL(s.hubURL)
	}
	identity, err := verify.WhoAmI(r.Context())
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	s.client.SetToken(token)
	s.logger.Info("token updated", zap.String("identity", identity.Name))

	s.writeJSON(w, http.StatusOK, TokenState{
		Set:         true,
		Fingerprint: s.client.TokenFingerprint(),
		Identity:    identity.Name,
	})
}

// =============================================================================
// STATUS AND HEALTH HANDLERS
// =============================================================================

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	modelID := r.URL.Query().Get("model")
	if modelID == "" {
		modelID = s.cfg.Chat.Model
	}
	if modelID == "" {
		modelID = model.DefaultModelID
	}

	status, err := s.client.ModelStatus(r.Context(), modelID)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"model":  modelID,
		"loaded": status.Loaded,
		"state":  status.State,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_s":       int64(time.Since(s.stats.startTime).Seconds()),
		"requests":       s.stats.requests.Load(),
		"errors":         s.stats.errors.Load(),
		"active_streams": s.stats.activeStreams.Load(),
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.stats.errors.Add(1)
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeGenerationError maps client errors onto HTTP statuses.
func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, hf.ErrNoToken), errors.Is(err, hf.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, hf.ErrModelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, hf.ErrModelLoading):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	s.writeError(w, status, hf.UserMessage(err))
}

// writeSSE emits one SSE data event and flushes it.
func (s *Server) writeSSE(w http.ResponseWriter, flusher http.Flusher, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
