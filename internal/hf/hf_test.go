// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient builds a client pointed at a test server, with the rate
// limiter disabled so tests do not stall between requests.
func newTestClient(serverURL string) *Client {
	cfg := DefaultClientConfig()
	cfg.BaseURL = serverURL
	cfg.Token = "hf_test_token_0123456789"
	cfg.RequestsPerSecond = 0
	cfg.MaxRetries = 2
	return NewClient(cfg)
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerate_Success(t *testing.T) {
	var gotPath, gotAuth, gotAgent string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"generated_text": "  こんにちは、元気です。  "}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Generate(context.Background(), "cyberagent/open-calm-7b", "こんにちは", DefaultGenerationParams())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Text != "こんにちは、元気です。" {
		t.Errorf("text = %q, want trimmed completion", result.Text)
	}
	if result.Model != "cyberagent/open-calm-7b" {
		t.Errorf("model = %q", result.Model)
	}
	if result.TokenCount <= 0 {
		t.Errorf("token count = %d", result.TokenCount)
	}
	if result.FirstTokenTime != 0 {
		t.Errorf("first token time = %v, want zero for a non-streaming response", result.FirstTokenTime)
	}

	if gotPath != "/cyberagent/open-calm-7b" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer hf_test_token_0123456789" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotAgent != DefaultUserAgent {
		t.Errorf("user agent = %q", gotAgent)
	}

	if gotBody["inputs"] != "こんにちは" {
		t.Errorf("inputs = %v", gotBody["inputs"])
	}
	params, ok := gotBody["parameters"].(map[string]interface{})
	if !ok {
		t.Fatalf("parameters missing from request body: %v", gotBody)
	}
	if params["max_length"] != float64(200) {
		t.Errorf("max_length = %v", params["max_length"])
	}
	if params["temperature"] != 0.7 {
		t.Errorf("temperature = %v", params["temperature"])
	}
	if params["top_p"] != 0.95 {
		t.Errorf("top_p = %v", params["top_p"])
	}
	if params["do_sample"] != true {
		t.Errorf("do_sample = %v", params["do_sample"])
	}
	if params["return_full_text"] != false {
		t.Errorf("return_full_text = %v", params["return_full_text"])
	}
	if _, present := gotBody["options"]; present {
		t.Error("options sent without WaitForModel")
	}
}

func TestGenerate_WaitForModelOption(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`[{"generated_text": "ok"}]`))
	}))
	defer server.Close()

	cfg := DefaultClientConfig()
	cfg.BaseURL = server.URL
	cfg.Token = "hf_test"
	cfg.RequestsPerSecond = 0
	cfg.WaitForModel = true
	client := NewClient(cfg)

	if _, err := client.Generate(context.Background(), "m", "p", DefaultGenerationParams()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	opts, ok := gotBody["options"].(map[string]interface{})
	if !ok {
		t.Fatalf("options missing: %v", gotBody)
	}
	if opts["wait_for_model"] != true {
		t.Errorf("wait_for_model = %v", opts["wait_for_model"])
	}
}

func TestGenerate_NoToken(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.RequestsPerSecond = 0
	client := NewClient(cfg)

	_, err := client.Generate(context.Background(), "m", "こんにちは", DefaultGenerationParams())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	client := newTestClient("http://unused.invalid")
	_, err := client.Generate(context.Background(), "m", "   ", DefaultGenerationParams())
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("err = %v, want ErrEmptyPrompt", err)
	}
}

func TestGenerate_UnexpectedShape(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"object", `{"generated_text": "x"}`},
		{"empty array", `[]`},
		{"not json", `oops`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.Generate(context.Background(), "m", "p", DefaultGenerationParams())
			if !errors.Is(err, ErrUnexpectedResponse) {
				t.Errorf("err = %v, want ErrUnexpectedResponse", err)
			}
		})
	}
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestGenerate_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Authorization header is correct, but the token seems invalid"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "m", "p", DefaultGenerationParams())
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
	if !strings.Contains(err.Error(), "token seems invalid") {
		t.Errorf("error lost server message: %v", err)
	}
}

func TestGenerate_ModelLoading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": "Model cyberagent/open-calm-7b is currently loading", "estimated_time": 20.5}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "m", "p", DefaultGenerationParams())
	if !errors.Is(err, ErrModelLoading) {
		t.Fatalf("err = %v, want ErrModelLoading", err)
	}

	var loadErr *ModelLoadingError
	if !errors.As(err, &loadErr) {
		t.Fatalf("err not a ModelLoadingError: %v", err)
	}
	if loadErr.EstimatedTime != 20.5 {
		t.Errorf("estimated time = %v", loadErr.EstimatedTime)
	}
	if loadErr.EstimatedDuration() != 20500*time.Millisecond {
		t.Errorf("estimated duration = %v", loadErr.EstimatedDuration())
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "Rate limit reached"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "m", "p", DefaultGenerationParams())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("err not a RateLimitError: %v", err)
	}
	if rlErr.RetryAfter != 7*time.Second {
		t.Errorf("retry after = %v", rlErr.RetryAfter)
	}
}

func TestGenerate_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Model not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "nope/missing", "p", DefaultGenerationParams())
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
}

func TestGenerate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal error"}`))
	}))
	defer server.Close()

	cfg := DefaultClientConfig()
	cfg.BaseURL = server.URL
	cfg.Token = "hf_test"
	cfg.RequestsPerSecond = 0
	cfg.MaxRetries = 1
	client := NewClient(cfg)

	_, err := client.Generate(context.Background(), "m", "p", DefaultGenerationParams())
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err not an APIError: %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", apiErr.Status)
	}
}

func TestErrorMessageArrayShape(t *testing.T) {
	body := apiErrorBody{Error: json.RawMessage(`["first problem", "second problem"]`)}
	if got := body.errorMessage(); got != "first problem" {
		t.Errorf("errorMessage = %q", got)
	}
}

// =============================================================================
// RETRY TESTS
// =============================================================================

func TestGenerateWithRetry_RecoversAfterLoading(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error": "loading"}`))
			return
		}
		w.Write([]byte(`[{"generated_text": "回復しました"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.GenerateWithRetry(context.Background(), "m", "p", DefaultGenerationParams())
	if err != nil {
		t.Fatalf("GenerateWithRetry failed: %v", err)
	}
	if result.Text != "回復しました" {
		t.Errorf("text = %q", result.Text)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestGenerateWithRetry_DoesNotRetryAuthErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "bad token"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GenerateWithRetry(context.Background(), "m", "p", DefaultGenerationParams())
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("request count = %d, want 1 (no retries)", got)
	}
}

func TestRetryDelayHonorsServerHints(t *testing.T) {
	client := newTestClient("http://unused.invalid")

	// Plain backoff at attempt 1 is one second.
	if got := client.retryDelay(1, nil); got != time.Second {
		t.Errorf("backoff delay = %v", got)
	}

	// Server hints longer than the backoff win.
	rl := &RateLimitError{RetryAfter: 5 * time.Second}
	if got := client.retryDelay(1, rl); got != 5*time.Second {
		t.Errorf("rate limit delay = %v", got)
	}

	load := &ModelLoadingError{EstimatedTime: 8}
	if got := client.retryDelay(1, load); got != 8*time.Second {
		t.Errorf("loading delay = %v", got)
	}

	// Shorter hints do not shrink the backoff.
	short := &ModelLoadingError{EstimatedTime: 0.1}
	if got := client.retryDelay(1, short); got != time.Second {
		t.Errorf("short hint delay = %v", got)
	}
}

func TestCalculateBackoff(t *testing.T) {
	if got := calculateBackoff(0); got != 500*time.Millisecond {
		t.Errorf("backoff(0) = %v", got)
	}
	if got := calculateBackoff(2); got != 2*time.Second {
		t.Errorf("backoff(2) = %v", got)
	}
	if got := calculateBackoff(10); got != retryMaxDelay {
		t.Errorf("backoff(10) = %v, want cap", got)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func sseEvent(chunk string) string {
	return "data:" + chunk + "\n\n"
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept header = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		events := []string{
			`{"token":{"id":1,"text":"こん","special":false},"generated_text":null,"details":null}`,
			`{"token":{"id":2,"text":"にちは","special":false},"generated_text":null,"details":null}`,
			`{"token":{"id":3,"text":"</s>","special":true},"generated_text":"こんにちは","details":{"finish_reason":"eos_token","generated_tokens":3}}`,
		}
		for _, ev := range events {
			fmt.Fprint(w, sseEvent(ev))
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	acc := NewStreamAccumulator()

	stats, err := client.Stream(context.Background(), "m", "こんにちは", DefaultGenerationParams(), acc.Callback())
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if got := acc.GetContent(); got != "こんにちは" {
		t.Errorf("accumulated = %q", got)
	}
	if !acc.Done {
		t.Error("accumulator not marked done")
	}
	if acc.FinishReason != "eos_token" {
		t.Errorf("finish reason = %q", acc.FinishReason)
	}
	// The special EOS token is not counted.
	if stats.TokenCount != 2 {
		t.Errorf("token count = %d, want 2", stats.TokenCount)
	}
	if stats.FirstTokenTime <= 0 {
		t.Errorf("first token time = %v", stats.FirstTokenTime)
	}
}

func TestStream_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": "loading", "estimated_time": 3}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Stream(context.Background(), "m", "p", DefaultGenerationParams(), func(StreamChunk) {})
	if !errors.Is(err, ErrModelLoading) {
		t.Errorf("err = %v, want ErrModelLoading", err)
	}
}

func TestStreamChan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, sseEvent(`{"token":{"id":1,"text":"やあ","special":false},"generated_text":null,"details":null}`))
		flusher.Flush()
		fmt.Fprint(w, "data:[DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	chunks, errs := client.StreamChan(context.Background(), "m", "p", DefaultGenerationParams())

	var text strings.Builder
	for chunk := range chunks {
		text.WriteString(chunk.GetText())
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if text.String() != "やあ" {
		t.Errorf("streamed text = %q", text.String())
	}
}

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader(t *testing.T) {
	input := ": comment line\n" +
		"data: first\n\n" +
		"event: message\ndata: second\n\n" +
		"data:[DONE]\n\n"

	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("first data = %q", data)
	}

	eventType, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if eventType != "message" {
		t.Errorf("event type = %q", eventType)
	}
	if string(data) != "second" {
		t.Errorf("second data = %q", data)
	}

	_, data, err = reader.ReadEvent()
	if err != nil {
		t.Fatalf("third event: %v", err)
	}
	if string(data) != "[DONE]" {
		t.Errorf("third data = %q", data)
	}

	if _, _, err = reader.ReadEvent(); err == nil {
		t.Error("expected EOF after final event")
	}
}

func TestSSEReader_CRLF(t *testing.T) {
	reader := NewSSEReader(strings.NewReader("data: hello\r\n\r\n"))
	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}

func TestSSEReader_EOFWithoutBlankLine(t *testing.T) {
	reader := NewSSEReader(strings.NewReader("data: tail"))
	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "tail" {
		t.Errorf("data = %q", data)
	}
}

// =============================================================================
// TOKEN TESTS
// =============================================================================

func TestTokenFingerprint(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.RequestsPerSecond = 0
	client := NewClient(cfg)

	if got := client.TokenFingerprint(); got != "none" {
		t.Errorf("empty fingerprint = %q", got)
	}

	client.SetToken("hf_secret_token")
	fp := client.TokenFingerprint()
	if len(fp) != 8 {
		t.Errorf("fingerprint length = %d, want 8", len(fp))
	}
	if strings.Contains(fp, "hf_") {
		t.Error("fingerprint leaks token content")
	}
	if fp != client.TokenFingerprint() {
		t.Error("fingerprint not stable")
	}

	client.SetToken("hf_other_token")
	if client.TokenFingerprint() == fp {
		t.Error("different tokens share a fingerprint")
	}
}

func TestValidateTokenFormat(t *testing.T) {
	if err := ValidateTokenFormat(""); !errors.Is(err, ErrNoToken) {
		t.Errorf("empty token err = %v", err)
	}
	if err := ValidateTokenFormat("has space"); err == nil {
		t.Error("whitespace token accepted")
	}
	if err := ValidateTokenFormat("hf_abcdef"); err != nil {
		t.Errorf("standard token rejected: %v", err)
	}
	// Non-standard prefixes are accepted; the API is the authority.
	if err := ValidateTokenFormat("api_org_xyz"); err != nil {
		t.Errorf("non-standard token rejected: %v", err)
	}

	if !IsStandardTokenFormat("hf_abcdef") {
		t.Error("hf_ prefix not recognized")
	}
	if IsStandardTokenFormat("api_org_xyz") {
		t.Error("non-hf_ prefix recognized as standard")
	}
}

// =============================================================================
// STATUS AND IDENTITY TESTS
// =============================================================================

func TestModelStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/cyberagent/open-calm-7b" {
			t.Errorf("status path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"loaded": true, "state": "Loaded", "compute_type": "gpu", "framework": "text-generation-inference"}`))
	}))
	defer server.Close()

	cfg := DefaultClientConfig()
	cfg.BaseURL = server.URL + "/models"
	cfg.Token = "hf_test"
	cfg.RequestsPerSecond = 0
	client := NewClient(cfg)

	status, err := client.ModelStatus(context.Background(), "cyberagent/open-calm-7b")
	if err != nil {
		t.Fatalf("ModelStatus failed: %v", err)
	}
	if !status.IsReady() {
		t.Error("status not ready")
	}
	if status.ComputeType != "gpu" {
		t.Errorf("compute type = %q", status.ComputeType)
	}
}

func TestWhoAmI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/whoami-v2" {
			t.Errorf("whoami path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer hf_test_token_0123456789" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"name": "testuser", "type": "user"}`))
	}))
	defer server.Close()

	client := newTestClient("http://unused.invalid")
	client.WithHubURL(server.URL)

	identity, err := client.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if identity.Name != "testuser" || identity.Type != "user" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestWhoAmI_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Invalid credentials"}`))
	}))
	defer server.Close()

	client := newTestClient("http://unused.invalid")
	client.WithHubURL(server.URL)

	_, err := client.WhoAmI(context.Background())
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

// =============================================================================
// User-Facing Error Messages
// =============================================================================

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no token", ErrNoToken, "❌ APIキーが設定されていません"},
		{"invalid token", ErrInvalidToken, "❌ APIキーが無効です"},
		{"model loading", ErrModelLoading, "⏳ モデルが読み込み中です。しばらく待ってから再試行してください。"},
		{"rate limited", ErrRateLimited, "⏳ リクエストが多すぎます。少し待ってから再試行してください。"},
		{"model not found", ErrModelNotFound, "❌ モデルが見つかりません"},
		{"deadline", context.DeadlineExceeded, "⏳ リクエストがタイムアウトしました。再試行してください。"},
		{
			"wrapped sentinel",
			fmt.Errorf("generate: %w", ErrInvalidToken),
			"❌ APIキーが無効です",
		},
		{
			"loading error type maps to sentinel",
			&ModelLoadingError{Message: "Model is currently loading", EstimatedTime: 20},
			"⏳ モデルが読み込み中です。しばらく待ってから再試行してください。",
		},
		{
			"api error carries status",
			&APIError{Status: 502, Message: "bad gateway"},
			"❌ エラーが発生しました (ステータス: 502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestUserMessage_UnknownError(t *testing.T) {
	got := UserMessage(errors.New("something odd"))
	if !strings.Contains(got, "something odd") {
		t.Errorf("UserMessage = %q, want it to include the original error text", got)
	}
}

func TestModelLoadingError_EstimatedDuration(t *testing.T) {
	e := &ModelLoadingError{Message: "loading", EstimatedTime: 42.5}
	if got := e.EstimatedDuration(); got != 42500*time.Millisecond {
		t.Errorf("EstimatedDuration() = %v, want 42.5s", got)
	}
}

// =============================================================================
// Stream Fallback
// =============================================================================

func TestStream_FallsBackWhenStreamRejected(t *testing.T) {
	var streamAttempts, generateCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			atomic.AddInt32(&streamAttempts, 1)
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "stream is not supported for this model"}`)
			return
		}
		atomic.AddInt32(&generateCalls, 1)
		fmt.Fprint(w, `[{"generated_text": "こんにちは、元気です。"}]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var chunks []StreamChunk
	stats, err := client.Stream(context.Background(), "test/model", "こんにちは", GenerationParams{}, func(chunk StreamChunk) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("Stream() error = %v, want fallback to non-streaming", err)
	}

	if got := atomic.LoadInt32(&streamAttempts); got != 1 {
		t.Errorf("stream attempts = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&generateCalls); got != 1 {
		t.Errorf("non-streaming calls = %d, want 1", got)
	}

	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want token chunk plus final event", len(chunks))
	}
	if got := chunks[0].GetText(); got != "こんにちは、元気です。" {
		t.Errorf("token text = %q, want full generated text", got)
	}
	if !chunks[1].IsFinal() {
		t.Error("second chunk should be the final event")
	}
	if stats.TokenCount == 0 {
		t.Error("stats.TokenCount = 0, want an estimate for the replayed text")
	}
}

func TestStream_DoesNotFallBackOnAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "Authorization header is correct, but the token seems invalid"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Stream(context.Background(), "test/model", "こんにちは", GenerationParams{}, func(StreamChunk) {})
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken without a fallback attempt", err)
	}
}

// =============================================================================
// Rate Limiter
// =============================================================================

func TestRateLimiter_PacesBeyondBurst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"generated_text": "応答"}]`)
	}))
	defer server.Close()

	cfg := DefaultClientConfig()
	cfg.BaseURL = server.URL
	cfg.Token = "hf_test_token_0123456789"
	cfg.RequestsPerSecond = 20 // one slot every 50ms
	cfg.Burst = 1
	cfg.MaxRetries = 1
	client := NewClient(cfg)

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := client.Generate(context.Background(), "test/model", "こんにちは", GenerationParams{}); err != nil {
			t.Fatalf("Generate() #%d error = %v", i+1, err)
		}
	}

	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("two requests with burst 1 took %v, want the second paced ~50ms", elapsed)
	}
}

func TestRateLimiter_WaitAbortsOnContext(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, `[{"generated_text": "応答"}]`)
	}))
	defer server.Close()

	cfg := DefaultClientConfig()
	cfg.BaseURL = server.URL
	cfg.Token = "hf_test_token_0123456789"
	cfg.RequestsPerSecond = 0.1 // next slot ten seconds out
	cfg.Burst = 1
	cfg.MaxRetries = 1
	client := NewClient(cfg)

	if _, err := client.Generate(context.Background(), "test/model", "こんにちは", GenerationParams{}); err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "test/model", "こんにちは", GenerationParams{})
	if err == nil {
		t.Fatal("Generate() succeeded, want limiter wait aborted by context")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hits = %d, want 1 (second request must not reach the server)", got)
	}
}
