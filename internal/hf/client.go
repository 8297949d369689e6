// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package hf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// Configuration constants for the HuggingFace Inference API.
const (
	// DefaultBaseURL is the model inference endpoint prefix.
	DefaultBaseURL = "https://api-inference.huggingface.co/models"

	// DefaultHubURL is the HuggingFace Hub origin, used for token checks.
	DefaultHubURL = "https://huggingface.co"

	// DefaultTimeout is the default timeout for generation requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors.
	DefaultMaxRetries = 3

	// DefaultRequestsPerSecond is the default client-side rate limit.
	DefaultRequestsPerSecond = 1.0

	// DefaultBurst is the default rate limiter burst size.
	DefaultBurst = 2

	// DefaultUserAgent identifies the client in request headers.
	DefaultUserAgent = "jpchat/1.0"

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// sharedTransport pools connections across all clients. TLS 1.2+ is
// required; the Inference API rejects plaintext anyway.
var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// ClientConfig holds configuration for an Inference API client.
type ClientConfig struct {
	// BaseURL is the inference endpoint prefix (default: DefaultBaseURL).
	BaseURL string

	// Token is the HuggingFace API token. May be empty; Generate requests
	// will then fail with ErrNoToken.
	Token string

	// Timeout bounds each generation request (default: 30s).
	Timeout time.Duration

	// MaxRetries is the retry attempt count for transient errors.
	MaxRetries int

	// WaitForModel asks the API to hold the request while a cold model
	// loads instead of returning 503.
	WaitForModel bool

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// RequestsPerSecond is the client-side rate limit. Zero or negative
	// disables limiting.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size.
	Burst int
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
		UserAgent:         DefaultUserAgent,
	}
}

// GenerationParams are the sampling parameters sent with each request.
type GenerationParams struct {
	// MaxLength bounds the generated sequence length.
	MaxLength int

	// Temperature controls sampling randomness.
	Temperature float64

	// TopP is the nucleus sampling cutoff.
	TopP float64

	// DoSample enables sampling instead of greedy decoding.
	DoSample bool

	// ReturnFullText echoes the prompt back when true. The chat flow
	// always wants only the completion.
	ReturnFullText bool
}

// DefaultGenerationParams returns the standard chat sampling parameters.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxLength:      200,
		Temperature:    0.7,
		TopP:           0.95,
		DoSample:       true,
		ReturnFullText: false,
	}
}

// applyDefaults fills zero values with the standard defaults.
func (p *GenerationParams) applyDefaults() {
	if p.MaxLength <= 0 {
		p.MaxLength = 200
	}
	if p.Temperature <= 0 {
		p.Temperature = 0.7
	}
	if p.TopP <= 0 {
		p.TopP = 0.95
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// generationParameters is the wire shape of the parameters object.
type generationParameters struct {
	MaxLength      int     `json:"max_length"`
	Temperature    float64 `json:"temperature"`
	DoSample       bool    `json:"do_sample"`
	TopP           float64 `json:"top_p"`
	ReturnFullText bool    `json:"return_full_text"`
}

// requestOptions is the wire shape of the options object.
type requestOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
	UseCache     bool `json:"use_cache,omitempty"`
}

// generationRequest is the request body for the inference endpoint.
type generationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
	Options    *requestOptions      `json:"options,omitempty"`
	Stream     bool                 `json:"stream,omitempty"`
}

// GeneratedText is one element of the 200 response array.
type GeneratedText struct {
	GeneratedText string `json:"generated_text"`
}

// Result holds a completed generation. FirstTokenTime is zero for
// non-streaming responses, where the whole text arrives at once.
type Result struct {
	Text           string
	Model          string
	Duration       time.Duration
	FirstTokenTime time.Duration
	TokenCount     int
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the HuggingFace Inference API.
type Client struct {
	baseURL    string
	hubURL     string
	userAgent  string
	timeout    time.Duration
	maxRetries int
	waitForMdl bool

	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter

	mu    sync.RWMutex
	token string
}

// NewClient creates an Inference API client from the given configuration.
// Zero fields fall back to the defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = DefaultBurst
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		hubURL:     DefaultHubURL,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		waitForMdl: cfg.WaitForModel,
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   cfg.Timeout,
		},
		// No timeout for streaming, controlled via context.
		streamClient: &http.Client{
			Transport: sharedTransport,
		},
		limiter: rate.NewLimiter(limit, burst),
		token:   strings.TrimSpace(cfg.Token),
	}
}

// WithHubURL overrides the Hub origin used for token verification.
func (c *Client) WithHubURL(url string) *Client {
	c.hubURL = strings.TrimSuffix(url, "/")
	return c
}

// SetToken replaces the API token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

// Token returns the current API token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// HasToken returns true if an API token is configured.
func (c *Client) HasToken() bool {
	return c.Token() != ""
}

// TokenFingerprint returns a SHA-256 prefix of the token for logs. The raw
// token is never logged or displayed.
func (c *Client) TokenFingerprint() string {
	tok := c.Token()
	if tok == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(h[:4])
}

// ValidateTokenFormat checks that a token is non-empty and has no interior
// whitespace. Tokens without the hf_ prefix are accepted; the API decides.
func ValidateTokenFormat(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoToken
	}
	if strings.ContainsAny(token, " \t\n") {
		return fmt.Errorf("token contains whitespace")
	}
	return nil
}

// IsStandardTokenFormat reports whether the token carries the usual hf_
// prefix. Used for setup hints only, never for rejection.
func IsStandardTokenFormat(token string) bool {
	return strings.HasPrefix(strings.TrimSpace(token), "hf_")
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate sends a single generation request and returns the completion.
func (c *Client) Generate(ctx context.Context, modelID, prompt string, params GenerationParams) (*Result, error) {
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
	start := time.Now()

	body, err := c.marshalRequest(prompt, params, false)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.modelURL(modelID), body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, respBody, resp.Header)
	}

	text, err := parseGeneration(respBody)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:       text,
		Model:      modelID,
		Duration:   time.Since(start),
		TokenCount: model.EstimateTokens(text),
	}, nil
}

// GenerateWithRetry calls Generate with exponential backoff on transient
// failures. Rate limit and model loading responses carry server wait hints
// which are honored when longer than the computed backoff.
func (c *Client) GenerateWithRetry(ctx context.Context, modelID, prompt string, params GenerationParams) (*Result, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := c.Generate(ctx, modelID, prompt, params)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return nil, errors.New("max retries exceeded")
}

// retryDelay combines exponential backoff with any wait hint carried by
// the previous error.
func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	delay := calculateBackoff(attempt)

	var rateErr *RateLimitError
	if errors.As(lastErr, &rateErr) && rateErr.RetryAfter > delay {
		return rateErr.RetryAfter
	}

	var loadErr *ModelLoadingError
	if errors.As(lastErr, &loadErr) && loadErr.EstimatedDuration() > delay {
		return loadErr.EstimatedDuration()
	}

	return delay
}

// =============================================================================
// HELPERS
// =============================================================================

// modelURL joins the base URL with a model ID. IDs keep their
// namespace/name slash as a path segment separator.
func (c *Client) modelURL(modelID string) string {
	return c.baseURL + "/" + modelID
}

// marshalRequest builds the JSON request body.
func (c *Client) marshalRequest(prompt string, params GenerationParams, stream bool) ([]byte, error) {
	reqBody := generationRequest{
		Inputs: prompt,
		Parameters: generationParameters{
			MaxLength:      params.MaxLength,
			Temperature:    params.Temperature,
			DoSample:       params.DoSample,
			TopP:           params.TopP,
			ReturnFullText: params.ReturnFullText,
		},
		Stream: stream,
	}
	if c.waitForMdl {
		reqBody.Options = &requestOptions{WaitForModel: true}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

// newRequest creates an HTTP request with auth and content headers set.
func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// parseGeneration extracts the completion text from a 200 response. The
// endpoint returns an array of generated_text objects; anything else is an
// unexpected shape.
func parseGeneration(body []byte) (string, error) {
	var results []GeneratedText
	if err := json.Unmarshal(body, &results); err != nil {
		return "", ErrUnexpectedResponse
	}
	if len(results) == 0 {
		return "", ErrUnexpectedResponse
	}
	return strings.TrimSpace(results[0].GeneratedText), nil
}

// isRetryable determines if an error should trigger a retry. Client errors
// other than 429 are permanent; loading, rate limit, server and network
// failures are worth another attempt.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ErrModelLoading) || errors.Is(err, ErrRateLimited) {
		return true
	}

	if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrModelNotFound) ||
		errors.Is(err, ErrNoToken) || errors.Is(err, ErrEmptyPrompt) ||
		errors.Is(err, ErrUnexpectedResponse) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}

	// Remaining errors are transport failures.
	return true
}

// calculateBackoff returns the delay to wait before the next retry.
func calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: 500ms, 1000ms, 2000ms, etc.
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
