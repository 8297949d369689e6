// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for jpchat.
//
// Configuration comes from ~/.jpchat/config.toml with environment variable
// overrides applied on top. Out-of-range generation parameters are clamped
// to the supported slider ranges rather than rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete jpchat configuration.
type Config struct {
	// API configuration (Inference API access)
	API APIConfig `toml:"api"`

	// Generation parameters
	Generation GenerationConfig `toml:"generation"`

	// Chat behavior
	Chat ChatConfig `toml:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Web server configuration
	Server ServerConfig `toml:"server"`

	// Conversation storage configuration
	Storage StorageConfig `toml:"storage"`

	// Logging configuration
	Log LogConfig `toml:"log"`
}

// APIConfig contains Inference API access configuration.
type APIConfig struct {
	// Token is the HuggingFace access token. Environment variables
	// (JPCHAT_TOKEN, HF_TOKEN, HF_API_TOKEN) take precedence over this
	// field.
	Token string `toml:"token"`
	// BaseURL is the inference endpoint prefix. Empty means the public
	// api-inference.huggingface.co endpoint.
	BaseURL string `toml:"base_url"`
	// TimeoutSeconds bounds each generation request.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// MaxRetries is the retry count for transient failures (503/429/5xx).
	MaxRetries int `toml:"max_retries"`
	// WaitForModel asks the API to hold cold-start requests instead of
	// returning 503.
	WaitForModel bool `toml:"wait_for_model"`
	// RequestsPerSecond is the client-side rate limit. Zero disables it.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	// Burst is the rate limiter burst size.
	Burst int `toml:"burst"`
}

// GenerationConfig contains sampling parameters for text generation.
type GenerationConfig struct {
	// MaxLength is the generated sequence length bound. Range 50-500.
	MaxLength int `toml:"max_length"`
	// Temperature controls sampling randomness. Range 0.1-2.0.
	Temperature float64 `toml:"temperature"`
	// TopP is the nucleus sampling cutoff. Range (0, 1].
	TopP float64 `toml:"top_p"`
	// DoSample enables sampling instead of greedy decoding.
	DoSample bool `toml:"do_sample"`
}

// ChatConfig contains chat behavior configuration.
type ChatConfig struct {
	// Model is the default model ID.
	Model string `toml:"model"`
	// HistoryWindow is the number of past exchanges sent as context.
	HistoryWindow int `toml:"history_window"`
	// TokenBudget is the approximate token limit for the assembled prompt.
	TokenBudget int `toml:"token_budget"`
	// AutoSave persists the conversation periodically while chatting.
	AutoSave bool `toml:"auto_save"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowStats displays per-response token/timing statistics.
	ShowStats bool `toml:"show_stats"`
	// Markdown renders assistant responses as markdown.
	Markdown bool `toml:"markdown"`
}

// ServerConfig contains web server configuration.
type ServerConfig struct {
	// Host is the bind address. Defaults to loopback.
	Host string `toml:"host"`
	// Port is the listen port.
	Port int `toml:"port"`
}

// StorageConfig contains conversation storage configuration.
type StorageConfig struct {
	// Dir is the conversation directory. Supports ~ expansion.
	Dir string `toml:"dir"`
	// MaxConversations caps stored conversations; oldest are removed
	// beyond the cap. Zero disables the cap.
	MaxConversations int `toml:"max_conversations"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error"
	Level string `toml:"level"`
	// File is an optional log file path. Empty logs to stderr.
	File string `toml:"file"`
}

// =============================================================================
// RANGES AND DEFAULTS
// =============================================================================

// Generation parameter bounds. These match the supported slider ranges of
// the web surface; values outside them are clamped on load.
const (
	MinMaxLength = 50
	MaxMaxLength = 500

	MinTemperature = 0.1
	MaxTemperature = 2.0

	MaxHistoryWindow = 20
	MaxHistoryPairs  = 50
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			TimeoutSeconds:    30,
			MaxRetries:        3,
			WaitForModel:      true,
			RequestsPerSecond: 1.0,
			Burst:             2,
		},
		Generation: GenerationConfig{
			MaxLength:   200,
			Temperature: 0.7,
			TopP:        0.95,
			DoSample:    true,
		},
		Chat: ChatConfig{
			Model:         model.DefaultModelID,
			HistoryWindow: 3,
			TokenBudget:   1800,
			AutoSave:      true,
		},
		UI: UIConfig{
			Theme:     "dark",
			ShowStats: true,
			Markdown:  true,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 7860,
		},
		Storage: StorageConfig{
			Dir:              "~/.jpchat/conversations",
			MaxConversations: 100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the jpchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".jpchat"), nil
}

// ConfigPath returns the path to the TOML config file. JPCHAT_CONFIG
// overrides the default location.
func ConfigPath() (string, error) {
	if p := os.Getenv("JPCHAT_CONFIG"); p != "" {
		return util.ExpandHome(p)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// The file may carry the API token, so it must be owner-only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration: defaults, then the config file if one exists,
// then environment overrides, then clamping and validation.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file. The file is written
// atomically with 0600 permissions because it may contain the API token.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# jpchat configuration file")
	fmt.Fprintf(&buf, "# Generated %s - edit with care\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&buf, "")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Clamp pulls out-of-range generation parameters back into the supported
// ranges. The sliders could never produce such values; hand-edited files
// and environment variables can.
func (c *Config) Clamp() {
	if c.Generation.MaxLength < MinMaxLength {
		c.Generation.MaxLength = MinMaxLength
	}
	if c.Generation.MaxLength > MaxMaxLength {
		c.Generation.MaxLength = MaxMaxLength
	}
	if c.Generation.Temperature < MinTemperature {
		c.Generation.Temperature = MinTemperature
	}
	if c.Generation.Temperature > MaxTemperature {
		c.Generation.Temperature = MaxTemperature
	}
	if c.Generation.TopP <= 0 || c.Generation.TopP > 1 {
		c.Generation.TopP = 0.95
	}
	if c.Chat.HistoryWindow < 0 {
		c.Chat.HistoryWindow = 0
	}
	if c.Chat.HistoryWindow > MaxHistoryWindow {
		c.Chat.HistoryWindow = MaxHistoryWindow
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Chat.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "chat.model",
			Message: "model must not be empty",
		})
	}

	if c.API.BaseURL != "" {
		if _, err := url.Parse(c.API.BaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}

	if c.API.TimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_seconds",
			Message: fmt.Sprintf("must be positive, got %d", c.API.TimeoutSeconds),
		})
	}

	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.API.MaxRetries),
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be 1-65535, got %d", c.Server.Port),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if c.Storage.MaxConversations < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.max_conversations",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = defaults.API.TimeoutSeconds
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = defaults.API.MaxRetries
	}
	if c.API.RequestsPerSecond == 0 {
		c.API.RequestsPerSecond = defaults.API.RequestsPerSecond
	}
	if c.API.Burst == 0 {
		c.API.Burst = defaults.API.Burst
	}

	if c.Generation.MaxLength == 0 {
		c.Generation.MaxLength = defaults.Generation.MaxLength
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = defaults.Generation.Temperature
	}
	if c.Generation.TopP == 0 {
		c.Generation.TopP = defaults.Generation.TopP
	}

	if c.Chat.Model == "" {
		c.Chat.Model = defaults.Chat.Model
	}
	// HistoryWindow is left alone: zero is a valid setting meaning no
	// context, and Load seeds the default before the file is decoded.
	if c.Chat.TokenBudget == 0 {
		c.Chat.TokenBudget = defaults.Chat.TokenBudget
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}

	if c.Storage.Dir == "" {
		c.Storage.Dir = defaults.Storage.Dir
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - JPCHAT_TOKEN / HF_TOKEN / HF_API_TOKEN: API token (first set wins)
//   - JPCHAT_MODEL: overrides chat.model
//   - JPCHAT_BASE_URL: overrides api.base_url
//   - JPCHAT_MAX_LENGTH: overrides generation.max_length
//   - JPCHAT_TEMPERATURE: overrides generation.temperature
//   - JPCHAT_HOST / JPCHAT_PORT: overrides server bind address
//   - JPCHAT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	for _, name := range []string{"JPCHAT_TOKEN", "HF_TOKEN", "HF_API_TOKEN"} {
		if tok := os.Getenv(name); tok != "" {
			c.API.Token = tok
			break
		}
	}

	if m := os.Getenv("JPCHAT_MODEL"); m != "" {
		c.Chat.Model = m
	}
	if u := os.Getenv("JPCHAT_BASE_URL"); u != "" {
		c.API.BaseURL = u
	}
	if v := os.Getenv("JPCHAT_MAX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generation.MaxLength = n
		}
	}
	if v := os.Getenv("JPCHAT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Generation.Temperature = f
		}
	}
	if h := os.Getenv("JPCHAT_HOST"); h != "" {
		c.Server.Host = h
	}
	if p := os.Getenv("JPCHAT_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			c.Server.Port = n
		}
	}
	if l := os.Getenv("JPCHAT_LOG_LEVEL"); l != "" {
		c.Log.Level = l
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g.,
// "generation.max_length").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g.,
// "chat.model").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent. Single-word names also match all-caps fields (api,
// ui) via the EqualFold comparison in Get/Set.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type
// conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"api.token",
		"api.base_url",
		"api.timeout_seconds",
		"api.max_retries",
		"api.wait_for_model",
		"api.requests_per_second",
		"api.burst",
		"generation.max_length",
		"generation.temperature",
		"generation.top_p",
		"generation.do_sample",
		"chat.model",
		"chat.history_window",
		"chat.token_budget",
		"chat.auto_save",
		"ui.theme",
		"ui.show_stats",
		"ui.markdown",
		"server.host",
		"server.port",
		"storage.dir",
		"storage.max_conversations",
		"log.level",
		"log.file",
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the API timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// StorageDir returns the conversation directory with ~ expanded.
func (c *Config) StorageDir() (string, error) {
	return util.ExpandHome(c.Storage.Dir)
}

// IndexPath returns the search index database path.
func IndexPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}

// HistoryPath returns the REPL history file path.
func HistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// Clone creates a copy of the configuration. Config has no reference
// fields, so a struct copy is a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy safe for display: the token is replaced by a
// placeholder when set.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.API.Token != "" {
		safe.API.Token = "[REDACTED]"
	}
	return safe
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance. Loads configuration
// on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
