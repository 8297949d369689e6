// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Chat.Model != model.DefaultModelID {
		t.Errorf("default model = %q, want %q", cfg.Chat.Model, model.DefaultModelID)
	}
	if cfg.Generation.MaxLength != 200 {
		t.Errorf("default max_length = %d, want 200", cfg.Generation.MaxLength)
	}
	if cfg.Generation.Temperature != 0.7 {
		t.Errorf("default temperature = %v, want 0.7", cfg.Generation.Temperature)
	}
	if cfg.Chat.HistoryWindow != 3 {
		t.Errorf("default history_window = %d, want 3", cfg.Chat.HistoryWindow)
	}
	if cfg.Server.Port != 7860 {
		t.Errorf("default port = %d, want 7860", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err, "missing file should fall back to defaults")
	assert.Equal(t, model.DefaultModelID, cfg.Chat.Model)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.API.Token = "hf_testtoken"
	cfg.Chat.Model = "rinna/japanese-gpt-neox-3.6b-instruction-sft"
	cfg.Generation.Temperature = 1.2
	cfg.UI.Theme = "light"

	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "config file must be owner-only")

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "hf_testtoken", loaded.API.Token)
	assert.Equal(t, "rinna/japanese-gpt-neox-3.6b-instruction-sft", loaded.Chat.Model)
	assert.Equal(t, 1.2, loaded.Generation.Temperature)
	assert.Equal(t, "light", loaded.UI.Theme)
}

func TestLoadFromPath_ExplicitZeroHistoryWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chat]\nhistory_window = 0\n"), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Chat.HistoryWindow, "explicit 0 means no context and must survive loading")

	missing, err := LoadFromPath(filepath.Join(dir, "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Chat.HistoryWindow, missing.Chat.HistoryWindow)
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		inspect func(*testing.T, *Config)
	}{
		{
			name:   "max_length below range",
			mutate: func(c *Config) { c.Generation.MaxLength = 10 },
			inspect: func(t *testing.T, c *Config) {
				if c.Generation.MaxLength != MinMaxLength {
					t.Errorf("max_length = %d, want %d", c.Generation.MaxLength, MinMaxLength)
				}
			},
		},
		{
			name:   "max_length above range",
			mutate: func(c *Config) { c.Generation.MaxLength = 9999 },
			inspect: func(t *testing.T, c *Config) {
				if c.Generation.MaxLength != MaxMaxLength {
					t.Errorf("max_length = %d, want %d", c.Generation.MaxLength, MaxMaxLength)
				}
			},
		},
		{
			name:   "temperature above range",
			mutate: func(c *Config) { c.Generation.Temperature = 5.0 },
			inspect: func(t *testing.T, c *Config) {
				if c.Generation.Temperature != MaxTemperature {
					t.Errorf("temperature = %v, want %v", c.Generation.Temperature, MaxTemperature)
				}
			},
		},
		{
			name:   "top_p out of range resets",
			mutate: func(c *Config) { c.Generation.TopP = 1.5 },
			inspect: func(t *testing.T, c *Config) {
				if c.Generation.TopP != 0.95 {
					t.Errorf("top_p = %v, want 0.95", c.Generation.TopP)
				}
			},
		},
		{
			name:   "history window above range",
			mutate: func(c *Config) { c.Chat.HistoryWindow = 100 },
			inspect: func(t *testing.T, c *Config) {
				if c.Chat.HistoryWindow != MaxHistoryWindow {
					t.Errorf("history_window = %d, want %d", c.Chat.HistoryWindow, MaxHistoryWindow)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			cfg.Clamp()
			tt.inspect(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty model", func(c *Config) { c.Chat.Model = "" }, "chat.model"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"negative retries", func(c *Config) { c.API.MaxRetries = -1 }, "api.max_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestApplyEnvOverrides_TokenPrecedence(t *testing.T) {
	t.Setenv("JPCHAT_TOKEN", "hf_from_jpchat")
	t.Setenv("HF_TOKEN", "hf_from_hf")

	cfg := Default()
	cfg.API.Token = "hf_from_file"
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "hf_from_jpchat", cfg.API.Token, "JPCHAT_TOKEN wins over HF_TOKEN and file")
}

func TestApplyEnvOverrides_FallbackToken(t *testing.T) {
	t.Setenv("JPCHAT_TOKEN", "")
	t.Setenv("HF_TOKEN", "hf_from_hf")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "hf_from_hf", cfg.API.Token)
}

func TestApplyEnvOverrides_Params(t *testing.T) {
	t.Setenv("JPCHAT_MODEL", "elyza/ELYZA-japanese-Llama-2-7b-instruct")
	t.Setenv("JPCHAT_MAX_LENGTH", "300")
	t.Setenv("JPCHAT_TEMPERATURE", "1.5")
	t.Setenv("JPCHAT_PORT", "8080")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "elyza/ELYZA-japanese-Llama-2-7b-instruct", cfg.Chat.Model)
	assert.Equal(t, 300, cfg.Generation.MaxLength)
	assert.Equal(t, 1.5, cfg.Generation.Temperature)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestGetSet_DotNotation(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("chat.model", "HuggingFaceH4/zephyr-7b-beta"))
	got, err := cfg.Get("chat.model")
	require.NoError(t, err)
	assert.Equal(t, "HuggingFaceH4/zephyr-7b-beta", got)

	require.NoError(t, cfg.Set("generation.max_length", "350"))
	got, err = cfg.Get("generation.max_length")
	require.NoError(t, err)
	assert.Equal(t, 350, got)

	require.NoError(t, cfg.Set("generation.temperature", "0.9"))
	got, err = cfg.Get("generation.temperature")
	require.NoError(t, err)
	assert.Equal(t, 0.9, got)

	require.NoError(t, cfg.Set("ui.markdown", "false"))
	got, err = cfg.Get("ui.markdown")
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestGetSet_UnknownKey(t *testing.T) {
	cfg := Default()

	_, err := cfg.Get("nope.nothing")
	assert.Error(t, err)

	err = cfg.Set("api.nothing", "x")
	assert.Error(t, err)
}

func TestGetAllKeys_Resolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
		}
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.API.Token = "hf_secret"

	safe := cfg.Redacted()
	if safe.API.Token != "[REDACTED]" {
		t.Errorf("token not redacted: %q", safe.API.Token)
	}
	if cfg.API.Token != "hf_secret" {
		t.Error("original config mutated by Redacted")
	}
	if strings.Contains(safe.API.Token, "secret") {
		t.Error("redacted config still carries the secret")
	}
}

// TestConfig_ConcurrentAccess verifies that Global() and SetGlobal() can be
// called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Chat.Model == "" {
		t.Error("chat model should not be empty")
	}
}
