// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for jpchat.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation. Generation parameters are clamped to their
// supported ranges on load.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Inference API access (token, timeout, retry, rate limit)
//   - GenerationConfig: Sampling parameters (max_length, temperature, top_p)
//   - ChatConfig: Default model, history window, token budget
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (JPCHAT_*, HF_TOKEN)
//   - ~/.jpchat/config.toml (or JPCHAT_CONFIG)
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	model := cfg.Chat.Model
//	timeout := cfg.Timeout()
package config
