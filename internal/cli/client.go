// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// client.go - Shared construction of API clients for CLI commands.
package cli

import (
	"strconv"
	"strings"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// newClientFromConfig builds an inference client from the loaded
// configuration. Token resolution (env over file) has already happened in
// config.ApplyEnvOverrides by the time commands run.
func newClientFromConfig(cfg *config.Config) *hf.Client {
	return hf.NewClient(hf.ClientConfig{
		BaseURL:           cfg.API.BaseURL,
		Token:             cfg.API.Token,
		Timeout:           cfg.Timeout(),
		MaxRetries:        cfg.API.MaxRetries,
		WaitForModel:      cfg.API.WaitForModel,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
	})
}

// resolveModel picks the model for a command: the -m/--model flag wins,
// then the configured default, then the catalog default.
func resolveModel(args Args, cfg *config.Config) (string, error) {
	candidate := args.Model
	if candidate == "" {
		candidate = cfg.Chat.Model
	}
	if candidate == "" {
		return model.DefaultModelID, nil
	}

	if info, ok := model.GetModelInfo(candidate); ok {
		return info.ID, nil
	}

	// Allow unknown IDs in full namespace/name form so users can try
	// models outside the curated catalog.
	if strings.Count(candidate, "/") == 1 && !strings.HasPrefix(candidate, "/") {
		return candidate, nil
	}

	return "", &NotFoundError{Resource: "モデル", ID: candidate}
}

// generationParamsFromConfig maps configured generation settings onto
// request parameters, applying any command-line overrides.
func generationParamsFromConfig(command string, cfg *config.Config, opts map[string]string) (hf.GenerationParams, error) {
	params := hf.GenerationParams{
		MaxLength:   cfg.Generation.MaxLength,
		Temperature: cfg.Generation.Temperature,
		TopP:        cfg.Generation.TopP,
		DoSample:    cfg.Generation.DoSample,
	}

	if v, ok := opts["max-length"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return params, NewCommandError(command, "--max-length の値が不正です: "+v, err)
		}
		params.MaxLength = n
	}
	if v, ok := opts["temp"]; ok {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t <= 0 {
			return params, NewCommandError(command, "--temp の値が不正です: "+v, err)
		}
		params.Temperature = t
	}

	return params, nil
}
