// json_output.go - JSON output support for scripting against the CLI.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONResponse is the standardized envelope for --json output.
type JSONResponse struct {
	// Success indicates whether the command completed successfully.
	Success bool `json:"success"`

	// Data contains the command-specific response data.
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise.
	Error *string `json:"error"`

	// Timestamp is the RFC3339 time the response was generated.
	Timestamp string `json:"timestamp"`

	// Command is the command that produced the response.
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the indented JSON response to stdout. Human-readable
// messages go to stderr when JSON mode is active.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// StderrPrint writes a human-readable message to stderr, keeping stdout
// clean for JSON.
func StderrPrint(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// =============================================================================
// COMMAND DATA SHAPES
// =============================================================================

// VersionData is the --json payload for the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// AskData is the --json payload for the ask command.
type AskData struct {
	Model      string `json:"model"`
	Response   string `json:"response"`
	DurationMs int64  `json:"duration_ms"`
	Tokens     int    `json:"tokens"`
}

// ModelData is one entry of the models command's --json payload.
type ModelData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Family      string `json:"family"`
	Japanese    bool   `json:"japanese"`
	Pro         bool   `json:"pro"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
}

// SessionData is one entry of the sessions command's --json payload.
type SessionData struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Model        string `json:"model"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    string `json:"updated_at"`
	Preview      string `json:"preview,omitempty"`
}

// StatusData is the --json payload for the status command.
type StatusData struct {
	Version          string `json:"version"`
	TokenSet         bool   `json:"token_set"`
	TokenFingerprint string `json:"token_fingerprint,omitempty"`
	TokenValid       *bool  `json:"token_valid,omitempty"`
	Identity         string `json:"identity,omitempty"`
	Model            string `json:"model"`
	ModelState       string `json:"model_state,omitempty"`
	ConfigPath       string `json:"config_path"`
	StorageDir       string `json:"storage_dir"`
}
