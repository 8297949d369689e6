// errors.go - CLI error types, display, and exit codes.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
)

// Exit codes. Scripts depend on these staying stable.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
	ExitAuth  = 3
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError wraps a failure with the command that produced it.
type CommandError struct {
	Command string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Command, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a CommandError.
func NewCommandError(command, reason string, err error) error {
	return &CommandError{Command: command, Reason: reason, Err: err}
}

// NotFoundError reports a missing resource with its identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s が見つかりません: %s", e.Resource, e.ID)
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError prints an error in the mode-appropriate format. API errors
// get their user-facing Japanese message plus a recovery hint.
func DisplayError(command string, err error, jsonMode bool) {
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Print()
		return
	}

	fmt.Fprintln(os.Stderr, ErrorStyle.Render("❌ "+hf.UserMessage(err)))

	switch {
	case errors.Is(err, hf.ErrNoToken):
		fmt.Fprintln(os.Stderr, DimStyle.Render("   jpchat setup を実行してください。"))
	case errors.Is(err, hf.ErrInvalidToken):
		fmt.Fprintln(os.Stderr, DimStyle.Render("   https://huggingface.co/settings/tokens で新しいトークンを作成できます。"))
	case errors.Is(err, hf.ErrModelNotFound):
		fmt.Fprintln(os.Stderr, DimStyle.Render("   jpchat models で利用可能なモデルを確認できます。"))
	}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, hf.ErrNoToken), errors.Is(err, hf.ErrInvalidToken):
		return ExitAuth
	default:
		return ExitError
	}
}

// HandleErrorAndExit displays the error and exits with its code.
func HandleErrorAndExit(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	DisplayError(command, err, jsonMode)
	os.Exit(ExitCode(err))
}
