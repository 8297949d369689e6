// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view for the jpchat TUI.

The chat package implements a terminal chat interface on the Bubble Tea
framework, talking to the HuggingFace Inference API for Japanese-capable
text generation models.

# Key Components

## Model (model.go)

The Model struct is the central Bubble Tea model that maintains all chat
state:
  - Conversation history and message management
  - Input handling with multi-line support
  - Viewport for message scrolling
  - Streaming state for real-time responses
  - Session idle tracking and autosave

## Update Loop (update.go)

Handles all Bubble Tea messages and user interactions: keyboard input,
stream tokens, model loading retries, window resizes, and slash command
execution.

## Streaming (streaming.go)

Token events arrive on a channel fed by the API client's SSE stream and
are batched through a StreamingBuffer so rendering stays at a capped
frame rate instead of redrawing per token.

## Commands (commands.go)

Slash command registry. Input starting with "/" (or its full-width form
"／") is dispatched to a handler instead of being sent to the model:

	/help /model /models /clear /new /save /sessions /load
	/params /temp /length /export /search /quit

# Usage

	client := hf.NewClient(hf.DefaultClientConfig())
	m := chat.New(chat.Options{Client: client, Config: cfg})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
