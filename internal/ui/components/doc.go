// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the jpchat TUI.

This package contains styled, interactive components built on top of the
Bubble Tea and Lip Gloss libraries. Labels and hints are Japanese, and text
layout is measured in display columns so full-width characters line up.

# Input Components

InputArea (input.go) - Multi-line text input with a character counter.
Enter submits, Shift+Enter inserts a newline.
CompletionPopup (completion.go) - Fuzzy slash-command completion.

# Display Components

Header (header.go) - Title bar with the model name and capability badges.
StatusBar (statusbar.go) - Bottom bar with token usage, state, and shortcuts.
MessageBubble (message.go) - Chat bubbles; finished assistant messages are
rendered through Glamour, streaming ones through the code block parser.
CodeBlock (codeblock.go) - Syntax-highlighted code blocks using Chroma.
ChatViewport (viewport.go) - Scrollback that follows the newest message.
ModelPicker (picker.go) - Model selection list with 日本語 and PRO badges.

# Progress and Feedback

Spinner (spinner.go) - Thinking and model-loading indicators.
ErrorDisplay (error.go) - Error box with recovery suggestions.
Toast (toast.go) - Auto-dismissing corner notifications.
Welcome (welcome.go) - First-run welcome screen.

# Theme Integration

All components accept a *styles.Theme for consistent styling:

	theme := styles.NewTheme()
	header := components.NewHeader(theme)
	header.SetWidth(80)
	header.SetModel("cyberagent/open-calm-7b", true, false)
	view := header.View()
*/
package components
