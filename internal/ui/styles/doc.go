// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the jpchat TUI.

This package defines the color palette, theme styles, and animation
primitives used throughout the application. All colors use Lip Gloss
AdaptiveColor for automatic light/dark terminal detection via termenv.

# Color System (colors.go)

  - Purple - Primary accent for assistant messages and selections
  - Cyan - Brand color for info, commands, and user highlights
  - Emerald - Success states and the ready indicator
  - Amber - Warnings and the model-loading state
  - Rose - Errors

Message blocks use semantic color tokens (UserBubbleBg, AssistantBubbleFg,
and so on), and the role labels shown above each block are the Japanese
strings UserLabel ("あなた"), AssistantLabel, and SystemLabel.

# Theme (theme.go)

Theme bundles every pre-built lipgloss.Style the chat view and its
components need. Construct one with NewTheme, which probes the terminal
color profile, and share it across components. SetSize feeds window
dimensions to responsive helpers such as GetLayoutMode.

# Animations (animations.go)

Spinner frame sets, a progress bar renderer used by the model-loading
countdown, and the streaming cursor characters.
*/
package styles
