// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides idle timeout and autosave tracking for chat
// sessions.
//
// The manager tracks user activity, warns before the idle timeout, and
// signals periodic autosave while the conversation has unsaved changes.
// Bubble Tea integration is a one-second tick producing session event
// messages.
//
// # Key Types
//
//   - Manager: Session manager with timeout and autosave tracking
//   - Event: Outcome of one tick (none/warn/expire/autosave)
//   - TimeoutMsg, TimeoutWarningMsg, AutoSaveMsg: Bubble Tea messages
//
// # Usage
//
// Create a session manager and drive it from Update:
//
//	mgr := session.NewManager(session.DefaultConfig())
//
//	case session.TickMsg:
//	    return m, mgr.TickHandler()
package session
