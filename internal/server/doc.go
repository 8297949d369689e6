// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the localhost web chat surface.
//
// It serves an embedded Japanese chat page and a small JSON API in front
// of the Inference API client:
//
//   - GET  /              embedded chat page
//   - POST /api/chat      one-shot generation, history in the request
//   - POST /api/chat/stream  SSE token stream
//   - GET  /api/models    model catalog
//   - GET  /api/token     token state (fingerprint only)
//   - POST /api/token     set token in-process after verification
//   - GET  /api/status    model deployment state
//   - GET  /healthz       liveness plus usage counters
//
// The server binds to loopback by default and holds no per-user state;
// conversation history travels with each request.
package server
