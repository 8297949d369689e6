// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hf implements the HuggingFace Inference API client.
//
// The client speaks the hosted text generation protocol: POST a prompt and
// sampling parameters to the model endpoint, receive the completion as a
// generated_text array, or consume it incrementally over SSE. Cold models
// answer 503 with a load estimate; GenerateWithRetry turns those and rate
// limit responses into bounded waits with exponential backoff.
//
// All requests pass a client-side rate limiter and carry a Bearer token.
// The raw token never appears in logs; TokenFingerprint provides a stable
// SHA-256 prefix for correlation instead.
package hf
