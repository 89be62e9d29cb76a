// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across the arcana client:
// reading sessions, messages, drawn cards, journal entries, and account state.
//
// Messages have two lifecycles that intersect during a chat turn. A placeholder
// message is synthesized locally with a temporary identifier the moment the
// user submits input; when the server echoes the authoritative copy back over
// the event stream, the placeholder is replaced in a single update. The
// temporary identifier is discarded, never reused.
package model
