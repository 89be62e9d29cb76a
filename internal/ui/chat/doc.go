// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatui is the reading view of the TUI: the message transcript,
// the card spread, the streaming reply, and the composer.
//
// The view never talks to the server directly. A turn runs on its own
// goroutine inside chat.Service; a TurnBridge carries immutable snapshots
// and batched content chunks back into the Bubble Tea loop.
package chatui
