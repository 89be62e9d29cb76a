// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the client-side state of a reading session and the
// turn lifecycle around it.
//
// A turn starts when the user submits a message. The submission is shown
// immediately as a local placeholder, then the server's event stream is
// folded into session state one event at a time: the echo confirms the
// placeholder, card draws replace the current spread, content chunks build
// the streamed reply, and the final assistant message closes the turn.
// Every failure path discards the placeholder; it is never left dangling.
package chat
