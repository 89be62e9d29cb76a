// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the Arcanum backend.
//
// It covers the full REST surface (auth, sessions, messages, card catalog,
// account, journal) and the server-sent-event stream that carries a reading
// turn. Sending a message returns a channel of typed events parsed from the
// stream; the chat package folds those events into session state.
//
// All authenticated calls go through a shared interceptor that performs at
// most one token refresh and replay on a 401 before invoking the injected
// session-expiry handler.
package api
