// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the top-level TUI application: the view switcher,
// the login form, the session picker, the journal, the account view, and
// the card catalog. The reading view itself lives in ui/chat.
package ui
