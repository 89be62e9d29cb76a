// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements plain (non-TUI) mode: a line-oriented REPL with
// input history, masked credential prompts, and an offline read-only mode
// backed by the local cache. Used when stdout is not a terminal or when
// the user passes --plain.
package cli
