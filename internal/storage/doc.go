// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local SQLite cache.
//
// The cache mirrors sessions and their confirmed messages so past readings
// stay viewable when the backend is unreachable, and holds journal drafts
// that have not synced yet. It is a cache, not a source of truth; server
// data always overwrites it.
package storage
