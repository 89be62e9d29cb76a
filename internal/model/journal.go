// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// JOURNAL TYPES
// =============================================================================

// JournalEntry is a personal journal entry. Entries live on the backend;
// unsent edits are kept as local drafts until they sync.
type JournalEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	// SessionID links the entry to the reading it reflects on, if any.
	SessionID string `json:"session_id,omitempty"`
}

// GetTitle returns the entry title, falling back to the first line of the body.
func (e *JournalEntry) GetTitle() string {
	if strings.TrimSpace(e.Title) != "" {
		return e.Title
	}
	if i := strings.IndexByte(e.Body, '\n'); i >= 0 {
		return strings.TrimSpace(e.Body[:i])
	}
	if strings.TrimSpace(e.Body) != "" {
		return strings.TrimSpace(e.Body)
	}
	return "Untitled"
}

// IsDraft reports whether the entry exists only locally.
func (e *JournalEntry) IsDraft() bool {
	return e.ID == ""
}
