// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is a single reading session owned by the authenticated account.
// Sessions are created, renamed, and deleted by explicit user action and are
// never shared between accounts.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// GetTitle returns the session title or a default for untitled sessions.
func (s *Session) GetTitle() string {
	if strings.TrimSpace(s.Title) != "" {
		return s.Title
	}
	return "New Reading"
}

// SessionMeta is lightweight listing metadata for a cached session.
type SessionMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}
