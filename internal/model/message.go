// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Reader"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// placeholderPrefix marks locally synthesized message IDs. Authoritative IDs
// come from the server and never carry this prefix.
const placeholderPrefix = "tmp_"

// Message represents a single message in a reading session.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Content
	Content string `json:"content"`

	// Cards drawn for this turn, in draw order. At most one message owns
	// a given draw; cards are immutable once received.
	Cards []Card `json:"cards,omitempty"`

	// CorrelationID is the client-supplied ID echoed by the server so the
	// confirmed user message can be matched to its placeholder
	// deterministically rather than positionally.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewMessage creates a message with a server-style identity left empty;
// callers working with server data fill ID from the response.
func NewMessage(role Role, content string) *Message {
	return &Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewPlaceholder creates a locally synthesized user message shown before the
// server confirms the send. The temporary ID doubles as the correlation ID
// so servers that echo it enable exact matching.
func NewPlaceholder(sessionID, content string) *Message {
	id := placeholderPrefix + uuid.NewString()
	return &Message{
		ID:            id,
		SessionID:     sessionID,
		Role:          RoleUser,
		Content:       content,
		CreatedAt:     time.Now(),
		CorrelationID: id,
	}
}

// IsPlaceholder reports whether this message is a local placeholder awaiting
// server confirmation.
func (m *Message) IsPlaceholder() bool {
	return strings.HasPrefix(m.ID, placeholderPrefix)
}

// HasCards reports whether a card draw is attached to this message.
func (m *Message) HasCards() bool {
	return len(m.Cards) > 0
}

// Preview returns a truncated single-line preview of the message content.
func (m *Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// IsEmpty returns true if the message has no content and no cards.
func (m *Message) IsEmpty() bool {
	return m.Content == "" && len(m.Cards) == 0
}
