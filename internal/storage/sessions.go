// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// SESSION CACHE
// =============================================================================

// UpsertSession writes or refreshes a session row.
func (c *Cache) UpsertSession(s model.Session) error {
	_, err := c.db.Exec(`
		INSERT INTO sessions (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at`,
		s.ID, s.Title, s.CreatedAt.Unix(), s.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

// ReplaceSessions resets the cached session list to match the server's.
// Messages for sessions that vanished go with them via the cascade.
func (c *Cache) ReplaceSessions(sessions []model.Session) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	for _, s := range sessions {
		_, err := tx.Exec(`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			s.ID, s.Title, s.CreatedAt.Unix(), s.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to cache session %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// ListSessions returns cached sessions, most recently updated first.
func (c *Cache) ListSessions() ([]model.Session, error) {
	rows, err := c.db.Query(`SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached sessions: %w", err)
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		var s model.Session
		var created, updated int64
		if err := rows.Scan(&s.ID, &s.Title, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.CreatedAt = time.Unix(created, 0)
		s.UpdatedAt = time.Unix(updated, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its messages from the cache.
func (c *Cache) DeleteSession(id string) error {
	if _, err := c.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to evict session: %w", err)
	}
	return nil
}

// =============================================================================
// MESSAGE CACHE
// =============================================================================

// SaveMessages replaces the cached history for a session. Placeholders are
// never cached; only server-confirmed messages are worth keeping offline.
func (c *Cache) SaveMessages(sessionID string, messages []*model.Message) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear cached messages: %w", err)
	}

	for _, m := range messages {
		if m.IsPlaceholder() {
			continue
		}
		cardsJSON := ""
		if len(m.Cards) > 0 {
			b, err := json.Marshal(m.Cards)
			if err != nil {
				return fmt.Errorf("failed to encode cards: %w", err)
			}
			cardsJSON = string(b)
		}
		_, err := tx.Exec(`
			INSERT INTO messages (id, session_id, role, content, cards_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, sessionID, string(m.Role), m.Content, cardsJSON, m.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to cache message %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// Messages returns the cached history for a session in chronological order.
func (c *Cache) Messages(sessionID string) ([]*model.Message, error) {
	rows, err := c.db.Query(`
		SELECT id, role, content, cards_json, created_at
		FROM messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached messages: %w", err)
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		m := &model.Message{SessionID: sessionID}
		var cardsJSON string
		var created int64
		if err := rows.Scan(&m.ID, (*string)(&m.Role), &m.Content, &cardsJSON, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.CreatedAt = time.Unix(created, 0)
		if cardsJSON != "" {
			if err := json.Unmarshal([]byte(cardsJSON), &m.Cards); err != nil {
				return nil, fmt.Errorf("failed to decode cached cards: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Session returns one cached session.
func (c *Cache) Session(id string) (model.Session, error) {
	var s model.Session
	var created, updated int64
	err := c.db.QueryRow(`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotCached
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to read cached session: %w", err)
	}
	s.CreatedAt = time.Unix(created, 0)
	s.UpdatedAt = time.Unix(updated, 0)
	return s, nil
}
