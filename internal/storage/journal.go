// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// JOURNAL DRAFTS
// =============================================================================

// Draft is a journal entry waiting to sync. EntryID is empty for entries
// that have never reached the server.
type Draft struct {
	LocalID   string
	EntryID   string
	Title     string
	Body      string
	SessionID string
	UpdatedAt time.Time
}

// Entry converts the draft to its journal entry shape for syncing.
func (d Draft) Entry() model.JournalEntry {
	return model.JournalEntry{
		ID:        d.EntryID,
		Title:     d.Title,
		Body:      d.Body,
		SessionID: d.SessionID,
		UpdatedAt: d.UpdatedAt,
	}
}

// SaveDraft writes a draft, assigning a local ID on first save.
func (c *Cache) SaveDraft(d *Draft) error {
	if d.LocalID == "" {
		d.LocalID = uuid.NewString()
	}
	d.UpdatedAt = time.Now()

	_, err := c.db.Exec(`
		INSERT INTO journal_drafts (local_id, entry_id, title, body, session_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			entry_id = excluded.entry_id,
			title = excluded.title,
			body = excluded.body,
			session_id = excluded.session_id,
			updated_at = excluded.updated_at`,
		d.LocalID, d.EntryID, d.Title, d.Body, d.SessionID, d.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// ListDrafts returns unsynced drafts, most recently edited first.
func (c *Cache) ListDrafts() ([]Draft, error) {
	rows, err := c.db.Query(`
		SELECT local_id, entry_id, title, body, session_id, updated_at
		FROM journal_drafts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		var d Draft
		var updated int64
		if err := rows.Scan(&d.LocalID, &d.EntryID, &d.Title, &d.Body, &d.SessionID, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		d.UpdatedAt = time.Unix(updated, 0)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDraft removes a draft, typically after a successful sync.
func (c *Cache) DeleteDraft(localID string) error {
	if _, err := c.db.Exec(`DELETE FROM journal_drafts WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// =============================================================================
// JOURNAL SEARCH
// =============================================================================

// foldTransformer strips diacritics so "Étoile" matches "etoile".
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldForSearch normalizes text for accent- and case-insensitive matching.
func foldForSearch(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// SearchDrafts returns drafts whose title or body contains the query,
// ignoring case and diacritics.
func (c *Cache) SearchDrafts(query string) ([]Draft, error) {
	drafts, err := c.ListDrafts()
	if err != nil {
		return nil, err
	}
	q := foldForSearch(strings.TrimSpace(query))
	if q == "" {
		return drafts, nil
	}

	var out []Draft
	for _, d := range drafts {
		if strings.Contains(foldForSearch(d.Title), q) || strings.Contains(foldForSearch(d.Body), q) {
			out = append(out, d)
		}
	}
	return out, nil
}

// SearchEntries filters server-side entries with the same folding rules, so
// online and offline search behave identically.
func SearchEntries(entries []model.JournalEntry, query string) []model.JournalEntry {
	q := foldForSearch(strings.TrimSpace(query))
	if q == "" {
		return entries
	}
	var out []model.JournalEntry
	for _, e := range entries {
		if strings.Contains(foldForSearch(e.Title), q) || strings.Contains(foldForSearch(e.Body), q) {
			out = append(out, e)
		}
	}
	return out
}
