// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// JOURNAL ENDPOINTS
// =============================================================================

// ListJournal returns the account's journal entries, newest first.
func (c *Client) ListJournal(ctx context.Context) ([]model.JournalEntry, error) {
	var out struct {
		Entries []model.JournalEntry `json:"entries"`
	}
	if err := c.getJSON(ctx, "/journal/entries/", &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// CreateJournalEntry creates an entry on the backend and returns it with its
// server-assigned identity.
func (c *Client) CreateJournalEntry(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	var created model.JournalEntry
	if err := c.sendJSON(ctx, http.MethodPost, "/journal/entries/", entry, &created); err != nil {
		return model.JournalEntry{}, err
	}
	return created, nil
}

// UpdateJournalEntry applies edits to an existing entry.
func (c *Client) UpdateJournalEntry(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	var updated model.JournalEntry
	err := c.sendJSON(ctx, http.MethodPatch, "/journal/entries/"+entry.ID+"/", entry, &updated)
	if err != nil {
		return model.JournalEntry{}, err
	}
	return updated, nil
}

// DeleteJournalEntry removes an entry.
func (c *Client) DeleteJournalEntry(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/journal/entries/"+id+"/", nil, nil)
}
