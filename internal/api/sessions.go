// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// ListSessions returns the account's reading sessions, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	var out struct {
		Sessions []model.Session `json:"sessions"`
	}
	if err := c.getJSON(ctx, "/chat/sessions/", &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// CreateSession creates a new reading session. Title may be empty; the
// backend fills a default.
func (c *Client) CreateSession(ctx context.Context, title string) (model.Session, error) {
	var s model.Session
	req := map[string]string{"title": title}
	if err := c.sendJSON(ctx, http.MethodPost, "/chat/sessions/", req, &s); err != nil {
		return model.Session{}, err
	}
	return s, nil
}

// RenameSession updates a session's title.
func (c *Client) RenameSession(ctx context.Context, id, title string) (model.Session, error) {
	var s model.Session
	req := map[string]string{"title": title}
	err := c.sendJSON(ctx, http.MethodPatch, "/chat/sessions/"+id+"/", req, &s)
	if err != nil {
		return model.Session{}, sessionize(err)
	}
	return s, nil
}

// DeleteSession removes a session and its messages on the server.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	err := c.sendJSON(ctx, http.MethodDelete, "/chat/sessions/"+id+"/", nil, nil)
	return sessionize(err)
}

// ListMessages returns a session's message history in chronological order.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	var out struct {
		Messages []model.Message `json:"messages"`
	}
	err := c.getJSON(ctx, "/chat/sessions/"+sessionID+"/messages/", &out)
	if err != nil {
		return nil, sessionize(err)
	}
	return out.Messages, nil
}

// sessionize narrows a generic 404 to the session sentinel so callers can
// trigger the new-session retry path.
func sessionize(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
