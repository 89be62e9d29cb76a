// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// CARD CATALOG ENDPOINTS
// =============================================================================

// ListCards returns the full card catalog. The catalog is static per deck,
// so callers may cache the result for the life of the process.
func (c *Client) ListCards(ctx context.Context) ([]model.Card, error) {
	var out struct {
		Cards []model.Card `json:"cards"`
	}
	if err := c.getJSON(ctx, "/cards/", &out); err != nil {
		return nil, err
	}
	return out.Cards, nil
}

// GetCard returns a single catalog card with its full interpretive metadata.
func (c *Client) GetCard(ctx context.Context, id string) (model.Card, error) {
	var card model.Card
	if err := c.getJSON(ctx, "/cards/"+id+"/", &card); err != nil {
		return model.Card{}, err
	}
	return card, nil
}

// ListSpreads returns the available reading layouts.
func (c *Client) ListSpreads(ctx context.Context) ([]model.Spread, error) {
	var out struct {
		Spreads []model.Spread `json:"spreads"`
	}
	if err := c.getJSON(ctx, "/spreads/", &out); err != nil {
		return nil, err
	}
	return out.Spreads, nil
}
