// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CARD TYPES
// =============================================================================

// Orientation is the facing of a drawn card.
type Orientation string

const (
	OrientationUpright  Orientation = "upright"
	OrientationReversed Orientation = "reversed"
)

// Card is a single tarot card as drawn for a reading. Catalog lookups return
// the same shape with the orientation zeroed.
type Card struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	ImageURL string      `json:"image_url,omitempty"`
	Position Orientation `json:"orientation,omitempty"`

	// Interpretive metadata, present when the catalog provides it.
	Meaning   string `json:"meaning,omitempty"`
	Suit      string `json:"suit,omitempty"`
	Rank      string `json:"rank,omitempty"`
	Element   string `json:"element,omitempty"`
	Astrology string `json:"astrology,omitempty"`
	Numeral   string `json:"numeral,omitempty"`
}

// IsReversed reports whether the card was drawn reversed.
func (c Card) IsReversed() bool {
	return c.Position == OrientationReversed
}

// DisplayName returns the card name with its orientation suffix.
func (c Card) DisplayName() string {
	if c.IsReversed() {
		return c.Name + " (reversed)"
	}
	return c.Name
}

// Spread is a named card layout offered by the catalog (e.g. a three-card
// past/present/future draw).
type Spread struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CardCount   int    `json:"card_count"`
}
