// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the client-side view of one reading session. It is mutated only
// by Apply and the turn service, in event arrival order; no event is ever
// applied out of order or concurrently.
type State struct {
	SessionID string
	Messages  []*model.Message

	// Cards is the current draw. A card_draw event replaces it wholesale;
	// it never merges with a previous draw.
	Cards []model.Card

	// Streaming reply under construction.
	streamBuf       strings.Builder
	StreamingActive bool

	// TurnDetail carries the server's error text when the turn failed.
	TurnDetail string

	// cardDrawn marks the in-flight turn as quota-consuming. The turn
	// service reads and clears it when the turn concludes.
	cardDrawn bool

	reconciler Reconciler
}

// NewState creates state for a session.
func NewState(sessionID string) *State {
	return &State{SessionID: sessionID}
}

// StreamingContent returns the partial reply accumulated so far.
func (s *State) StreamingContent() string {
	return s.streamBuf.String()
}

// TurnFailed reports whether the last applied event marked the turn failed.
func (s *State) TurnFailed() bool {
	return s.TurnDetail != ""
}

// LastMessage returns the newest message, or nil when the session is empty.
func (s *State) LastMessage() *model.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// ClearCards empties the current draw without touching message history.
func (s *State) ClearCards() {
	s.Cards = nil
}

// beginTurn appends the placeholder and arms the reconciler.
func (s *State) beginTurn(placeholder *model.Message) {
	s.TurnDetail = ""
	s.cardDrawn = false
	s.streamBuf.Reset()
	s.StreamingActive = false
	s.Messages = append(s.Messages, placeholder)
	s.reconciler.Begin(placeholder)
}

// discardPlaceholder removes the pending placeholder, if any.
func (s *State) discardPlaceholder() {
	s.Messages = s.reconciler.Discard(s.Messages)
}

// =============================================================================
// EVENT DISPATCH
// =============================================================================

// Apply folds one stream event into session state. Unknown event kinds are
// ignored so newer servers can add event types without breaking the client.
func (s *State) Apply(ev api.Event) {
	switch ev.Kind {
	case api.EventUserMessage:
		if ev.Message == nil {
			return
		}
		s.Messages, _ = s.reconciler.Confirm(s.Messages, ev.Message)

	case api.EventCardDraw:
		s.Cards = ev.Cards
		s.cardDrawn = true

	case api.EventContentStart:
		s.streamBuf.Reset()
		s.StreamingActive = true

	case api.EventContentChunk:
		s.streamBuf.WriteString(ev.Content)
		s.StreamingActive = true

	case api.EventAssistantMessage:
		if ev.Message == nil {
			return
		}
		// The finalized message supersedes the accumulated chunks.
		if len(ev.Message.Cards) == 0 && len(s.Cards) > 0 && s.cardDrawn {
			ev.Message.Cards = s.Cards
		}
		s.Messages = append(s.Messages, ev.Message)
		s.streamBuf.Reset()
		s.StreamingActive = false

	case api.EventError:
		s.TurnDetail = ev.Detail
		if s.TurnDetail == "" {
			s.TurnDetail = "the reading was interrupted"
		}
		s.streamBuf.Reset()
		s.StreamingActive = false
	}
}
