// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea message types used by the reading view.
// Messages are organized into the following categories:
//   - Turn: snapshots of session state, stream ticks, and turn completion
//   - Quota: post-turn quota refreshes
//   - History: loading cached or remote session transcripts
//   - Navigation: requests to the parent app to switch views

package chatui

import (
	"time"

	"github.com/jeranaias/arcana-tui/internal/chat"
	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// TURN MESSAGES
// =============================================================================

// Snapshot is an immutable copy of the render-relevant session state, taken
// on the turn goroutine so the Bubble Tea loop never reads live chat.State.
type Snapshot struct {
	SessionID       string
	Messages        []*model.Message
	Cards           []model.Card
	Streaming       string
	StreamingActive bool
}

// snapshotState copies the fields the view renders. The message pointers are
// shared, but a confirmed message is never mutated again after Apply.
func snapshotState(st *chat.State) Snapshot {
	msgs := make([]*model.Message, len(st.Messages))
	copy(msgs, st.Messages)
	cards := make([]model.Card, len(st.Cards))
	copy(cards, st.Cards)

	return Snapshot{
		SessionID:       st.SessionID,
		Messages:        msgs,
		Cards:           cards,
		Streaming:       st.StreamingContent(),
		StreamingActive: st.StreamingActive,
	}
}

// TurnEventMsg delivers a state snapshot after a discrete stream event
// (user echo, card draw, finalized reply). Content chunks do not produce
// this message; they flow through the StreamingBuffer instead.
type TurnEventMsg struct {
	Snapshot Snapshot
}

// TurnDoneMsg signals that the turn goroutine has finished.
type TurnDoneMsg struct {
	Snapshot Snapshot
	Err      error
}

// StreamTickMsg drives the 30fps flush of buffered content chunks.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// QUOTA MESSAGES
// =============================================================================

// QuotaUpdatedMsg delivers the refreshed quota after a card-consuming turn.
type QuotaUpdatedMsg struct {
	Quota model.Quota
}

// =============================================================================
// HISTORY MESSAGES
// =============================================================================

// HistoryLoadedMsg delivers a session transcript fetched from the server
// or, when offline, from the local cache.
type HistoryLoadedMsg struct {
	SessionID string
	Messages  []*model.Message
	FromCache bool
	Err       error
}

// SessionRenamedMsg confirms a rename issued from the composer.
type SessionRenamedMsg struct {
	SessionID string
	Title     string
	Err       error
}

// =============================================================================
// NAVIGATION MESSAGES
// =============================================================================

// OpenSessionsMsg asks the parent app to show the session picker.
type OpenSessionsMsg struct{}

// OpenJournalMsg asks the parent app to show the journal view.
type OpenJournalMsg struct{}

// OpenAccountMsg asks the parent app to show the subscription view.
type OpenAccountMsg struct{}

// OpenCatalogMsg asks the parent app to show the card catalog.
type OpenCatalogMsg struct{}
