// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/model"
)

func TestApplyThreeEventTurn(t *testing.T) {
	// The canonical turn: echo, card draw, final assistant message.
	st := NewState("s1")
	ph := model.NewPlaceholder("s1", "what awaits me?")
	st.beginTurn(ph)

	st.Apply(api.Event{Kind: api.EventUserMessage, Message: &model.Message{
		ID: "m1", Role: model.RoleUser, Content: "what awaits me?", CorrelationID: ph.CorrelationID,
	}})
	st.Apply(api.Event{Kind: api.EventCardDraw, Cards: []model.Card{
		{ID: "wheel", Name: "Wheel of Fortune"},
	}})
	st.Apply(api.Event{Kind: api.EventAssistantMessage, Message: &model.Message{
		ID: "m2", Role: model.RoleAssistant, Content: "Change turns toward you.",
	}})

	if len(st.Messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(st.Messages))
	}
	if st.Messages[0].ID != "m1" || st.Messages[0].IsPlaceholder() {
		t.Errorf("placeholder not reconciled: %+v", st.Messages[0])
	}
	if st.Messages[1].ID != "m2" {
		t.Errorf("final message = %+v", st.Messages[1])
	}
	if len(st.Cards) != 1 || st.Cards[0].Name != "Wheel of Fortune" {
		t.Errorf("cards = %+v", st.Cards)
	}
	if !st.cardDrawn {
		t.Error("card draw did not mark the turn quota-consuming")
	}
	if st.Messages[1].Cards == nil {
		t.Error("draw not attached to the final message")
	}
}

func TestApplyStreamingChunks(t *testing.T) {
	st := NewState("s1")
	st.Apply(api.Event{Kind: api.EventContentStart})
	if !st.StreamingActive {
		t.Error("content_start did not open streaming")
	}
	st.Apply(api.Event{Kind: api.EventContentChunk, Content: "The Moon "})
	st.Apply(api.Event{Kind: api.EventContentChunk, Content: "obscures the path."})
	if got := st.StreamingContent(); got != "The Moon obscures the path." {
		t.Errorf("streaming content = %q", got)
	}

	st.Apply(api.Event{Kind: api.EventAssistantMessage, Message: &model.Message{
		ID: "m1", Role: model.RoleAssistant, Content: "The Moon obscures the path.",
	}})
	if st.StreamingActive {
		t.Error("final message did not close streaming")
	}
	if st.StreamingContent() != "" {
		t.Error("buffer not cleared after finalization")
	}
}

func TestApplyCardDrawReplacesWholesale(t *testing.T) {
	st := NewState("s1")
	st.Apply(api.Event{Kind: api.EventCardDraw, Cards: []model.Card{
		{ID: "a", Name: "The Fool"}, {ID: "b", Name: "The Magician"},
	}})
	st.Apply(api.Event{Kind: api.EventCardDraw, Cards: []model.Card{
		{ID: "c", Name: "Death"},
	}})
	if len(st.Cards) != 1 || st.Cards[0].ID != "c" {
		t.Errorf("second draw did not replace the first: %+v", st.Cards)
	}
}

func TestApplyErrorEvent(t *testing.T) {
	st := NewState("s1")
	st.Apply(api.Event{Kind: api.EventContentChunk, Content: "partial"})
	st.Apply(api.Event{Kind: api.EventError, Detail: "the spirits are silent"})

	if !st.TurnFailed() {
		t.Error("error event did not mark the turn failed")
	}
	if st.TurnDetail != "the spirits are silent" {
		t.Errorf("detail = %q", st.TurnDetail)
	}
	if st.StreamingActive || st.StreamingContent() != "" {
		t.Error("streaming buffer survived the error")
	}
}

func TestApplyUnknownKindIgnored(t *testing.T) {
	st := NewState("s1")
	before := len(st.Messages)
	st.Apply(api.Event{Kind: api.EventKind("lunar_eclipse"), Content: "???"})
	if len(st.Messages) != before || st.TurnFailed() || st.StreamingActive {
		t.Error("unknown event kind mutated state")
	}
}

func TestApplyEventsWithNilMessageIgnored(t *testing.T) {
	st := NewState("s1")
	st.Apply(api.Event{Kind: api.EventUserMessage})
	st.Apply(api.Event{Kind: api.EventAssistantMessage})
	if len(st.Messages) != 0 {
		t.Errorf("nil-message events appended: %v", st.Messages)
	}
}
