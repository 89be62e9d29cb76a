// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventKind identifies a stream event type.
type EventKind string

const (
	// EventUserMessage is the server's authoritative echo of the sent
	// user message. It reconciles the local placeholder.
	EventUserMessage EventKind = "user_message"

	// EventCardDraw carries the cards drawn for this turn. It replaces
	// the current draw wholesale and marks the turn quota-consuming.
	EventCardDraw EventKind = "card_draw"

	// EventContentStart opens the assistant's streamed reply.
	EventContentStart EventKind = "content_start"

	// EventContentChunk appends a fragment to the streamed reply.
	EventContentChunk EventKind = "content_chunk"

	// EventAssistantMessage is the finalized assistant message. It
	// supersedes whatever the chunk stream accumulated.
	EventAssistantMessage EventKind = "assistant_message"

	// EventError reports a server-side turn failure.
	EventError EventKind = "error"
)

// ErrNoPayload indicates a record carried no data field.
var ErrNoPayload = errors.New("record has no data payload")

// Event is one parsed stream event. Exactly the fields relevant to Kind are
// populated.
type Event struct {
	Kind    EventKind
	Message *model.Message // user_message, assistant_message
	Cards   []model.Card   // card_draw
	Content string         // content_chunk
	Detail  string         // error
}

// eventEnvelope is the wire shape of a stream event payload.
type eventEnvelope struct {
	Type    string         `json:"type"`
	Message *model.Message `json:"message,omitempty"`
	Cards   []model.Card   `json:"cards,omitempty"`
	Content string         `json:"content,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// ParseEvent parses one complete SSE record into a typed event.
//
// A record is a group of lines; payload lines carry a "data:" field whose
// value is a JSON envelope. Multiple data lines are joined per the SSE
// convention. Unknown event types parse successfully; the dispatcher ignores
// kinds it does not recognize, which is what lets old clients ride out new
// server event types.
func ParseEvent(record []byte) (Event, error) {
	payload, err := extractData(record)
	if err != nil {
		return Event{}, err
	}

	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, fmt.Errorf("malformed event payload: %w", err)
	}
	if env.Type == "" {
		return Event{}, errors.New("event payload missing type")
	}

	return Event{
		Kind:    EventKind(env.Type),
		Message: env.Message,
		Cards:   env.Cards,
		Content: env.Content,
		Detail:  env.Detail,
	}, nil
}

// extractData joins the record's data field lines into one payload.
func extractData(record []byte) ([]byte, error) {
	var dataLines [][]byte
	for _, line := range bytes.Split(record, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		switch {
		case bytes.HasPrefix(line, []byte("data: ")):
			dataLines = append(dataLines, line[6:])
		case bytes.HasPrefix(line, []byte("data:")):
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Other fields (event:, id:, retry:, comment lines) are ignored;
		// the envelope's type field is authoritative.
	}
	if len(dataLines) == 0 {
		return nil, ErrNoPayload
	}
	return bytes.Join(dataLines, []byte("\n")), nil
}
