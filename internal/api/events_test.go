// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"testing"

	"github.com/jeranaias/arcana-tui/internal/model"
)

func TestParseEventKinds(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   EventKind
		check  func(t *testing.T, ev Event)
	}{
		{
			name:   "user message echo",
			record: `data: {"type":"user_message","message":{"id":"msg_1","role":"user","content":"what does the tower mean?","correlation_id":"tmp_abc"}}`,
			want:   EventUserMessage,
			check: func(t *testing.T, ev Event) {
				if ev.Message == nil || ev.Message.ID != "msg_1" {
					t.Errorf("message not populated: %+v", ev.Message)
				}
				if ev.Message.CorrelationID != "tmp_abc" {
					t.Errorf("correlation id not carried: %+v", ev.Message)
				}
			},
		},
		{
			name:   "card draw",
			record: `data: {"type":"card_draw","cards":[{"id":"tower","name":"The Tower","orientation":"reversed"},{"id":"star","name":"The Star","orientation":"upright"}]}`,
			want:   EventCardDraw,
			check: func(t *testing.T, ev Event) {
				if len(ev.Cards) != 2 {
					t.Fatalf("got %d cards, want 2", len(ev.Cards))
				}
				if !ev.Cards[0].IsReversed() {
					t.Error("first card should be reversed")
				}
				if ev.Cards[1].Position != model.OrientationUpright {
					t.Error("second card should be upright")
				}
			},
		},
		{
			name:   "content start",
			record: `data: {"type":"content_start"}`,
			want:   EventContentStart,
		},
		{
			name:   "content chunk",
			record: `data: {"type":"content_chunk","content":"The Tower speaks of"}`,
			want:   EventContentChunk,
			check: func(t *testing.T, ev Event) {
				if ev.Content != "The Tower speaks of" {
					t.Errorf("content = %q", ev.Content)
				}
			},
		},
		{
			name:   "assistant message",
			record: `data: {"type":"assistant_message","message":{"id":"msg_2","role":"assistant","content":"full reading"}}`,
			want:   EventAssistantMessage,
		},
		{
			name:   "error event",
			record: `data: {"type":"error","detail":"reading interrupted"}`,
			want:   EventError,
			check: func(t *testing.T, ev Event) {
				if ev.Detail != "reading interrupted" {
					t.Errorf("detail = %q", ev.Detail)
				}
			},
		},
		{
			name:   "unknown kind parses",
			record: `data: {"type":"moon_phase","content":"waxing"}`,
			want:   EventKind("moon_phase"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.record))
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}
			if ev.Kind != tt.want {
				t.Errorf("kind = %q, want %q", ev.Kind, tt.want)
			}
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}

func TestParseEventMalformed(t *testing.T) {
	tests := []struct {
		name   string
		record string
	}{
		{"truncated json", `data: {"type":"content_chunk","content":"unterminat`},
		{"not json", `data: <html>502 bad gateway</html>`},
		{"missing type", `data: {"content":"orphan"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tt.record)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestParseEventNoPayload(t *testing.T) {
	records := []string{
		"event: ping",
		": keepalive comment",
		"id: 42\nretry: 1000",
	}
	for _, rec := range records {
		if _, err := ParseEvent([]byte(rec)); !errors.Is(err, ErrNoPayload) {
			t.Errorf("ParseEvent(%q): got %v, want ErrNoPayload", rec, err)
		}
	}
}

func TestParseEventMultipleDataLines(t *testing.T) {
	// Per SSE, consecutive data lines join with a newline. JSON spread
	// across lines must still parse.
	record := "data: {\"type\":\"content_chunk\",\ndata: \"content\":\"split\"}"
	ev, err := ParseEvent([]byte(record))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Kind != EventContentChunk || ev.Content != "split" {
		t.Errorf("got %+v", ev)
	}
}

func TestParseEventCRLines(t *testing.T) {
	record := "event: message\r\ndata: {\"type\":\"content_chunk\",\"content\":\"crlf\"}\r"
	ev, err := ParseEvent([]byte(record))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Content != "crlf" {
		t.Errorf("content = %q", ev.Content)
	}
}
