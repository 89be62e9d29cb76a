// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/model"
)

// fakeBackend scripts per-send outcomes for the turn service.
type fakeBackend struct {
	mu sync.Mutex

	// sends records (sessionID, correlationID) per attempt.
	sends []string

	// script is consumed one entry per SendMessage call.
	script []sendOutcome

	createErr  error
	created    int
	quotaCalls int
	quotaErr   error
}

type sendOutcome struct {
	openErr   error
	events    []api.Event
	streamErr error
}

func (f *fakeBackend) SendMessage(ctx context.Context, sessionID, content, correlationID string) (<-chan api.Event, <-chan error, error) {
	f.mu.Lock()
	f.sends = append(f.sends, sessionID)
	if len(f.script) == 0 {
		f.mu.Unlock()
		return nil, nil, errors.New("fakeBackend: script exhausted")
	}
	out := f.script[0]
	f.script = f.script[1:]
	f.mu.Unlock()

	if out.openErr != nil {
		return nil, nil, out.openErr
	}

	events := make(chan api.Event, len(out.events))
	errc := make(chan error, 1)
	for _, ev := range out.events {
		events <- ev
	}
	close(events)
	if out.streamErr != nil {
		errc <- out.streamErr
	}
	close(errc)
	return events, errc, nil
}

func (f *fakeBackend) CreateSession(ctx context.Context, title string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Session{}, f.createErr
	}
	f.created++
	return model.Session{ID: "fresh_session"}, nil
}

func (f *fakeBackend) Quota(ctx context.Context) (model.Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotaCalls++
	if f.quotaErr != nil {
		return model.Quota{}, f.quotaErr
	}
	return model.Quota{TurnsUsed: 3, TurnsLimit: 10}, nil
}

func echoFor(content string) []api.Event {
	return []api.Event{
		{Kind: api.EventUserMessage, Message: &model.Message{ID: "m1", Role: model.RoleUser, Content: content}},
		{Kind: api.EventAssistantMessage, Message: &model.Message{ID: "m2", Role: model.RoleAssistant, Content: "a reading"}},
	}
}

func TestSendHappyPath(t *testing.T) {
	fb := &fakeBackend{script: []sendOutcome{{events: echoFor("hello")}}}
	svc := NewService(fb)
	st := NewState("s1")

	if err := svc.Send(context.Background(), st, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(st.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(st.Messages))
	}
	if st.Messages[0].IsPlaceholder() {
		t.Error("placeholder left dangling after clean turn")
	}
	if fb.quotaCalls != 0 {
		t.Errorf("quota refreshed %d times for a cardless turn, want 0", fb.quotaCalls)
	}
}

func TestSendTransportFailureDiscardsPlaceholder(t *testing.T) {
	fb := &fakeBackend{script: []sendOutcome{{openErr: errors.New("connection refused")}}}
	svc := NewService(fb)
	st := NewState("s1")

	if err := svc.Send(context.Background(), st, "hello"); err == nil {
		t.Fatal("expected error")
	}
	if len(st.Messages) != 0 {
		t.Errorf("placeholder survived transport failure: %v", st.Messages)
	}
}

func TestSendNoEchoDiscardsPlaceholder(t *testing.T) {
	// A stream that concludes cleanly but never echoes the user message
	// must still reach a terminal phase for the placeholder.
	fb := &fakeBackend{script: []sendOutcome{{events: []api.Event{
		{Kind: api.EventAssistantMessage, Message: &model.Message{ID: "m2", Role: model.RoleAssistant, Content: "a reading"}},
	}}}}
	svc := NewService(fb)
	st := NewState("s1")

	if err := svc.Send(context.Background(), st, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(st.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(st.Messages))
	}
	if st.Messages[0].Role != model.RoleAssistant {
		t.Errorf("remaining message role = %s, want assistant", st.Messages[0].Role)
	}
	for _, m := range st.Messages {
		if m.IsPlaceholder() {
			t.Error("placeholder left dangling after a turn with no echo")
		}
	}
}

func TestSendMidStreamFailureDiscardsPlaceholder(t *testing.T) {
	fb := &fakeBackend{script: []sendOutcome{{
		events:    []api.Event{{Kind: api.EventContentChunk, Content: "par"}},
		streamErr: errors.New("connection reset"),
	}}}
	svc := NewService(fb)
	st := NewState("s1")

	if err := svc.Send(context.Background(), st, "hello"); err == nil {
		t.Fatal("expected error")
	}
	if len(st.Messages) != 0 {
		t.Errorf("placeholder survived mid-stream failure: %v", st.Messages)
	}
}

func TestSend404CreatesSessionAndResendsOnce(t *testing.T) {
	fb := &fakeBackend{script: []sendOutcome{
		{openErr: api.ErrSessionNotFound},
		{events: echoFor("hello")},
	}}
	svc := NewService(fb)
	st := NewState("stale_session")

	if err := svc.Send(context.Background(), st, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if fb.created != 1 {
		t.Errorf("created %d sessions, want 1", fb.created)
	}
	if st.SessionID != "fresh_session" {
		t.Errorf("state session = %q, want fresh_session", st.SessionID)
	}
	if len(fb.sends) != 2 || fb.sends[0] != "stale_session" || fb.sends[1] != "fresh_session" {
		t.Errorf("sends = %v", fb.sends)
	}
}

func TestSend404SecondFailureSurfaces(t *testing.T) {
	// The resend is attempted once, not in a loop.
	fb := &fakeBackend{script: []sendOutcome{
		{openErr: api.ErrSessionNotFound},
		{openErr: api.ErrSessionNotFound},
	}}
	svc := NewService(fb)
	st := NewState("stale_session")

	err := svc.Send(context.Background(), st, "hello")
	if !errors.Is(err, api.ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
	if len(fb.sends) != 2 {
		t.Errorf("send attempts = %d, want exactly 2", len(fb.sends))
	}
	if len(st.Messages) != 0 {
		t.Error("placeholder survived the failed retry")
	}
}

func TestQuotaRefreshExactlyOnceOnSuccess(t *testing.T) {
	fb := &fakeBackend{script: []sendOutcome{{events: []api.Event{
		{Kind: api.EventUserMessage, Message: &model.Message{ID: "m1", Role: model.RoleUser}},
		{Kind: api.EventCardDraw, Cards: []model.Card{{ID: "sun", Name: "The Sun"}}},
		{Kind: api.EventAssistantMessage, Message: &model.Message{ID: "m2", Role: model.RoleAssistant}},
	}}}}

	var got model.Quota
	svc := NewService(fb).WithQuotaHandler(func(q model.Quota) { got = q })
	st := NewState("s1")

	if err := svc.Send(context.Background(), st, "draw for me"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if fb.quotaCalls != 1 {
		t.Errorf("quota refreshed %d times, want exactly 1", fb.quotaCalls)
	}
	if got.TurnsUsed != 3 {
		t.Errorf("quota handler got %+v", got)
	}
}

func TestQuotaRefreshExactlyOnceOnCardDrawThenError(t *testing.T) {
	// Cards were drawn, then the turn failed: the draw still consumed a
	// turn, so the refresh fires on the failure path too.
	fb := &fakeBackend{script: []sendOutcome{{events: []api.Event{
		{Kind: api.EventCardDraw, Cards: []model.Card{{ID: "tower", Name: "The Tower"}}},
		{Kind: api.EventError, Detail: "reader unavailable"},
	}}}}
	svc := NewService(fb)
	st := NewState("s1")

	err := svc.Send(context.Background(), st, "draw for me")
	if !errors.Is(err, ErrTurnFailed) {
		t.Fatalf("got %v, want ErrTurnFailed", err)
	}
	if fb.quotaCalls != 1 {
		t.Errorf("quota refreshed %d times, want exactly 1", fb.quotaCalls)
	}
	if len(st.Messages) != 0 {
		t.Error("placeholder survived the failed turn")
	}
}

func TestNoQuotaRefreshWithoutCardDraw(t *testing.T) {
	fb := &fakeBackend{script: []sendOutcome{{events: []api.Event{
		{Kind: api.EventError, Detail: "nope"},
	}}}}
	svc := NewService(fb)
	st := NewState("s1")

	_ = svc.Send(context.Background(), st, "hello")
	if fb.quotaCalls != 0 {
		t.Errorf("quota refreshed %d times for a cardless turn, want 0", fb.quotaCalls)
	}
}

func TestSendRejectsConcurrentTurn(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})

	fb := &fakeBackend{}
	svc := NewService(fb)

	// Hold a turn open by blocking inside the event handler.
	svc.WithEventHandler(func(*State) {
		close(started)
		<-proceed
	})
	fb.script = []sendOutcome{
		{events: []api.Event{{Kind: api.EventContentStart}}},
		{events: echoFor("second")},
	}

	st := NewState("s1")
	done := make(chan error, 1)
	go func() { done <- svc.Send(context.Background(), st, "first") }()

	<-started
	if err := svc.Send(context.Background(), NewState("s2"), "second"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("got %v, want ErrTurnInFlight", err)
	}
	close(proceed)
	if err := <-done; err != nil {
		t.Fatalf("first turn: %v", err)
	}
}
