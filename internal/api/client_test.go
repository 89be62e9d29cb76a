// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeranaias/arcana-tui/internal/auth"
)

// testClient builds a client against an httptest server with a fast send
// limiter so streaming tests don't wait.
func testClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL).WithSendRate(6000)
	c.SetTokens(auth.Tokens{Access: "acc-1", Refresh: "ref-1"})
	return c
}

func TestLoginInstallsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Email != "seer@example.com" || req.OTP != "123456" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(tokenResponse{Access: "new-acc", Refresh: "new-ref", ExpiresIn: 900})
	}))
	defer srv.Close()

	var persisted auth.Tokens
	c := NewClient(srv.URL).WithTokenHandler(func(t auth.Tokens) { persisted = t })

	got, err := c.Login(context.Background(), LoginRequest{Email: "seer@example.com", Password: "pw", OTP: "123456"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.Access != "new-acc" {
		t.Errorf("access = %q", got.Access)
	}
	if persisted.Access != "new-acc" || persisted.Refresh != "new-ref" {
		t.Errorf("token handler not invoked with new pair: %+v", persisted)
	}
	if persisted.ExpiresAt.IsZero() {
		t.Error("expires_in not applied")
	}
	if !c.IsAuthenticated() {
		t.Error("client not authenticated after login")
	}
}

func TestRefreshAndReplayOn401(t *testing.T) {
	var profileCalls, refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/profile/":
			n := profileCalls.Add(1)
			if n == 1 {
				// Stale token on the first attempt.
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if got := r.Header.Get("Authorization"); got != "Bearer fresh-acc" {
				t.Errorf("replay used stale token: %q", got)
			}
			fmt.Fprint(w, `{"id":"u1","email":"seer@example.com"}`)
		case "/auth/refresh/":
			refreshCalls.Add(1)
			json.NewEncoder(w).Encode(tokenResponse{Access: "fresh-acc", Refresh: "fresh-ref"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testClient(srv)
	p, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ID != "u1" {
		t.Errorf("profile = %+v", p)
	}
	if refreshCalls.Load() != 1 {
		t.Errorf("refresh called %d times, want 1", refreshCalls.Load())
	}
	if profileCalls.Load() != 2 {
		t.Errorf("profile called %d times, want 2 (original + replay)", profileCalls.Load())
	}
}

func TestSecond401InvokesExpiryHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh/" {
			// Refresh nominally succeeds but the new token is also bad.
			json.NewEncoder(w).Encode(tokenResponse{Access: "still-bad", Refresh: "r2"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	expired := false
	c := testClient(srv).WithSessionExpiredHandler(func() { expired = true })

	_, err := c.Profile(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if !expired {
		t.Error("session expiry handler not invoked")
	}
	if c.IsAuthenticated() {
		t.Error("tokens not cleared after expiry")
	}
}

func TestRejectedRefreshInvokesExpiryHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	expired := false
	c := testClient(srv).WithSessionExpiredHandler(func() { expired = true })

	_, err := c.Profile(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if !expired {
		t.Error("session expiry handler not invoked")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"quota", http.StatusPaymentRequired, `{"error":{"code":"quota","message":"no turns left"}}`, ErrQuotaExhausted},
		{"rate limit", http.StatusTooManyRequests, `{"detail":"slow down"}`, ErrRateLimited},
		{"not found", http.StatusNotFound, `{"detail":"gone"}`, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := testClient(srv)
			_, err := c.Quota(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeleteSessionMaps404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"no such session"}`)
	}))
	defer srv.Close()

	c := testClient(srv)
	err := c.DeleteSession(context.Background(), "sess_missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestUnauthenticatedRequestFailsFast(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.ListSessions(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
}

func TestRetryOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"sessions":[]}`)
	}))
	defer srv.Close()

	c := testClient(srv)
	if _, err := c.ListSessions(context.Background()); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

// =============================================================================
// STREAMING SEND
// =============================================================================

func sseHandler(t *testing.T, records []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode send body: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer is not a flusher")
		}
		for _, rec := range records {
			fmt.Fprint(w, rec)
			fl.Flush()
		}
	}
}

func collectEvents(t *testing.T, events <-chan Event, errc <-chan error) ([]Event, error) {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	select {
	case err := <-errc:
		return out, err
	case <-time.After(time.Second):
		t.Fatal("error channel never closed")
		return nil, nil
	}
}

func TestSendMessageStream(t *testing.T) {
	records := []string{
		"data: {\"type\":\"user_message\",\"message\":{\"id\":\"m1\",\"role\":\"user\",\"content\":\"hi\",\"correlation_id\":\"tmp_x\"}}\n\n",
		"data: {\"type\":\"card_draw\",\"cards\":[{\"id\":\"sun\",\"name\":\"The Sun\"}]}\n\n",
		"data: {\"type\":\"content_start\"}\n\n",
		"data: not json at all\n\n", // malformed, must be skipped
		"data: {\"type\":\"content_chunk\",\"content\":\"Warmth \"}\n\n",
		"data: {\"type\":\"content_chunk\",\"content\":\"returns.\"}\n\n",
		"data: {\"type\":\"assistant_message\",\"message\":{\"id\":\"m2\",\"role\":\"assistant\",\"content\":\"Warmth returns.\"}}\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, records))
	defer srv.Close()

	c := testClient(srv)
	events, errc, err := c.SendMessage(context.Background(), "sess_1", "hi", "tmp_x")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	got, streamErr := collectEvents(t, events, errc)
	if streamErr != nil {
		t.Fatalf("stream error: %v", streamErr)
	}

	wantKinds := []EventKind{
		EventUserMessage, EventCardDraw, EventContentStart,
		EventContentChunk, EventContentChunk, EventAssistantMessage,
	}
	if len(got) != len(wantKinds) {
		t.Fatalf("got %d events, want %d (malformed record must be skipped)", len(got), len(wantKinds))
	}
	for i, k := range wantKinds {
		if got[i].Kind != k {
			t.Errorf("event %d kind = %q, want %q", i, got[i].Kind, k)
		}
	}
	if got[0].Message.CorrelationID != "tmp_x" {
		t.Errorf("echo lost correlation id: %+v", got[0].Message)
	}
}

func TestSendMessage404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv)
	_, _, err := c.SendMessage(context.Background(), "sess_gone", "hi", "tmp_1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestSendMessageRefreshReplay(t *testing.T) {
	var sends atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh/" {
			json.NewEncoder(w).Encode(tokenResponse{Access: "fresh", Refresh: "r2"})
			return
		}
		if sends.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"content_start\"}\n\n")
	}))
	defer srv.Close()

	c := testClient(srv)
	events, errc, err := c.SendMessage(context.Background(), "s1", "hi", "tmp_2")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	got, streamErr := collectEvents(t, events, errc)
	if streamErr != nil {
		t.Fatalf("stream error: %v", streamErr)
	}
	if len(got) != 1 || got[0].Kind != EventContentStart {
		t.Errorf("events = %+v", got)
	}
	if sends.Load() != 2 {
		t.Errorf("send attempted %d times, want 2", sends.Load())
	}
}

func TestSendMessageCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"content_start\"}\n\n")
		fl.Flush()
		<-release // hold the stream open
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := testClient(srv)
	events, errc, err := c.SendMessage(ctx, "s1", "hi", "tmp_3")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	<-events // first event arrives
	cancel()

	for range events {
	}
	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled or nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not terminate after cancel")
	}
}
