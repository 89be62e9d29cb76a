// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// TURN SERVICE
// =============================================================================

var (
	// ErrTurnInFlight indicates a send was attempted while a reading is
	// still streaming. The UI disables submit, so hitting this means a
	// caller bypassed it.
	ErrTurnInFlight = errors.New("a reading is already in progress")

	// ErrTurnFailed indicates the server reported a turn failure through
	// the event stream. State.TurnDetail carries the text.
	ErrTurnFailed = errors.New("reading failed")
)

// Backend is the slice of the API client the turn service needs.
type Backend interface {
	SendMessage(ctx context.Context, sessionID, content, correlationID string) (<-chan api.Event, <-chan error, error)
	CreateSession(ctx context.Context, title string) (model.Session, error)
	Quota(ctx context.Context) (model.Quota, error)
}

// QuotaHandler receives the refreshed quota after card-consuming turns.
type QuotaHandler func(model.Quota)

// EventHandler fires after each event is folded into state so the UI can
// redraw. It runs on the turn's goroutine.
type EventHandler func(*State)

// Service runs reading turns against a session. One turn may be in flight
// at a time; Send from a second goroutine fails with ErrTurnInFlight.
type Service struct {
	backend Backend

	mu       sync.Mutex
	inFlight bool

	onQuota QuotaHandler
	onEvent EventHandler
}

// NewService creates a turn service over a backend.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// WithQuotaHandler registers the quota refresh notification.
func (s *Service) WithQuotaHandler(h QuotaHandler) *Service {
	s.mu.Lock()
	s.onQuota = h
	s.mu.Unlock()
	return s
}

// WithEventHandler registers the per-event redraw hook. Safe to call
// between turns; the handler a turn uses is captured when it starts, so a
// goroutine still draining a cancelled turn never observes the swap.
func (s *Service) WithEventHandler(h EventHandler) *Service {
	s.mu.Lock()
	s.onEvent = h
	s.mu.Unlock()
	return s
}

func (s *Service) handlers() (EventHandler, QuotaHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onEvent, s.onQuota
}

// InFlight reports whether a turn is currently streaming.
func (s *Service) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Service) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *Service) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// Send runs one full reading turn: the content is shown immediately as a
// placeholder, the server stream is folded into st, and the placeholder ends
// the turn either confirmed or discarded.
//
// If the session has been deleted server-side (404), a fresh session is
// created silently and the same content is resent once; a second failure
// surfaces. If the turn drew cards, the quota is refreshed exactly once
// after the turn concludes, whether it succeeded or failed.
func (s *Service) Send(ctx context.Context, st *State, content string) error {
	if !s.acquire() {
		return ErrTurnInFlight
	}
	defer s.release()

	onEvent, _ := s.handlers()

	placeholder := model.NewPlaceholder(st.SessionID, content)
	st.beginTurn(placeholder)

	// Exactly one quota refresh per card-consuming turn, on every path
	// out of this function.
	defer func() {
		if !st.cardDrawn {
			return
		}
		st.cardDrawn = false
		s.refreshQuota(ctx)
	}()

	events, errc, err := s.backend.SendMessage(ctx, st.SessionID, content, placeholder.CorrelationID)
	if errors.Is(err, api.ErrSessionNotFound) {
		events, errc, err = s.resendInNewSession(ctx, st, placeholder, content)
	}
	if err != nil {
		st.discardPlaceholder()
		return err
	}

	for ev := range events {
		st.Apply(ev)
		if onEvent != nil {
			onEvent(st)
		}
	}

	if streamErr := <-errc; streamErr != nil {
		st.discardPlaceholder()
		st.reconciler.Reset()
		return fmt.Errorf("stream interrupted: %w", streamErr)
	}

	if st.TurnFailed() {
		st.discardPlaceholder()
		st.reconciler.Reset()
		return fmt.Errorf("%w: %s", ErrTurnFailed, st.TurnDetail)
	}

	// Clean completion. A stream that ended without echoing the user
	// message discards the placeholder; a terminal phase is always
	// reached, never a dangling local message.
	st.discardPlaceholder()
	st.reconciler.Reset()
	return nil
}

// resendInNewSession handles the deleted-session path: create a replacement
// session and retry the send once. The placeholder moves to the new session.
func (s *Service) resendInNewSession(ctx context.Context, st *State, placeholder *model.Message, content string) (<-chan api.Event, <-chan error, error) {
	log.Printf("session %s gone, creating replacement", st.SessionID)

	sess, err := s.backend.CreateSession(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create replacement session: %w", err)
	}
	st.SessionID = sess.ID
	placeholder.SessionID = sess.ID

	return s.backend.SendMessage(ctx, sess.ID, content, placeholder.CorrelationID)
}

// refreshQuota fetches the post-turn quota. Failures are logged, not
// surfaced; a stale quota display never blocks the next reading. The refresh
// survives turn cancellation, since the card draw already consumed a turn.
func (s *Service) refreshQuota(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	q, err := s.backend.Quota(ctx)
	if err != nil {
		log.Printf("quota refresh failed: %v", err)
		return
	}
	if _, onQuota := s.handlers(); onQuota != nil {
		onQuota(q)
	}
}
