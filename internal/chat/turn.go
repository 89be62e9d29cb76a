// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// RECONCILER
// =============================================================================

// Phase is the lifecycle phase of the optimistic placeholder for the current
// turn. The terminal phases are disjoint: a turn either confirms or discards
// its placeholder, never both.
type Phase int

const (
	// PhaseNone means no turn is in flight.
	PhaseNone Phase = iota
	// PhasePending means the placeholder is displayed and awaiting the
	// server's echo.
	PhasePending
	// PhaseConfirmed means the echo replaced the placeholder.
	PhaseConfirmed
	// PhaseDiscarded means the turn failed and the placeholder was removed.
	PhaseDiscarded
)

// String returns a readable phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhasePending:
		return "pending"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Reconciler tracks one turn's placeholder and swaps it for the server's
// authoritative echo. Matching is by correlation ID when the server echoes
// one; older servers that drop the field fall back to most-recent-placeholder
// matching, which is safe because at most one turn is in flight per session.
type Reconciler struct {
	phase         Phase
	placeholderID string
	correlationID string
}

// Phase returns the current turn phase.
func (r *Reconciler) Phase() Phase {
	return r.phase
}

// InFlight reports whether a placeholder is awaiting its echo.
func (r *Reconciler) InFlight() bool {
	return r.phase == PhasePending
}

// Begin registers a freshly appended placeholder. It resets any previous
// terminal state; phases from past turns never leak into the next one.
func (r *Reconciler) Begin(placeholder *model.Message) {
	r.phase = PhasePending
	r.placeholderID = placeholder.ID
	r.correlationID = placeholder.CorrelationID
}

// Confirm replaces the pending placeholder in messages with the server echo,
// in place, preserving position. It returns the updated slice and whether a
// replacement happened. A confirm with no pending placeholder appends the
// echo instead; the server's record is authoritative either way.
func (r *Reconciler) Confirm(messages []*model.Message, echo *model.Message) ([]*model.Message, bool) {
	if r.phase != PhasePending {
		return append(messages, echo), false
	}

	idx := r.findPlaceholder(messages, echo)
	if idx < 0 {
		r.phase = PhaseConfirmed
		return append(messages, echo), false
	}

	messages[idx] = echo
	r.phase = PhaseConfirmed
	return messages, true
}

// Discard removes the pending placeholder from messages. Repeated discards
// and discards with nothing pending are no-ops.
func (r *Reconciler) Discard(messages []*model.Message) []*model.Message {
	if r.phase != PhasePending {
		return messages
	}
	r.phase = PhaseDiscarded

	for i, m := range messages {
		if m.ID == r.placeholderID {
			return append(messages[:i], messages[i+1:]...)
		}
	}
	return messages
}

// Reset clears a terminal phase so the next turn can begin.
func (r *Reconciler) Reset() {
	r.phase = PhaseNone
	r.placeholderID = ""
	r.correlationID = ""
}

// findPlaceholder locates the placeholder the echo corresponds to.
func (r *Reconciler) findPlaceholder(messages []*model.Message, echo *model.Message) int {
	// Exact correlation match first.
	if echo.CorrelationID != "" && echo.CorrelationID == r.correlationID {
		for i, m := range messages {
			if m.ID == r.placeholderID {
				return i
			}
		}
		return -1
	}

	// Fallback for servers that do not echo the correlation ID: the most
	// recent placeholder is this turn's, since sends are serialized.
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsPlaceholder() {
			return i
		}
	}
	return -1
}
