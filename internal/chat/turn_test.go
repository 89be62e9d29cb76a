// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	"github.com/jeranaias/arcana-tui/internal/model"
)

func TestReconcilerConfirmByCorrelationID(t *testing.T) {
	r := &Reconciler{}
	ph := model.NewPlaceholder("s1", "hello")
	messages := []*model.Message{ph}
	r.Begin(ph)

	echo := &model.Message{ID: "msg_1", Role: model.RoleUser, Content: "hello", CorrelationID: ph.CorrelationID}
	messages, replaced := r.Confirm(messages, echo)

	if !replaced {
		t.Fatal("echo did not replace placeholder")
	}
	if len(messages) != 1 {
		t.Fatalf("message count = %d, want 1 (replacement, not append)", len(messages))
	}
	if messages[0].ID != "msg_1" {
		t.Errorf("message ID = %q, want server ID", messages[0].ID)
	}
	if messages[0].IsPlaceholder() {
		t.Error("confirmed message still looks like a placeholder")
	}
	if r.Phase() != PhaseConfirmed {
		t.Errorf("phase = %v, want confirmed", r.Phase())
	}
}

func TestReconcilerConfirmFallbackMostRecent(t *testing.T) {
	r := &Reconciler{}
	old := &model.Message{ID: "msg_old", Role: model.RoleUser, Content: "earlier"}
	ph := model.NewPlaceholder("s1", "newest")
	messages := []*model.Message{old, ph}
	r.Begin(ph)

	// Older server: no correlation ID on the echo.
	echo := &model.Message{ID: "msg_2", Role: model.RoleUser, Content: "newest"}
	messages, replaced := r.Confirm(messages, echo)

	if !replaced {
		t.Fatal("fallback matching did not replace placeholder")
	}
	if messages[0].ID != "msg_old" {
		t.Error("wrong message replaced")
	}
	if messages[1].ID != "msg_2" {
		t.Errorf("placeholder position holds %q, want echo", messages[1].ID)
	}
}

func TestReconcilerConfirmPreservesPosition(t *testing.T) {
	r := &Reconciler{}
	ph := model.NewPlaceholder("s1", "mid")
	messages := []*model.Message{
		{ID: "a", Role: model.RoleUser},
		ph,
		{ID: "c", Role: model.RoleAssistant},
	}
	r.Begin(ph)

	echo := &model.Message{ID: "b", Role: model.RoleUser, CorrelationID: ph.CorrelationID}
	messages, _ = r.Confirm(messages, echo)

	gotOrder := []string{messages[0].ID, messages[1].ID, messages[2].ID}
	wantOrder := []string{"a", "b", "c"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestReconcilerConfirmWithoutPendingAppends(t *testing.T) {
	r := &Reconciler{}
	echo := &model.Message{ID: "msg_1", Role: model.RoleUser, Content: "stray echo"}
	messages, replaced := r.Confirm(nil, echo)

	if replaced {
		t.Error("nothing pending, yet Confirm claims a replacement")
	}
	if len(messages) != 1 || messages[0].ID != "msg_1" {
		t.Errorf("stray echo not appended: %v", messages)
	}
}

func TestReconcilerDiscard(t *testing.T) {
	r := &Reconciler{}
	ph := model.NewPlaceholder("s1", "doomed")
	keep := &model.Message{ID: "msg_keep", Role: model.RoleAssistant}
	messages := []*model.Message{keep, ph}
	r.Begin(ph)

	messages = r.Discard(messages)
	if len(messages) != 1 || messages[0].ID != "msg_keep" {
		t.Errorf("discard result = %v", messages)
	}
	if r.Phase() != PhaseDiscarded {
		t.Errorf("phase = %v, want discarded", r.Phase())
	}

	// Terminal phases are disjoint: a discarded turn cannot confirm.
	echo := &model.Message{ID: "late", Role: model.RoleUser, CorrelationID: ph.CorrelationID}
	messages, replaced := r.Confirm(messages, echo)
	if replaced {
		t.Error("discarded turn accepted a confirm")
	}
	if len(messages) != 2 {
		t.Error("late echo should append as a plain message")
	}
}

func TestReconcilerDiscardIdempotent(t *testing.T) {
	r := &Reconciler{}
	ph := model.NewPlaceholder("s1", "x")
	messages := []*model.Message{ph}
	r.Begin(ph)

	messages = r.Discard(messages)
	messages = r.Discard(messages)
	if len(messages) != 0 {
		t.Errorf("messages = %v, want empty", messages)
	}
}

func TestReconcilerResetStartsFresh(t *testing.T) {
	r := &Reconciler{}
	ph1 := model.NewPlaceholder("s1", "one")
	r.Begin(ph1)
	_ = r.Discard([]*model.Message{ph1})
	r.Reset()

	if r.Phase() != PhaseNone {
		t.Errorf("phase after reset = %v", r.Phase())
	}

	ph2 := model.NewPlaceholder("s1", "two")
	messages := []*model.Message{ph2}
	r.Begin(ph2)
	echo := &model.Message{ID: "m2", Role: model.RoleUser, CorrelationID: ph2.CorrelationID}
	if _, replaced := r.Confirm(messages, echo); !replaced {
		t.Error("second turn did not confirm after reset")
	}
}
