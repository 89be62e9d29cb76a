// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"testing"
	"time"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/chat"
	"github.com/jeranaias/arcana-tui/internal/config"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/session"
	chatui "github.com/jeranaias/arcana-tui/internal/ui/chat"
	"github.com/jeranaias/arcana-tui/internal/ui/styles"
)

func newTestApp() *App {
	return New(Deps{
		Config: config.Default(),
		Client: api.NewClient("http://127.0.0.1:1"),
		Svc:    chat.NewService(nil),
		Idle:   session.NewManager(session.DefaultConfig()),
	})
}

func TestTurnMessagesReachReadingViewFromOtherViews(t *testing.T) {
	a := newTestApp()
	a.chat = chatui.New(styles.NewTheme(), a.deps.Svc, nil, model.Session{ID: "s1"})
	a.view = viewJournal

	snap := chatui.Snapshot{
		SessionID: "s1",
		Messages:  []*model.Message{{ID: "m1", Role: model.RoleUser, Content: "what lies ahead?"}},
	}

	updated, _ := a.Update(chatui.TurnEventMsg{Snapshot: snap})
	app := updated.(*App)

	if app.view != viewJournal {
		t.Errorf("view = %v, want journal to stay active", app.view)
	}
	got := app.chat.Snapshot()
	if len(got.Messages) != 1 || got.Messages[0].Content != "what lies ahead?" {
		t.Errorf("reading view missed the turn event: %+v", got)
	}

	// A turn concluding off-screen must still settle the reading view, or
	// its composer stays locked on return.
	done := chatui.Snapshot{
		SessionID: "s1",
		Messages: []*model.Message{
			{ID: "m1", Role: model.RoleUser, Content: "what lies ahead?"},
			{ID: "m2", Role: model.RoleAssistant, Content: "The cards are clear."},
		},
	}
	updated, _ = app.Update(chatui.TurnDoneMsg{Snapshot: done})
	app = updated.(*App)

	if app.chat.InFlight() {
		t.Error("reading view still in flight after turn concluded off-screen")
	}
	if got := app.chat.Snapshot(); len(got.Messages) != 2 {
		t.Errorf("turn outcome not folded in: %d messages", len(got.Messages))
	}
}

func TestConfigReloadApplies(t *testing.T) {
	a := newTestApp()

	fresh := config.Default()
	fresh.Auth.IdleTimeoutSecs = 600
	a.deps.Idle.RecordActivity()

	updated, _ := a.Update(ConfigReloadedMsg{Config: fresh})
	app := updated.(*App)

	if app.deps.Config != fresh {
		t.Error("reloaded config not adopted")
	}
	remaining := app.deps.Idle.RemainingTime()
	if remaining > 10*time.Minute || remaining < 9*time.Minute {
		t.Errorf("idle timeout not applied: remaining = %v", remaining)
	}
}
