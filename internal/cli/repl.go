// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/auth"
	"github.com/jeranaias/arcana-tui/internal/chat"
	"github.com/jeranaias/arcana-tui/internal/config"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/storage"
)

// =============================================================================
// REPL
// =============================================================================

// REPL is the plain-mode interactive loop. Input history lives next to the
// config file and survives restarts.
type REPL struct {
	cfg    *config.Config
	client *api.Client
	cache  *storage.Cache
	store  *auth.TokenStore
	svc    *chat.Service

	line        *liner.State
	historyFile string

	state   *chat.State
	session model.Session
	quota   *model.Quota

	// Per-turn print tracking.
	printedStream int
	printedCards  int
	printedFinal  bool
}

// New creates the REPL and loads input history.
func New(cfg *config.Config, client *api.Client, cache *storage.Cache, store *auth.TokenStore) *REPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}

	r := &REPL{
		cfg:         cfg,
		client:      client,
		cache:       cache,
		store:       store,
		line:        line,
		historyFile: filepath.Join(dir, "history"),
	}
	r.svc = chat.NewService(client).
		WithQuotaHandler(func(q model.Quota) { r.quota = &q }).
		WithEventHandler(r.printEvent)

	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Close persists history and releases the terminal.
func (r *REPL) Close() {
	if err := config.EnsureDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// Run is the top-level loop: authenticate, choose a session, read turns.
func (r *REPL) Run(ctx context.Context) error {
	if !r.client.IsAuthenticated() {
		if err := r.login(ctx); err != nil {
			if errors.Is(err, errOffline) {
				return r.runOffline()
			}
			return err
		}
	}

	if q, err := r.client.Quota(ctx); err == nil {
		r.quota = &q
	}

	if err := r.chooseSession(ctx); err != nil {
		return err
	}

	fmt.Println("Type your question, or /help for commands.")
	for {
		input, err := r.line.Prompt("arcana> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("(use /quit to exit)")
				continue
			}
			return nil // EOF
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			quit, err := r.dispatch(ctx, input)
			if err != nil {
				fmt.Println("error:", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.sendTurn(ctx, input); err != nil {
			fmt.Println("error:", err)
		}
	}
}

// =============================================================================
// TURNS
// =============================================================================

// sendTurn runs one reading turn, printing the stream as it arrives.
func (r *REPL) sendTurn(ctx context.Context, content string) error {
	if r.quota != nil && r.quota.Exhausted() {
		return errors.New("your readings for this period are used up; see /account")
	}

	r.printedStream = 0
	r.printedCards = 0
	r.printedFinal = false

	err := r.svc.Send(ctx, r.state, content)
	if r.printedStream > 0 || r.printedFinal {
		fmt.Println()
	}

	switch {
	case err == nil:
		r.session.ID = r.state.SessionID
		r.cacheTranscript()
		return nil
	case errors.Is(err, api.ErrQuotaExhausted):
		return errors.New("quota exhausted; upgrade your plan to continue")
	case errors.Is(err, api.ErrUnauthorized):
		return errors.New("session expired; restart and sign in again")
	default:
		return err
	}
}

// printEvent renders stream progress. It runs synchronously inside Send, so
// plain printing is safe here.
func (r *REPL) printEvent(st *chat.State) {
	if len(st.Cards) > r.printedCards {
		for _, c := range st.Cards[r.printedCards:] {
			fmt.Println("  ✦", c.DisplayName())
		}
		fmt.Println()
		r.printedCards = len(st.Cards)
	}

	if st.StreamingActive {
		content := st.StreamingContent()
		if len(content) > r.printedStream {
			fmt.Print(content[r.printedStream:])
			r.printedStream = len(content)
		}
		return
	}

	// Finalized reply. Chunked servers have already printed everything; a
	// server that skips content events gets its reply printed whole.
	if last := st.LastMessage(); last != nil && last.Role == model.RoleAssistant && !r.printedFinal {
		if r.printedStream == 0 {
			fmt.Print(last.Content)
		}
		r.printedFinal = true
	}
}

// cacheTranscript mirrors the session into the local cache for offline use.
func (r *REPL) cacheTranscript() {
	if r.cache == nil {
		return
	}
	_ = r.cache.UpsertSession(r.session)
	_ = r.cache.SaveMessages(r.state.SessionID, r.state.Messages)
}

// =============================================================================
// OFFLINE MODE
// =============================================================================

// errOffline marks a login failure caused by an unreachable server.
var errOffline = errors.New("server unreachable")

// runOffline browses cached sessions read-only.
func (r *REPL) runOffline() error {
	if r.cache == nil {
		return errors.New("server unreachable and no local cache available")
	}

	sessions, err := r.cache.ListSessions()
	if err != nil || len(sessions) == 0 {
		return errors.New("server unreachable and nothing cached yet")
	}

	fmt.Println("Server unreachable; showing cached readings (read-only).")
	for {
		for i, s := range sessions {
			fmt.Printf("  %d. %s\n", i+1, s.GetTitle())
		}
		input, err := r.line.Prompt("view (number, or q)> ")
		if err != nil || strings.TrimSpace(input) == "q" {
			return nil
		}
		idx := parseIndex(input, len(sessions))
		if idx < 0 {
			fmt.Println("pick a number from the list")
			continue
		}

		msgs, err := r.cache.Messages(sessions[idx].ID)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		printTranscript(msgs)
	}
}

// printTranscript renders a cached conversation.
func printTranscript(msgs []*model.Message) {
	for _, m := range msgs {
		fmt.Printf("\n[%s]\n", m.Role.DisplayName())
		for _, c := range m.Cards {
			fmt.Println("  ✦", c.DisplayName())
		}
		fmt.Println(m.Content)
	}
	fmt.Println()
}
