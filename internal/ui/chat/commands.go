// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file bridges the turn goroutine into the Bubble Tea loop and
// implements the slash-command registry for the composer.

package chatui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arcana-tui/internal/chat"
	"github.com/jeranaias/arcana-tui/internal/export"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/util"
)

// =============================================================================
// TURN BRIDGE
// =============================================================================

// turnChanBuffer sizes the bridge channel. Discrete events are rare (a
// typical turn produces three), so a small buffer keeps the turn goroutine
// from blocking on a busy render loop.
const turnChanBuffer = 8

// TurnBridge carries a running turn's output into the Bubble Tea loop.
// Discrete events (user echo, card draw, finalized reply) arrive as
// snapshots on the events channel; content chunks are batched through the
// StreamingBuffer and drained on stream ticks.
type TurnBridge struct {
	events chan tea.Msg
	buf    *StreamingBuffer

	// Tracked on the turn goroutine only.
	prevMsgs   int
	prevCards  int
	prevStream int
}

// NewTurnBridge creates a bridge for one turn.
func NewTurnBridge() *TurnBridge {
	return &TurnBridge{
		events: make(chan tea.Msg, turnChanBuffer),
		buf:    NewStreamingBuffer(),
	}
}

// OnEvent is the chat.EventHandler for the bridge. It runs on the turn
// goroutine after each stream event is folded into state. Chunk events only
// grow the streaming buffer; anything structural produces a full snapshot.
func (b *TurnBridge) OnEvent(st *chat.State) {
	content := st.StreamingContent()

	structural := len(st.Messages) != b.prevMsgs ||
		len(st.Cards) != b.prevCards ||
		!st.StreamingActive

	if !structural {
		if len(content) > b.prevStream {
			b.buf.Write(content[b.prevStream:])
			b.prevStream = len(content)
		}
		return
	}

	b.prevMsgs = len(st.Messages)
	b.prevCards = len(st.Cards)
	b.prevStream = len(content)

	// The snapshot carries the full streaming content, so any chunks still
	// sitting in the buffer are stale.
	b.buf.Reset()
	b.events <- TurnEventMsg{Snapshot: snapshotState(st)}
}

// Run executes the turn on its own goroutine and returns the command that
// listens for its first message. The events channel closes when the turn
// concludes, which surfaces as TurnDoneMsg.
func (b *TurnBridge) Run(ctx context.Context, svc *chat.Service, st *chat.State, content string) tea.Cmd {
	go func() {
		err := svc.Send(ctx, st, content)
		b.events <- TurnDoneMsg{Snapshot: snapshotState(st), Err: err}
		close(b.events)
	}()
	return b.Listen()
}

// Listen returns a command that delivers the bridge's next message. The
// update loop reissues it after every TurnEventMsg.
func (b *TurnBridge) Listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.events
		if !ok {
			return nil
		}
		return msg
	}
}

// =============================================================================
// HISTORY AND SESSION COMMANDS
// =============================================================================

// HistoryBackend is the slice of the API client the reading view needs
// beyond the turn service.
type HistoryBackend interface {
	ListMessages(ctx context.Context, sessionID string) ([]model.Message, error)
	RenameSession(ctx context.Context, id, title string) (model.Session, error)
}

// loadHistoryCmd fetches a session transcript from the server.
func loadHistoryCmd(backend HistoryBackend, sessionID string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := backend.ListMessages(context.Background(), sessionID)
		if err != nil {
			return HistoryLoadedMsg{SessionID: sessionID, Err: err}
		}
		ptrs := make([]*model.Message, len(msgs))
		for i := range msgs {
			ptrs[i] = &msgs[i]
		}
		return HistoryLoadedMsg{SessionID: sessionID, Messages: ptrs}
	}
}

// renameSessionCmd renames the current session.
func renameSessionCmd(backend HistoryBackend, sessionID, title string) tea.Cmd {
	return func() tea.Msg {
		sess, err := backend.RenameSession(context.Background(), sessionID, title)
		if err != nil {
			return SessionRenamedMsg{SessionID: sessionID, Err: err}
		}
		return SessionRenamedMsg{SessionID: sess.ID, Title: sess.Title}
	}
}

// =============================================================================
// SLASH COMMAND REGISTRY
// =============================================================================

// CommandHandler handles one slash command from the composer.
type CommandHandler func(m *Model, args []string) (tea.Model, tea.Cmd)

var commandHandlers = map[string]CommandHandler{
	"help": handleHelpCommand,
	"h":    handleHelpCommand,
	"?":    handleHelpCommand,
	"quit": handleQuitCommand,
	"q":    handleQuitCommand,
	"exit": handleQuitCommand,

	"sessions": handleSessionsCommand,
	"s":        handleSessionsCommand,
	"rename":   handleRenameCommand,
	"journal":  handleJournalCommand,
	"j":        handleJournalCommand,
	"account":  handleAccountCommand,
	"cards":    handleCardsCommand,
	"quota":    handleQuotaCommand,
	"clear":    handleClearCommand,
	"export":   handleExportCommand,
}

// handleCommand dispatches a slash command typed into the composer.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	m.composer.Reset()

	parts := strings.Fields(content)
	if len(parts) == 0 {
		return m, nil
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if handler, ok := commandHandlers[name]; ok {
		return handler(&m, parts[1:])
	}

	m.notice = "Unknown command '" + parts[0] + "'. Type /help for the list."
	return m, nil
}

func handleHelpCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	m.showHelp = !m.showHelp
	return *m, nil
}

func handleQuitCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return *m, tea.Quit
}

func handleSessionsCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return *m, func() tea.Msg { return OpenSessionsMsg{} }
}

func handleJournalCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return *m, func() tea.Msg { return OpenJournalMsg{} }
}

func handleAccountCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return *m, func() tea.Msg { return OpenAccountMsg{} }
}

func handleCardsCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return *m, func() tea.Msg { return OpenCatalogMsg{} }
}

func handleRenameCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		m.notice = "Usage: /rename <new title>"
		return *m, nil
	}
	return *m, renameSessionCmd(m.backend, m.snapshot.SessionID, title)
}

func handleQuotaCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	if m.quota == nil {
		m.notice = "Quota not loaded yet."
		return *m, nil
	}
	if m.quota.Remaining() < 0 {
		m.notice = "Readings remaining: unlimited"
	} else {
		m.notice = "Readings remaining: " + util.IntToString(m.quota.Remaining())
	}
	return *m, nil
}

func handleExportCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(m.snapshot.Messages) == 0 {
		m.notice = "Nothing to export yet."
		return *m, nil
	}

	format := ""
	if len(args) > 0 {
		format = args[0]
	}
	opts := export.DefaultOptions()
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		m.errText = err.Error()
		return *m, nil
	}

	t := &export.Transcript{Session: m.session, Messages: m.snapshot.Messages}
	path, err := export.ExportToFile(t, exporter, opts)
	if err != nil {
		m.errText = "Export failed: " + err.Error()
		return *m, nil
	}
	m.notice = "Exported to " + path
	return *m, nil
}

func handleClearCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	m.state.ClearCards()
	m.snapshot.Cards = nil
	m.refreshViewport()
	return *m, nil
}
