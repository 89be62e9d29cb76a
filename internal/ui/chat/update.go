// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/chat"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages for the reading view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case TurnEventMsg:
		// Snapshot supersedes any flushed chunk text.
		m.snapshot = msg.Snapshot
		m.streamText = msg.Snapshot.Streaming
		m.refreshViewport()
		m.viewport.GotoBottom()
		if m.bridge == nil {
			return m, nil
		}
		return m, m.bridge.Listen()

	case StreamTickMsg:
		if m.bridge != nil {
			if chunk, ok := m.bridge.buf.Flush(); ok {
				m.streamText += chunk
				m.refreshViewport()
				m.viewport.GotoBottom()
			}
		}
		if m.inFlight {
			return m, streamTickCmd()
		}
		return m, nil

	case TurnDoneMsg:
		return m.handleTurnDone(msg)

	case QuotaUpdatedMsg:
		q := msg.Quota
		m.quota = &q
		return m, nil

	case HistoryLoadedMsg:
		return m.handleHistory(msg)

	case SessionRenamedMsg:
		if msg.Err != nil {
			m.errText = "Rename failed: " + msg.Err.Error()
		} else {
			m.session.Title = msg.Title
			m.notice = "Session renamed to \"" + msg.Title + "\"."
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// handleKey routes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case "esc":
		if m.inFlight {
			return m.cancelTurn()
		}
		m.notice = ""
		m.errText = ""
		m.showHelp = false
		return m, nil

	case "enter":
		content := strings.TrimSpace(m.composer.Value())
		if content == "" {
			return m, nil
		}
		if strings.HasPrefix(content, "/") {
			return m.handleCommand(content)
		}
		return m.submit(content)

	case "ctrl+j":
		// Literal newline inside the composer.
		m.composer.InsertString("\n")
		return m, nil

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleTurnDone folds the turn's outcome into the view.
func (m Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	m.inFlight = false
	m.cancel = nil
	m.bridge = nil
	m.snapshot = msg.Snapshot
	m.streamText = ""

	switch {
	case msg.Err == nil:
		// Turn concluded cleanly.

	case errors.Is(msg.Err, context.Canceled):
		// User abort; the discarded placeholder is already gone from the
		// snapshot.

	case errors.Is(msg.Err, api.ErrQuotaExhausted):
		m.errText = "Your readings for this period are used up. See /account for plans."

	case errors.Is(msg.Err, chat.ErrTurnFailed):
		m.errText = "The reading failed: " + m.state.TurnDetail

	case errors.Is(msg.Err, api.ErrUnauthorized):
		m.errText = "Your session has expired. Please sign in again."

	default:
		m.errText = "Connection lost: " + msg.Err.Error()
	}

	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// handleHistory seeds the transcript from a loaded session.
func (m Model) handleHistory(msg HistoryLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.errText = "Could not load history: " + msg.Err.Error()
		return m, nil
	}
	if msg.SessionID != m.snapshot.SessionID {
		return m, nil
	}

	// No turn is running here, so seeding live state is safe.
	m.state.Messages = msg.Messages
	m.snapshot = snapshotState(m.state)
	if msg.FromCache {
		m.notice = "Offline: showing cached transcript."
	}
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}
