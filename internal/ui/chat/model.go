// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/arcana-tui/internal/chat"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// composerHeight is the number of text rows in the composer.
const composerHeight = 3

// Model is the reading view: transcript viewport, card spread, streaming
// reply, and composer.
type Model struct {
	theme   *styles.Theme
	svc     *chat.Service
	state   *chat.State
	backend HistoryBackend
	session model.Session

	viewport viewport.Model
	composer textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	// Render state. snapshot is the last immutable copy received from the
	// turn goroutine; streamText accumulates flushed chunks on top of it.
	snapshot   Snapshot
	streamText string

	bridge   *TurnBridge
	cancel   context.CancelFunc
	inFlight bool

	quota    *model.Quota
	notice   string
	errText  string
	showHelp bool

	width  int
	height int
}

// New creates the reading view for a session.
func New(theme *styles.Theme, svc *chat.Service, backend HistoryBackend, sess model.Session) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask the cards..."
	ta.Prompt = "┃ "
	ta.CharLimit = 4000
	ta.SetHeight(composerHeight)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = theme.Spinner

	st := chat.NewState(sess.ID)

	return Model{
		theme:    theme,
		svc:      svc,
		state:    st,
		backend:  backend,
		session:  sess,
		viewport: viewport.New(0, 0),
		composer: ta,
		spinner:  sp,
		snapshot: Snapshot{SessionID: sess.ID},
	}
}

// Init loads the session transcript.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadHistoryCmd(m.backend, m.snapshot.SessionID),
		m.spinner.Tick,
		textarea.Blink,
	)
}

// SetQuota seeds the quota display from the parent app.
func (m *Model) SetQuota(q model.Quota) {
	m.quota = &q
}

// SessionID returns the session this view is bound to.
func (m Model) SessionID() string {
	return m.snapshot.SessionID
}

// Snapshot returns the last state snapshot folded into the view.
func (m Model) Snapshot() Snapshot {
	return m.snapshot
}

// InFlight reports whether a reading is streaming.
func (m Model) InFlight() bool {
	return m.inFlight
}

// SetSize lays the view out for a new terminal size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	// Header and status lines are drawn by the parent; the composer and its
	// border take composerHeight+1 rows.
	vpHeight := height - composerHeight - 1
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.composer.SetWidth(width - 2)

	wrap := width - 8
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.renderer = renderer
	}
	m.refreshViewport()
}

// submit starts a reading turn with the composer's content.
func (m Model) submit(content string) (Model, tea.Cmd) {
	if m.inFlight {
		m.notice = "A reading is already in progress."
		return m, nil
	}
	if m.quota != nil && m.quota.Exhausted() {
		m.errText = "Your readings for this period are used up. See /account for plans."
		return m, nil
	}

	m.composer.Reset()
	m.notice = ""
	m.errText = ""
	m.streamText = ""
	m.inFlight = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.bridge = NewTurnBridge()
	m.svc.WithEventHandler(m.bridge.OnEvent)

	// The placeholder shows up on the first snapshot, before any network
	// round trip completes.
	runCmd := m.bridge.Run(ctx, m.svc, m.state, content)
	return m, tea.Batch(runCmd, streamTickCmd())
}

// cancelTurn aborts the in-flight reading.
func (m Model) cancelTurn() (Model, tea.Cmd) {
	if !m.inFlight || m.cancel == nil {
		return m, nil
	}
	m.cancel()
	m.notice = "Reading cancelled."
	return m, nil
}
