// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/auth"
	"github.com/jeranaias/arcana-tui/internal/chat"
	"github.com/jeranaias/arcana-tui/internal/config"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/session"
	"github.com/jeranaias/arcana-tui/internal/storage"
	chatui "github.com/jeranaias/arcana-tui/internal/ui/chat"
	"github.com/jeranaias/arcana-tui/internal/ui/styles"
	"github.com/jeranaias/arcana-tui/internal/util"
)

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// view identifies the active screen.
type view int

const (
	viewLogin view = iota
	viewSessions
	viewChat
	viewJournal
	viewAccount
	viewCatalog
)

// appEventBuffer sizes the out-of-loop event channel. Session expiry and
// quota refreshes arrive from turn goroutines and must never block them.
const appEventBuffer = 16

// Deps are the wired dependencies the application runs on. Cache may be nil
// when the local database could not be opened; the app degrades to
// online-only behavior.
type Deps struct {
	Config *config.Config
	Client *api.Client
	Cache  *storage.Cache
	Svc    *chat.Service
	Idle   *session.Manager

	// Store holds encrypted credentials and the optional two-factor
	// secret. May be nil in tests.
	Store *auth.TokenStore
}

// App is the root Bubble Tea model.
type App struct {
	deps  Deps
	theme *styles.Theme

	view     view
	login    loginModel
	sessions sessionsModel
	chat     chatui.Model
	journal  journalModel
	account  accountModel
	catalog  catalogModel

	profile *model.Profile
	quota   *model.Quota

	// events carries messages produced outside the Bubble Tea loop:
	// expired sessions from the 401 interceptor and quota refreshes from
	// the turn goroutine.
	events chan tea.Msg

	idleWarning string

	width  int
	height int
}

// sessionExpiredMsg is injected when the API client gives up on refresh.
type sessionExpiredMsg struct{}

// ConfigReloadedMsg delivers a hot-reloaded configuration from the file
// watcher. Sent from outside the Bubble Tea loop via Program.Send.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// profileLoadedMsg delivers the account profile after login.
type profileLoadedMsg struct {
	Profile model.Profile
	Err     error
}

// quotaLoadedMsg delivers the usage allowance.
type quotaLoadedMsg struct {
	Quota model.Quota
	Err   error
}

// New creates the application model and installs the out-of-loop handlers.
func New(deps Deps) *App {
	a := &App{
		deps:   deps,
		theme:  styles.NewTheme(),
		view:   viewLogin,
		events: make(chan tea.Msg, appEventBuffer),
	}

	deps.Client.WithSessionExpiredHandler(func() {
		a.post(sessionExpiredMsg{})
	})
	deps.Svc.WithQuotaHandler(func(q model.Quota) {
		a.post(chatui.QuotaUpdatedMsg{Quota: q})
	})

	a.login = newLoginModel(a.theme, deps.Client, deps.Store)
	a.sessions = newSessionsModel(a.theme, deps.Client, deps.Cache)
	a.journal = newJournalModel(a.theme, deps.Client, deps.Cache)
	a.account = newAccountModel(a.theme, deps.Client)
	a.catalog = newCatalogModel(a.theme, deps.Client)

	if deps.Client.IsAuthenticated() {
		a.view = viewSessions
	}
	return a
}

// post delivers an out-of-loop message without ever blocking the caller.
func (a *App) post(msg tea.Msg) {
	select {
	case a.events <- msg:
	default:
	}
}

// listenEvents waits for the next out-of-loop message.
func (a *App) listenEvents() tea.Cmd {
	return func() tea.Msg {
		return <-a.events
	}
}

// Init starts the idle ticker and the out-of-loop listener.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.listenEvents(),
		session.TickCmd(),
	}
	if a.view == viewSessions {
		cmds = append(cmds, a.sessions.load(), loadProfileCmd(a.deps.Client), loadQuotaCmd(a.deps.Client))
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update routes messages to the active view and handles app-level concerns.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.theme.SetSize(msg.Width, msg.Height)
		a.resizeChildren()
		return a, nil

	case tea.KeyMsg:
		a.deps.Idle.RecordActivity()
		a.idleWarning = ""
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case session.TickMsg:
		// HandleTick schedules the next tick itself.
		return a.route(msg, a.deps.Idle.HandleTick())

	case session.TimeoutWarningMsg:
		a.idleWarning = "Signing out in " + session.FormatDuration(msg.Remaining) + " (press any key)"
		return a, nil

	case session.TimeoutMsg:
		return a.signOut("Signed out after inactivity.")

	case sessionExpiredMsg:
		app, cmd := a.signOut("Your session has expired. Please sign in again.")
		return app, tea.Batch(cmd, a.listenEvents())

	case ConfigReloadedMsg:
		return a.applyConfig(msg.Config)

	case loginDoneMsg:
		if msg.Err == nil {
			a.view = viewSessions
			a.resizeChildren()
			return a, tea.Batch(
				a.sessions.load(),
				loadProfileCmd(a.deps.Client),
				loadQuotaCmd(a.deps.Client),
			)
		}
		return a.route(msg)

	case profileLoadedMsg:
		if msg.Err == nil {
			p := msg.Profile
			a.profile = &p
		}
		return a, nil

	case quotaLoadedMsg:
		if msg.Err == nil {
			a.quota = &msg.Quota
			a.chat.SetQuota(msg.Quota)
		}
		return a, nil

	case chatui.QuotaUpdatedMsg:
		a.quota = &msg.Quota
		return a.route(msg, a.listenEvents())

	case chatui.TurnEventMsg, chatui.TurnDoneMsg, chatui.StreamTickMsg:
		// Turn progress always reaches the reading view. A turn that
		// concludes while another view is active must still clear its
		// in-flight state, or the composer stays locked on return.
		m, cmd := a.chat.Update(msg)
		a.chat = m.(chatui.Model)
		return a, cmd

	case sessionChosenMsg:
		return a.openSession(msg.Session)

	case chatui.OpenSessionsMsg:
		a.view = viewSessions
		a.resizeChildren()
		return a, a.sessions.load()

	case chatui.OpenJournalMsg:
		a.view = viewJournal
		a.resizeChildren()
		return a, a.journal.load()

	case chatui.OpenAccountMsg:
		a.view = viewAccount
		a.resizeChildren()
		return a, a.account.load()

	case chatui.OpenCatalogMsg:
		a.view = viewCatalog
		a.resizeChildren()
		return a, a.catalog.load()

	case backToChatMsg:
		if a.chat.SessionID() != "" {
			a.view = viewChat
		} else {
			a.view = viewSessions
		}
		a.resizeChildren()
		return a, nil
	}

	return a.route(msg)
}

// route forwards a message to the active child view.
func (a *App) route(msg tea.Msg, extra ...tea.Cmd) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewSessions:
		a.sessions, cmd = a.sessions.Update(msg)
	case viewChat:
		var m tea.Model
		m, cmd = a.chat.Update(msg)
		a.chat = m.(chatui.Model)
	case viewJournal:
		a.journal, cmd = a.journal.Update(msg)
	case viewAccount:
		a.account, cmd = a.account.Update(msg)
	case viewCatalog:
		a.catalog, cmd = a.catalog.Update(msg)
	}

	if len(extra) == 0 {
		return a, cmd
	}
	return a, tea.Batch(append(extra, cmd)...)
}

// openSession switches to the reading view for a session.
func (a *App) openSession(s model.Session) (tea.Model, tea.Cmd) {
	a.chat = chatui.New(a.theme, a.deps.Svc, a.deps.Client, s)
	if a.quota != nil {
		a.chat.SetQuota(*a.quota)
	}
	a.view = viewChat
	a.resizeChildren()
	return a, a.chat.Init()
}

// applyConfig puts a hot-reloaded configuration into effect. The server URL
// is left alone; switching backends mid-session would orphan the signed-in
// state.
func (a *App) applyConfig(cfg *config.Config) (tea.Model, tea.Cmd) {
	if cfg == nil {
		return a, nil
	}
	a.deps.Config = cfg
	a.deps.Idle.SetTimeout(cfg.IdleTimeout())
	a.deps.Client.
		WithMaxRetries(cfg.Server.MaxRetries).
		WithSendRate(cfg.Chat.SendsPerMinute)
	return a, nil
}

// signOut clears credentials and returns to the login screen.
func (a *App) signOut(reason string) (tea.Model, tea.Cmd) {
	a.deps.Client.ClearTokens()
	a.profile = nil
	a.quota = nil
	a.view = viewLogin
	a.login = newLoginModel(a.theme, a.deps.Client, a.deps.Store)
	a.login.notice = reason
	a.resizeChildren()
	return a, nil
}

// resizeChildren pushes the content area size into every view. The header
// and status bar each take one row.
func (a *App) resizeChildren() {
	w, h := a.width, a.height-2
	if h < 1 {
		h = 1
	}
	a.login.SetSize(w, h)
	a.sessions.SetSize(w, h)
	a.chat.SetSize(w, h)
	a.journal.SetSize(w, h)
	a.account.SetSize(w, h)
	a.catalog.SetSize(w, h)
}

// =============================================================================
// VIEW
// =============================================================================

// View renders header, active view, and status bar.
func (a *App) View() string {
	if a.width == 0 {
		return "starting..."
	}

	var body string
	switch a.view {
	case viewLogin:
		body = a.login.View()
	case viewSessions:
		body = a.sessions.View()
	case viewChat:
		body = a.chat.View()
	case viewJournal:
		body = a.journal.View()
	case viewAccount:
		body = a.account.View()
	case viewCatalog:
		body = a.catalog.View()
	}

	return a.renderHeader() + "\n" + body + "\n" + a.renderStatusBar()
}

func (a *App) renderHeader() string {
	title := a.theme.HeaderTitle.Render("✦ arcana")

	var who string
	if a.profile != nil {
		who = a.profile.Email
	}

	gap := a.width - lipgloss.Width(title) - lipgloss.Width(who) - 2
	if gap < 1 {
		gap = 1
	}
	return a.theme.Header.Width(a.width).Render(title + strings.Repeat(" ", gap) + who)
}

func (a *App) renderStatusBar() string {
	if a.idleWarning != "" {
		return a.theme.WarningBox.Width(a.width).Render(a.idleWarning)
	}

	left := a.theme.StatusKey.Render(a.viewName()) +
		a.theme.StatusDesc.Render("  /help commands · ctrl+c quit")

	right := ""
	if a.quota != nil {
		if r := a.quota.Remaining(); r < 0 {
			right = a.theme.QuotaOK.Render("readings ∞")
		} else if r <= 3 {
			right = a.theme.QuotaLow.Render("readings " + util.IntToString(r))
		} else {
			right = a.theme.QuotaOK.Render("readings " + util.IntToString(r))
		}
	}

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return a.theme.StatusBar.Width(a.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (a *App) viewName() string {
	switch a.view {
	case viewLogin:
		return "sign in"
	case viewSessions:
		return "sessions"
	case viewChat:
		return "reading"
	case viewJournal:
		return "journal"
	case viewAccount:
		return "account"
	case viewCatalog:
		return "cards"
	}
	return ""
}

// =============================================================================
// SHARED COMMANDS
// =============================================================================

// backToChatMsg returns from a secondary view to the open reading, or to
// the session picker when none is open.
type backToChatMsg struct{}

func loadProfileCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		p, err := client.Profile(context.Background())
		return profileLoadedMsg{Profile: p, Err: err}
	}
}

func loadQuotaCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		q, err := client.Quota(context.Background())
		return quotaLoadedMsg{Quota: q, Err: err}
	}
}
