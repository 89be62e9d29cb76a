// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/storage"
	"github.com/jeranaias/arcana-tui/internal/ui/styles"
)

// =============================================================================
// SESSION PICKER
// =============================================================================

// sessionItem adapts a session for the list component.
type sessionItem struct {
	session model.Session
	offline bool
}

func (i sessionItem) Title() string { return i.session.GetTitle() }
func (i sessionItem) Description() string {
	desc := "updated " + i.session.UpdatedAt.Format("Jan 2 15:04")
	if i.session.UpdatedAt.IsZero() {
		desc = "created " + i.session.CreatedAt.Format("Jan 2 15:04")
	}
	if i.offline {
		desc += " (cached)"
	}
	return desc
}
func (i sessionItem) FilterValue() string { return i.session.GetTitle() }

// sessionsModel is the session picker view.
type sessionsModel struct {
	theme  *styles.Theme
	client *api.Client
	cache  *storage.Cache

	list    list.Model
	offline bool
	errText string
}

// sessionsLoadedMsg delivers the session listing, from the server or, when
// it is unreachable, from the local cache.
type sessionsLoadedMsg struct {
	Sessions []model.Session
	Offline  bool
	Err      error
}

// sessionChosenMsg tells the app to open a session.
type sessionChosenMsg struct {
	Session model.Session
}

// sessionDeletedMsg confirms a delete.
type sessionDeletedMsg struct {
	ID  string
	Err error
}

// sessionCreatedMsg delivers a freshly created session.
type sessionCreatedMsg struct {
	Session model.Session
	Err     error
}

func newSessionsModel(theme *styles.Theme, client *api.Client, cache *storage.Cache) sessionsModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = theme.ListSelected
	delegate.Styles.SelectedDesc = theme.Dim

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Your readings"
	l.Styles.Title = theme.ListTitle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	return sessionsModel{theme: theme, client: client, cache: cache, list: l}
}

func (m *sessionsModel) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// load fetches the session list, falling back to the cache when offline.
func (m *sessionsModel) load() tea.Cmd {
	client, cache := m.client, m.cache
	return func() tea.Msg {
		sessions, err := client.ListSessions(context.Background())
		if err == nil {
			if cache != nil {
				// Best effort; a failed cache write never blocks the UI.
				_ = cache.ReplaceSessions(sessions)
			}
			return sessionsLoadedMsg{Sessions: sessions}
		}
		if cache != nil {
			if cached, cacheErr := cache.ListSessions(); cacheErr == nil && len(cached) > 0 {
				return sessionsLoadedMsg{Sessions: cached, Offline: true}
			}
		}
		return sessionsLoadedMsg{Err: err}
	}
}

func (m sessionsModel) Update(msg tea.Msg) (sessionsModel, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				return m, func() tea.Msg { return sessionChosenMsg{Session: item.session} }
			}
		case "n":
			return m, m.createSession()
		case "d":
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				if m.offline {
					m.errText = "Cannot delete while offline."
					return m, nil
				}
				return m, m.deleteSession(item.session.ID)
			}
		case "esc":
			return m, func() tea.Msg { return backToChatMsg{} }
		}

	case sessionsLoadedMsg:
		if msg.Err != nil {
			m.errText = "Could not load sessions: " + msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		m.offline = msg.Offline
		items := make([]list.Item, len(msg.Sessions))
		for i, s := range msg.Sessions {
			items[i] = sessionItem{session: s, offline: msg.Offline}
		}
		return m, m.list.SetItems(items)

	case sessionCreatedMsg:
		if msg.Err != nil {
			m.errText = "Could not create session: " + msg.Err.Error()
			return m, nil
		}
		return m, func() tea.Msg { return sessionChosenMsg{Session: msg.Session} }

	case sessionDeletedMsg:
		if msg.Err != nil {
			m.errText = "Delete failed: " + msg.Err.Error()
			return m, nil
		}
		return m, m.load()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *sessionsModel) createSession() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		s, err := client.CreateSession(context.Background(), "")
		return sessionCreatedMsg{Session: s, Err: err}
	}
}

func (m *sessionsModel) deleteSession(id string) tea.Cmd {
	client, cache := m.client, m.cache
	return func() tea.Msg {
		err := client.DeleteSession(context.Background(), id)
		if err == nil && cache != nil {
			_ = cache.DeleteSession(id)
		}
		return sessionDeletedMsg{ID: id, Err: err}
	}
}

func (m sessionsModel) View() string {
	out := m.list.View()
	if m.errText != "" {
		out += "\n" + m.theme.ErrorBox.Render(m.errText)
	}
	if m.offline {
		out += "\n" + m.theme.Dim.Render("offline: showing cached sessions · n new · d delete · enter open")
	} else {
		out += "\n" + m.theme.Dim.Render("n new · d delete · enter open · / filter")
	}
	return out
}
