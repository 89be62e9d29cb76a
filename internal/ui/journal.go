// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/storage"
	"github.com/jeranaias/arcana-tui/internal/ui/styles"
)

// =============================================================================
// JOURNAL VIEW
// =============================================================================

// journalItem adapts a server entry or an unsynced local draft for the
// list component.
type journalItem struct {
	entry   model.JournalEntry
	localID string // non-empty for unsynced drafts
}

func (i journalItem) Title() string {
	title := i.entry.GetTitle()
	if i.localID != "" {
		title += " ●"
	}
	return title
}

func (i journalItem) Description() string {
	if i.localID != "" {
		return "draft, not yet synced"
	}
	return i.entry.UpdatedAt.Format("Jan 2 2006")
}

func (i journalItem) FilterValue() string {
	return i.entry.GetTitle() + " " + i.entry.Body
}

// journalMode is the view's sub-state.
type journalMode int

const (
	journalBrowse journalMode = iota
	journalEdit
)

// journalModel is the journal browser and editor.
type journalModel struct {
	theme  *styles.Theme
	client *api.Client
	cache  *storage.Cache

	mode    journalMode
	list    list.Model
	title   textinput.Model
	body    textarea.Model
	editing journalItem

	notice  string
	errText string

	width  int
	height int
}

// journalLoadedMsg delivers server entries merged with local drafts.
type journalLoadedMsg struct {
	Entries []model.JournalEntry
	Drafts  []storage.Draft
	Err     error
}

// journalSavedMsg confirms a save. Drafted is true when the entry could not
// reach the server and was kept locally instead.
type journalSavedMsg struct {
	Drafted bool
	Err     error
}

// journalDeletedMsg confirms a delete.
type journalDeletedMsg struct {
	Err error
}

func newJournalModel(theme *styles.Theme, client *api.Client, cache *storage.Cache) journalModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = theme.ListSelected
	delegate.Styles.SelectedDesc = theme.Dim

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Journal"
	l.Styles.Title = theme.ListTitle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	title := textinput.New()
	title.Placeholder = "title"
	title.CharLimit = 200

	body := textarea.New()
	body.Placeholder = "What did this reading stir up?"
	body.CharLimit = 20000
	body.ShowLineNumbers = false

	return journalModel{theme: theme, client: client, cache: cache, list: l, title: title, body: body}
}

func (m *journalModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.title.Width = width - 6
	m.body.SetWidth(width - 4)
	if h := height - 7; h > 2 {
		m.body.SetHeight(h)
	}
}

// load fetches server entries and merges in unsynced drafts.
func (m *journalModel) load() tea.Cmd {
	client, cache := m.client, m.cache
	return func() tea.Msg {
		entries, err := client.ListJournal(context.Background())

		var drafts []storage.Draft
		if cache != nil {
			drafts, _ = cache.ListDrafts()
		}

		// With drafts to show, a fetch failure degrades to drafts-only.
		if err != nil && len(drafts) == 0 {
			return journalLoadedMsg{Err: err}
		}
		return journalLoadedMsg{Entries: entries, Drafts: drafts}
	}
}

func (m journalModel) Update(msg tea.Msg) (journalModel, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if m.mode == journalEdit {
			return m.updateEditor(msg)
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "n":
			return m.openEditor(journalItem{}), nil
		case "enter", "e":
			if item, ok := m.list.SelectedItem().(journalItem); ok {
				return m.openEditor(item), nil
			}
		case "d":
			if item, ok := m.list.SelectedItem().(journalItem); ok {
				return m, m.deleteItem(item)
			}
		case "esc":
			return m, func() tea.Msg { return backToChatMsg{} }
		}

	case journalLoadedMsg:
		if msg.Err != nil {
			m.errText = "Could not load journal: " + msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		items := make([]list.Item, 0, len(msg.Drafts)+len(msg.Entries))
		for _, d := range msg.Drafts {
			items = append(items, journalItem{entry: d.Entry(), localID: d.LocalID})
		}
		for _, e := range msg.Entries {
			items = append(items, journalItem{entry: e})
		}
		return m, m.list.SetItems(items)

	case journalSavedMsg:
		if msg.Err != nil {
			m.errText = "Save failed: " + msg.Err.Error()
			return m, nil
		}
		m.mode = journalBrowse
		if msg.Drafted {
			m.notice = "Server unreachable; entry kept as a local draft."
		} else {
			m.notice = "Entry saved."
		}
		return m, m.load()

	case journalDeletedMsg:
		if msg.Err != nil {
			m.errText = "Delete failed: " + msg.Err.Error()
			return m, nil
		}
		return m, m.load()
	}

	if m.mode == journalEdit {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.title, cmd = m.title.Update(msg)
		cmds = append(cmds, cmd)
		m.body, cmd = m.body.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// openEditor enters edit mode for an item, or a blank entry.
func (m journalModel) openEditor(item journalItem) journalModel {
	m.mode = journalEdit
	m.editing = item
	m.title.SetValue(item.entry.Title)
	m.body.SetValue(item.entry.Body)
	m.title.Focus()
	m.body.Blur()
	m.notice = ""
	m.errText = ""
	return m
}

func (m journalModel) updateEditor(msg tea.KeyMsg) (journalModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = journalBrowse
		return m, nil
	case "tab":
		if m.title.Focused() {
			m.title.Blur()
			return m, m.body.Focus()
		}
		m.body.Blur()
		return m, m.title.Focus()
	case "ctrl+s":
		return m, m.save()
	}

	var cmd tea.Cmd
	if m.title.Focused() {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.body, cmd = m.body.Update(msg)
	}
	return m, cmd
}

// save pushes the entry to the server, keeping it as a local draft when
// the server cannot be reached.
func (m *journalModel) save() tea.Cmd {
	entry := m.editing.entry
	entry.Title = strings.TrimSpace(m.title.Value())
	entry.Body = m.body.Value()
	if strings.TrimSpace(entry.Body) == "" && entry.Title == "" {
		return func() tea.Msg {
			return journalSavedMsg{Err: errors.New("entry is empty")}
		}
	}

	client, cache := m.client, m.cache
	localID := m.editing.localID

	return func() tea.Msg {
		var err error
		if entry.IsDraft() {
			_, err = client.CreateJournalEntry(context.Background(), entry)
		} else {
			_, err = client.UpdateJournalEntry(context.Background(), entry)
		}

		if err == nil {
			if cache != nil && localID != "" {
				_ = cache.DeleteDraft(localID)
			}
			return journalSavedMsg{}
		}

		if cache != nil {
			d := storage.Draft{
				LocalID:   localID,
				EntryID:   entry.ID,
				Title:     entry.Title,
				Body:      entry.Body,
				SessionID: entry.SessionID,
			}
			if draftErr := cache.SaveDraft(&d); draftErr == nil {
				return journalSavedMsg{Drafted: true}
			}
		}
		return journalSavedMsg{Err: err}
	}
}

func (m *journalModel) deleteItem(item journalItem) tea.Cmd {
	client, cache := m.client, m.cache
	return func() tea.Msg {
		if item.localID != "" {
			if cache == nil {
				return journalDeletedMsg{}
			}
			return journalDeletedMsg{Err: cache.DeleteDraft(item.localID)}
		}
		return journalDeletedMsg{Err: client.DeleteJournalEntry(context.Background(), item.entry.ID)}
	}
}

func (m journalModel) View() string {
	if m.mode == journalEdit {
		var b strings.Builder
		b.WriteString(m.theme.ListTitle.Render("Journal entry"))
		b.WriteString("\n")
		b.WriteString(m.title.View())
		b.WriteString("\n")
		b.WriteString(m.body.View())
		b.WriteString("\n")
		if m.errText != "" {
			b.WriteString(m.theme.ErrorBox.Render(m.errText))
			b.WriteString("\n")
		}
		b.WriteString(m.theme.Dim.Render("ctrl+s save · tab switch field · esc back"))
		return b.String()
	}

	out := m.list.View()
	if m.errText != "" {
		out += "\n" + m.theme.ErrorBox.Render(m.errText)
	} else if m.notice != "" {
		out += "\n" + m.theme.Dim.Render(m.notice)
	} else {
		out += "\n" + m.theme.Dim.Render("n new · enter edit · d delete · / search · esc back")
	}
	return out
}
