// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/ui/styles"
)

// =============================================================================
// CARD CATALOG
// =============================================================================

// cardItem adapts a catalog card for the list component.
type cardItem struct {
	card model.Card
}

func (i cardItem) Title() string { return i.card.Name }
func (i cardItem) Description() string {
	if i.card.Suit != "" {
		return i.card.Suit
	}
	return "major arcana"
}
func (i cardItem) FilterValue() string { return i.card.Name + " " + i.card.Suit }

// catalogModel browses the deck and the available spreads.
type catalogModel struct {
	theme  *styles.Theme
	client *api.Client

	list     list.Model
	spreads  []model.Spread
	selected *model.Card

	errText string

	width  int
	height int
}

// catalogLoadedMsg delivers the deck and the spread list.
type catalogLoadedMsg struct {
	Cards   []model.Card
	Spreads []model.Spread
	Err     error
}

func newCatalogModel(theme *styles.Theme, client *api.Client) catalogModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = theme.ListSelected
	delegate.Styles.SelectedDesc = theme.Dim

	l := list.New(nil, delegate, 0, 0)
	l.Title = "The deck"
	l.Styles.Title = theme.ListTitle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	return catalogModel{theme: theme, client: client, list: l}
}

func (m *catalogModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
}

func (m *catalogModel) load() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		cards, err := client.ListCards(context.Background())
		if err != nil {
			return catalogLoadedMsg{Err: err}
		}
		// Spread listing failures degrade to cards-only.
		spreads, _ := client.ListSpreads(context.Background())
		return catalogLoadedMsg{Cards: cards, Spreads: spreads}
	}
}

func (m catalogModel) Update(msg tea.Msg) (catalogModel, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(cardItem); ok {
				card := item.card
				m.selected = &card
			}
			return m, nil
		case "esc":
			if m.selected != nil {
				m.selected = nil
				return m, nil
			}
			return m, func() tea.Msg { return backToChatMsg{} }
		}

	case catalogLoadedMsg:
		if msg.Err != nil {
			m.errText = "Could not load the deck: " + msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		m.spreads = msg.Spreads
		items := make([]list.Item, len(msg.Cards))
		for i, c := range msg.Cards {
			items[i] = cardItem{card: c}
		}
		return m, m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m catalogModel) View() string {
	if m.selected != nil {
		return m.renderDetail(*m.selected)
	}

	out := m.list.View()
	if m.errText != "" {
		out += "\n" + m.theme.ErrorBox.Render(m.errText)
	} else {
		out += "\n" + m.theme.Dim.Render("enter details · / filter · esc back")
	}
	return out
}

// renderDetail shows one card's interpretive metadata.
func (m catalogModel) renderDetail(c model.Card) string {
	var b strings.Builder

	b.WriteString(m.theme.CardName.Render(c.Name))
	b.WriteString("\n\n")

	rows := []struct{ label, value string }{
		{"Suit", c.Suit},
		{"Rank", c.Rank},
		{"Numeral", c.Numeral},
		{"Element", c.Element},
		{"Astrology", c.Astrology},
	}
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		b.WriteString("  " + m.theme.StatusKey.Render(r.label+": "))
		b.WriteString(r.value)
		b.WriteString("\n")
	}

	if c.Meaning != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.CardMeaning.Render(c.Meaning))
		b.WriteString("\n")
	}

	if len(m.spreads) > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.ListTitle.Render("Spreads"))
		b.WriteString("\n")
		for _, s := range m.spreads {
			b.WriteString("  " + m.theme.StatusKey.Render(s.Name))
			b.WriteString(m.theme.Dim.Render(" (" + s.Description + ")"))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("esc back to the deck"))
	return m.theme.CardBox.Render(b.String())
}
