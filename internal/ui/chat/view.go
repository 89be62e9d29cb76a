// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the reading view.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.errText != "" {
		b.WriteString(m.theme.ErrorBox.Width(m.width - 2).Render(m.errText))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(m.theme.Dim.Render(m.notice))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(m.renderHelp())
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Width(m.width).Render(m.composer.View()))
	return b.String()
}

// refreshViewport rebuilds the transcript content from the current snapshot
// and streaming text.
func (m *Model) refreshViewport() {
	var b strings.Builder

	if len(m.snapshot.Messages) == 0 && !m.snapshot.StreamingActive && m.streamText == "" {
		b.WriteString(m.theme.Dim.Render("\n  The deck is shuffled. Ask your question below.\n"))
		m.viewport.SetContent(b.String())
		return
	}

	for _, msg := range m.snapshot.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.streamText != "" || m.snapshot.StreamingActive {
		b.WriteString(m.renderStreaming())
		b.WriteString("\n")
	} else if m.inFlight {
		b.WriteString(m.theme.Spinner.Render(m.spinner.View()) +
			m.theme.Dim.Render(" consulting the cards..."))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
}

// renderMessage renders one transcript entry as a bubble with a role label.
func (m *Model) renderMessage(msg *model.Message) string {
	var b strings.Builder

	label := m.theme.RoleLabel.Render(msg.Role.DisplayName())
	if msg.IsPlaceholder() {
		label += m.theme.Pending.Render(" sending...")
	}
	if !msg.CreatedAt.IsZero() {
		label += "  " + m.theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))
	}
	b.WriteString(label)
	b.WriteString("\n")

	if msg.HasCards() {
		b.WriteString(m.renderCards(msg.Cards))
		b.WriteString("\n")
	}

	width := m.bubbleWidth()
	switch msg.Role {
	case model.RoleUser:
		style := m.theme.UserBubble
		if msg.IsPlaceholder() {
			style = style.Inherit(m.theme.Pending)
		}
		b.WriteString(style.Width(width).Render(msg.Content))
	default:
		b.WriteString(m.theme.ReaderBubble.Width(width).Render(m.renderMarkdown(msg.Content)))
	}
	b.WriteString("\n")

	return b.String()
}

// renderStreaming renders the partial reply while chunks arrive.
func (m *Model) renderStreaming() string {
	label := m.theme.RoleLabel.Render(model.RoleAssistant.DisplayName()) +
		" " + m.theme.Spinner.Render(m.spinner.View())

	content := m.streamText
	if content == "" {
		content = m.theme.Dim.Render("...")
	}

	// Markdown rendering waits for the finalized message; partial markdown
	// flickers as constructs open and close.
	return label + "\n" + m.theme.ReaderBubble.Width(m.bubbleWidth()).Render(content) + "\n"
}

// renderCards lays the draw out as a row of bordered card boxes, falling
// back to one box per line on narrow terminals.
func (m *Model) renderCards(cards []model.Card) string {
	if len(cards) == 0 {
		return ""
	}

	boxes := make([]string, 0, len(cards))
	for i := range cards {
		boxes = append(boxes, m.renderCard(cards[i]))
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
	if lipgloss.Width(row) <= m.width {
		return row
	}
	return strings.Join(boxes, "\n")
}

// cardBoxWidth is the inner width of one card box. Card names are padded to
// it by display width so multi-byte names keep the boxes aligned.
const cardBoxWidth = 22

// renderCard renders a single drawn card.
func (m *Model) renderCard(c model.Card) string {
	var b strings.Builder

	name := runewidth.Truncate(c.Name, cardBoxWidth, "…")
	b.WriteString(m.theme.CardName.Render(runewidth.FillRight(name, cardBoxWidth)))
	b.WriteString("\n")

	if c.IsReversed() {
		b.WriteString(m.theme.CardReversed.Render("⇅ reversed"))
	} else {
		b.WriteString(m.theme.Dim.Render("△ upright"))
	}

	if c.Meaning != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.CardMeaning.Render(
			runewidth.Wrap(c.Meaning, cardBoxWidth)))
	}

	return m.theme.CardBox.Render(b.String())
}

// renderMarkdown renders reader prose through glamour, falling back to the
// raw text if the renderer is unavailable.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// renderHelp renders the slash-command summary.
func (m *Model) renderHelp() string {
	rows := []struct{ key, desc string }{
		{"/sessions", "switch or manage sessions"},
		{"/rename <title>", "rename this session"},
		{"/journal", "open the reading journal"},
		{"/cards", "browse the card catalog"},
		{"/account", "subscription and quota"},
		{"/quota", "show readings remaining"},
		{"/export [md|json]", "save the transcript to a file"},
		{"/clear", "clear the displayed spread"},
		{"/quit", "exit"},
	}

	var b strings.Builder
	b.WriteString(m.theme.ListTitle.Render("Commands"))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString("  ")
		b.WriteString(m.theme.StatusKey.Render(runewidth.FillRight(r.key, 18)))
		b.WriteString(m.theme.StatusDesc.Render(r.desc))
		b.WriteString("\n")
	}
	return b.String()
}

// bubbleWidth is the message bubble width for the current terminal.
func (m *Model) bubbleWidth() int {
	w := m.width - 6
	if w < 20 {
		w = 20
	}
	return w
}
