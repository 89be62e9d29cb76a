// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusDesc  lipgloss.Style
	QuotaOK     lipgloss.Style
	QuotaLow    lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserBubble   lipgloss.Style
	ReaderBubble lipgloss.Style
	Pending      lipgloss.Style
	RoleLabel    lipgloss.Style
	Timestamp    lipgloss.Style

	// ==========================================================================
	// CARDS
	// ==========================================================================

	CardBox      lipgloss.Style
	CardName     lipgloss.Style
	CardReversed lipgloss.Style
	CardMeaning  lipgloss.Style

	// ==========================================================================
	// INPUT AND LISTS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	ListTitle      lipgloss.Style
	ListItem       lipgloss.Style
	ListSelected   lipgloss.Style

	// ==========================================================================
	// FEEDBACK
	// ==========================================================================

	ErrorBox   lipgloss.Style
	WarningBox lipgloss.Style
	Spinner    lipgloss.Style
	Dim        lipgloss.Style
}

// NewTheme builds the theme for the current terminal.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(Indigo).
		Bold(true).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Foreground(Violet).Bold(true)
	t.StatusBar = lipgloss.NewStyle().Background(SurfaceDim).Foreground(TextDim).Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().Foreground(Gold).Bold(true)
	t.StatusDesc = lipgloss.NewStyle().Foreground(TextDim)
	t.QuotaOK = lipgloss.NewStyle().Foreground(Moss)
	t.QuotaLow = lipgloss.NewStyle().Foreground(Amber).Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Gold).
		Padding(0, 1)
	t.ReaderBubble = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Violet).
		Padding(0, 1)
	t.Pending = lipgloss.NewStyle().Foreground(TextDim).Italic(true)
	t.RoleLabel = lipgloss.NewStyle().Foreground(Indigo).Bold(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextDim)

	t.CardBox = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Gold).
		Padding(0, 1)
	t.CardName = lipgloss.NewStyle().Foreground(Gold).Bold(true)
	t.CardReversed = lipgloss.NewStyle().Foreground(Rose)
	t.CardMeaning = lipgloss.NewStyle().Foreground(TextDim).Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(Indigo)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Violet).Bold(true)
	t.ListTitle = lipgloss.NewStyle().Foreground(Indigo).Bold(true).Padding(0, 1)
	t.ListItem = lipgloss.NewStyle().Foreground(Text).Padding(0, 2)
	t.ListSelected = lipgloss.NewStyle().Foreground(Gold).Bold(true).Padding(0, 1)

	t.ErrorBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Foreground(Rose).
		Padding(0, 1)
	t.WarningBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Foreground(Amber).
		Padding(0, 1)
	t.Spinner = lipgloss.NewStyle().Foreground(Violet)
	t.Dim = lipgloss.NewStyle().Foreground(TextDim)

	return t
}

// SetSize records the terminal dimensions for layout decisions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}
