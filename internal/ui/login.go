// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/auth"
	"github.com/jeranaias/arcana-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN VIEW
// =============================================================================

// loginField indexes the focusable inputs.
type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	fieldOTP
	fieldName
)

// loginModel is the sign-in and registration form.
type loginModel struct {
	theme  *styles.Theme
	client *api.Client
	store  *auth.TokenStore

	email    textinput.Model
	password textinput.Model
	otp      textinput.Model
	name     textinput.Model

	registering bool
	focus       loginField
	busy        bool

	notice  string
	errText string

	width  int
	height int
}

// loginDoneMsg reports the outcome of a login or registration attempt.
type loginDoneMsg struct {
	Tokens auth.Tokens
	Err    error
}

func newLoginModel(theme *styles.Theme, client *api.Client, store *auth.TokenStore) loginModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	otp := textinput.New()
	otp.Placeholder = "2FA code (if enabled)"
	otp.CharLimit = 6
	if store != nil {
		if secret, err := store.LoadTOTPSecret(); err == nil && secret != "" {
			otp.Placeholder = "2FA code (auto from stored secret)"
		}
	}

	name := textinput.New()
	name.Placeholder = "display name (optional)"
	name.CharLimit = 64

	return loginModel{
		theme:    theme,
		client:   client,
		store:    store,
		email:    email,
		password: password,
		otp:      otp,
		name:     name,
	}
}

func (m *loginModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	for _, in := range []*textinput.Model{&m.email, &m.password, &m.otp, &m.name} {
		in.Width = min(48, width-8)
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.setFocus(m.nextField(1))
			return m, nil
		case "shift+tab", "up":
			m.setFocus(m.nextField(-1))
			return m, nil
		case "ctrl+r":
			m.registering = !m.registering
			m.errText = ""
			m.setFocus(fieldEmail)
			return m, nil
		case "enter":
			return m.submit()
		}

	case loginDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.errText = loginErrorText(msg.Err)
			return m, nil
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldEmail:
		m.email, cmd = m.email.Update(msg)
	case fieldPassword:
		m.password, cmd = m.password.Update(msg)
	case fieldOTP:
		m.otp, cmd = m.otp.Update(msg)
	case fieldName:
		m.name, cmd = m.name.Update(msg)
	}
	return m, cmd
}

// fields returns the focus order for the active mode.
func (m *loginModel) fields() []loginField {
	if m.registering {
		return []loginField{fieldEmail, fieldPassword, fieldName}
	}
	return []loginField{fieldEmail, fieldPassword, fieldOTP}
}

func (m *loginModel) nextField(dir int) loginField {
	order := m.fields()
	for i, f := range order {
		if f == m.focus {
			return order[(i+dir+len(order))%len(order)]
		}
	}
	return order[0]
}

func (m *loginModel) setFocus(f loginField) {
	m.focus = f
	for _, in := range []*textinput.Model{&m.email, &m.password, &m.otp, &m.name} {
		in.Blur()
	}
	switch f {
	case fieldEmail:
		m.email.Focus()
	case fieldPassword:
		m.password.Focus()
	case fieldOTP:
		m.otp.Focus()
	case fieldName:
		m.name.Focus()
	}
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	if email == "" || password == "" {
		m.errText = "Email and password are required."
		return m, nil
	}

	m.busy = true
	m.errText = ""
	m.notice = ""

	client := m.client
	if m.registering {
		req := api.RegisterRequest{Email: email, Password: password, Name: strings.TrimSpace(m.name.Value())}
		return m, func() tea.Msg {
			tokens, err := client.Register(context.Background(), req)
			return loginDoneMsg{Tokens: tokens, Err: err}
		}
	}

	otp := strings.TrimSpace(m.otp.Value())
	if otp == "" && m.store != nil {
		// A stored authenticator secret generates the code locally.
		if secret, err := m.store.LoadTOTPSecret(); err == nil && secret != "" {
			if code, err := auth.GenerateTOTP(secret); err == nil {
				otp = code
			}
		}
	}

	req := api.LoginRequest{Email: email, Password: password, OTP: otp}
	return m, func() tea.Msg {
		tokens, err := client.Login(context.Background(), req)
		return loginDoneMsg{Tokens: tokens, Err: err}
	}
}

// loginErrorText maps API failures to user-facing text.
func loginErrorText(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return "Invalid credentials. Check your email, password, and 2FA code."
	case errors.Is(err, api.ErrRateLimited):
		return "Too many attempts. Wait a moment and try again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return "Could not reach the server: " + err.Error()
	}
}

func (m loginModel) View() string {
	var b strings.Builder

	title := "Sign in to Arcanum"
	hint := "ctrl+r to create an account"
	if m.registering {
		title = "Create your Arcanum account"
		hint = "ctrl+r to sign in instead"
	}
	b.WriteString(m.theme.ListTitle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n")
	if m.registering {
		b.WriteString(m.name.View())
	} else {
		b.WriteString(m.otp.View())
	}
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.theme.Dim.Render("signing in..."))
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(m.theme.ErrorBox.Render(m.errText))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.theme.Dim.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("enter to submit · tab to move · " + hint))

	form := lipgloss.NewStyle().Padding(1, 4).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}
