// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/model"
	"github.com/jeranaias/arcana-tui/internal/ui/styles"
	"github.com/jeranaias/arcana-tui/internal/util"
)

// =============================================================================
// ACCOUNT VIEW
// =============================================================================

// walletPollInterval is how often a pending payment is re-checked.
const walletPollInterval = 5 * time.Second

// accountModel shows the subscription, the quota, and runs the Ethereum
// checkout flow: create a checkout, show the payment address, submit the
// payer wallet, then poll until the chain confirms.
type accountModel struct {
	theme  *styles.Theme
	client *api.Client

	subscription *model.Subscription
	quota        *model.Quota

	checkout  *model.Checkout
	wallet    textinput.Model
	status    *model.WalletStatus
	polling   bool
	walletErr string

	notice  string
	errText string

	width  int
	height int
}

// accountLoadedMsg delivers subscription and quota together.
type accountLoadedMsg struct {
	Subscription model.Subscription
	Quota        model.Quota
	Err          error
}

// checkoutCreatedMsg delivers a pending checkout.
type checkoutCreatedMsg struct {
	Checkout model.Checkout
	Err      error
}

// walletStatusMsg delivers a payment confirmation check.
type walletStatusMsg struct {
	Status model.WalletStatus
	Err    error
}

// walletPollMsg triggers the next confirmation check.
type walletPollMsg struct{}

func newAccountModel(theme *styles.Theme, client *api.Client) accountModel {
	wallet := textinput.New()
	wallet.Placeholder = "0x… your paying wallet address"
	wallet.CharLimit = 42

	return accountModel{theme: theme, client: client, wallet: wallet}
}

func (m *accountModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.wallet.Width = min(48, width-8)
}

func (m *accountModel) load() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		sub, err := client.Subscription(context.Background())
		if err != nil {
			return accountLoadedMsg{Err: err}
		}
		quota, err := client.Quota(context.Background())
		if err != nil {
			return accountLoadedMsg{Err: err}
		}
		return accountLoadedMsg{Subscription: sub, Quota: quota}
	}
}

func (m accountModel) Update(msg tea.Msg) (accountModel, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if m.wallet.Focused() {
			switch msg.String() {
			case "enter":
				return m.submitWallet()
			case "esc":
				m.wallet.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.wallet, cmd = m.wallet.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "1":
			return m, m.createCheckout("seeker")
		case "2":
			return m, m.createCheckout("mystic")
		case "w":
			if m.checkout != nil {
				m.walletErr = ""
				return m, m.wallet.Focus()
			}
		case "esc":
			return m, func() tea.Msg { return backToChatMsg{} }
		}

	case accountLoadedMsg:
		if msg.Err != nil {
			m.errText = "Could not load account: " + msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		sub, quota := msg.Subscription, msg.Quota
		m.subscription = &sub
		m.quota = &quota
		return m, nil

	case checkoutCreatedMsg:
		if msg.Err != nil {
			m.errText = "Checkout failed: " + msg.Err.Error()
			return m, nil
		}
		m.errText = ""
		checkout := msg.Checkout
		m.checkout = &checkout
		m.status = nil
		m.notice = "Send the quoted amount, then press w to register your wallet."
		return m, nil

	case walletStatusMsg:
		return m.handleWalletStatus(msg)

	case walletPollMsg:
		if !m.polling || m.status == nil {
			return m, nil
		}
		return m, m.checkWallet(m.status.Address)
	}

	return m, nil
}

func (m *accountModel) createCheckout(plan string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		c, err := client.CreateCheckout(context.Background(), plan)
		return checkoutCreatedMsg{Checkout: c, Err: err}
	}
}

func (m accountModel) submitWallet() (accountModel, tea.Cmd) {
	address := strings.TrimSpace(m.wallet.Value())
	client := m.client
	checkoutID := m.checkout.ID

	m.wallet.Blur()
	m.walletErr = ""

	return m, func() tea.Msg {
		status, err := client.SubmitWallet(context.Background(), checkoutID, address)
		return walletStatusMsg{Status: status, Err: err}
	}
}

func (m accountModel) handleWalletStatus(msg walletStatusMsg) (accountModel, tea.Cmd) {
	if msg.Err != nil {
		m.polling = false
		if errors.Is(msg.Err, api.ErrInvalidAddress) {
			m.walletErr = "That does not look like an Ethereum address (0x + 40 hex digits)."
		} else {
			m.walletErr = "Payment check failed: " + msg.Err.Error()
		}
		return m, nil
	}

	status := msg.Status
	m.status = &status

	if status.Confirmed() {
		m.polling = false
		m.checkout = nil
		m.notice = "Payment confirmed. Welcome to your new plan."
		return m, m.load()
	}
	if status.Status == "failed" {
		m.polling = false
		m.walletErr = "The payment failed on chain. No turns were consumed."
		return m, nil
	}

	// Still pending; keep polling.
	m.polling = true
	return m, tea.Tick(walletPollInterval, func(time.Time) tea.Msg {
		return walletPollMsg{}
	})
}

func (m *accountModel) checkWallet(address string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		status, err := client.WalletStatus(context.Background(), address)
		return walletStatusMsg{Status: status, Err: err}
	}
}

// =============================================================================
// VIEW
// =============================================================================

func (m accountModel) View() string {
	var b strings.Builder

	b.WriteString(m.theme.ListTitle.Render("Account"))
	b.WriteString("\n\n")

	if m.errText != "" {
		b.WriteString(m.theme.ErrorBox.Render(m.errText))
		b.WriteString("\n")
	}

	if m.subscription != nil {
		plan := m.subscription.Plan
		if !m.subscription.Active {
			plan += " (inactive)"
		}
		b.WriteString("  Plan: " + m.theme.StatusKey.Render(plan) + "\n")
		if !m.subscription.RenewsAt.IsZero() {
			b.WriteString("  Renews: " + m.subscription.RenewsAt.Format("Jan 2 2006") + "\n")
		}
	}
	if m.quota != nil {
		remaining := "unlimited"
		if r := m.quota.Remaining(); r >= 0 {
			remaining = util.IntToString(r) + " of " + util.IntToString(m.quota.TurnsLimit)
		}
		b.WriteString("  Readings remaining: " + remaining + "\n")
		if !m.quota.ResetsAt.IsZero() {
			b.WriteString("  Resets: " + m.quota.ResetsAt.Format("Jan 2 15:04") + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("  Upgrade: 1 seeker · 2 mystic (paid in ETH)"))
	b.WriteString("\n")

	if m.checkout != nil {
		b.WriteString("\n")
		box := "Send " + m.theme.StatusKey.Render(m.checkout.AmountWei) + " wei\n" +
			"to   " + m.theme.StatusKey.Render(m.checkout.ReceiveAddress)
		if !m.checkout.ExpiresAt.IsZero() {
			box += "\nquote expires " + m.checkout.ExpiresAt.Format("15:04")
		}
		b.WriteString(m.theme.CardBox.Render(box))
		b.WriteString("\n\n")
		b.WriteString(m.wallet.View())
		b.WriteString("\n")
	}

	if m.status != nil && !m.status.Confirmed() {
		line := "Payment " + m.status.Status
		if m.status.Confirmations > 0 {
			line += " (" + util.IntToString(m.status.Confirmations) + " confirmations)"
		}
		if m.polling {
			line += ", checking again shortly..."
		}
		b.WriteString(m.theme.Dim.Render(line))
		b.WriteString("\n")
	}

	if m.walletErr != "" {
		b.WriteString(m.theme.ErrorBox.Render(m.walletErr))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(m.theme.Dim.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("esc back"))
	return b.String()
}
