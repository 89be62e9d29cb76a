// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

// Profile is the authenticated account's profile as reported by the backend.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	JoinedAt    time.Time `json:"joined_at,omitempty"`
	TOTPEnabled bool      `json:"totp_enabled,omitempty"`
}

// Subscription describes the account's current plan.
type Subscription struct {
	Plan      string    `json:"plan"` // "free", "seeker", "mystic"
	Active    bool      `json:"active"`
	RenewsAt  time.Time `json:"renews_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Quota is the backend-tracked usage allowance. A card draw consumes one
// turn; the client refreshes this after any turn that drew cards.
type Quota struct {
	TurnsUsed  int       `json:"turns_used"`
	TurnsLimit int       `json:"turns_limit"` // 0 = unlimited
	ResetsAt   time.Time `json:"resets_at,omitempty"`
}

// Remaining returns the number of turns left, or -1 when unlimited.
func (q Quota) Remaining() int {
	if q.TurnsLimit == 0 {
		return -1
	}
	left := q.TurnsLimit - q.TurnsUsed
	if left < 0 {
		return 0
	}
	return left
}

// Exhausted reports whether the allowance is used up.
func (q Quota) Exhausted() bool {
	return q.TurnsLimit > 0 && q.TurnsUsed >= q.TurnsLimit
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// Checkout is a pending subscription purchase created by the backend. For the
// Ethereum flow the backend quotes an amount and a receiving address; the
// client submits the payer address and polls for confirmation.
type Checkout struct {
	ID             string    `json:"id"`
	Plan           string    `json:"plan"`
	AmountWei      string    `json:"amount_wei,omitempty"`
	ReceiveAddress string    `json:"receive_address,omitempty"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"`
}

// WalletStatus is the confirmation state of an Ethereum payment.
type WalletStatus struct {
	Address       string `json:"address"`
	Status        string `json:"status"` // "pending", "confirmed", "failed"
	Confirmations int    `json:"confirmations,omitempty"`
	TxHash        string `json:"tx_hash,omitempty"`
}

// Confirmed reports whether the payment has been confirmed on chain.
func (w WalletStatus) Confirmed() bool {
	return w.Status == "confirmed"
}
