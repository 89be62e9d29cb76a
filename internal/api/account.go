// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// ACCOUNT ENDPOINTS
// =============================================================================

// Subscription returns the account's current plan.
func (c *Client) Subscription(ctx context.Context) (model.Subscription, error) {
	var s model.Subscription
	if err := c.getJSON(ctx, "/account/subscription/", &s); err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

// Quota returns the account's reading allowance. The chat layer calls this
// after any turn that drew cards.
func (c *Client) Quota(ctx context.Context) (model.Quota, error) {
	var q model.Quota
	if err := c.getJSON(ctx, "/account/quota/", &q); err != nil {
		return model.Quota{}, err
	}
	return q, nil
}

// =============================================================================
// PAYMENT FLOW
// =============================================================================

// ethAddressPattern matches a 0x-prefixed 20-byte hex address. Checksum case
// is not enforced; the backend validates the checksum.
var ethAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ErrInvalidAddress indicates a malformed Ethereum address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// CreateCheckout starts a subscription purchase for a plan. For the Ethereum
// flow the backend quotes the amount in wei and a receiving address.
func (c *Client) CreateCheckout(ctx context.Context, plan string) (model.Checkout, error) {
	var co model.Checkout
	req := map[string]string{"plan": plan}
	if err := c.sendJSON(ctx, http.MethodPost, "/account/checkout/", req, &co); err != nil {
		return model.Checkout{}, err
	}
	return co, nil
}

// SubmitWallet registers the payer's Ethereum address against a checkout so
// the backend can watch for the payment. No signing or on-chain activity
// happens in the client.
func (c *Client) SubmitWallet(ctx context.Context, checkoutID, address string) (model.WalletStatus, error) {
	if !ethAddressPattern.MatchString(address) {
		return model.WalletStatus{}, ErrInvalidAddress
	}
	var ws model.WalletStatus
	req := map[string]string{"checkout_id": checkoutID, "address": address}
	if err := c.sendJSON(ctx, http.MethodPost, "/account/wallet/", req, &ws); err != nil {
		return model.WalletStatus{}, err
	}
	return ws, nil
}

// WalletStatus polls the confirmation state of a submitted payment.
func (c *Client) WalletStatus(ctx context.Context, address string) (model.WalletStatus, error) {
	if !ethAddressPattern.MatchString(address) {
		return model.WalletStatus{}, ErrInvalidAddress
	}
	var ws model.WalletStatus
	path := "/account/wallet/" + url.PathEscape(address) + "/status/"
	if err := c.getJSON(ctx, path, &ws); err != nil {
		return model.WalletStatus{}, err
	}
	return ws, nil
}
