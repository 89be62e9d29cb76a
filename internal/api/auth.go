// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jeranaias/arcana-tui/internal/auth"
	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// tokenResponse is the backend's credential payload.
type tokenResponse struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	ExpiresIn int    `json:"expires_in,omitempty"`
}

func (tr tokenResponse) toTokens() auth.Tokens {
	t := auth.Tokens{
		Access:   tr.Access,
		Refresh:  tr.Refresh,
		IssuedAt: time.Now(),
	}
	if tr.ExpiresIn > 0 {
		t.ExpiresAt = t.IssuedAt.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return t
}

// LoginRequest carries the login credentials. OTP is the optional six-digit
// second factor for accounts with two-factor enabled.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

// RegisterRequest carries new-account registration fields.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Login authenticates and installs the returned token pair on the client.
func (c *Client) Login(ctx context.Context, req LoginRequest) (auth.Tokens, error) {
	return c.obtainTokens(ctx, "/auth/login/", req)
}

// Register creates a new account. The backend logs the account in on
// success, so the token pair is installed the same way as Login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (auth.Tokens, error) {
	return c.obtainTokens(ctx, "/auth/register/", req)
}

func (c *Client) obtainTokens(ctx context.Context, path string, req any) (auth.Tokens, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, respBody, err := c.doOnce(ctx, http.MethodPost, path, body, false)
	if err != nil {
		return auth.Tokens{}, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return auth.Tokens{}, handleErrorResponse(resp.StatusCode, respBody)
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return auth.Tokens{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	c.installTokens(tr)

	c.mu.Lock()
	t := c.tokens
	c.mu.Unlock()
	return t, nil
}

// Profile fetches the authenticated account's profile.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	if err := c.getJSON(ctx, "/auth/profile/", &p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}
