// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/auth"
)

// =============================================================================
// LOGIN FLOW
// =============================================================================

// loginAttempts is how many credential rounds the user gets before we give up.
const loginAttempts = 3

// login prompts for credentials and authenticates. A network-level failure
// returns errOffline so the caller can fall back to cached data.
func (r *REPL) login(ctx context.Context) error {
	fmt.Println("Sign in to Arcanum.")

	for attempt := 0; attempt < loginAttempts; attempt++ {
		email, err := ReadLine("email: ")
		if err != nil {
			return err
		}
		password, err := ReadPassword("password: ")
		if err != nil {
			return err
		}
		otp, err := r.loginCode()
		if err != nil {
			return err
		}

		_, err = r.client.Login(ctx, api.LoginRequest{
			Email:    strings.TrimSpace(email),
			Password: password,
			OTP:      otp,
		})
		switch {
		case err == nil:
			fmt.Println("Signed in.")
			return nil
		case errors.Is(err, api.ErrUnauthorized):
			fmt.Println("Invalid credentials, try again.")
		case errors.Is(err, api.ErrRateLimited):
			return errors.New("too many attempts; wait a moment and retry")
		default:
			var apiErr *api.APIError
			if errors.As(err, &apiErr) {
				fmt.Println("Sign-in rejected:", apiErr.Message)
				continue
			}
			// Transport failure: the server is unreachable.
			return errOffline
		}
	}
	return errors.New("too many failed sign-in attempts")
}

// loginCode produces the two-factor code: generated from the stored
// authenticator secret when one exists (see /totp), prompted otherwise.
func (r *REPL) loginCode() (string, error) {
	if r.store != nil {
		if secret, err := r.store.LoadTOTPSecret(); err == nil && secret != "" {
			code, err := auth.GenerateTOTP(secret)
			if err == nil {
				fmt.Println("2FA code generated from stored secret.")
				return code, nil
			}
			fmt.Println("Stored 2FA secret is unusable:", err)
		}
	}

	otp, err := ReadLine("2FA code (blank if disabled): ")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(otp), nil
}
