// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// ErrNoTOTPSecret indicates two-factor codes were requested without a secret.
var ErrNoTOTPSecret = errors.New("no TOTP secret configured")

// GenerateTOTP produces a six-digit login code from a base32 secret.
// Used during login when the account has two-factor enabled and the user
// has stored their secret locally instead of using a phone app.
func GenerateTOTP(secret string) (string, error) {
	secret = normalizeSecret(secret)
	if secret == "" {
		return "", ErrNoTOTPSecret
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		return "", err
	}
	return code, nil
}

// ValidateTOTP checks a code against a base32 secret. Exposed so setup
// flows can verify the secret was entered correctly before saving it.
func ValidateTOTP(code, secret string) bool {
	secret = normalizeSecret(secret)
	if secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}

// normalizeSecret strips the spaces and lowercase letters some providers
// format secrets with.
func normalizeSecret(secret string) string {
	secret = strings.ReplaceAll(secret, " ", "")
	return strings.ToUpper(strings.TrimSpace(secret))
}
