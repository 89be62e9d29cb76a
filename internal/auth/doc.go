// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides credential storage for the arcana client.
//
// Tokens returned by the backend (access and refresh) are persisted at rest
// encrypted with AES-256-GCM. The encryption key is either a random master
// key kept in a 0600 key file next to the token file, or derived from a user
// passphrase with PBKDF2-SHA-256.
//
// The package also ships a small TOTP helper so accounts with two-factor
// enabled can generate login codes from a locally stored secret.
package auth
