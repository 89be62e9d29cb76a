// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the adaptive color palette and Lip Gloss styles
// shared by every view.
package styles
