// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestParseIndex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  int
	}{
		{"first", "1", 5, 0},
		{"last", "5", 5, 4},
		{"whitespace", "  3 ", 5, 2},
		{"zero", "0", 5, -1},
		{"out of range", "6", 5, -1},
		{"negative", "-1", 5, -1},
		{"not a number", "two", 5, -1},
		{"empty", "", 5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseIndex(tt.input, tt.n); got != tt.want {
				t.Errorf("parseIndex(%q, %d) = %d, want %d", tt.input, tt.n, got, tt.want)
			}
		})
	}
}
