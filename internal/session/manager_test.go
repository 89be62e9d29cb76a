// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"
)

func TestManagerActivityResetsIdle(t *testing.T) {
	m := NewManager(Config{Timeout: 50 * time.Millisecond, WarningBefore: 10 * time.Millisecond})

	time.Sleep(30 * time.Millisecond)
	m.RecordActivity()
	if m.IsExpired() {
		t.Error("expired immediately after activity")
	}

	time.Sleep(60 * time.Millisecond)
	if !m.IsExpired() {
		t.Error("not expired after idle period")
	}
}

func TestManagerCheckFiresCallbacks(t *testing.T) {
	m := NewManager(Config{Timeout: 40 * time.Millisecond, WarningBefore: 20 * time.Millisecond})

	warned := 0
	timedOut := 0
	m.SetWarningCallback(func(time.Duration) { warned++ })
	m.SetTimeoutCallback(func() { timedOut++ })

	if !m.Check() {
		t.Fatal("fresh session reported expired")
	}

	time.Sleep(25 * time.Millisecond)
	m.Check()
	if warned != 1 {
		t.Errorf("warning fired %d times, want 1", warned)
	}

	// Warning does not repeat without new activity.
	m.Check()
	if warned != 1 {
		t.Errorf("warning repeated: %d", warned)
	}

	time.Sleep(25 * time.Millisecond)
	if m.Check() {
		t.Error("Check returned live after timeout")
	}
	if timedOut == 0 {
		t.Error("timeout callback never fired")
	}
}

func TestManagerWarningResetsWithActivity(t *testing.T) {
	m := NewManager(Config{Timeout: 40 * time.Millisecond, WarningBefore: 20 * time.Millisecond})
	warned := 0
	m.SetWarningCallback(func(time.Duration) { warned++ })

	time.Sleep(25 * time.Millisecond)
	m.Check()
	m.RecordActivity()
	time.Sleep(25 * time.Millisecond)
	m.Check()

	if warned != 2 {
		t.Errorf("warning fired %d times, want 2 (reset by activity)", warned)
	}
}

func TestRemainingTimeFloor(t *testing.T) {
	m := NewManager(Config{Timeout: time.Millisecond, WarningBefore: 0})
	time.Sleep(5 * time.Millisecond)
	if got := m.RemainingTime(); got != 0 {
		t.Errorf("remaining = %v, want 0", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{2 * time.Minute, "2m"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
