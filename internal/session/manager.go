// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks local inactivity and drives the idle logout.
package session

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arcana-tui/internal/util"
)

// =============================================================================
// IDLE MANAGER
// =============================================================================

// Manager tracks user activity and fires the logout path after the
// configured idle period. A reading left open on a shared machine should
// not stay signed in indefinitely.
type Manager struct {
	mu sync.Mutex

	startTime    time.Time
	lastActivity time.Time

	timeout       time.Duration
	warningBefore time.Duration
	warningShown  bool

	onTimeout func()
	onWarning func(remaining time.Duration)
}

// Config holds idle manager settings.
type Config struct {
	// Timeout is the idle duration before logout.
	Timeout time.Duration

	// WarningBefore is how long before logout to warn the user.
	WarningBefore time.Duration
}

// DefaultConfig returns the default idle settings.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Minute,
		WarningBefore: 2 * time.Minute,
	}
}

// NewManager creates an idle manager.
func NewManager(cfg Config) *Manager {
	now := time.Now()
	return &Manager{
		startTime:     now,
		lastActivity:  now,
		timeout:       cfg.Timeout,
		warningBefore: cfg.WarningBefore,
	}
}

// RecordActivity updates the last activity timestamp. Call on user input.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
	m.warningShown = false
}

// IdleTime returns how long since last activity.
func (m *Manager) IdleTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity)
}

// RemainingTime returns time until the idle logout.
func (m *Manager) RemainingTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := m.timeout - time.Since(m.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired reports whether the idle period has elapsed.
func (m *Manager) IsExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity) >= m.timeout
}

// SetTimeout updates the idle duration.
func (m *Manager) SetTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
}

// SetTimeoutCallback sets the function called at idle logout.
func (m *Manager) SetTimeoutCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTimeout = fn
}

// SetWarningCallback sets the function called when logout approaches.
func (m *Manager) SetWarningCallback(fn func(remaining time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWarning = fn
}

// Check evaluates idle state and triggers callbacks. Returns true while the
// session is still live.
func (m *Manager) Check() bool {
	m.mu.Lock()
	idle := time.Since(m.lastActivity)
	expired := idle >= m.timeout

	shouldWarn := false
	var remaining time.Duration
	if !m.warningShown && !expired && idle >= m.timeout-m.warningBefore {
		shouldWarn = true
		remaining = m.timeout - idle
		m.warningShown = true
	}

	onTimeout := m.onTimeout
	onWarning := m.onWarning
	m.mu.Unlock()

	// Callbacks run outside the lock.
	if shouldWarn && onWarning != nil {
		onWarning(remaining)
	}
	if expired && onTimeout != nil {
		onTimeout()
	}
	return !expired
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check idle state.
type TickMsg struct {
	Time time.Time
}

// TimeoutWarningMsg indicates the idle logout is close.
type TimeoutWarningMsg struct {
	Remaining time.Duration
}

// TimeoutMsg indicates the idle period elapsed.
type TimeoutMsg struct{}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick processes a tick and emits warning/timeout messages as needed.
func (m *Manager) HandleTick() tea.Cmd {
	var cmds []tea.Cmd

	m.mu.Lock()
	idle := time.Since(m.lastActivity)
	expired := idle >= m.timeout
	if !m.warningShown && !expired && idle >= m.timeout-m.warningBefore {
		m.warningShown = true
		remaining := m.timeout - idle
		cmds = append(cmds, func() tea.Msg {
			return TimeoutWarningMsg{Remaining: remaining}
		})
	}
	m.mu.Unlock()

	if expired {
		cmds = append(cmds, func() tea.Msg {
			return TimeoutMsg{}
		})
	}

	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}

// FormatDuration returns a short human-readable duration.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return util.IntToString(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return util.IntToString(mins) + "m"
	}
	return util.IntToString(mins) + "m " + util.IntToString(secs) + "s"
}
