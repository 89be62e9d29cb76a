// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, baseURL string) {
	t.Helper()
	content := "[server]\nbase_url = \"" + baseURL + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "https://readings.example.com")

	reloads := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloads <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	w.debounce = 20 * time.Millisecond

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	writeConfig(t, path, "https://altar.example.com")

	select {
	case cfg := <-reloads:
		if cfg.Server.BaseURL != "https://altar.example.com" {
			t.Errorf("reloaded base URL = %q", cfg.Server.BaseURL)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config change")
	}
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "https://readings.example.com")

	reloads := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloads <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	w.debounce = 20 * time.Millisecond

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// A file that fails to parse must not fire the callback; the running
	// config stays in effect.
	if err := os.WriteFile(path, []byte("[server\nnot toml"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloads:
		t.Errorf("invalid config fired a reload: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "https://readings.example.com")

	reloads := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloads <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	w.debounce = 20 * time.Millisecond

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "history"), []byte("unrelated"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloads:
		t.Error("sibling file write fired a reload")
	case <-time.After(500 * time.Millisecond):
	}
}
