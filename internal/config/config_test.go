// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// DEFAULT AND LOAD TESTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.BaseURL == "" {
		t.Error("Default base URL should not be empty")
	}
	if cfg.Server.TimeoutSecs <= 0 {
		t.Error("Default timeout should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Missing file should fall back to defaults: %v", err)
	}
	if cfg.Server.BaseURL != Default().Server.BaseURL {
		t.Errorf("Expected default base URL, got %s", cfg.Server.BaseURL)
	}
}

func TestLoadFromPath_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1"

[server]
base_url = "https://readings.example.com/"
timeout_secs = 10
max_retries = 2

[ui]
theme = "dark"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	// Trailing slash is stripped during clamping.
	if cfg.Server.BaseURL != "https://readings.example.com" {
		t.Errorf("BaseURL = %s", cfg.Server.BaseURL)
	}
	if cfg.Server.TimeoutSecs != 10 {
		t.Errorf("TimeoutSecs = %d", cfg.Server.TimeoutSecs)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %s", cfg.UI.Theme)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "http://localhost:8000"
	cfg.Chat.HistoryLimit = 50

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %s", loaded.Server.BaseURL)
	}
	if loaded.Chat.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d", loaded.Chat.HistoryLimit)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Config file permissions = %o, want 0600", perm)
	}
}

// =============================================================================
// ENV OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ARCANA_SERVER_URL", "https://staging.arcanum.app")
	t.Setenv("ARCANA_THEME", "light")
	t.Setenv("ARCANA_NO_MARKDOWN", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "https://staging.arcanum.app" {
		t.Errorf("BaseURL = %s", cfg.Server.BaseURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %s", cfg.UI.Theme)
	}
	if cfg.UI.RenderMarkdown {
		t.Error("RenderMarkdown should be disabled")
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }, true},
		{"relative base url", func(c *Config) { c.Server.BaseURL = "api.arcanum.app" }, true},
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://api.arcanum.app" }, true},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSecs = 0 }, true},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, true},
		{"too many retries", func(c *Config) { c.Server.MaxRetries = 50 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClampIdleTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[auth]
idle_timeout_secs = 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Auth.IdleTimeoutSecs != idleTimeoutMin {
		t.Errorf("IdleTimeoutSecs = %d, want clamped to %d", cfg.Auth.IdleTimeoutSecs, idleTimeoutMin)
	}
}
