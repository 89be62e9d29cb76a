// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for arcana.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation. File location: ~/.arcana/config.toml.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete arcana configuration.
type Config struct {
	Version string `toml:"version"`

	// Server configuration
	Server ServerConfig `toml:"server"`

	// Chat configuration
	Chat ChatConfig `toml:"chat"`

	// Auth / local session configuration
	Auth AuthConfig `toml:"auth"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ServerConfig describes the backend the client talks to.
type ServerConfig struct {
	// BaseURL is the root of the Arcanum REST API.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the timeout for non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the retry budget for transient failures on
	// idempotent requests.
	MaxRetries int `toml:"max_retries"`
}

// ChatConfig tunes chat behavior.
type ChatConfig struct {
	// SendsPerMinute caps how fast messages may be submitted (client-side).
	SendsPerMinute int `toml:"sends_per_minute"`
	// HistoryLimit is how many messages to request when opening a session.
	HistoryLimit int `toml:"history_limit"`
}

// AuthConfig controls credential storage and the local idle timeout.
type AuthConfig struct {
	// TokenPath overrides where encrypted tokens are stored
	// (default ~/.arcana/tokens.enc).
	TokenPath string `toml:"token_path"`
	// IdleTimeoutSecs logs the user out after this much inactivity.
	// Valid range 300-7200; values outside are clamped.
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light", "auto".
	Theme string `toml:"theme"`
	// RenderMarkdown renders reading text through the markdown renderer.
	RenderMarkdown bool `toml:"render_markdown"`
	// ShowCardMeanings displays interpretive text beneath drawn cards.
	ShowCardMeanings bool `toml:"show_card_meanings"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	idleTimeoutMin = 300
	idleTimeoutMax = 7200
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			BaseURL:     "https://api.arcanum.app",
			TimeoutSecs: 30,
			MaxRetries:  3,
		},
		Chat: ChatConfig{
			SendsPerMinute: 20,
			HistoryLimit:   200,
		},
		Auth: AuthConfig{
			IdleTimeoutSecs: 1800,
		},
		UI: UIConfig{
			Theme:            "auto",
			RenderMarkdown:   true,
			ShowCardMeanings: true,
		},
	}
}

// =============================================================================
// FILE LOCATIONS
// =============================================================================

// Dir returns the arcana configuration directory (~/.arcana).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".arcana"), nil
}

// Path returns the path of the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir creates the configuration directory if missing.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the config file, falling back to defaults
// when no file exists. Environment overrides are applied last, then the
// result is validated.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default config path with
// restrictive permissions.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to an explicit path.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# arcana configuration file")
	fmt.Fprintln(file, "# Generated by arcana - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - ARCANA_SERVER_URL: overrides server.base_url
//   - ARCANA_TIMEOUT_SECS: overrides server.timeout_secs
//   - ARCANA_TOKEN_PATH: overrides auth.token_path
//   - ARCANA_THEME: overrides ui.theme
//   - ARCANA_NO_MARKDOWN: set to "1" or "true" to disable markdown rendering
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ARCANA_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("ARCANA_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Server.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("ARCANA_TOKEN_PATH"); v != "" {
		c.Auth.TokenPath = v
	}
	if v := os.Getenv("ARCANA_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("ARCANA_NO_MARKDOWN"); v == "1" || strings.EqualFold(v, "true") {
		c.UI.RenderMarkdown = false
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.BaseURL == "" {
		errs = append(errs, ValidationError{"server.base_url", "must not be empty"})
	} else {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{"server.base_url", "must be an absolute http(s) URL"})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{"server.base_url", "scheme must be http or https"})
		}
	}

	if c.Server.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{"server.timeout_secs", "must be positive"})
	}

	if c.Server.MaxRetries < 0 || c.Server.MaxRetries > 10 {
		errs = append(errs, ValidationError{"server.max_retries", "must be between 0 and 10"})
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{"ui.theme", "must be dark, light, or auto"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// clamp forces out-of-range values back into valid bounds rather than
// failing the load.
func (c *Config) clamp() {
	if c.Auth.IdleTimeoutSecs < idleTimeoutMin {
		c.Auth.IdleTimeoutSecs = idleTimeoutMin
	}
	if c.Auth.IdleTimeoutSecs > idleTimeoutMax {
		c.Auth.IdleTimeoutSecs = idleTimeoutMax
	}
	if c.Chat.SendsPerMinute <= 0 {
		c.Chat.SendsPerMinute = 20
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = 200
	}
	c.Server.BaseURL = strings.TrimSuffix(c.Server.BaseURL, "/")
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// IdleTimeout returns the local idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Auth.IdleTimeoutSecs) * time.Second
}

// TokenPath returns the credential store path, applying the default when
// unset.
func (c *Config) TokenPath() (string, error) {
	if c.Auth.TokenPath != "" {
		return c.Auth.TokenPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tokens.enc"), nil
}
