// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes reading transcripts to files. Markdown is meant for
// journaling and sharing; JSON is a faithful dump that round-trips.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/arcana-tui/internal/model"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Transcript is a session with its messages, ready to export.
type Transcript struct {
	Session  model.Session    `json:"session"`
	Messages []*model.Message `json:"messages"`
}

// Exporter converts a transcript to one output format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// IncludeMeanings includes card meaning text beneath each draw.
	IncludeMeanings bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeTimestamps: true,
		IncludeMeanings:   true,
	}
}

// ForFormat returns the exporter for a format name ("markdown", "md",
// "json").
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md", "":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (expected markdown or json)", format)
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// ExportToFile writes the transcript and returns the output path.
func ExportToFile(t *Transcript, e Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := e.Export(t)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(opts.OutputDir, exportFilename(t)+e.FileExtension())
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// exportFilename builds a filesystem-safe name from the session title and
// creation date.
func exportFilename(t *Transcript) string {
	title := sanitizeFilename(t.Session.GetTitle())
	stamp := t.Session.CreatedAt.Format("2006-01-02")
	if t.Session.CreatedAt.IsZero() {
		stamp = time.Now().Format("2006-01-02")
	}
	return "reading-" + stamp + "-" + title
}

// sanitizeFilename keeps letters, digits, and dashes.
func sanitizeFilename(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	if len(out) > 48 {
		out = out[:48]
	}
	return out
}
