// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/arcana-tui/internal/model"
)

func sampleTranscript() *Transcript {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return &Transcript{
		Session: model.Session{
			ID:        "sess_1",
			Title:     "Career Crossroads",
			CreatedAt: created,
		},
		Messages: []*model.Message{
			{
				ID:        "msg_1",
				Role:      model.RoleUser,
				Content:   "Should I take the new job?",
				CreatedAt: created,
			},
			{
				ID:        "msg_2",
				Role:      model.RoleAssistant,
				Content:   "The cards point toward change.",
				CreatedAt: created.Add(time.Minute),
				Cards: []model.Card{
					{
						ID:       "card_tower",
						Name:     "The Tower",
						Position: model.OrientationReversed,
						Meaning:  "Disruption averted, a narrow escape.",
					},
					{
						ID:       "card_star",
						Name:     "The Star",
						Position: model.OrientationUpright,
					},
				},
			},
		},
	}
}

func TestMarkdownExport(t *testing.T) {
	e := NewMarkdownExporter(DefaultOptions())
	out, err := e.Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"title: \"Career Crossroads\"",
		"date: 2025-03-14",
		"messages: 2",
		"cards_drawn: 2",
		"# Career Crossroads",
		"## You",
		"## Reader",
		"- **The Tower (reversed)**",
		"Disruption averted, a narrow escape.",
		"- **The Star**",
		"The cards point toward change.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestMarkdownExportOptionsOff(t *testing.T) {
	opts := &Options{IncludeTimestamps: false, IncludeMeanings: false}
	e := NewMarkdownExporter(opts)
	out, err := e.Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	md := string(out)

	if strings.Contains(md, "Mar 14") {
		t.Error("timestamps should be omitted")
	}
	if strings.Contains(md, "Disruption averted") {
		t.Error("meanings should be omitted")
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	e := NewJSONExporter()
	out, err := e.Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var got Transcript
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.Session.ID != "sess_1" {
		t.Errorf("session ID = %q, want sess_1", got.Session.ID)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(got.Messages))
	}
	if len(got.Messages[1].Cards) != 2 {
		t.Errorf("got %d cards, want 2", len(got.Messages[1].Cards))
	}
	if got.Messages[1].Cards[0].Position != model.OrientationReversed {
		t.Error("orientation did not round-trip")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportToFile(sampleTranscript(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	if filepath.Base(path) != "reading-2025-03-14-career-crossroads.md" {
		t.Errorf("unexpected filename %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if !strings.Contains(string(data), "# Career Crossroads") {
		t.Error("file content missing heading")
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"markdown", ".md", false},
		{"md", ".md", false},
		{"", ".md", false},
		{"json", ".json", false},
		{"JSON", ".json", false},
		{"html", "", true},
	}

	for _, tt := range tests {
		e, err := ForFormat(tt.format, DefaultOptions())
		if tt.wantErr {
			if err == nil {
				t.Errorf("ForFormat(%q) expected error", tt.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("ForFormat(%q) failed: %v", tt.format, err)
			continue
		}
		if e.FileExtension() != tt.wantExt {
			t.Errorf("ForFormat(%q) ext = %q, want %q", tt.format, e.FileExtension(), tt.wantExt)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Career Crossroads", "career-crossroads"},
		{"  what's next?  ", "what-s-next"},
		{"???", "untitled"},
		{"", "untitled"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
