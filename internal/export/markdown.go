// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a transcript as a Markdown document with YAML
// frontmatter.
type MarkdownExporter struct {
	opts *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{opts: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// Export renders the transcript to Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	var b strings.Builder

	// Frontmatter
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", t.Session.GetTitle())
	if !t.Session.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "date: %s\n", t.Session.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "messages: %d\n", len(t.Messages))
	if n := countCards(t); n > 0 {
		fmt.Fprintf(&b, "cards_drawn: %d\n", n)
	}
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", t.Session.GetTitle())

	for _, m := range t.Messages {
		if m.IsEmpty() {
			continue
		}

		heading := "## " + m.Role.DisplayName()
		if e.opts.IncludeTimestamps && !m.CreatedAt.IsZero() {
			heading += " · " + m.CreatedAt.Format("Jan 2, 2006 15:04")
		}
		b.WriteString(heading + "\n\n")

		if m.HasCards() {
			for _, c := range m.Cards {
				fmt.Fprintf(&b, "- **%s**\n", c.DisplayName())
				if e.opts.IncludeMeanings && c.Meaning != "" {
					fmt.Fprintf(&b, "  %s\n", c.Meaning)
				}
			}
			b.WriteString("\n")
		}

		if m.Content != "" {
			b.WriteString(strings.TrimRight(m.Content, "\n"))
			b.WriteString("\n\n")
		}
	}

	return []byte(b.String()), nil
}

// countCards totals the cards drawn across the transcript.
func countCards(t *Transcript) int {
	n := 0
	for _, m := range t.Messages {
		n += len(m.Cards)
	}
	return n
}
