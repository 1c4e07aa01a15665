// Package markdown renders generated documents to ANSI-styled terminal
// output using goldmark for parsing and lipgloss for styling.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the
// output automatically matches any color scheme.
type Theme struct {
	Accent   int // Headings, links
	Muted    int // Gutters, captions, status text
	Success  int // Completion indicators
	Error    int // Failure panels
	Progress int // Progress bar fill
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Accent:   5,
		Muted:    8,
		Success:  2,
		Error:    1,
		Progress: 4,
	}
}

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks are
// rendered at full width without reflow.
func Render(source string, width int, theme Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := newRenderer(theme)
	return r.render([]byte(source), width)
}

// Title extracts the first top-level heading from markdown source. It
// returns "Untitled Document" when the source has none.
func Title(source string) string {
	src := []byte(source)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		h, ok := c.(*ast.Heading)
		if !ok || h.Level != 1 {
			continue
		}
		var b strings.Builder
		collectText(h, src, &b)
		if title := strings.TrimSpace(b.String()); title != "" {
			return title
		}
	}
	return "Untitled Document"
}

func collectText(node ast.Node, source []byte, b *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			continue
		}
		collectText(c, source, b)
	}
}
