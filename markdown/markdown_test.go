package markdown_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/scribehq/scribe/markdown"
	"github.com/stretchr/testify/assert"
)

func stripANSI(s string) string {
	// Matches SGR, cursor movement, and other CSI sequences.
	re := regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)
	return re.ReplaceAllString(s, "")
}

func TestMain(m *testing.M) {
	// Force ANSI color output so styled elements (headings, links) produce
	// visible escape codes that we can assert against.
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

func TestRender(t *testing.T) {
	t.Parallel()

	theme := markdown.DefaultTheme()

	t.Run("empty input returns empty string", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", markdown.Render("", 80, theme))
	})

	t.Run("plain paragraph", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("hello world", 80, theme)
		assert.Contains(t, stripANSI(result), "hello world")
	})

	t.Run("heading renders content with distinct styling", func(t *testing.T) {
		t.Parallel()
		heading := markdown.Render("# Title", 80, theme)
		paragraph := markdown.Render("Title", 80, theme)
		assert.Contains(t, stripANSI(heading), "Title")
		assert.NotEqual(t, heading, paragraph)
	})

	t.Run("bold and italic", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("**bold** and *italic*", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "bold")
		assert.Contains(t, plain, "italic")
	})

	t.Run("paragraph wraps to width", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("one two three four five six seven eight nine ten", 20, theme)
		for _, line := range strings.Split(stripANSI(result), "\n") {
			assert.LessOrEqual(t, len(line), 20)
		}
	})

	t.Run("fenced code block preserves content without reflow", func(t *testing.T) {
		t.Parallel()
		src := "```go\nfmt.Println(\"hello world\")\n```"
		result := markdown.Render(src, 20, theme)
		assert.Contains(t, stripANSI(result), `fmt.Println("hello world")`)
	})

	t.Run("fenced code block shows language label", func(t *testing.T) {
		t.Parallel()
		src := "```python\nprint(1)\n```"
		result := markdown.Render(src, 80, theme)
		assert.Contains(t, stripANSI(result), "python")
	})

	t.Run("unordered list", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("- alpha\n- beta", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "- alpha")
		assert.Contains(t, plain, "- beta")
	})

	t.Run("ordered list respects start number", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("3. third\n4. fourth", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "3. third")
		assert.Contains(t, plain, "4. fourth")
	})

	t.Run("nested list indents", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("- outer\n  - inner", 80, theme)
		assert.Contains(t, stripANSI(result), "  - inner")
	})

	t.Run("link shows destination", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("[docs](https://example.com)", 80, theme)
		plain := stripANSI(result)
		assert.Contains(t, plain, "docs")
		assert.Contains(t, plain, "(https://example.com)")
	})

	t.Run("thematic break", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("before\n\n---\n\nafter", 80, theme)
		assert.Contains(t, stripANSI(result), "---")
	})

	t.Run("zero width falls back to default", func(t *testing.T) {
		t.Parallel()
		result := markdown.Render("hello", 0, theme)
		assert.Contains(t, stripANSI(result), "hello")
	})
}

func TestTitle(t *testing.T) {
	t.Parallel()

	t.Run("first top-level heading", func(t *testing.T) {
		t.Parallel()
		src := "intro text\n\n# My Project\n\n# Second\n"
		assert.Equal(t, "My Project", markdown.Title(src))
	})

	t.Run("ignores deeper headings", func(t *testing.T) {
		t.Parallel()
		src := "## Section\n\n# Real Title\n"
		assert.Equal(t, "Real Title", markdown.Title(src))
	})

	t.Run("styled heading text", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "My Project", markdown.Title("# My **Project**\n"))
	})

	t.Run("no heading falls back", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Untitled Document", markdown.Title("just a paragraph"))
	})

	t.Run("empty source falls back", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Untitled Document", markdown.Title(""))
	})
}
