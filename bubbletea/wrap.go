package bubbletea

import (
	"strings"

	rw "github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// wrap performs word wrapping on s to fit within the given display
// width. Words wider than the width are broken mid-word so no line ever
// exceeds it, which matters for East Asian wide characters where rune
// count and display width differ.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}

	var lines []string
	for _, input := range strings.Split(s, "\n") {
		lines = append(lines, wrapLine(input, width)...)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var (
		lines   []string
		current string
	)
	flush := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}

	for _, word := range words {
		for uniseg.StringWidth(word) > width {
			// Break an oversized word at the display-width boundary.
			space := width - uniseg.StringWidth(current)
			if current != "" {
				space -= 1 // separating space
			}
			if space < 1 {
				flush()
				space = width
			}
			head, rest := split(word, space)
			if current != "" {
				current += " "
			}
			current += head
			flush()
			word = rest
		}

		switch {
		case current == "":
			current = word
		case uniseg.StringWidth(current)+1+uniseg.StringWidth(word) <= width:
			current += " " + word
		default:
			flush()
			current = word
		}
	}
	flush()
	return lines
}

// split divides s at the largest prefix not exceeding the given display
// width. It always takes at least one rune so wrapping cannot stall on a
// wide rune that alone exceeds the width.
func split(s string, width int) (head, rest string) {
	taken := 0
	for i, r := range s {
		w := rw.RuneWidth(r)
		if i > 0 && taken+w > width {
			return s[:i], s[i:]
		}
		taken += w
	}
	return s, ""
}
