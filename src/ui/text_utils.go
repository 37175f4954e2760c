package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, ignoring ANSI escapes.
func VisualWidth(s string) int {
	return runewidth.StringWidth(ansi.Strip(s))
}

// Truncate truncates text to maxLen cells, keeping ANSI styling intact,
// with an optional "..." tail.
func Truncate(s string, maxLen int, ellipsis bool) string {
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return ansi.Truncate(s, maxLen, "...")
	}
	return ansi.Truncate(s, maxLen, "")
}

// Pad right-pads s with spaces to width cells.
func Pad(s string, width int) string {
	if w := VisualWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// DotLeader joins name and description with dots so that descriptions start
// at column width.
func DotLeader(name string, width int) string {
	n := width - VisualWidth(name) - 2
	if n < 1 {
		n = 1
	}
	return name + " " + strings.Repeat(".", n) + " "
}
