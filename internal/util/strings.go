// Package util holds small helpers shared across packages.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString caps s at maxLen runes, appending "..." when it was cut.
// Not safe for strings carrying ANSI escapes; use TruncateANSI for styled
// terminal output.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI caps s at maxWidth visual columns, appending "..." when it
// was cut. Escape sequences and wide characters are measured correctly.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}
