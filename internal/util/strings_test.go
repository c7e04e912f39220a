package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"tiny budget is just ellipsis", "hello", 3, "..."},
		{"zero budget is just ellipsis", "hello", 0, "..."},
		{"empty string unchanged", "", 10, ""},
		{"runes counted, not bytes", "日本語テスト", 5, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("hello world")

	if got := TruncateANSI("hello world", 8); got != "hello..." {
		t.Errorf("plain truncation = %q", got)
	}
	if got := TruncateANSI("hello", 2); got != "..." {
		t.Errorf("tiny budget = %q", got)
	}

	got := TruncateANSI(styled, 8)
	if w := lipgloss.Width(got); w > 8 {
		t.Errorf("styled result width = %d, want <= 8", w)
	}

	// Visual width, not byte length, drives wide-character truncation.
	got = TruncateANSI("日本語テスト", 8)
	if w := lipgloss.Width(got); w > 8 {
		t.Errorf("wide-char result width = %d, want <= 8", w)
	}
}
