package safety

import (
	"strings"
	"unicode"
)

// Segment splits a raw command string into independent top-level command
// segments. Splits occur at the shell separators &&, ||, ; and | — but only
// when the scanner is outside quotes and at parenthesis depth zero, so
// subshells and quoted strings are never split apart.
//
// The scanner fails closed: if it encounters an unbalanced closing
// parenthesis, the remainder of the string from that point is returned as a
// single opaque segment rather than being split further. Empty or
// whitespace-only input yields no segments.
func Segment(raw string) []string {
	var segments []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			segments = append(segments, s)
		}
		current.Reset()
	}

	depth := 0
	inSingle := false
	inDouble := false

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch {
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		}

		if inSingle || inDouble {
			current.WriteRune(ch)
			continue
		}

		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
			continue
		case ')':
			depth--
			if depth < 0 {
				// Unbalanced close: the rest of the string is one
				// opaque segment. Fail closed, not open.
				flush()
				rest := strings.TrimSpace(string(runes[i:]))
				if rest != "" {
					segments = append(segments, rest)
				}
				return segments
			}
			current.WriteRune(ch)
			continue
		}

		if depth > 0 {
			current.WriteRune(ch)
			continue
		}

		// Top-level separator detection.
		switch ch {
		case '&':
			if i+1 < len(runes) && runes[i+1] == '&' {
				flush()
				i++
				continue
			}
			// Single & (background). Treat as a separator too: the
			// command before it still runs.
			flush()
			continue
		case '|':
			// Both || and | split; the second | of || is consumed here.
			if i+1 < len(runes) && runes[i+1] == '|' {
				i++
			}
			flush()
			continue
		case ';':
			flush()
			continue
		}

		current.WriteRune(ch)
	}

	flush()
	return segments
}

// StripBalancedParens removes wrapping parentheses from a token or segment so
// that the command name inside a subshell can be classified. Layers are only
// removed while they form a fully balanced pair, which defeats the bypass of
// hiding a command behind nested subshell syntax: "(((rm)))" classifies as
// "rm", while "((rm" stays untouched.
//
// A single unbalanced paren on either side is also stripped. Naive
// whitespace tokenization of "(git status)" yields "(git" and "status)", and
// those artifacts are safe to clean up exactly because there is only one of
// them. Two or more unbalanced parens are left alone.
//
// The function is idempotent: applying it to its own output is a no-op.
func StripBalancedParens(s string) string {
	s = stripOuterBalanced(s)

	if len(s) >= 2 {
		if s[0] == '(' && s[1] != '(' {
			s = s[1:]
		}
		if len(s) >= 2 && s[len(s)-1] == ')' && s[len(s)-2] != ')' {
			s = s[:len(s)-1]
		}
	}
	return s
}

// stripOuterBalanced repeatedly removes one layer of outer parens while the
// inner content remains balanced.
func stripOuterBalanced(s string) string {
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		inner := s[1 : len(s)-1]
		depth := 0
		balanced := true
		for _, ch := range inner {
			switch ch {
			case '(':
				depth++
			case ')':
				depth--
				if depth < 0 {
					balanced = false
				}
			}
			if !balanced {
				break
			}
		}
		if !balanced || depth != 0 {
			break
		}
		s = inner
	}
	return s
}

// HasCommandSubstitution reports whether the command contains a command
// substitution or process substitution pattern ($(, backtick, <(, >() outside
// of single quotes. These let an inner command smuggle past segment-level
// classification, so the validator rejects them wholesale.
func HasCommandSubstitution(s string) bool {
	inSingle := false
	inDouble := false
	var prev rune

	runes := []rune(s)
	for i, ch := range runes {
		switch {
		case ch == '\'' && !inDouble && prev != '\\':
			inSingle = !inSingle
		case ch == '"' && !inSingle && prev != '\\':
			inDouble = !inDouble
		}

		if !inSingle {
			next := rune(0)
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			switch {
			case ch == '$' && next == '(':
				return true
			case ch == '`':
				return true
			case (ch == '<' || ch == '>') && next == '(':
				return true
			}
		}

		prev = ch
	}
	return false
}

// splitFields tokenizes a segment into whitespace-delimited fields with
// shell-style quote handling. Quotes group; a backslash escapes the next
// character outside single quotes. An unterminated quote returns ok=false so
// the caller can fail closed.
func splitFields(s string) (fields []string, ok bool) {
	var current strings.Builder
	inSingle := false
	inDouble := false
	escaped := false
	hasContent := false

	flush := func() {
		if hasContent {
			fields = append(fields, current.String())
		}
		current.Reset()
		hasContent = false
	}

	for _, ch := range s {
		if escaped {
			current.WriteRune(ch)
			hasContent = true
			escaped = false
			continue
		}

		switch {
		case ch == '\\' && !inSingle:
			escaped = true
			hasContent = true
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			hasContent = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			hasContent = true
		case unicode.IsSpace(ch) && !inSingle && !inDouble:
			flush()
		default:
			current.WriteRune(ch)
			hasContent = true
		}
	}

	if inSingle || inDouble || escaped {
		return nil, false
	}
	flush()
	return fields, true
}
