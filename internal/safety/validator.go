package safety

import "strings"

// Validate runs the full command-safety check over a raw command string.
// The string is segmented at top-level separators and every segment must
// individually pass classification; the first denial decides the result.
// Compound commands therefore fail closed — one bad segment blocks the
// whole string.
//
// An empty or whitespace-only command is allowed: there is nothing to run.
func Validate(raw string, policy Policy) Decision {
	if strings.TrimSpace(raw) == "" {
		return Decision{Allowed: true}
	}

	if HasCommandSubstitution(raw) {
		return Decision{
			Allowed: false,
			Reason:  "command substitution patterns ($(, `, <(, >() are not allowed",
		}
	}

	segments := Segment(StripBalancedParens(strings.TrimSpace(raw)))
	if len(segments) == 0 {
		return Decision{
			Allowed: false,
			Reason:  "could not parse command for security validation: " + raw,
		}
	}

	for _, segment := range segments {
		if d := Classify(segment, policy); !d.Allowed {
			return d
		}
	}
	return Decision{Allowed: true}
}
