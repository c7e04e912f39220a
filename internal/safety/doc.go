// Package safety validates shell commands before the agent is allowed to run
// them. It implements an allowlist-based gate: a command string is split into
// independent segments, each segment's command name is checked against the
// configured policy, and command-specific validators catch destructive
// invocations of otherwise-allowed tools (git, pkill, chmod).
//
// # Design
//
// The tokenizer is deliberately not a shell parser. It is a conservative
// left-to-right scanner that tracks parenthesis depth and quote state just
// well enough to find top-level separators. Anything it cannot confidently
// segment is treated as a single opaque command and fails classification.
// When in doubt, the answer is deny.
//
// # Usage
//
//	policy := safety.DefaultPolicy([]string{"ls", "git", "npm"})
//	decision := safety.Validate(`git status && npm test`, policy)
//	if !decision.Allowed {
//	    fmt.Println("blocked:", decision.Reason)
//	}
//
// Validate is a pure function with no side effects, so it is safe to call
// concurrently and trivial to replay in tests.
package safety
