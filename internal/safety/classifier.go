package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// Decision is the outcome of validating a command or a single segment.
// Reason is populated when the command is denied.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Command string `json:"command,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Policy holds the command-safety configuration supplied by the operator.
// The denylist is applied before the allowlist: an explicit deny always
// wins, even for a command that is also allowlisted.
type Policy struct {
	// AllowedCommands are the base command names the agent may run.
	// Matching is case-sensitive and exact; a path-qualified name like
	// /usr/bin/rm is a distinct identity from rm.
	AllowedCommands []string

	// DeniedCommands are names that are always blocked.
	DeniedCommands []string

	// PkillTargets are the only process names pkill may be aimed at.
	PkillTargets []string

	// ChmodModes are the permitted chmod mode arguments, e.g. "+x".
	ChmodModes []string
}

// DefaultPkillTargets covers the usual dev-server processes.
var DefaultPkillTargets = []string{"node", "npm", "npx", "vite", "next", "webpack", "nodemon"}

// DefaultChmodModes permits only executable-bit changes.
var DefaultChmodModes = []string{"+x", "u+x", "a+x", "ug+x"}

// DefaultPolicy returns a Policy for the given allowlist with the default
// pkill and chmod restrictions.
func DefaultPolicy(allowed []string) Policy {
	return Policy{
		AllowedCommands: allowed,
		PkillTargets:    DefaultPkillTargets,
		ChmodModes:      DefaultChmodModes,
	}
}

func allow(command string) Decision {
	return Decision{Allowed: true, Command: command}
}

func deny(command, reason string) Decision {
	return Decision{Allowed: false, Command: command, Reason: reason}
}

// Classify extracts the leading command name from a segment and applies the
// policy to it. Leading KEY=VALUE environment assignments are walked past to
// find the real command; a segment with no identifiable command name (only
// assignments, only a redirection) is denied. A subshell segment whose parens
// hid a chain, like "(ls && rm -rf /)", is re-segmented after stripping and
// every inner command is classified on its own.
func Classify(segment string, policy Policy) Decision {
	segment = strings.TrimSpace(StripBalancedParens(strings.TrimSpace(segment)))
	if segment == "" {
		return deny("", "empty command segment")
	}

	// Segmentation treats parens as opaque, so stripping them here can
	// expose separators the outer pass never saw. Each recursion level
	// removes a paren layer or splits the input, so this terminates.
	if subs := Segment(segment); len(subs) > 1 || (len(subs) == 1 && subs[0] != segment) {
		var d Decision
		for _, sub := range subs {
			if d = Classify(sub, policy); !d.Allowed {
				return d
			}
		}
		return d
	}

	tokens, ok := splitFields(segment)
	if !ok {
		return deny("", fmt.Sprintf("could not parse command for validation: %s", segment))
	}

	name, args := extractCommand(tokens)
	if name == "" {
		return deny("", fmt.Sprintf("no command name found in segment: %s", segment))
	}

	for _, denied := range policy.DeniedCommands {
		if name == denied {
			return deny(name, fmt.Sprintf("command '%s' is explicitly denied", name))
		}
	}

	allowed := false
	for _, a := range policy.AllowedCommands {
		if name == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return deny(name, fmt.Sprintf("command '%s' is not in the allowed commands list", name))
	}

	if v := extraValidators[name]; v != nil {
		if ok, reason := v(name, args, policy); !ok {
			return deny(name, reason)
		}
	}
	return allow(name)
}

// extractCommand returns the command name and its arguments from a token
// list, skipping leading KEY=VALUE environment assignments. Tokens are
// cleaned of subshell paren artifacts before inspection.
func extractCommand(tokens []string) (name string, args []string) {
	for i, tok := range tokens {
		tok = StripBalancedParens(tok)
		if tok == "" {
			continue
		}
		if isEnvAssignment(tok) {
			continue
		}
		rest := make([]string, 0, len(tokens)-i-1)
		for _, arg := range tokens[i+1:] {
			if a := StripBalancedParens(arg); a != "" {
				rest = append(rest, a)
			}
		}
		return tok, rest
	}
	return "", nil
}

// isEnvAssignment reports whether a token has the KEY=VALUE shape. A token
// starting with '=' is not an assignment.
func isEnvAssignment(tok string) bool {
	idx := strings.Index(tok, "=")
	return idx > 0
}

// extraValidator inspects the argument list of an allowlisted command and
// can override the base allow. Pure over its inputs.
type extraValidator func(name string, args []string, policy Policy) (allowed bool, reason string)

// extraValidators maps command names to their additional checks. Every entry
// here only runs after the name has already passed the allowlist.
var extraValidators = map[string]extraValidator{
	"pkill":     validatePkill,
	"chmod":     validateChmod,
	"init.sh":   validateInitScript,
	"./init.sh": validateInitScript,
	"git":       validateGit,
}

// validatePkill allows pkill only against the configured process targets.
// The target is the last non-flag argument, matching pkill's own parsing.
func validatePkill(_ string, args []string, policy Policy) (bool, string) {
	var target string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			target = arg
		}
	}
	if target == "" {
		return false, "pkill requires a process name"
	}
	for _, t := range policy.PkillTargets {
		if target == t {
			return true, ""
		}
	}
	return false, fmt.Sprintf("pkill only allowed for dev processes: %s", strings.Join(policy.PkillTargets, ", "))
}

// validateChmod allows chmod only with an allowlisted mode and at least one
// file operand. Flags are rejected outright (chmod -R can rewrite a tree).
func validateChmod(_ string, args []string, policy Policy) (bool, string) {
	var mode string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return false, "chmod flags are not allowed"
		}
		if mode == "" {
			mode = arg
		}
	}
	if mode == "" {
		return false, "chmod requires a mode"
	}
	if len(args) < 2 {
		return false, "chmod requires at least one file"
	}

	for _, a := range policy.ChmodModes {
		if mode == a {
			return true, ""
		}
		// "u+x" matches an allowed "+x": a who-prefix on an allowed
		// symbolic mode is still only flipping the same bits.
		if strings.HasPrefix(a, "+") || strings.HasPrefix(a, "-") {
			re := regexp.MustCompile(`^[ugoa]+` + regexp.QuoteMeta(a) + `$`)
			if re.MatchString(mode) {
				return true, ""
			}
		}
	}
	return false, fmt.Sprintf("chmod mode '%s' not in allowed modes: %s", mode, strings.Join(policy.ChmodModes, ", "))
}

// validateInitScript allows only a bare ./init.sh invocation.
func validateInitScript(name string, args []string, _ Policy) (bool, string) {
	if name != "./init.sh" {
		return false, fmt.Sprintf("only ./init.sh is allowed, got: %s", name)
	}
	if len(args) > 0 {
		return false, "init.sh does not take arguments"
	}
	return true, ""
}

// validateGit blocks the destructive git subcommands while leaving everyday
// workflow commands (status, add, commit, diff, log, plain push, branch
// switching) alone.
//
// The checkout rule is heuristic: the presence of a literal "--" token marks
// the discard-local-changes form, so a branch that happens to be named "--"
// cannot be switched to through this gate. Accepted approximation.
func validateGit(_ string, args []string, _ Policy) (bool, string) {
	if len(args) == 0 {
		return false, "git requires a subcommand"
	}
	sub := args[0]
	rest := args[1:]

	switch sub {
	case "clean":
		return false, "git clean is not allowed (removes untracked files)"
	case "restore":
		return false, "git restore is not allowed (discards uncommitted changes)"
	case "reset":
		for _, arg := range rest {
			if arg == "--hard" {
				return false, "git reset --hard is not allowed (discards all changes)"
			}
		}
		return true, ""
	case "checkout":
		for _, arg := range rest {
			switch arg {
			case "--":
				return false, "git checkout -- <path> is not allowed (discards changes)"
			case "-f", "--force":
				return false, "git checkout -f/--force is not allowed (discards uncommitted changes)"
			}
		}
		return true, ""
	case "push":
		for _, arg := range rest {
			switch arg {
			case "--force", "-f", "--force-with-lease", "--force-if-includes":
				return false, "force push is not allowed (overwrites remote history)"
			}
			if strings.HasPrefix(arg, "--force-with-lease=") || strings.HasPrefix(arg, "--force-if-includes=") {
				return false, "force push is not allowed (overwrites remote history)"
			}
		}
		return true, ""
	}
	return true, ""
}
