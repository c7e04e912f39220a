package executor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/warden-dev/warden/internal/safety"
)

func decodeResponse(t *testing.T, data []byte) HookResponse {
	t.Helper()
	var resp HookResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return resp
}

func TestEvaluateBashHook(t *testing.T) {
	policy := safety.DefaultPolicy([]string{"ls", "cat", "go"})

	tests := []struct {
		name         string
		input        string
		wantDecision string
		reasonSubstr string
	}{
		{
			name:         "allowed command",
			input:        `{"tool_name":"Bash","tool_input":{"command":"ls -la"}}`,
			wantDecision: "allow",
		},
		{
			name:         "allowed pipeline",
			input:        `{"tool_name":"Bash","tool_input":{"command":"cat go.mod | cat"}}`,
			wantDecision: "allow",
		},
		{
			name:         "disallowed command",
			input:        `{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`,
			wantDecision: "deny",
			reasonSubstr: "rm",
		},
		{
			name:         "disallowed segment in chain",
			input:        `{"tool_name":"Bash","tool_input":{"command":"ls && curl example.com"}}`,
			wantDecision: "deny",
			reasonSubstr: "curl",
		},
		{
			name:         "unparseable payload",
			input:        `{not json`,
			wantDecision: "deny",
			reasonSubstr: "could not parse",
		},
		{
			name:         "unexpected tool",
			input:        `{"tool_name":"Write","tool_input":{"command":"ls"}}`,
			wantDecision: "deny",
			reasonSubstr: "unexpected tool",
		},
		{
			name:         "missing tool name still validated",
			input:        `{"tool_input":{"command":"ls"}}`,
			wantDecision: "allow",
		},
		{
			name:         "empty command",
			input:        `{"tool_name":"Bash","tool_input":{"command":""}}`,
			wantDecision: "deny",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := EvaluateBashHook([]byte(tt.input), policy)
			if err != nil {
				t.Fatalf("EvaluateBashHook: %v", err)
			}
			resp := decodeResponse(t, out)

			if !resp.Continue {
				t.Error("Continue = false, want true")
			}
			if resp.HookSpecificOutput == nil {
				t.Fatal("missing hookSpecificOutput")
			}
			if got := resp.HookSpecificOutput.PermissionDecision; got != tt.wantDecision {
				t.Errorf("decision = %q, want %q (reason: %q)",
					got, tt.wantDecision, resp.HookSpecificOutput.PermissionDecisionReason)
			}
			if resp.HookSpecificOutput.HookEventName != "PreToolUse" {
				t.Errorf("hookEventName = %q", resp.HookSpecificOutput.HookEventName)
			}
			if tt.reasonSubstr != "" {
				reason := resp.HookSpecificOutput.PermissionDecisionReason
				if !strings.Contains(reason, tt.reasonSubstr) {
					t.Errorf("reason %q does not mention %q", reason, tt.reasonSubstr)
				}
			}
			if tt.wantDecision == "deny" && resp.HookSpecificOutput.PermissionDecisionReason == "" {
				t.Error("deny without a reason")
			}
		})
	}
}

func TestEvaluateBashHookPolicyDenialMessage(t *testing.T) {
	policy := safety.DefaultPolicy([]string{"ls"})

	out, err := EvaluateBashHook([]byte(`{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`), policy)
	if err != nil {
		t.Fatalf("EvaluateBashHook: %v", err)
	}
	resp := decodeResponse(t, out)

	if resp.HookSpecificOutput == nil || resp.HookSpecificOutput.PermissionDecision != "deny" {
		t.Fatalf("response = %+v, want deny", resp)
	}
	if !strings.Contains(resp.SystemMessage, "command blocked") {
		t.Errorf("SystemMessage = %q, want the blocked-command notice", resp.SystemMessage)
	}
	if !strings.Contains(resp.SystemMessage, "command=rm -rf /") {
		t.Errorf("SystemMessage = %q, want the offending command", resp.SystemMessage)
	}
}
