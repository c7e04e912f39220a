package executor

import (
	"encoding/json"
	"fmt"

	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/safety"
)

// HookInput is the JSON the agent sends on stdin before a tool call.
type HookInput struct {
	SessionID string        `json:"session_id,omitempty"`
	ToolName  string        `json:"tool_name"`
	ToolInput HookToolInput `json:"tool_input"`
}

// HookToolInput carries the Bash tool parameters.
type HookToolInput struct {
	Command string `json:"command"`
}

// HookResponse is the JSON answer expected on stdout.
type HookResponse struct {
	Continue           bool                `json:"continue"`
	SuppressOutput     bool                `json:"suppressOutput,omitempty"`
	SystemMessage      string              `json:"systemMessage,omitempty"`
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries the permission decision.
type HookSpecificOutput struct {
	HookEventName            string `json:"hookEventName,omitempty"`
	PermissionDecision       string `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
}

// EvaluateBashHook validates the command in a PreToolUse hook payload
// against policy and returns the encoded response. Non-Bash tools and
// unparseable payloads are denied: the gate never fails open.
func EvaluateBashHook(input []byte, policy safety.Policy) ([]byte, error) {
	deny := func(reason string) ([]byte, error) {
		return json.Marshal(HookResponse{
			Continue: true,
			HookSpecificOutput: &HookSpecificOutput{
				HookEventName:            "PreToolUse",
				PermissionDecision:       "deny",
				PermissionDecisionReason: reason,
			},
		})
	}

	var in HookInput
	if err := json.Unmarshal(input, &in); err != nil {
		return deny(fmt.Sprintf("could not parse hook input: %v", err))
	}
	if in.ToolName != "" && in.ToolName != "Bash" {
		return deny(fmt.Sprintf("hook received unexpected tool %q", in.ToolName))
	}

	decision := safety.Validate(in.ToolInput.Command, policy)
	if !decision.Allowed {
		perr := wardenerrors.NewPolicyError(in.ToolInput.Command, decision.Reason)
		return json.Marshal(HookResponse{
			Continue:      true,
			SystemMessage: perr.Error(),
			HookSpecificOutput: &HookSpecificOutput{
				HookEventName:            "PreToolUse",
				PermissionDecision:       "deny",
				PermissionDecisionReason: perr.Reason,
			},
		})
	}

	return json.Marshal(HookResponse{
		Continue: true,
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:      "PreToolUse",
			PermissionDecision: "allow",
		},
	})
}
