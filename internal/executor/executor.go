package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/warden-dev/warden/internal/config"
	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/logging"
	"github.com/warden-dev/warden/internal/orchestrator"
	"github.com/warden-dev/warden/internal/util"
)

// errorSummaryLimit bounds the diagnostic forwarded to the next cycle.
const errorSummaryLimit = 1000

// AgentRunner executes one phase cycle by spawning a fresh agent process.
// Each session starts with clean context; continuity comes from the
// project files and the forwarded error context, not the conversation.
type AgentRunner struct {
	cfg    *config.Config
	auth   Auth
	logger *logging.Logger

	// Output receives the agent's streamed output. Defaults to os.Stdout.
	Output io.Writer
	// AgentBin is the agent binary name. Defaults to "claude".
	AgentBin string
	// HookCommand is registered as the Bash PreToolUse gate.
	HookCommand string
}

// NewAgentRunner wires an AgentRunner. logger may be nil.
func NewAgentRunner(cfg *config.Config, auth Auth, hookCommand string, logger *logging.Logger) *AgentRunner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &AgentRunner{
		cfg:         cfg,
		auth:        auth,
		logger:      logger,
		Output:      os.Stdout,
		AgentBin:    "claude",
		HookCommand: hookCommand,
	}
}

// BuildPrompt composes the prompt for a cycle, prepending recovery
// context when the previous session failed.
func BuildPrompt(instructions, errorContext string) string {
	if errorContext == "" {
		return instructions
	}
	return fmt.Sprintf(
		"Note: The previous session encountered an error: %s\nPlease continue with your work.\n\n%s",
		errorContext, instructions)
}

// RunCycle implements orchestrator.CycleRunner. A non-zero agent exit is
// a transient cycle failure, reported in the result rather than as an
// error; errors are reserved for setup problems and cancellation.
func (r *AgentRunner) RunCycle(ctx context.Context, phase orchestrator.Phase, errorContext string) (orchestrator.CycleResult, error) {
	settingsPath, err := WriteSettings(r.cfg, r.HookCommand)
	if err != nil {
		return orchestrator.CycleResult{},
			wardenerrors.NewCycleError("failed to prepare agent settings", err).WithPhase(phase.Name)
	}

	prompt := BuildPrompt(phase.Instructions, errorContext)

	args := []string{
		"-p", prompt,
		"--model", r.cfg.Model,
		"--max-turns", strconv.Itoa(r.cfg.MaxTurns),
		"--settings", settingsPath,
	}
	if r.cfg.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", r.cfg.SystemPrompt)
	}
	if len(r.cfg.Tools.Builtin) > 0 {
		args = append(args, "--allowed-tools", strings.Join(r.cfg.Tools.Builtin, ","))
	}

	cmd := exec.CommandContext(ctx, r.AgentBin, args...)
	cmd.Dir = r.cfg.ProjectDir
	cmd.Env = append(os.Environ(), r.auth.Env()...)

	var stderr bytes.Buffer
	cmd.Stdout = r.Output
	cmd.Stderr = io.MultiWriter(r.Output, &stderr)

	r.logger.Debug("spawning agent session",
		"phase", phase.Name,
		"model", r.cfg.Model,
		"settings", settingsPath,
	)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return orchestrator.CycleResult{}, ctx.Err()
		}
		summary := summarizeFailure(err, stderr.String())
		r.logger.Warn("agent session failed", "phase", phase.Name, "error", summary)
		return orchestrator.CycleResult{Success: false, ErrorSummary: summary}, nil
	}

	return orchestrator.CycleResult{Success: true, Progressed: true}, nil
}

// summarizeFailure builds a short diagnostic from the exit error and
// captured stderr.
func summarizeFailure(err error, stderr string) string {
	summary := err.Error()
	if s := strings.TrimSpace(stderr); s != "" {
		summary = summary + ": " + s
	}
	return util.TruncateString(summary, errorSummaryLimit)
}
