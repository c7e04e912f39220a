package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/executor"
	"github.com/warden-dev/warden/internal/safety"
)

// hookCmd is hidden: it exists for the generated agent settings, which
// register "warden hook bash" as the PreToolUse gate for Bash.
var hookCmd = &cobra.Command{
	Use:    "hook",
	Short:  "Internal hook entry points",
	Hidden: true,
}

var hookBashCmd = &cobra.Command{
	Use:   "bash",
	Short: "Validate a Bash tool call from stdin",
	RunE:  runHookBash,
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.AddCommand(hookBashCmd)
}

func runHookBash(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(projectDir())
	if err != nil {
		return err
	}

	policy := safety.DefaultPolicy(nil)
	if cfg, err := config.Load(dir, nil); err == nil {
		policy = safety.Policy{
			AllowedCommands: cfg.Security.Bash.AllowedCommands,
			DeniedCommands:  cfg.Security.Bash.DeniedCommands,
			PkillTargets:    cfg.Security.Bash.PkillTargets,
			ChmodModes:      cfg.Security.Bash.ChmodModes,
		}
	}
	// On config errors the empty allowlist stays in effect: every
	// command is denied rather than letting anything through.

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read hook input: %w", err)
	}

	output, err := executor.EvaluateBashHook(input, policy)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(output)
	return err
}
