package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/orchestrator"
	"github.com/warden-dev/warden/internal/session"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear persisted run state",
	Long: `Reset deletes .warden/session.json: session numbering, completed
run-once phases, and the consecutive-error counter all start fresh.
Use it after fixing whatever tripped the error circuit breaker.`,
	RunE: runReset,
}

var resetForce bool

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(projectDir())
	if err != nil {
		return err
	}
	stateDir := filepath.Join(dir, config.DirName)

	if lock, live := session.IsLocked(stateDir); live {
		return fmt.Errorf("run %s is active (pid %d); stop it before resetting", lock.RunID, lock.PID)
	}

	states, err := orchestrator.NewStateStore(stateDir)
	if err != nil {
		return err
	}
	exists, err := states.Exists(cmd.Context())
	if err != nil {
		return err
	}
	if !exists {
		fmt.Println("No run state to reset.")
		return nil
	}

	if !resetForce {
		fmt.Print("This clears session history and the error counter. Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := states.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Run state cleared.")
	return nil
}
