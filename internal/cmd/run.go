package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/display"
	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/executor"
	"github.com/warden-dev/warden/internal/logging"
	"github.com/warden-dev/warden/internal/orchestrator"
	"github.com/warden-dev/warden/internal/session"
	"github.com/warden-dev/warden/internal/tracker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent loop until the checklist passes",
	Long: `Run starts the session loop: each iteration selects the first eligible
phase, spawns a fresh agent session for it, and persists progress to
.warden/session.json. The loop stops when all tracked items pass, the
iteration limit is reached, or too many sessions fail in a row.`,
	RunE: runRun,
}

var (
	runModel         string
	runMaxIterations int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runModel, "model", "", "model override")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "iteration cap override (0 = use config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(projectDir())
	if err != nil {
		return err
	}

	cfg, err := config.Load(dir, &config.Overrides{Model: runModel, MaxIterations: runMaxIterations})
	if err != nil {
		return err
	}

	auth, err := executor.ResolveAuth(os.Getenv)
	if err != nil {
		return err
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(cfg.StateDir, cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer logger.Close()
	}

	states, err := orchestrator.NewStateStore(cfg.StateDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := states.Load(ctx)
	if err != nil {
		if wardenerrors.IsFatal(err) {
			return fmt.Errorf("%v (run 'warden reset' to discard the broken state)", err)
		}
		return err
	}
	logger = logger.WithRun(state.RunID)

	lock, err := session.AcquireLock(cfg.StateDir, state.RunID, logger)
	if err != nil {
		if wardenerrors.Is(err, wardenerrors.ErrStateLocked) {
			return fmt.Errorf("%v (stop the other run or remove %s)",
				err, filepath.Join(cfg.StateDir, session.LockFileName))
		}
		return err
	}
	defer lock.Release()

	copied, missing, err := cfg.CopyInitFiles()
	if err != nil {
		return err
	}
	for _, path := range copied {
		logger.Info("init file copied", "dest", path)
	}
	for _, src := range missing {
		fmt.Fprintf(os.Stderr, "Warning: init file source not found: %s\n", src)
	}

	progress, err := buildTracker(cfg)
	if err != nil {
		return wardenerrors.Wrap(err, "failed to initialize progress tracker")
	}

	printer := display.NewPrinter(os.Stdout)
	printer.Banner(cfg.ProjectDir, cfg.Model, cfg.MaxIterations)

	hookCommand, err := hookCommandLine(dir)
	if err != nil {
		return err
	}
	cycles := executor.NewAgentRunner(cfg, auth, hookCommand, logger)

	runner := orchestrator.NewRunner(orchestrator.Config{
		Phases:               phasesFromConfig(cfg),
		ProjectDir:           cfg.ProjectDir,
		MaxIterations:        cfg.MaxIterations,
		AutoContinueDelay:    cfg.AutoContinueDelay(),
		MaxConsecutiveErrors: cfg.ErrorRecovery.MaxConsecutiveErrors,
		InitialBackoff:       cfg.ErrorRecovery.InitialBackoff(),
		MaxBackoff:           cfg.ErrorRecovery.MaxBackoff(),
		BackoffMultiplier:    cfg.ErrorRecovery.BackoffMultiplier,
	}, states, cycles, progress, logger, printer)

	result, err := runner.Run(ctx)
	if result != nil {
		printer.Summary(result)
		printPostRunInstructions(cfg)
	}
	return err
}

func buildTracker(cfg *config.Config) (tracker.Tracker, error) {
	return tracker.New(cfg.Tracking.Type, cfg.TrackingFilePath(), cfg.Tracking.PassingField)
}

func phasesFromConfig(cfg *config.Config) []orchestrator.Phase {
	phases := make([]orchestrator.Phase, len(cfg.Phases))
	for i, p := range cfg.Phases {
		phases[i] = orchestrator.Phase{
			Name:         p.Name,
			Instructions: p.Prompt,
			RunOnce:      p.RunOnce,
			Condition:    p.Condition,
		}
	}
	return phases
}

// hookCommandLine builds the command registered as the Bash gate. It
// points at this binary so the generated settings survive PATH changes.
func hookCommandLine(projectDir string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate warden binary: %w", err)
	}
	return fmt.Sprintf("%s hook bash --project-dir %s", exe, projectDir), nil
}

func printPostRunInstructions(cfg *config.Config) {
	if len(cfg.PostRunInstructions) == 0 {
		return
	}
	fmt.Println()
	for _, line := range cfg.PostRunInstructions {
		fmt.Println(line)
	}
}
