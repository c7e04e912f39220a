package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/warden-dev/warden/internal/config"
	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/orchestrator"
	"github.com/warden-dev/warden/internal/session"
	"github.com/warden-dev/warden/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run state and checklist progress",
	Long: `Status prints the persisted run state and, when tracking is
configured, the checklist progress. With --watch it keeps running and
reprints progress whenever the tracking file changes.`,
	RunE: runStatus,
}

var statusWatch bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "follow tracking file changes")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(projectDir())
	if err != nil {
		return err
	}

	cfg, err := config.Load(dir, nil)
	if err != nil {
		return err
	}

	states, err := orchestrator.NewStateStore(cfg.StateDir)
	if err != nil {
		return err
	}
	state, err := states.Load(cmd.Context())
	if err != nil {
		var stateErr *wardenerrors.StateError
		if errors.As(err, &stateErr) {
			return fmt.Errorf("%v (run 'warden reset' to discard the broken state)", err)
		}
		return err
	}

	fmt.Printf("Run:      %s\n", state.RunID)
	fmt.Printf("Sessions: %d\n", state.SessionNumber)
	if len(state.CompletedPhases) > 0 {
		fmt.Printf("Completed phases: %v\n", state.CompletedPhases)
	}
	if state.ConsecutiveErrors > 0 {
		fmt.Printf("Consecutive errors: %d (breaker at %d)\n",
			state.ConsecutiveErrors, cfg.ErrorRecovery.MaxConsecutiveErrors)
	}
	if lock, live := session.IsLocked(cfg.StateDir); live {
		fmt.Printf("Active:   pid %d on %s\n", lock.PID, lock.Hostname)
	}

	progress, err := tracker.New(cfg.Tracking.Type, cfg.TrackingFilePath(), cfg.Tracking.PassingField)
	if err != nil {
		return err
	}
	fmt.Println(progress.Describe())

	if !statusWatch || cfg.TrackingFilePath() == "" {
		return nil
	}
	return watchTracker(cfg, progress)
}

// watchTracker reprints progress whenever the tracking file changes. The
// watch is on the containing directory: editors and the agent both
// replace the file by rename, which drops a watch set on the file itself.
func watchTracker(cfg *config.Config, progress tracker.Tracker) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	trackedPath := cfg.TrackingFilePath()
	if err := watcher.Add(filepath.Dir(trackedPath)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Watching for changes (ctrl-c to stop)...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != trackedPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fmt.Println(progress.Describe())
			if progress.IsComplete() {
				fmt.Println("All tracked items passing.")
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}
