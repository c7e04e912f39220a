package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/logging"
)

// LockFileName is the name of the lock file within the state directory.
const LockFileName = "warden.lock"

// ErrRunLocked is returned when another process already holds the run lock.
// It is the shared state-locked sentinel, so callers can match either name.
var ErrRunLocked = wardenerrors.ErrStateLocked

// Lock represents an acquired run lock. Only one warden run may operate on
// a project's state directory at a time.
type Lock struct {
	RunID     string    `json:"run_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	lockFile string
	logger   *logging.Logger
}

// AcquireLock attempts to take an exclusive lock on the state directory.
// A lock held by a dead process is treated as stale and removed. Returns
// ErrRunLocked if a live process holds the lock. The logger may be nil when
// the lock is acquired before logging is set up.
func AcquireLock(stateDir, runID string, logger *logging.Logger) (*Lock, error) {
	lockPath := filepath.Join(stateDir, LockFileName)

	if existing, err := ReadLock(lockPath); err == nil {
		if isProcessAlive(existing.PID) {
			if logger != nil {
				logger.Error("failed to acquire run lock",
					"run_id", runID,
					"holder_pid", existing.PID,
					"holder_host", existing.Hostname,
				)
			}
			return nil, fmt.Errorf("%w: PID %d on %s", ErrRunLocked, existing.PID, existing.Hostname)
		}
		oldPID := existing.PID
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		if logger != nil {
			logger.Warn("stale run lock cleaned", "run_id", runID, "old_pid", oldPID)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		RunID:     runID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		lockFile:  lockPath,
		logger:    logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL guards against two processes racing past the stale check
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := ReadLock(lockPath); readErr == nil {
				return nil, fmt.Errorf("%w: PID %d on %s", ErrRunLocked, existing.PID, existing.Hostname)
			}
			return nil, ErrRunLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	if logger != nil {
		logger.Info("run lock acquired", "run_id", runID, "pid", lock.PID)
	}
	return lock, nil
}

// Release removes the lock file. Safe to call multiple times, and a no-op
// if another process has since taken the lock.
func (l *Lock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}

	existing, err := ReadLock(l.lockFile)
	if err != nil {
		return nil
	}
	if existing.PID != l.PID {
		return nil
	}

	if err := os.Remove(l.lockFile); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Info("run lock released", "run_id", l.RunID)
	}
	return nil
}

// ReadLock reads a lock file and returns the Lock info.
func ReadLock(lockPath string) (*Lock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.lockFile = lockPath
	return &lock, nil
}

// IsLocked reports whether the state directory is held by a live process.
// Returns the lock info when a lock file exists, even if stale.
func IsLocked(stateDir string) (*Lock, bool) {
	lock, err := ReadLock(filepath.Join(stateDir, LockFileName))
	if err != nil {
		return nil, false
	}
	if !isProcessAlive(lock.PID) {
		return lock, false
	}
	return lock, true
}

// CleanStaleLock removes the lock file if its owning process is gone.
// Returns true if a stale lock was cleaned.
func CleanStaleLock(stateDir string, logger *logging.Logger) (bool, error) {
	lockPath := filepath.Join(stateDir, LockFileName)

	lock, err := ReadLock(lockPath)
	if err != nil {
		return false, nil
	}
	if isProcessAlive(lock.PID) {
		return false, nil
	}

	if err := os.Remove(lockPath); err != nil {
		return false, fmt.Errorf("failed to remove stale lock: %w", err)
	}
	if logger != nil {
		logger.Warn("stale run lock cleaned", "run_id", lock.RunID, "old_pid", lock.PID)
	}
	return true, nil
}

// isProcessAlive checks whether a process with the given PID is running.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering a signal.
	return process.Signal(syscall.Signal(0)) == nil
}
