// Package verify checks that the environment and configuration are ready
// for a run. Every check runs regardless of earlier failures so the
// operator sees the full picture at once.
package verify

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/executor"
	"github.com/warden-dev/warden/internal/session"
	"github.com/warden-dev/warden/internal/tracker"
)

// Status classifies a check outcome.
type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// CheckResult is the outcome of a single verification check.
type CheckResult struct {
	Name    string
	Status  Status
	Message string
}

func (r CheckResult) String() string {
	line := fmt.Sprintf("  %-8s %s", "["+string(r.Status)+"]", r.Name)
	if r.Message != "" {
		line += " - " + r.Message
	}
	return line
}

func pass(name, message string) CheckResult { return CheckResult{name, StatusPass, message} }
func warn(name, message string) CheckResult { return CheckResult{name, StatusWarn, message} }
func fail(name, message string) CheckResult { return CheckResult{name, StatusFail, message} }

// Options configures a verification run. LookPath and Getenv are
// injectable for tests; zero values fall back to the os implementations.
type Options struct {
	ProjectDir string
	AgentBin   string
	LookPath   func(string) (string, error)
	Getenv     func(string) string
}

func (o *Options) defaults() {
	if o.AgentBin == "" {
		o.AgentBin = "claude"
	}
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
}

// Run executes all checks and returns their results in display order.
func Run(opts Options) []CheckResult {
	opts.defaults()

	results := []CheckResult{
		checkAgentCLI(opts),
		checkAuthentication(opts),
		checkProjectDir(opts.ProjectDir),
		checkConfigExists(opts.ProjectDir),
	}

	cfg, configResult := checkConfigValid(opts.ProjectDir)
	results = append(results, configResult)
	if cfg != nil {
		results = append(results, checkTracking(cfg))
		results = append(results, checkRunLock(cfg.StateDir))
	}
	return results
}

// Failed reports whether any check failed.
func Failed(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

func checkAgentCLI(opts Options) CheckResult {
	path, err := opts.LookPath(opts.AgentBin)
	if err != nil {
		return fail("Agent CLI", fmt.Sprintf("%q not found on PATH", opts.AgentBin))
	}
	return pass("Agent CLI", path)
}

func checkAuthentication(opts Options) CheckResult {
	auth, err := executor.ResolveAuth(opts.Getenv)
	if err != nil {
		return fail("Authentication", err.Error())
	}
	if auth.OAuthToken != "" {
		return pass("Authentication", executor.EnvOAuthToken+" set")
	}
	return pass("Authentication", executor.EnvAPIKey+" set")
}

func checkProjectDir(projectDir string) CheckResult {
	info, err := os.Stat(projectDir)
	if err != nil {
		return fail("Project directory", fmt.Sprintf("not found: %s", projectDir))
	}
	if !info.IsDir() {
		return fail("Project directory", fmt.Sprintf("not a directory: %s", projectDir))
	}
	probe, err := os.CreateTemp(projectDir, ".warden-probe-*")
	if err != nil {
		return fail("Project directory", fmt.Sprintf("not writable: %s", projectDir))
	}
	probe.Close()
	os.Remove(probe.Name())
	return pass("Project directory", projectDir)
}

func checkConfigExists(projectDir string) CheckResult {
	path := filepath.Join(projectDir, config.DirName, config.FileName)
	if _, err := os.Stat(path); err != nil {
		return fail("Config file", fmt.Sprintf("not found: %s (run 'warden init')", path))
	}
	return pass("Config file", path)
}

func checkConfigValid(projectDir string) (*config.Config, CheckResult) {
	cfg, err := config.Load(projectDir, nil)
	if err != nil {
		return nil, fail("Config validation", err.Error())
	}
	return cfg, pass("Config validation", "")
}

func checkTracking(cfg *config.Config) CheckResult {
	if cfg.Tracking.Type == tracker.KindNone || cfg.Tracking.Type == "" {
		return pass("Progress tracking", "none configured")
	}
	t, err := tracker.New(cfg.Tracking.Type, cfg.TrackingFilePath(), cfg.Tracking.PassingField)
	if err != nil {
		return fail("Progress tracking", err.Error())
	}
	if !t.IsInitialized() {
		return warn("Progress tracking", fmt.Sprintf("%s not yet created (the agent creates it)", cfg.Tracking.File))
	}
	return pass("Progress tracking", t.Describe())
}

func checkRunLock(stateDir string) CheckResult {
	lock, live := session.IsLocked(stateDir)
	if lock == nil {
		return pass("Run lock", "no active run")
	}
	if !live {
		return warn("Run lock", fmt.Sprintf("stale lock from pid %d (cleaned on next run)", lock.PID))
	}
	return warn("Run lock", fmt.Sprintf("run %s active (pid %d)", lock.RunID, lock.PID))
}
