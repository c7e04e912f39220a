package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/tracker"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	projectDir := t.TempDir()
	stateDir := filepath.Join(projectDir, DirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatalf("mkdir state dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return projectDir
}

func TestLoadMinimalConfig(t *testing.T) {
	projectDir := writeConfig(t, `
[[phases]]
name = "work"
prompt = "do the work"
`)

	cfg, err := Load(projectDir, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want default %q", cfg.Model, DefaultModel)
	}
	if cfg.MaxTurns != 1000 {
		t.Errorf("MaxTurns = %d, want 1000", cfg.MaxTurns)
	}
	if cfg.ErrorRecovery.MaxConsecutiveErrors != 5 {
		t.Errorf("MaxConsecutiveErrors = %d, want 5", cfg.ErrorRecovery.MaxConsecutiveErrors)
	}
	if cfg.ErrorRecovery.InitialBackoffSeconds != 5.0 {
		t.Errorf("InitialBackoffSeconds = %v, want 5.0", cfg.ErrorRecovery.InitialBackoffSeconds)
	}
	if cfg.ErrorRecovery.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", cfg.ErrorRecovery.BackoffMultiplier)
	}
	if cfg.Tracking.Type != tracker.KindNone {
		t.Errorf("Tracking.Type = %q, want none", cfg.Tracking.Type)
	}
	if len(cfg.Phases) != 1 || cfg.Phases[0].Name != "work" {
		t.Errorf("Phases = %+v, want single phase named work", cfg.Phases)
	}
	if cfg.ProjectDir != projectDir {
		t.Errorf("ProjectDir = %q, want %q", cfg.ProjectDir, projectDir)
	}
	if cfg.StateDir != filepath.Join(projectDir, DirName) {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, filepath.Join(projectDir, DirName))
	}
}

func TestLoadFullConfig(t *testing.T) {
	projectDir := writeConfig(t, `
model = "claude-opus-4-1"
system_prompt = "build it"
max_turns = 50
max_iterations = 20
auto_continue_delay = 1
post_run_instructions = ["review the diff"]

[security]
permission_mode = "default"

[security.bash]
allowed_commands = ["ls", "git", "npm"]
denied_commands = ["rm"]
pkill_targets = ["node"]
chmod_modes = ["+x"]

[tracking]
type = "json_checklist"
file = "tests.json"
passing_field = "done"

[error_recovery]
max_consecutive_errors = 3
initial_backoff_seconds = 2.0
max_backoff_seconds = 60.0
backoff_multiplier = 3.0

[[phases]]
name = "plan"
prompt = "make a plan"
run_once = true
condition = "not_exists:PLAN.md"

[[phases]]
name = "implement"
prompt = "implement the plan"

[[init_files]]
source = "templates/tests.json"
dest = "tests.json"
`)

	cfg, err := Load(projectDir, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model != "claude-opus-4-1" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.MaxIterations != 20 {
		t.Errorf("MaxIterations = %d, want 20", cfg.MaxIterations)
	}
	if got := cfg.Security.Bash.AllowedCommands; len(got) != 3 || got[1] != "git" {
		t.Errorf("AllowedCommands = %v", got)
	}
	if cfg.Tracking.PassingField != "done" {
		t.Errorf("PassingField = %q, want done", cfg.Tracking.PassingField)
	}
	if !cfg.Phases[0].RunOnce {
		t.Error("phases[0].RunOnce = false, want true")
	}
	if cfg.Phases[0].Condition != "not_exists:PLAN.md" {
		t.Errorf("phases[0].Condition = %q", cfg.Phases[0].Condition)
	}
	if len(cfg.InitFiles) != 1 || cfg.InitFiles[0].Dest != "tests.json" {
		t.Errorf("InitFiles = %+v", cfg.InitFiles)
	}
	if len(cfg.PostRunInstructions) != 1 {
		t.Errorf("PostRunInstructions = %v", cfg.PostRunInstructions)
	}

	want := filepath.Join(projectDir, "tests.json")
	if got := cfg.TrackingFilePath(); got != want {
		t.Errorf("TrackingFilePath() = %q, want %q", got, want)
	}
}

func TestLoadMissingConfig(t *testing.T) {
	_, err := Load(t.TempDir(), nil)
	if !errors.Is(err, wardenerrors.ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	projectDir := writeConfig(t, `model = [unclosed`)

	_, err := Load(projectDir, nil)
	if !errors.Is(err, wardenerrors.ErrConfigInvalid) {
		t.Errorf("Load() error = %v, want ErrConfigInvalid", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	projectDir := writeConfig(t, `
model = "claude-sonnet-4-5-20250929"
max_iterations = 10

[[phases]]
name = "work"
prompt = "go"
`)

	cfg, err := Load(projectDir, &Overrides{Model: "claude-opus-4-1", MaxIterations: 2})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "claude-opus-4-1" {
		t.Errorf("Model = %q, override not applied", cfg.Model)
	}
	if cfg.MaxIterations != 2 {
		t.Errorf("MaxIterations = %d, override not applied", cfg.MaxIterations)
	}
}

func TestLoadResolvesFileReferences(t *testing.T) {
	projectDir := writeConfig(t, `
system_prompt = "file:prompts/system.md"

[[phases]]
name = "work"
prompt = "file:prompts/work.md"
`)
	stateDir := filepath.Join(projectDir, DirName)
	if err := os.MkdirAll(filepath.Join(stateDir, "prompts"), 0755); err != nil {
		t.Fatalf("mkdir prompts: %v", err)
	}
	os.WriteFile(filepath.Join(stateDir, "prompts", "system.md"), []byte("you are warden"), 0644)
	os.WriteFile(filepath.Join(stateDir, "prompts", "work.md"), []byte("do the work"), 0644)

	cfg, err := Load(projectDir, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SystemPrompt != "you are warden" {
		t.Errorf("SystemPrompt = %q, file ref not resolved", cfg.SystemPrompt)
	}
	if cfg.Phases[0].Prompt != "do the work" {
		t.Errorf("Phases[0].Prompt = %q, file ref not resolved", cfg.Phases[0].Prompt)
	}
}

func TestResolveFileReference(t *testing.T) {
	stateDir := t.TempDir()
	os.WriteFile(filepath.Join(stateDir, "prompt.md"), []byte("contents"), 0644)

	t.Run("plain value passes through", func(t *testing.T) {
		got, err := ResolveFileReference("just a prompt", stateDir)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if got != "just a prompt" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("file ref resolves", func(t *testing.T) {
		got, err := ResolveFileReference("file:prompt.md", stateDir)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if got != "contents" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("escape is rejected", func(t *testing.T) {
		if _, err := ResolveFileReference("file:../outside.md", stateDir); err == nil {
			t.Error("expected error for reference escaping the state directory")
		}
	})

	t.Run("missing file is rejected", func(t *testing.T) {
		if _, err := ResolveFileReference("file:nope.md", stateDir); err == nil {
			t.Error("expected error for missing referenced file")
		}
	})
}
