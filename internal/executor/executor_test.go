package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/orchestrator"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-agent")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildPrompt(t *testing.T) {
	if got := BuildPrompt("do the work", ""); got != "do the work" {
		t.Errorf("BuildPrompt without context = %q", got)
	}

	got := BuildPrompt("do the work", "tests failed")
	if !strings.HasPrefix(got, "Note: The previous session encountered an error: tests failed\n") {
		t.Errorf("prompt does not lead with the recovery note: %q", got)
	}
	if !strings.HasSuffix(got, "\n\ndo the work") {
		t.Errorf("prompt does not end with the instructions: %q", got)
	}
}

func TestRunCycleSuccess(t *testing.T) {
	cfg := testConfig(t)
	runner := NewAgentRunner(cfg, Auth{APIKey: "test-key"}, "warden hook bash", nil)
	runner.AgentBin = writeScript(t, `echo "session output"`)

	var out bytes.Buffer
	runner.Output = &out

	phase := orchestrator.Phase{Name: "implement", Instructions: "build it"}
	result, err := runner.RunCycle(context.Background(), phase, "")
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v, want success", result)
	}
	if !strings.Contains(out.String(), "session output") {
		t.Errorf("output not streamed: %q", out.String())
	}

	if _, err := os.Stat(filepath.Join(cfg.StateDir, SettingsFileName)); err != nil {
		t.Errorf("settings file not written: %v", err)
	}
}

func TestRunCycleSettingsFailureIsCycleError(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.StateDir = filepath.Join(blocker, "state")

	runner := NewAgentRunner(cfg, Auth{APIKey: "test-key"}, "", nil)
	runner.Output = &bytes.Buffer{}

	_, err := runner.RunCycle(context.Background(), orchestrator.Phase{Name: "implement"}, "")
	if err == nil {
		t.Fatal("expected error when the settings file cannot be written")
	}
	var cycleErr *wardenerrors.CycleError
	if !wardenerrors.As(err, &cycleErr) {
		t.Fatalf("error = %v, want *CycleError", err)
	}
	if cycleErr.Phase != "implement" {
		t.Errorf("Phase = %q, want %q", cycleErr.Phase, "implement")
	}
}

func TestRunCycleFailureIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	runner := NewAgentRunner(cfg, Auth{APIKey: "test-key"}, "", nil)
	runner.AgentBin = writeScript(t, `echo "boom" >&2; exit 3`)
	runner.Output = &bytes.Buffer{}

	phase := orchestrator.Phase{Name: "implement", Instructions: "build it"}
	result, err := runner.RunCycle(context.Background(), phase, "")
	if err != nil {
		t.Fatalf("RunCycle returned error for agent exit: %v", err)
	}
	if result.Success {
		t.Fatal("result.Success = true for non-zero exit")
	}
	if !strings.Contains(result.ErrorSummary, "exit status 3") {
		t.Errorf("summary %q missing exit status", result.ErrorSummary)
	}
	if !strings.Contains(result.ErrorSummary, "boom") {
		t.Errorf("summary %q missing stderr", result.ErrorSummary)
	}
}

func TestRunCycleForwardsPromptAndFlags(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model = "test-model"
	argsFile := filepath.Join(t.TempDir(), "args")

	runner := NewAgentRunner(cfg, Auth{APIKey: "test-key"}, "", nil)
	runner.AgentBin = writeScript(t, `printf '%s\n' "$@" > `+argsFile)
	runner.Output = &bytes.Buffer{}

	phase := orchestrator.Phase{Name: "implement", Instructions: "build it"}
	if _, err := runner.RunCycle(context.Background(), phase, "tests failed"); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := string(data)
	if !strings.Contains(args, "tests failed") {
		t.Errorf("args missing recovery note: %q", args)
	}
	if !strings.Contains(args, "build it") {
		t.Errorf("args missing instructions: %q", args)
	}
	if !strings.Contains(args, "--model\ntest-model") {
		t.Errorf("args missing model flag: %q", args)
	}
	if !strings.Contains(args, "--settings") {
		t.Errorf("args missing settings flag: %q", args)
	}
}

func TestRunCycleCanceled(t *testing.T) {
	cfg := testConfig(t)
	runner := NewAgentRunner(cfg, Auth{APIKey: "test-key"}, "", nil)
	runner.AgentBin = writeScript(t, `sleep 10`)
	runner.Output = &bytes.Buffer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	phase := orchestrator.Phase{Name: "implement", Instructions: "build it"}
	_, err := runner.RunCycle(ctx, phase, "")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if ctx.Err() == nil || err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSummarizeFailureTruncates(t *testing.T) {
	long := strings.Repeat("x", 2*errorSummaryLimit)
	got := summarizeFailure(os.ErrClosed, long)
	if len(got) > errorSummaryLimit+3 {
		t.Errorf("summary length = %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated summary missing ellipsis: %q", got[len(got)-10:])
	}
}
