package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func readLogLines(t *testing.T, path string) []map[string]any {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not valid JSON: %v", err)
		}
		lines = append(lines, entry)
	}
	return lines
}

func TestNewLoggerWritesJSONToStateDir(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("run started", "max_iterations", 10)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := readLogLines(t, filepath.Join(dir, LogFileName))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
	if lines[0]["msg"] != "run started" {
		t.Errorf("msg = %v, want %q", lines[0]["msg"], "run started")
	}
	if lines[0]["max_iterations"] != float64(10) {
		t.Errorf("max_iterations = %v, want 10", lines[0]["max_iterations"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	logger.Close()

	lines := readLogLines(t, filepath.Join(dir, LogFileName))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines at WARN level, got %d", len(lines))
	}
	if lines[0]["msg"] != "warn message" || lines[1]["msg"] != "error message" {
		t.Errorf("unexpected messages: %v, %v", lines[0]["msg"], lines[1]["msg"])
	}
}

func TestLoggerContextChaining(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	child := logger.WithRun("run-abc").WithSession(3).WithPhase("implement")
	child.Info("phase selected")

	// The parent logger must not inherit the child's attributes.
	logger.Info("plain entry")
	logger.Close()

	lines := readLogLines(t, filepath.Join(dir, LogFileName))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	got := lines[0]
	if got["run_id"] != "run-abc" {
		t.Errorf("run_id = %v, want run-abc", got["run_id"])
	}
	if got["session"] != "3" {
		t.Errorf("session = %v, want 3", got["session"])
	}
	if got["phase"] != "implement" {
		t.Errorf("phase = %v, want implement", got["phase"])
	}

	if _, ok := lines[1]["run_id"]; ok {
		t.Error("parent logger should not carry run_id attribute")
	}
}

func TestLoggerWith(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.With("command", "git status", "allowed", true).Info("gate decision")
	logger.Close()

	lines := readLogLines(t, filepath.Join(dir, LogFileName))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(lines))
	}
	if lines[0]["command"] != "git status" {
		t.Errorf("command = %v, want %q", lines[0]["command"], "git status")
	}
	if lines[0]["allowed"] != true {
		t.Errorf("allowed = %v, want true", lines[0]["allowed"])
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NopLogger()
	logger.Info("discarded")
	logger.WithRun("x").Error("also discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
