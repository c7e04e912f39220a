// Package config loads and validates the project configuration from
// .warden/config.toml. Prompts may be inlined in the TOML or pulled from
// files in the .warden directory via "file:" references.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/tracker"
)

// DirName is the per-project directory holding config and run state.
const DirName = ".warden"

// FileName is the config file name inside DirName.
const FileName = "config.toml"

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// DefaultSystemPrompt is used when no system prompt is configured.
const DefaultSystemPrompt = "You are a helpful coding assistant."

// DefaultBuiltinTools are the agent tools enabled when none are configured.
var DefaultBuiltinTools = []string{"Read", "Write", "Edit", "Glob", "Grep", "Bash"}

// Config represents the complete warden configuration.
type Config struct {
	// Model is the model identifier passed to the agent.
	Model string `mapstructure:"model"`
	// SystemPrompt is the system prompt for every session. Supports file: refs.
	SystemPrompt string `mapstructure:"system_prompt"`
	// MaxTurns caps agent turns within a single session.
	MaxTurns int `mapstructure:"max_turns"`
	// MaxIterations caps total loop iterations (0 = unlimited).
	MaxIterations int `mapstructure:"max_iterations"`
	// AutoContinueDelaySeconds is the pause between successful sessions.
	AutoContinueDelaySeconds int `mapstructure:"auto_continue_delay"`

	Tools         ToolsConfig         `mapstructure:"tools"`
	Security      SecurityConfig      `mapstructure:"security"`
	Tracking      TrackingConfig      `mapstructure:"tracking"`
	ErrorRecovery ErrorRecoveryConfig `mapstructure:"error_recovery"`
	Logging       LoggingConfig       `mapstructure:"logging"`

	// Phases are tried in declared order each cycle.
	Phases []PhaseConfig `mapstructure:"phases"`
	// InitFiles are copied into the project on `warden init`.
	InitFiles []InitFileConfig `mapstructure:"init_files"`
	// PostRunInstructions are printed after the loop terminates.
	PostRunInstructions []string `mapstructure:"post_run_instructions"`

	// Resolved paths, set by Load rather than from TOML.
	ProjectDir string `mapstructure:"-"`
	StateDir   string `mapstructure:"-"`
}

// ToolsConfig selects which agent tools are available.
type ToolsConfig struct {
	// Builtin is the list of built-in tool names to enable.
	Builtin []string `mapstructure:"builtin"`
}

// SecurityConfig controls the command gate and agent permissions.
type SecurityConfig struct {
	// PermissionMode is the agent permission mode.
	// Options: "default", "acceptEdits", "bypassPermissions", "plan"
	PermissionMode string `mapstructure:"permission_mode"`
	// Bash configures the shell command gate.
	Bash BashPolicyConfig `mapstructure:"bash"`
}

// BashPolicyConfig is the policy input for the shell command gate.
type BashPolicyConfig struct {
	// AllowedCommands is the command-name allowlist. An empty list means
	// every command is denied.
	AllowedCommands []string `mapstructure:"allowed_commands"`
	// DeniedCommands always deny, even when a name is also allowed.
	DeniedCommands []string `mapstructure:"denied_commands"`
	// PkillTargets restricts what process names pkill may match.
	PkillTargets []string `mapstructure:"pkill_targets"`
	// ChmodModes restricts what modes chmod may set.
	ChmodModes []string `mapstructure:"chmod_modes"`
}

// TrackingConfig selects the progress tracker backend.
type TrackingConfig struct {
	// Type is one of "json_checklist", "notes_file", "none".
	Type string `mapstructure:"type"`
	// File is the tracking file path relative to the project directory.
	File string `mapstructure:"file"`
	// PassingField is the checklist item field holding the completion flag.
	PassingField string `mapstructure:"passing_field"`
}

// ErrorRecoveryConfig controls backoff and the circuit breaker.
type ErrorRecoveryConfig struct {
	// MaxConsecutiveErrors trips the breaker and aborts the run.
	MaxConsecutiveErrors int `mapstructure:"max_consecutive_errors"`
	// InitialBackoffSeconds is the delay after the first failure.
	InitialBackoffSeconds float64 `mapstructure:"initial_backoff_seconds"`
	// MaxBackoffSeconds caps the computed delay.
	MaxBackoffSeconds float64 `mapstructure:"max_backoff_seconds"`
	// BackoffMultiplier grows the delay per consecutive failure.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

// LoggingConfig controls the run log.
type LoggingConfig struct {
	// Enabled controls whether the run log is written (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// MaxSizeMB is the log size in megabytes before rotation
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep
	MaxBackups int `mapstructure:"max_backups"`
}

// PhaseConfig declares a single phase of the run loop.
type PhaseConfig struct {
	// Name identifies the phase in state and logs.
	Name string `mapstructure:"name"`
	// Prompt is the phase instructions. Supports file: refs.
	Prompt string `mapstructure:"prompt"`
	// RunOnce phases are skipped forever after one successful cycle.
	RunOnce bool `mapstructure:"run_once"`
	// Condition gates eligibility: "exists:<path>" or "not_exists:<path>",
	// resolved relative to the project directory. Empty means always eligible.
	Condition string `mapstructure:"condition"`
}

// InitFileConfig declares a file to copy on first run.
type InitFileConfig struct {
	Source string `mapstructure:"source"`
	Dest   string `mapstructure:"dest"`
}

// AutoContinueDelay returns the inter-session pause as a time.Duration.
func (c *Config) AutoContinueDelay() time.Duration {
	return time.Duration(c.AutoContinueDelaySeconds) * time.Second
}

// InitialBackoff returns the initial backoff as a time.Duration.
func (e *ErrorRecoveryConfig) InitialBackoff() time.Duration {
	return time.Duration(e.InitialBackoffSeconds * float64(time.Second))
}

// MaxBackoff returns the backoff cap as a time.Duration.
func (e *ErrorRecoveryConfig) MaxBackoff() time.Duration {
	return time.Duration(e.MaxBackoffSeconds * float64(time.Second))
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model:                    DefaultModel,
		SystemPrompt:             DefaultSystemPrompt,
		MaxTurns:                 1000,
		MaxIterations:            0,
		AutoContinueDelaySeconds: 3,
		Tools: ToolsConfig{
			Builtin: append([]string(nil), DefaultBuiltinTools...),
		},
		Security: SecurityConfig{
			PermissionMode: "acceptEdits",
			Bash: BashPolicyConfig{
				AllowedCommands: []string{},
				DeniedCommands:  []string{},
				PkillTargets:    []string{},
				ChmodModes:      []string{},
			},
		},
		Tracking: TrackingConfig{
			Type:         tracker.KindNone,
			File:         "",
			PassingField: tracker.DefaultPassingField,
		},
		ErrorRecovery: ErrorRecoveryConfig{
			MaxConsecutiveErrors:  5,
			InitialBackoffSeconds: 5.0,
			MaxBackoffSeconds:     120.0,
			BackoffMultiplier:     2.0,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Phases:              []PhaseConfig{},
		InitFiles:           []InitFileConfig{},
		PostRunInstructions: []string{},
	}
}

// setDefaults registers default values on a viper instance.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("model", defaults.Model)
	v.SetDefault("system_prompt", defaults.SystemPrompt)
	v.SetDefault("max_turns", defaults.MaxTurns)
	v.SetDefault("max_iterations", defaults.MaxIterations)
	v.SetDefault("auto_continue_delay", defaults.AutoContinueDelaySeconds)

	v.SetDefault("tools.builtin", defaults.Tools.Builtin)

	v.SetDefault("security.permission_mode", defaults.Security.PermissionMode)
	v.SetDefault("security.bash.allowed_commands", defaults.Security.Bash.AllowedCommands)
	v.SetDefault("security.bash.denied_commands", defaults.Security.Bash.DeniedCommands)
	v.SetDefault("security.bash.pkill_targets", defaults.Security.Bash.PkillTargets)
	v.SetDefault("security.bash.chmod_modes", defaults.Security.Bash.ChmodModes)

	v.SetDefault("tracking.type", defaults.Tracking.Type)
	v.SetDefault("tracking.file", defaults.Tracking.File)
	v.SetDefault("tracking.passing_field", defaults.Tracking.PassingField)

	v.SetDefault("error_recovery.max_consecutive_errors", defaults.ErrorRecovery.MaxConsecutiveErrors)
	v.SetDefault("error_recovery.initial_backoff_seconds", defaults.ErrorRecovery.InitialBackoffSeconds)
	v.SetDefault("error_recovery.max_backoff_seconds", defaults.ErrorRecovery.MaxBackoffSeconds)
	v.SetDefault("error_recovery.backoff_multiplier", defaults.ErrorRecovery.BackoffMultiplier)

	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Overrides carries CLI flag values that take precedence over the file.
type Overrides struct {
	Model         string
	MaxIterations int
}

// Load reads and validates .warden/config.toml under projectDir.
// Returns ErrConfigNotFound when the file is missing and ErrConfigInvalid
// when it fails to parse or validate.
func Load(projectDir string, overrides *Overrides) (*Config, error) {
	stateDir := filepath.Join(projectDir, DirName)
	configPath := filepath.Join(stateDir, FileName)

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", wardenerrors.ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("failed to check config file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", wardenerrors.ErrConfigInvalid, configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", wardenerrors.ErrConfigInvalid, err)
	}

	cfg.ProjectDir = projectDir
	cfg.StateDir = stateDir

	if overrides != nil {
		if overrides.Model != "" {
			cfg.Model = overrides.Model
		}
		if overrides.MaxIterations > 0 {
			cfg.MaxIterations = overrides.MaxIterations
		}
	}

	// Resolve file: references before validation so empty referenced
	// prompts are caught.
	resolved, err := ResolveFileReference(cfg.SystemPrompt, stateDir)
	if err != nil {
		return nil, fmt.Errorf("%w: system_prompt: %v", wardenerrors.ErrConfigInvalid, err)
	}
	cfg.SystemPrompt = resolved

	for i := range cfg.Phases {
		resolved, err := ResolveFileReference(cfg.Phases[i].Prompt, stateDir)
		if err != nil {
			return nil, fmt.Errorf("%w: phases[%d].prompt: %v", wardenerrors.ErrConfigInvalid, i, err)
		}
		cfg.Phases[i].Prompt = resolved
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", wardenerrors.ErrConfigInvalid, ValidationErrors(errs))
	}

	return &cfg, nil
}

// ResolveFileReference expands a "file:<path>" value to the contents of the
// referenced file, resolved relative to stateDir. References may not escape
// stateDir. Values without the prefix are returned unchanged.
func ResolveFileReference(value, stateDir string) (string, error) {
	if !strings.HasPrefix(value, "file:") {
		return value, nil
	}

	rel := strings.TrimPrefix(value, "file:")
	absDir, err := filepath.Abs(stateDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve state directory: %w", err)
	}

	path := filepath.Join(absDir, rel)
	// Join cleans the path, so a ".." escape lands outside absDir.
	if path != absDir && !strings.HasPrefix(path, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("file reference escapes %s: %q", DirName, value)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("referenced file does not exist: %s", path)
		}
		return "", fmt.Errorf("failed to read referenced file: %w", err)
	}
	return string(data), nil
}

// TrackingFilePath returns the absolute path of the tracking file, or ""
// when tracking is disabled.
func (c *Config) TrackingFilePath() string {
	if c.Tracking.File == "" {
		return ""
	}
	if filepath.IsAbs(c.Tracking.File) {
		return c.Tracking.File
	}
	return filepath.Join(c.ProjectDir, c.Tracking.File)
}
