package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/warden-dev/warden/internal/tracker"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "error_recovery.backoff_multiplier")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidPermissionModes returns the list of valid agent permission modes
func ValidPermissionModes() []string {
	return []string{"default", "acceptEdits", "bypassPermissions", "plan"}
}

// ValidTrackingTypes returns the list of valid tracker kinds
func ValidTrackingTypes() []string {
	return []string{tracker.KindChecklist, tracker.KindNotes, tracker.KindNone}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// validConditionPrefixes are the recognized phase condition forms.
var validConditionPrefixes = []string{"exists:", "not_exists:"}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateAgent()...)
	errors = append(errors, c.validateSecurity()...)
	errors = append(errors, c.validateTracking()...)
	errors = append(errors, c.validateErrorRecovery()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePhases()...)
	errors = append(errors, c.validateInitFiles()...)

	return errors
}

// validateAgent validates the top-level agent settings
func (c *Config) validateAgent() []ValidationError {
	var errors []ValidationError

	if c.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "model",
			Value:   c.Model,
			Message: "must be a non-empty string",
		})
	}

	if c.MaxTurns < 1 {
		errors = append(errors, ValidationError{
			Field:   "max_turns",
			Value:   c.MaxTurns,
			Message: "must be positive",
		})
	}

	if c.MaxIterations < 0 {
		errors = append(errors, ValidationError{
			Field:   "max_iterations",
			Value:   c.MaxIterations,
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	if c.AutoContinueDelaySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "auto_continue_delay",
			Value:   c.AutoContinueDelaySeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateSecurity validates the SecurityConfig
func (c *Config) validateSecurity() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidPermissionModes(), c.Security.PermissionMode) {
		errors = append(errors, ValidationError{
			Field:   "security.permission_mode",
			Value:   c.Security.PermissionMode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidPermissionModes(), ", ")),
		})
	}

	for i, name := range c.Security.Bash.AllowedCommands {
		if strings.TrimSpace(name) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("security.bash.allowed_commands[%d]", i),
				Value:   name,
				Message: "must be a non-empty command name",
			})
		}
	}

	return errors
}

// validateTracking validates the TrackingConfig
func (c *Config) validateTracking() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidTrackingTypes(), c.Tracking.Type) {
		errors = append(errors, ValidationError{
			Field:   "tracking.type",
			Value:   c.Tracking.Type,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTrackingTypes(), ", ")),
		})
	}

	if (c.Tracking.Type == tracker.KindChecklist || c.Tracking.Type == tracker.KindNotes) && c.Tracking.File == "" {
		errors = append(errors, ValidationError{
			Field:   "tracking.file",
			Value:   c.Tracking.File,
			Message: fmt.Sprintf("required when tracking.type is %q", c.Tracking.Type),
		})
	}

	return errors
}

// validateErrorRecovery validates the ErrorRecoveryConfig
func (c *Config) validateErrorRecovery() []ValidationError {
	var errors []ValidationError

	if c.ErrorRecovery.MaxConsecutiveErrors < 1 {
		errors = append(errors, ValidationError{
			Field:   "error_recovery.max_consecutive_errors",
			Value:   c.ErrorRecovery.MaxConsecutiveErrors,
			Message: "must be positive",
		})
	}

	if c.ErrorRecovery.InitialBackoffSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "error_recovery.initial_backoff_seconds",
			Value:   c.ErrorRecovery.InitialBackoffSeconds,
			Message: "must be positive",
		})
	} else if c.ErrorRecovery.MaxBackoffSeconds < c.ErrorRecovery.InitialBackoffSeconds {
		errors = append(errors, ValidationError{
			Field:   "error_recovery.max_backoff_seconds",
			Value:   c.ErrorRecovery.MaxBackoffSeconds,
			Message: "must be >= initial_backoff_seconds",
		})
	}

	if c.ErrorRecovery.BackoffMultiplier < 1.0 {
		errors = append(errors, ValidationError{
			Field:   "error_recovery.backoff_multiplier",
			Value:   c.ErrorRecovery.BackoffMultiplier,
			Message: "must be >= 1.0",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative (0 disables rotation)",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePhases validates the phase list
func (c *Config) validatePhases() []ValidationError {
	var errors []ValidationError

	seen := make(map[string]bool)
	for i, phase := range c.Phases {
		if phase.Name == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("phases[%d].name", i),
				Value:   phase.Name,
				Message: "is required",
			})
		} else if seen[phase.Name] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("phases[%d].name", i),
				Value:   phase.Name,
				Message: "duplicate phase name",
			})
		} else {
			seen[phase.Name] = true
		}

		if phase.Prompt == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("phases[%d].prompt", i),
				Value:   phase.Prompt,
				Message: "is required",
			})
		}

		if phase.Condition != "" && !hasValidConditionPrefix(phase.Condition) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("phases[%d].condition", i),
				Value:   phase.Condition,
				Message: fmt.Sprintf("must start with one of: %s", strings.Join(validConditionPrefixes, ", ")),
			})
		}
	}

	return errors
}

func hasValidConditionPrefix(condition string) bool {
	for _, prefix := range validConditionPrefixes {
		if strings.HasPrefix(condition, prefix) {
			return true
		}
	}
	return false
}

// validateInitFiles validates the init file list
func (c *Config) validateInitFiles() []ValidationError {
	var errors []ValidationError

	for i, f := range c.InitFiles {
		if f.Source == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("init_files[%d].source", i),
				Value:   f.Source,
				Message: "is required",
			})
		}
		if f.Dest == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("init_files[%d].dest", i),
				Value:   f.Dest,
				Message: "is required",
			})
		}
	}

	return errors
}
