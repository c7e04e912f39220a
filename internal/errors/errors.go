// Package errors provides centralized error definitions and error handling
// utilities for the warden codebase. It defines domain-specific errors,
// sentinel errors, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - StateError: errors related to persisted session state
//   - CycleError: errors related to an agent cycle execution
//   - PolicyError: a command blocked by the safety policy
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewStateError("failed to load session state", errors.ErrStateCorrupted)
//	err = err.WithPath(statePath)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrStateCorrupted) { ... }
//	if errors.IsFatal(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// State-related sentinel errors
var (
	// ErrStateCorrupted indicates that persisted session state cannot be parsed.
	// This is fatal: silently starting fresh would reset the circuit breaker.
	ErrStateCorrupted = New("session state corrupted")
	// ErrStateLocked indicates that another warden process owns the state directory.
	ErrStateLocked = New("session state is locked by another process")
)

// Orchestrator-related sentinel errors
var (
	// ErrCircuitOpen indicates the consecutive-error circuit breaker has tripped.
	ErrCircuitOpen = New("too many consecutive errors")
)

// Configuration-related sentinel errors
var (
	// ErrConfigNotFound indicates that the config file does not exist.
	ErrConfigNotFound = New("config file not found")
	// ErrConfigInvalid indicates that configuration failed validation.
	ErrConfigInvalid = New("config is invalid")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message string
	cause   error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// StateError represents errors related to persisted session state.
//
// Example:
//
//	err := errors.NewStateError("failed to load session state", errors.ErrStateCorrupted)
//	err = err.WithPath("/project/.warden/session.json")
type StateError struct {
	baseError
	Path string
}

// NewStateError creates a new StateError.
func NewStateError(message string, cause error) *StateError {
	return &StateError{
		baseError: baseError{message: message, cause: cause},
	}
}

// WithPath adds the state file path to the error context.
func (e *StateError) WithPath(path string) *StateError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *StateError) Error() string {
	prefix := "state error"
	if e.Path != "" {
		prefix = fmt.Sprintf("state error [path=%s]", e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StateError) Is(target error) bool {
	if _, ok := target.(*StateError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CycleError represents a failure while executing one agent cycle. The
// orchestrator treats cycle errors as transient: they feed the error
// counter and backoff rather than aborting the run.
type CycleError struct {
	baseError
	Phase   string
	Session int
}

// NewCycleError creates a new CycleError.
func NewCycleError(message string, cause error) *CycleError {
	return &CycleError{
		baseError: baseError{message: message, cause: cause},
	}
}

// WithPhase adds the phase name to the error context.
func (e *CycleError) WithPhase(phase string) *CycleError {
	e.Phase = phase
	return e
}

// WithSession adds the session number to the error context.
func (e *CycleError) WithSession(n int) *CycleError {
	e.Session = n
	return e
}

// Error returns the formatted error message.
func (e *CycleError) Error() string {
	var parts []string
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}
	if e.Session > 0 {
		parts = append(parts, fmt.Sprintf("session=%d", e.Session))
	}

	prefix := "cycle error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("cycle error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *CycleError) Is(target error) bool {
	if _, ok := target.(*CycleError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PolicyError represents a command blocked by the safety policy. It is a
// rejection, not a fault, and always safe to surface to the agent.
type PolicyError struct {
	baseError
	Command string
	Reason  string
}

// NewPolicyError creates a new PolicyError for a blocked command.
func NewPolicyError(command, reason string) *PolicyError {
	return &PolicyError{
		baseError: baseError{message: fmt.Sprintf("command blocked: %s", reason)},
		Command:   command,
		Reason:    reason,
	}
}

// Error returns the formatted error message.
func (e *PolicyError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("policy error [command=%s]: %s", e.Command, e.message)
	}
	return fmt.Sprintf("policy error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *PolicyError) Is(target error) bool {
	if _, ok := target.(*PolicyError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal returns true for errors that must abort the run rather than be
// retried: corrupt or locked state, invalid configuration.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrStateCorrupted) || Is(err, ErrStateLocked) || Is(err, ErrConfigInvalid)
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
