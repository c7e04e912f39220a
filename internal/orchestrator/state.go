package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/session"
)

// StateKey is the well-known store key holding the session state.
const StateKey = "session.json"

// State is the durable record of a run, surviving process restarts.
// It is owned and mutated exclusively by the Runner.
type State struct {
	// RunID identifies the run across restarts.
	RunID string `json:"run_id"`
	// SessionNumber is a monotonic counter of started sessions.
	SessionNumber int `json:"session_number"`
	// CompletedPhases holds names of runOnce phases that succeeded.
	// The set only grows.
	CompletedPhases []string `json:"completed_phases"`
	// ConsecutiveErrors counts failed cycles since the last success.
	// Persisted so the circuit breaker holds across restarts.
	ConsecutiveErrors int `json:"consecutive_errors"`
	// LastErrorContext is forwarded to the next cycle after a failure.
	LastErrorContext string `json:"last_error_context,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns a fresh State with a generated run ID.
func NewState() *State {
	now := time.Now().UTC()
	return &State{
		RunID:           uuid.NewString(),
		CompletedPhases: []string{},
		StartedAt:       now,
		UpdatedAt:       now,
	}
}

// IsCompleted reports whether a runOnce phase already succeeded.
func (s *State) IsCompleted(phase string) bool {
	return slices.Contains(s.CompletedPhases, phase)
}

// MarkCompleted records a successful runOnce phase.
func (s *State) MarkCompleted(phase string) {
	if !s.IsCompleted(phase) {
		s.CompletedPhases = append(s.CompletedPhases, phase)
	}
}

// StateStore persists State in the project's state directory.
type StateStore struct {
	store *session.FileStore
}

// NewStateStore creates a StateStore over the given state directory.
func NewStateStore(stateDir string) (*StateStore, error) {
	store, err := session.NewFileStore(stateDir)
	if err != nil {
		return nil, err
	}
	return &StateStore{store: store}, nil
}

// Load reads the persisted state. A missing file yields a fresh State;
// an unreadable or corrupt file is a fatal state error, never a silent
// fresh start, since resetting the error counter would bypass the
// circuit breaker.
func (ss *StateStore) Load(ctx context.Context) (*State, error) {
	data, err := ss.store.Load(ctx, StateKey)
	if err != nil {
		if wardenerrors.Is(err, session.ErrNotFound) {
			return NewState(), nil
		}
		return nil, wardenerrors.NewStateError("load", err).WithPath(StateKey)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, wardenerrors.NewStateError("parse",
			fmt.Errorf("%w: %v", wardenerrors.ErrStateCorrupted, err)).WithPath(StateKey)
	}
	if state.RunID == "" {
		state.RunID = uuid.NewString()
	}
	if state.CompletedPhases == nil {
		state.CompletedPhases = []string{}
	}
	return &state, nil
}

// Save writes the state through to disk.
func (ss *StateStore) Save(ctx context.Context, state *State) error {
	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return wardenerrors.NewStateError("marshal", err)
	}
	if err := ss.store.Save(ctx, StateKey, data); err != nil {
		return wardenerrors.NewStateError("save", err).WithPath(StateKey)
	}
	return nil
}

// Reset deletes the persisted state. Missing state is not an error.
func (ss *StateStore) Reset(ctx context.Context) error {
	err := ss.store.Delete(ctx, StateKey)
	if err != nil && !wardenerrors.Is(err, session.ErrNotFound) {
		return wardenerrors.NewStateError("reset", err).WithPath(StateKey)
	}
	return nil
}

// Exists reports whether persisted state is present.
func (ss *StateStore) Exists(ctx context.Context) (bool, error) {
	return ss.store.Exists(ctx, StateKey)
}
