// Package orchestrator drives the agent run loop: it selects the next
// phase by declarative condition, delegates one cycle of work to the
// execution collaborator, persists session state after every cycle, and
// applies backoff and a circuit breaker on repeated failure.
package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
)

// Phase is one declaratively defined unit of work.
type Phase struct {
	// Name uniquely identifies the phase in state and logs.
	Name string
	// Instructions is the opaque payload handed to the execution
	// collaborator.
	Instructions string
	// RunOnce phases are skipped forever once they complete successfully.
	RunOnce bool
	// Condition gates eligibility: "exists:<path>", "not_exists:<path>",
	// or empty for always eligible. Paths are relative to the project
	// directory.
	Condition string
}

// EvalCondition evaluates a phase condition against filesystem state.
// An empty or unrecognized condition evaluates true.
func EvalCondition(condition, projectDir string) bool {
	if condition == "" {
		return true
	}

	if rest, ok := strings.CutPrefix(condition, "exists:"); ok {
		_, err := os.Stat(filepath.Join(projectDir, rest))
		return err == nil
	}
	if rest, ok := strings.CutPrefix(condition, "not_exists:"); ok {
		_, err := os.Stat(filepath.Join(projectDir, rest))
		return err != nil
	}

	return true
}

// SelectPhase returns the first phase, in declared order, whose condition
// holds and which is not an already-completed runOnce phase. Returns nil
// when no phase is eligible; the loop then has nothing left to do.
func SelectPhase(phases []Phase, state *State, projectDir string) *Phase {
	for i := range phases {
		phase := &phases[i]
		if phase.RunOnce && state.IsCompleted(phase.Name) {
			continue
		}
		if !EvalCondition(phase.Condition, projectDir) {
			continue
		}
		return phase
	}
	return nil
}
