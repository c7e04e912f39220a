package orchestrator

import (
	"context"
	"math"
	"time"

	wardenerrors "github.com/warden-dev/warden/internal/errors"
	"github.com/warden-dev/warden/internal/logging"
	"github.com/warden-dev/warden/internal/tracker"
)

// TerminationReason explains why the run loop stopped. Reasons are
// mutually exclusive; operators use them to decide whether to resume,
// reconfigure, or stop.
type TerminationReason string

const (
	ReasonAllComplete     TerminationReason = "all complete"
	ReasonMaxIterations   TerminationReason = "max iterations"
	ReasonTooManyErrors   TerminationReason = "too many errors"
	ReasonNoEligiblePhase TerminationReason = "no eligible phase"
	ReasonCanceled        TerminationReason = "canceled"
)

// CycleResult is the outcome of one delegated unit of work.
type CycleResult struct {
	// Success reports whether the cycle completed without error.
	Success bool
	// Progressed reports whether the cycle claims to have advanced the work.
	Progressed bool
	// ErrorSummary is a short diagnostic forwarded to the next cycle
	// when Success is false.
	ErrorSummary string
}

// CycleRunner executes one phase cycle. The orchestrator treats it as
// opaque: it only inspects the returned result. errorContext carries the
// previous failure's summary so the collaborator can recover.
type CycleRunner interface {
	RunCycle(ctx context.Context, phase Phase, errorContext string) (CycleResult, error)
}

// Observer receives loop lifecycle events for display. All methods are
// called from the loop goroutine.
type Observer interface {
	SessionStarted(session int, phase string)
	SessionFinished(session int, phase string, result CycleResult)
	BackoffScheduled(attempt, threshold int, delay time.Duration)
	ProgressUpdated(t tracker.Tracker)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(int, string)               {}
func (nopObserver) SessionFinished(int, string, CycleResult) {}
func (nopObserver) BackoffScheduled(int, int, time.Duration) {}
func (nopObserver) ProgressUpdated(tracker.Tracker)          {}

// Config holds the loop parameters.
type Config struct {
	// Phases are tried in declared order each cycle.
	Phases []Phase
	// ProjectDir is the root against which conditions are evaluated.
	ProjectDir string
	// MaxIterations caps cycles run by this process (0 = unlimited).
	MaxIterations int
	// AutoContinueDelay is the pause between successful cycles.
	AutoContinueDelay time.Duration

	// MaxConsecutiveErrors trips the circuit breaker.
	MaxConsecutiveErrors int
	// InitialBackoff is the delay after the first consecutive failure.
	InitialBackoff time.Duration
	// MaxBackoff caps the computed delay.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the delay per consecutive failure.
	BackoffMultiplier float64
}

// RunResult is returned when the loop stops.
type RunResult struct {
	Reason TerminationReason
	// Iterations is the number of cycles executed by this process.
	Iterations int
	// State is the final persisted state.
	State *State
}

// Runner owns the loop. Exactly one cycle executes at a time; the loop
// suspends only while awaiting the cycle result and during delays.
type Runner struct {
	cfg      Config
	states   *StateStore
	cycles   CycleRunner
	progress tracker.Tracker
	logger   *logging.Logger
	observer Observer

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner wires a Runner. logger and observer may be nil.
func NewRunner(cfg Config, states *StateStore, cycles CycleRunner, progress tracker.Tracker, logger *logging.Logger, observer Observer) *Runner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if progress == nil {
		progress = tracker.NoneTracker{}
	}
	return &Runner{
		cfg:      cfg,
		states:   states,
		cycles:   cycles,
		progress: progress,
		logger:   logger,
		observer: observer,
		sleep:    sleepContext,
	}
}

// Backoff computes the delay before retry attempt n (1-based):
// min(MaxBackoff, InitialBackoff * BackoffMultiplier^(n-1)).
func (c *Config) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := time.Duration(float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(n-1)))
	if d > c.MaxBackoff || d < 0 {
		return c.MaxBackoff
	}
	return d
}

// Run executes the loop until a termination reason is reached, resuming
// from persisted state. State is written through after every cycle, so a
// kill loses at most the in-flight cycle; restarting re-selects and
// re-runs that cycle identically.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	state, err := r.states.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := r.logger.WithRun(state.RunID)
	log.Info("run loop started",
		"session_number", state.SessionNumber,
		"consecutive_errors", state.ConsecutiveErrors,
		"max_iterations", r.cfg.MaxIterations,
	)

	// Resuming past a tripped breaker requires an explicit reset.
	if state.ConsecutiveErrors >= r.cfg.MaxConsecutiveErrors {
		log.Error("circuit breaker already tripped",
			"consecutive_errors", state.ConsecutiveErrors,
			"threshold", r.cfg.MaxConsecutiveErrors,
		)
		return &RunResult{Reason: ReasonTooManyErrors, State: state},
			wardenerrors.ErrCircuitOpen
	}

	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			return &RunResult{Reason: ReasonCanceled, Iterations: iterations, State: state}, nil
		}

		if r.cfg.MaxIterations > 0 && iterations >= r.cfg.MaxIterations {
			log.Info("max iterations reached", "iterations", iterations)
			return &RunResult{Reason: ReasonMaxIterations, Iterations: iterations, State: state}, nil
		}

		phase := SelectPhase(r.cfg.Phases, state, r.cfg.ProjectDir)
		if phase == nil {
			log.Info("no eligible phase", "session_number", state.SessionNumber)
			return &RunResult{Reason: ReasonNoEligiblePhase, Iterations: iterations, State: state}, nil
		}

		iterations++
		state.SessionNumber++

		sessionLog := log.WithSession(state.SessionNumber).WithPhase(phase.Name)
		sessionLog.Info("cycle started", "run_once", phase.RunOnce)
		r.observer.SessionStarted(state.SessionNumber, phase.Name)

		result, err := r.cycles.RunCycle(ctx, *phase, state.LastErrorContext)
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted mid-cycle: state stays as last persisted, so
				// the cycle replays on resume.
				sessionLog.Warn("cycle interrupted")
				return &RunResult{Reason: ReasonCanceled, Iterations: iterations, State: state}, nil
			}
			// Collaborator errors are transient cycle failures.
			result = CycleResult{Success: false, ErrorSummary: err.Error()}
		}

		r.observer.SessionFinished(state.SessionNumber, phase.Name, result)

		if result.Success {
			state.ConsecutiveErrors = 0
			state.LastErrorContext = ""
			if phase.RunOnce {
				state.MarkCompleted(phase.Name)
			}
			if err := r.states.Save(ctx, state); err != nil {
				return nil, err
			}
			sessionLog.Info("cycle succeeded", "progressed", result.Progressed)

			r.observer.ProgressUpdated(r.progress)
			if r.progress.IsComplete() {
				log.Info("all tracked items passing")
				return &RunResult{Reason: ReasonAllComplete, Iterations: iterations, State: state}, nil
			}

			if err := r.sleep(ctx, r.cfg.AutoContinueDelay); err != nil {
				return &RunResult{Reason: ReasonCanceled, Iterations: iterations, State: state}, nil
			}
			continue
		}

		state.ConsecutiveErrors++
		state.LastErrorContext = result.ErrorSummary
		if err := r.states.Save(ctx, state); err != nil {
			return nil, err
		}
		sessionLog.Warn("cycle failed",
			"attempt", state.ConsecutiveErrors,
			"threshold", r.cfg.MaxConsecutiveErrors,
			"error", result.ErrorSummary,
		)

		if state.ConsecutiveErrors >= r.cfg.MaxConsecutiveErrors {
			log.Error("circuit breaker tripped", "consecutive_errors", state.ConsecutiveErrors)
			return &RunResult{Reason: ReasonTooManyErrors, Iterations: iterations, State: state}, nil
		}

		delay := r.cfg.Backoff(state.ConsecutiveErrors)
		r.observer.BackoffScheduled(state.ConsecutiveErrors, r.cfg.MaxConsecutiveErrors, delay)
		sessionLog.Info("backing off", "delay", delay.String())
		if err := r.sleep(ctx, delay); err != nil {
			return &RunResult{Reason: ReasonCanceled, Iterations: iterations, State: state}, nil
		}
	}
}

// sleepContext waits for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
