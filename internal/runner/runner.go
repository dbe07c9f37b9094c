package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greyline-dev/screenpilot/internal/input"
	"github.com/greyline-dev/screenpilot/internal/perception"
)

// Logger defines the logging interface used by the runner package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Policy decides one frame of action: it reads the perception view and
// declares intent. It must not block and must not perform I/O itself —
// the runner flushes the intent after the policy returns.
type Policy func(view *perception.Store, intent *input.Intent) error

// StopCondition is evaluated once per frame, after the flush. Returning
// true ends the run.
type StopCondition func(frame uint64, view *perception.Store) bool

// Stats summarises a completed run.
type Stats struct {
	RunID        string        `json:"run_id"`
	Frames       uint64        `json:"frames"`
	Elapsed      time.Duration `json:"elapsed"`
	FPS          float64       `json:"fps"`
	PolicyErrors uint64        `json:"policy_errors"`
	Panics       uint64        `json:"panics"`
}

// ScriptRunner paces a policy against the live perception view.
type ScriptRunner struct {
	store  *perception.Store
	intent *input.Intent
	fps    float64
	logger Logger
}

// NewScriptRunner creates a runner over the given view and intent
// buffer. A non-positive fps defaults to 30.
func NewScriptRunner(store *perception.Store, intent *input.Intent, fps float64) *ScriptRunner {
	if fps <= 0 {
		fps = 30
	}
	return &ScriptRunner{
		store:  store,
		intent: intent,
		fps:    fps,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the runner.
func (r *ScriptRunner) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run executes the policy until the context is cancelled.
func (r *ScriptRunner) Run(ctx context.Context, policy Policy) Stats {
	return r.RunUntil(ctx, policy, nil)
}

// RunUntil executes the policy until the context is cancelled or the
// stop condition fires. Keys and mouse are released on every exit path.
func (r *ScriptRunner) RunUntil(ctx context.Context, policy Policy, stop StopCondition) Stats {
	runID := uuid.NewString()
	budget := time.Duration(float64(time.Second) / r.fps)
	started := time.Now()

	stats := Stats{RunID: runID}
	defer r.intent.ReleaseAll()

	r.logger.Info("run started", "run_id", runID, "target_fps", r.fps)

	for {
		select {
		case <-ctx.Done():
			return r.finish(stats, started)
		default:
		}

		frameStart := time.Now()

		if err := r.step(policy); err != nil {
			stats.PolicyErrors++
			if _, isPanic := err.(panicError); isPanic {
				stats.Panics++
			}
			r.logger.Error("policy frame failed", "run_id", runID, "frame", stats.Frames, "error", err)
		}

		// The flush runs even after a failed frame so partially declared
		// intent is applied or released rather than carried silently.
		r.intent.Flush()
		stats.Frames++

		if stop != nil && stop(stats.Frames, r.store) {
			r.logger.Info("stop condition met", "run_id", runID, "frame", stats.Frames)
			return r.finish(stats, started)
		}

		if remaining := budget - time.Since(frameStart); remaining > 0 {
			select {
			case <-ctx.Done():
				return r.finish(stats, started)
			case <-time.After(remaining):
			}
		}
	}
}

// step invokes the policy for one frame, converting panics to errors.
func (r *ScriptRunner) step(policy Policy) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError{value: rec}
		}
	}()
	return policy(r.store, r.intent)
}

func (r *ScriptRunner) finish(stats Stats, started time.Time) Stats {
	stats.Elapsed = time.Since(started)
	if stats.Elapsed > 0 {
		stats.FPS = float64(stats.Frames) / stats.Elapsed.Seconds()
	}
	r.logger.Info("run finished",
		"run_id", stats.RunID,
		"frames", stats.Frames,
		"elapsed", stats.Elapsed,
		"fps", fmt.Sprintf("%.1f", stats.FPS),
		"policy_errors", stats.PolicyErrors,
	)
	return stats
}

// panicError wraps a recovered policy panic.
type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("policy panicked: %v", e.value)
}
