package runner

import "github.com/greyline-dev/screenpilot/internal/perception"

// MaxFrames stops the run after n frames.
func MaxFrames(n uint64) StopCondition {
	return func(frame uint64, _ *perception.Store) bool {
		return frame >= n
	}
}

// TargetAbsent stops the run once the named template has been missing
// for `gone` consecutive frames, or unconditionally at the frame
// ceiling. A ceiling of 0 means no ceiling. The condition is stateful;
// build a fresh one per run.
func TargetAbsent(name string, gone int, ceiling uint64) StopCondition {
	misses := 0
	return func(frame uint64, view *perception.Store) bool {
		if ceiling > 0 && frame >= ceiling {
			return true
		}
		if obs, ok := view.Get(name); ok && obs.Found {
			misses = 0
			return false
		}
		misses++
		return misses >= gone
	}
}

// AnyOf combines stop conditions: the run ends when any one fires.
func AnyOf(conditions ...StopCondition) StopCondition {
	return func(frame uint64, view *perception.Store) bool {
		for _, cond := range conditions {
			if cond(frame, view) {
				return true
			}
		}
		return false
	}
}
