package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greyline-dev/screenpilot/internal/input"
	"github.com/greyline-dev/screenpilot/internal/perception"
)

// nullBackend counts device calls without touching hardware.
type nullBackend struct {
	keyDowns int
	keyUps   int
	mouseUps int
}

func (b *nullBackend) KeyDown(string) error     { b.keyDowns++; return nil }
func (b *nullBackend) KeyUp(string) error       { b.keyUps++; return nil }
func (b *nullBackend) KeyTap(string) error      { return nil }
func (b *nullBackend) MoveMouse(int, int) error { return nil }
func (b *nullBackend) MouseDown() error         { return nil }
func (b *nullBackend) MouseUp() error           { b.mouseUps++; return nil }

func newTestRunner(backend input.Backend) (*ScriptRunner, *perception.Store, *input.Intent) {
	store := perception.NewStore()
	intent := input.NewIntent(backend, input.DefaultBindings(), time.Microsecond)
	return NewScriptRunner(store, intent, 1000), store, intent
}

func TestRunUntilStopsAtFrameCeiling(t *testing.T) {
	r, _, _ := newTestRunner(&nullBackend{})

	frames := 0
	stats := r.RunUntil(context.Background(), func(*perception.Store, *input.Intent) error {
		frames++
		return nil
	}, MaxFrames(10))

	if stats.Frames != 10 {
		t.Errorf("Frames = %d, want 10", stats.Frames)
	}
	if frames != 10 {
		t.Errorf("policy invoked %d times, want 10", frames)
	}
	if stats.RunID == "" {
		t.Error("missing run ID")
	}
	if stats.Elapsed <= 0 {
		t.Error("elapsed not recorded")
	}
}

func TestRunReleasesKeysOnExit(t *testing.T) {
	backend := &nullBackend{}
	r, _, _ := newTestRunner(backend)

	r.RunUntil(context.Background(), func(_ *perception.Store, intent *input.Intent) error {
		intent.MoveRight()
		return nil
	}, MaxFrames(5))

	// One press on the first frame, one release from the final ReleaseAll.
	if backend.keyDowns != 1 {
		t.Errorf("keyDowns = %d, want 1", backend.keyDowns)
	}
	if backend.keyUps != 1 {
		t.Errorf("keyUps = %d, want 1", backend.keyUps)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	backend := &nullBackend{}
	r, _, _ := newTestRunner(backend)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan Stats, 1)
	go func() {
		done <- r.Run(ctx, func(_ *perception.Store, intent *input.Intent) error {
			intent.MoveLeft()
			return nil
		})
	}()

	select {
	case stats := <-done:
		if stats.Frames == 0 {
			t.Error("expected at least one frame before cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on context cancellation")
	}

	if backend.keyUps == 0 {
		t.Error("held key not released on exit")
	}
}

func TestRunSurvivesPolicyPanics(t *testing.T) {
	r, _, _ := newTestRunner(&nullBackend{})

	stats := r.RunUntil(context.Background(), func(*perception.Store, *input.Intent) error {
		panic("boom")
	}, MaxFrames(4))

	if stats.Frames != 4 {
		t.Errorf("Frames = %d, want 4 despite panics", stats.Frames)
	}
	if stats.Panics != 4 {
		t.Errorf("Panics = %d, want 4", stats.Panics)
	}
	if stats.PolicyErrors != 4 {
		t.Errorf("PolicyErrors = %d, want 4", stats.PolicyErrors)
	}
}

func TestRunCountsPolicyErrors(t *testing.T) {
	r, _, _ := newTestRunner(&nullBackend{})

	frameErr := errors.New("no target")
	stats := r.RunUntil(context.Background(), func(*perception.Store, *input.Intent) error {
		return frameErr
	}, MaxFrames(3))

	if stats.PolicyErrors != 3 {
		t.Errorf("PolicyErrors = %d, want 3", stats.PolicyErrors)
	}
	if stats.Panics != 0 {
		t.Errorf("Panics = %d, want 0", stats.Panics)
	}
}

func TestTargetAbsentCountsConsecutiveMisses(t *testing.T) {
	store := perception.NewStore()
	cond := TargetAbsent("boss", 3, 0)

	miss := perception.Observation{Name: "boss", Found: false, Tier: perception.TierNotFound}
	hit := perception.Observation{Name: "boss", Found: true, Tier: perception.TierHeuristic}

	store.Update(miss)
	if cond(1, store) || cond(2, store) {
		t.Fatal("fired before reaching the miss threshold")
	}

	// A hit resets the streak.
	store.Update(hit)
	if cond(3, store) {
		t.Fatal("fired on a found target")
	}

	store.Update(miss)
	for frame := uint64(4); frame <= 5; frame++ {
		if cond(frame, store) {
			t.Fatalf("fired early at frame %d", frame)
		}
	}
	if !cond(6, store) {
		t.Error("did not fire after 3 consecutive misses")
	}
}

func TestTargetAbsentCeiling(t *testing.T) {
	store := perception.NewStore()
	store.Update(perception.Observation{Name: "boss", Found: true})

	cond := TargetAbsent("boss", 3, 100)
	if cond(99, store) {
		t.Error("fired below the ceiling with a visible target")
	}
	if !cond(100, store) {
		t.Error("did not fire at the frame ceiling")
	}
}

func TestAnyOf(t *testing.T) {
	store := perception.NewStore()
	cond := AnyOf(MaxFrames(50), TargetAbsent("boss", 1, 0))

	store.Update(perception.Observation{Name: "boss", Found: true})
	if cond(10, store) {
		t.Error("fired with no condition met")
	}

	store.Update(perception.Observation{Name: "boss", Found: false})
	if !cond(11, store) {
		t.Error("did not fire on target absence")
	}
	if !cond(50, store) {
		t.Error("did not fire at the frame ceiling")
	}
}
