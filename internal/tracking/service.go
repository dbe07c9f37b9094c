package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/greyline-dev/screenpilot/internal/perception"
)

// ErrStopTimeout is returned by Stop when the tracking goroutine does
// not exit within the join timeout.
var ErrStopTimeout = errors.New("tracking goroutine did not stop in time")

// Logger defines the logging interface used by the tracking package.
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

// Coordinator is the per-cycle perception pipeline driven by the service.
// vision.MultiTargetCoordinator implements it.
type Coordinator interface {
	Cycle() ([]perception.Observation, error)
	Close() error
}

// CoordinatorFactory constructs the coordinator inside the tracking
// goroutine. Capture handles are thread-bound on several platforms, so
// construction must not happen on the caller's goroutine.
type CoordinatorFactory func() (Coordinator, error)

// CycleSample describes one completed perception cycle, for telemetry.
type CycleSample struct {
	Frame        uint64
	Duration     time.Duration
	Observations []perception.Observation
}

// Recorder receives cycle samples. Implementations must not block; the
// tracking loop calls RecordCycle on its hot path.
type Recorder interface {
	RecordCycle(sample CycleSample)
}

// Stats is a point-in-time snapshot of the tracking loop.
type Stats struct {
	Running   bool                       `json:"running"`
	Frames    uint64                     `json:"frames"`
	Errors    uint64                     `json:"errors"`
	Templates int                        `json:"templates"`
	FPS       float64                    `json:"fps"`
	TargetFPS float64                    `json:"target_fps"`
	TierHits  map[perception.Tier]uint64 `json:"tier_hits"`
}

// DefaultStopTimeout bounds how long Stop waits for the tracking
// goroutine to finish its current cycle.
const DefaultStopTimeout = 5 * time.Second

// Service owns the tracking goroutine. It is safe for concurrent use.
type Service struct {
	factory     CoordinatorFactory
	store       *perception.Store
	fps         float64
	recorder    Recorder
	logger      Logger
	stopTimeout time.Duration

	mu       sync.Mutex
	running  bool
	done     chan struct{}
	finished chan struct{}

	statsMu   sync.Mutex
	frames    uint64
	errors    uint64
	tierHits  map[perception.Tier]uint64
	startedAt time.Time
}

// NewService creates a tracking service publishing into store at the
// given frame rate. A non-positive fps defaults to 30.
func NewService(factory CoordinatorFactory, store *perception.Store, fps float64) *Service {
	if fps <= 0 {
		fps = 30
	}
	return &Service{
		factory:     factory,
		store:       store,
		fps:         fps,
		logger:      noopLogger{},
		stopTimeout: DefaultStopTimeout,
		tierHits:    make(map[perception.Tier]uint64),
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetRecorder attaches a telemetry recorder. Must be called before Start.
func (s *Service) SetRecorder(recorder Recorder) {
	s.recorder = recorder
}

// Start launches the tracking goroutine. Calling Start on a running
// service is a no-op; a second Start after Stop launches a fresh loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug("tracking service already running")
		return nil
	}

	s.running = true
	s.done = make(chan struct{})
	s.finished = make(chan struct{})

	s.statsMu.Lock()
	s.frames = 0
	s.errors = 0
	s.tierHits = make(map[perception.Tier]uint64)
	s.startedAt = time.Now()
	s.statsMu.Unlock()

	go s.loop(ctx, s.done, s.finished)

	s.logger.Info("tracking service started", "target_fps", s.fps)
	return nil
}

// Stop signals the tracking goroutine and waits for it to finish, up to
// the stop timeout. Safe to call multiple times and before Start.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.done)
	finished := s.finished
	s.mu.Unlock()

	select {
	case <-finished:
		s.logger.Info("tracking service stopped")
		return nil
	case <-time.After(s.stopTimeout):
		s.logger.Error("tracking goroutine join timed out", "timeout", s.stopTimeout)
		return ErrStopTimeout
	}
}

// Stats returns a snapshot of loop activity.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	var fps float64
	if elapsed := time.Since(s.startedAt); running && elapsed > 0 && s.frames > 0 {
		fps = float64(s.frames) / elapsed.Seconds()
	}

	hits := make(map[perception.Tier]uint64, len(s.tierHits))
	for tier, n := range s.tierHits {
		hits[tier] = n
	}

	return Stats{
		Running:   running,
		Frames:    s.frames,
		Errors:    s.errors,
		Templates: s.store.Len(),
		FPS:       fps,
		TargetFPS: s.fps,
		TierHits:  hits,
	}
}

// loop is the body of the tracking goroutine. The coordinator is built
// and torn down here so capture stays on this goroutine.
func (s *Service) loop(ctx context.Context, done, finished chan struct{}) {
	defer close(finished)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	coord, err := s.factory()
	if err != nil {
		s.logger.Error("coordinator construction failed", "error", err)
		return
	}
	defer func() {
		if err := coord.Close(); err != nil {
			s.logger.Warn("coordinator close failed", "error", err)
		}
	}()

	budget := time.Duration(float64(time.Second) / s.fps)

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		default:
		}

		started := time.Now()
		if err := s.cycle(coord); err != nil {
			s.logger.Warn("perception cycle failed", "error", err)
			s.statsMu.Lock()
			s.errors++
			s.statsMu.Unlock()
		}

		if remaining := budget - time.Since(started); remaining > 0 {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-time.After(remaining):
			}
		}
	}
}

// cycle runs one perception pass and publishes its observations.
func (s *Service) cycle(coord Coordinator) error {
	started := time.Now()

	observations, err := coord.Cycle()
	if err != nil {
		return fmt.Errorf("running perception cycle: %w", err)
	}

	for _, obs := range observations {
		s.store.Update(obs)
	}

	s.statsMu.Lock()
	s.frames++
	frame := s.frames
	for _, obs := range observations {
		s.tierHits[obs.Tier]++
	}
	s.statsMu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordCycle(CycleSample{
			Frame:        frame,
			Duration:     time.Since(started),
			Observations: observations,
		})
	}
	return nil
}
