package vision

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/greyline-dev/screenpilot/internal/perception"
)

// FrameSource supplies screen rasters to the coordinator.
//
// Grab is called exactly once per cycle — capture dominates cycle cost and
// is never repeated per template. The returned mat is owned by the caller
// and is a BGR (or grayscale, if the source converts) frame covering the
// capture bounds.
type FrameSource interface {
	Grab() (gocv.Mat, error)
	Close() error
}

// FrameSet is the per-cycle shared view of one captured frame.
// Every tracker in a cycle sees the identical mats, so cross-template
// comparisons within a cycle are frame-consistent.
type FrameSet struct {
	// Full is the frame at capture resolution.
	Full gocv.Mat

	// Small is the shared downscaled copy for pyramid-enabled trackers.
	// Empty when pyramid matching is disabled.
	Small gocv.Mat

	// Width and Height are the full-resolution frame dimensions.
	Width  int
	Height int
}

// CoordinatorConfig holds the per-cycle processing options.
type CoordinatorConfig struct {
	// Grayscale converts the captured frame to single-channel once per
	// cycle. Templates must be loaded with the same setting.
	Grayscale bool

	// DownscaleFactor in (0,1) produces one shared downscaled frame per
	// cycle for the pyramid tier. 0 or 1 disables it.
	DownscaleFactor float64

	// Workers bounds the tracker worker pool. 0 runs trackers
	// sequentially; matching is compute-heavy and independent per
	// template, so a small pool pays off with many templates.
	Workers int
}

// MultiTargetCoordinator drives all trackers through one capture per cycle.
type MultiTargetCoordinator struct {
	source   FrameSource
	trackers []*TargetTracker
	cfg      CoordinatorConfig
	logger   Logger
}

// NewMultiTargetCoordinator wires a frame source to a set of trackers.
func NewMultiTargetCoordinator(source FrameSource, trackers []*TargetTracker, cfg CoordinatorConfig) (*MultiTargetCoordinator, error) {
	if len(trackers) == 0 {
		return nil, ErrNoTemplates
	}
	return &MultiTargetCoordinator{
		source:   source,
		trackers: trackers,
		cfg:      cfg,
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the coordinator and all its trackers.
func (c *MultiTargetCoordinator) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	c.logger = logger
	for _, t := range c.trackers {
		t.SetLogger(logger)
	}
}

// Cycle captures one frame, shares it across every tracker, and returns
// one observation per template, in tracker order.
//
// A cycle is atomic per template: a tracker's observation is produced from
// this cycle's frame in full, never from a mix of frames.
func (c *MultiTargetCoordinator) Cycle() ([]perception.Observation, error) {
	frame, err := c.source.Grab()
	if err != nil {
		frame.Close()
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	defer frame.Close()

	full := frame
	var gray gocv.Mat
	if c.cfg.Grayscale && frame.Channels() > 1 {
		gray = gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
		full = gray
	}

	// At most one downscaled copy per cycle, shared by every
	// pyramid-enabled tracker. INTER_NEAREST: this copy is rebuilt every
	// cycle and the coarse hit is re-verified at full resolution anyway.
	small := gocv.NewMat()
	defer small.Close()
	if c.cfg.DownscaleFactor > 0 && c.cfg.DownscaleFactor < 1 {
		smallW := max(1, int(float64(full.Cols())*c.cfg.DownscaleFactor))
		smallH := max(1, int(float64(full.Rows())*c.cfg.DownscaleFactor))
		gocv.Resize(full, &small, image.Pt(smallW, smallH), 0, 0, gocv.InterpolationNearestNeighbor)
	}

	fs := &FrameSet{
		Full:   full,
		Small:  small,
		Width:  full.Cols(),
		Height: full.Rows(),
	}

	observations := make([]perception.Observation, len(c.trackers))
	if c.cfg.Workers <= 0 || len(c.trackers) == 1 {
		for i, t := range c.trackers {
			observations[i] = t.Track(fs)
		}
		return observations, nil
	}

	// Bounded worker pool. Each tracker index is processed by exactly one
	// worker, so tracker state stays single-goroutine per cycle.
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := min(c.cfg.Workers, len(c.trackers))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				observations[i] = c.trackers[i].Track(fs)
			}
		}()
	}
	for i := range c.trackers {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return observations, nil
}

// Close releases the frame source.
func (c *MultiTargetCoordinator) Close() error {
	return c.source.Close()
}
