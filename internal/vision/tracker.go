package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/greyline-dev/screenpilot/internal/perception"
)

// Logger defines the logging interface used by the vision package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TrackerConfig holds the tunable parameters of a TargetTracker.
// All fields are immutable after construction.
type TrackerConfig struct {
	// Confidence is the primary acceptance threshold in [0,1].
	Confidence float64

	// SearchMargin expands the ROI around the last known position, in
	// pixels on every side. Restricting the search area this way is the
	// main performance lever once a target has been found.
	SearchMargin int

	// DownscaleFactor in (0,1) enables the pyramid coarse tier. Must
	// match the factor used for the coordinator's shared downscaled frame
	// and the templates' downscaled copies.
	DownscaleFactor float64

	// CoarseFactor relaxes the confidence threshold for the pyramid
	// coarse tier (downscaling degrades discriminability). The coarse hit
	// is always re-verified at full resolution against Confidence itself.
	// Treated as a plain tunable; 0.9 by default.
	CoarseFactor float64

	// FullScan enables the exhaustive full-resolution tier. Normally off
	// when the pyramid tier is on, which covers recovery at a fraction of
	// the cost.
	FullScan bool
}

// DefaultCoarseFactor is the relaxed-threshold fraction applied to the
// pyramid coarse tier when TrackerConfig.CoarseFactor is zero.
const DefaultCoarseFactor = 0.9

// TargetTracker searches one shared frame per cycle for a single template.
//
// The only mutable runtime state is the last known position: set on every
// hit, cleared unconditionally on every miss so the next cycle re-enters
// through the recovery tiers instead of anchoring on stale state.
//
// Not safe for concurrent use; the coordinator confines each tracker to
// one goroutine per cycle.
type TargetTracker struct {
	tpl     *Template
	matcher Matcher
	cfg     TrackerConfig
	logger  Logger

	lastPos *image.Point
}

// NewTargetTracker creates a tracker for one template.
// A zero CoarseFactor falls back to DefaultCoarseFactor.
func NewTargetTracker(tpl *Template, matcher Matcher, cfg TrackerConfig) *TargetTracker {
	if cfg.CoarseFactor <= 0 {
		cfg.CoarseFactor = DefaultCoarseFactor
	}
	return &TargetTracker{
		tpl:     tpl,
		matcher: matcher,
		cfg:     cfg,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the tracker.
func (t *TargetTracker) SetLogger(logger Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Name returns the tracked template's name.
func (t *TargetTracker) Name() string { return t.tpl.Name() }

// LastPos returns the last successful match position, or nil if the
// target is currently lost.
func (t *TargetTracker) LastPos() *image.Point {
	if t.lastPos == nil {
		return nil
	}
	p := *t.lastPos
	return &p
}

// Track runs one tiered search over the shared frame set.
// Tiers are tried in order and the first to clear its threshold wins;
// later tiers are skipped entirely.
func (t *TargetTracker) Track(fs *FrameSet) perception.Observation {
	if t.lastPos != nil {
		if m, ok := t.searchROI(fs, *t.lastPos); ok {
			return t.hit(m, perception.TierHeuristic)
		}
	}

	if t.pyramidReady(fs) {
		if m, ok := t.searchPyramid(fs); ok {
			return t.hit(m, perception.TierPyramid)
		}
	}

	if t.cfg.FullScan {
		if m, ok := t.searchFull(fs); ok {
			return t.hit(m, perception.TierFullScan)
		}
	}

	// Losing the target clears the anchor unconditionally.
	t.lastPos = nil
	return perception.Observation{
		Name:   t.tpl.Name(),
		Width:  t.tpl.Width(),
		Height: t.tpl.Height(),
		Found:  false,
		Tier:   perception.TierNotFound,
	}
}

// hit records a successful match and builds its observation.
func (t *TargetTracker) hit(m Match, tier perception.Tier) perception.Observation {
	pos := image.Pt(m.X, m.Y)
	t.lastPos = &pos
	return perception.Observation{
		Name:   t.tpl.Name(),
		X:      m.X,
		Y:      m.Y,
		Width:  t.tpl.Width(),
		Height: t.tpl.Height(),
		Found:  true,
		Score:  m.Score,
		Tier:   tier,
	}
}

// searchROI matches at full resolution inside a margin-expanded window
// centered on the last known position, clipped to the frame.
func (t *TargetTracker) searchROI(fs *FrameSet, last image.Point) (Match, bool) {
	margin := t.cfg.SearchMargin
	roi, ok := clipROI(last.X-margin, last.Y-margin,
		t.tpl.Width()+2*margin, t.tpl.Height()+2*margin,
		fs.Width, fs.Height, t.tpl.Width(), t.tpl.Height())
	if !ok {
		return Match{}, false
	}
	return t.matchRegion(fs.Full, roi, t.tpl.full, t.cfg.Confidence)
}

// pyramidReady reports whether the coarse tier can run this cycle.
func (t *TargetTracker) pyramidReady(fs *FrameSet) bool {
	return t.cfg.DownscaleFactor > 0 && t.cfg.DownscaleFactor < 1 &&
		!fs.Small.Empty() && t.tpl.HasSmall() &&
		fs.Small.Cols() >= t.tpl.smallW && fs.Small.Rows() >= t.tpl.smallH
}

// searchPyramid matches the downscaled frame against the downscaled
// template under a relaxed threshold, rescales the hit to full
// resolution, and verifies it in a small refinement window against the
// primary threshold.
func (t *TargetTracker) searchPyramid(fs *FrameSet) (Match, bool) {
	coarse, err := t.matcher.BestMatch(fs.Small, t.tpl.small)
	if err != nil {
		t.logger.Warn("coarse match failed", "template", t.tpl.Name(), "error", err)
		return Match{}, false
	}
	if coarse.Score < t.cfg.Confidence*t.cfg.CoarseFactor {
		return Match{}, false
	}

	scale := 1.0 / t.cfg.DownscaleFactor
	xFull := int(float64(coarse.X) * scale)
	yFull := int(float64(coarse.Y) * scale)

	refineMargin := max(20, int(50.0/t.cfg.DownscaleFactor))
	roi, ok := clipROI(xFull-refineMargin, yFull-refineMargin,
		t.tpl.Width()+2*refineMargin, t.tpl.Height()+2*refineMargin,
		fs.Width, fs.Height, t.tpl.Width(), t.tpl.Height())
	if !ok {
		return Match{}, false
	}
	return t.matchRegion(fs.Full, roi, t.tpl.full, t.cfg.Confidence)
}

// searchFull matches the entire frame at full resolution.
func (t *TargetTracker) searchFull(fs *FrameSet) (Match, bool) {
	m, err := t.matcher.BestMatch(fs.Full, t.tpl.full)
	if err != nil {
		t.logger.Warn("full scan failed", "template", t.tpl.Name(), "error", err)
		return Match{}, false
	}
	if m.Score < t.cfg.Confidence {
		return Match{}, false
	}
	return m, true
}

// matchRegion matches the template inside frame[roi] and translates the
// result back into frame coordinates. Matcher errors are logged and
// treated as a miss for this cycle.
func (t *TargetTracker) matchRegion(frame gocv.Mat, roi image.Rectangle, tpl gocv.Mat, threshold float64) (Match, bool) {
	region := frame.Region(roi)
	defer region.Close()

	m, err := t.matcher.BestMatch(region, tpl)
	if err != nil {
		t.logger.Warn("region match failed", "template", t.tpl.Name(), "error", err)
		return Match{}, false
	}
	if m.Score < threshold {
		return Match{}, false
	}
	m.X += roi.Min.X
	m.Y += roi.Min.Y
	return m, true
}

// clipROI clamps a candidate window to the frame bounds and rejects it if
// the clipped window can no longer contain the template.
func clipROI(x, y, w, h, frameW, frameH, tplW, tplH int) (image.Rectangle, bool) {
	x = max(0, x)
	y = max(0, y)
	w = min(w, frameW-x)
	h = min(h, frameH-y)
	if w < tplW || h < tplH {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}
