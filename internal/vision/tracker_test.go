package vision

import (
	"image"
	"sync"
	"testing"

	"gocv.io/x/gocv"

	"github.com/greyline-dev/screenpilot/internal/perception"
)

const (
	testFrameW = 2560
	testFrameH = 1440
	testScale  = 0.5
)

// stubMatcher scripts match outcomes and counts calls. The tier a call
// belongs to is identified by the region it receives: the full frame for
// the exhaustive scan, the downscaled frame for the coarse tier, and a
// clipped window for ROI/refine matches.
type stubMatcher struct {
	mu    sync.Mutex
	calls int
	fn    func(region, tpl gocv.Mat) (Match, error)
}

func (s *stubMatcher) BestMatch(region, tpl gocv.Mat) (Match, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(region, tpl)
}

func (s *stubMatcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func isFullFrame(region gocv.Mat) bool {
	return region.Cols() == testFrameW && region.Rows() == testFrameH
}

func isSmallFrame(region gocv.Mat) bool {
	return region.Cols() == int(testFrameW*testScale) && region.Rows() == int(testFrameH*testScale)
}

// newTestTemplate builds a template directly; tests never touch disk.
func newTestTemplate(t *testing.T, name string, w, h int, withSmall bool) *Template {
	t.Helper()
	tpl := &Template{
		name:   name,
		full:   gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U),
		small:  gocv.NewMat(),
		width:  w,
		height: h,
	}
	if withSmall {
		tpl.smallW = max(1, int(float64(w)*testScale))
		tpl.smallH = max(1, int(float64(h)*testScale))
		tpl.small = gocv.NewMatWithSize(tpl.smallH, tpl.smallW, gocv.MatTypeCV8U)
	}
	t.Cleanup(tpl.Close)
	return tpl
}

func newTestFrameSet(t *testing.T, withSmall bool) *FrameSet {
	t.Helper()
	fs := &FrameSet{
		Full:   gocv.NewMatWithSize(testFrameH, testFrameW, gocv.MatTypeCV8U),
		Small:  gocv.NewMat(),
		Width:  testFrameW,
		Height: testFrameH,
	}
	if withSmall {
		fs.Small = gocv.NewMatWithSize(int(testFrameH*testScale), int(testFrameW*testScale), gocv.MatTypeCV8U)
	}
	t.Cleanup(func() {
		fs.Full.Close()
		fs.Small.Close()
	})
	return fs
}

func testConfig() TrackerConfig {
	return TrackerConfig{
		Confidence:      0.85,
		SearchMargin:    150,
		DownscaleFactor: testScale,
	}
}

func TestTrackerROIShortCircuitsLaterTiers(t *testing.T) {
	tpl := newTestTemplate(t, "slime", 64, 48, true)
	fs := newTestFrameSet(t, true)

	matcher := &stubMatcher{fn: func(region, _ gocv.Mat) (Match, error) {
		if isFullFrame(region) || isSmallFrame(region) {
			t.Error("pyramid/full-scan tier invoked despite ROI success")
		}
		// Local hit inside the ROI window; the window starts at (650, 250).
		return Match{X: 150, Y: 150, Score: 0.92}, nil
	}}

	tracker := NewTargetTracker(tpl, matcher, testConfig())
	pos := image.Pt(800, 400)
	tracker.lastPos = &pos

	obs := tracker.Track(fs)
	if !obs.Found {
		t.Fatal("expected a hit")
	}
	if obs.Tier != perception.TierHeuristic {
		t.Errorf("tier = %q, want %q", obs.Tier, perception.TierHeuristic)
	}
	if obs.X != 800 || obs.Y != 400 {
		t.Errorf("ROI hit not translated to frame coordinates: got (%d,%d), want (800,400)", obs.X, obs.Y)
	}
	if matcher.callCount() != 1 {
		t.Errorf("expected exactly 1 matcher call, got %d", matcher.callCount())
	}
}

func TestTrackerFullScanProvenance(t *testing.T) {
	tpl := newTestTemplate(t, "slime", 64, 48, true)
	fs := newTestFrameSet(t, true)

	// Succeeds only on the exhaustive full-frame scan.
	matcher := &stubMatcher{fn: func(region, _ gocv.Mat) (Match, error) {
		if isFullFrame(region) {
			return Match{X: 1200, Y: 700, Score: 0.9}, nil
		}
		return Match{Score: 0.1}, nil
	}}

	cfg := testConfig()
	cfg.FullScan = true
	tracker := NewTargetTracker(tpl, matcher, cfg)

	obs := tracker.Track(fs)
	if !obs.Found {
		t.Fatal("expected full scan to find the target")
	}
	if obs.Tier != perception.TierFullScan {
		t.Errorf("tier = %q, want %q", obs.Tier, perception.TierFullScan)
	}
	if obs.X != 1200 || obs.Y != 700 {
		t.Errorf("got (%d,%d), want (1200,700)", obs.X, obs.Y)
	}
}

func TestTrackerPyramidCoarseThenRefine(t *testing.T) {
	tpl := newTestTemplate(t, "slime", 64, 48, true)
	fs := newTestFrameSet(t, true)

	matcher := &stubMatcher{fn: func(region, _ gocv.Mat) (Match, error) {
		if isSmallFrame(region) {
			// Coarse hit at downscaled coordinates; clears the relaxed
			// threshold (0.85 × 0.9 = 0.765) but not the primary one.
			return Match{X: 400, Y: 200, Score: 0.80}, nil
		}
		// Refinement window starts at (800-100, 400-100).
		return Match{X: 100, Y: 100, Score: 0.93}, nil
	}}

	tracker := NewTargetTracker(tpl, matcher, testConfig())

	obs := tracker.Track(fs)
	if !obs.Found {
		t.Fatal("expected pyramid tier to find the target")
	}
	if obs.Tier != perception.TierPyramid {
		t.Errorf("tier = %q, want %q", obs.Tier, perception.TierPyramid)
	}
	if obs.X != 800 || obs.Y != 400 {
		t.Errorf("refined hit = (%d,%d), want (800,400)", obs.X, obs.Y)
	}
	if obs.Score != 0.93 {
		t.Errorf("observation must carry the refined score, got %f", obs.Score)
	}
}

func TestTrackerPyramidRejectsUnverifiedCoarseHit(t *testing.T) {
	tpl := newTestTemplate(t, "slime", 64, 48, true)
	fs := newTestFrameSet(t, true)

	matcher := &stubMatcher{fn: func(region, _ gocv.Mat) (Match, error) {
		if isSmallFrame(region) {
			return Match{X: 400, Y: 200, Score: 0.99}, nil
		}
		// Full-resolution verification fails the primary threshold.
		return Match{X: 100, Y: 100, Score: 0.6}, nil
	}}

	tracker := NewTargetTracker(tpl, matcher, testConfig())

	obs := tracker.Track(fs)
	if obs.Found {
		t.Fatal("coarse hit must not be accepted without full-resolution verification")
	}
	if obs.Tier != perception.TierNotFound {
		t.Errorf("tier = %q, want %q", obs.Tier, perception.TierNotFound)
	}
}

func TestTrackerLossClearsLastPos(t *testing.T) {
	tpl := newTestTemplate(t, "slime", 64, 48, true)
	fs := newTestFrameSet(t, true)

	sawROI := false
	matcher := &stubMatcher{fn: func(region, _ gocv.Mat) (Match, error) {
		if !isFullFrame(region) && !isSmallFrame(region) {
			sawROI = true
		}
		return Match{Score: 0.1}, nil
	}}

	tracker := NewTargetTracker(tpl, matcher, testConfig())
	pos := image.Pt(800, 400)
	tracker.lastPos = &pos

	obs := tracker.Track(fs)
	if obs.Found {
		t.Fatal("expected a miss")
	}
	if tracker.LastPos() != nil {
		t.Error("losing the target must clear last_pos")
	}

	// Next frame must re-enter through the recovery tiers, not anchor on
	// the stale position.
	sawROI = false
	tracker.Track(fs)
	if sawROI {
		t.Error("ROI tier ran after loss; next frame should start from the pyramid tier")
	}
}

// End-to-end tier walk: found via ROI twice (target drifting inside the
// window), then lost.
func TestTrackerTrackThenLoseSequence(t *testing.T) {
	tpl := newTestTemplate(t, "slime", 64, 48, true)
	fs := newTestFrameSet(t, true)

	type step struct {
		roiScore   float64
		roiX, roiY int
	}
	var current step
	matcher := &stubMatcher{fn: func(region, _ gocv.Mat) (Match, error) {
		if isFullFrame(region) || isSmallFrame(region) {
			return Match{Score: 0.1}, nil
		}
		return Match{X: current.roiX, Y: current.roiY, Score: current.roiScore}, nil
	}}

	tracker := NewTargetTracker(tpl, matcher, testConfig())
	pos := image.Pt(800, 400)
	tracker.lastPos = &pos

	// Frame 1: hit at (800,400), score 0.92 ≥ 0.85.
	current = step{roiScore: 0.92, roiX: 150, roiY: 150}
	obs := tracker.Track(fs)
	if !obs.Found || obs.X != 800 || obs.Y != 400 || obs.Tier != perception.TierHeuristic {
		t.Fatalf("frame 1: got %+v", obs)
	}

	// Frame 2: target drifted to (820,400), still inside the ROI window
	// which is now anchored at (650,250).
	current = step{roiScore: 0.91, roiX: 170, roiY: 150}
	obs = tracker.Track(fs)
	if !obs.Found || obs.X != 820 || obs.Y != 400 || obs.Tier != perception.TierHeuristic {
		t.Fatalf("frame 2: got %+v", obs)
	}

	// Frame 3: target gone.
	current = step{roiScore: 0.2}
	obs = tracker.Track(fs)
	if obs.Found {
		t.Fatalf("frame 3: expected a miss, got %+v", obs)
	}
	if obs.Tier != perception.TierNotFound {
		t.Errorf("frame 3: tier = %q, want %q", obs.Tier, perception.TierNotFound)
	}
	if tracker.LastPos() != nil {
		t.Error("frame 3: last_pos must be cleared")
	}
}

func TestTrackerROIClippedAtFrameEdge(t *testing.T) {
	tpl := newTestTemplate(t, "slime", 64, 48, true)
	fs := newTestFrameSet(t, true)

	var roiW, roiH int
	matcher := &stubMatcher{fn: func(region, _ gocv.Mat) (Match, error) {
		if !isFullFrame(region) && !isSmallFrame(region) {
			roiW, roiH = region.Cols(), region.Rows()
			return Match{X: 0, Y: 0, Score: 0.95}, nil
		}
		return Match{Score: 0.1}, nil
	}}

	tracker := NewTargetTracker(tpl, matcher, testConfig())
	pos := image.Pt(0, 0) // top-left corner: window clips to the frame
	tracker.lastPos = &pos

	obs := tracker.Track(fs)
	if !obs.Found {
		t.Fatal("expected a hit in the clipped window")
	}
	if obs.X != 0 || obs.Y != 0 {
		t.Errorf("got (%d,%d), want (0,0)", obs.X, obs.Y)
	}
	// The window anchors at the frame origin but keeps its nominal size:
	// template plus margin on both sides.
	if roiW != 64+300 || roiH != 48+300 {
		t.Errorf("clipped ROI = %dx%d, want %dx%d", roiW, roiH, 64+300, 48+300)
	}
}

func TestClipROIRejectsWindowSmallerThanTemplate(t *testing.T) {
	// A window pushed almost entirely off-frame cannot contain the template.
	if _, ok := clipROI(testFrameW-10, testFrameH-10, 364, 348, testFrameW, testFrameH, 64, 48); ok {
		t.Error("expected rejection of a window smaller than the template")
	}
	if _, ok := clipROI(-100, -100, 364, 348, testFrameW, testFrameH, 64, 48); !ok {
		t.Error("expected acceptance of a clipped but still viable window")
	}
}
