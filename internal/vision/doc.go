// Package vision implements the multi-target visual tracker for screenpilot.
//
// Each tracked template gets its own TargetTracker, a small state machine
// that searches one shared frame per cycle through progressively more
// expensive tiers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│           MultiTargetCoordinator (coordinator.go)        │
//	│  Grabs ONE frame per cycle, shares it across trackers    │
//	│                                                           │
//	│   FrameSource ──▶ FrameSet {full, downscaled}            │
//	│                       │                                   │
//	│          ┌────────────┼────────────┐                      │
//	│          ▼            ▼            ▼                      │
//	│    TargetTracker TargetTracker TargetTracker              │
//	│    (tracker.go — sequential or bounded worker pool)       │
//	│                                                           │
//	│   Per tracker, tiers in order, first hit wins:            │
//	│     1. ROI around last position (full resolution)         │
//	│     2. pyramid: coarse match on downscaled copy,          │
//	│        refined at full resolution                         │
//	│     3. exhaustive full-resolution scan (optional)         │
//	│     4. not found — last position cleared                  │
//	└─────────────────────────────────────────────────────────┘
//
// Matching is plain template correlation via OpenCV (gocv). Rotation and
// scale invariance are out of scope; so is multi-instance detection —
// each tracker reports the single best match for its template.
//
// # Thread Safety
//
// A TargetTracker is confined to one goroutine per cycle by the
// coordinator and is not safe for concurrent use on its own.
// MultiTargetCoordinator.Cycle must not be called concurrently with
// itself.
package vision
