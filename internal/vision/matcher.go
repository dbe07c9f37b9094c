package vision

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Match is the best-aligned offset of a template within a search region,
// with a normalized score in [0,1] where higher is always better.
// Coordinates are relative to the region's top-left corner.
type Match struct {
	X     int
	Y     int
	Score float64
}

// Matcher scores the alignment of a template against a frame region.
//
// Implementations must be pure: no side effects, no retained references
// to the input mats. Trackers depend on this interface so tests can
// substitute deterministic scoring.
type Matcher interface {
	// BestMatch returns the single best match of tpl inside region.
	// The region must be at least as large as the template in both
	// dimensions; ErrRegionTooSmall is returned otherwise.
	BestMatch(region, tpl gocv.Mat) (Match, error)
}

// TemplateMatcher is the OpenCV-backed Matcher used in production.
//
// It runs gocv.MatchTemplate with a fixed correlation method and converts
// lower-is-better methods (TM_SQDIFF*) so callers always see a
// higher-is-better score.
type TemplateMatcher struct {
	method gocv.TemplateMatchMode
}

// NewTemplateMatcher creates a matcher using normalized cross-correlation
// (TM_CCOEFF_NORMED), the method the tracker thresholds are tuned for.
func NewTemplateMatcher() *TemplateMatcher {
	return &TemplateMatcher{method: gocv.TmCcoeffNormed}
}

// NewTemplateMatcherWithMethod creates a matcher with an explicit OpenCV
// correlation method. Scores are normalized to higher-is-better for every
// method, including TM_SQDIFF*.
func NewTemplateMatcherWithMethod(method gocv.TemplateMatchMode) *TemplateMatcher {
	return &TemplateMatcher{method: method}
}

// BestMatch implements Matcher.
func (m *TemplateMatcher) BestMatch(region, tpl gocv.Mat) (Match, error) {
	if region.Cols() < tpl.Cols() || region.Rows() < tpl.Rows() {
		return Match{}, fmt.Errorf("%w: region %dx%d, template %dx%d",
			ErrRegionTooSmall, region.Cols(), region.Rows(), tpl.Cols(), tpl.Rows())
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(region, tpl, &result, m.method, mask)
	minVal, maxVal, minLoc, maxLoc := gocv.MinMaxLoc(result)

	switch m.method {
	case gocv.TmSqdiff, gocv.TmSqdiffNormed:
		// Lower is better: flip into a higher-is-better score.
		return Match{X: minLoc.X, Y: minLoc.Y, Score: clamp01(1.0 - float64(minVal))}, nil
	default:
		return Match{X: maxLoc.X, Y: maxLoc.Y, Score: clamp01(float64(maxVal))}, nil
	}
}

// clamp01 bounds a correlation score to [0,1]. TM_CCOEFF_NORMED can go
// slightly negative on anti-correlated regions.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
