package vision

import "errors"

// Domain errors for the vision package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, vision.ErrTemplateUnreadable) {
//	    // bad asset path — fatal at construction time
//	}
var (
	// ErrRegionTooSmall is returned by a matcher when the search region is
	// smaller than the template. This is a caller bug, not a runtime
	// fallback: trackers size their ROIs before matching.
	ErrRegionTooSmall = errors.New("vision: region smaller than template")

	// ErrTemplateUnreadable is returned when a template asset is missing
	// or cannot be decoded. Construction fails on the first bad asset.
	ErrTemplateUnreadable = errors.New("vision: template unreadable")

	// ErrNoTemplates is returned when a coordinator is built without any
	// templates to track.
	ErrNoTemplates = errors.New("vision: no templates")

	// ErrCaptureFailed wraps frame source failures for a single cycle.
	ErrCaptureFailed = errors.New("vision: frame capture failed")
)
