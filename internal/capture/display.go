package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"gocv.io/x/gocv"
)

// ErrNoDisplay is returned when the requested display does not exist.
var ErrNoDisplay = errors.New("capture: display not available")

// Display is a frame source backed by one physical monitor.
//
// Not safe for concurrent use. Construct it on the goroutine that calls
// Grab (see the package documentation on thread affinity).
type Display struct {
	index  int
	bounds image.Rectangle
}

// OpenDisplay selects a monitor by index (0 is the primary display).
func OpenDisplay(index int) (*Display, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("%w: no active displays", ErrNoDisplay)
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("%w: display %d of %d", ErrNoDisplay, index, n)
	}
	return &Display{
		index:  index,
		bounds: screenshot.GetDisplayBounds(index),
	}, nil
}

// DisplayBounds returns the rectangle of a display without opening it.
// Safe to call from any goroutine; only Grab is thread-bound.
func DisplayBounds(index int) (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no active displays", ErrNoDisplay)
	}
	if index < 0 || index >= n {
		return image.Rectangle{}, fmt.Errorf("%w: display %d of %d", ErrNoDisplay, index, n)
	}
	return screenshot.GetDisplayBounds(index), nil
}

// Bounds returns the display rectangle in virtual-screen coordinates.
func (d *Display) Bounds() image.Rectangle { return d.bounds }

// Grab captures the current framebuffer and returns it as a BGR mat,
// matching the channel order of templates decoded by gocv.IMRead.
// The caller owns the mat and must close it.
func (d *Display) Grab() (gocv.Mat, error) {
	img, err := screenshot.CaptureRect(d.bounds)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("capturing display %d: %w", d.index, err)
	}
	mat, err := frameToBGR(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("converting frame: %w", err)
	}
	return mat, nil
}

// frameToBGR converts a captured RGBA image into a 3-channel BGR mat.
// gocv.ImageToMatRGB orders channels RGB; everything downstream expects
// the BGR layout IMRead produces, so the R/B planes are swapped here.
func frameToBGR(img *image.RGBA) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	// ColorBGRToRGB is a plain R/B swap, so it also maps RGB to BGR.
	gocv.CvtColor(mat, &mat, gocv.ColorBGRToRGB)
	return mat, nil
}

// Close releases the display source. The underlying capture API is
// stateless, so this is a no-op kept for the FrameSource contract.
func (d *Display) Close() error { return nil }
