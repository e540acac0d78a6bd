package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
)

// ErrEmptyRegion is returned when a region has no pixels.
var ErrEmptyRegion = errors.New("empty region")

// Crop copies the pixels of rect out of frame. rect must lie within the frame
// bounds and have positive width and height.
func Crop(frame image.Image, rect image.Rectangle) (*image.RGBA, error) {
	bounds := frame.Bounds()
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyRegion, rect)
	}
	if !rect.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", rect, bounds)
	}
	return clone.AsRGBA(imaging.Crop(frame, rect)), nil
}

// Region returns a view of rect within frame without copying pixel data. The
// rectangle is first clipped to the frame bounds; ErrEmptyRegion is returned
// when nothing remains.
func Region(frame *image.RGBA, rect image.Rectangle) (*image.RGBA, error) {
	clipped := rect.Intersect(frame.Bounds())
	if clipped.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyRegion, rect)
	}
	return frame.SubImage(clipped).(*image.RGBA), nil
}

// Fit returns a copy of frame resized to exactly width x height.
func Fit(frame image.Image, width, height int) *image.RGBA {
	b := frame.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return clone.AsRGBA(frame)
	}
	return clone.AsRGBA(imaging.Resize(frame, width, height, imaging.Lanczos))
}

// Scale resizes frame by factor, keeping the aspect ratio. Sampling is
// nearest-neighbour, so the result holds no colors absent from frame.
// Factors that are not positive, or equal to 1, return a copy of the frame.
func Scale(frame image.Image, factor float64) *image.RGBA {
	if factor <= 0 || factor == 1 {
		return clone.AsRGBA(frame)
	}
	b := frame.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return clone.AsRGBA(imaging.Resize(frame, w, h, imaging.NearestNeighbor))
}
