//go:build !gocv

package imaging

import (
	"errors"
	"image"
)

const openCVAvailable = false

// OpenCVKMeans is unavailable in builds without the gocv tag.
type OpenCVKMeans struct {
	KMeans
}

// Extract always fails in this build.
func (OpenCVKMeans) Extract(image.Image) (RGB, error) {
	return RGB{}, errors.New("opencv kmeans requires a build with the gocv tag")
}
