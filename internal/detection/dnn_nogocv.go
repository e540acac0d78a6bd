//go:build !gocv

package detection

import (
	"fmt"

	"github.com/rs/zerolog"
)

// NewDNN fails in builds without the gocv tag.
func NewDNN(modelPath, _, _ string, _ zerolog.Logger) (Detector, error) {
	return nil, fmt.Errorf("%w: dnn detector for %q requires a build with the gocv tag", ErrUnavailable, modelPath)
}
