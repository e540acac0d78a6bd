//go:build !gocv

package media

import (
	"errors"

	"github.com/rs/zerolog"
)

// NewGoCV fails in builds without the gocv tag.
func NewGoCV(zerolog.Logger) (Backend, error) {
	return nil, errors.New("gocv media backend requires a build with the gocv tag")
}
