package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"sort"
	"time"

	"github.com/ironsheep/color-detect/internal/ocr"
	"github.com/rs/zerolog"
)

// Box is an axis-aligned bounding box in pixel coordinates. (X, Y) is the
// top-left corner.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoxFromRect converts an image.Rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image.Rectangle (Max exclusive).
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Area is Width * Height, or 0 for an empty box.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// Clip returns the part of b inside bounds. The result may be empty.
func (b Box) Clip(bounds image.Rectangle) Box {
	r := b.Rect().Intersect(bounds)
	if r.Empty() {
		return Box{X: b.X, Y: b.Y}
	}
	return BoxFromRect(r)
}

// Object is one detection result.
type Object struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Detector locates objects in a frame. Implementations must be safe for
// concurrent calls to Detect.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]Object, error)
	Close() error
}

// Detector kinds accepted by New.
const (
	KindNone   = "none"
	KindStatic = "static"
	KindShapes = "shapes"
	KindOCR    = "ocr"
	KindRemote = "remote"
	KindDNN    = "dnn"
)

// ErrUnavailable is returned when a detector backend cannot be reached or
// was not compiled in.
var ErrUnavailable = errors.New("detector unavailable")

// Config selects and configures a detector backend.
type Config struct {
	Kind          string
	MinConfidence float64

	// remote
	InferenceURL string
	Timeout      time.Duration
	HTTPClient   *http.Client

	// dnn
	ModelPath   string
	ModelConfig string
	ClassesPath string

	// ocr
	OCRLanguage string

	// static
	Objects []Object
}

// New builds the detector named by cfg.Kind. Any error is a fatal
// initialization failure for the caller.
func New(cfg Config, logger zerolog.Logger) (Detector, error) {
	logger = logger.With().Str("component", "detector").Str("kind", cfg.Kind).Logger()

	var (
		d   Detector
		err error
	)
	switch cfg.Kind {
	case KindNone:
		d = None{}
	case KindStatic:
		d = &Static{Objects: cfg.Objects}
	case "", KindShapes:
		d = DefaultShapes()
	case KindOCR:
		if info := ocr.GetInfo(); !info.Available {
			return nil, fmt.Errorf("%w: tesseract reports no version", ErrUnavailable)
		}
		d = NewOCR(cfg.OCRLanguage)
	case KindRemote:
		d, err = NewRemote(context.Background(), cfg.InferenceURL, cfg.HTTPClient, cfg.Timeout, logger)
	case KindDNN:
		d, err = NewDNN(cfg.ModelPath, cfg.ModelConfig, cfg.ClassesPath, logger)
	default:
		return nil, fmt.Errorf("unknown detector %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug().Float64("min_confidence", cfg.MinConfidence).Msg("detector ready")
	if cfg.MinConfidence > 0 {
		d = &thresholded{Detector: d, min: cfg.MinConfidence}
	}
	return d, nil
}

// thresholded drops detections below a confidence floor.
type thresholded struct {
	Detector
	min float64
}

func (t *thresholded) Detect(ctx context.Context, frame image.Image) ([]Object, error) {
	objs, err := t.Detector.Detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	kept := objs[:0]
	for _, o := range objs {
		if o.Confidence >= t.min {
			kept = append(kept, o)
		}
	}
	return kept, nil
}

// None never detects anything.
type None struct{}

// Detect implements Detector.
func (None) Detect(ctx context.Context, _ image.Image) ([]Object, error) {
	return nil, ctx.Err()
}

// Close implements Detector.
func (None) Close() error { return nil }

// Static returns the same objects for every frame.
type Static struct {
	Objects []Object
}

// Detect implements Detector. The returned slice is a copy.
func (s *Static) Detect(ctx context.Context, _ image.Image) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Object, len(s.Objects))
	copy(out, s.Objects)
	return out, nil
}

// Close implements Detector.
func (s *Static) Close() error { return nil }

// Suppress removes overlapping detections. Objects are ranked by confidence
// and then by area, and each one is kept only if it does not intersect any
// object already kept. The result is in rank order.
func Suppress(objs []Object) []Object {
	ranked := make([]Object, len(objs))
	copy(ranked, objs)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Box.Area() > ranked[j].Box.Area()
	})

	kept := make([]Object, 0, len(ranked))
	for _, o := range ranked {
		r := o.Box.Rect()
		overlaps := false
		for _, k := range kept {
			if r.Overlaps(k.Box.Rect()) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, o)
		}
	}
	return kept
}
