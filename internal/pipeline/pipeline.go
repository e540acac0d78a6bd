// Package pipeline runs media through detection, dominant color extraction,
// palette naming and annotation, and writes the annotated artifact.
//
// A Pipeline is built once, either from injected components with New or from
// a config.Config with Open, and may then serve any number of runs. Runs on
// the same Pipeline may execute concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/color-detect/internal/annotate"
	"github.com/ironsheep/color-detect/internal/config"
	"github.com/ironsheep/color-detect/internal/detection"
	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/ironsheep/color-detect/internal/media"
	"github.com/ironsheep/color-detect/internal/palette"
	"github.com/rs/zerolog"
)

// Options are the components and settings of a Pipeline.
type Options struct {
	Palette   *palette.Palette
	Detector  detection.Detector
	Extractor imaging.Extractor
	Annotator annotate.Annotator
	Colors    annotate.ColorStrategy
	Media     media.Backend

	// OutputDir receives annotated artifacts. Empty means the working
	// directory.
	OutputDir string

	// StageDir, when set, makes video runs write annotated frames there first
	// and assemble the clip from the staged files afterwards.
	StageDir string

	FPS     float64
	FourCC  string
	Workers int

	// Progress, if set, is called after each frame is written with the
	// number of frames written so far.
	Progress func(done int)

	Logger zerolog.Logger
}

// Pipeline processes images and videos.
type Pipeline struct {
	opts   Options
	logger zerolog.Logger
}

// New validates opts and returns a Pipeline. Missing components or an empty
// palette are reported as ErrFatalInit.
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Palette == nil || opts.Palette.Len() == 0:
		return nil, initError("palette", palette.ErrNoEntries)
	case opts.Detector == nil:
		return nil, initError("detector", errors.New("no detector configured"))
	case opts.Extractor == nil:
		return nil, initError("extractor", errors.New("no extractor configured"))
	case opts.Media == nil:
		return nil, initError("media", errors.New("no media backend configured"))
	}
	if opts.Colors == nil {
		opts.Colors = annotate.Random{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FPS <= 0 {
		opts.FPS = media.DefaultFPS
	}
	if opts.FourCC == "" {
		opts.FourCC = media.DefaultFourCC
	}
	return &Pipeline{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Open builds every component from cfg and returns a ready Pipeline. The
// caller must Close it.
func Open(cfg config.Config, logger zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, initError("config", err)
	}

	var (
		pal *palette.Palette
		err error
	)
	if cfg.PalettePath == "" {
		pal = palette.Default()
	} else if pal, err = palette.Load(cfg.PalettePath, logger); err != nil {
		return nil, initError("palette", err)
	}

	extractor, err := imaging.NewExtractor(cfg.Extractor, imaging.ExtractorConfig{
		Clusters:  cfg.Clusters,
		Attempts:  cfg.Attempts,
		MaxIter:   cfg.MaxIter,
		Epsilon:   cfg.Epsilon,
		Seed:      cfg.Seed,
		MaxPixels: cfg.MaxPixels,
	})
	if err != nil {
		return nil, initError("extractor", err)
	}

	colors, err := annotate.NewStrategy(strings.ToLower(cfg.Colors), cfg.Seed)
	if err != nil {
		return nil, initError("colors", err)
	}

	backend, err := media.New(cfg.MediaBackend, logger)
	if err != nil {
		return nil, initError("media", err)
	}

	det, err := detection.New(detection.Config{
		Kind:          cfg.Detector,
		MinConfidence: cfg.MinConfidence,
		InferenceURL:  cfg.InferenceURL,
		ModelPath:     cfg.ModelPath,
		ModelConfig:   cfg.ModelConfig,
		ClassesPath:   cfg.ClassesPath,
		OCRLanguage:   cfg.OCRLanguage,
	}, logger)
	if err != nil {
		return nil, initError("detector", err)
	}

	p, err := New(Options{
		Palette:   pal,
		Detector:  det,
		Extractor: extractor,
		Annotator: annotate.Annotator{Thickness: cfg.LineThickness, ShowNames: cfg.ShowNames},
		Colors:    colors,
		Media:     backend,
		OutputDir: cfg.OutputDir,
		StageDir:  cfg.StageDir,
		FPS:       cfg.FPS,
		FourCC:    cfg.FourCC,
		Workers:   cfg.Workers,
		Logger:    logger,
	})
	if err != nil {
		_ = det.Close()
		return nil, err
	}
	p.logger.Debug().
		Int("palette_entries", pal.Len()).
		Str("detector", cfg.Detector).
		Str("extractor", cfg.Extractor).
		Str("media", cfg.MediaBackend).
		Msg("pipeline ready")
	return p, nil
}

// Close releases the detector.
func (p *Pipeline) Close() error {
	return p.opts.Detector.Close()
}

// Palette returns the palette colors are named from.
func (p *Pipeline) Palette() *palette.Palette { return p.opts.Palette }

// Extractor returns the dominant color extractor.
func (p *Pipeline) Extractor() imaging.Extractor { return p.opts.Extractor }

// WithProgress returns a Pipeline sharing p's components that reports
// progress to fn.
func (p *Pipeline) WithProgress(fn func(done int)) *Pipeline {
	cp := *p
	cp.opts.Progress = fn
	return &cp
}

type frameCounter interface {
	ProbeFrameCount(ctx context.Context, path string) (int, error)
}

// FrameCount estimates the number of frames in a video, or returns -1 when
// the media backend cannot tell.
func (p *Pipeline) FrameCount(ctx context.Context, path string) int {
	fc, ok := p.opts.Media.(frameCounter)
	if !ok {
		return -1
	}
	n, err := fc.ProbeFrameCount(ctx, path)
	if err != nil {
		p.logger.Debug().Err(err).Str("path", path).Msg("frame count unknown")
		return -1
	}
	return n
}

// AnnotatedSuffix ends the base name of every artifact the pipeline writes.
const AnnotatedSuffix = "_annotated"

// IsAnnotated reports whether path names a pipeline artifact.
func IsAnnotated(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.HasSuffix(base, AnnotatedSuffix)
}

// outputPath is <OutputDir>/<base>_annotated<ext>.
func (p *Pipeline) outputPath(input, ext string) (string, error) {
	dir := p.opts.OutputDir
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", initError("output", fmt.Errorf("failed to create output directory: %w", err))
		}
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+AnnotatedSuffix+ext), nil
}

// analyze detects objects in frame, names the dominant color of each one and
// returns the annotated copy. Boxes are clipped to the frame; boxes left
// empty are dropped before sequence numbers are assigned.
func (p *Pipeline) analyze(ctx context.Context, frame *image.RGBA) ([]Detection, *image.RGBA, error) {
	objs, err := p.opts.Detector.Detect(ctx, frame)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, &Error{Kind: KindFatalInit, Op: "detect", Err: err}
	}

	bounds := frame.Bounds()
	dets := make([]Detection, 0, len(objs))
	for _, o := range objs {
		box := o.Box.Clip(bounds)
		if box.Empty() {
			p.logger.Warn().
				Str("label", o.Label).
				Interface("box", o.Box).
				Msg("dropping detection outside frame")
			continue
		}
		region, err := imaging.Region(frame, box.Rect())
		if err != nil {
			return nil, nil, &Error{Kind: KindContractViolation, Op: "region", Err: err}
		}
		c, err := p.opts.Extractor.Extract(region)
		if err != nil {
			return nil, nil, &Error{Kind: KindContractViolation, Op: "extract", Err: err}
		}
		entry, dist := p.opts.Palette.NearestEntry(c.R, c.G, c.B)
		dets = append(dets, Detection{
			Sequence:      len(dets) + 1,
			Label:         o.Label,
			Confidence:    o.Confidence,
			Box:           box,
			DominantColor: c,
			ColorName:     entry.Name,
			ColorHex:      c.Hex(),
			Distance:      dist,
		})
	}

	colors := p.opts.Colors.Colors(len(dets))
	marks := make([]annotate.Mark, len(dets))
	for i, d := range dets {
		marks[i] = annotate.Mark{
			Rect:     d.Box.Rect(),
			Sequence: d.Sequence,
			Color:    colors[i],
			Name:     d.ColorName,
		}
	}
	return dets, p.opts.Annotator.Annotate(frame, marks), nil
}
