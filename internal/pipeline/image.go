package pipeline

import (
	"context"
	"fmt"

	"github.com/ironsheep/color-detect/internal/imaging"
)

// RunImage processes a still image: it names the dominant color of the whole
// frame and of every detected region, and writes
// <OutputDir>/<base>_annotated.png.
func (p *Pipeline) RunImage(ctx context.Context, path string) (*ImageResult, error) {
	log := p.logger.With().Str("path", path).Logger()

	frame, err := imaging.Load(path)
	if err != nil {
		return nil, decodeError(path, err)
	}
	b := frame.Bounds()
	log.Debug().Str("state", "loaded").Int("width", b.Dx()).Int("height", b.Dy()).Msg("image loaded")

	if err := ctx.Err(); err != nil {
		return nil, canceledError(path, err)
	}

	whole, err := p.opts.Extractor.Extract(frame)
	if err != nil {
		return nil, &Error{Kind: KindContractViolation, Op: "extract", Path: path, Err: err}
	}

	dets, annotated, err := p.analyze(ctx, frame)
	if err != nil {
		return nil, p.wrapRunError(ctx, path, err)
	}
	log.Debug().Str("state", "detected").Int("detections", len(dets)).Msg("regions named")

	out, err := p.outputPath(path, ".png")
	if err != nil {
		return nil, err
	}
	if err := imaging.Save(out, annotated); err != nil {
		return nil, initError("output", fmt.Errorf("failed to write annotated image: %w", err))
	}
	log.Debug().Str("state", "annotated").Str("output", out).Msg("annotated image written")

	entry, _ := p.opts.Palette.NearestEntry(whole.R, whole.G, whole.B)
	log.Info().
		Str("color", entry.Name).
		Int("detections", len(dets)).
		Str("output", out).
		Msg("image processed")

	return &ImageResult{
		Path:          path,
		OutputPath:    out,
		Width:         b.Dx(),
		Height:        b.Dy(),
		DominantColor: whole,
		ColorName:     entry.Name,
		ColorHex:      whole.Hex(),
		Detections:    dets,
	}, nil
}

// wrapRunError attaches path to err, turning context errors into
// cancellations.
func (p *Pipeline) wrapRunError(ctx context.Context, path string, err error) error {
	if ctx.Err() != nil {
		return canceledError(path, ctx.Err())
	}
	if pe, ok := err.(*Error); ok {
		if pe.Path == "" {
			pe.Path = path
		}
		return pe
	}
	return &Error{Kind: KindContractViolation, Op: "run", Path: path, Err: err}
}
