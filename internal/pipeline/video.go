package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/ironsheep/color-detect/internal/media"
	"github.com/rs/zerolog"
)

type frameJob struct {
	seq   int // position among usable frames
	index int // position in the source
	frame *image.RGBA
}

type frameOut struct {
	seq   int
	index int
	dets  []Detection
	frame *image.RGBA
	err   error
}

// RunVideo processes every frame of a video and assembles the annotated
// frames into <OutputDir>/<base>_annotated<ext>.
//
// The output has one frame per usable input frame, in input order, at the
// size of the first frame. Undecodable frames after the first are skipped.
// When ctx is canceled the frames already processed in order are written, the
// artifact is finalized and an error matching ErrCanceled is returned along
// with the partial result.
func (p *Pipeline) RunVideo(ctx context.Context, path string) (*VideoResult, error) {
	log := p.logger.With().Str("path", path).Logger()

	src, err := p.opts.Media.OpenSource(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceledError(path, ctx.Err())
		}
		return nil, decodeError(path, err)
	}
	defer src.Close()
	log.Debug().Str("state", "opened").Msg("video opened")

	first, err := src.Next()
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceledError(path, ctx.Err())
		}
		if errors.Is(err, media.ErrEndOfStream) {
			return nil, emptyMediaError(path, media.ErrNoFrames)
		}
		return nil, emptyMediaError(path, err)
	}

	out, err := p.outputPath(path, p.opts.Media.Ext())
	if err != nil {
		return nil, err
	}

	res := &VideoResult{Path: path, OutputPath: out, FPS: p.opts.FPS}
	w := &frameWriter{p: p, log: log, res: res, path: out, backend: p.opts.Media}

	var stageDir string
	if p.opts.StageDir != "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		stageDir, err = os.MkdirTemp(p.opts.StageDir, base+"-")
		if err != nil {
			return nil, initError("stage", fmt.Errorf("failed to create staging directory: %w", err))
		}
		defer os.RemoveAll(stageDir)
		w.path = stageDir
		w.backend = &media.Frames{Logger: log, Format: stageFormat}
	}

	runErr := p.process(ctx, log, src, first, res, w)

	if runErr != nil && !errors.Is(runErr, ErrCanceled) {
		_ = w.abort()
		return nil, runErr
	}
	if err := w.close(); err != nil {
		_ = w.abort()
		return nil, initError("output", err)
	}

	if stageDir != "" && w.written > 0 {
		log.Debug().Str("state", "assemble").Str("stage", stageDir).Msg("assembling staged frames")
		if err := p.assemble(ctx, log, stageDir, res); err != nil {
			return nil, err
		}
	}

	if w.written == 0 && runErr == nil {
		return nil, emptyMediaError(path, media.ErrNoFrames)
	}
	if runErr != nil {
		log.Warn().Int("frames", res.FrameCount).Msg("run canceled, partial output kept")
		return res, runErr
	}

	log.Info().
		Int("frames", res.FrameCount).
		Int("skipped", len(res.Skipped)).
		Str("output", out).
		Msg("video processed")
	log.Debug().Str("state", "done").Msg("video run finished")
	return res, nil
}

// process reads frames, fans them out to the workers and writes results in
// source order. It returns nil, a cancellation error, or a fatal error.
func (p *Pipeline) process(ctx context.Context, log zerolog.Logger, src media.Source, first *image.RGBA, res *VideoResult, w *frameWriter) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.opts.Workers
	jobs := make(chan frameJob, workers*2)
	results := make(chan frameOut, workers*2)

	// Owned by the reader until jobs is closed.
	var skipped []int
	var warnings []string

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer close(jobs)

		send := func(j frameJob) bool {
			select {
			case jobs <- j:
				return true
			case <-runCtx.Done():
				return false
			}
		}
		if !send(frameJob{seq: 0, index: 0, frame: first}) {
			return
		}

		seq, index := 1, 1
		for runCtx.Err() == nil {
			frame, err := src.Next()
			idx := index
			index++
			if err != nil {
				if errors.Is(err, media.ErrEndOfStream) {
					return
				}
				if runCtx.Err() != nil {
					return
				}
				var fe *media.FrameError
				if errors.As(err, &fe) {
					log.Warn().Err(err).Int("frame", idx).Msg("skipping undecodable frame")
					skipped = append(skipped, idx)
					continue
				}
				log.Warn().Err(err).Int("frame", idx).Msg("video stream ended early")
				warnings = append(warnings, err.Error())
				return
			}
			log.Debug().Str("state", "read_frame").Int("frame", idx).Msg("frame read")
			if !send(frameJob{seq: seq, index: idx, frame: frame}) {
				return
			}
			seq++
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				dets, annotated, err := p.analyze(runCtx, j.frame)
				results <- frameOut{seq: j.seq, index: j.index, dets: dets, frame: annotated, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var fatal error
	canceled := false
	pending := make(map[int]frameOut)
	next := 0
	for r := range results {
		if fatal != nil {
			continue
		}
		if r.err != nil {
			if ctx.Err() != nil {
				canceled = true
				continue
			}
			fatal = r.err
			cancel()
			continue
		}
		pending[r.seq] = r
		for {
			rr, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := w.write(ctx, rr); err != nil {
				fatal = err
				cancel()
				break
			}
			next++
		}
	}
	<-readerDone

	res.Skipped = append(res.Skipped, skipped...)
	res.Warnings = append(res.Warnings, warnings...)

	if fatal != nil {
		return p.wrapRunError(context.Background(), w.res.Path, fatal)
	}
	if canceled || ctx.Err() != nil {
		return canceledError(res.Path, context.Canceled)
	}
	return nil
}

// stageFormat is the image format of staged frames.
const stageFormat = ".png"

// assemble re-reads staged frames into the final artifact. Staged frame i
// holds res.Frames[i]; a frame that cannot be re-read is dropped from the
// results and its source index is reported as skipped.
func (p *Pipeline) assemble(ctx context.Context, log zerolog.Logger, stageDir string, res *VideoResult) error {
	final := &frameWriter{p: p, log: log, res: res, path: res.OutputPath, backend: p.opts.Media, quiet: true}
	kept := res.Frames[:0:0]
	for i, fr := range res.Frames {
		fp := media.FramePath(stageDir, i, stageFormat)
		frame, err := imaging.Load(fp)
		if err != nil {
			log.Warn().Err(err).Str("frame", fp).Int("index", fr.Index).Msg("skipping unreadable staged frame")
			res.Skipped = append(res.Skipped, fr.Index)
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		if err := final.put(context.WithoutCancel(ctx), frame); err != nil {
			_ = final.abort()
			return err
		}
		kept = append(kept, fr)
	}
	sort.Ints(res.Skipped)
	res.Frames = kept

	if final.written == 0 {
		return emptyMediaError(res.Path, media.ErrNoFrames)
	}
	if err := final.close(); err != nil {
		_ = final.abort()
		return initError("output", err)
	}
	res.FrameCount = final.written
	return nil
}

// frameWriter owns the sink. The sink is created from the first frame it is
// given; later frames of another size are resized to match.
type frameWriter struct {
	p       *Pipeline
	log     zerolog.Logger
	res     *VideoResult
	path    string
	backend media.Backend
	sink    media.Sink
	cfg     media.SinkConfig
	written int

	// quiet writers do not record frames or report progress.
	quiet bool
}

func (w *frameWriter) write(ctx context.Context, r frameOut) error {
	// The sink must outlive cancellation so the partial clip can be finalized.
	if err := w.put(context.WithoutCancel(ctx), r.frame); err != nil {
		return err
	}
	w.res.Frames = append(w.res.Frames, FrameResult{Index: r.index, Detections: r.dets})
	w.res.FrameCount = w.written
	if w.p.opts.Progress != nil {
		w.p.opts.Progress(w.written)
	}
	return nil
}

func (w *frameWriter) put(ctx context.Context, frame *image.RGBA) error {
	if w.sink == nil {
		cfg, err := media.NewSinkConfig(frame, w.p.opts.FPS, w.p.opts.FourCC)
		if err != nil {
			return initError("output", err)
		}
		sink, err := w.backend.CreateSink(ctx, w.path, cfg)
		if err != nil {
			return initError("output", err)
		}
		w.sink, w.cfg = sink, cfg
		w.res.Width, w.res.Height = cfg.Width, cfg.Height
		w.log.Debug().Str("output", w.path).Int("width", cfg.Width).Int("height", cfg.Height).Msg("sink created")
	}

	b := frame.Bounds()
	if b.Dx() != w.cfg.Width || b.Dy() != w.cfg.Height {
		if !w.quiet {
			w.log.Warn().
				Int("width", b.Dx()).
				Int("height", b.Dy()).
				Msg("resizing frame to output size")
		}
		frame = imaging.Fit(frame, w.cfg.Width, w.cfg.Height)
	}
	if err := w.sink.Write(frame); err != nil {
		return initError("output", err)
	}
	w.written++
	return nil
}

func (w *frameWriter) close() error {
	if w.sink == nil {
		return nil
	}
	return w.sink.Close()
}

func (w *frameWriter) abort() error {
	if w.sink == nil {
		return nil
	}
	return w.sink.Abort()
}
