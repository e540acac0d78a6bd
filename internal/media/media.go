// Package media reads frames from, and writes frames to, video containers and
// frame directories.
//
// Every Source yields frames as *image.RGBA in R, G, B order regardless of the
// backend; every Sink accepts the same. Backends that talk to OpenCV convert
// channel order at their own boundary.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Defaults applied by NewSinkConfig.
const (
	DefaultFPS    = 30.0
	DefaultFourCC = "mp4v"
)

var (
	// ErrEndOfStream is returned by Source.Next after the last frame.
	ErrEndOfStream = errors.New("end of stream")

	// ErrNoFrames means a sink was requested before any frame was produced.
	ErrNoFrames = errors.New("no frames to write")

	// ErrFrameSize is returned by Sink.Write for a frame that does not match
	// the sink dimensions.
	ErrFrameSize = errors.New("frame size does not match sink")
)

// FrameError reports a single frame that could not be decoded. The source
// remains usable and the next call to Next moves past the bad frame.
type FrameError struct {
	Index int
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Index, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Source yields decoded frames in presentation order.
type Source interface {
	// Next returns the next frame, ErrEndOfStream when there are no more, or a
	// *FrameError for a frame that could not be decoded. Any other error means
	// the stream itself failed.
	Next() (*image.RGBA, error)
	Close() error
}

// Sink accepts frames of a fixed size and writes them to an artifact.
type Sink interface {
	Write(frame *image.RGBA) error

	// Close finalizes the artifact.
	Close() error

	// Abort stops writing and removes the partial artifact.
	Abort() error
}

// SinkConfig fixes the geometry and timing of a sink.
type SinkConfig struct {
	Width  int
	Height int
	FPS    float64
	FourCC string
}

// NewSinkConfig sizes a sink from the first frame it will receive. A nil
// frame yields ErrNoFrames.
func NewSinkConfig(first image.Image, fps float64, fourcc string) (SinkConfig, error) {
	if first == nil {
		return SinkConfig{}, ErrNoFrames
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	b := first.Bounds()
	cfg := SinkConfig{Width: b.Dx(), Height: b.Dy(), FPS: fps, FourCC: fourcc}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return SinkConfig{}, fmt.Errorf("invalid sink size %dx%d", cfg.Width, cfg.Height)
	}
	return cfg, nil
}

// Backend opens sources and creates sinks for one container technology.
type Backend interface {
	OpenSource(ctx context.Context, path string) (Source, error)
	CreateSink(ctx context.Context, path string, cfg SinkConfig) (Sink, error)

	// Ext is the file extension of artifacts this backend writes, including
	// the dot. Directory based backends return "".
	Ext() string
}

// Backend names accepted by New.
const (
	BackendFFmpeg = "ffmpeg"
	BackendFrames = "frames"
	BackendGoCV   = "gocv"
)

// New returns the backend called name.
func New(name string, logger zerolog.Logger) (Backend, error) {
	logger = logger.With().Str("component", "media").Str("backend", name).Logger()
	switch name {
	case "", BackendFFmpeg:
		return NewFFmpeg(logger), nil
	case BackendFrames:
		return &Frames{Logger: logger}, nil
	case BackendGoCV:
		return NewGoCV(logger)
	default:
		return nil, fmt.Errorf("unknown media backend %q", name)
	}
}

// checkSize returns ErrFrameSize unless frame matches cfg.
func checkSize(frame image.Image, cfg SinkConfig) error {
	b := frame.Bounds()
	if b.Dx() != cfg.Width || b.Dy() != cfg.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), cfg.Width, cfg.Height)
	}
	return nil
}

var videoExts = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".mpg":  true,
	".mpeg": true,
}

// IsVideoPath reports whether path has a video container extension.
func IsVideoPath(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}
