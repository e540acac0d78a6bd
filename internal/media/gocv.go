//go:build gocv

package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/anthonynsimon/bild/clone"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// GoCV reads and writes video through OpenCV. Mats are BGR; frames are
// converted to RGB order on read and back on write, once each.
type GoCV struct {
	Logger zerolog.Logger
}

// NewGoCV returns the OpenCV backend.
func NewGoCV(logger zerolog.Logger) (Backend, error) {
	return &GoCV{Logger: logger}, nil
}

// Ext implements Backend.
func (g *GoCV) Ext() string { return ".mp4" }

// OpenSource implements Backend.
func (g *GoCV) OpenSource(_ context.Context, path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}
	return &gocvSource{vc: vc, mat: gocv.NewMat()}, nil
}

type gocvSource struct {
	vc    *gocv.VideoCapture
	mat   gocv.Mat
	index int
}

func (s *gocvSource) Next() (*image.RGBA, error) {
	if ok := s.vc.Read(&s.mat); !ok {
		return nil, ErrEndOfStream
	}
	idx := s.index
	s.index++
	if s.mat.Empty() {
		return nil, &FrameError{Index: idx, Err: errors.New("empty frame")}
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, &FrameError{Index: idx, Err: err}
	}
	return clone.AsRGBA(img), nil
}

func (s *gocvSource) Close() error {
	s.mat.Close()
	return s.vc.Close()
}

// CreateSink implements Backend.
func (g *GoCV) CreateSink(_ context.Context, path string, cfg SinkConfig) (Sink, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrNoFrames
	}
	fourcc := cfg.FourCC
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	vw, err := gocv.VideoWriterFile(path, fourcc, fps, cfg.Width, cfg.Height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create video writer: %w", err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("failed to open video writer for %s", path)
	}
	return &gocvSink{vw: vw, path: path, cfg: cfg}, nil
}

type gocvSink struct {
	vw     *gocv.VideoWriter
	path   string
	cfg    SinkConfig
	closed bool
}

func (s *gocvSink) Write(frame *image.RGBA) error {
	if err := checkSize(frame, s.cfg); err != nil {
		return err
	}
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()
	return s.vw.Write(mat)
}

func (s *gocvSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.vw.Close()
}

func (s *gocvSink) Abort() error {
	_ = s.Close()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial output: %w", err)
	}
	return nil
}
