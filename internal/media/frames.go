package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/rs/zerolog"
)

var frameNumber = regexp.MustCompile(`(\d+)\D*$`)

// Frames treats a directory of numbered still images as a video. Sources read
// every image in the directory ordered by the last number in its file name;
// sinks write frame_000000.png, frame_000001.png and so on.
type Frames struct {
	// Format is the extension written by sinks. Empty means ".png".
	Format string
	Logger zerolog.Logger
}

// Ext implements Backend. Frame sequences are directories.
func (f *Frames) Ext() string { return "" }

// OpenSource implements Backend.
func (f *Frames) OpenSource(ctx context.Context, dir string) (Source, error) {
	paths, err := ListFrames(dir)
	if err != nil {
		return nil, err
	}
	f.Logger.Debug().Str("dir", dir).Int("frames", len(paths)).Msg("frame directory opened")
	return &framesSource{ctx: ctx, paths: paths}, nil
}

// ListFrames returns the image files in dir in frame order.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}
	type numbered struct {
		path string
		n    int
	}
	frames := make([]numbered, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imaging.IsImagePath(e.Name()) {
			continue
		}
		n := -1
		base := e.Name()[:len(e.Name())-len(filepath.Ext(e.Name()))]
		if m := frameNumber.FindStringSubmatch(base); m != nil {
			n, _ = strconv.Atoi(m[1])
		}
		frames = append(frames, numbered{path: filepath.Join(dir, e.Name()), n: n})
	}
	sort.SliceStable(frames, func(i, j int) bool {
		if frames[i].n != frames[j].n {
			return frames[i].n < frames[j].n
		}
		return frames[i].path < frames[j].path
	})

	paths := make([]string, len(frames))
	for i, fr := range frames {
		paths[i] = fr.path
	}
	return paths, nil
}

type framesSource struct {
	ctx   context.Context
	paths []string
	next  int
}

func (s *framesSource) Next() (*image.RGBA, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.paths) {
		return nil, ErrEndOfStream
	}
	idx := s.next
	s.next++
	frame, err := imaging.Load(s.paths[idx])
	if err != nil {
		return nil, &FrameError{Index: idx, Err: err}
	}
	return frame, nil
}

func (s *framesSource) Close() error { return nil }

// CreateSink implements Backend. The directory is created if needed.
func (f *Frames) CreateSink(_ context.Context, dir string, cfg SinkConfig) (Sink, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrNoFrames
	}
	format := f.Format
	if format == "" {
		format = ".png"
	}
	if _, err := imaging.EncoderFor("x" + format); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	return &framesSink{dir: dir, format: format, cfg: cfg}, nil
}

type framesSink struct {
	dir     string
	format  string
	cfg     SinkConfig
	written []string
}

// FramePath is the file name a frame sink uses for frame n.
func FramePath(dir string, n int, format string) string {
	return filepath.Join(dir, fmt.Sprintf("frame_%06d%s", n, format))
}

func (s *framesSink) Write(frame *image.RGBA) error {
	if err := checkSize(frame, s.cfg); err != nil {
		return err
	}
	path := FramePath(s.dir, len(s.written), s.format)
	if err := imaging.Save(path, frame); err != nil {
		return err
	}
	s.written = append(s.written, path)
	return nil
}

func (s *framesSink) Close() error { return nil }

// Abort removes the frames written so far, and the directory if that leaves
// it empty.
func (s *framesSink) Abort() error {
	for _, p := range s.written {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove frame: %w", err)
		}
	}
	s.written = nil
	if entries, err := os.ReadDir(s.dir); err == nil && len(entries) == 0 {
		_ = os.Remove(s.dir)
	}
	return nil
}

// ProbeFrameCount returns the number of image files in dir.
func (f *Frames) ProbeFrameCount(_ context.Context, dir string) (int, error) {
	paths, err := ListFrames(dir)
	if err != nil {
		return 0, err
	}
	return len(paths), nil
}
