package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/rs/zerolog"
)

const (
	// Largest single JPEG frame the decoder scanner accepts.
	maxFrameBytes = 64 * 1024 * 1024
	// Initial scanner buffer.
	frameBufferBytes = 1024 * 1024
)

// codec maps a FourCC to an ffmpeg encoder and container tag.
type codec struct {
	encoder string
	tag     string
}

var fourccCodecs = map[string]codec{
	"mp4v": {encoder: "mpeg4", tag: "mp4v"},
	"xvid": {encoder: "mpeg4", tag: "xvid"},
	"avc1": {encoder: "libx264", tag: "avc1"},
	"h264": {encoder: "libx264"},
	"mjpg": {encoder: "mjpeg"},
}

// FFmpeg shells out to the ffmpeg and ffprobe executables. Frames travel
// between processes as an MJPEG stream (decode) and raw RGBA (encode).
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
	Logger      zerolog.Logger
}

// NewFFmpeg returns a backend using ffmpeg and ffprobe from PATH.
func NewFFmpeg(logger zerolog.Logger) *FFmpeg {
	return &FFmpeg{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe", Logger: logger}
}

// Ext implements Backend.
func (f *FFmpeg) Ext() string { return ".mp4" }

// Available reports whether the ffmpeg executable can be found.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.FFmpegPath)
	return err == nil
}

// OpenSource implements Backend.
func (f *FFmpeg) OpenSource(ctx context.Context, path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	cmd := exec.CommandContext(ctx, f.FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	src := &ffmpegSource{cmd: cmd, stdout: stdout, path: path}
	cmd.Stderr = &src.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	src.scanner = bufio.NewScanner(stdout)
	src.scanner.Buffer(make([]byte, frameBufferBytes), maxFrameBytes)
	src.scanner.Split(SplitJPEG)
	f.Logger.Debug().Str("path", path).Msg("decoder started")
	return src, nil
}

type ffmpegSource struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	scanner *bufio.Scanner
	stderr  bytes.Buffer
	path    string
	index   int
	done    bool
	waitErr error
	once    sync.Once
}

func (s *ffmpegSource) Next() (*image.RGBA, error) {
	if s.done {
		return nil, ErrEndOfStream
	}
	if !s.scanner.Scan() {
		s.done = true
		scanErr := s.scanner.Err()
		waitErr := s.wait()
		if scanErr != nil {
			return nil, fmt.Errorf("failed to read frames from %s: %w", s.path, scanErr)
		}
		if waitErr != nil {
			return nil, fmt.Errorf("ffmpeg failed on %s: %w (stderr: %s)", s.path, waitErr, strings.TrimSpace(s.stderr.String()))
		}
		return nil, ErrEndOfStream
	}

	idx := s.index
	s.index++
	frame, err := imaging.Decode(bytes.NewReader(s.scanner.Bytes()))
	if err != nil {
		return nil, &FrameError{Index: idx, Err: err}
	}
	return frame, nil
}

func (s *ffmpegSource) wait() error {
	s.once.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

func (s *ffmpegSource) Close() error {
	if !s.done && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.done = true
	_ = s.wait()
	return nil
}

// SplitJPEG is a bufio.SplitFunc that yields one complete JPEG image (SOI
// through EOI) per token. Bytes before the first SOI marker are discarded.
func SplitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	start := bytes.Index(data, []byte{0xFF, 0xD8})
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF in case it begins a marker.
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}

	end := bytes.Index(data[start+2:], []byte{0xFF, 0xD9})
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	end += start + 2 + 2
	return end, data[start:end], nil
}

// CreateSink implements Backend. The encoder pads odd dimensions to the next
// even size, which yuv420p requires.
func (f *FFmpeg) CreateSink(ctx context.Context, path string, cfg SinkConfig) (Sink, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrNoFrames
	}
	fourcc := strings.ToLower(cfg.FourCC)
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	c, ok := fourccCodecs[fourcc]
	if !ok {
		return nil, fmt.Errorf("unsupported fourcc %q", cfg.FourCC)
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-c:v", c.encoder,
	}
	if c.tag != "" {
		args = append(args, "-tag:v", c.tag)
	}
	args = append(args,
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-pix_fmt", "yuv420p",
		path,
	)

	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	sink := &ffmpegSink{cmd: cmd, stdin: stdin, path: path, cfg: cfg, logger: f.Logger}
	cmd.Stderr = &sink.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg encoder: %w", err)
	}
	f.Logger.Debug().
		Str("path", path).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Float64("fps", fps).
		Str("fourcc", fourcc).
		Msg("encoder started")
	return sink, nil
}

type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	path   string
	cfg    SinkConfig
	logger zerolog.Logger
	closed bool
	frames int
}

func (s *ffmpegSink) Write(frame *image.RGBA) error {
	if s.closed {
		return fmt.Errorf("write to closed sink %s", s.path)
	}
	if err := checkSize(frame, s.cfg); err != nil {
		return err
	}
	rowBytes := s.cfg.Width * 4
	if frame.Stride == rowBytes {
		if _, err := s.stdin.Write(frame.Pix[:rowBytes*s.cfg.Height]); err != nil {
			return s.writeError(err)
		}
	} else {
		for y := 0; y < s.cfg.Height; y++ {
			off := y * frame.Stride
			if _, err := s.stdin.Write(frame.Pix[off : off+rowBytes]); err != nil {
				return s.writeError(err)
			}
		}
	}
	s.frames++
	return nil
}

func (s *ffmpegSink) writeError(err error) error {
	return fmt.Errorf("failed to write frame %d to encoder: %w (stderr: %s)", s.frames, err, strings.TrimSpace(s.stderr.String()))
}

func (s *ffmpegSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.stdin.Close(); err != nil {
		_ = s.cmd.Wait()
		return fmt.Errorf("failed to close encoder input: %w", err)
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("encoder failed: %w (stderr: %s)", err, strings.TrimSpace(s.stderr.String()))
	}
	s.logger.Debug().Str("path", s.path).Int("frames", s.frames).Msg("encoder finished")
	return nil
}

func (s *ffmpegSink) Abort() error {
	if !s.closed {
		s.closed = true
		_ = s.stdin.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial output: %w", err)
	}
	return nil
}

type probeResult struct {
	Streams []struct {
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}

// ProbeFrameCount asks ffprobe for the number of video frames in path. It
// reads the container header first and falls back to counting packets. A
// count it cannot determine is an error; callers treat the total as unknown.
func (f *FFmpeg) ProbeFrameCount(ctx context.Context, path string) (int, error) {
	out, err := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames",
		"-of", "json",
		path,
	).Output()
	if err == nil {
		if n, ok := parseProbe(out, false); ok {
			return n, nil
		}
	}

	f.Logger.Debug().Str("path", path).Msg("frame count missing from header, counting packets")
	out, err = exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-count_packets",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_read_packets",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	if n, ok := parseProbe(out, true); ok {
		return n, nil
	}
	return 0, fmt.Errorf("ffprobe reported no frame count for %s", path)
}

func parseProbe(out []byte, packets bool) (int, bool) {
	var res probeResult
	if err := json.Unmarshal(out, &res); err != nil || len(res.Streams) == 0 {
		return 0, false
	}
	raw := res.Streams[0].NbFrames
	if packets {
		raw = res.Streams[0].NbReadPackets
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
