package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/rs/zerolog"
)

func encodeJPEG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(90)(&buf, createFrame(8, 8, c)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestSplitJPEG(t *testing.T) {
	first := encodeJPEG(t, color.RGBA{255, 0, 0, 255})
	second := encodeJPEG(t, color.RGBA{0, 0, 255, 255})

	var stream bytes.Buffer
	stream.WriteString("garbage")
	stream.Write(first)
	stream.Write(second)
	stream.Write([]byte{0xFF, 0xD8, 0x00}) // truncated trailing frame

	tests := []struct {
		name    string
		reader  func() *bytes.Reader
		oneByte bool
	}{
		{"whole stream", func() *bytes.Reader { return bytes.NewReader(stream.Bytes()) }, false},
		{"one byte at a time", func() *bytes.Reader { return bytes.NewReader(stream.Bytes()) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var scanner *bufio.Scanner
			if tt.oneByte {
				scanner = bufio.NewScanner(iotest.OneByteReader(tt.reader()))
			} else {
				scanner = bufio.NewScanner(tt.reader())
			}
			scanner.Buffer(make([]byte, 16), maxFrameBytes)
			scanner.Split(SplitJPEG)

			var tokens [][]byte
			for scanner.Scan() {
				tok := make([]byte, len(scanner.Bytes()))
				copy(tok, scanner.Bytes())
				tokens = append(tokens, tok)
			}
			if err := scanner.Err(); err != nil {
				t.Fatalf("scan failed: %v", err)
			}
			if len(tokens) != 2 {
				t.Fatalf("got %d tokens, want 2", len(tokens))
			}
			if !bytes.Equal(tokens[0], first) || !bytes.Equal(tokens[1], second) {
				t.Error("tokens do not match the encoded frames")
			}

			frame, err := imaging.Decode(bytes.NewReader(tokens[1]))
			if err != nil {
				t.Fatalf("token does not decode: %v", err)
			}
			if got := frame.RGBAAt(4, 4); got.B < 200 || got.R > 50 {
				t.Errorf("second frame should be blue, got %v", got)
			}
		})
	}
}

func TestSplitJPEG_Empty(t *testing.T) {
	advance, token, err := SplitJPEG(nil, true)
	if advance != 0 || token != nil || err != nil {
		t.Errorf("SplitJPEG(nil, true) = %d, %v, %v", advance, token, err)
	}
}

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		packets bool
		want    int
		ok      bool
	}{
		{"header count", `{"streams":[{"nb_frames":"120"}]}`, false, 120, true},
		{"packet count", `{"streams":[{"nb_read_packets":"45"}]}`, true, 45, true},
		{"na", `{"streams":[{"nb_frames":"N/A"}]}`, false, 0, false},
		{"no streams", `{"streams":[]}`, false, 0, false},
		{"zero", `{"streams":[{"nb_frames":"0"}]}`, false, 0, false},
		{"invalid json", `not json`, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProbe([]byte(tt.out), tt.packets)
			if got != tt.want || ok != tt.ok {
				t.Errorf("parseProbe = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFFmpeg_UnsupportedFourCC(t *testing.T) {
	f := NewFFmpeg(zerolog.Nop())
	_, err := f.CreateSink(context.Background(), filepath.Join(t.TempDir(), "out.mp4"),
		SinkConfig{Width: 8, Height: 8, FPS: 30, FourCC: "zzzz"})
	if err == nil {
		t.Error("expected error for unknown fourcc")
	}
}

func TestFFmpeg_MissingInput(t *testing.T) {
	f := NewFFmpeg(zerolog.Nop())
	if _, err := f.OpenSource(context.Background(), filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing input")
	}
}

func requireFFmpeg(t *testing.T) *FFmpeg {
	t.Helper()
	f := NewFFmpeg(zerolog.Nop())
	if !f.Available() {
		t.Skip("ffmpeg not installed")
	}
	return f
}

func TestFFmpeg_RoundTrip(t *testing.T) {
	f := requireFFmpeg(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "clip.mp4")

	// Odd width exercises the encoder padding.
	cfg := SinkConfig{Width: 65, Height: 48, FPS: 30, FourCC: "mp4v"}
	sink, err := f.CreateSink(ctx, path, cfg)
	if err != nil {
		t.Fatalf("CreateSink failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := sink.Write(createFrame(65, 48, color.RGBA{200, 30, 30, 255})); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	src, err := f.OpenSource(ctx, path)
	if err != nil {
		t.Fatalf("OpenSource failed: %v", err)
	}
	defer src.Close()

	count := 0
	for {
		frame, err := src.Next()
		if errors.Is(err, ErrEndOfStream) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
		if got := frame.RGBAAt(20, 20); got.R < 150 || got.G > 80 || got.B > 80 {
			t.Errorf("frame %d: expected reddish pixel, got %v", count, got)
		}
	}
	if count != 5 {
		t.Errorf("decoded %d frames, want 5", count)
	}

	if _, err := exec.LookPath(f.FFprobePath); err == nil {
		n, err := f.ProbeFrameCount(ctx, path)
		if err != nil {
			t.Fatalf("ProbeFrameCount failed: %v", err)
		}
		if n != 5 {
			t.Errorf("ProbeFrameCount = %d, want 5", n)
		}
	}
}

func TestFFmpeg_Abort(t *testing.T) {
	f := requireFFmpeg(t)
	path := filepath.Join(t.TempDir(), "partial.mp4")

	sink, err := f.CreateSink(context.Background(), path, SinkConfig{Width: 16, Height: 16, FPS: 30})
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(createFrame(16, 16, color.RGBA{A: 255})); err != nil {
		t.Fatal(err)
	}
	if err := sink.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("partial output should be removed")
	}
}
