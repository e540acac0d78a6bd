package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/color-detect/internal/detection"
	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/ironsheep/color-detect/internal/pipeline"
	"github.com/jackc/pgx/v5"
)

func TestRunID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}

	id1, err := RunID(path)
	if err != nil {
		t.Fatalf("RunID failed: %v", err)
	}
	if len(id1) != 64 {
		t.Errorf("expected a hex sha256, got %q", id1)
	}
	id2, _ := RunID(path)
	if id1 != id2 {
		t.Error("RunID should be stable for an unchanged file")
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	id3, _ := RunID(path)
	if id3 == id1 {
		t.Error("RunID should change with the modification time")
	}

	if _, err := RunID(filepath.Join(dir, "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}

// openTestStore connects to COLOR_DETECT_TEST_DATABASE_URL or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("COLOR_DETECT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("COLOR_DETECT_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestStore_SaveImage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "red.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := &pipeline.ImageResult{
		Path: path, OutputPath: "out.png", Width: 10, Height: 10,
		ColorName: "Red", ColorHex: "#FF0000",
		Detections: []pipeline.Detection{
			{Sequence: 1, Label: "rectangle", Confidence: 0.9, Box: detection.Box{Width: 5, Height: 5}, DominantColor: imaging.RGB{R: 255}, ColorName: "Red"},
			{Sequence: 2, Label: "circle", Confidence: 0.6, Box: detection.Box{X: 5, Width: 5, Height: 5}, DominantColor: imaging.RGB{B: 255}, ColorName: "Blue"},
		},
	}

	id, err := s.SaveImage(ctx, res)
	if err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	// Saving twice replaces rather than duplicates.
	if _, err := s.SaveImage(ctx, res); err != nil {
		t.Fatalf("second SaveImage failed: %v", err)
	}

	sum, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sum.Kind != "image" || sum.Detections != 2 || sum.FrameCount != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestStore_SaveVideo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := &pipeline.VideoResult{
		Path: path, OutputPath: "clip_annotated.mp4", Width: 32, Height: 24, FPS: 30, FrameCount: 3,
		Frames: []pipeline.FrameResult{
			{Index: 0},
			{Index: 1, Detections: []pipeline.Detection{{Sequence: 1, Label: "text", ColorName: "Black"}}},
			{Index: 2},
		},
	}

	id, err := s.SaveVideo(ctx, res)
	if err != nil {
		t.Fatalf("SaveVideo failed: %v", err)
	}
	sum, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sum.Kind != "video" || sum.FrameCount != 3 || sum.Detections != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}

	if _, err := s.Get(ctx, "no-such-run"); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected pgx.ErrNoRows, got %v", err)
	}
}
