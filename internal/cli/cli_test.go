package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/ironsheep/color-detect/internal/media"
)

// run executes the command line with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(BuildInfo{Version: "test", BuildTime: "now", GitCommit: "abc"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--log-level", "disabled"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestPaletteNearest(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"rgb", []string{"255", "0", "0"}, "Red", false},
		{"hex", []string{"#0000FF"}, "Blue", false},
		{"hex without hash", []string{"ffffff"}, "White", false},
		{"channel out of range", []string{"256", "0", "0"}, "", true},
		{"not a number", []string{"red", "0", "0"}, "", true},
		{"wrong arity", []string{"1", "2"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"palette", "nearest"}, tt.args...)...)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("command failed: %v", err)
			}
			var res nearestResult
			if err := json.Unmarshal([]byte(out), &res); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if res.Name != tt.want || res.Distance != 0 {
				t.Errorf("got %s (%d), want %s (0)", res.Name, res.Distance, tt.want)
			}
		})
	}
}

func TestPaletteList(t *testing.T) {
	out, err := run(t, "palette", "list", "--contains", "blue")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one blue entry")
	}
	for _, e := range entries {
		if !strings.Contains(strings.ToLower(e.Name), "blue") {
			t.Errorf("entry %q does not match filter", e.Name)
		}
	}
}

func TestPaletteList_BadPalette(t *testing.T) {
	if _, err := run(t, "--palette", filepath.Join(t.TempDir(), "missing.csv"), "palette", "list"); err == nil {
		t.Error("expected error for missing palette")
	}
}

func TestImageCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "red.png")
	if err := imaging.Save(path, solidImage(60, 40, color.RGBA{255, 0, 0, 255})); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "results")

	out, err := run(t, "--detector", "none", "--seed", "3", "-o", outDir, "image", path)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	var res struct {
		ColorName  string `json:"color_name"`
		OutputPath string `json:"output_path"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.ColorName != "Red" {
		t.Errorf("color_name = %q, want Red", res.ColorName)
	}
	if _, err := os.Stat(filepath.Join(outDir, "red_annotated.png")); err != nil {
		t.Errorf("annotated image missing: %v", err)
	}
}

func TestVideoCommand_FrameDirectory(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip")
	if err := os.MkdirAll(clip, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := imaging.Save(media.FramePath(clip, i, ".png"), solidImage(16, 16, color.RGBA{0, 0, 255, 255})); err != nil {
			t.Fatal(err)
		}
	}
	outDir := filepath.Join(dir, "results")

	out, err := run(t, "--detector", "none", "--media", "frames", "-o", outDir, "-w", "2", "video", clip)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	var res struct {
		FrameCount int `json:"frame_count"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.FrameCount != 4 {
		t.Errorf("frame_count = %d, want 4", res.FrameCount)
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := run(t, "--clusters", "0", "palette", "list"); err == nil {
		t.Error("expected validation error")
	}
	if _, err := run(t, "--fourcc", "mp4", "palette", "list"); err == nil {
		t.Error("expected validation error for short fourcc")
	}
}

func TestServeCommand(t *testing.T) {
	root := NewRootCommand(BuildInfo{Version: "test"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n"))
	root.SetArgs([]string{"--log-level", "disabled", "--detector", "none", "serve"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if !strings.Contains(out.String(), `"color-detect"`) {
		t.Errorf("expected serverInfo in output, got %s", out.String())
	}
}
