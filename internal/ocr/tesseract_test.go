package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func requireTesseract(t *testing.T) {
	t.Helper()
	if info := GetInfo(); !info.Available {
		t.Skip("tesseract not available")
	}
}

// createTextImage renders black text on a white background.
func createTextImage(width, height int, text string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, height/2),
	}
	d.DrawString(text)
	return img
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	if info.Backend != "gosseract" {
		t.Errorf("Backend: got %q", info.Backend)
	}
	if info.Available && info.Version == "" {
		t.Error("available but no version")
	}
}

func TestWords_BlankImage(t *testing.T) {
	requireTesseract(t)

	img := image.NewRGBA(image.Rect(0, 0, 200, 60))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	words, err := Reader{}.Words(img, 0.5)
	if err != nil {
		t.Fatalf("Words failed: %v", err)
	}
	if len(words) != 0 {
		t.Errorf("expected no words on a blank image, got %+v", words)
	}
}

func TestWords_RectsInsideImage(t *testing.T) {
	requireTesseract(t)

	img := createTextImage(240, 60, "HELLO WORLD")
	words, err := Reader{Language: "eng"}.Words(img, 0)
	if err != nil {
		t.Fatalf("Words failed: %v", err)
	}
	for _, w := range words {
		if !w.Rect.In(img.Bounds()) {
			t.Errorf("word %q rect %v outside image %v", w.Text, w.Rect, img.Bounds())
		}
		if w.Confidence < 0 || w.Confidence > 1 {
			t.Errorf("word %q confidence %v out of range", w.Text, w.Confidence)
		}
	}
}

func TestWords_MinConfidenceFilters(t *testing.T) {
	requireTesseract(t)

	words, err := Reader{}.Words(createTextImage(240, 60, "HELLO WORLD"), 1.01)
	if err != nil {
		t.Fatalf("Words failed: %v", err)
	}
	if len(words) != 0 {
		t.Errorf("expected every word filtered, got %+v", words)
	}
}

func TestWords_SubImageOrigin(t *testing.T) {
	requireTesseract(t)

	full := createTextImage(400, 200, "")
	text := createTextImage(240, 60, "HELLO WORLD")
	draw.Draw(full, image.Rect(100, 100, 340, 160), text, image.Point{}, draw.Src)
	sub := full.SubImage(image.Rect(100, 100, 340, 160))

	words, err := Reader{}.Words(sub, 0)
	if err != nil {
		t.Fatalf("Words failed: %v", err)
	}
	for _, w := range words {
		if !w.Rect.In(sub.Bounds()) {
			t.Errorf("word %q rect %v not shifted into %v", w.Text, w.Rect, sub.Bounds())
		}
	}
}
