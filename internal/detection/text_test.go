package detection

import (
	"image"
	"image/color"
	"testing"
)

// createTextPatternImage creates an image with text-like edge patterns
func createTextPatternImage(width, height int) *image.RGBA {
	img := createTestImage(width, height, color.White)

	// Horizontal strokes with gaps, like a line of glyphs
	for y := 20; y < 80; y += 10 {
		for x := 20; x < width-20; x++ {
			if x%15 < 5 {
				img.Set(x, y, color.Black)
				img.Set(x, y+1, color.Black)
				img.Set(x, y+5, color.Black)
			}
		}
	}
	return img
}

func edgesOf(img image.Image) [][]bool {
	b := img.Bounds()
	return detectEdges(img, b.Dx(), b.Dy())
}

func TestTextRegions_MinConfidence(t *testing.T) {
	img := createTextPatternImage(200, 150)
	edges := edgesOf(img)

	low := textRegions(edges, img.Bounds(), 0.1)
	high := textRegions(edges, img.Bounds(), 0.8)
	if len(high) > len(low) {
		t.Errorf("higher threshold gave more regions: low=%d, high=%d", len(low), len(high))
	}
	for _, o := range low {
		if o.Label != LabelText {
			t.Errorf("Label: got %s", o.Label)
		}
	}
}

func TestTextRegions_EmptyImage(t *testing.T) {
	img := createTestImage(200, 150, color.White)
	if got := textRegions(edgesOf(img), img.Bounds(), 0.3); len(got) != 0 {
		t.Errorf("expected none, got %+v", got)
	}
}

func TestTextRegions_SortedByConfidence(t *testing.T) {
	img := createTextPatternImage(300, 200)
	got := textRegions(edgesOf(img), img.Bounds(), 0.2)
	for i := 1; i < len(got); i++ {
		if got[i-1].Confidence < got[i].Confidence {
			t.Fatal("regions must be sorted by confidence, highest first")
		}
	}
}

func TestHorizontalScore(t *testing.T) {
	edges := make([][]bool, 50)
	for y := range edges {
		edges[y] = make([]bool, 100)
	}

	if s := horizontalScore(edges, 0, 0, 100, 50); s != 0 {
		t.Errorf("empty window: got %v", s)
	}

	// Runs are counted per scan line: a horizontal stroke is one horizontal
	// run and many one-pixel vertical runs.
	for x := 20; x < 80; x++ {
		edges[25][x] = true
	}
	h := horizontalScore(edges, 0, 0, 100, 50)

	vertical := make([][]bool, 50)
	for y := range vertical {
		vertical[y] = make([]bool, 100)
	}
	for y := 5; y < 45; y++ {
		vertical[y][50] = true
	}
	v := horizontalScore(vertical, 0, 0, 100, 50)

	if h >= v {
		t.Errorf("horizontal stroke scored %v, vertical stroke %v", h, v)
	}
	if h <= 0 || h >= 1 || v <= 0 || v >= 1 {
		t.Errorf("scores out of range: %v, %v", h, v)
	}
}

func TestMergeOverlapping(t *testing.T) {
	objs := []Object{
		{Label: LabelText, Confidence: 0.5, Box: Box{0, 0, 100, 30}},
		{Label: LabelText, Confidence: 0.7, Box: Box{50, 10, 100, 30}},
		{Label: LabelText, Confidence: 0.6, Box: Box{300, 300, 10, 10}},
	}
	got := mergeOverlapping(objs)
	if len(got) != 2 {
		t.Fatalf("expected 2 regions, got %+v", got)
	}
	if got[0].Box != (Box{0, 0, 150, 40}) {
		t.Errorf("union: got %+v", got[0].Box)
	}
	if got[0].Confidence != 0.7 {
		t.Errorf("confidence: got %v, want max 0.7", got[0].Confidence)
	}
	if len(mergeOverlapping(nil)) != 0 {
		t.Error("nil input must give no regions")
	}
}
