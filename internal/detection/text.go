package detection

import (
	"image"
	"math"
	"sort"
)

// textWindows are the sliding window sizes used to look for text lines.
var textWindows = []struct{ w, h int }{
	{100, 30},
	{150, 40},
	{200, 50},
	{80, 25},
}

// textRegions finds areas likely to contain text: windows with medium edge
// density whose edges run mostly horizontally. Overlapping candidate windows
// are merged and the result is sorted by confidence.
func textRegions(edges [][]bool, bounds image.Rectangle, minConfidence float64) []Object {
	width, height := bounds.Dx(), bounds.Dy()
	candidates := make([]Object, 0)

	for _, ws := range textWindows {
		stepX := ws.w / 2
		stepY := ws.h / 2

		for y := 0; y <= height-ws.h; y += stepY {
			for x := 0; x <= width-ws.w; x += stepX {
				edgeCount := 0
				for wy := 0; wy < ws.h; wy++ {
					for wx := 0; wx < ws.w; wx++ {
						if edges[y+wy][x+wx] {
							edgeCount++
						}
					}
				}

				density := float64(edgeCount) / float64(ws.w*ws.h)
				// Text sits between sparse outlines and dense noise.
				if density < 0.05 || density > 0.4 {
					continue
				}

				confidence := horizontalScore(edges, x, y, ws.w, ws.h) * (1.0 - math.Abs(density-0.2)/0.2)
				if confidence < minConfidence {
					continue
				}
				candidates = append(candidates, Object{
					Label:      LabelText,
					Confidence: math.Round(confidence*1000) / 1000,
					Box: Box{
						X:      x + bounds.Min.X,
						Y:      y + bounds.Min.Y,
						Width:  ws.w,
						Height: ws.h,
					},
				})
			}
		}
	}

	merged := mergeOverlapping(candidates)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// horizontalScore is the share of horizontal edge runs among all runs in
// the window.
func horizontalScore(edges [][]bool, x, y, w, h int) float64 {
	horizontal, vertical := 0, 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row][col] {
				if !inRun {
					horizontal++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row][col] {
				if !inRun {
					vertical++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontal+vertical == 0 {
		return 0
	}
	return float64(horizontal) / float64(horizontal+vertical)
}

// mergeOverlapping folds each object into the first already-merged object it
// overlaps, growing that box to the union and keeping the higher confidence.
func mergeOverlapping(objs []Object) []Object {
	merged := make([]Object, 0, len(objs))
	for _, o := range objs {
		found := false
		for i := range merged {
			if o.Box.Rect().Overlaps(merged[i].Box.Rect()) {
				merged[i].Box = BoxFromRect(o.Box.Rect().Union(merged[i].Box.Rect()))
				merged[i].Confidence = math.Max(o.Confidence, merged[i].Confidence)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, o)
		}
	}
	return merged
}
