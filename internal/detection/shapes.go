package detection

import (
	"context"
	"image"
	"math"
	"sort"
)

// Shape labels produced by the Shapes detector.
const (
	LabelRectangle = "rectangle"
	LabelCircle    = "circle"
	LabelText      = "text"
)

// point is a pixel coordinate relative to the frame origin.
type point struct {
	X, Y int
}

// Shapes is a model-free detector for high-contrast content: rectangles via
// contour analysis, circles via a Hough transform and text-like regions via
// edge density. Overlapping results are suppressed so returned boxes never
// intersect.
//
// It works best on clean images such as diagrams and screenshots. Noisy
// photographs produce many low-confidence contours.
type Shapes struct {
	// MinArea is the smallest rectangle area kept, in square pixels.
	MinArea int

	// Tolerance is the minimum rectangularity (0.0 to 1.0).
	Tolerance float64

	// MinRadius and MaxRadius bound the circle search. MaxRadius 0 disables
	// circle detection.
	MinRadius int
	MaxRadius int

	// TextConfidence is the minimum score for text regions. Zero or less
	// disables text region detection.
	TextConfidence float64
}

// DefaultShapes returns the detector used when no other kind is configured.
func DefaultShapes() *Shapes {
	return &Shapes{
		MinArea:        100,
		Tolerance:      0.8,
		MinRadius:      8,
		MaxRadius:      24,
		TextConfidence: 0.5,
	}
}

// Detect implements Detector.
func (s *Shapes) Detect(ctx context.Context, frame image.Image) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := frame.Bounds()
	edges := detectEdges(frame, bounds.Dx(), bounds.Dy())

	objs := s.rectangles(edges, bounds)
	if s.MaxRadius > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		objs = append(objs, s.circles(edges, bounds)...)
	}
	if s.TextConfidence > 0 {
		objs = append(objs, textRegions(edges, bounds, s.TextConfidence)...)
	}
	return Suppress(objs), nil
}

// Close implements Detector.
func (s *Shapes) Close() error { return nil }

// rectangles finds axis-aligned rectangular contours.
//
// The rectangularity score compares the contour length with the perimeter of
// its bounding box: 1 - |contour - perimeter| / perimeter. A perfect outline
// scores 1.0; circles and irregular shapes score lower.
func (s *Shapes) rectangles(edges [][]bool, bounds image.Rectangle) []Object {
	width, height := bounds.Dx(), bounds.Dy()
	objs := make([]Object, 0)

	for _, contour := range findContours(edges, width, height) {
		minX, minY := width, height
		maxX, maxY := 0, 0
		for _, p := range contour {
			minX = min(minX, p.X)
			maxX = max(maxX, p.X)
			minY = min(minY, p.Y)
			maxY = max(maxY, p.Y)
		}

		w := maxX - minX + 1
		h := maxY - minY + 1
		if w*h < s.MinArea {
			continue
		}

		perimeter := 2 * (w + h)
		rectangularity := 1.0 - math.Abs(float64(len(contour)-perimeter))/float64(perimeter)
		if rectangularity < s.Tolerance {
			continue
		}

		objs = append(objs, Object{
			Label:      LabelRectangle,
			Confidence: rectangularity,
			Box: Box{
				X:      minX + bounds.Min.X,
				Y:      minY + bounds.Min.Y,
				Width:  w,
				Height: h,
			},
		})
	}

	sort.Slice(objs, func(i, j int) bool {
		return objs[i].Box.Area() > objs[j].Box.Area()
	})
	return objs
}

type circle struct {
	center     point
	radius     int
	confidence float64
}

// circles runs a Hough circle transform over the edge map. Each edge pixel
// votes every 10 degrees for centers at each radius; a center needs votes
// from about 60% of the expected circumference. Confidence is votes / (2r),
// capped at 1.0.
func (s *Shapes) circles(edges [][]bool, bounds image.Rectangle) []Object {
	width, height := bounds.Dx(), bounds.Dy()
	found := make([]circle, 0)

	minRadius := max(s.MinRadius, 1)
	for radius := minRadius; radius <= s.MaxRadius; radius++ {
		accumulator := make([][]int, height)
		for y := range accumulator {
			accumulator[y] = make([]int, width)
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if !edges[y][x] {
					continue
				}
				for angle := 0; angle < 360; angle += 10 {
					rad := float64(angle) * math.Pi / 180
					cx := x - int(float64(radius)*math.Cos(rad))
					cy := y - int(float64(radius)*math.Sin(rad))
					if cx >= 0 && cx < width && cy >= 0 && cy < height {
						accumulator[cy][cx]++
					}
				}
			}
		}

		threshold := int(float64(2*radius) * 0.6)
		for y := radius; y < height-radius; y++ {
			for x := radius; x < width-radius; x++ {
				votes := accumulator[y][x]
				if votes < threshold || !localMax(accumulator, x, y, width, height) {
					continue
				}
				found = append(found, circle{
					center:     point{X: x, Y: y},
					radius:     radius,
					confidence: math.Min(float64(votes)/float64(2*radius), 1.0),
				})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].confidence > found[j].confidence
	})
	found = filterDuplicateCircles(found)

	objs := make([]Object, 0, len(found))
	for _, c := range found {
		objs = append(objs, Object{
			Label:      LabelCircle,
			Confidence: c.confidence,
			Box: Box{
				X:      c.center.X - c.radius + bounds.Min.X,
				Y:      c.center.Y - c.radius + bounds.Min.Y,
				Width:  2*c.radius + 1,
				Height: 2*c.radius + 1,
			},
		})
	}
	return objs
}

// localMax reports whether no cell within 5 pixels of (x, y) has more votes.
func localMax(acc [][]int, x, y, width, height int) bool {
	for dy := -5; dy <= 5; dy++ {
		for dx := -5; dx <= 5; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx >= 0 && nx < width && ny >= 0 && ny < height && acc[ny][nx] > acc[y][x] {
				return false
			}
		}
	}
	return true
}

// detectEdges marks pixels whose grayscale value differs from the right or
// lower neighbour by more than 30. Border pixels are never edges.
func detectEdges(img image.Image, width, height int) [][]bool {
	bounds := img.Bounds()
	edges := make([][]bool, height)
	const threshold = 30.0

	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				continue
			}

			c := grayValue(img, x+bounds.Min.X, y+bounds.Min.Y)
			cx := grayValue(img, x+1+bounds.Min.X, y+bounds.Min.Y)
			cy := grayValue(img, x+bounds.Min.X, y+1+bounds.Min.Y)

			dx := math.Abs(float64(c) - float64(cx))
			dy := math.Abs(float64(c) - float64(cy))
			if dx > threshold || dy > threshold {
				edges[y][x] = true
			}
		}
	}
	return edges
}

// findContours groups 8-connected edge pixels. Groups smaller than 10
// pixels are noise.
func findContours(edges [][]bool, width, height int) [][]point {
	visited := make([][]bool, height)
	for y := range visited {
		visited[y] = make([]bool, width)
	}

	contours := make([][]point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges[y][x] && !visited[y][x] {
				contour := floodFill(edges, visited, x, y, width, height)
				if len(contour) >= 10 {
					contours = append(contours, contour)
				}
			}
		}
	}
	return contours
}

// floodFill collects the connected edge pixels reachable from (startX,
// startY). It uses an explicit stack.
func floodFill(edges, visited [][]bool, startX, startY, width, height int) []point {
	var contour []point
	stack := []point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !edges[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		contour = append(contour, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 {
					stack = append(stack, point{X: p.X + dx, Y: p.Y + dy})
				}
			}
		}
	}
	return contour
}

// grayValue is the BT.601 luma of a pixel.
func grayValue(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114)
}

// filterDuplicateCircles keeps the first of any circles whose centers are
// closer than the mean of their radii.
func filterDuplicateCircles(circles []circle) []circle {
	filtered := make([]circle, 0, len(circles))
	for _, c := range circles {
		duplicate := false
		for _, f := range filtered {
			dx := c.center.X - f.center.X
			dy := c.center.Y - f.center.Y
			if math.Sqrt(float64(dx*dx+dy*dy)) < float64(c.radius+f.radius)/2 {
				duplicate = true
				break
			}
		}
		if !duplicate {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
