package imaging

import (
	"image"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// KMeans extracts the dominant color by clustering the region's pixels in RGB
// space and returning the centroid of the most populated cluster.
//
// Each attempt starts from K centers drawn uniformly inside the bounding box
// of the pixel colors. Lloyd iterations run until no center moves by Epsilon
// or more, or MaxIter is reached. The attempt with the lowest total squared
// distance is kept. Identical pixels are clustered once with their count as
// weight, which gives the same partition as clustering every pixel.
//
// A zero Seed draws a fresh random source on every call. Any other value
// makes Extract deterministic for a given region.
//
// Regions larger than MaxPixels are downsampled with Scale before clustering.
// Zero means no limit.
type KMeans struct {
	K         int
	Attempts  int
	MaxIter   int
	Epsilon   float64
	Seed      int64
	MaxPixels int
}

// Extract implements Extractor.
func (km KMeans) Extract(region image.Image) (RGB, error) {
	if region.Bounds().Empty() {
		return RGB{}, ErrEmptyRegion
	}
	points, weights := weightedPoints(colorCounts(km.downsample(region)))

	centers, sizes := km.cluster(points, weights)
	best := 0
	for i := range sizes {
		if sizes[i] > sizes[best] {
			best = i
		}
	}
	c := centers[best]
	return RGB{R: clampChannel(c[0]), G: clampChannel(c[1]), B: clampChannel(c[2])}, nil
}

// downsample shrinks region to at most MaxPixels pixels.
func (km KMeans) downsample(region image.Image) image.Image {
	b := region.Bounds()
	area := b.Dx() * b.Dy()
	if km.MaxPixels <= 0 || area <= km.MaxPixels {
		return region
	}
	return Scale(region, math.Sqrt(float64(km.MaxPixels)/float64(area)))
}

func (km KMeans) withDefaults() KMeans {
	if km.K < 1 {
		km.K = 5
	}
	if km.Attempts < 1 {
		km.Attempts = 10
	}
	if km.MaxIter < 1 {
		km.MaxIter = 100
	}
	if km.Epsilon <= 0 {
		km.Epsilon = 0.2
	}
	return km
}

func (km KMeans) source() *rand.Rand {
	seed := km.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// cluster returns the best centers found over all attempts together with the
// total weight assigned to each.
func (km KMeans) cluster(points [][]float64, weights []float64) ([][]float64, []float64) {
	km = km.withDefaults()
	k := km.K
	if k > len(points) {
		k = len(points)
	}
	rng := km.source()
	lo, hi := boundingBox(points)

	var (
		bestCenters [][]float64
		bestSizes   []float64
		bestCost    = math.Inf(1)
	)
	labels := make([]int, len(points))
	for attempt := 0; attempt < km.Attempts; attempt++ {
		centers := make([][]float64, k)
		for j := range centers {
			c := make([]float64, 3)
			for d := range c {
				c[d] = lo[d] + rng.Float64()*(hi[d]-lo[d])
			}
			centers[j] = c
		}

		km.lloyd(points, weights, centers, labels)

		cost := assign(points, centers, labels, weights)
		if cost < bestCost {
			bestCost = cost
			bestCenters = centers
			bestSizes = make([]float64, k)
			for i, l := range labels {
				bestSizes[l] += weights[i]
			}
		}
	}
	return bestCenters, bestSizes
}

// lloyd refines centers in place.
func (km KMeans) lloyd(points [][]float64, weights []float64, centers [][]float64, labels []int) {
	k := len(centers)
	sums := make([][]float64, k)
	for j := range sums {
		sums[j] = make([]float64, 3)
	}
	sizes := make([]float64, k)

	for iter := 0; iter < km.MaxIter; iter++ {
		assign(points, centers, labels, weights)

		for j := range sums {
			sums[j][0], sums[j][1], sums[j][2] = 0, 0, 0
			sizes[j] = 0
		}
		for i, p := range points {
			floats.AddScaled(sums[labels[i]], weights[i], p)
			sizes[labels[i]] += weights[i]
		}

		shift := 0.0
		for j := range centers {
			// An empty cluster keeps its previous center.
			if sizes[j] == 0 {
				continue
			}
			floats.Scale(1/sizes[j], sums[j])
			if d := floats.Distance(sums[j], centers[j], 2); d > shift {
				shift = d
			}
			copy(centers[j], sums[j])
		}
		if shift < km.Epsilon {
			return
		}
	}
}

// assign labels every point with its nearest center and returns the weighted
// sum of squared distances. Ties go to the lower center index.
func assign(points, centers [][]float64, labels []int, weights []float64) float64 {
	cost := 0.0
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for j, c := range centers {
			dr, dg, db := p[0]-c[0], p[1]-c[1], p[2]-c[2]
			if d := dr*dr + dg*dg + db*db; d < bestDist {
				best, bestDist = j, d
			}
		}
		labels[i] = best
		cost += weights[i] * bestDist
	}
	return cost
}

// weightedPoints flattens a color tally into points and weights in a stable
// order so that seeded runs are reproducible.
func weightedPoints(counts map[RGB]int) ([][]float64, []float64) {
	keys := make([]RGB, 0, len(counts))
	for c := range counts {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	points := make([][]float64, len(keys))
	weights := make([]float64, len(keys))
	for i, c := range keys {
		points[i] = []float64{float64(c.R), float64(c.G), float64(c.B)}
		weights[i] = float64(counts[c])
	}
	return points, weights
}

func boundingBox(points [][]float64) (lo, hi []float64) {
	lo = []float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi = []float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range points {
		for d := range p {
			lo[d] = math.Min(lo[d], p[d])
			hi[d] = math.Max(hi[d], p[d])
		}
	}
	return lo, hi
}
