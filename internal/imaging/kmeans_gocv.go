//go:build gocv

package imaging

import (
	"image"

	"gocv.io/x/gocv"
)

const openCVAvailable = true

// OpenCVKMeans runs the clustering through OpenCV's kmeans over every pixel
// of the region. Parameters and result selection match KMeans.
//
// Rows are fed in the same sorted color order as KMeans. A non-zero Seed sets
// OpenCV's process-wide RNG seed before each call, so seeded extraction is
// only reproducible when calls are not interleaved.
type OpenCVKMeans struct {
	KMeans
}

// Extract implements Extractor.
func (o OpenCVKMeans) Extract(region image.Image) (RGB, error) {
	b := region.Bounds()
	if b.Empty() {
		return RGB{}, ErrEmptyRegion
	}
	km := o.KMeans.withDefaults()
	region = km.downsample(region)
	b = region.Bounds()

	n := b.Dx() * b.Dy()
	data := gocv.NewMatWithSize(n, 3, gocv.MatTypeCV32F)
	defer data.Close()

	// Pixels go in as R, G, B; no channel swap is needed because the frame
	// never passed through an OpenCV decoder.
	points, weights := weightedPoints(colorCounts(region))
	row := 0
	for i, p := range points {
		for j := 0; j < int(weights[i]); j++ {
			data.SetFloatAt(row, 0, float32(p[0]))
			data.SetFloatAt(row, 1, float32(p[1]))
			data.SetFloatAt(row, 2, float32(p[2]))
			row++
		}
	}

	k := km.K
	if k > n {
		k = n
	}
	if km.Seed != 0 {
		gocv.SetRNGSeed(int(km.Seed))
	}

	labels := gocv.NewMat()
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	criteria := gocv.NewTermCriteria(gocv.EPS+gocv.MaxIter, km.MaxIter, km.Epsilon)
	gocv.KMeans(data, k, &labels, criteria, km.Attempts, gocv.KMeansRandomCenters, &centers)

	sizes := make([]int, k)
	for i := 0; i < n; i++ {
		sizes[labels.GetIntAt(i, 0)]++
	}
	best := 0
	for j := range sizes {
		if sizes[j] > sizes[best] {
			best = j
		}
	}

	return RGB{
		R: clampChannel(float64(centers.GetFloatAt(best, 0))),
		G: clampChannel(float64(centers.GetFloatAt(best, 1))),
		B: clampChannel(float64(centers.GetFloatAt(best, 2))),
	}, nil
}
