package imaging

import (
	"fmt"
	"image"
)

// Extractor reduces a region to its single most representative color.
type Extractor interface {
	Extract(region image.Image) (RGB, error)
}

// Extractor algorithm names accepted by NewExtractor.
const (
	AlgorithmKMeans    = "kmeans"
	AlgorithmHistogram = "histogram"
	AlgorithmOpenCV    = "opencv"
)

// ExtractorConfig carries the tunables shared by the extractor algorithms.
type ExtractorConfig struct {
	Clusters int
	Attempts int
	MaxIter  int
	Epsilon  float64
	Seed     int64

	// MaxPixels caps the pixels clustered per region; 0 means no cap.
	MaxPixels int
}

// NewExtractor builds the extractor named by algorithm.
func NewExtractor(algorithm string, cfg ExtractorConfig) (Extractor, error) {
	km := KMeans{
		K:         cfg.Clusters,
		Attempts:  cfg.Attempts,
		MaxIter:   cfg.MaxIter,
		Epsilon:   cfg.Epsilon,
		Seed:      cfg.Seed,
		MaxPixels: cfg.MaxPixels,
	}
	switch algorithm {
	case "", AlgorithmKMeans:
		return km, nil
	case AlgorithmHistogram:
		return Histogram{}, nil
	case AlgorithmOpenCV:
		if !openCVAvailable {
			return nil, fmt.Errorf("extractor %q requires a build with the gocv tag", algorithm)
		}
		return OpenCVKMeans{KMeans: km}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", algorithm)
	}
}

// colorCounts tallies every distinct color in img. Alpha is ignored.
func colorCounts(img image.Image) map[RGB]int {
	b := img.Bounds()
	counts := make(map[RGB]int)

	if rgba, ok := img.(*image.RGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := rgba.PixOffset(b.Min.X, y)
			for x := b.Min.X; x < b.Max.X; x++ {
				counts[RGB{R: rgba.Pix[i], G: rgba.Pix[i+1], B: rgba.Pix[i+2]}]++
				i += 4
			}
		}
		return counts
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			counts[RGBOf(img.At(x, y))]++
		}
	}
	return counts
}
