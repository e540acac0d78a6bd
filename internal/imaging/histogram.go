package imaging

import "image"

// Histogram extracts the dominant color by quantizing each channel into
// buckets of Step levels and averaging the pixels of the fullest bucket.
// It is deterministic and cheaper than KMeans on large regions.
type Histogram struct {
	// Step is the bucket width per channel. Zero means 16.
	Step int
}

type bucket struct {
	n          int
	sr, sg, sb int
}

// Extract implements Extractor. Among equally full buckets the one with the
// lowest quantized color wins.
func (h Histogram) Extract(region image.Image) (RGB, error) {
	if region.Bounds().Empty() {
		return RGB{}, ErrEmptyRegion
	}
	step := h.Step
	if step < 1 {
		step = 16
	}

	buckets := make(map[RGB]*bucket)
	for c, n := range colorCounts(region) {
		// Quantize to group similar colors
		key := RGB{
			R: uint8(int(c.R) / step * step),
			G: uint8(int(c.G) / step * step),
			B: uint8(int(c.B) / step * step),
		}
		bk := buckets[key]
		if bk == nil {
			bk = &bucket{}
			buckets[key] = bk
		}
		bk.n += n
		bk.sr += int(c.R) * n
		bk.sg += int(c.G) * n
		bk.sb += int(c.B) * n
	}

	var (
		bestKey RGB
		best    *bucket
	)
	for key, bk := range buckets {
		if best == nil || bk.n > best.n || (bk.n == best.n && less(key, bestKey)) {
			bestKey, best = key, bk
		}
	}

	n := float64(best.n)
	return RGB{
		R: clampChannel(float64(best.sr) / n),
		G: clampChannel(float64(best.sg) / n),
		B: clampChannel(float64(best.sb) / n),
	}, nil
}

func less(a, b RGB) bool {
	if a.R != b.R {
		return a.R < b.R
	}
	if a.G != b.G {
		return a.G < b.G
	}
	return a.B < b.B
}
