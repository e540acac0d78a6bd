// Package imaging provides the frame-level image operations used by the
// detection pipeline: decoding, saving, cropping and dominant color extraction.
//
// # Frames
//
// A frame is an *image.RGBA. Every decoder in this package converts its output
// to *image.RGBA in RGB channel order before returning, so code downstream of
// decoding never reasons about channel order. Backends built on OpenCV convert
// from BGR at their own boundary and nowhere else.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Regions use image.Rectangle
// semantics: Min is inclusive, Max is exclusive.
//
// # Dominant Color
//
// Extractor implementations reduce a region to a single representative color.
// KMeans partitions the pixels into K clusters and returns the centroid of the
// most populated one; Histogram returns the mean of the most frequent quantized
// bucket. KMeans is randomized; give it a non-zero Seed for reproducible output.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Extractors hold no mutable state and
// may be shared between goroutines.
package imaging
