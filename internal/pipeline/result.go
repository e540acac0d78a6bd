package pipeline

import (
	"github.com/ironsheep/color-detect/internal/detection"
	"github.com/ironsheep/color-detect/internal/imaging"
)

// Detection is one detected object with its named dominant color.
type Detection struct {
	// Sequence runs 1..n within a frame, in detection order.
	Sequence      int           `json:"sequence"`
	Label         string        `json:"label"`
	Confidence    float64       `json:"confidence"`
	Box           detection.Box `json:"box"`
	DominantColor imaging.RGB   `json:"dominant_color"`
	ColorName     string        `json:"color_name"`
	ColorHex      string        `json:"color_hex"`

	// Distance is the L1 distance to the named palette entry.
	Distance int `json:"distance"`
}

// ImageResult is the outcome of RunImage.
type ImageResult struct {
	Path          string      `json:"path"`
	OutputPath    string      `json:"output_path"`
	Width         int         `json:"width"`
	Height        int         `json:"height"`
	DominantColor imaging.RGB `json:"dominant_color"`
	ColorName     string      `json:"color_name"`
	ColorHex      string      `json:"color_hex"`
	Detections    []Detection `json:"detections"`
}

// FrameResult holds the detections of one written video frame. Index is the
// frame's position in the source, counting skipped frames.
type FrameResult struct {
	Index      int         `json:"index"`
	Detections []Detection `json:"detections"`
}

// VideoResult is the outcome of RunVideo. After cancellation it describes the
// frames written before the run stopped.
type VideoResult struct {
	Path       string        `json:"path"`
	OutputPath string        `json:"output_path"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	FPS        float64       `json:"fps"`
	FrameCount int           `json:"frame_count"`
	Skipped    []int         `json:"skipped,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	Frames     []FrameResult `json:"frames"`
}
