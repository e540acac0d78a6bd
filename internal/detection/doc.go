// Package detection locates objects in a frame and reports them as labeled,
// scored bounding boxes.
//
// # Backends
//
// New builds a Detector from a Config:
//
//   - none: never detects anything
//   - static: returns a fixed list of objects for every frame
//   - shapes: model-free rectangle, circle and text-region heuristics
//   - ocr: Tesseract word boxes, labeled with the recognized word
//   - remote: an HTTP inference service fed one JPEG per frame
//   - dnn: an SSD network run through OpenCV (builds with the gocv tag only)
//
// A failure in New is a fatal initialization error; callers should not start
// processing media without a detector.
//
// # Coordinate System
//
// Boxes use the frame's own coordinate space: (X, Y) is the top-left corner,
// X increases rightward and Y downward. Box.Rect converts to an
// image.Rectangle with an exclusive Max corner. Detectors do not clip boxes
// to the frame; use Box.Clip.
//
// # Confidence Scores
//
// Scores run from 0.0 to 1.0. How they are computed depends on the backend:
//   - Rectangles: perimeter of the contour against its bounding box
//   - Circles: share of the circumference voting in the Hough accumulator
//   - Text regions: edge density and horizontal structure
//   - ocr, remote, dnn: as reported by the engine or service
//
// Config.MinConfidence drops anything scoring lower.
package detection
