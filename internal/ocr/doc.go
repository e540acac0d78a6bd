// Package ocr locates words in a frame using the Tesseract engine through
// gosseract.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the host:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The language is a Tesseract code such as "eng", "deu" or "chi_sim".
//
// # Coordinates
//
// Word rectangles are reported in the coordinate space of the image passed
// in, including any non-zero bounds origin of a sub-image.
package ocr
