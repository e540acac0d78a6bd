package detection

import (
	"context"
	"image"

	"github.com/ironsheep/color-detect/internal/ocr"
)

// OCR reports each recognized word as an object labeled with the word.
type OCR struct {
	reader ocr.Reader
}

// NewOCR returns an OCR detector for the given Tesseract language.
func NewOCR(language string) *OCR {
	return &OCR{reader: ocr.Reader{Language: language}}
}

// Detect implements Detector.
func (o *OCR) Detect(ctx context.Context, frame image.Image) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words, err := o.reader.Words(frame, 0)
	if err != nil {
		return nil, err
	}
	objs := make([]Object, 0, len(words))
	for _, w := range words {
		if w.Text == "" {
			continue
		}
		objs = append(objs, Object{
			Label:      w.Text,
			Confidence: w.Confidence,
			Box:        BoxFromRect(w.Rect),
		})
	}
	return objs, nil
}

// Close implements Detector.
func (o *OCR) Close() error { return nil }
