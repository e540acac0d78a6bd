package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when a Reader has no language set.
const DefaultLanguage = "eng"

// Word is a recognized word and its location.
type Word struct {
	Text string `json:"text"`

	// Confidence is Tesseract's score scaled to 0.0-1.0.
	Confidence float64         `json:"confidence"`
	Rect       image.Rectangle `json:"rect"`
}

// Reader runs word-level recognition. The zero value reads English using the
// system tessdata directory.
type Reader struct {
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string
}

// Words returns every word in img scoring at least minConfidence.
//
// A new Tesseract client is created per call, so a Reader may be shared
// between goroutines.
func (r Reader) Words(img image.Image, minConfidence float64) ([]Word, error) {
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if r.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	lang := r.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := client.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	// The encoded PNG starts at the origin; shift back into img's space.
	origin := img.Bounds().Min
	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		confidence := box.Confidence / 100.0
		if confidence < minConfidence {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: confidence,
			Rect:       box.Box.Add(origin),
		})
	}
	return words, nil
}

// Info describes the OCR subsystem.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
}

// GetInfo reports the linked Tesseract version.
func GetInfo() Info {
	client := gosseract.NewClient()
	defer client.Close()

	version := client.Version()
	return Info{
		Available: version != "",
		Version:   version,
		Backend:   "gosseract",
	}
}
