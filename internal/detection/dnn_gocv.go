//go:build gocv

package detection

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// DNN runs an SSD-style network through OpenCV's dnn module. The network
// output is read as rows of [batch, class, confidence, left, top, right,
// bottom] with box coordinates normalized to 0-1.
type DNN struct {
	mu      sync.Mutex
	net     gocv.Net
	classes []string
	logger  zerolog.Logger

	// Blob parameters for MobileNet-SSD style models.
	Size  image.Point
	Scale float64
	Mean  gocv.Scalar
}

// NewDNN loads the model weights at modelPath (and optional config) and the
// class names, one per line, at classesPath.
func NewDNN(modelPath, configPath, classesPath string, logger zerolog.Logger) (Detector, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: dnn detector needs a model path", ErrUnavailable)
	}
	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: failed to read network %s", ErrUnavailable, modelPath)
	}

	var classes []string
	if classesPath != "" {
		var err error
		if classes, err = readClasses(classesPath); err != nil {
			net.Close()
			return nil, err
		}
	}

	logger.Info().Str("model", modelPath).Int("classes", len(classes)).Msg("loaded dnn model")
	return &DNN{
		net:     net,
		classes: classes,
		logger:  logger,
		Size:    image.Pt(300, 300),
		Scale:   1.0 / 127.5,
		Mean:    gocv.NewScalar(127.5, 127.5, 127.5, 0),
	}, nil
}

// Detect implements Detector.
func (d *DNN) Detect(ctx context.Context, frame image.Image) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The Mat is in OpenCV's BGR order, which is what Caffe SSD models expect.
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, d.Scale, d.Size, d.Mean, false, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	d.mu.Unlock()
	defer prob.Close()

	detections := gocv.GetBlobChannel(prob, 0, 0)
	defer detections.Close()

	b := frame.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	objs := make([]Object, 0, detections.Rows())
	for r := 0; r < detections.Rows(); r++ {
		confidence := detections.GetFloatAt(r, 2)
		if confidence <= 0 {
			continue
		}
		left := int(detections.GetFloatAt(r, 3) * w)
		top := int(detections.GetFloatAt(r, 4) * h)
		right := int(detections.GetFloatAt(r, 5) * w)
		bottom := int(detections.GetFloatAt(r, 6) * h)

		objs = append(objs, Object{
			Label:      d.className(int(detections.GetFloatAt(r, 1))),
			Confidence: float64(confidence),
			Box:        BoxFromRect(image.Rect(left, top, right, bottom).Add(b.Min)),
		})
	}
	return objs, nil
}

func (d *DNN) className(id int) string {
	if id >= 0 && id < len(d.classes) {
		return d.classes[id]
	}
	return fmt.Sprintf("class_%d", id)
}

// Close implements Detector.
func (d *DNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

func readClasses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open classes file: %w", err)
	}
	defer f.Close()

	var classes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		classes = append(classes, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read classes file: %w", err)
	}
	return classes, nil
}
