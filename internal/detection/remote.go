package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/rs/zerolog"
)

// DefaultRemoteTimeout bounds each inference request.
const DefaultRemoteTimeout = 30 * time.Second

// Remote sends frames to an HTTP inference service. Each frame is posted as
// a multipart form file "file" holding a JPEG; the service replies with
//
//	{"detections": [{"x": 0, "y": 0, "width": 0, "height": 0, "class": "", "confidence": 0}]}
type Remote struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

type remoteBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// NewRemote checks the service health endpoint and returns a detector bound
// to inferenceURL. The health endpoint is "/health" on the same host.
func NewRemote(ctx context.Context, inferenceURL string, client *http.Client, timeout time.Duration, logger zerolog.Logger) (*Remote, error) {
	if inferenceURL == "" {
		return nil, fmt.Errorf("%w: remote detector needs an inference URL", ErrUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	r := &Remote{url: inferenceURL, client: client, logger: logger}
	if err := r.CheckHealth(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// CheckHealth verifies the inference service is reachable.
func (r *Remote) CheckHealth(ctx context.Context) error {
	u, err := url.Parse(r.url)
	if err != nil {
		return fmt.Errorf("invalid inference URL %q: %w", r.url, err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: inference service unhealthy: %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Detect implements Detector.
func (r *Remote) Detect(ctx context.Context, frame image.Image) ([]Object, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := imgio.JPEGEncoder(90)(part, frame); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []remoteBox `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Inference services see the JPEG with its origin at (0,0).
	origin := frame.Bounds().Min
	objs := make([]Object, 0, len(result.Detections))
	for _, d := range result.Detections {
		conf := d.Confidence
		if conf < 0 || conf > 1 {
			r.logger.Warn().Str("class", d.Class).Float64("confidence", conf).Msg("clamping out of range confidence")
			conf = math.Min(math.Max(conf, 0), 1)
		}
		objs = append(objs, Object{
			Label:      d.Class,
			Confidence: conf,
			Box:        Box{X: d.X + origin.X, Y: d.Y + origin.Y, Width: d.Width, Height: d.Height},
		})
	}
	r.logger.Debug().Int("detections", len(objs)).Dur("took", time.Since(start)).Msg("remote inference")
	return objs, nil
}

// Close implements Detector.
func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
