package detection

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func newInferenceServer(t *testing.T, healthy bool, detections []remoteBox) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if _, err := jpeg.Decode(file); err != nil {
			http.Error(w, "not a jpeg", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"detections": detections})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRemote_Detect(t *testing.T) {
	srv, calls := newInferenceServer(t, true, []remoteBox{
		{X: 5, Y: 6, Width: 20, Height: 10, Class: "stamp", Confidence: 0.87},
		{X: 40, Y: 40, Width: 8, Height: 8, Class: "qr", Confidence: 0.3},
	})

	d, err := New(Config{Kind: KindRemote, InferenceURL: srv.URL + "/predict"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	frame := image.NewRGBA(image.Rect(0, 0, 64, 64))
	frame.Set(1, 1, color.White)

	objs, err := d.Detect(context.Background(), frame)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 inference call, got %d", calls.Load())
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 objects, got %+v", objs)
	}
	want := Object{Label: "stamp", Confidence: 0.87, Box: Box{5, 6, 20, 10}}
	if objs[0] != want {
		t.Errorf("got %+v, want %+v", objs[0], want)
	}
}

func TestRemote_MinConfidence(t *testing.T) {
	srv, _ := newInferenceServer(t, true, []remoteBox{
		{X: 5, Y: 6, Width: 20, Height: 10, Class: "stamp", Confidence: 0.87},
		{X: 40, Y: 40, Width: 8, Height: 8, Class: "qr", Confidence: 0.3},
	})

	d, err := New(Config{Kind: KindRemote, InferenceURL: srv.URL + "/predict", MinConfidence: 0.5}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	objs, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 64)))
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || objs[0].Label != "stamp" {
		t.Errorf("got %+v", objs)
	}
}

func TestRemote_ClampsConfidence(t *testing.T) {
	srv, _ := newInferenceServer(t, true, []remoteBox{
		{X: 1, Y: 1, Width: 4, Height: 4, Class: "high", Confidence: 1.7},
		{X: 9, Y: 9, Width: 4, Height: 4, Class: "low", Confidence: -0.2},
		{X: 20, Y: 20, Width: 4, Height: 4, Class: "ok", Confidence: 0.5},
	})

	d, err := New(Config{Kind: KindRemote, InferenceURL: srv.URL + "/predict"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	objs, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 64)))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{"high": 1, "low": 0, "ok": 0.5}
	if len(objs) != len(want) {
		t.Fatalf("got %+v", objs)
	}
	for _, o := range objs {
		if o.Confidence != want[o.Label] {
			t.Errorf("%s: confidence %v, want %v", o.Label, o.Confidence, want[o.Label])
		}
	}
}

func TestRemote_SubImageOrigin(t *testing.T) {
	srv, _ := newInferenceServer(t, true, []remoteBox{{X: 1, Y: 2, Width: 3, Height: 4, Class: "x", Confidence: 1}})
	d, err := NewRemote(context.Background(), srv.URL+"/predict", nil, 0, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	full := image.NewRGBA(image.Rect(0, 0, 100, 100))
	objs, err := d.Detect(context.Background(), full.SubImage(image.Rect(50, 60, 100, 100)))
	if err != nil {
		t.Fatal(err)
	}
	if objs[0].Box != (Box{51, 62, 3, 4}) {
		t.Errorf("got %+v", objs[0].Box)
	}
}

func TestRemote_Unhealthy(t *testing.T) {
	srv, _ := newInferenceServer(t, false, nil)

	_, err := New(Config{Kind: KindRemote, InferenceURL: srv.URL + "/predict"}, zerolog.Nop())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRemote_Unreachable(t *testing.T) {
	srv, _ := newInferenceServer(t, true, nil)
	url := srv.URL
	srv.Close()

	if _, err := New(Config{Kind: KindRemote, InferenceURL: url + "/predict"}, zerolog.Nop()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if _, err := New(Config{Kind: KindRemote}, zerolog.Nop()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("missing URL: expected ErrUnavailable, got %v", err)
	}
}

func TestRemote_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := NewRemote(context.Background(), srv.URL+"/predict", srv.Client(), 0, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))); err == nil {
		t.Error("expected error on HTTP 500")
	}
}
