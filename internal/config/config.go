// Package config holds the settings shared by every entry point: palette source,
// detector backend, clustering parameters, annotation style and media output.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/color-detect/internal/logging"
)

// Config is the full runtime configuration. Zero values are not meaningful;
// start from Default.
type Config struct {
	// PalettePath is the palette CSV. Empty selects the embedded default palette.
	PalettePath string

	// Detector selects the detection backend: none, static, shapes, ocr, remote, dnn.
	Detector      string
	MinConfidence float64
	InferenceURL  string // remote backend endpoint
	ModelPath     string // dnn backend weights
	ModelConfig   string // dnn backend network description
	ClassesPath   string // dnn backend class names, one per line
	OCRLanguage   string

	// Extractor selects the dominant color algorithm: kmeans, histogram, opencv.
	Extractor string
	Clusters  int
	Attempts  int
	MaxIter   int
	Epsilon   float64
	Seed      int64
	MaxPixels int // 0 clusters every pixel of a region

	// Colors selects the annotation color strategy: random or golden.
	Colors        string
	LineThickness int
	ShowNames     bool

	// MediaBackend selects video I/O: ffmpeg, frames, gocv.
	MediaBackend string
	FPS          float64
	FourCC       string
	OutputDir    string
	StageDir     string
	Workers      int

	LogLevel    string
	DatabaseURL string
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Detector:      "shapes",
		MinConfidence: 0.3,
		InferenceURL:  "http://localhost:5000/predict",
		OCRLanguage:   "eng",
		Extractor:     "kmeans",
		Clusters:      5,
		Attempts:      10,
		MaxIter:       100,
		Epsilon:       0.2,
		Colors:        "random",
		LineThickness: 2,
		MediaBackend:  "ffmpeg",
		FPS:           30,
		FourCC:        "mp4v",
		OutputDir:     "results",
		Workers:       1,
		LogLevel:      "info",
	}
}

// FromEnv returns Default overlaid with any COLOR_DETECT_* variables that are set.
func FromEnv() Config {
	c := Default()
	c.PalettePath = getEnv("COLOR_DETECT_PALETTE", c.PalettePath)
	c.Detector = getEnv("COLOR_DETECT_DETECTOR", c.Detector)
	c.MinConfidence = getEnvFloat("COLOR_DETECT_MIN_CONFIDENCE", c.MinConfidence)
	c.InferenceURL = getEnv("COLOR_DETECT_INFERENCE_URL", c.InferenceURL)
	c.ModelPath = getEnv("COLOR_DETECT_MODEL", c.ModelPath)
	c.ModelConfig = getEnv("COLOR_DETECT_MODEL_CONFIG", c.ModelConfig)
	c.ClassesPath = getEnv("COLOR_DETECT_CLASSES", c.ClassesPath)
	c.Extractor = getEnv("COLOR_DETECT_EXTRACTOR", c.Extractor)
	c.Seed = int64(getEnvInt("COLOR_DETECT_SEED", int(c.Seed)))
	c.MaxPixels = getEnvInt("COLOR_DETECT_MAX_PIXELS", c.MaxPixels)
	c.Colors = getEnv("COLOR_DETECT_COLORS", c.Colors)
	c.MediaBackend = getEnv("COLOR_DETECT_MEDIA_BACKEND", c.MediaBackend)
	c.FourCC = getEnv("COLOR_DETECT_FOURCC", c.FourCC)
	c.OutputDir = getEnv("COLOR_DETECT_OUTPUT_DIR", c.OutputDir)
	c.StageDir = getEnv("COLOR_DETECT_STAGE_DIR", c.StageDir)
	c.Workers = getEnvInt("COLOR_DETECT_WORKERS", c.Workers)
	c.LogLevel = logging.LevelFromEnv(c.LogLevel)
	c.DatabaseURL = getEnv("COLOR_DETECT_DATABASE_URL", c.DatabaseURL)
	return c
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	if c.Clusters < 1 {
		return fmt.Errorf("clusters must be >= 1, got %d", c.Clusters)
	}
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be >= 1, got %d", c.Attempts)
	}
	if c.MaxIter < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", c.MaxIter)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("epsilon must be >= 0, got %f", c.Epsilon)
	}
	if c.MaxPixels < 0 {
		return fmt.Errorf("max pixels must be >= 0, got %d", c.MaxPixels)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0.0 and 1.0, got %f", c.MinConfidence)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be > 0, got %f", c.FPS)
	}
	if len(c.FourCC) != 4 {
		return fmt.Errorf("fourcc must be exactly 4 characters, got %q", c.FourCC)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.LineThickness < 1 {
		return fmt.Errorf("line thickness must be >= 1, got %d", c.LineThickness)
	}
	switch strings.ToLower(c.Colors) {
	case "random", "golden":
	default:
		return fmt.Errorf("invalid colors %q: must be random or golden", c.Colors)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
