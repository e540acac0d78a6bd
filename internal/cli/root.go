// Package cli implements the color-detect command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/color-detect/internal/config"
	"github.com/ironsheep/color-detect/internal/logging"
	"github.com/ironsheep/color-detect/internal/pipeline"
	"github.com/ironsheep/color-detect/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// BuildInfo is stamped into the binary by ldflags.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	store  *store.Store
	info   BuildInfo
}

// NewRootCommand builds the command tree. Flag defaults come from the
// COLOR_DETECT_* environment.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{cfg: config.FromEnv(), info: info}

	root := &cobra.Command{
		Use:     "color-detect",
		Short:   "Detect objects in images and video and name their dominant colors",
		Version: info.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = logging.NewConsole(a.cfg.LogLevel)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if a.cfg.DatabaseURL != "" {
				s, err := store.New(cmd.Context(), a.cfg.DatabaseURL)
				if err != nil {
					return err
				}
				a.store = s
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.store != nil {
				// The command context may already be canceled.
				a.store.Close(context.Background())
			}
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("color-detect {{.Version}}\n  Build time: %s\n  Git commit: %s\n", info.BuildTime, info.GitCommit))

	f := root.PersistentFlags()
	f.StringVar(&a.cfg.PalettePath, "palette", a.cfg.PalettePath, "Palette CSV (name,hex,R,G,B); embedded palette when empty")
	f.StringVar(&a.cfg.Detector, "detector", a.cfg.Detector, "Detector backend: none, shapes, ocr, remote, dnn")
	f.Float64Var(&a.cfg.MinConfidence, "min-confidence", a.cfg.MinConfidence, "Drop detections scoring below this (0.0-1.0)")
	f.StringVar(&a.cfg.InferenceURL, "inference-url", a.cfg.InferenceURL, "Endpoint of the remote detector")
	f.StringVar(&a.cfg.ModelPath, "model", a.cfg.ModelPath, "Network weights for the dnn detector")
	f.StringVar(&a.cfg.ModelConfig, "model-config", a.cfg.ModelConfig, "Network description for the dnn detector")
	f.StringVar(&a.cfg.ClassesPath, "classes", a.cfg.ClassesPath, "Class names for the dnn detector, one per line")
	f.StringVar(&a.cfg.OCRLanguage, "ocr-lang", a.cfg.OCRLanguage, "Tesseract language for the ocr detector")

	f.StringVar(&a.cfg.Extractor, "extractor", a.cfg.Extractor, "Dominant color algorithm: kmeans, histogram, opencv")
	f.IntVarP(&a.cfg.Clusters, "clusters", "k", a.cfg.Clusters, "Number of k-means clusters")
	f.IntVar(&a.cfg.Attempts, "attempts", a.cfg.Attempts, "k-means restarts")
	f.IntVar(&a.cfg.MaxIter, "max-iter", a.cfg.MaxIter, "k-means iteration limit")
	f.Float64Var(&a.cfg.Epsilon, "epsilon", a.cfg.Epsilon, "k-means convergence threshold")
	f.IntVar(&a.cfg.MaxPixels, "max-pixels", a.cfg.MaxPixels, "Downsample regions larger than this before clustering; 0 keeps every pixel")
	f.Int64Var(&a.cfg.Seed, "seed", a.cfg.Seed, "Random seed for clustering and colors; 0 is nondeterministic")

	f.StringVar(&a.cfg.Colors, "colors", a.cfg.Colors, "Box colors: random or golden")
	f.IntVar(&a.cfg.LineThickness, "thickness", a.cfg.LineThickness, "Box outline thickness in pixels")
	f.BoolVar(&a.cfg.ShowNames, "show-names", a.cfg.ShowNames, "Print the color name next to each sequence number")

	f.StringVar(&a.cfg.MediaBackend, "media", a.cfg.MediaBackend, "Video backend: ffmpeg, frames, gocv")
	f.Float64Var(&a.cfg.FPS, "fps", a.cfg.FPS, "Output frame rate")
	f.StringVar(&a.cfg.FourCC, "fourcc", a.cfg.FourCC, "Output codec FourCC")
	f.StringVarP(&a.cfg.OutputDir, "output", "o", a.cfg.OutputDir, "Directory for annotated output")
	f.StringVar(&a.cfg.StageDir, "stage-dir", a.cfg.StageDir, "Stage annotated video frames here before assembly")
	f.IntVarP(&a.cfg.Workers, "workers", "w", a.cfg.Workers, "Frames processed in parallel")

	f.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level: debug, info, warn, error")
	f.StringVar(&a.cfg.DatabaseURL, "db", a.cfg.DatabaseURL, "PostgreSQL connection string; results are stored when set")

	root.AddCommand(
		newImageCommand(a),
		newVideoCommand(a),
		newPaletteCommand(a),
		newServeCommand(a),
		newWatchCommand(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(info BuildInfo) int {
	// Cancel on Ctrl+C or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(info)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// openPipeline builds the pipeline for a command.
func (a *app) openPipeline() (*pipeline.Pipeline, error) {
	return pipeline.Open(a.cfg, a.logger)
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
