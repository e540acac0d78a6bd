// Package watch feeds media files dropped into a directory to a handler.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/ironsheep/color-detect/internal/media"
	"github.com/ironsheep/color-detect/internal/pipeline"
	"github.com/rs/zerolog"
)

// DefaultSettle is how long a file must go without write events before it is
// handed off.
const DefaultSettle = 500 * time.Millisecond

// HandlerFunc processes one media file.
type HandlerFunc func(ctx context.Context, path string) error

// Watcher hands each image or video file created in Dir to Handle exactly
// once, after writes to it have settled. Annotated artifacts are skipped. Handle runs on the watcher
// goroutine, one file at a time.
type Watcher struct {
	Dir    string
	Handle HandlerFunc

	// Settle defaults to DefaultSettle.
	Settle time.Duration

	// Existing also handles media files already present when Run starts.
	Existing bool

	Logger zerolog.Logger
}

// IsMedia reports whether path is an image or video the pipeline accepts.
func IsMedia(path string) bool {
	return imaging.IsImagePath(path) || media.IsVideoPath(path)
}

// wanted reports whether path should be handed to the handler. Pipeline
// artifacts are never picked up, so the output directory may be the watched
// one.
func wanted(path string) bool {
	return IsMedia(path) && !pipeline.IsAnnotated(path)
}

// Run watches until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Handle == nil {
		return errors.New("watch: no handler")
	}
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}
	w.Logger.Info().Str("dir", w.Dir).Msg("watching for media")

	seen := make(map[string]bool)
	pending := make(map[string]time.Time)

	if w.Existing {
		entries, err := os.ReadDir(w.Dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", w.Dir, err)
		}
		for _, e := range entries {
			path := filepath.Join(w.Dir, e.Name())
			if !e.IsDir() && wanted(path) {
				pending[path] = time.Time{}
			}
		}
	}

	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !wanted(event.Name) || seen[event.Name] {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn().Err(err).Msg("watcher error")

		case now := <-ticker.C:
			ready := make([]string, 0, len(pending))
			for path, last := range pending {
				if now.Sub(last) >= settle {
					ready = append(ready, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				delete(pending, path)
				seen[path] = true
				w.handle(ctx, path)
				if ctx.Err() != nil {
					return nil
				}
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	start := time.Now()
	if err := w.Handle(ctx, path); err != nil {
		w.Logger.Warn().Err(err).Str("path", path).Msg("failed to process file")
		return
	}
	w.Logger.Info().
		Str("path", path).
		Dur("elapsed", time.Since(start)).
		Msg("processed")
}
