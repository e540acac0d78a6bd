package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/ironsheep/color-detect/internal/pipeline"
	"github.com/ironsheep/color-detect/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		existing bool
		settle   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Process images and videos as they appear in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			p, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			w := &watch.Watcher{
				Dir:      args[0],
				Existing: existing,
				Settle:   settle,
				Logger:   a.logger,
				Handle: func(ctx context.Context, path string) error {
					res, err := a.process(ctx, p, path)
					if err != nil {
						return err
					}
					return writeJSON(out, res)
				},
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&existing, "existing", false, "Also process files already in the directory")
	cmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettle, "Quiet period before a new file is processed")
	return cmd
}

// process runs path through the pipeline as an image or a video and stores
// the result when a store is configured.
func (a *app) process(ctx context.Context, p *pipeline.Pipeline, path string) (interface{}, error) {
	if imaging.IsImagePath(path) {
		res, err := p.RunImage(ctx, path)
		if err != nil {
			return nil, err
		}
		if a.store != nil {
			if _, err := a.store.SaveImage(ctx, res); err != nil {
				return nil, fmt.Errorf("failed to store run: %w", err)
			}
		}
		return res, nil
	}

	res, err := p.RunVideo(ctx, path)
	if err != nil {
		return nil, err
	}
	if a.store != nil {
		if _, err := a.store.SaveVideo(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to store run: %w", err)
		}
	}
	return res, nil
}
