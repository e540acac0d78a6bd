package cli

import (
	"errors"

	"github.com/ironsheep/color-detect/internal/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newVideoCommand(a *app) *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "video <path>",
		Short: "Annotate every frame of a video and reassemble the clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			path := args[0]

			p, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			if !noProgress {
				total := int64(p.FrameCount(ctx, path))
				bar := progressbar.NewOptions64(total,
					progressbar.OptionSetDescription("Annotating"),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionShowCount(),
				)
				defer bar.Finish()
				p = p.WithProgress(func(done int) {
					_ = bar.Set(done)
				})
			}

			res, err := p.RunVideo(ctx, path)
			if err != nil && !errors.Is(err, pipeline.ErrCanceled) {
				return err
			}
			if a.store != nil && err == nil {
				if _, serr := a.store.SaveVideo(ctx, res); serr != nil {
					a.logger.Warn().Err(serr).Str("path", path).Msg("failed to store run")
				}
			}
			if res != nil {
				if werr := writeJSON(cmd.OutOrStdout(), res); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not draw a progress bar")
	return cmd
}
