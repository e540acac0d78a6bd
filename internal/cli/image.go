package cli

import (
	"github.com/spf13/cobra"
)

func newImageCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "image <path>...",
		Short: "Annotate still images and report the colors of detected objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			p, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			results := make([]interface{}, 0, len(args))
			for _, path := range args {
				res, err := p.RunImage(cmd.Context(), path)
				if err != nil {
					return err
				}
				if a.store != nil {
					if _, err := a.store.SaveImage(cmd.Context(), res); err != nil {
						a.logger.Warn().Err(err).Str("path", path).Msg("failed to store run")
					}
				}
				results = append(results, res)
			}

			if len(results) == 1 {
				return writeJSON(cmd.OutOrStdout(), results[0])
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
}
