package cli

import (
	"github.com/ironsheep/color-detect/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			p, err := a.openPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			a.logger.Debug().Str("version", a.info.Version).Msg("mcp server starting")
			srv := server.New(server.Options{
				Pipeline: p,
				Store:    a.store,
				Logger:   a.logger,
				Version:  a.info.Version,
			})
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
