package commands

import (
	"lumator/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve read-only planning tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		server := mcp.NewServer(mcp.Config{
			Version:         Version,
			Warehouse:       cfg.Demand.Warehouse,
			UnitsPerPackage: cfg.Demand.UnitsPerPackage,
			Rebalance:       cfg.Demand.Rebalance,
		}, svc.ratios, svc.repo)

		err = server.Run(cmd.Context())
		if cmd.Context().Err() != nil {
			log.Info().Msg("MCP server stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
