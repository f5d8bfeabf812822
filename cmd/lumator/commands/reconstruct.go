package commands

import (
	"github.com/spf13/cobra"
)

var reconstructOpts runFlags

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Rebuild the report of a simulation that already ran",
	Long: `Reads the raw output of an existing simulation from the warehouse, reconstructs the
per-carrier calendar and writes (and optionally mails) the report. The simulator is not run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := reconstructOpts.options()
		if err != nil {
			return err
		}

		svc, err := openServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		rep, err := newPipeline(cfg, svc, reconstructOpts.to).Reconstruct(cmd.Context(), opts)
		if rep != nil {
			svc.pushMetrics(cfg, rep.RunID)
		}
		if err != nil {
			return err
		}

		printReport(cmd, rep)
		return reconstructOpts.openReport(rep)
	},
}

func init() {
	addRunFlags(reconstructCmd, &reconstructOpts)
	rootCmd.AddCommand(reconstructCmd)
}
