package commands

import (
	"fmt"
	"time"

	"lumator/internal/calendar"
	"lumator/internal/pipeline"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// runFlags are shared by run and reconstruct.
type runFlags struct {
	daysAhead     int
	startDate     string
	title         string
	runID         string
	to            []string
	skipSimulator bool
	noMail        bool
	open          bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Disaggregate the forecast, run the simulator and mail the report",
	Long: `Fetches the aggregate forecast, splits it into shipping option groups using the sample week,
writes and stages the simulator input files, runs the baseline and scenario simulations, then
reconstructs the output into the forecast report and mails it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOpts.options()
		if err != nil {
			return err
		}

		svc, err := openServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		rep, err := newPipeline(cfg, svc, runOpts.to).Run(cmd.Context(), opts)
		if rep != nil {
			svc.pushMetrics(cfg, rep.RunID)
		}
		if err != nil {
			return err
		}

		printReport(cmd, rep)
		return runOpts.openReport(rep)
	},
}

func (f *runFlags) options() (pipeline.Options, error) {
	opts := pipeline.Options{
		DaysAhead:     f.daysAhead,
		Title:         f.title,
		RunID:         f.runID,
		SkipSimulator: f.skipSimulator,
		NoMail:        f.noMail,
	}
	if opts.DaysAhead <= 0 {
		opts.DaysAhead = cfg.Demand.DaysAhead
	}
	if opts.Title == "" {
		opts.Title = cfg.Simulator.Title
	}
	if opts.RunID == "" {
		opts.RunID = cfg.Simulator.RunID
	}
	if f.startDate != "" {
		start, err := calendar.ParseDate(f.startDate)
		if err != nil {
			return opts, err
		}
		opts.StartDate = start
	}
	return opts, nil
}

func (f *runFlags) openReport(rep *pipeline.Report) error {
	if !f.open || rep.ReportPath == "" {
		return nil
	}
	if err := browser.OpenFile(rep.ReportPath); err != nil {
		log.Warn().Err(err).Str("path", rep.ReportPath).Msg("Failed to open report")
	}
	return nil
}

func printReport(cmd *cobra.Command, rep *pipeline.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run id:      %s\n", rep.RunID)
	fmt.Fprintf(out, "title:       %s\n", rep.Title)
	if rep.DemandPath != "" {
		fmt.Fprintf(out, "demand:      %s (%d records, %d packages)\n", rep.DemandPath, rep.Records, rep.Packages)
	}
	for _, r := range rep.Simulator {
		fmt.Fprintf(out, "simulator:   %s finished in %s\n", r.Phase, r.Duration.Round(time.Second))
	}
	if rep.ReportPath != "" {
		fmt.Fprintf(out, "report:      %s (%d rows)\n", rep.ReportPath, len(rep.Table.Rows))
	}
	if rep.Mailed {
		fmt.Fprintln(out, "mail:        sent")
	}
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().IntVar(&f.daysAhead, "days-ahead", 0, "number of days to forecast (default from DAYS_AHEAD)")
	cmd.Flags().StringVar(&f.startDate, "start-date", "", "start date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.title, "title", "", "simulation title (default TR-<start date>)")
	cmd.Flags().StringSliceVar(&f.to, "to", nil, "override mail recipients")
	cmd.Flags().BoolVar(&f.noMail, "no-mail", false, "write the report without mailing it")
	cmd.Flags().BoolVar(&f.open, "open", false, "open the report when done")
}

func init() {
	addRunFlags(runCmd, &runOpts)
	runCmd.Flags().StringVar(&runOpts.runID, "run-id", "", "run id written to the parameter file (default a new UUID)")
	runCmd.Flags().BoolVar(&runOpts.skipSimulator, "skip-simulator", false, "stop after staging the simulator input files")
	rootCmd.AddCommand(runCmd)
}
