package commands

import (
	"fmt"

	"lumator/internal/calendar"

	"github.com/spf13/cobra"
)

var sampleToday string

var sampleDateCmd = &cobra.Command{
	Use:   "sample-date TARGET_DATE...",
	Short: "Print the historical sample date used for each target date",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		today := calendar.Today()
		if sampleToday != "" {
			var err error
			if today, err = calendar.ParseDate(sampleToday); err != nil {
				return err
			}
		}

		for _, arg := range args {
			target, err := calendar.ParseDate(arg)
			if err != nil {
				return err
			}
			sample := calendar.SampleDate(target, today)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", calendar.Format(target), calendar.Format(sample), sample.Weekday())
		}
		return nil
	},
}

func init() {
	sampleDateCmd.Flags().StringVar(&sampleToday, "today", "", "reference date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(sampleDateCmd)
}
