package commands

import (
	"fmt"

	"loto6-archive/internal/collector"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Loads the archive and checks that it is consistent.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCollector(cmd.Context(), cfg, func(col *collector.Collector) error {
			report, err := col.Verify(cmd.Context())
			if err != nil {
				return err
			}
			if report.Latest == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "archive is empty")
				return nil
			}
			fmt.Fprintf(
				cmd.OutOrStdout(), "archive ok: %d results, rounds %d to %d\n",
				len(report.Aggregate), report.Aggregate[len(report.Aggregate)-1].Round, report.Latest.Round,
			)
			return nil
		})
	},
}
