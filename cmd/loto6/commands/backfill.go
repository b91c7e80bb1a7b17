package commands

import (
	"loto6-archive/internal/collector"

	"github.com/spf13/cobra"
)

var backfillCount int

func init() {
	backfillCmd.Flags().IntVar(&backfillCount, "count", 0, "Number of recent rounds to fetch, defaults to archive.max_size.")
	rootCmd.AddCommand(backfillCmd)
}

var backfillCmd = &cobra.Command{
	Use:   "backfill [--count N]",
	Short: "Fetches the latest N rounds and merges them into the archive in one commit.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count := backfillCount
		if count == 0 {
			count = cfg.Archive.MaxSize
		}
		return withCollector(cmd.Context(), cfg, func(col *collector.Collector) error {
			report, err := col.Backfill(cmd.Context(), count)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		})
	},
}
