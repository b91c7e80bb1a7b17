package commands

import (
	"fmt"
	"io"

	"loto6-archive/internal/collector"
	"loto6-archive/internal/loto6/mizuho"

	"github.com/spf13/cobra"
)

var fetchFlags struct {
	source string
	dryRun bool
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFlags.source, "source", "", "Where to read the latest result from (csv or html), overrides source.kind.")
	fetchCmd.Flags().BoolVar(&fetchFlags.dryRun, "dry-run", false, "Fetch and synchronize without writing anything.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--source csv|html] [--dry-run]",
	Short: "Fetches the latest result and merges it into the archive.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		if fetchFlags.source != "" {
			if !mizuho.Source(fetchFlags.source).Valid() {
				return fmt.Errorf("--source must be csv or html, got %q", fetchFlags.source)
			}
			c.Source.Kind = fetchFlags.source
		}

		return withCollector(cmd.Context(), c, func(col *collector.Collector) error {
			var (
				report collector.Report
				err    error
			)
			if fetchFlags.dryRun {
				report, err = col.Preview(cmd.Context())
			} else {
				report, err = col.SyncLatest(cmd.Context())
			}
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		})
	},
}

func printReport(w io.Writer, report collector.Report) {
	for _, result := range report.Fetched {
		fmt.Fprintf(w, "fetched  %s\n", result)
	}
	for _, failure := range report.Failures {
		fmt.Fprintf(w, "failed   round %d: %v\n", failure.Round, failure.Err)
	}
	if len(report.Evicted) > 0 {
		fmt.Fprintf(w, "evicted  %v\n", report.Evicted)
	}

	status := "unchanged"
	switch {
	case report.Persisted:
		status = "saved"
	case report.Changed:
		status = "would change (dry run)"
	}
	latest := "none"
	if report.Latest != nil {
		latest = fmt.Sprint(report.Latest.Round)
	}
	fmt.Fprintf(w, "archive  %s, %d results, latest round %s\n", status, len(report.Aggregate), latest)
}
