package commands

import (
	"log/slog"
	"time"

	"loto6-archive/internal/chrono"
	"loto6-archive/internal/collector"
	"loto6-archive/internal/telemetry"
	libtelemetry "loto6-archive/lib/telemetry"

	"github.com/spf13/cobra"
)

var watchCron string

func init() {
	watchCmd.Flags().StringVar(&watchCron, "cron", "", "Cron spec in Asia/Tokyo, overrides watch.cron.")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--cron spec]",
	Short: "Runs fetch on a schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := cfg.Watch.Cron
		if watchCron != "" {
			spec = watchCron
		}
		if err := chrono.ValidateSpec(spec); err != nil {
			return err
		}

		ctx := cmd.Context()
		libtelemetry.InstrumentPerfStats(ctx, 30*time.Second)

		return withCollector(ctx, cfg, func(col *collector.Collector) error {
			cron := chrono.NewStandardCron(telemetry.SlogAPI{})
			err := cron.Cron(spec, func() {
				report, err := col.SyncLatest(ctx)
				if err != nil {
					slog.Error("scheduled fetch failed", "err", err)
					return
				}
				latest := 0
				if report.Latest != nil {
					latest = report.Latest.Round
				}
				slog.Info("scheduled fetch done", "changed", report.Changed, "latest", latest, "evicted", report.Evicted)
			})
			if err != nil {
				return err
			}

			slog.Info("watching for new results", "cron", spec, "now", chrono.NewStandardTime().Now().Format(time.DateTime))
			cron.Run(ctx)
			slog.Info("stopped watching")
			return nil
		})
	},
}
