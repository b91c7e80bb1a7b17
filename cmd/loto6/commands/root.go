package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"loto6-archive/internal/config"
	"loto6-archive/lib/telemetry"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	config  string
	verbose bool
	dataDir string
	backend string
}

var flags rootFlags

// state shared by the subcommands, populated in PersistentPreRunE.
var (
	cfg       config.Config
	otelSetup telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:           "loto6",
	Short:         "loto6 keeps a bounded archive of the latest Loto6 drawing results.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(os.Stderr, flags.verbose)

		var err error
		otelSetup, err = telemetry.SetupFromEnv(cmd.Context(), "loto6")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		cfg, err = config.Load(flags.config)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if flags.dataDir != "" {
			cfg.Storage.Dir = flags.dataDir
		}
		if flags.backend != "" {
			cfg.Storage.Backend = flags.backend
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", "Path to the config file, defaults to the nearest loto6.json5.")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Override storage.dir.")
	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "Override storage.backend (fs or sqlite).")
}

func ExecuteContext(ctx context.Context) {
	if err := execute(ctx, rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs cmd and flushes telemetry whether or not it failed.
func execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := otelSetup.Shutdown(flushCtx); shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}
	return err
}
