package commands

import (
	"context"
	"fmt"

	devenv "loto6-archive/dev/env"
	"loto6-archive/internal/archive"
	"loto6-archive/internal/archive/fsstore"
	"loto6-archive/internal/archive/sqlstore"
	"loto6-archive/internal/collector"
	"loto6-archive/internal/config"
	"loto6-archive/internal/loto6/mizuho"
	"loto6-archive/internal/telemetry"
	"loto6-archive/lib/restyutil"
)

func openStore(ctx context.Context, c config.Config, tel telemetry.API) (archive.Store, error) {
	switch c.Storage.Backend {
	case config.BackendSqlite:
		db, err := c.Storage.Database.OpenDB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		store, err := sqlstore.New(ctx, db, tel)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	default:
		dir, err := devenv.ResolvePath(c.Storage.Dir)
		if err != nil {
			return nil, err
		}
		return fsstore.New(dir, tel)
	}
}

func newClient(c config.Config, tel telemetry.API) (*mizuho.Client, error) {
	opts := c.MizuhoOptions()
	if flags.verbose && c.Debug.HttpDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(c.Debug.HttpDumpDir)
		if err != nil {
			return nil, fmt.Errorf("http dump dir: %w", err)
		}
		opts.Output = output
	}
	return mizuho.New(opts, tel)
}

// withCollector wires a collector from the loaded config and runs fn with
// it, closing the store afterwards.
func withCollector(ctx context.Context, c config.Config, fn func(*collector.Collector) error) error {
	tel := telemetry.SlogAPI{}

	client, err := newClient(c, tel)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, c, tel)
	if err != nil {
		return err
	}
	defer store.Close()

	col, err := collector.New(client, store, c.Archive.MaxSize, tel)
	if err != nil {
		return err
	}
	return fn(col)
}
