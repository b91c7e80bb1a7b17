package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"loto6-archive/internal/archive/sqlstore"
	"loto6-archive/internal/telemetry"
	configlibsql "loto6-archive/lib/configutil/libsql"
	libtelemetry "loto6-archive/lib/telemetry"
)

const localConfig = "loto6.local.json5"

const localConfigContents = `{
	storage: {
		dir: "<dev_state>/data",
		database: { file: "<dev_state>/loto6.db" },
	},
	debug: {
		http_dump_dir: "<dev_state>/http",
	},
}
`

func create(ctx context.Context, recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll("dev/.state", 0777)
	if err != nil {
		return err
	}

	db, err := configlibsql.Struct{File: "<dev_state>/loto6.db"}.OpenDB()
	if err != nil {
		return err
	}
	store, err := sqlstore.New(ctx, db, telemetry.SlogAPI{})
	if err != nil {
		db.Close()
		return err
	}
	err = store.Close()
	if err != nil {
		return err
	}

	_, err = os.Stat(localConfig)
	if errors.Is(err, os.ErrNotExist) {
		err = os.WriteFile(localConfig, []byte(localConfigContents), 0644)
		if err != nil {
			return err
		}
		slog.Info("wrote local config overrides", "path", localConfig)
	}
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()
	libtelemetry.InitSlog(os.Stderr, true)

	err := create(context.Background(), *recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created successfully!")
}
