package main

import (
	"context"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"envelopes/internal/admin"
	"envelopes/internal/backend"
	"envelopes/internal/cli"
	applog "envelopes/internal/log"
	gsheet "envelopes/internal/sheets/google"
)

var command struct {
	admin.Globals
	admin.Commands
}

func main() {
	ctx := kong.Parse(&command,
		kong.Name("envelopes-admin"),
		kong.Description("Operate an envelopes ledger from the command line."),
		kong.UsageOnError(),
	)

	level := "warn"
	if command.Verbose {
		level = "debug"
	}
	logger := cli.SetupLogger(level, applog.ComponentApp)
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	env := &admin.Env{
		Out: os.Stdout,
		Now: func() time.Time { return time.Now().UTC() },
		Open: func(ctx context.Context) (admin.Ledger, func() error, error) {
			backendConfig, err := backend.FromAppConfig(cfg)
			if err != nil {
				return nil, nil, err
			}
			backendConfig.CacheSize = 0
			result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
			if err != nil {
				return nil, nil, err
			}
			return result.Ledger, result.Cleanup, nil
		},
		Sheets: func(ctx context.Context) (admin.Spreadsheet, error) {
			client, err := gsheet.NewFromEnv(ctx)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
	if cfg.DataBackend == string(backend.SQLiteBackend) {
		env.DBPath = cfg.SQLiteDBPath
	}

	if err := ctx.Run(env); err != nil {
		admin.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}
