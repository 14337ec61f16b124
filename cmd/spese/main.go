package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
	gsheet "spendwise/internal/sheets/google"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup always happens.
func run(args []string, stdout, stderr io.Writer) int {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "backend", cfg.DataBackend)
		return 1
	}
	defer closeStore()

	opts := cli.ServiceOptions(cfg, logger)
	summaries := services.NewSummaryService(store, opts)
	a := &app{
		expenses:   services.NewExpenseService(store, opts),
		summaries:  summaries,
		alerts:     services.NewAlertService(summaries, cfg.Budgets, opts),
		categories: cfg.Categories,
		out:        stdout,
	}
	if cfg.ExportEnabled() {
		a.exporter = func(ctx context.Context) (dashboardWriter, error) {
			return newExporter(ctx, cfg)
		}
	}

	if err := a.run(ctx, args); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitCode(err)
	}
	return 0
}

func newExporter(ctx context.Context, cfg *config.Config) (dashboardWriter, error) {
	return gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		DashboardSheetName: cfg.DashboardSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
}

// exitCode distinguishes caller mistakes (2) from failures (1).
func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage), errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrNotFound):
		return 2
	default:
		return 1
	}
}
