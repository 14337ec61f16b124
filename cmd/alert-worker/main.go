package main

import (
	"context"
	"flag"
	"os"
	"time"

	"spendwise/internal/cli"
	"spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "scan the current month once and exit")
	flag.Parse()
	os.Exit(run(*once))
}

// run returns the process exit code so deferred cleanup always happens.
func run(once bool) int {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting alert-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	store, closeStore, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "backend", cfg.DataBackend)
		return 1
	}
	defer closeStore()

	notifier, closeNotifier, err := cli.AlertNotifier(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize alert notifier", "error", err)
		return 1
	}
	defer closeNotifier()

	opts := cli.ServiceOptions(cfg, logger)
	alerts := services.NewAlertService(services.NewSummaryService(store, opts), cfg.Budgets, opts)
	w := worker.NewAlertWorker(store, alerts, notifier, cfg.AlertConcurrency, logger)

	scan := func(ctx context.Context) {
		if _, err := w.RunOnce(ctx); err != nil {
			logger.Error("Alert scan finished with failures", "error", err)
		}
	}

	if once {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := w.RunOnce(ctx); err != nil {
			logger.Error("Alert scan finished with failures", "error", err)
			return 1
		}
		return 0
	}

	scheduler, err := worker.NewScheduler(cfg.AlertSchedule, false, scan, logger)
	if err != nil {
		logger.Error("Invalid alert schedule", "error", err)
		return 1
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler did not stop cleanly", "error", err)
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		return 1
	}
	logger.Info("Alert scan scheduled", "schedule", cfg.AlertSchedule, "next_run", scheduler.Next(time.Now()))

	cli.WaitForShutdown(ctx, done)
	logger.Info("alert-worker stopped")
	return 0
}
