package main

import (
	"context"
	"errors"
	"os"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/cli"
	"spendwise/internal/log"
	"spendwise/internal/notify"
	"spendwise/internal/worker"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting notify-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for notify-worker")
		return 1
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.Error("Failed to initialize Telegram notifier", "error", err)
			return 1
		}
		notifier = tg
	} else {
		logger.Warn("Telegram not configured, alerts will only be logged")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		return 1
	}
	defer client.Close()

	forwarder := worker.NewForwarder(notifier, logger)
	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	if err := client.ConsumeAlerts(ctx, forwarder.HandleAlertMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		return 1
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("notify-worker stopped")
	return 0
}
