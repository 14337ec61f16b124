// Package cli provides the process bootstrap shared by cmd/spese,
// cmd/alert-worker and cmd/notify-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendwise/internal/amqp"
	"spendwise/internal/backend"
	"spendwise/internal/config"
	"spendwise/internal/log"
	"spendwise/internal/notify"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Unknown levels fall back to info.
func SetupLogger(component string) *log.Logger {
	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := log.New(log.Config{
		Level:     level,
		Format:    os.Getenv("LOG_FORMAT"),
		Component: component,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid LOG_LEVEL, using info", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured backend. The returned cleanup closes it.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (storage.Store, func(), error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}
	return result.Store, cleanup, nil
}

// ServiceOptions derives the service options from cfg.
func ServiceOptions(cfg *config.Config, logger *log.Logger) services.Options {
	return services.Options{
		StoreTimeout: cfg.StoreTimeout,
		PageSize:     cfg.PageSize,
		Logger:       logger,
	}
}

// AlertNotifier picks the alert transport: the broker when AMQP_URL is
// set, else Telegram when configured, else the log. The cleanup releases
// the broker connection.
func AlertNotifier(cfg *config.Config, logger *log.Logger) (notify.Notifier, func(), error) {
	switch {
	case cfg.AMQPURL != "":
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("connect AMQP: %w", err)
		}
		logger.Info("Alerts are published to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return notify.NewAMQPNotifier(client), func() { _ = client.Close() }, nil
	case cfg.TelegramEnabled():
		n, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Alerts are sent to Telegram", "chat_id", cfg.TelegramChatID)
		return n, func() {}, nil
	default:
		logger.Info("No alert transport configured, alerts are logged")
		return notify.NewLogNotifier(logger), func() {}, nil
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
