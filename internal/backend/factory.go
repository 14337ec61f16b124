package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendwise/internal/storage"
	"spendwise/internal/storage/cached"
	"spendwise/internal/storage/memory"
	"spendwise/internal/storage/mongo"
	"spendwise/internal/storage/postgres"
	"spendwise/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case MemoryBackend:
		store = memory.New()
		f.logger.Info("Initialized memory backend")
	case SQLiteBackend:
		store, err = sqlite.NewRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		store, err = postgres.Open(ctx, config.PostgresDSN, postgres.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
	case MongoBackend:
		store, err = mongo.Open(ctx, config.MongoURI, config.MongoDatabase, config.MongoCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB repository: %w", err)
		}
		f.logger.Info("Initialized MongoDB backend",
			"database", config.MongoDatabase,
			"collection", config.MongoCollection)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.CacheSize > 0 {
		store = cached.New(store, cached.Options{Size: config.CacheSize, TTL: config.CacheTTL})
		f.logger.Info("Aggregate cache enabled", "size", config.CacheSize, "ttl", config.CacheTTL)
	}

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}
