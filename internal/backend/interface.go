package backend

import (
	"context"
	"time"

	"spendwise/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and its cleanup function
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresDSN string

	// MongoDB specific
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// ConnectTimeout bounds connecting to a server backend.
	ConnectTimeout time.Duration

	// CacheSize > 0 wraps the store with the aggregate cache.
	CacheSize int
	CacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MongoBackend    BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, MongoBackend:
		return true
	default:
		return false
	}
}
