package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/storage/cached"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:     "mongo",
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "spendwise",
		MongoCollection: "expenses",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != MongoBackend || cfg.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("unexpected backend config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without dsn", Config{Type: PostgresBackend}, true},
		{"mongo without collection", Config{Type: MongoBackend, MongoURI: "mongodb://x", MongoDatabase: "d"}, true},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	factory := NewFactory(nil)
	ctx := context.Background()

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "spendwise.db")},
		{Type: MemoryBackend, CacheSize: 8, CacheTTL: time.Minute},
	} {
		name := cfg.Type.String()
		if cfg.CacheSize > 0 {
			name += "-cached"
		}
		t.Run(name, func(t *testing.T) {
			result, err := factory.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer result.Cleanup()

			e, err := core.NewExpense(1, core.NewDate(2024, 5, 1), "Groceries", core.Cents(100), "bread")
			if err != nil {
				t.Fatalf("NewExpense: %v", err)
			}
			if _, err := result.Store.Save(ctx, e); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if n, err := result.Store.CountBy(ctx, core.ForOwner(1)); err != nil || n != 1 {
				t.Fatalf("CountBy = %d, %v", n, err)
			}
			if _, isCached := result.Store.(*cached.Repository); isCached != (cfg.CacheSize > 0) {
				t.Errorf("store %T, cache size %d", result.Store, cfg.CacheSize)
			}
		})
	}

	if _, err := factory.CreateBackend(ctx, Config{Type: PostgresBackend}); err == nil {
		t.Fatal("expected validation error for postgres without DSN")
	}
}
