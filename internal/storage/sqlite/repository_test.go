package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"spendwise/internal/core"
	"spendwise/internal/storage"
	"spendwise/internal/storage/storagetest"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "nested", "spendwise.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestRepository(t)
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spendwise.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestClosedDatabaseIsPersistenceFailure(t *testing.T) {
	repo := newTestRepository(t)
	repo.Close()

	_, err := repo.SumAmounts(context.Background(), core.ForOwner(1))
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	var pe *core.PersistenceError
	if !errors.As(err, &pe) || pe.Op != "sum expenses" {
		t.Fatalf("expected PersistenceError for sum expenses, got %#v", err)
	}
}
