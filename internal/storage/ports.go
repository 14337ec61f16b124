// Package storage defines the persistence ports of the expense engine and
// the helpers shared by its backends.
package storage

import (
	"context"

	"spendwise/internal/core"
)

// Ports for outbound adapters.
type (
	// Repository is the persistence contract every backend implements. All
	// criteria-scoped operations validate their criteria before touching the
	// store. Store failures come back as *core.PersistenceError.
	Repository interface {
		// Find is a point lookup without ownership filtering; callers must
		// check OwnerID before acting on the result. Missing rows yield
		// core.ErrNotFound.
		Find(ctx context.Context, id int64) (core.Expense, error)

		// Save inserts when e has no ID and returns the copy carrying the
		// assigned ID. Otherwise it replaces the row matching (ID, OwnerID);
		// when no such row exists nothing changes and core.ErrNotFound is
		// returned.
		Save(ctx context.Context, e core.Expense) (core.Expense, error)

		// Delete removes the row matching (id, ownerID). A missing row is
		// not an error.
		Delete(ctx context.Context, id, ownerID int64) error

		// FindBy lists matching rows by date descending, then ID descending,
		// skipping offset rows and returning at most limit.
		FindBy(ctx context.Context, c core.Criteria, offset, limit int) ([]core.Expense, error)

		CountBy(ctx context.Context, c core.Criteria) (int, error)

		// ListExpenditureYears returns the distinct years with at least one
		// expense of ownerID, newest first.
		ListExpenditureYears(ctx context.Context, ownerID int64) ([]int, error)

		// SumAmountsByCategory has one entry per category present in the
		// filtered set; categories without rows are absent.
		SumAmountsByCategory(ctx context.Context, c core.Criteria) (map[string]core.Money, error)

		// AverageAmountsByCategory is the per-category mean rounded half to
		// even at the cent.
		AverageAmountsByCategory(ctx context.Context, c core.Criteria) (map[string]core.Money, error)

		// SumAmounts is the grand total of the filtered set.
		SumAmounts(ctx context.Context, c core.Criteria) (core.Money, error)
	}

	// OwnerLister enumerates owners with at least one recorded expense.
	OwnerLister interface {
		ListOwners(ctx context.Context) ([]int64, error)
	}

	// Store is a Repository backend together with its lifecycle.
	Store interface {
		Repository
		OwnerLister
		Close() error
	}
)

// CheckQuery validates criteria and paging arguments before a listing.
func CheckQuery(c core.Criteria, offset, limit int) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if offset < 0 {
		return core.Invalid("offset", "must not be negative")
	}
	if limit < 0 {
		return core.Invalid("limit", "must not be negative")
	}
	return nil
}

// CheckSave validates an expense before it is written.
func CheckSave(e core.Expense) error {
	if e.ID < 0 {
		return core.Invalid("id", "must not be negative")
	}
	return e.Validate()
}
