// Package cached wraps a storage.Store with an LRU cache of read
// aggregates. Writes bump the owner's generation, so stale entries are
// never read again and age out on their own.
package cached

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

const (
	DefaultSize            = 256
	DefaultTTL             = time.Minute
	defaultCleanupInterval = 5 * time.Minute
)

type Options struct {
	Size int
	TTL  time.Duration
}

// Repository caches CountBy, ListExpenditureYears and the three
// aggregates. Point lookups and listings always reach the store.
type Repository struct {
	storage.Store
	entries *cache.LRUCache[any]
	janitor *cache.Manager

	mu          sync.Mutex
	generations map[int64]uint64
}

var _ storage.Store = (*Repository)(nil)

func New(store storage.Store, opts Options) *Repository {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	r := &Repository{
		Store:       store,
		entries:     cache.NewLRUCache[any](opts.Size, opts.TTL),
		janitor:     cache.NewManager(),
		generations: make(map[int64]uint64),
	}
	r.janitor.Register(r.entries)
	r.janitor.StartCleanup(defaultCleanupInterval)
	return r
}

func (r *Repository) generation(ownerID int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[ownerID]
}

func (r *Repository) invalidate(ownerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[ownerID]++
}

func (r *Repository) key(op string, c core.Criteria) string {
	return fmt.Sprintf("%d/%d/%s/%q/%s/%s", c.OwnerID, r.generation(c.OwnerID), op, c.Category, c.DateFrom, c.DateTo)
}

func (r *Repository) Save(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := r.Store.Save(ctx, e)
	if err == nil {
		r.invalidate(saved.OwnerID)
	}
	return saved, err
}

func (r *Repository) Delete(ctx context.Context, id, ownerID int64) error {
	err := r.Store.Delete(ctx, id, ownerID)
	if err == nil {
		r.invalidate(ownerID)
	}
	return err
}

func (r *Repository) CountBy(ctx context.Context, c core.Criteria) (int, error) {
	return lookup(r, r.key("count", c), func() (int, error) {
		return r.Store.CountBy(ctx, c)
	}, nil)
}

func (r *Repository) ListExpenditureYears(ctx context.Context, ownerID int64) ([]int, error) {
	return lookup(r, r.key("years", core.ForOwner(ownerID)), func() ([]int, error) {
		return r.Store.ListExpenditureYears(ctx, ownerID)
	}, slices.Clone[[]int, int])
}

func (r *Repository) SumAmountsByCategory(ctx context.Context, c core.Criteria) (map[string]core.Money, error) {
	return lookup(r, r.key("sum_by_category", c), func() (map[string]core.Money, error) {
		return r.Store.SumAmountsByCategory(ctx, c)
	}, maps.Clone[map[string]core.Money, string, core.Money])
}

func (r *Repository) AverageAmountsByCategory(ctx context.Context, c core.Criteria) (map[string]core.Money, error) {
	return lookup(r, r.key("avg_by_category", c), func() (map[string]core.Money, error) {
		return r.Store.AverageAmountsByCategory(ctx, c)
	}, maps.Clone[map[string]core.Money, string, core.Money])
}

func (r *Repository) SumAmounts(ctx context.Context, c core.Criteria) (core.Money, error) {
	return lookup(r, r.key("sum", c), func() (core.Money, error) {
		return r.Store.SumAmounts(ctx, c)
	}, nil)
}

// lookup serves key from the cache or loads and stores it. Errors are not
// cached. clone, when set, keeps callers from mutating cached values.
func lookup[T any](r *Repository, key string, load func() (T, error), clone func(T) T) (T, error) {
	if v, ok := r.entries.Get(key); ok {
		if t, ok := v.(T); ok {
			if clone != nil {
				return clone(t), nil
			}
			return t, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if clone != nil {
		r.entries.Set(key, clone(v))
	} else {
		r.entries.Set(key, v)
	}
	return v, nil
}

// Close stops the janitor and closes the wrapped store.
func (r *Repository) Close() error {
	r.janitor.Stop()
	return r.Store.Close()
}
