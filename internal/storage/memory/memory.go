// Package memory is an in-process Repository used for local development and
// as the reference backend in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Expense
}

func New() *Store {
	return &Store{items: make(map[int64]core.Expense)}
}

func (s *Store) Find(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) Save(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := storage.CheckSave(e); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !e.HasID() {
		s.nextID++
		e = e.WithID(s.nextID)
		s.items[e.ID] = e
		return e, nil
	}
	cur, ok := s.items[e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return core.Expense{}, core.ErrNotFound
	}
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) Delete(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.items[id]; ok && cur.OwnerID == ownerID {
		delete(s.items, id)
	}
	return nil
}

func (s *Store) FindBy(_ context.Context, c core.Criteria, offset, limit int) ([]core.Expense, error) {
	if err := storage.CheckQuery(c, offset, limit); err != nil {
		return nil, err
	}
	matches := s.filter(c)
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID > b.ID
	})
	if offset >= len(matches) {
		return []core.Expense{}, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end], nil
}

func (s *Store) CountBy(_ context.Context, c core.Criteria) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	return len(s.filter(c)), nil
}

func (s *Store) ListExpenditureYears(_ context.Context, ownerID int64) ([]int, error) {
	if err := core.ForOwner(ownerID).Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	seen := map[int]struct{}{}
	for _, e := range s.items {
		if e.OwnerID == ownerID {
			seen[e.Date.Year()] = struct{}{}
		}
	}
	s.mu.Unlock()

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (s *Store) SumAmountsByCategory(_ context.Context, c core.Criteria) (map[string]core.Money, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string]core.Money)
	for _, e := range s.filter(c) {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out, nil
}

func (s *Store) AverageAmountsByCategory(_ context.Context, c core.Criteria) (map[string]core.Money, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sums := make(map[string]core.Money)
	counts := make(map[string]int64)
	for _, e := range s.filter(c) {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
		counts[e.Category]++
	}
	out := make(map[string]core.Money, len(sums))
	for cat, sum := range sums {
		out[cat] = core.Average(sum, counts[cat])
	}
	return out, nil
}

func (s *Store) SumAmounts(_ context.Context, c core.Criteria) (core.Money, error) {
	if err := c.Validate(); err != nil {
		return core.Money{}, err
	}
	var total core.Money
	for _, e := range s.filter(c) {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *Store) ListOwners(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]struct{}{}
	owners := make([]int64, 0)
	for _, e := range s.items {
		if _, ok := seen[e.OwnerID]; ok {
			continue
		}
		seen[e.OwnerID] = struct{}{}
		owners = append(owners, e.OwnerID)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

func (s *Store) Close() error {
	return nil
}

// filter returns a snapshot of the rows matching c.
func (s *Store) filter(c core.Criteria) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.items {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
