// Package storagetest holds the behavioural contract every storage.Store
// backend must satisfy. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// Factory returns an empty store. Cleanup is the caller's business
// (t.Cleanup, t.TempDir).
type Factory func(t *testing.T) storage.Store

// Run executes the whole contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"SaveAssignsIdentity", testSaveAssignsIdentity},
		{"FindMissing", testFindMissing},
		{"UpdateReplacesRow", testUpdateReplacesRow},
		{"UpdateScopedToOwner", testUpdateScopedToOwner},
		{"DeleteIdempotentAndScoped", testDeleteIdempotentAndScoped},
		{"ScenarioAMonthlySums", testScenarioA},
		{"ScenarioCPagination", testScenarioC},
		{"ScenarioDEmptyMonth", testScenarioD},
		{"HalfOpenRange", testHalfOpenRange},
		{"CategoryFilter", testCategoryFilter},
		{"CountMatchesListing", testCountMatchesListing},
		{"PagesConcatenate", testPagesConcatenate},
		{"SumMatchesCategorySums", testSumMatchesCategorySums},
		{"AveragesRoundHalfEven", testAverages},
		{"ExpenditureYears", testExpenditureYears},
		{"ListOwners", testListOwners},
		{"RejectsMalformedCriteria", testRejectsMalformedCriteria},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func mustSave(t *testing.T, s storage.Store, owner int64, date core.Date, category string, cents int64, desc string) core.Expense {
	t.Helper()
	e, err := core.NewExpense(owner, date, category, core.Cents(cents), desc)
	if err != nil {
		t.Fatalf("NewExpense: %v", err)
	}
	saved, err := s.Save(context.Background(), e)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return saved
}

func month(t *testing.T, owner int64, year, m int) core.Criteria {
	t.Helper()
	c, err := core.MonthCriteria(owner, year, m)
	if err != nil {
		t.Fatalf("MonthCriteria: %v", err)
	}
	return c
}

// seedScenarioA stores the three May 2024 expenses of owner 1 plus noise
// belonging to other owners and months.
func seedScenarioA(t *testing.T, s storage.Store) {
	t.Helper()
	mustSave(t, s, 1, core.NewDate(2024, 5, 3), "Groceries", 4250, "market")
	mustSave(t, s, 1, core.NewDate(2024, 5, 20), "Groceries", 1000, "bakery")
	mustSave(t, s, 1, core.NewDate(2024, 5, 10), "Transport", 2000, "train")
	mustSave(t, s, 2, core.NewDate(2024, 5, 10), "Groceries", 99999, "other owner")
	mustSave(t, s, 1, core.NewDate(2024, 4, 30), "Groceries", 777, "april")
	mustSave(t, s, 1, core.NewDate(2024, 6, 1), "Groceries", 888, "june")
}

func testSaveAssignsIdentity(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := mustSave(t, s, 1, core.NewDate(2024, 5, 3), "Groceries", 4250, "market")
	b := mustSave(t, s, 1, core.NewDate(2024, 5, 4), "Groceries", 100, "bread")
	if !a.HasID() || !b.HasID() || a.ID == b.ID {
		t.Fatalf("expected distinct identities, got %d and %d", a.ID, b.ID)
	}

	got, err := s.Find(ctx, a.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Fatalf("Find returned %+v, want %+v", got, a)
	}
}

func testFindMissing(t *testing.T, s storage.Store) {
	if _, err := s.Find(context.Background(), 424242); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testUpdateReplacesRow(t *testing.T, s storage.Store) {
	ctx := context.Background()
	orig := mustSave(t, s, 1, core.NewDate(2024, 5, 3), "Groceries", 4250, "market")

	next, err := orig.Updated(core.NewDate(2024, 5, 7), "Transport", core.Cents(1234), "taxi")
	if err != nil {
		t.Fatalf("Updated: %v", err)
	}
	saved, err := s.Save(ctx, next)
	if err != nil {
		t.Fatalf("Save update: %v", err)
	}
	if saved.ID != orig.ID {
		t.Fatalf("identity changed from %d to %d", orig.ID, saved.ID)
	}
	got, err := s.Find(ctx, orig.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !reflect.DeepEqual(got, next) {
		t.Fatalf("stored %+v, want %+v", got, next)
	}
	if n, _ := s.CountBy(ctx, core.ForOwner(1)); n != 1 {
		t.Fatalf("update must not insert, count = %d", n)
	}
}

func testUpdateScopedToOwner(t *testing.T, s storage.Store) {
	ctx := context.Background()
	orig := mustSave(t, s, 1, core.NewDate(2024, 5, 3), "Groceries", 4250, "market")

	hijack := orig
	hijack.OwnerID = 2
	hijack.Amount = core.Cents(1)
	if _, err := s.Save(ctx, hijack); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign update, got %v", err)
	}
	got, err := s.Find(ctx, orig.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !reflect.DeepEqual(got, orig) {
		t.Fatalf("foreign update modified the row: %+v", got)
	}

	ghost := orig.WithID(orig.ID + 1000)
	if _, err := s.Save(ctx, ghost); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown identity, got %v", err)
	}
}

func testDeleteIdempotentAndScoped(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := mustSave(t, s, 1, core.NewDate(2024, 5, 3), "Groceries", 4250, "market")

	if err := s.Delete(ctx, e.ID, 2); err != nil {
		t.Fatalf("foreign delete: %v", err)
	}
	if _, err := s.Find(ctx, e.ID); err != nil {
		t.Fatalf("foreign delete removed the row: %v", err)
	}

	if err := s.Delete(ctx, e.ID, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Find(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, e.ID, 1); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
}

func testScenarioA(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedScenarioA(t, s)
	c := month(t, 1, 2024, 5)

	sums, err := s.SumAmountsByCategory(ctx, c)
	if err != nil {
		t.Fatalf("SumAmountsByCategory: %v", err)
	}
	want := map[string]core.Money{"Groceries": core.Cents(5250), "Transport": core.Cents(2000)}
	if !reflect.DeepEqual(sums, want) {
		t.Fatalf("sums = %v, want %v", sums, want)
	}

	total, err := s.SumAmounts(ctx, c)
	if err != nil {
		t.Fatalf("SumAmounts: %v", err)
	}
	if total != core.Cents(7250) {
		t.Fatalf("total = %d, want 7250", total.Cents)
	}
}

func testScenarioC(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedScenarioA(t, s)
	c := month(t, 1, 2024, 5)

	page, err := core.NewPage(2, 2)
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	rows, err := s.FindBy(ctx, c, page.Offset(), page.Size)
	if err != nil {
		t.Fatalf("FindBy: %v", err)
	}
	if len(rows) != 1 || rows[0].Date != core.NewDate(2024, 5, 3) {
		t.Fatalf("page 2 = %+v, want only the 2024-05-03 row", rows)
	}

	count, err := s.CountBy(ctx, c)
	if err != nil {
		t.Fatalf("CountBy: %v", err)
	}
	if got := core.TotalPages(count, page.Size); got != 2 {
		t.Fatalf("total pages = %d, want 2", got)
	}
}

func testScenarioD(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedScenarioA(t, s)
	c := month(t, 1, 2024, 7)

	total, err := s.SumAmounts(ctx, c)
	if err != nil {
		t.Fatalf("SumAmounts: %v", err)
	}
	if !total.IsZero() {
		t.Fatalf("total = %d, want 0", total.Cents)
	}
	sums, err := s.SumAmountsByCategory(ctx, c)
	if err != nil {
		t.Fatalf("SumAmountsByCategory: %v", err)
	}
	if sums == nil || len(sums) != 0 {
		t.Fatalf("sums = %v, want empty map", sums)
	}
	avgs, err := s.AverageAmountsByCategory(ctx, c)
	if err != nil {
		t.Fatalf("AverageAmountsByCategory: %v", err)
	}
	if len(avgs) != 0 {
		t.Fatalf("averages = %v, want empty", avgs)
	}
	rows, err := s.FindBy(ctx, c, 0, 10)
	if err != nil || len(rows) != 0 {
		t.Fatalf("FindBy = %v, %v; want no rows", rows, err)
	}
}

func testHalfOpenRange(t *testing.T, s storage.Store) {
	ctx := context.Background()
	from, to := core.NewDate(2024, 5, 1), core.NewDate(2024, 5, 10)
	mustSave(t, s, 1, from, "A", 100, "on from")
	mustSave(t, s, 1, to, "A", 200, "on to")
	mustSave(t, s, 1, core.NewDate(2024, 5, 9), "A", 300, "inside")

	c := core.ForOwner(1).Between(from, to)
	total, err := s.SumAmounts(ctx, c)
	if err != nil {
		t.Fatalf("SumAmounts: %v", err)
	}
	if total != core.Cents(400) {
		t.Fatalf("total = %d, want 400 (date_to excluded)", total.Cents)
	}

	onlyFrom := core.ForOwner(1).Between(from, core.Date{})
	if n, _ := s.CountBy(ctx, onlyFrom); n != 3 {
		t.Fatalf("open upper bound count = %d, want 3", n)
	}
	onlyTo := core.ForOwner(1).Between(core.Date{}, to)
	if n, _ := s.CountBy(ctx, onlyTo); n != 2 {
		t.Fatalf("open lower bound count = %d, want 2", n)
	}
}

func testCategoryFilter(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedScenarioA(t, s)
	c := month(t, 1, 2024, 5).WithCategory("Groceries")

	rows, err := s.FindBy(ctx, c, 0, 10)
	if err != nil {
		t.Fatalf("FindBy: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if r.Category != "Groceries" || r.OwnerID != 1 {
			t.Fatalf("unexpected row %+v", r)
		}
	}
	sums, err := s.SumAmountsByCategory(ctx, c)
	if err != nil {
		t.Fatalf("SumAmountsByCategory: %v", err)
	}
	if len(sums) != 1 || sums["Groceries"] != core.Cents(5250) {
		t.Fatalf("sums = %v", sums)
	}
}

// seedMany stores rows spread over a few dates with several rows sharing a
// date, so ordering has to fall back to identity.
func seedMany(t *testing.T, s storage.Store) {
	t.Helper()
	cats := []string{"A", "B", "C"}
	for i := 0; i < 17; i++ {
		d := core.NewDate(2024, 3+(i%3), 1+(i%4))
		mustSave(t, s, 1, d, cats[i%len(cats)], int64(100+i*37), "row")
	}
}

func testCountMatchesListing(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedMany(t, s)
	for _, c := range []core.Criteria{
		core.ForOwner(1),
		core.ForOwner(1).WithCategory("B"),
		month(t, 1, 2024, 4),
		core.ForOwner(2),
	} {
		n, err := s.CountBy(ctx, c)
		if err != nil {
			t.Fatalf("CountBy: %v", err)
		}
		rows, err := s.FindBy(ctx, c, 0, n)
		if err != nil {
			t.Fatalf("FindBy: %v", err)
		}
		if len(rows) != n {
			t.Fatalf("criteria %+v: count %d, listing %d", c, n, len(rows))
		}
	}
}

func testPagesConcatenate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedMany(t, s)
	c := core.ForOwner(1)

	n, err := s.CountBy(ctx, c)
	if err != nil {
		t.Fatalf("CountBy: %v", err)
	}
	all, err := s.FindBy(ctx, c, 0, n)
	if err != nil {
		t.Fatalf("FindBy: %v", err)
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if cur.Date.After(prev.Date.Time) || (cur.Date.Equal(prev.Date.Time) && cur.ID > prev.ID) {
			t.Fatalf("rows %d and %d out of order: %+v, %+v", i-1, i, prev, cur)
		}
	}

	for size := 1; size <= n+1; size++ {
		var joined []core.Expense
		for offset := 0; offset < n; offset += size {
			rows, err := s.FindBy(ctx, c, offset, size)
			if err != nil {
				t.Fatalf("FindBy(%d, %d): %v", offset, size, err)
			}
			joined = append(joined, rows...)
		}
		if !reflect.DeepEqual(joined, all) {
			t.Fatalf("page size %d: concatenated pages differ from the full listing", size)
		}
	}

	past, err := s.FindBy(ctx, c, n+5, 10)
	if err != nil || len(past) != 0 {
		t.Fatalf("offset past the end = %v, %v", past, err)
	}
}

func testSumMatchesCategorySums(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedMany(t, s)
	seedScenarioA(t, s)
	for _, c := range []core.Criteria{
		core.ForOwner(1),
		month(t, 1, 2024, 3),
		month(t, 1, 2024, 5),
		core.ForOwner(1).WithCategory("A"),
		core.ForOwner(2),
		core.ForOwner(3),
	} {
		total, err := s.SumAmounts(ctx, c)
		if err != nil {
			t.Fatalf("SumAmounts: %v", err)
		}
		sums, err := s.SumAmountsByCategory(ctx, c)
		if err != nil {
			t.Fatalf("SumAmountsByCategory: %v", err)
		}
		if got := core.Sum(sums); got != total {
			t.Fatalf("criteria %+v: total %d, categories %d", c, total.Cents, got.Cents)
		}
	}
}

func testAverages(t *testing.T, s storage.Store) {
	ctx := context.Background()
	d := core.NewDate(2024, 5, 2)
	mustSave(t, s, 1, d, "Even", 2, "a")
	mustSave(t, s, 1, d, "Even", 3, "b") // 2.5 -> 2
	mustSave(t, s, 1, d, "Odd", 3, "a")
	mustSave(t, s, 1, d, "Odd", 4, "b") // 3.5 -> 4
	mustSave(t, s, 1, d, "Thirds", 10, "a")
	mustSave(t, s, 1, d, "Thirds", 10, "b")
	mustSave(t, s, 1, d, "Thirds", 11, "c") // 10.33 -> 10

	avgs, err := s.AverageAmountsByCategory(ctx, month(t, 1, 2024, 5))
	if err != nil {
		t.Fatalf("AverageAmountsByCategory: %v", err)
	}
	want := map[string]core.Money{"Even": core.Cents(2), "Odd": core.Cents(4), "Thirds": core.Cents(10)}
	if !reflect.DeepEqual(avgs, want) {
		t.Fatalf("averages = %v, want %v", avgs, want)
	}
}

func testExpenditureYears(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustSave(t, s, 1, core.NewDate(2022, 1, 1), "A", 1, "x")
	mustSave(t, s, 1, core.NewDate(2024, 12, 31), "A", 1, "x")
	mustSave(t, s, 1, core.NewDate(2024, 1, 1), "A", 1, "x")
	mustSave(t, s, 1, core.NewDate(2023, 6, 15), "A", 1, "x")
	mustSave(t, s, 2, core.NewDate(2019, 6, 15), "A", 1, "x")

	years, err := s.ListExpenditureYears(ctx, 1)
	if err != nil {
		t.Fatalf("ListExpenditureYears: %v", err)
	}
	if want := []int{2024, 2023, 2022}; !reflect.DeepEqual(years, want) {
		t.Fatalf("years = %v, want %v", years, want)
	}

	none, err := s.ListExpenditureYears(ctx, 3)
	if err != nil || len(none) != 0 {
		t.Fatalf("owner without expenses: %v, %v", none, err)
	}
}

func testListOwners(t *testing.T, s storage.Store) {
	seedScenarioA(t, s)
	owners, err := s.ListOwners(context.Background())
	if err != nil {
		t.Fatalf("ListOwners: %v", err)
	}
	if want := []int64{1, 2}; !reflect.DeepEqual(owners, want) {
		t.Fatalf("owners = %v, want %v", owners, want)
	}
}

func testRejectsMalformedCriteria(t *testing.T, s storage.Store) {
	ctx := context.Background()
	bad := core.ForOwner(1).Between(core.NewDate(2024, 6, 1), core.NewDate(2024, 5, 1))

	if _, err := s.FindBy(ctx, bad, 0, 10); !errors.Is(err, core.ErrValidation) {
		t.Errorf("FindBy: expected validation error, got %v", err)
	}
	if _, err := s.CountBy(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Errorf("CountBy: expected validation error, got %v", err)
	}
	if _, err := s.SumAmounts(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Errorf("SumAmounts: expected validation error, got %v", err)
	}
	if _, err := s.SumAmountsByCategory(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Errorf("SumAmountsByCategory: expected validation error, got %v", err)
	}
	if _, err := s.AverageAmountsByCategory(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Errorf("AverageAmountsByCategory: expected validation error, got %v", err)
	}
	if _, err := s.Save(ctx, core.Expense{OwnerID: 1}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Save: expected validation error, got %v", err)
	}
}
