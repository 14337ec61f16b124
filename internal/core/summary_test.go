package core

import (
	"errors"
	"math"
	"testing"
)

func TestBuildMonthlySummary(t *testing.T) {
	byCat := map[string]Money{"Groceries": Cents(5250), "Transport": Cents(2000)}

	s, err := BuildMonthlySummary(2024, 5, Cents(7250), byCat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Total != Cents(7250) || len(s.ByCategory) != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	var sum int64
	var pct float64
	for _, share := range s.ByCategory {
		sum += share.Amount.Cents
		pct += share.Percentage
	}
	if sum != s.Total.Cents {
		t.Fatalf("category amounts add up to %d, total %d", sum, s.Total.Cents)
	}
	if math.Abs(pct-100) > 1e-9 {
		t.Fatalf("percentages add up to %f", pct)
	}
	if got := s.ByCategory["Transport"].Percentage; math.Abs(got-27.586206896) > 1e-6 {
		t.Fatalf("Transport percentage = %f", got)
	}

	cats := s.Categories()
	if len(cats) != 2 || cats[0].Name != "Groceries" || cats[1].Name != "Transport" {
		t.Fatalf("unexpected order: %+v", cats)
	}
}

func TestBuildMonthlySummaryEmptyMonth(t *testing.T) {
	s, err := BuildMonthlySummary(2024, 6, Money{}, map[string]Money{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Total.IsZero() || len(s.ByCategory) != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
}

func TestBuildMonthlySummaryMismatch(t *testing.T) {
	_, err := BuildMonthlySummary(2024, 5, Cents(100), map[string]Money{"A": Cents(99)})
	if !errors.Is(err, ErrAggregateMismatch) {
		t.Fatalf("expected ErrAggregateMismatch, got %v", err)
	}
}

func TestSortedAmountsTieBreak(t *testing.T) {
	got := SortedAmounts(map[string]Money{"b": Cents(10), "a": Cents(10), "c": Cents(30)})
	want := []string{"c", "a", "b"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ count, size, want int }{
		{0, 10, 1},
		{3, 2, 2},
		{4, 2, 2},
		{5, 2, 3},
		{1, 1, 1},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.count, tc.size); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tc.count, tc.size, got, tc.want)
		}
	}

	p, err := NewPage(2, 2)
	if err != nil || p.Offset() != 2 {
		t.Fatalf("page 2 of size 2: offset %d err %v", p.Offset(), err)
	}
	if _, err := NewPage(0, 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
