package core

import (
	"fmt"
	"sort"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategoryShare is a category total and its share of the month, in percent.
type CategoryShare struct {
	Amount     Money
	Percentage float64
}

// MonthlySummary is the rollup of one owner's expenses for a year+month.
type MonthlySummary struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory map[string]CategoryShare
}

// BuildMonthlySummary combines the grand total with per-category totals.
// The two come from separate queries and must agree to the cent; a mismatch
// is reported as ErrAggregateMismatch.
func BuildMonthlySummary(year, month int, total Money, byCategory map[string]Money) (MonthlySummary, error) {
	if sum := Sum(byCategory); sum != total {
		return MonthlySummary{}, fmt.Errorf("%w: total %s, categories %s", ErrAggregateMismatch, total, sum)
	}

	summary := MonthlySummary{
		Year:       year,
		Month:      month,
		Total:      total,
		ByCategory: make(map[string]CategoryShare, len(byCategory)),
	}
	for name, amount := range byCategory {
		var pct float64
		if total.Cents > 0 {
			pct = float64(amount.Cents) / float64(total.Cents) * 100
		}
		summary.ByCategory[name] = CategoryShare{Amount: amount, Percentage: pct}
	}
	return summary, nil
}

// Categories lists the category totals, largest first, ties by name.
func (s MonthlySummary) Categories() []CategoryAmount {
	return SortedAmounts(shareAmounts(s.ByCategory))
}

func shareAmounts(in map[string]CategoryShare) map[string]Money {
	out := make(map[string]Money, len(in))
	for name, share := range in {
		out[name] = share.Amount
	}
	return out
}

// SortedAmounts flattens a per-category mapping, largest amount first and
// category name ascending on ties.
func SortedAmounts(byCategory map[string]Money) []CategoryAmount {
	list := make([]CategoryAmount, 0, len(byCategory))
	for name, amount := range byCategory {
		list = append(list, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Amount != list[j].Amount {
			return list[i].Amount.Cents > list[j].Amount.Cents
		}
		return list[i].Name < list[j].Name
	})
	return list
}
