package core

import (
	"fmt"
	"sort"
)

// Thresholds maps a category to its monthly budget. Categories without an
// entry never alert.
type Thresholds map[string]Money

// Alert reports a category whose spending went over its budget.
type Alert struct {
	Category   string
	Actual     Money
	Budget     Money
	ExceededBy Money
}

func (a Alert) Message() string {
	return fmt.Sprintf("You have exceeded your budget for %s by %s€", a.Category, a.ExceededBy)
}

// GenerateAlerts compares per-category totals with thresholds. An alert is
// emitted only when the budget is positive and the total is strictly above
// it. Alerts are ordered by ExceededBy descending, then category ascending.
// The result is never nil.
func GenerateAlerts(totals map[string]Money, thresholds Thresholds) []Alert {
	alerts := make([]Alert, 0)
	for category, actual := range totals {
		budget, ok := thresholds[category]
		if !ok || budget.Cents <= 0 || actual.Cents <= budget.Cents {
			continue
		}
		alerts = append(alerts, Alert{
			Category:   category,
			Actual:     actual,
			Budget:     budget,
			ExceededBy: actual.Sub(budget),
		})
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].ExceededBy != alerts[j].ExceededBy {
			return alerts[i].ExceededBy.Cents > alerts[j].ExceededBy.Cents
		}
		return alerts[i].Category < alerts[j].Category
	})
	return alerts
}
