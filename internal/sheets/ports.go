package sheets

import (
	"context"

	"spendwise/internal/core"
)

// MonthlyReport is the content of one exported month.
type MonthlyReport struct {
	OwnerID  int64
	Summary  core.MonthlySummary
	Averages map[string]core.Money
	Alerts   []core.Alert
}

// Ports for outbound adapters.
type (
	// DashboardWriter stores a monthly report in an external spreadsheet and
	// returns the range it wrote.
	DashboardWriter interface {
		WriteMonthlyReport(ctx context.Context, r MonthlyReport) (rangeRef string, err error)
	}
)
