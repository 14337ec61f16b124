package services

import (
	"context"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// Dashboard gathers everything shown for one owner and month.
type Dashboard struct {
	Summary  core.MonthlySummary
	Averages map[string]core.Money
	Years    []int
	Alerts   []core.Alert
}

// SummaryService computes per-period rollups from repository aggregates.
type SummaryService struct {
	repo storage.Repository
	opts Options
}

func NewSummaryService(repo storage.Repository, opts Options) *SummaryService {
	return &SummaryService{repo: repo, opts: opts.withDefaults(log.ComponentSummary)}
}

// MonthlySummary returns the total and per-category shares of ownerID's
// expenses in the given month.
func (s *SummaryService) MonthlySummary(ctx context.Context, ownerID int64, year, month int) (core.MonthlySummary, error) {
	c, err := core.MonthCriteria(ownerID, year, month)
	if err != nil {
		return core.MonthlySummary{}, err
	}

	total, err := storeCall(ctx, s.opts.StoreTimeout, "sum expenses", func(ctx context.Context) (core.Money, error) {
		return s.repo.SumAmounts(ctx, c)
	})
	if err != nil {
		s.logFailure(ctx, "Failed to sum expenses", err, log.OpSummary, ownerID, year, month)
		return core.MonthlySummary{}, err
	}
	byCategory, err := storeCall(ctx, s.opts.StoreTimeout, "sum expenses by category", func(ctx context.Context) (map[string]core.Money, error) {
		return s.repo.SumAmountsByCategory(ctx, c)
	})
	if err != nil {
		s.logFailure(ctx, "Failed to sum expenses by category", err, log.OpSummary, ownerID, year, month)
		return core.MonthlySummary{}, err
	}

	summary, err := core.BuildMonthlySummary(year, month, total, byCategory)
	if err != nil {
		s.logFailure(ctx, "Monthly totals disagree", err, log.OpSummary, ownerID, year, month)
		return core.MonthlySummary{}, err
	}
	return summary, nil
}

// PerCategoryAverages returns the mean expense per category for the month.
func (s *SummaryService) PerCategoryAverages(ctx context.Context, ownerID int64, year, month int) (map[string]core.Money, error) {
	c, err := core.MonthCriteria(ownerID, year, month)
	if err != nil {
		return nil, err
	}
	avgs, err := storeCall(ctx, s.opts.StoreTimeout, "average expenses by category", func(ctx context.Context) (map[string]core.Money, error) {
		return s.repo.AverageAmountsByCategory(ctx, c)
	})
	if err != nil {
		s.logFailure(ctx, "Failed to average expenses", err, log.OpAverages, ownerID, year, month)
		return nil, err
	}
	return avgs, nil
}

// ListYears returns the years in which ownerID recorded expenses, newest
// first.
func (s *SummaryService) ListYears(ctx context.Context, ownerID int64) ([]int, error) {
	years, err := storeCall(ctx, s.opts.StoreTimeout, "list years", func(ctx context.Context) ([]int, error) {
		return s.repo.ListExpenditureYears(ctx, ownerID)
	})
	if err != nil {
		s.logFailure(ctx, "Failed to list years", err, log.OpList, ownerID, 0, 0)
		return nil, err
	}
	return years, nil
}

// GenerateAlerts compares the month's category totals with thresholds.
func (s *SummaryService) GenerateAlerts(ctx context.Context, ownerID int64, year, month int, thresholds core.Thresholds) ([]core.Alert, error) {
	summary, err := s.MonthlySummary(ctx, ownerID, year, month)
	if err != nil {
		return nil, err
	}
	return core.GenerateAlerts(summaryTotals(summary), thresholds), nil
}

// Dashboard computes the summary, averages, year list and alerts of one
// month.
func (s *SummaryService) Dashboard(ctx context.Context, ownerID int64, year, month int, thresholds core.Thresholds) (Dashboard, error) {
	summary, err := s.MonthlySummary(ctx, ownerID, year, month)
	if err != nil {
		return Dashboard{}, err
	}
	averages, err := s.PerCategoryAverages(ctx, ownerID, year, month)
	if err != nil {
		return Dashboard{}, err
	}
	years, err := s.ListYears(ctx, ownerID)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Summary:  summary,
		Averages: averages,
		Years:    years,
		Alerts:   core.GenerateAlerts(summaryTotals(summary), thresholds),
	}, nil
}

func summaryTotals(s core.MonthlySummary) map[string]core.Money {
	totals := make(map[string]core.Money, len(s.ByCategory))
	for name, share := range s.ByCategory {
		totals[name] = share.Amount
	}
	return totals
}

func (s *SummaryService) logFailure(ctx context.Context, msg string, err error, op string, ownerID int64, year, month int) {
	fields := log.NewFields().WithOwner(ownerID)
	if year != 0 {
		fields = fields.WithPeriod(year, month)
	}
	s.opts.Logger.LogError(ctx, msg, err, op, fields)
}
