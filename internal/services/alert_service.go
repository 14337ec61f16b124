package services

import (
	"context"
	"maps"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

// AlertService evaluates an owner's month against the configured budgets.
type AlertService struct {
	summaries  *SummaryService
	thresholds core.Thresholds
	logger     *log.Logger
}

func NewAlertService(summaries *SummaryService, thresholds core.Thresholds, opts Options) *AlertService {
	opts = opts.withDefaults(log.ComponentAlerts)
	return &AlertService{
		summaries:  summaries,
		thresholds: maps.Clone(thresholds),
		logger:     opts.Logger,
	}
}

// Thresholds returns a copy of the configured budgets.
func (s *AlertService) Thresholds() core.Thresholds {
	return maps.Clone(s.thresholds)
}

// GenerateAlerts returns the categories of ownerID that went over budget in
// the given month, largest overage first.
func (s *AlertService) GenerateAlerts(ctx context.Context, ownerID int64, year, month int) ([]core.Alert, error) {
	alerts, err := s.summaries.GenerateAlerts(ctx, ownerID, year, month, s.thresholds)
	if err != nil {
		return nil, err
	}
	if len(alerts) > 0 {
		s.logger.DebugContext(ctx, "Budget exceeded",
			log.NewFields().WithOwner(ownerID).WithPeriod(year, month).With(log.FieldAlertCount, len(alerts)).ToSlice()...)
	}
	return alerts, nil
}
