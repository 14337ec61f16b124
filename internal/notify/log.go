package notify

import (
	"context"

	"spendwise/internal/log"
)

// LogNotifier writes every alert to the log. It is the fallback when no
// transport is configured.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *LogNotifier) Notify(ctx context.Context, batch AlertBatch) error {
	for _, a := range batch.Alerts {
		n.logger.WarnContext(ctx, a.Message(), log.NewFields().
			WithOwner(batch.OwnerID).
			WithPeriod(batch.Year, batch.Month).
			With(log.FieldBatchID, batch.ID.String()).
			With(log.FieldCategory, a.Category).
			With(log.FieldAmountCents, a.ExceededBy.Cents).
			ToSlice()...)
	}
	return nil
}
