// Package notify delivers budget alerts to people or to other processes.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"spendwise/internal/core"
)

// AlertBatch groups the alerts of one owner for one month. ID identifies
// the batch across processes.
type AlertBatch struct {
	ID      uuid.UUID
	OwnerID int64
	Year    int
	Month   int
	Alerts  []core.Alert
}

// NewAlertBatch creates a batch with a fresh id.
func NewAlertBatch(ownerID int64, year, month int, alerts []core.Alert) AlertBatch {
	return AlertBatch{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Year:    year,
		Month:   month,
		Alerts:  alerts,
	}
}

// Text renders the batch for a human reader, one alert per line.
func (b AlertBatch) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Budget alerts for %04d-%02d (owner %d)\n", b.Year, b.Month, b.OwnerID)
	for _, a := range b.Alerts {
		fmt.Fprintf(&sb, "- %s (spent %s€ of %s€)\n", a.Message(), a.Actual, a.Budget)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Notifier delivers an alert batch.
type Notifier interface {
	Notify(ctx context.Context, batch AlertBatch) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, batch AlertBatch) error

func (f NotifierFunc) Notify(ctx context.Context, batch AlertBatch) error {
	return f(ctx, batch)
}
