// Package worker runs the background alert scan and the alert forwarder.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/notify"
	"spendwise/internal/storage"
)

const DefaultConcurrency = 4

// AlertGenerator produces the budget alerts of one owner and month.
type AlertGenerator interface {
	GenerateAlerts(ctx context.Context, ownerID int64, year, month int) ([]core.Alert, error)
}

// ScanResult summarizes one pass over every owner.
type ScanResult struct {
	Year     int
	Month    int
	Owners   int
	Notified int
	Alerts   int
	Failed   int
}

// AlertWorker generates the current month's alerts for every owner with
// expenses and hands non-empty batches to a notifier.
type AlertWorker struct {
	owners      storage.OwnerLister
	alerts      AlertGenerator
	notifier    notify.Notifier
	concurrency int
	now         func() time.Time
	logger      *log.Logger
}

func NewAlertWorker(owners storage.OwnerLister, alerts AlertGenerator, notifier notify.Notifier, concurrency int, logger *log.Logger) *AlertWorker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &AlertWorker{
		owners:      owners,
		alerts:      alerts,
		notifier:    notifier,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// RunOnce scans the month containing the current time. A failing owner does
// not stop the others; their errors are joined into the returned error.
func (w *AlertWorker) RunOnce(ctx context.Context) (ScanResult, error) {
	today := core.DateOf(w.now().UTC())
	return w.Scan(ctx, today.Year(), today.Month())
}

// Scan generates and dispatches the alerts of year and month.
func (w *AlertWorker) Scan(ctx context.Context, year, month int) (ScanResult, error) {
	start := time.Now()
	result := ScanResult{Year: year, Month: month}

	owners, err := w.owners.ListOwners(ctx)
	if err != nil {
		w.logger.LogError(ctx, "Failed to list owners", err, log.OpAlerts, log.NewFields().WithPeriod(year, month))
		return result, fmt.Errorf("list owners: %w", err)
	}
	result.Owners = len(owners)

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)

	for _, ownerID := range owners {
		ownerID := ownerID
		g.Go(func() error {
			sent, err := w.processOwner(ctx, ownerID, year, month)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				errs = append(errs, fmt.Errorf("owner %d: %w", ownerID, err))
				return nil
			}
			if sent > 0 {
				result.Notified++
				result.Alerts += sent
			}
			return nil
		})
	}
	_ = g.Wait()

	w.logger.InfoContext(ctx, "Alert scan finished", log.NewFields().
		WithPeriod(year, month).
		With(log.FieldAlertCount, result.Alerts).
		With("owners", result.Owners).
		With("notified", result.Notified).
		With("failed", result.Failed).
		With(log.FieldDuration, time.Since(start).Milliseconds()).
		ToSlice()...)

	return result, errors.Join(errs...)
}

func (w *AlertWorker) processOwner(ctx context.Context, ownerID int64, year, month int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fields := log.NewFields().WithOwner(ownerID).WithPeriod(year, month)

	alerts, err := w.alerts.GenerateAlerts(ctx, ownerID, year, month)
	if err != nil {
		w.logger.LogError(ctx, "Failed to generate alerts", err, log.OpAlerts, fields)
		return 0, err
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	batch := notify.NewAlertBatch(ownerID, year, month, alerts)
	if err := w.notifier.Notify(ctx, batch); err != nil {
		w.logger.LogError(ctx, "Failed to dispatch alerts", err, log.OpNotify, fields.With(log.FieldBatchID, batch.ID.String()))
		return 0, err
	}
	return len(alerts), nil
}

// Forwarder delivers alert messages received from the broker.
type Forwarder struct {
	notifier notify.Notifier
	logger   *log.Logger
}

func NewForwarder(notifier notify.Notifier, logger *log.Logger) *Forwarder {
	return &Forwarder{notifier: notifier, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleAlertMessage is the amqp consumer callback.
func (f *Forwarder) HandleAlertMessage(ctx context.Context, msg *amqp.AlertMessage) error {
	batch := notify.FromMessage(msg)
	if err := f.notifier.Notify(ctx, batch); err != nil {
		return fmt.Errorf("forward alert batch %s: %w", batch.ID, err)
	}
	f.logger.InfoContext(ctx, "Alert batch forwarded", log.NewFields().
		WithOwner(batch.OwnerID).
		WithPeriod(batch.Year, batch.Month).
		With(log.FieldBatchID, batch.ID.String()).
		With(log.FieldAlertCount, len(batch.Alerts)).
		ToSlice()...)
	return nil
}
