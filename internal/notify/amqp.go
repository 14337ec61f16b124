package notify

import (
	"context"
	"fmt"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
)

// Publisher is the part of amqp.Client used for alert hand-off.
type Publisher interface {
	PublishAlertBatch(ctx context.Context, msg *amqp.AlertMessage) error
}

// AMQPNotifier hands alert batches to the notify worker through the broker.
type AMQPNotifier struct {
	publisher Publisher
}

func NewAMQPNotifier(p Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: p}
}

func (n *AMQPNotifier) Notify(ctx context.Context, batch AlertBatch) error {
	if err := n.publisher.PublishAlertBatch(ctx, ToMessage(batch)); err != nil {
		return fmt.Errorf("publish alert batch %s: %w", batch.ID, err)
	}
	return nil
}

// ToMessage converts a batch to its wire form. The batch id is kept.
func ToMessage(batch AlertBatch) *amqp.AlertMessage {
	entries := make([]amqp.AlertEntry, 0, len(batch.Alerts))
	for _, a := range batch.Alerts {
		entries = append(entries, amqp.AlertEntry{
			Category:        a.Category,
			ActualCents:     a.Actual.Cents,
			BudgetCents:     a.Budget.Cents,
			ExceededByCents: a.ExceededBy.Cents,
			Message:         a.Message(),
		})
	}
	msg := amqp.NewAlertMessage(batch.OwnerID, batch.Year, batch.Month, entries)
	msg.ID = batch.ID
	return msg
}

// FromMessage converts a received message back into a batch.
func FromMessage(msg *amqp.AlertMessage) AlertBatch {
	alerts := make([]core.Alert, 0, len(msg.Alerts))
	for _, e := range msg.Alerts {
		alerts = append(alerts, core.Alert{
			Category:   e.Category,
			Actual:     core.Cents(e.ActualCents),
			Budget:     core.Cents(e.BudgetCents),
			ExceededBy: core.Cents(e.ExceededByCents),
		})
	}
	return AlertBatch{
		ID:      msg.ID,
		OwnerID: msg.OwnerID,
		Year:    msg.Year,
		Month:   msg.Month,
		Alerts:  alerts,
	}
}
