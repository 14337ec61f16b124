package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertEntry is one exceeded budget inside an AlertMessage. Amounts are in
// cents.
type AlertEntry struct {
	Category        string `json:"category"`
	ActualCents     int64  `json:"actual_cents"`
	BudgetCents     int64  `json:"budget_cents"`
	ExceededByCents int64  `json:"exceeded_by_cents"`
	Message         string `json:"message"`
}

// AlertMessage carries the budget alerts of one owner for one month.
type AlertMessage struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   int64        `json:"owner_id"`
	Year      int          `json:"year"`
	Month     int          `json:"month"`
	Alerts    []AlertEntry `json:"alerts"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewAlertMessage creates a message with a fresh id.
func NewAlertMessage(ownerID int64, year, month int, alerts []AlertEntry) *AlertMessage {
	return &AlertMessage{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Year:      year,
		Month:     month,
		Alerts:    alerts,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON decodes a message and rejects one that cannot be
// routed to an owner and month.
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID <= 0 {
		return nil, fmt.Errorf("alert message without owner")
	}
	if msg.Month < 1 || msg.Month > 12 {
		return nil, fmt.Errorf("alert message with invalid month %d", msg.Month)
	}
	return &msg, nil
}
