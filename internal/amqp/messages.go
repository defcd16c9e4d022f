package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"envelopes/internal/core"
)

// Kinds of ledger entity named by a LedgerEventMessage.
const (
	EventAccount     = "account"
	EventPayee       = "payee"
	EventEnvelope    = "envelope"
	EventBudget      = "budget"
	EventTransaction = "transaction"
)

// LedgerEventMessage announces that a ledger row changed. It carries only
// identities; consumers read the ledger to see the new state.
type LedgerEventMessage struct {
	Kind       string    `json:"kind"`
	ID         uuid.UUID `json:"id"`
	ScheduleID uuid.UUID `json:"scheduleId"`
	// Month is the first day of the earliest month whose figures may have changed.
	Month     time.Time `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage builds an event for a change effective at date.
func NewLedgerEventMessage(kind string, id uuid.UUID, date time.Time) *LedgerEventMessage {
	schedule := core.NewSchedule(date.UTC())
	return &LedgerEventMessage{
		Kind:       kind,
		ID:         id,
		ScheduleID: schedule.ID,
		Month:      schedule.BeginDate,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and checks a message.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.Month.IsZero() {
		return nil, fmt.Errorf("incomplete ledger event: kind=%q month=%v", msg.Kind, msg.Month)
	}
	return &msg, nil
}
