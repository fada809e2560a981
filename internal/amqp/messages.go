package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by invoice lifecycle events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// InvoiceEvent notifies consumers that an invoice changed. It carries only
// the number and the action; the worker fetches the current aggregate from
// storage, so a stale event after a later edit is harmless.
type InvoiceEvent struct {
	Number    int64     `json:"invoice_number"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceEvent(number int64, action string) *InvoiceEvent {
	return &InvoiceEvent{
		Number:    number,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (e *InvoiceEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func InvoiceEventFromJSON(data []byte) (*InvoiceEvent, error) {
	var ev InvoiceEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
