package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidance/internal/core"
)

// EventRecordCreated is published once per record saved from a chat reply.
const EventRecordCreated = "record.created"

var ErrUnknownEvent = errors.New("unknown event type")

// RecordEvent carries the full record so consumers need no access to the
// store.
type RecordEvent struct {
	Type      string      `json:"type"`
	Record    core.Record `json:"record"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewRecordCreated(r core.Record) *RecordEvent {
	return &RecordEvent{Type: EventRecordCreated, Record: r, Timestamp: time.Now().UTC()}
}

// ToJSON converts the message to JSON bytes
func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON decodes and checks an event body.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != EventRecordCreated {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
	if err := msg.Record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return &msg, nil
}
