// Package transport connects the client to the chat server's event stream.
// The rest of the client treats it as a collaborator that delivers inbound
// events and accepts emitted commands; wire details stay in here.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the JSON envelope exchanged with the server in both directions.
type Event struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// NewEvent wraps a payload in an envelope with a fresh id.
func NewEvent(eventType string, payload any) (Event, error) {
	ev := Event{
		Type:      eventType,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}

// Handler consumes one inbound event.
type Handler func(ev Event)

// Transport delivers inbound events to registered handlers and accepts
// emitted commands.
type Transport interface {
	Emit(eventType string, payload any) error
	HandleFunc(eventType string, h Handler)
	Close() error
}
