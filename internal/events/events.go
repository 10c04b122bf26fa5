// Package events queues domain events in Redis and forwards them to RabbitMQ
// from a background worker. Publishing is best-effort: failures are logged and
// never surface to the request that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingAttended  = "booking.attended"
	BookingNoShow    = "booking.no_show"
	SlotCancelled    = "slot.cancelled"
	CheckInRecorded  = "checkin.recorded"
)

type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Tries   int             `json:"tries"`
	Created time.Time       `json:"created"`
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Payload: data,
		Created: time.Now().UTC(),
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

// Nop drops every event. Used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) {}
