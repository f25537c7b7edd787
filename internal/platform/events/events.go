// Package events delivers domain events to downstream consumers: the
// websocket hub for live boards and Kafka for other services.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Message is the transport-neutral form of a domain event.
type Message struct {
	Type       string          `json:"type"`
	Topic      string          `json:"topic"`
	Key        string          `json:"key,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Fanout delivers each message to every publisher, even when some fail, and
// joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
