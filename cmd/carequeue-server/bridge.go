package main

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ehr/carequeue/internal/domain/queue"
	"github.com/ehr/carequeue/internal/platform/events"
)

// queueTopic is the websocket topic queue boards subscribe to.
const queueTopic = "queue"

// queueEventBridge adapts queue events to the transport-neutral
// events.Message so the queue package does not depend on the platform
// publishers.
type queueEventBridge struct {
	pub events.Publisher
}

func (b queueEventBridge) Publish(ctx context.Context, evt queue.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := events.Message{
		Type:       evt.Type,
		Topic:      queueTopic,
		OccurredAt: evt.OccurredAt,
		Payload:    payload,
	}
	if evt.VisitID != uuid.Nil {
		msg.Key = evt.VisitID.String()
	}
	return b.pub.Publish(ctx, msg)
}
