package events

import (
	"context"

	"github.com/ehr/carequeue/internal/platform/websocket"
)

type broadcaster interface {
	Publish(ctx context.Context, event websocket.Event) error
}

// HubPublisher forwards messages to websocket subscribers of msg.Topic.
type HubPublisher struct {
	hub broadcaster
}

func NewHubPublisher(hub broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, msg Message) error {
	return p.hub.Publish(ctx, websocket.Event{
		Type:      msg.Type,
		Topic:     msg.Topic,
		Key:       msg.Key,
		Timestamp: msg.OccurredAt,
		Data:      msg.Payload,
	})
}
