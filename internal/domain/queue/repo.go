package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotStore hydrates and persists the whole visit set.
type SnapshotStore interface {
	Load(ctx context.Context) ([]Visit, error)
	Save(ctx context.Context, visits []Visit) error
}

// Event types emitted by Service.
const (
	EventVisitAdded      = "visit.added"
	EventPriorityChanged = "visit.priority_changed"
	EventStatusChanged   = "visit.status_changed"
	EventWaitRecomputed  = "queue.wait_recomputed"
)

// Event describes a completed queue mutation.
type Event struct {
	Type       string    `json:"type"`
	VisitID    uuid.UUID `json:"visit_id,omitempty"`
	Visit      *Visit    `json:"visit,omitempty"`
	Updated    int       `json:"updated,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher receives queue events after the mutation is visible.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}
