package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/carequeue/pkg/pagination"
)

// DefaultWaitInterval is how often RunWaitClock refreshes wait times.
const DefaultWaitInterval = time.Minute

// Service is the single owner of an Engine inside the server. It serialises
// engine access, persists the visit set after each mutation and publishes
// queue events. Store and publisher failures are logged and do not fail the
// mutation: the engine stays authoritative.
type Service struct {
	mu         sync.RWMutex
	engine     *Engine
	store      SnapshotStore
	pub        EventPublisher
	capacities map[string]int
	logger     zerolog.Logger
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithStore(store SnapshotStore) ServiceOption {
	return func(s *Service) { s.store = store }
}

func WithPublisher(pub EventPublisher) ServiceOption {
	return func(s *Service) { s.pub = pub }
}

// WithDepartmentCapacity sets the per-department patient capacity used by
// DepartmentLoad.
func WithDepartmentCapacity(capacities map[string]int) ServiceOption {
	return func(s *Service) { s.capacities = capacities }
}

// WithServiceClock sets the clock used for RecomputeWaitTimes ticks and
// event timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(engine *Engine, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		engine: engine,
		logger: logger.With().Str("component", "queue").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted snapshot into the engine. It is a no-op
// without a store.
func (s *Service) Hydrate(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	visits, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.engine.LoadSnapshot(visits); err != nil {
		return fmt.Errorf("hydrate engine: %w", err)
	}
	s.engine.RecomputeWaitTimes(s.now())
	s.logger.Info().Int("visits", len(visits)).Msg("queue hydrated")
	return nil
}

func (s *Service) AddVisit(ctx context.Context, in NewVisit) (Visit, error) {
	s.mu.Lock()
	v, err := s.engine.AddVisit(in)
	if err == nil {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()
	if err != nil {
		return Visit{}, err
	}

	s.logger.Info().Str("visit_id", v.ID.String()).Int("priority", v.Priority).
		Str("department", v.Department).Msg("visit added")
	s.publish(ctx, Event{Type: EventVisitAdded, VisitID: v.ID, Visit: &v})
	return v, nil
}

func (s *Service) GetVisit(_ context.Context, id uuid.UUID) (Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Get(id)
}

func (s *Service) BumpPriority(ctx context.Context, id uuid.UUID, dir Direction) (Visit, error) {
	s.mu.Lock()
	before, _ := s.engine.Get(id)
	v, err := s.engine.BumpPriority(id, dir)
	changed := err == nil && v.Priority != before.Priority
	if changed {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()
	if err != nil {
		return Visit{}, err
	}

	if changed {
		s.logger.Info().Str("visit_id", id.String()).Int("from", before.Priority).
			Int("to", v.Priority).Msg("visit priority changed")
		s.publish(ctx, Event{Type: EventPriorityChanged, VisitID: id, Visit: &v})
	}
	return v, nil
}

func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, to Status) (Visit, error) {
	s.mu.Lock()
	before, _ := s.engine.Get(id)
	v, err := s.engine.TransitionStatus(id, to)
	if err == nil {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()
	if err != nil {
		return Visit{}, err
	}

	s.logger.Info().Str("visit_id", id.String()).Str("from", string(before.Status)).
		Str("to", string(v.Status)).Msg("visit status changed")
	s.publish(ctx, Event{Type: EventStatusChanged, VisitID: id, Visit: &v})
	return v, nil
}

// RecomputeWaitTimes refreshes the waiting cohort against now.
func (s *Service) RecomputeWaitTimes(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	n := s.engine.RecomputeWaitTimes(now)
	if n > 0 {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if n > 0 {
		s.publish(ctx, Event{Type: EventWaitRecomputed, Updated: n})
	}
	return n
}

// RunWaitClock calls RecomputeWaitTimes every interval until ctx is done.
func (s *Service) RunWaitClock(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultWaitInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("wait clock started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("wait clock stopped")
			return
		case <-ticker.C:
			n := s.RecomputeWaitTimes(ctx, s.now())
			s.logger.Debug().Int("updated", n).Msg("wait times recomputed")
		}
	}
}

// List returns one page of the ordered queue and the unpaged total.
func (s *Service) List(_ context.Context, status Status, limit, offset int) ([]Visit, int) {
	s.mu.RLock()
	all := s.engine.Ordered(status)
	s.mu.RUnlock()

	return pagination.Page(all, pagination.Params{Limit: limit, Offset: offset}), len(all)
}

func (s *Service) Summary(_ context.Context) StatusCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.CountByStatus()
}

func (s *Service) DepartmentLoad(_ context.Context) []DepartmentLoad {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.DepartmentLoad(s.capacities)
}

// Export returns the full visit set in insertion order.
func (s *Service) Export(_ context.Context) []Visit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.ExportSnapshot()
}

// Import replaces the visit set and persists it. Unlike live mutations the
// save is part of the operation: if it fails the previous visit set is
// restored and the error returned.
func (s *Service) Import(ctx context.Context, visits []Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.engine.ExportSnapshot()
	if err := s.engine.LoadSnapshot(visits); err != nil {
		return err
	}
	s.engine.RecomputeWaitTimes(s.now())
	if err := s.saveLocked(ctx); err != nil {
		if rerr := s.engine.LoadSnapshot(prev); rerr != nil {
			s.logger.Error().Err(rerr).Msg("failed to restore queue after import")
		}
		return fmt.Errorf("save imported snapshot: %w", err)
	}
	s.logger.Info().Int("visits", len(visits)).Msg("queue imported")
	return nil
}

// saveLocked must be called with s.mu held for writing so that saves are
// applied in mutation order.
func (s *Service) saveLocked(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(ctx, s.engine.ExportSnapshot())
}

// persistLocked is the best-effort save used after live mutations; the
// engine stays authoritative when the store is down.
func (s *Service) persistLocked(ctx context.Context) {
	if err := s.saveLocked(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist queue snapshot")
	}
}

func (s *Service) publish(ctx context.Context, evt Event) {
	if s.pub == nil {
		return
	}
	evt.OccurredAt = s.now()
	if err := s.pub.Publish(ctx, evt); err != nil {
		s.logger.Error().Err(err).Str("event", evt.Type).Msg("failed to publish queue event")
	}
}
