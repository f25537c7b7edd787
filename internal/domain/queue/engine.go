package queue

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine owns the in-memory visit set. It is synchronous and not safe for
// concurrent use; Service serialises access in the server.
type Engine struct {
	visits []*Visit // insertion order
	index  map[uuid.UUID]*Visit
	now    func() time.Time
	newID  func() uuid.UUID
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now as the source of arrival and update times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces uuid.New as the visit id source.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		index: make(map[uuid.UUID]*Visit),
		now:   time.Now,
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Len returns the number of visits, terminal ones included.
func (e *Engine) Len() int {
	return len(e.visits)
}

// AddVisit validates in and appends a new Waiting visit.
func (e *Engine) AddVisit(in NewVisit) (Visit, error) {
	name := strings.TrimSpace(in.SubjectName)
	if name == "" {
		return Visit{}, invalid("subject_name", "is required")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Visit{}, invalid("reason", "is required")
	}
	if in.SubjectAge == nil {
		return Visit{}, invalid("subject_age", "is required")
	}
	if *in.SubjectAge < 0 {
		return Visit{}, invalid("subject_age", "must not be negative")
	}
	priority := DefaultPriority
	if in.Priority != nil {
		priority = *in.Priority
		if priority < MinPriority || priority > MaxPriority {
			return Visit{}, invalid("priority", fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority))
		}
	}
	dept := strings.TrimSpace(in.Department)
	if dept == "" {
		dept = DefaultDepartment
	}

	id := e.newID()
	if _, dup := e.index[id]; dup || id == uuid.Nil {
		return Visit{}, fmt.Errorf("queue: id generator returned unusable id %s", id)
	}

	now := e.now()
	v := &Visit{
		ID:          id,
		SubjectName: name,
		SubjectAge:  *in.SubjectAge,
		Reason:      reason,
		Department:  dept,
		ArrivedAt:   now,
		Priority:    priority,
		Status:      StatusWaiting,
		UpdatedAt:   now,
	}
	e.visits = append(e.visits, v)
	e.index[id] = v
	return *v, nil
}

// Get returns a copy of the visit with the given id.
func (e *Engine) Get(id uuid.UUID) (Visit, error) {
	v, ok := e.index[id]
	if !ok {
		return Visit{}, &NotFoundError{ID: id}
	}
	return *v, nil
}

// BumpPriority moves a visit's priority one step, clamped to
// [MinPriority, MaxPriority]. Bumping past a bound is a no-op, not an error.
func (e *Engine) BumpPriority(id uuid.UUID, dir Direction) (Visit, error) {
	v, ok := e.index[id]
	if !ok {
		return Visit{}, &NotFoundError{ID: id}
	}
	if v.Status.Terminal() {
		return Visit{}, &InvalidStateError{ID: id, Status: v.Status}
	}

	next := v.Priority
	switch dir {
	case Up:
		next++
	case Down:
		next--
	default:
		return Visit{}, invalid("direction", `must be "up" or "down"`)
	}
	next = min(max(next, MinPriority), MaxPriority)
	if next != v.Priority {
		v.Priority = next
		v.UpdatedAt = e.now()
	}
	return *v, nil
}

// TransitionStatus moves a visit to status to if the transition table
// allows it. Priority and arrival are untouched.
func (e *Engine) TransitionStatus(id uuid.UUID, to Status) (Visit, error) {
	if !to.Valid() {
		return Visit{}, invalid("status", fmt.Sprintf("unknown status %q", to))
	}
	v, ok := e.index[id]
	if !ok {
		return Visit{}, &NotFoundError{ID: id}
	}
	if !CanTransition(v.Status, to) {
		return Visit{}, &IllegalTransitionError{ID: id, From: v.Status, To: to}
	}
	v.Status = to
	v.UpdatedAt = e.now()
	return *v, nil
}

// RecomputeWaitTimes refreshes WaitMinutes for every Waiting visit as whole
// minutes elapsed between arrival and now. A now earlier than arrival yields
// zero. Visits in any other status keep their last value. It returns the
// number of visits whose wait actually changed.
func (e *Engine) RecomputeWaitTimes(now time.Time) int {
	n := 0
	for _, v := range e.visits {
		if v.Status != StatusWaiting {
			continue
		}
		if w := waitMinutes(v.ArrivedAt, now); w != v.WaitMinutes {
			v.WaitMinutes = w
			n++
		}
	}
	return n
}

// Refresh recomputes wait times against the engine clock.
func (e *Engine) Refresh() int {
	return e.RecomputeWaitTimes(e.now())
}

func waitMinutes(arrived, now time.Time) int {
	d := now.Sub(arrived)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// ListOrdered returns a lazy sequence of visit copies matching status
// (StatusAny for all) in display order. Each iteration takes a fresh
// snapshot, so the sequence can be ranged over repeatedly and always
// reflects the latest completed mutation.
func (e *Engine) ListOrdered(status Status) iter.Seq[Visit] {
	return func(yield func(Visit) bool) {
		for _, v := range e.snapshot(status) {
			if !yield(v) {
				return
			}
		}
	}
}

// Ordered is ListOrdered collected into a slice.
func (e *Engine) Ordered(status Status) []Visit {
	return e.snapshot(status)
}

func (e *Engine) snapshot(status Status) []Visit {
	out := make([]Visit, 0, len(e.visits))
	for _, v := range e.visits {
		if status != StatusAny && v.Status != status {
			continue
		}
		out = append(out, *v)
	}
	Sort(out)
	return out
}

// CountByStatus tallies the full visit set.
func (e *Engine) CountByStatus() StatusCounts {
	var c StatusCounts
	for _, v := range e.visits {
		switch v.Status {
		case StatusWaiting:
			c.Waiting++
		case StatusInProgress:
			c.InProgress++
		case StatusCompleted:
			c.Completed++
		case StatusCancelled:
			c.Cancelled++
		}
		c.Total++
	}
	return c
}

// ExportSnapshot returns copies of every visit in insertion order.
func (e *Engine) ExportSnapshot() []Visit {
	out := make([]Visit, len(e.visits))
	for i, v := range e.visits {
		out[i] = *v
	}
	return out
}

// LoadSnapshot replaces the engine contents with visits, preserving their
// order. The engine is left unchanged if any visit is invalid.
func (e *Engine) LoadSnapshot(visits []Visit) error {
	loaded := make([]*Visit, 0, len(visits))
	index := make(map[uuid.UUID]*Visit, len(visits))
	for i := range visits {
		v := visits[i]
		if err := checkSnapshotVisit(v); err != nil {
			return fmt.Errorf("snapshot entry %d: %w", i, err)
		}
		if _, dup := index[v.ID]; dup {
			return fmt.Errorf("snapshot entry %d: %w", i, invalid("id", "is duplicated"))
		}
		if v.Department == "" {
			v.Department = DefaultDepartment
		}
		v.WaitMinutes = max(v.WaitMinutes, 0)
		loaded = append(loaded, &v)
		index[v.ID] = &v
	}
	e.visits = loaded
	e.index = index
	return nil
}

func checkSnapshotVisit(v Visit) error {
	switch {
	case v.ID == uuid.Nil:
		return invalid("id", "is required")
	case strings.TrimSpace(v.SubjectName) == "":
		return invalid("subject_name", "is required")
	case strings.TrimSpace(v.Reason) == "":
		return invalid("reason", "is required")
	case v.SubjectAge < 0:
		return invalid("subject_age", "must not be negative")
	case v.ArrivedAt.IsZero():
		return invalid("arrival_timestamp", "is required")
	case v.Priority < MinPriority || v.Priority > MaxPriority:
		return invalid("priority", fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority))
	case !v.Status.Valid():
		return invalid("status", fmt.Sprintf("unknown status %q", v.Status))
	}
	return nil
}
