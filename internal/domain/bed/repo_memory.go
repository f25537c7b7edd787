package bed

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu   sync.RWMutex
	beds map[uuid.UUID]*Bed
	now  func() time.Time
}

// NewMemoryRepo returns a process-local Repository.
func NewMemoryRepo() Repository {
	return &memoryRepo{beds: make(map[uuid.UUID]*Bed), now: time.Now}
}

func (r *memoryRepo) Create(_ context.Context, b *Bed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.beds {
		if strings.EqualFold(existing.Department, b.Department) && existing.Number == b.Number {
			return ErrDuplicate
		}
	}
	b.ID = uuid.New()
	b.CreatedAt = r.now()
	b.UpdatedAt = b.CreatedAt
	c := *b
	r.beds[b.ID] = &c
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Bed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.beds[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *b
	return &c, nil
}

func (r *memoryRepo) Update(_ context.Context, b *Bed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.beds[b.ID]
	if !ok {
		return ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = r.now()
	c := *b
	r.beds[b.ID] = &c
	return nil
}

func (r *memoryRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Bed, int, error) {
	r.mu.RLock()
	var matched []*Bed
	for _, b := range r.beds {
		if matches(b, f) {
			c := *b
			matched = append(matched, &c)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *Bed) int {
		if c := strings.Compare(a.Department, b.Department); c != 0 {
			return c
		}
		return a.Number - b.Number
	})
	total := len(matched)
	if offset >= total {
		return []*Bed{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func matches(b *Bed, f Filter) bool {
	if f.Department != "" && !strings.EqualFold(b.Department, f.Department) {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	if strconv.Itoa(b.Number) == q {
		return true
	}
	for _, field := range []*string{b.PatientName, b.PatientID} {
		if field != nil && strings.Contains(strings.ToLower(*field), q) {
			return true
		}
	}
	return false
}

func (r *memoryRepo) CountByStatus(_ context.Context) ([]StatusCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	type key struct {
		dept   string
		status Status
	}
	counts := make(map[key]int)
	for _, b := range r.beds {
		counts[key{b.Department, b.Status}]++
	}
	out := make([]StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, StatusCount{Department: k.dept, Status: k.status, Count: n})
	}
	return out, nil
}
