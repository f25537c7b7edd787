package inventory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Item
	now   func() time.Time
}

func NewMemoryRepo() Repository {
	return &memoryRepo{items: make(map[uuid.UUID]*Item), now: time.Now}
}

func (r *memoryRepo) Create(_ context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = uuid.New()
	item.CreatedAt = r.now()
	item.UpdatedAt = item.CreatedAt
	item.refreshStatus()
	c := *item
	r.items[item.ID] = &c
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *item
	return &c, nil
}

func (r *memoryRepo) Update(_ context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[item.ID]
	if !ok {
		return ErrNotFound
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = r.now()
	item.refreshStatus()
	c := *item
	r.items[item.ID] = &c
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Item, int, error) {
	r.mu.RLock()
	var matched []*Item
	for _, item := range r.items {
		if matches(item, f) {
			c := *item
			matched = append(matched, &c)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, compareBy(f.Sort, f.Desc))
	total := len(matched)
	if offset >= total {
		return []*Item{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func matches(item *Item, f Filter) bool {
	if f.Category != "" && !strings.EqualFold(item.Category, f.Category) {
		return false
	}
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(item.Name), q) ||
			strings.Contains(strings.ToLower(item.Category), q)
	}
	return true
}

// compareBy orders by the requested field, breaking ties by name and then
// id so paging is deterministic.
func compareBy(field SortField, desc bool) func(a, b *Item) int {
	return func(a, b *Item) int {
		var c int
		switch field {
		case SortCategory:
			c = cmp.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
		case SortStock:
			c = cmp.Compare(a.CurrentStock, b.CurrentStock)
		case SortMinimum:
			c = cmp.Compare(a.MinimumStock, b.MinimumStock)
		}
		if c == 0 {
			c = cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		if desc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID.String(), b.ID.String())
		}
		return c
	}
}

func (r *memoryRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if item.CurrentStock+delta < 0 {
		return nil, ErrInsufficientStock
	}
	item.CurrentStock += delta
	item.UpdatedAt = r.now()
	item.refreshStatus()
	c := *item
	return &c, nil
}

func (r *memoryRepo) CountByStatus(_ context.Context) (map[StockStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[StockStatus]int)
	for _, item := range r.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (r *memoryRepo) Categories(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	out := []string{}
	for _, item := range r.items {
		if !seen[item.Category] {
			seen[item.Category] = true
			out = append(out, item.Category)
		}
	}
	slices.Sort(out)
	return out, nil
}
