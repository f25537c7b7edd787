package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/carequeue/pkg/capacity"
)

const defaultUnit = "units"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validate(item *Item) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	item.Unit = strings.TrimSpace(item.Unit)
	if item.Name == "" {
		return fmt.Errorf("name is required")
	}
	if item.Category == "" {
		return fmt.Errorf("category is required")
	}
	if item.CurrentStock < 0 {
		return fmt.Errorf("current_stock must not be negative")
	}
	if item.MinimumStock < 0 {
		return fmt.Errorf("minimum_stock must not be negative")
	}
	if item.Unit == "" {
		item.Unit = defaultUnit
	}
	if item.Supplier != nil && strings.TrimSpace(*item.Supplier) == "" {
		item.Supplier = nil
	}
	return nil
}

func (s *Service) CreateItem(ctx context.Context, item *Item) error {
	if err := validate(item); err != nil {
		return err
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateItem replaces every editable field of the item.
func (s *Service) UpdateItem(ctx context.Context, item *Item) error {
	if err := validate(item); err != nil {
		return err
	}
	return s.repo.Update(ctx, item)
}

func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, f Filter, limit, offset int) ([]*Item, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// AdjustStock records a delivery (positive delta) or consumption (negative).
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Item, error) {
	if delta == 0 {
		return nil, fmt.Errorf("delta must not be zero")
	}
	return s.repo.AdjustStock(ctx, id, delta)
}

// Summary counts items per stock status. The shortage ratio is low plus
// out-of-stock items over all items.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		InStock:    counts[InStock],
		LowStock:   counts[LowStock],
		OutOfStock: counts[OutOfStock],
		Categories: categories,
	}
	sum.Total = sum.InStock + sum.LowStock + sum.OutOfStock
	sum.Shortage = capacity.Evaluate(capacity.Usage{Used: sum.LowStock + sum.OutOfStock, Total: sum.Total})
	return sum, nil
}
