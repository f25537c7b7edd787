package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("inventory item not found")
	ErrInsufficientStock = errors.New("adjustment would take stock below zero")
)

type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Item, int, error)
	// AdjustStock adds delta to the current stock atomically. It returns
	// ErrInsufficientStock, leaving the item unchanged, if the result would
	// be negative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Item, error)
	CountByStatus(ctx context.Context) (map[StockStatus]int, error)
	Categories(ctx context.Context) ([]string, error)
}
