package bed

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("bed not found")
	ErrDuplicate = errors.New("bed number already exists in department")
)

type Repository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	Update(ctx context.Context, b *Bed) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Bed, int, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}
