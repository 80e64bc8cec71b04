package staff

import (
	"context"

	domain "nursery/internal/domain/staff"
)

// Store persists Staff state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Staff, error)
	Save(ctx context.Context, value domain.Staff) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, includeInactive bool) ([]domain.Staff, error)
}
