package account

import (
	"context"

	domain "nursery/internal/domain/account"
)

// Store persists User state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	Save(ctx context.Context, value domain.User) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, includeInactive bool) ([]domain.User, error)
}
