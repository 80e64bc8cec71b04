package event

import (
	"context"

	domain "nursery/internal/domain/event"
)

// Store persists Event state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	Save(ctx context.Context, value domain.Event) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Event, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Status          string
	From            string
	To              string
	IncludeInactive bool
	Limit           int
	Offset          int
}
