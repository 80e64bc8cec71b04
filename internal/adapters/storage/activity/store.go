package activity

import (
	"context"

	domain "nursery/internal/domain/activity"
)

// Store persists activity log entries. Append-only: entries are never
// updated or deleted.
type Store interface {
	Append(ctx context.Context, e domain.Entry) error
	List(ctx context.Context, filter ListFilter) ([]domain.Entry, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	UserID string
	Action string
	Limit  int
	Offset int
}
