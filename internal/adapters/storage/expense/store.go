package expense

import (
	"context"

	domain "nursery/internal/domain/expense"
)

// Store persists Expense state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Expense, error)
	Save(ctx context.Context, value domain.Expense) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Expense, error)
	// TotalByCategory sums active expenses per category in the inclusive
	// date range. Empty bounds leave that side open.
	TotalByCategory(ctx context.Context, from, to string) (map[string]float64, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Category        string
	From            string
	To              string
	IncludeInactive bool
	Limit           int
	Offset          int
}
