package expense

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrNotFound = errors.New("expense not found")
)

// Expense is one outgoing cost entry.
type Expense struct {
	ID          string
	Category    string
	Description string
	Amount      float64
	Date        string // YYYY-MM-DD
	Active      bool
	CreatedAt   time.Time
}

// Validate checks if the Expense has valid data.
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return errors.New("expense category cannot be empty")
	}
	if e.Amount <= 0 {
		return errors.New("expense amount must be greater than zero")
	}
	if e.Date == "" {
		return errors.New("expense date must be set")
	}
	return nil
}

// Update carries a typed partial update for an expense.
type Update struct {
	Category    *string
	Description *string
	Amount      *float64
	Date        *string
}

// Apply copies the non-nil fields of the update onto the expense.
func (e *Expense) Apply(u Update) {
	if u.Category != nil {
		e.Category = *u.Category
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
}
