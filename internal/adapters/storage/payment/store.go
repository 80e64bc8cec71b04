package payment

import (
	"context"

	domain "nursery/internal/domain/payment"
)

// Store persists Payments, Plans, installment history and Reminders.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Payment, error)
	Save(ctx context.Context, value domain.Payment) error
	// InsertBatch writes a plan's generated payments atomically.
	InsertBatch(ctx context.Context, payments []domain.Payment) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Payment, error)

	// ApplyPartial records one installment: the payment's accumulator and
	// status move together with the appended history row. Returns the
	// payment as persisted.
	ApplyPartial(ctx context.Context, rec domain.InstallmentRecord, today string) (domain.Payment, error)
	History(ctx context.Context, paymentID string) ([]domain.InstallmentRecord, error)
	// Installments returns all installment rows created in the inclusive
	// date range, oldest first. Empty bounds leave that side open.
	Installments(ctx context.Context, from, to string) ([]domain.InstallmentRecord, error)

	SavePlan(ctx context.Context, pl domain.Plan) error
	GetPlan(ctx context.Context, id string) (domain.Plan, error)
	ListPlans(ctx context.Context, studentID string, includeInactive bool) ([]domain.Plan, error)
	DeactivatePlan(ctx context.Context, id string) error

	SaveReminder(ctx context.Context, r domain.Reminder) error
	// ListDueReminders returns pending reminders whose date is on or before
	// the given day.
	ListDueReminders(ctx context.Context, today string) ([]domain.Reminder, error)
	MarkReminder(ctx context.Context, id, status, sentAt string) error
	DeleteReminder(ctx context.Context, id string) error
}

// ListFilter carries filtering parameters for List operations. Status
// filters on the stored status; callers wanting the derived Overdue view
// filter on EffectiveStatus after the read.
type ListFilter struct {
	StudentID       string
	PlanID          string
	Status          string
	DueFrom         string
	DueTo           string
	IncludeInactive bool
	Limit           int
	Offset          int
}
