package attendance

import (
	"context"

	domain "nursery/internal/domain/attendance"
)

// Store persists attendance Records.
type Store interface {
	// Upsert writes the record, replacing any existing record for the same
	// (student, class, date) triple while keeping the original row id. The
	// returned record carries the canonical id of the stored row.
	Upsert(ctx context.Context, r domain.Record) (domain.Record, error)
	// SaveBulk upserts a day's records atomically.
	SaveBulk(ctx context.Context, records []domain.Record) error
	GetByID(ctx context.Context, id string) (domain.Record, error)
	Delete(ctx context.Context, id string) error
	ListByClassDate(ctx context.Context, classID, date string) ([]domain.Record, error)
	ListByStudent(ctx context.Context, studentID, from, to string) ([]domain.Record, error)
	// DaySummary counts statuses for one day. classID narrows to one class;
	// empty means all classes. Total is the active roster size, so unmarked
	// students count toward the denominator.
	DaySummary(ctx context.Context, date, classID string) (domain.DaySummary, error)
	StudentStats(ctx context.Context, studentID, from, to string) (domain.Stats, error)
}
