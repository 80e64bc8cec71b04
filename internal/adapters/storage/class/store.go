package class

import (
	"context"

	classdomain "nursery/internal/domain/class"
)

// Store persists Class and Membership state.
//
// Enroll and Withdraw are transactional: the capacity check, the membership
// row, and the student's convenience class link move together or not at all.
type Store interface {
	GetByID(ctx context.Context, id string) (classdomain.Class, error)
	Save(ctx context.Context, value classdomain.Class) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]classdomain.Class, error)

	Enroll(ctx context.Context, m classdomain.Membership) error
	Withdraw(ctx context.Context, classID, studentID string) error
	Roster(ctx context.Context, classID string) ([]classdomain.Membership, error)
	ActiveCount(ctx context.Context, classID string) (int, error)
	ActiveMembership(ctx context.Context, studentID string) (classdomain.Membership, bool, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	IncludeInactive bool
	Limit           int
	Offset          int
}
