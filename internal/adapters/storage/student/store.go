package student

import (
	"context"

	domain "nursery/internal/domain/student"
)

// Store persists Student state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Student, error)
	Save(ctx context.Context, value domain.Student) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Student, error)
	SetClass(ctx context.Context, studentID, classID string) error

	AddVaccination(ctx context.Context, v domain.Vaccination) error
	GetVaccination(ctx context.Context, id string) (domain.Vaccination, error)
	UpdateVaccination(ctx context.Context, v domain.Vaccination) error
	ListVaccinations(ctx context.Context, studentID string) ([]domain.Vaccination, error)
	DeleteVaccination(ctx context.Context, id string) error
}

// ListFilter carries filtering parameters for List operations.
// Zero values mean "no constraint"; IncludeInactive widens the default
// active-only view.
type ListFilter struct {
	Status          string
	ClassID         string
	Search          string // substring match on name
	IncludeInactive bool
	Limit           int
	Offset          int
}
