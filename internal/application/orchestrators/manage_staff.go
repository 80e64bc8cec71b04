package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nursery/internal/domain/account"
	domain "nursery/internal/domain/staff"
)

// StaffStore defines the staff persistence interface.
type StaffStore interface {
	GetByID(ctx context.Context, id string) (domain.Staff, error)
	Save(ctx context.Context, value domain.Staff) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, includeInactive bool) ([]domain.Staff, error)
}

// CreateStaffInput carries input for staff creation.
type CreateStaffInput struct {
	Name       string
	Role       string
	Department string
	Phone      string
	Email      string
	PhotoPath  string
	HireDate   string
	Salary     float64
	Notes      string
}

// StaffDeps holds dependencies for staff management.
type StaffDeps struct {
	StaffStore    StaffStore
	ActivityStore ActivityStore
}

// ExecuteCreateStaff creates a new staff record.
func ExecuteCreateStaff(ctx context.Context, principal account.Principal, input CreateStaffInput, deps StaffDeps) (domain.Staff, error) {
	now := time.Now().UTC()
	st := domain.Staff{
		ID:         uuid.New().String(),
		Name:       input.Name,
		Role:       input.Role,
		Department: input.Department,
		Phone:      input.Phone,
		Email:      input.Email,
		PhotoPath:  input.PhotoPath,
		HireDate:   input.HireDate,
		Salary:     input.Salary,
		Notes:      input.Notes,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := st.Validate(); err != nil {
		return domain.Staff{}, err
	}
	if err := deps.StaffStore.Save(ctx, st); err != nil {
		return domain.Staff{}, err
	}
	slog.Info("staff_event", "event", "staff_created", "staff_id", st.ID, "name", st.Name)
	recordActivity(ctx, deps.ActivityStore, principal, "staff_created", map[string]string{"staff_id": st.ID, "name": st.Name})
	return st, nil
}

// ExecuteUpdateStaff applies a partial update to a staff record.
func ExecuteUpdateStaff(ctx context.Context, principal account.Principal, id string, update domain.Update, deps StaffDeps) (domain.Staff, error) {
	st, err := deps.StaffStore.GetByID(ctx, id)
	if err != nil {
		return domain.Staff{}, err
	}
	st.Apply(update)
	st.UpdatedAt = time.Now().UTC()
	if err := st.Validate(); err != nil {
		return domain.Staff{}, err
	}
	if err := deps.StaffStore.Save(ctx, st); err != nil {
		return domain.Staff{}, err
	}
	slog.Info("staff_event", "event", "staff_updated", "staff_id", st.ID)
	recordActivity(ctx, deps.ActivityStore, principal, "staff_updated", map[string]string{"staff_id": st.ID})
	return st, nil
}

// ExecuteDeleteStaff soft-deletes a staff record.
func ExecuteDeleteStaff(ctx context.Context, principal account.Principal, id string, deps StaffDeps) error {
	if err := deps.StaffStore.SoftDelete(ctx, id); err != nil {
		return err
	}
	slog.Info("staff_event", "event", "staff_deleted", "staff_id", id)
	recordActivity(ctx, deps.ActivityStore, principal, "staff_deleted", map[string]string{"staff_id": id})
	return nil
}

// ExecuteListStaff returns staff records.
func ExecuteListStaff(ctx context.Context, includeInactive bool, deps StaffDeps) ([]domain.Staff, error) {
	list, err := deps.StaffStore.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Staff{}
	}
	return list, nil
}
