package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	classstore "nursery/internal/adapters/storage/class"
	"nursery/internal/domain/account"
	"nursery/internal/domain/class"
	"nursery/internal/domain/student"
)

// ClassStore defines the class persistence interface for class management.
type ClassStore interface {
	GetByID(ctx context.Context, id string) (class.Class, error)
	Save(ctx context.Context, value class.Class) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter classstore.ListFilter) ([]class.Class, error)
	Enroll(ctx context.Context, m class.Membership) error
	Withdraw(ctx context.Context, classID, studentID string) error
	Roster(ctx context.Context, classID string) ([]class.Membership, error)
	ActiveCount(ctx context.Context, classID string) (int, error)
}

// StudentLookup is the narrow student read interface needed by enrollment.
type StudentLookup interface {
	GetByID(ctx context.Context, id string) (student.Student, error)
}

// CreateClassInput carries input for class creation.
type CreateClassInput struct {
	Name      string
	AgeGroup  string
	TeacherID string
	Capacity  int
}

// ClassDeps holds dependencies for class management.
type ClassDeps struct {
	ClassStore    ClassStore
	StudentStore  StudentLookup
	ActivityStore ActivityStore
}

// ExecuteCreateClass creates a class.
// PRE: Name and AgeGroup are non-empty, Capacity >= 0 (0 = unbounded)
func ExecuteCreateClass(ctx context.Context, principal account.Principal, input CreateClassInput, deps ClassDeps) (class.Class, error) {
	now := time.Now().UTC()
	c := class.Class{
		ID:        uuid.New().String(),
		Name:      input.Name,
		AgeGroup:  input.AgeGroup,
		TeacherID: input.TeacherID,
		Capacity:  input.Capacity,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return class.Class{}, err
	}
	if err := deps.ClassStore.Save(ctx, c); err != nil {
		return class.Class{}, err
	}
	slog.Info("class_event", "event", "class_created", "class_id", c.ID, "name", c.Name)
	recordActivity(ctx, deps.ActivityStore, principal, "class_created", map[string]string{"class_id": c.ID, "name": c.Name})
	return c, nil
}

// UpdateClassInput carries a typed partial update for a class.
type UpdateClassInput struct {
	ClassID string
	Update  class.Update
}

// ExecuteUpdateClass applies a typed partial update to a class.
// POST: Only the provided fields change; the result re-validates
func ExecuteUpdateClass(ctx context.Context, principal account.Principal, input UpdateClassInput, deps ClassDeps) (class.Class, error) {
	c, err := deps.ClassStore.GetByID(ctx, input.ClassID)
	if err != nil {
		return class.Class{}, err
	}
	c.Apply(input.Update)
	c.UpdatedAt = time.Now().UTC()
	if err := c.Validate(); err != nil {
		return class.Class{}, err
	}
	if err := deps.ClassStore.Save(ctx, c); err != nil {
		return class.Class{}, err
	}
	recordActivity(ctx, deps.ActivityStore, principal, "class_updated", map[string]string{"class_id": c.ID})
	return c, nil
}

// ExecuteDeleteClass soft-deletes a class, releasing its students.
// POST: Class inactive; former members have no active membership
func ExecuteDeleteClass(ctx context.Context, principal account.Principal, classID string, deps ClassDeps) error {
	if err := deps.ClassStore.SoftDelete(ctx, classID); err != nil {
		return err
	}
	slog.Info("class_event", "event", "class_deleted", "class_id", classID)
	recordActivity(ctx, deps.ActivityStore, principal, "class_deleted", map[string]string{"class_id": classID})
	return nil
}

// EnrollStudentInput carries input for enrollment.
type EnrollStudentInput struct {
	ClassID        string
	StudentID      string
	EnrollmentDate string
}

// ExecuteEnrollStudent places a student into a class.
// PRE: student and class exist and are active
// POST: Student holds exactly one active membership
// INVARIANT: roster size never exceeds class capacity
func ExecuteEnrollStudent(ctx context.Context, principal account.Principal, input EnrollStudentInput, deps ClassDeps) error {
	st, err := deps.StudentStore.GetByID(ctx, input.StudentID)
	if err != nil {
		return err
	}
	if !st.Active {
		return student.ErrNotFound
	}

	date := input.EnrollmentDate
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	m := class.Membership{
		ID:             uuid.New().String(),
		ClassID:        input.ClassID,
		StudentID:      input.StudentID,
		EnrollmentDate: date,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if err := deps.ClassStore.Enroll(ctx, m); err != nil {
		return err
	}

	slog.Info("class_event", "event", "student_enrolled", "class_id", input.ClassID, "student_id", input.StudentID)
	recordActivity(ctx, deps.ActivityStore, principal, "student_enrolled", map[string]string{"class_id": input.ClassID, "student_id": input.StudentID})
	return nil
}

// ExecuteWithdrawStudent removes a student from a class.
// POST: No active membership remains for the pair
func ExecuteWithdrawStudent(ctx context.Context, principal account.Principal, classID, studentID string, deps ClassDeps) error {
	if err := deps.ClassStore.Withdraw(ctx, classID, studentID); err != nil {
		return err
	}
	slog.Info("class_event", "event", "student_withdrawn", "class_id", classID, "student_id", studentID)
	recordActivity(ctx, deps.ActivityStore, principal, "student_withdrawn", map[string]string{"class_id": classID, "student_id": studentID})
	return nil
}

// ClassRosterResult pairs a class with its current roster.
type ClassRosterResult struct {
	Class   class.Class
	Roster  []class.Membership
	Seats   int // active roster size
	HasRoom bool
}

// ExecuteGetClassRoster returns a class with its active memberships.
func ExecuteGetClassRoster(ctx context.Context, classID string, deps ClassDeps) (ClassRosterResult, error) {
	c, err := deps.ClassStore.GetByID(ctx, classID)
	if err != nil {
		return ClassRosterResult{}, err
	}
	roster, err := deps.ClassStore.Roster(ctx, classID)
	if err != nil {
		return ClassRosterResult{}, err
	}
	if roster == nil {
		roster = []class.Membership{}
	}
	return ClassRosterResult{
		Class:   c,
		Roster:  roster,
		Seats:   len(roster),
		HasRoom: c.HasCapacity(len(roster)),
	}, nil
}

// ExecuteListClasses returns classes.
func ExecuteListClasses(ctx context.Context, includeInactive bool, deps ClassDeps) ([]class.Class, error) {
	classes, err := deps.ClassStore.List(ctx, classstore.ListFilter{IncludeInactive: includeInactive})
	if err != nil {
		return nil, err
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return classes, nil
}
