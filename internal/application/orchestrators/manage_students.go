package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	studentstore "nursery/internal/adapters/storage/student"
	"nursery/internal/domain/account"
	"nursery/internal/domain/student"
)

// StudentStore defines the student persistence interface for student
// management.
type StudentStore interface {
	GetByID(ctx context.Context, id string) (student.Student, error)
	Save(ctx context.Context, value student.Student) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter studentstore.ListFilter) ([]student.Student, error)
	AddVaccination(ctx context.Context, v student.Vaccination) error
	GetVaccination(ctx context.Context, id string) (student.Vaccination, error)
	UpdateVaccination(ctx context.Context, v student.Vaccination) error
	ListVaccinations(ctx context.Context, studentID string) ([]student.Vaccination, error)
	DeleteVaccination(ctx context.Context, id string) error
}

// CreateStudentInput carries input for student registration.
type CreateStudentInput struct {
	Name              string
	NationalID        string
	BirthDate         string
	BirthPlace        string
	Gender            string
	BloodType         string
	Address           string
	Allergies         string
	MedicalConditions string
	Tags              string
	Notes             string
	PhotoPath         string
	RegistrationDate  string
}

// StudentDeps holds dependencies for student management.
type StudentDeps struct {
	StudentStore  StudentStore
	ActivityStore ActivityStore
}

// ExecuteCreateStudent registers a new student.
// PRE: Name is non-empty
// POST: Student persisted as active with a fresh id
func ExecuteCreateStudent(ctx context.Context, principal account.Principal, input CreateStudentInput, deps StudentDeps) (student.Student, error) {
	now := time.Now().UTC()
	registration := input.RegistrationDate
	if registration == "" {
		registration = now.Format("2006-01-02")
	}
	st := student.Student{
		ID:                uuid.New().String(),
		Name:              input.Name,
		NationalID:        input.NationalID,
		BirthDate:         input.BirthDate,
		BirthPlace:        input.BirthPlace,
		Gender:            input.Gender,
		BloodType:         input.BloodType,
		Address:           input.Address,
		Allergies:         input.Allergies,
		MedicalConditions: input.MedicalConditions,
		Tags:              input.Tags,
		Notes:             input.Notes,
		PhotoPath:         input.PhotoPath,
		RegistrationDate:  registration,
		Status:            student.StatusActive,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := st.Validate(); err != nil {
		return student.Student{}, err
	}
	if err := deps.StudentStore.Save(ctx, st); err != nil {
		return student.Student{}, err
	}

	slog.Info("student_event", "event", "student_created", "student_id", st.ID, "name", st.Name)
	recordActivity(ctx, deps.ActivityStore, principal, "student_created", map[string]string{"student_id": st.ID, "name": st.Name})
	return st, nil
}

// UpdateStudentInput carries a typed partial update for a student.
type UpdateStudentInput struct {
	StudentID string
	Update    student.Update
}

// ExecuteUpdateStudent applies a typed partial update. Fields absent from
// the update are left untouched.
// PRE: StudentID references an existing student
// POST: Only the provided fields change; the result re-validates
func ExecuteUpdateStudent(ctx context.Context, principal account.Principal, input UpdateStudentInput, deps StudentDeps) (student.Student, error) {
	st, err := deps.StudentStore.GetByID(ctx, input.StudentID)
	if err != nil {
		return student.Student{}, err
	}
	st.Apply(input.Update)
	st.UpdatedAt = time.Now().UTC()
	if err := st.Validate(); err != nil {
		return student.Student{}, err
	}
	if err := deps.StudentStore.Save(ctx, st); err != nil {
		return student.Student{}, err
	}

	recordActivity(ctx, deps.ActivityStore, principal, "student_updated", map[string]string{"student_id": st.ID})
	return st, nil
}

// ExecuteDeleteStudent soft-deletes a student. The record, attendance, and
// payment history remain recoverable.
// POST: Student reads as inactive
func ExecuteDeleteStudent(ctx context.Context, principal account.Principal, studentID string, deps StudentDeps) error {
	if err := deps.StudentStore.SoftDelete(ctx, studentID); err != nil {
		return err
	}
	slog.Info("student_event", "event", "student_deleted", "student_id", studentID)
	recordActivity(ctx, deps.ActivityStore, principal, "student_deleted", map[string]string{"student_id": studentID})
	return nil
}

// ListStudentsInput carries the student listing filter.
type ListStudentsInput struct {
	Status          string
	ClassID         string
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ExecuteListStudents returns students matching the filter.
func ExecuteListStudents(ctx context.Context, input ListStudentsInput, deps StudentDeps) ([]student.Student, error) {
	students, err := deps.StudentStore.List(ctx, studentstore.ListFilter{
		Status:          input.Status,
		ClassID:         input.ClassID,
		Search:          input.Search,
		IncludeInactive: input.IncludeInactive,
		Limit:           input.Limit,
		Offset:          input.Offset,
	})
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []student.Student{}
	}
	return students, nil
}

// AddVaccinationInput carries input for recording a vaccination.
type AddVaccinationInput struct {
	StudentID    string
	VaccineName  string
	VaccineDate  string
	NextDoseDate string
	Notes        string
}

// ExecuteAddVaccination records a vaccination for a student.
// PRE: student exists, vaccine name and date provided
func ExecuteAddVaccination(ctx context.Context, principal account.Principal, input AddVaccinationInput, deps StudentDeps) (student.Vaccination, error) {
	if _, err := deps.StudentStore.GetByID(ctx, input.StudentID); err != nil {
		return student.Vaccination{}, err
	}
	v := student.Vaccination{
		ID:           uuid.New().String(),
		StudentID:    input.StudentID,
		VaccineName:  input.VaccineName,
		VaccineDate:  input.VaccineDate,
		NextDoseDate: input.NextDoseDate,
		Notes:        input.Notes,
	}
	if err := v.Validate(); err != nil {
		return student.Vaccination{}, err
	}
	if err := deps.StudentStore.AddVaccination(ctx, v); err != nil {
		return student.Vaccination{}, err
	}
	recordActivity(ctx, deps.ActivityStore, principal, "vaccination_added", map[string]string{"student_id": input.StudentID, "vaccine": input.VaccineName})
	return v, nil
}

// ExecuteUpdateVaccination applies a typed partial update to a vaccination
// record.
// PRE: vaccinationID references an existing record
// POST: Only the provided fields change; the result re-validates
func ExecuteUpdateVaccination(ctx context.Context, principal account.Principal, vaccinationID string, update student.VaccinationUpdate, deps StudentDeps) (student.Vaccination, error) {
	v, err := deps.StudentStore.GetVaccination(ctx, vaccinationID)
	if err != nil {
		return student.Vaccination{}, err
	}
	v.Apply(update)
	if err := v.Validate(); err != nil {
		return student.Vaccination{}, err
	}
	if err := deps.StudentStore.UpdateVaccination(ctx, v); err != nil {
		return student.Vaccination{}, err
	}
	recordActivity(ctx, deps.ActivityStore, principal, "vaccination_updated", map[string]string{"vaccination_id": v.ID, "student_id": v.StudentID})
	return v, nil
}

// ExecuteDeleteVaccination removes a vaccination record.
func ExecuteDeleteVaccination(ctx context.Context, principal account.Principal, vaccinationID string, deps StudentDeps) error {
	if err := deps.StudentStore.DeleteVaccination(ctx, vaccinationID); err != nil {
		return err
	}
	recordActivity(ctx, deps.ActivityStore, principal, "vaccination_deleted", map[string]string{"vaccination_id": vaccinationID})
	return nil
}
