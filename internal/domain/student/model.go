package student

import (
	"errors"
	"strings"
	"time"
)

// Lifecycle status constants.
const (
	StatusActive      = "active"
	StatusGraduated   = "graduated"
	StatusTransferred = "transferred"
	StatusSuspended   = "suspended"
)

// ValidStatuses contains all valid lifecycle status values.
var ValidStatuses = []string{StatusActive, StatusGraduated, StatusTransferred, StatusSuspended}

// Domain errors
var (
	ErrEmptyName     = errors.New("student name cannot be empty")
	ErrInvalidStatus = errors.New("status must be one of: active, graduated, transferred, suspended")
	ErrNotFound      = errors.New("student not found")
	// ErrVaccinationNotFound reports a missing vaccination entry.
	ErrVaccinationNotFound = errors.New("vaccination not found")
)

// Student holds state for one enrolled child.
// ClassID is a convenience link to the current class; the membership row in
// class_students is the authoritative record of enrollment.
type Student struct {
	ID                string
	Name              string
	NationalID        string
	BirthDate         string // YYYY-MM-DD
	BirthPlace        string
	Gender            string
	BloodType         string
	Address           string
	Allergies         string
	MedicalConditions string
	Tags              string
	Notes             string
	PhotoPath         string
	ClassID           string // empty when not assigned to a class
	RegistrationDate  string // YYYY-MM-DD
	GraduationDate    string // YYYY-MM-DD, empty until graduated
	Status            string
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks if the Student has valid data.
// PRE: Student struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if !isValidStatus(s.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// IsAssigned returns true when the student currently belongs to a class.
func (s *Student) IsAssigned() bool {
	return s.ClassID != ""
}

func isValidStatus(status string) bool {
	for _, v := range ValidStatuses {
		if v == status {
			return true
		}
	}
	return false
}

// Update carries a typed partial update. Nil fields are left unchanged.
// Only the fields listed here are mutable through the update path.
type Update struct {
	Name              *string
	NationalID        *string
	BirthDate         *string
	BirthPlace        *string
	Gender            *string
	BloodType         *string
	Address           *string
	Allergies         *string
	MedicalConditions *string
	Tags              *string
	Notes             *string
	PhotoPath         *string
	RegistrationDate  *string
	GraduationDate    *string
	Status            *string
}

// Apply copies the non-nil fields of the update onto the student.
// POST: Student reflects the update; caller must re-Validate
func (s *Student) Apply(u Update) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.NationalID != nil {
		s.NationalID = *u.NationalID
	}
	if u.BirthDate != nil {
		s.BirthDate = *u.BirthDate
	}
	if u.BirthPlace != nil {
		s.BirthPlace = *u.BirthPlace
	}
	if u.Gender != nil {
		s.Gender = *u.Gender
	}
	if u.BloodType != nil {
		s.BloodType = *u.BloodType
	}
	if u.Address != nil {
		s.Address = *u.Address
	}
	if u.Allergies != nil {
		s.Allergies = *u.Allergies
	}
	if u.MedicalConditions != nil {
		s.MedicalConditions = *u.MedicalConditions
	}
	if u.Tags != nil {
		s.Tags = *u.Tags
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	if u.PhotoPath != nil {
		s.PhotoPath = *u.PhotoPath
	}
	if u.RegistrationDate != nil {
		s.RegistrationDate = *u.RegistrationDate
	}
	if u.GraduationDate != nil {
		s.GraduationDate = *u.GraduationDate
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
}

// Vaccination is an append-style child record of a student.
// Vaccination entries are hard-deleted once unlinked; history has no value
// beyond the activity log entry recorded with the mutation.
type Vaccination struct {
	ID           string
	StudentID    string
	VaccineName  string
	VaccineDate  string // YYYY-MM-DD
	NextDoseDate string // YYYY-MM-DD, optional
	Notes        string
}

// VaccinationUpdate carries a typed partial update for a vaccination entry.
// Nil fields are left unchanged; the student link is immutable.
type VaccinationUpdate struct {
	VaccineName  *string
	VaccineDate  *string
	NextDoseDate *string
	Notes        *string
}

// Apply copies the non-nil fields of the update onto the vaccination.
func (v *Vaccination) Apply(u VaccinationUpdate) {
	if u.VaccineName != nil {
		v.VaccineName = *u.VaccineName
	}
	if u.VaccineDate != nil {
		v.VaccineDate = *u.VaccineDate
	}
	if u.NextDoseDate != nil {
		v.NextDoseDate = *u.NextDoseDate
	}
	if u.Notes != nil {
		v.Notes = *u.Notes
	}
}

// Validate checks if the Vaccination has valid data.
func (v *Vaccination) Validate() error {
	if v.StudentID == "" {
		return errors.New("vaccination must be associated with a student")
	}
	if strings.TrimSpace(v.VaccineName) == "" {
		return errors.New("vaccine name cannot be empty")
	}
	if v.VaccineDate == "" {
		return errors.New("vaccine date must be set")
	}
	return nil
}
