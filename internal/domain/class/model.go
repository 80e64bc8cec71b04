package class

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyName       = errors.New("class name cannot be empty")
	ErrEmptyAgeGroup   = errors.New("class age group cannot be empty")
	ErrNotFound        = errors.New("class not found")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in a class")
	ErrClassFull       = errors.New("class is at capacity")
	ErrNotEnrolled     = errors.New("student is not enrolled in this class")
)

// Class holds state for one kindergarten group.
// Capacity 0 means unbounded.
type Class struct {
	ID        string
	Name      string
	AgeGroup  string
	TeacherID string // optional link to a staff member
	Capacity  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks if the Class has valid data.
// PRE: Class struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Class) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.AgeGroup) == "" {
		return ErrEmptyAgeGroup
	}
	if c.Capacity < 0 {
		return errors.New("class capacity cannot be negative")
	}
	return nil
}

// HasCapacity reports whether another student fits given the current
// active membership count.
// INVARIANT: occupied seats never exceed Capacity when Capacity is set
func (c *Class) HasCapacity(activeCount int) bool {
	if c.Capacity == 0 {
		return true
	}
	return activeCount < c.Capacity
}

// Membership links a student to a class. Its Active flag is independent of
// the student's own soft-delete flag: a student can leave a class without
// being deleted, and vice versa.
type Membership struct {
	ID             string
	ClassID        string
	StudentID      string
	EnrollmentDate string // YYYY-MM-DD
	Active         bool
	CreatedAt      time.Time
}

// Validate checks if the Membership has valid data.
func (m *Membership) Validate() error {
	if m.ClassID == "" {
		return errors.New("membership must reference a class")
	}
	if m.StudentID == "" {
		return errors.New("membership must reference a student")
	}
	if m.EnrollmentDate == "" {
		return errors.New("enrollment date must be set")
	}
	return nil
}

// Update carries a typed partial update for a class.
type Update struct {
	Name      *string
	AgeGroup  *string
	TeacherID *string
	Capacity  *int
}

// Apply copies the non-nil fields of the update onto the class.
func (c *Class) Apply(u Update) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.AgeGroup != nil {
		c.AgeGroup = *u.AgeGroup
	}
	if u.TeacherID != nil {
		c.TeacherID = *u.TeacherID
	}
	if u.Capacity != nil {
		c.Capacity = *u.Capacity
	}
}
