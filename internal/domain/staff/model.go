package staff

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrNotFound = errors.New("staff member not found")
)

// Staff is one personnel record. Staff are not application users; see the
// account package for credentials.
type Staff struct {
	ID         string
	Name       string
	Role       string
	Department string
	Phone      string
	Email      string
	PhotoPath  string
	HireDate   string // YYYY-MM-DD
	Salary     float64
	Notes      string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks if the Staff has valid data.
func (s *Staff) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("staff name cannot be empty")
	}
	if strings.TrimSpace(s.Role) == "" {
		return errors.New("staff role cannot be empty")
	}
	return nil
}

// Update carries a typed partial update for a staff member.
type Update struct {
	Name       *string
	Role       *string
	Department *string
	Phone      *string
	Email      *string
	PhotoPath  *string
	HireDate   *string
	Salary     *float64
	Notes      *string
}

// Apply copies the non-nil fields of the update onto the staff member.
func (s *Staff) Apply(u Update) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Role != nil {
		s.Role = *u.Role
	}
	if u.Department != nil {
		s.Department = *u.Department
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
	if u.PhotoPath != nil {
		s.PhotoPath = *u.PhotoPath
	}
	if u.HireDate != nil {
		s.HireDate = *u.HireDate
	}
	if u.Salary != nil {
		s.Salary = *u.Salary
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
}
