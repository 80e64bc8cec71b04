package attendance

import (
	"errors"
	"time"
)

// Attendance status constants.
const (
	StatusPresent    = "present"
	StatusAbsent     = "absent"
	StatusLate       = "late"
	StatusEarlyLeave = "early_leave"
)

// Absence reason constants.
const (
	ReasonIllness    = "illness"
	ReasonPermission = "permission"
	ReasonOther      = "other"
)

// ValidStatuses contains all valid attendance status values.
var ValidStatuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusEarlyLeave}

// Domain errors
var (
	ErrInvalidStatus = errors.New("status must be one of: present, absent, late, early_leave")
	ErrNotFound      = errors.New("attendance record not found")
)

// Record holds one student's attendance for one class on one day.
// Exactly one record may exist per (StudentID, ClassID, Date) triple;
// re-marking the same day updates the existing record.
type Record struct {
	ID        string
	StudentID string
	ClassID   string
	Date      string // YYYY-MM-DD
	Status    string
	Reason    string // optional, set for absences
	Notes     string
	MarkedBy  string // user id, optional
	CreatedAt time.Time
}

// Validate checks if the Record has valid data.
// PRE: Record struct is populated
// POST: Returns nil if valid, error otherwise
// INVARIANT: StudentID, ClassID and Date identify the record
func (r *Record) Validate() error {
	if r.StudentID == "" {
		return errors.New("attendance must be associated with a student")
	}
	if r.ClassID == "" {
		return errors.New("attendance must be associated with a class")
	}
	if r.Date == "" {
		return errors.New("attendance date must be set")
	}
	if !isValidStatus(r.Status) {
		return ErrInvalidStatus
	}
	return nil
}

func isValidStatus(status string) bool {
	for _, v := range ValidStatuses {
		if v == status {
			return true
		}
	}
	return false
}

// DaySummary aggregates per-status counts for one day. Total counts every
// student on the active roster, so students with no record for the day
// contribute to the denominator without being classified.
type DaySummary struct {
	Total      int
	Present    int
	Absent     int
	Late       int
	EarlyLeave int
}

// Stats aggregates one student's attendance over a period.
type Stats struct {
	TotalDays      int
	PresentDays    int
	AbsentDays     int
	LateDays       int
	EarlyLeaveDays int
}

// AttendanceRate returns the fraction of recorded days the student was
// present or late, in [0, 1]. Returns 0 when no days are recorded.
func (s Stats) AttendanceRate() float64 {
	if s.TotalDays == 0 {
		return 0
	}
	return float64(s.PresentDays+s.LateDays) / float64(s.TotalDays)
}
