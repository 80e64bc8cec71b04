package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nursery/internal/domain/account"
	"nursery/internal/domain/attendance"
	"nursery/internal/domain/class"
)

// AttendanceStore defines the attendance persistence interface.
type AttendanceStore interface {
	Upsert(ctx context.Context, r attendance.Record) (attendance.Record, error)
	SaveBulk(ctx context.Context, records []attendance.Record) error
	Delete(ctx context.Context, id string) error
	ListByClassDate(ctx context.Context, classID, date string) ([]attendance.Record, error)
	ListByStudent(ctx context.Context, studentID, from, to string) ([]attendance.Record, error)
	DaySummary(ctx context.Context, date, classID string) (attendance.DaySummary, error)
	StudentStats(ctx context.Context, studentID, from, to string) (attendance.Stats, error)
}

// RosterStore is the class-side read interface for roster checks.
type RosterStore interface {
	Roster(ctx context.Context, classID string) ([]class.Membership, error)
}

// MarkAttendanceInput carries one student's mark for one day.
type MarkAttendanceInput struct {
	StudentID string
	ClassID   string
	Date      string // empty means today
	Status    string
	Reason    string
	Notes     string
}

// AttendanceDeps holds dependencies for attendance recording.
type AttendanceDeps struct {
	AttendanceStore AttendanceStore
	RosterStore     RosterStore
	ActivityStore   ActivityStore
}

// ExecuteMarkAttendance records one student's attendance. Re-marking the
// same day replaces the earlier mark and returns the record under its
// original id.
// PRE: student is on the class's active roster
// POST: Exactly one record exists for (student, class, date); the returned
// id resolves to the stored row
func ExecuteMarkAttendance(ctx context.Context, principal account.Principal, input MarkAttendanceInput, deps AttendanceDeps) (attendance.Record, error) {
	date := input.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	r := attendance.Record{
		ID:        uuid.New().String(),
		StudentID: input.StudentID,
		ClassID:   input.ClassID,
		Date:      date,
		Status:    input.Status,
		Reason:    input.Reason,
		Notes:     input.Notes,
		MarkedBy:  principal.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.Validate(); err != nil {
		return attendance.Record{}, err
	}
	if err := requireOnRoster(ctx, deps.RosterStore, input.ClassID, input.StudentID); err != nil {
		return attendance.Record{}, err
	}
	stored, err := deps.AttendanceStore.Upsert(ctx, r)
	if err != nil {
		return attendance.Record{}, err
	}

	slog.Info("attendance_event", "event", "attendance_marked", "student_id", stored.StudentID, "class_id", stored.ClassID, "date", stored.Date, "status", stored.Status)
	recordActivity(ctx, deps.ActivityStore, principal, "attendance_marked", map[string]string{"student_id": stored.StudentID, "class_id": stored.ClassID, "date": stored.Date, "status": stored.Status})
	return stored, nil
}

// MarkClassAttendanceInput carries a whole class's marks for one day.
type MarkClassAttendanceInput struct {
	ClassID string
	Date    string // empty means today
	Marks   []StudentMark
}

// StudentMark is one roster entry's status.
type StudentMark struct {
	StudentID string
	Status    string
	Reason    string
	Notes     string
}

// ExecuteMarkClassAttendance records a class's full day in one write. Every
// mark validates before any persists, and marks for students not on the
// roster reject the batch.
// POST: All marks persisted or none
func ExecuteMarkClassAttendance(ctx context.Context, principal account.Principal, input MarkClassAttendanceInput, deps AttendanceDeps) (int, error) {
	if len(input.Marks) == 0 {
		return 0, nil
	}
	date := input.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	roster, err := deps.RosterStore.Roster(ctx, input.ClassID)
	if err != nil {
		return 0, err
	}
	onRoster := make(map[string]bool, len(roster))
	for _, m := range roster {
		onRoster[m.StudentID] = true
	}

	now := time.Now().UTC()
	records := make([]attendance.Record, 0, len(input.Marks))
	for _, mark := range input.Marks {
		if !onRoster[mark.StudentID] {
			return 0, class.ErrNotEnrolled
		}
		r := attendance.Record{
			ID:        uuid.New().String(),
			StudentID: mark.StudentID,
			ClassID:   input.ClassID,
			Date:      date,
			Status:    mark.Status,
			Reason:    mark.Reason,
			Notes:     mark.Notes,
			MarkedBy:  principal.UserID,
			CreatedAt: now,
		}
		if err := r.Validate(); err != nil {
			return 0, err
		}
		records = append(records, r)
	}

	if err := deps.AttendanceStore.SaveBulk(ctx, records); err != nil {
		return 0, err
	}
	slog.Info("attendance_event", "event", "class_attendance_marked", "class_id", input.ClassID, "date", date, "count", len(records))
	recordActivity(ctx, deps.ActivityStore, principal, "class_attendance_marked", map[string]any{"class_id": input.ClassID, "date": date, "count": len(records)})
	return len(records), nil
}

// ExecuteDeleteAttendance removes one record.
func ExecuteDeleteAttendance(ctx context.Context, principal account.Principal, recordID string, deps AttendanceDeps) error {
	if err := deps.AttendanceStore.Delete(ctx, recordID); err != nil {
		return err
	}
	recordActivity(ctx, deps.ActivityStore, principal, "attendance_deleted", map[string]string{"record_id": recordID})
	return nil
}

// AttendanceOverviewInput selects a day summary.
type AttendanceOverviewInput struct {
	Date    string // empty means today
	ClassID string // empty means all classes
}

// ExecuteAttendanceOverview returns the day's per-status counts.
func ExecuteAttendanceOverview(ctx context.Context, input AttendanceOverviewInput, deps AttendanceDeps) (attendance.DaySummary, error) {
	date := input.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	return deps.AttendanceStore.DaySummary(ctx, date, input.ClassID)
}

// StudentAttendanceInput selects one student's history and stats.
type StudentAttendanceInput struct {
	StudentID string
	From      string
	To        string
}

// StudentAttendanceResult pairs the raw records with their aggregate.
type StudentAttendanceResult struct {
	Records []attendance.Record
	Stats   attendance.Stats
}

// ExecuteStudentAttendance returns a student's records and rate for a range.
func ExecuteStudentAttendance(ctx context.Context, input StudentAttendanceInput, deps AttendanceDeps) (StudentAttendanceResult, error) {
	if input.StudentID == "" {
		return StudentAttendanceResult{}, errors.New("student id is required")
	}
	records, err := deps.AttendanceStore.ListByStudent(ctx, input.StudentID, input.From, input.To)
	if err != nil {
		return StudentAttendanceResult{}, err
	}
	stats, err := deps.AttendanceStore.StudentStats(ctx, input.StudentID, input.From, input.To)
	if err != nil {
		return StudentAttendanceResult{}, err
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return StudentAttendanceResult{Records: records, Stats: stats}, nil
}

func requireOnRoster(ctx context.Context, store RosterStore, classID, studentID string) error {
	roster, err := store.Roster(ctx, classID)
	if err != nil {
		return err
	}
	for _, m := range roster {
		if m.StudentID == studentID {
			return nil
		}
	}
	return class.ErrNotEnrolled
}
