package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nursery/internal/adapters/storage"
	domain "nursery/internal/domain/attendance"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const recordColumns = `id, student_id, class_id, date, status, reason, notes, marked_by, created_at`

const upsertStmt = `INSERT INTO attendance (id, student_id, class_id, date, status, reason, notes, marked_by, created_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	 ON CONFLICT(student_id, class_id, date) DO UPDATE SET
	   status=excluded.status, reason=excluded.reason, notes=excluded.notes, marked_by=excluded.marked_by`

// Upsert writes a record, re-marking any existing record for the same day.
// The re-mark keeps the original row id, so the returned record is the
// stored row, not necessarily the input.
// PRE: record has been validated
// POST: Exactly one record exists for (student, class, date)
func (s *SQLiteStore) Upsert(ctx context.Context, r domain.Record) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx, upsertStmt+` RETURNING `+recordColumns,
		r.ID, r.StudentID, r.ClassID, r.Date, r.Status,
		nullableString(r.Reason), nullableString(r.Notes), nullableString(r.MarkedBy),
		r.CreatedAt.UTC().Format(timeLayout))
	return scanRecord(row.Scan)
}

// SaveBulk upserts a batch of records in one transaction.
// POST: All records are persisted or none are
func (s *SQLiteStore) SaveBulk(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range records {
		if _, err := tx.ExecContext(ctx, upsertStmt,
			r.ID, r.StudentID, r.ClassID, r.Date, r.Status,
			nullableString(r.Reason), nullableString(r.Notes), nullableString(r.MarkedBy),
			r.CreatedAt.UTC().Format(timeLayout)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByID retrieves a record by ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance WHERE id = ?`, id)
	r, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Record{}, fmt.Errorf("get attendance: %w", domain.ErrNotFound)
	}
	return r, err
}

// Delete removes a record by ID. Hard delete; attendance has no soft state.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = ?`, id)
	return err
}

// ListByClassDate returns a class's records for one day.
func (s *SQLiteStore) ListByClassDate(ctx context.Context, classID, date string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM attendance
		 WHERE class_id = ? AND date = ? ORDER BY student_id ASC`, classID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListByStudent returns a student's records in the inclusive date range.
// Empty bounds leave that side open.
func (s *SQLiteStore) ListByStudent(ctx context.Context, studentID, from, to string) ([]domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance WHERE student_id = ?`
	args := []any{studentID}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DaySummary aggregates one day's statuses. Total is the active membership
// count so unmarked students widen the denominator.
func (s *SQLiteStore) DaySummary(ctx context.Context, date, classID string) (domain.DaySummary, error) {
	var sum domain.DaySummary

	rosterQuery := `SELECT COUNT(*) FROM class_students WHERE is_active = 1`
	rosterArgs := []any{}
	if classID != "" {
		rosterQuery += ` AND class_id = ?`
		rosterArgs = append(rosterArgs, classID)
	}
	if err := s.db.QueryRowContext(ctx, rosterQuery, rosterArgs...).Scan(&sum.Total); err != nil {
		return domain.DaySummary{}, err
	}

	countQuery := `SELECT status, COUNT(*) FROM attendance WHERE date = ?`
	countArgs := []any{date}
	if classID != "" {
		countQuery += ` AND class_id = ?`
		countArgs = append(countArgs, classID)
	}
	countQuery += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, countQuery, countArgs...)
	if err != nil {
		return domain.DaySummary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.DaySummary{}, err
		}
		switch status {
		case domain.StatusPresent:
			sum.Present = n
		case domain.StatusAbsent:
			sum.Absent = n
		case domain.StatusLate:
			sum.Late = n
		case domain.StatusEarlyLeave:
			sum.EarlyLeave = n
		}
	}
	return sum, rows.Err()
}

// StudentStats aggregates a student's records in the inclusive date range.
func (s *SQLiteStore) StudentStats(ctx context.Context, studentID, from, to string) (domain.Stats, error) {
	query := `SELECT status, COUNT(*) FROM attendance WHERE student_id = ?`
	args := []any{studentID}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Stats{}, err
	}
	defer rows.Close()

	var stats domain.Stats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.Stats{}, err
		}
		stats.TotalDays += n
		switch status {
		case domain.StatusPresent:
			stats.PresentDays = n
		case domain.StatusAbsent:
			stats.AbsentDays = n
		case domain.StatusLate:
			stats.LateDays = n
		case domain.StatusEarlyLeave:
			stats.EarlyLeaveDays = n
		}
	}
	return stats, rows.Err()
}

type scanFunc func(dest ...any) error

func scanRecord(scan scanFunc) (domain.Record, error) {
	var r domain.Record
	var reason, notes, markedBy sql.NullString
	var createdAt string
	err := scan(&r.ID, &r.StudentID, &r.ClassID, &r.Date, &r.Status,
		&reason, &notes, &markedBy, &createdAt)
	if err != nil {
		return domain.Record{}, err
	}
	r.Reason = reason.String
	r.Notes = notes.String
	r.MarkedBy = markedBy.String
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	var out []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func parseTime(raw string) time.Time {
	if t, err := time.Parse(timeLayout, raw); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", raw)
	return t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
