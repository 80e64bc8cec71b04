package class

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nursery/internal/adapters/storage"
	classdomain "nursery/internal/domain/class"
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

const classColumns = `id, name, age_group, teacher_id, capacity, is_active, created_at, updated_at`

// GetByID retrieves a class by ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (classdomain.Class, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+classColumns+` FROM classes WHERE id = ?`, id)
	c, err := scanClass(row.Scan)
	if err == sql.ErrNoRows {
		return classdomain.Class{}, fmt.Errorf("get class: %w", classdomain.ErrNotFound)
	}
	return c, err
}

// Save inserts or updates a class.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, c classdomain.Class) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO classes (id, name, age_group, teacher_id, capacity, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, age_group=excluded.age_group, teacher_id=excluded.teacher_id,
		   capacity=excluded.capacity, is_active=excluded.is_active, updated_at=excluded.updated_at`,
		c.ID, c.Name, c.AgeGroup, nullableString(c.TeacherID), c.Capacity,
		boolToInt(c.Active), c.CreatedAt.UTC().Format(timeLayout), c.UpdatedAt.UTC().Format(timeLayout))
	return err
}

// SoftDelete marks a class inactive and deactivates its memberships, clearing
// each affected student's class link. One transaction.
// POST: Class and its memberships read as inactive
func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeLayout)
	res, err := tx.ExecContext(ctx,
		`UPDATE classes SET is_active = 0, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return classdomain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET class_id = NULL, updated_at = ?
		 WHERE id IN (SELECT student_id FROM class_students WHERE class_id = ? AND is_active = 1)`,
		now, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE class_students SET is_active = 0 WHERE class_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns classes ordered by name.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]classdomain.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE 1=1`
	args := []any{}
	if !filter.IncludeInactive {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []classdomain.Class
	for rows.Next() {
		c, err := scanClass(rows.Scan)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// Enroll adds a student to a class, re-activating a previous membership row
// if one exists. The capacity check and the single-class check run inside
// the same transaction as the insert.
// PRE: membership has been validated
// POST: Student has exactly one active membership, in m.ClassID
// INVARIANT: active roster size never exceeds the class capacity
func (s *SQLiteStore) Enroll(ctx context.Context, m classdomain.Membership) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM class_students WHERE student_id = ? AND is_active = 1`,
		m.StudentID).Scan(&existing)
	if err != nil {
		return err
	}
	if existing > 0 {
		return classdomain.ErrAlreadyEnrolled
	}

	var capacity, occupied int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(capacity, 0) FROM classes WHERE id = ? AND is_active = 1`,
		m.ClassID).Scan(&capacity)
	if err == sql.ErrNoRows {
		return fmt.Errorf("enroll: %w", classdomain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM class_students WHERE class_id = ? AND is_active = 1`,
		m.ClassID).Scan(&occupied)
	if err != nil {
		return err
	}
	if capacity > 0 && occupied >= capacity {
		return classdomain.ErrClassFull
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO class_students (id, class_id, student_id, enrollment_date, is_active, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)
		 ON CONFLICT(class_id, student_id) DO UPDATE SET
		   is_active = 1, enrollment_date = excluded.enrollment_date`,
		m.ID, m.ClassID, m.StudentID, m.EnrollmentDate, m.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE students SET class_id = ?, updated_at = ? WHERE id = ?`,
		m.ClassID, time.Now().UTC().Format(timeLayout), m.StudentID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Withdraw deactivates the student's membership in the class and clears the
// student's class link.
// POST: No active membership remains for (classID, studentID)
func (s *SQLiteStore) Withdraw(ctx context.Context, classID, studentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE class_students SET is_active = 0
		 WHERE class_id = ? AND student_id = ? AND is_active = 1`,
		classID, studentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return classdomain.ErrNotEnrolled
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE students SET class_id = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), studentID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Roster returns the class's active memberships ordered by enrollment date.
func (s *SQLiteStore) Roster(ctx context.Context, classID string) ([]classdomain.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, class_id, student_id, enrollment_date, is_active, created_at
		 FROM class_students WHERE class_id = ? AND is_active = 1
		 ORDER BY enrollment_date ASC, id ASC`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// ActiveCount returns the number of active memberships in the class.
func (s *SQLiteStore) ActiveCount(ctx context.Context, classID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM class_students WHERE class_id = ? AND is_active = 1`,
		classID).Scan(&n)
	return n, err
}

// ActiveMembership returns the student's active membership, if any.
func (s *SQLiteStore) ActiveMembership(ctx context.Context, studentID string) (classdomain.Membership, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, class_id, student_id, enrollment_date, is_active, created_at
		 FROM class_students WHERE student_id = ? AND is_active = 1`, studentID)
	m, err := scanMembership(row.Scan)
	if err == sql.ErrNoRows {
		return classdomain.Membership{}, false, nil
	}
	if err != nil {
		return classdomain.Membership{}, false, err
	}
	return m, true, nil
}

type scanFunc func(dest ...any) error

func scanClass(scan scanFunc) (classdomain.Class, error) {
	var c classdomain.Class
	var teacherID sql.NullString
	var capacity sql.NullInt64
	var active int
	var createdAt, updatedAt string
	err := scan(&c.ID, &c.Name, &c.AgeGroup, &teacherID, &capacity, &active, &createdAt, &updatedAt)
	if err != nil {
		return classdomain.Class{}, err
	}
	c.TeacherID = teacherID.String
	c.Capacity = int(capacity.Int64)
	c.Active = active != 0
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

func scanMembership(scan scanFunc) (classdomain.Membership, error) {
	var m classdomain.Membership
	var active int
	var createdAt string
	err := scan(&m.ID, &m.ClassID, &m.StudentID, &m.EnrollmentDate, &active, &createdAt)
	if err != nil {
		return classdomain.Membership{}, err
	}
	m.Active = active != 0
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}

func scanMemberships(rows *sql.Rows) ([]classdomain.Membership, error) {
	var out []classdomain.Membership
	for rows.Next() {
		m, err := scanMembership(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
