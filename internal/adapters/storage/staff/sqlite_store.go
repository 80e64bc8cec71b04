package staff

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nursery/internal/adapters/storage"
	domain "nursery/internal/domain/staff"
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

const staffColumns = `id, name, role, department, phone, email, photo_path, hire_date,
		salary, notes, is_active, created_at, updated_at`

// GetByID retrieves a staff member by ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Staff, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = ?`, id)
	st, err := scanStaff(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Staff{}, fmt.Errorf("get staff: %w", domain.ErrNotFound)
	}
	return st, err
}

// Save inserts or updates a staff member.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, st domain.Staff) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO staff (id, name, role, department, phone, email, photo_path, hire_date,
		   salary, notes, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, role=excluded.role, department=excluded.department,
		   phone=excluded.phone, email=excluded.email, photo_path=excluded.photo_path,
		   hire_date=excluded.hire_date, salary=excluded.salary, notes=excluded.notes,
		   is_active=excluded.is_active, updated_at=excluded.updated_at`,
		st.ID, st.Name, st.Role, nullableString(st.Department), nullableString(st.Phone),
		nullableString(st.Email), nullableString(st.PhotoPath), nullableString(st.HireDate),
		st.Salary, nullableString(st.Notes), boolToInt(st.Active),
		st.CreatedAt.UTC().Format(timeLayout), st.UpdatedAt.UTC().Format(timeLayout))
	return err
}

// SoftDelete marks a staff member inactive.
func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE staff SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns staff ordered by name.
func (s *SQLiteStore) List(ctx context.Context, includeInactive bool) ([]domain.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Staff
	for rows.Next() {
		st, err := scanStaff(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type scanFunc func(dest ...any) error

func scanStaff(scan scanFunc) (domain.Staff, error) {
	var st domain.Staff
	var department, phone, email, photoPath, hireDate, notes sql.NullString
	var salary sql.NullFloat64
	var active int
	var createdAt, updatedAt string
	err := scan(&st.ID, &st.Name, &st.Role, &department, &phone, &email, &photoPath,
		&hireDate, &salary, &notes, &active, &createdAt, &updatedAt)
	if err != nil {
		return domain.Staff{}, err
	}
	st.Department = department.String
	st.Phone = phone.String
	st.Email = email.String
	st.PhotoPath = photoPath.String
	st.HireDate = hireDate.String
	st.Salary = salary.Float64
	st.Notes = notes.String
	st.Active = active != 0
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	return st, nil
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
