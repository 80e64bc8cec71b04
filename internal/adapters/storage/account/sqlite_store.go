package account

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"nursery/internal/adapters/storage"
	domain "nursery/internal/domain/account"
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

const userColumns = `id, username, password_hash, role, is_active, created_at`

// GetByID retrieves a user by ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return domain.User{}, fmt.Errorf("get user: %w", domain.ErrNotFound)
	}
	return u, err
}

// GetByUsername retrieves a user by username.
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return domain.User{}, fmt.Errorf("get user by username: %w", domain.ErrNotFound)
	}
	return u, err
}

// Save inserts or updates a user. A username collision on insert surfaces
// as domain.ErrUsernameTaken.
// PRE: entity has been validated, password hash is set
func (s *SQLiteStore) Save(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   username=excluded.username, password_hash=excluded.password_hash,
		   role=excluded.role, is_active=excluded.is_active`,
		u.ID, u.Username, u.PasswordHash, u.Role, boolToInt(u.Active),
		u.CreatedAt.UTC().Format(timeLayout))
	if err != nil && isUniqueViolation(err) {
		return domain.ErrUsernameTaken
	}
	return err
}

// SoftDelete marks a user inactive. Inactive users cannot log in.
func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = 0 WHERE id = ?`, id)
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

// List returns users ordered by username.
func (s *SQLiteStore) List(ctx context.Context, includeInactive bool) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY username ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanFunc func(dest ...any) error

func scanUser(scan scanFunc) (domain.User, error) {
	var u domain.User
	var active int
	var createdAt string
	err := scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &active, &createdAt)
	if err != nil {
		return domain.User{}, err
	}
	u.Active = active != 0
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

// isUniqueViolation sniffs the driver error text; modernc.org/sqlite has no
// exported error codes for this.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func parseTime(raw string) time.Time {
	if t, err := time.Parse(timeLayout, raw); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", raw)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
