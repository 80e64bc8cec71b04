package activity

import (
	"context"
	"database/sql"
	"time"

	"nursery/internal/adapters/storage"
	domain "nursery/internal/domain/activity"
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

// Append inserts an entry.
// PRE: entry has been validated
func (s *SQLiteStore) Append(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, user_id, action, details, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, nullableString(e.UserID), e.Action, nullableString(e.Details),
		e.CreatedAt.UTC().Format(timeLayout))
	return err
}

// List returns entries newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Entry, error) {
	query := `SELECT id, user_id, action, details, created_at FROM activity_log WHERE 1=1`
	args := []any{}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, filter.Action)
	}
	query += ` ORDER BY created_at DESC, id DESC`
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

	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var userID, details sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &userID, &e.Action, &details, &createdAt); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.Details = details.String
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
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
