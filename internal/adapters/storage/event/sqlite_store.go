package event

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nursery/internal/adapters/storage"
	domain "nursery/internal/domain/event"
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

const eventColumns = `id, name, description, event_date, event_time, location, status,
		created_by, is_active, created_at, updated_at`

// GetByID retrieves an event by ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Event{}, fmt.Errorf("get event: %w", domain.ErrNotFound)
	}
	return e, err
}

// Save inserts or updates an event.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, name, description, event_date, event_time, location, status,
		   created_by, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, description=excluded.description, event_date=excluded.event_date,
		   event_time=excluded.event_time, location=excluded.location, status=excluded.status,
		   is_active=excluded.is_active, updated_at=excluded.updated_at`,
		e.ID, e.Name, nullableString(e.Description), e.Date, nullableString(e.Time),
		nullableString(e.Location), e.Status, nullableString(e.CreatedBy), boolToInt(e.Active),
		e.CreatedAt.UTC().Format(timeLayout), e.UpdatedAt.UTC().Format(timeLayout))
	return err
}

// SoftDelete marks an event inactive.
func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET is_active = 0, updated_at = ? WHERE id = ?`,
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

// List returns events matching the filter, soonest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []any{}
	if !filter.IncludeInactive {
		query += ` AND is_active = 1`
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.From != "" {
		query += ` AND event_date >= ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND event_date <= ?`
		args = append(args, filter.To)
	}
	query += ` ORDER BY event_date ASC, event_time ASC, id ASC`
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

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanFunc func(dest ...any) error

func scanEvent(scan scanFunc) (domain.Event, error) {
	var e domain.Event
	var description, eventTime, location, createdBy sql.NullString
	var active int
	var createdAt, updatedAt string
	err := scan(&e.ID, &e.Name, &description, &e.Date, &eventTime, &location, &e.Status,
		&createdBy, &active, &createdAt, &updatedAt)
	if err != nil {
		return domain.Event{}, err
	}
	e.Description = description.String
	e.Time = eventTime.String
	e.Location = location.String
	e.CreatedBy = createdBy.String
	e.Active = active != 0
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
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
