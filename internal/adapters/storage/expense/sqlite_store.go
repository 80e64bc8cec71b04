package expense

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nursery/internal/adapters/storage"
	domain "nursery/internal/domain/expense"
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

const expenseColumns = `id, category, description, amount, expense_date, is_active, created_at`

// GetByID retrieves an expense by ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Expense{}, fmt.Errorf("get expense: %w", domain.ErrNotFound)
	}
	return e, err
}

// Save inserts or updates an expense.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, e domain.Expense) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, category, description, amount, expense_date, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   category=excluded.category, description=excluded.description, amount=excluded.amount,
		   expense_date=excluded.expense_date, is_active=excluded.is_active`,
		e.ID, e.Category, nullableString(e.Description), e.Amount, e.Date,
		boolToInt(e.Active), e.CreatedAt.UTC().Format(timeLayout))
	return err
}

// SoftDelete marks an expense inactive.
func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE expenses SET is_active = 0 WHERE id = ?`, id)
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

// List returns expenses matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	args := []any{}
	if !filter.IncludeInactive {
		query += ` AND is_active = 1`
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.From != "" {
		query += ` AND expense_date >= ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND expense_date <= ?`
		args = append(args, filter.To)
	}
	query += ` ORDER BY expense_date DESC, id DESC`
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

	var out []domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TotalByCategory sums active expenses per category in the date range.
func (s *SQLiteStore) TotalByCategory(ctx context.Context, from, to string) (map[string]float64, error) {
	query := `SELECT category, SUM(amount) FROM expenses WHERE is_active = 1`
	args := []any{}
	if from != "" {
		query += ` AND expense_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND expense_date <= ?`
		args = append(args, to)
	}
	query += ` GROUP BY category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]float64{}
	for rows.Next() {
		var category string
		var total float64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, err
		}
		totals[category] = total
	}
	return totals, rows.Err()
}

type scanFunc func(dest ...any) error

func scanExpense(scan scanFunc) (domain.Expense, error) {
	var e domain.Expense
	var description sql.NullString
	var active int
	var createdAt string
	err := scan(&e.ID, &e.Category, &description, &e.Amount, &e.Date, &active, &createdAt)
	if err != nil {
		return domain.Expense{}, err
	}
	e.Description = description.String
	e.Active = active != 0
	e.CreatedAt = parseTime(createdAt)
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
