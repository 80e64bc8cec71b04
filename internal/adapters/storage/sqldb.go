package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

// SQLDB is the database interface used by all stores.
// *sql.DB, *Manager and *TimedDB all satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Compile-time check that *sql.DB satisfies SQLDB.
var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

var slowQueryThreshold time.Duration
var slowQueryOnce sync.Once

// getSlowQueryThreshold returns the slow-query warning threshold.
func getSlowQueryThreshold() time.Duration {
	slowQueryOnce.Do(func() {
		ms := DefaultSlowQueryMs
		if v := os.Getenv("NURSERY_SLOW_QUERY_MS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				ms = n
			}
		}
		slowQueryThreshold = time.Duration(ms) * time.Millisecond
	})
	return slowQueryThreshold
}

// TimedDB wraps an SQLDB to log slow queries via slog. It satisfies SQLDB
// so it can be passed to any store constructor.
type TimedDB struct {
	db        SQLDB
	threshold time.Duration
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps an SQLDB with slow-query logging.
// PRE: db is a valid database handle
func NewTimedDB(db SQLDB) *TimedDB {
	return &TimedDB{db: db, threshold: getSlowQueryThreshold()}
}

func (t *TimedDB) observe(query string, start time.Time) {
	elapsed := time.Since(start)
	if elapsed >= t.threshold {
		slog.Warn("slow_query", "elapsed_ms", elapsed.Milliseconds(), "query", truncateQuery(query))
	}
}

// ExecContext executes a statement and logs it if slow.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	defer t.observe(query, start)
	return t.db.ExecContext(ctx, query, args...)
}

// QueryContext runs a query and logs it if slow.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	defer t.observe(query, start)
	return t.db.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query and logs it if slow.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	defer t.observe(query, start)
	return t.db.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return t.db.BeginTx(ctx, opts)
}

// truncateQuery limits query text in log output.
func truncateQuery(query string) string {
	const max = 120
	if len(query) <= max {
		return query
	}
	return query[:max] + "..."
}
