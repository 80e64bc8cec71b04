package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrQuiesced is returned for operations attempted while the database
// handle is released for backup or restore.
var ErrQuiesced = errors.New("database is quiesced for backup or restore")

// Manager owns the lifecycle of the local database file handle. It
// satisfies SQLDB by delegating to the currently open connection, which
// lets the handle be closed for a file-level restore and reopened without
// rebuilding the store graph.
type Manager struct {
	mu       sync.RWMutex
	path     string
	db       *sql.DB
	quiesced bool
}

// Compile-time check that *Manager satisfies SQLDB.
var _ SQLDB = (*Manager)(nil)

// Open opens the database file at path, applies the connection pragmas and
// brings the schema up to date.
// POST: Returned manager holds a migrated, ready connection
func Open(path string) (*Manager, error) {
	m := &Manager{path: path}
	if err := m.open(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) open() error {
	dsn := m.path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := MigrateDB(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	m.db = db
	m.quiesced = false
	return nil
}

// Path returns the database file path.
func (m *Manager) Path() string {
	return m.path
}

// Quiesce closes the connection and releases the database file so an
// external collaborator may copy or replace it.
// POST: All operations fail with ErrQuiesced until Resume
func (m *Manager) Quiesce() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quiesced {
		return nil
	}
	m.quiesced = true
	return m.db.Close()
}

// Resume reopens the database file after a restore and re-runs migrations,
// since the restored file may have been written by an older release.
func (m *Manager) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.quiesced {
		return nil
	}
	return m.open()
}

// Close shuts the connection down for good.
func (m *Manager) Close() error {
	return m.Quiesce()
}

// ExecContext delegates to the open connection.
func (m *Manager) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.quiesced {
		return nil, ErrQuiesced
	}
	return m.db.ExecContext(ctx, query, args...)
}

// QueryContext delegates to the open connection.
func (m *Manager) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.quiesced {
		return nil, ErrQuiesced
	}
	return m.db.QueryContext(ctx, query, args...)
}

// QueryRowContext delegates to the open connection. While quiesced the
// closed handle yields a row whose Scan reports the underlying error.
func (m *Manager) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.QueryRowContext(ctx, query, args...)
}

// BeginTx delegates to the open connection.
func (m *Manager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.quiesced {
		return nil, ErrQuiesced
	}
	return m.db.BeginTx(ctx, opts)
}
