package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// columnAdd is one optional ALTER TABLE ADD COLUMN step. Steps are applied
// only when the column is missing, so the whole list is idempotent.
type columnAdd struct {
	table  string
	column string
	ddl    string
}

// optionalColumns lists every column added after a table's first release,
// oldest first. A database created at any past version converges to the
// current shape by walking this list.
var optionalColumns = []columnAdd{
	{"users", "is_active", "INTEGER NOT NULL DEFAULT 1"},

	{"students", "national_id", "TEXT"},
	{"students", "birth_place", "TEXT"},
	{"students", "gender", "TEXT"},
	{"students", "blood_type", "TEXT"},
	{"students", "allergies", "TEXT"},
	{"students", "medical_conditions", "TEXT"},
	{"students", "tags", "TEXT"},
	{"students", "notes", "TEXT"},
	{"students", "class_id", "TEXT"},
	{"students", "graduation_date", "TEXT"},
	{"students", "status", "TEXT NOT NULL DEFAULT 'active'"},
	{"students", "is_active", "INTEGER NOT NULL DEFAULT 1"},

	{"payments", "payment_plan_id", "TEXT"},
	{"payments", "original_amount", "REAL NOT NULL DEFAULT 0"},
	{"payments", "discount_amount", "REAL DEFAULT 0"},
	{"payments", "payment_method", "TEXT"},
	{"payments", "partial_amount", "REAL DEFAULT 0"},
	{"payments", "receipt_path", "TEXT"},
	{"payments", "requires_approval", "INTEGER DEFAULT 0"},
	{"payments", "approved_by", "TEXT"},
	{"payments", "approved_at", "TEXT"},
	{"payments", "is_active", "INTEGER NOT NULL DEFAULT 1"},

	{"payment_plans", "discount_percent", "REAL DEFAULT 0"},
	{"payment_plans", "is_active", "INTEGER NOT NULL DEFAULT 1"},

	{"expenses", "is_active", "INTEGER NOT NULL DEFAULT 1"},
	{"events", "is_active", "INTEGER NOT NULL DEFAULT 1"},
	{"classes", "is_active", "INTEGER NOT NULL DEFAULT 1"},
	{"staff", "is_active", "INTEGER NOT NULL DEFAULT 1"},
	{"class_students", "is_active", "INTEGER NOT NULL DEFAULT 1"},
}

// MigrateDB brings a database of any prior version up to the current schema.
// It runs on every startup and is idempotent: a second call against an
// already-current database changes nothing.
//
// Order matters. InitDB first so brand-new files get the full schema and
// every table referenced below exists, then the additive column steps, then
// the payments table rebuild which depends on the new columns being present.
// PRE: db is a valid database connection
// POST: Schema matches the current release; existing rows are preserved
func MigrateDB(db *sql.DB) error {
	if err := InitDB(db); err != nil {
		return err
	}
	addMissingColumns(db)
	if err := rebuildPaymentsTable(db); err != nil {
		return fmt.Errorf("failed to rebuild payments table: %w", err)
	}
	return nil
}

// addMissingColumns applies every optional column the database does not have
// yet. Failures are logged and skipped rather than aborting startup: a column
// that cannot be added (for example a locked file during a concurrent start)
// will be retried on the next run.
func addMissingColumns(db *sql.DB) {
	cache := map[string]map[string]bool{}
	for _, c := range optionalColumns {
		cols, ok := cache[c.table]
		if !ok {
			var err error
			cols, err = tableColumns(db, c.table)
			if err != nil {
				slog.Warn("migration_event", "event", "table_introspect_failed", "table", c.table, "error", err)
				continue
			}
			cache[c.table] = cols
		}
		if cols[c.column] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.ddl)
		if _, err := db.Exec(stmt); err != nil {
			slog.Warn("migration_event", "event", "column_add_failed", "table", c.table, "column", c.column, "error", err)
			continue
		}
		cols[c.column] = true
		slog.Info("migration_event", "event", "column_added", "table", c.table, "column", c.column)
	}
}

// tableColumns returns the set of column names on a table via PRAGMA
// table_info. An empty map (table missing) is not an error here; the caller
// treats every column as absent and the ALTER fails loudly instead.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// paymentsCopyColumns is the explicit column list used to copy rows during
// the rebuild. The rebuild runs after addMissingColumns, so every column in
// this list exists on the legacy table by the time it is read.
var paymentsCopyColumns = []string{
	"id", "student_id", "payment_plan_id", "amount", "original_amount",
	"discount_amount", "due_date", "paid_date", "payment_method", "status",
	"partial_amount", "note", "receipt_path", "requires_approval",
	"approved_by", "approved_at", "is_active", "created_at",
}

// rebuildPaymentsTable replaces a payments table whose CHECK constraint
// predates the Partial and Cancelled statuses. SQLite cannot alter a CHECK
// in place, so the table is recreated and rows copied inside a single
// transaction. Unlike column adds, a failure here is fatal: a stale CHECK
// rejects writes the rest of the code relies on.
func rebuildPaymentsTable(db *sql.DB) error {
	var ddl string
	err := db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'payments'",
	).Scan(&ddl)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if strings.Contains(ddl, "'Partial'") && strings.Contains(ddl, "'Cancelled'") {
		return nil
	}

	slog.Info("migration_event", "event", "payments_rebuild_start")

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createNew := `
	CREATE TABLE payments_new (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		payment_plan_id TEXT,
		amount REAL NOT NULL,
		original_amount REAL NOT NULL,
		discount_amount REAL DEFAULT 0,
		due_date TEXT NOT NULL,
		paid_date TEXT,
		payment_method TEXT,
		status TEXT NOT NULL CHECK (status IN ('Paid','Pending','Overdue','Partial','Cancelled')),
		partial_amount REAL DEFAULT 0,
		note TEXT,
		receipt_path TEXT,
		requires_approval INTEGER DEFAULT 0,
		approved_by TEXT,
		approved_at TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
		FOREIGN KEY (payment_plan_id) REFERENCES payment_plans(id) ON DELETE SET NULL,
		FOREIGN KEY (approved_by) REFERENCES users(id) ON DELETE SET NULL
	)`
	if _, err := tx.Exec(createNew); err != nil {
		return err
	}

	colList := strings.Join(paymentsCopyColumns, ", ")
	copyStmt := fmt.Sprintf("INSERT INTO payments_new (%s) SELECT %s FROM payments", colList, colList)
	if _, err := tx.Exec(copyStmt); err != nil {
		return err
	}
	if _, err := tx.Exec("DROP TABLE payments"); err != nil {
		return err
	}
	if _, err := tx.Exec("ALTER TABLE payments_new RENAME TO payments"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("migration_event", "event", "payments_rebuild_done")
	return nil
}
