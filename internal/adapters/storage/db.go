package storage

import (
	"database/sql"
	"fmt"
)

// InitDB creates the current schema. Every statement uses IF NOT EXISTS so
// the call is harmless on an existing file; tables created by an older
// release keep their old shape and are brought up to date by MigrateDB.
// Foreign-key targets are declared before the tables that reference them.
// PRE: db is a valid database connection
// POST: All current tables exist, WAL mode and foreign keys enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'staff',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		department TEXT,
		phone TEXT,
		email TEXT,
		photo_path TEXT,
		hire_date TEXT,
		salary REAL,
		notes TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS classes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		age_group TEXT NOT NULL,
		teacher_id TEXT,
		capacity INTEGER,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (teacher_id) REFERENCES staff(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		national_id TEXT,
		birth_date TEXT,
		birth_place TEXT,
		gender TEXT,
		blood_type TEXT,
		address TEXT,
		allergies TEXT,
		medical_conditions TEXT,
		tags TEXT,
		notes TEXT,
		photo_path TEXT,
		class_id TEXT,
		registration_date TEXT,
		graduation_date TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS class_students (
		id TEXT PRIMARY KEY,
		class_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		enrollment_date TEXT NOT NULL DEFAULT (date('now')),
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE CASCADE,
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
		UNIQUE(class_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		class_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late', 'early_leave')),
		reason TEXT,
		notes TEXT,
		marked_by TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
		FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE CASCADE,
		FOREIGN KEY (marked_by) REFERENCES users(id) ON DELETE SET NULL,
		UNIQUE(student_id, class_id, date)
	);

	CREATE TABLE IF NOT EXISTS payment_plans (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		plan_name TEXT NOT NULL,
		plan_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		monthly_amount REAL NOT NULL,
		total_amount REAL,
		discount_amount REAL DEFAULT 0,
		discount_percent REAL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS payments (
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
	);

	CREATE TABLE IF NOT EXISTS payment_history (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		amount REAL NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (payment_id) REFERENCES payments(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS payment_reminders (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		reminder_type TEXT NOT NULL,
		reminder_date TEXT NOT NULL,
		days_before_due INTEGER NOT NULL DEFAULT 0,
		sent_at TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		message TEXT,
		FOREIGN KEY (payment_id) REFERENCES payments(id) ON DELETE CASCADE,
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		description TEXT,
		amount REAL NOT NULL,
		expense_date TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		event_date TEXT NOT NULL,
		event_time TEXT,
		location TEXT,
		status TEXT NOT NULL DEFAULT 'planned' CHECK (status IN ('planned', 'ongoing', 'completed', 'cancelled')),
		created_by TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS student_vaccinations (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		vaccine_name TEXT NOT NULL,
		vaccine_date TEXT NOT NULL,
		next_dose_date TEXT,
		notes TEXT,
		FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity_log (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		action TEXT NOT NULL,
		details TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
