package storetest

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"nursery/internal/adapters/storage"
	accountstore "nursery/internal/adapters/storage/account"
	activitystore "nursery/internal/adapters/storage/activity"
	attendancestore "nursery/internal/adapters/storage/attendance"
	classstore "nursery/internal/adapters/storage/class"
	expensestore "nursery/internal/adapters/storage/expense"
	paymentstore "nursery/internal/adapters/storage/payment"
	settingsstore "nursery/internal/adapters/storage/settings"
	staffstore "nursery/internal/adapters/storage/staff"
	studentstore "nursery/internal/adapters/storage/student"
)

// newSQLiteStores builds the suite's store set over a fresh in-memory
// database. One connection: the in-memory database lives on it.
func newSQLiteStores(t *testing.T) Stores {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return Stores{
		Students:   studentstore.NewSQLiteStore(db),
		Classes:    classstore.NewSQLiteStore(db),
		Attendance: attendancestore.NewSQLiteStore(db),
		Payments:   paymentstore.NewSQLiteStore(db),
		Expenses:   expensestore.NewSQLiteStore(db),
		Accounts:   accountstore.NewSQLiteStore(db),
		Activity:   activitystore.NewSQLiteStore(db),
		Staff:      staffstore.NewSQLiteStore(db),
		Settings:   settingsstore.NewSQLiteStore(db),
	}
}

// newMemoryStores builds the suite's store set over the memory backend,
// wired the same way the server wires it.
func newMemoryStores(t *testing.T) Stores {
	t.Helper()
	students := studentstore.NewMemoryStore()
	classes := classstore.NewMemoryStore(students)
	return Stores{
		Students:   students,
		Classes:    classes,
		Attendance: attendancestore.NewMemoryStore(classes),
		Payments:   paymentstore.NewMemoryStore(),
		Expenses:   expensestore.NewMemoryStore(),
		Accounts:   accountstore.NewMemoryStore(),
		Activity:   activitystore.NewMemoryStore(),
		Staff:      staffstore.NewMemoryStore(),
		Settings:   settingsstore.NewMemoryStore(),
	}
}

func TestSQLiteStores(t *testing.T) {
	Run(t, newSQLiteStores)
}

func TestMemoryStores(t *testing.T) {
	Run(t, newMemoryStores)
}
