package orchestrators

import (
	"context"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"nursery/internal/adapters/storage"
	studentstore "nursery/internal/adapters/storage/student"
)

func TestExecuteBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	mgr, err := storage.Open(filepath.Join(dir, "nursery.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer mgr.Close()

	ctx := context.Background()
	students := studentstore.NewSQLiteStore(mgr)
	deps := BackupDeps{
		Manager:       mgr,
		ActivityStore: newActivityLog(),
		Now:           testNow,
	}

	studentDeps := StudentDeps{StudentStore: students, ActivityStore: newActivityLog()}
	created, err := ExecuteCreateStudent(ctx, adminPrincipal(), CreateStudentInput{Name: "Ada Demir"}, studentDeps)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}

	backupPath, err := ExecuteBackup(ctx, adminPrincipal(), filepath.Join(dir, "backups"), deps)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}

	// Mutate after the snapshot, then restore over it.
	if err := ExecuteDeleteStudent(ctx, adminPrincipal(), created.ID, studentDeps); err != nil {
		t.Fatalf("delete student: %v", err)
	}
	if err := ExecuteRestore(ctx, adminPrincipal(), backupPath, deps); err != nil {
		t.Fatalf("restore: %v", err)
	}

	st, err := students.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get student after restore: %v", err)
	}
	if !st.Active {
		t.Error("expected the restored student to be active again")
	}
}

func TestExecuteRestoreMissingFile(t *testing.T) {
	dir := t.TempDir()
	mgr, err := storage.Open(filepath.Join(dir, "nursery.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer mgr.Close()

	deps := BackupDeps{Manager: mgr, ActivityStore: newActivityLog(), Now: testNow}
	if err := ExecuteRestore(context.Background(), adminPrincipal(), filepath.Join(dir, "missing.db"), deps); err == nil {
		t.Fatal("expected error for missing backup file")
	}

	// The live database is still usable.
	students := studentstore.NewSQLiteStore(mgr)
	if _, err := ExecuteCreateStudent(context.Background(), adminPrincipal(), CreateStudentInput{Name: "Ada Demir"}, StudentDeps{
		StudentStore:  students,
		ActivityStore: newActivityLog(),
	}); err != nil {
		t.Fatalf("create after failed restore: %v", err)
	}
}
