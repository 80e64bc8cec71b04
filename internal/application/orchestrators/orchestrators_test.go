package orchestrators

import (
	"context"
	"testing"
	"time"

	activitystore "nursery/internal/adapters/storage/activity"
	classstore "nursery/internal/adapters/storage/class"
	studentstore "nursery/internal/adapters/storage/student"
	"nursery/internal/domain/account"
	classdomain "nursery/internal/domain/class"
	studentdomain "nursery/internal/domain/student"
)

var fixedTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func testNow() time.Time { return fixedTime }

func adminPrincipal() account.Principal {
	return account.Principal{UserID: "u-admin", Username: "admin", Role: account.RoleAdmin}
}

func staffPrincipal() account.Principal {
	return account.Principal{UserID: "u-staff", Username: "teacher", Role: account.RoleStaff}
}

func newActivityLog() *activitystore.MemoryStore {
	return activitystore.NewMemoryStore()
}

func seedStudent(t *testing.T, store *studentstore.MemoryStore, id, name string) studentdomain.Student {
	t.Helper()
	st := studentdomain.Student{
		ID:               id,
		Name:             name,
		RegistrationDate: "2026-01-15",
		Status:           studentdomain.StatusActive,
		Active:           true,
		CreatedAt:        fixedTime,
	}
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("seed student %s: %v", id, err)
	}
	return st
}

func seedClass(t *testing.T, store *classstore.MemoryStore, id, name string, capacity int) classdomain.Class {
	t.Helper()
	c := classdomain.Class{
		ID:        id,
		Name:      name,
		AgeGroup:  "4-5",
		Capacity:  capacity,
		Active:    true,
		CreatedAt: fixedTime,
	}
	if err := store.Save(context.Background(), c); err != nil {
		t.Fatalf("seed class %s: %v", id, err)
	}
	return c
}

func seedMembership(t *testing.T, store *classstore.MemoryStore, classID, studentID string) {
	t.Helper()
	m := classdomain.Membership{
		ID:             "m-" + studentID,
		ClassID:        classID,
		StudentID:      studentID,
		EnrollmentDate: "2026-02-01",
		Active:         true,
		CreatedAt:      fixedTime,
	}
	if err := store.Enroll(context.Background(), m); err != nil {
		t.Fatalf("seed membership %s/%s: %v", classID, studentID, err)
	}
}
