// Package storetest holds a backend-agnostic conformance suite. Every Store
// implementation must pass the same suite; the SQLite and memory backends
// are interchangeable behind the interfaces.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	accountstore "nursery/internal/adapters/storage/account"
	activitystore "nursery/internal/adapters/storage/activity"
	attendancestore "nursery/internal/adapters/storage/attendance"
	classstore "nursery/internal/adapters/storage/class"
	expensestore "nursery/internal/adapters/storage/expense"
	paymentstore "nursery/internal/adapters/storage/payment"
	settingsstore "nursery/internal/adapters/storage/settings"
	staffstore "nursery/internal/adapters/storage/staff"
	studentstore "nursery/internal/adapters/storage/student"

	"nursery/internal/domain/account"
	"nursery/internal/domain/activity"
	"nursery/internal/domain/attendance"
	"nursery/internal/domain/class"
	"nursery/internal/domain/expense"
	"nursery/internal/domain/payment"
	"nursery/internal/domain/staff"
	"nursery/internal/domain/student"
)

// Stores bundles one backend's store set.
type Stores struct {
	Students   studentstore.Store
	Classes    classstore.Store
	Attendance attendancestore.Store
	Payments   paymentstore.Store
	Expenses   expensestore.Store
	Accounts   accountstore.Store
	Activity   activitystore.Store
	Staff      staffstore.Store
	Settings   settingsstore.Store
}

// Factory builds a fresh, isolated backend for one subtest.
type Factory func(t *testing.T) Stores

// Run executes the conformance suite against the given backend.
func Run(t *testing.T, newStores Factory) {
	t.Run("StudentLifecycle", func(t *testing.T) { testStudentLifecycle(t, newStores(t)) })
	t.Run("EnrollmentInvariants", func(t *testing.T) { testEnrollmentInvariants(t, newStores(t)) })
	t.Run("AttendanceUpsert", func(t *testing.T) { testAttendanceUpsert(t, newStores(t)) })
	t.Run("AttendanceAggregates", func(t *testing.T) { testAttendanceAggregates(t, newStores(t)) })
	t.Run("PartialPayments", func(t *testing.T) { testPartialPayments(t, newStores(t)) })
	t.Run("PaymentBatchAndFilters", func(t *testing.T) { testPaymentBatchAndFilters(t, newStores(t)) })
	t.Run("Reminders", func(t *testing.T) { testReminders(t, newStores(t)) })
	t.Run("AccountUniqueness", func(t *testing.T) { testAccountUniqueness(t, newStores(t)) })
	t.Run("ExpenseTotals", func(t *testing.T) { testExpenseTotals(t, newStores(t)) })
	t.Run("ActivityAppendOrder", func(t *testing.T) { testActivityAppendOrder(t, newStores(t)) })
	t.Run("StaffLifecycle", func(t *testing.T) { testStaffLifecycle(t, newStores(t)) })
	t.Run("SettingsRoundtrip", func(t *testing.T) { testSettingsRoundtrip(t, newStores(t)) })
}

func newStudent(name string) student.Student {
	now := time.Now().UTC()
	return student.Student{
		ID:               uuid.NewString(),
		Name:             name,
		BirthDate:        "2021-05-10",
		RegistrationDate: "2025-09-01",
		Status:           student.StatusActive,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func newClass(name string, capacity int) class.Class {
	now := time.Now().UTC()
	return class.Class{
		ID:        uuid.NewString(),
		Name:      name,
		AgeGroup:  "3-4",
		Capacity:  capacity,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newMembership(classID, studentID string) class.Membership {
	return class.Membership{
		ID:             uuid.NewString(),
		ClassID:        classID,
		StudentID:      studentID,
		EnrollmentDate: "2025-09-01",
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
}

func newPayment(studentID string, amount float64, dueDate string) payment.Payment {
	return payment.Payment{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		Amount:         amount,
		OriginalAmount: amount,
		DueDate:        dueDate,
		Status:         payment.StatusPending,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
}

func mustSaveStudent(t *testing.T, s Stores, st student.Student) {
	t.Helper()
	if err := s.Students.Save(context.Background(), st); err != nil {
		t.Fatalf("save student: %v", err)
	}
}

func mustSaveClass(t *testing.T, s Stores, c class.Class) {
	t.Helper()
	if err := s.Classes.Save(context.Background(), c); err != nil {
		t.Fatalf("save class: %v", err)
	}
}

func testStudentLifecycle(t *testing.T, s Stores) {
	ctx := context.Background()

	st := newStudent("Mila Kaya")
	st.Allergies = "peanuts"
	mustSaveStudent(t, s, st)

	got, err := s.Students.GetByID(ctx, st.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Mila Kaya" || got.Allergies != "peanuts" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	got.Apply(student.Update{Notes: strPtr("picks up at 15:00")})
	if err := s.Students.Save(ctx, got); err != nil {
		t.Fatalf("save updated: %v", err)
	}
	got, err = s.Students.GetByID(ctx, st.ID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.Notes != "picks up at 15:00" {
		t.Errorf("Notes = %q after update", got.Notes)
	}
	if got.Allergies != "peanuts" {
		t.Errorf("partial update clobbered Allergies: %q", got.Allergies)
	}

	other := newStudent("Alp Arslan")
	mustSaveStudent(t, s, other)

	list, err := s.Students.List(ctx, studentstore.ListFilter{Search: "mila"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != st.ID {
		t.Errorf("search returned %d students", len(list))
	}

	if err := s.Students.SoftDelete(ctx, st.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	list, err = s.Students.List(ctx, studentstore.ListFilter{})
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	for _, x := range list {
		if x.ID == st.ID {
			t.Error("soft-deleted student still listed by default")
		}
	}
	list, err = s.Students.List(ctx, studentstore.ListFilter{IncludeInactive: true})
	if err != nil {
		t.Fatalf("List inactive: %v", err)
	}
	found := false
	for _, x := range list {
		if x.ID == st.ID && !x.Active {
			found = true
		}
	}
	if !found {
		t.Error("soft-deleted student missing from IncludeInactive list")
	}

	_, err = s.Students.GetByID(ctx, "no-such-id")
	if !errors.Is(err, student.ErrNotFound) {
		t.Errorf("GetByID unknown id: err = %v, want ErrNotFound", err)
	}
}

func testEnrollmentInvariants(t *testing.T, s Stores) {
	ctx := context.Background()

	c := newClass("Butterflies", 2)
	mustSaveClass(t, s, c)

	students := make([]student.Student, 3)
	for i, name := range []string{"Ada", "Bora", "Cem"} {
		students[i] = newStudent(name)
		mustSaveStudent(t, s, students[i])
	}

	if err := s.Classes.Enroll(ctx, newMembership(c.ID, students[0].ID)); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if err := s.Classes.Enroll(ctx, newMembership(c.ID, students[1].ID)); err != nil {
		t.Fatalf("second enroll: %v", err)
	}

	// Full class rejects a third student.
	err := s.Classes.Enroll(ctx, newMembership(c.ID, students[2].ID))
	if !errors.Is(err, class.ErrClassFull) {
		t.Errorf("enroll into full class: err = %v, want ErrClassFull", err)
	}

	// A student cannot hold two active memberships.
	other := newClass("Ladybugs", 0)
	mustSaveClass(t, s, other)
	err = s.Classes.Enroll(ctx, newMembership(other.ID, students[0].ID))
	if !errors.Is(err, class.ErrAlreadyEnrolled) {
		t.Errorf("double enroll: err = %v, want ErrAlreadyEnrolled", err)
	}

	n, err := s.Classes.ActiveCount(ctx, c.ID)
	if err != nil {
		t.Fatalf("ActiveCount: %v", err)
	}
	if n != 2 {
		t.Errorf("ActiveCount = %d, want 2", n)
	}

	// Withdraw frees the seat and the student.
	if err := s.Classes.Withdraw(ctx, c.ID, students[0].ID); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if err := s.Classes.Enroll(ctx, newMembership(other.ID, students[0].ID)); err != nil {
		t.Errorf("enroll after withdraw: %v", err)
	}
	if err := s.Classes.Enroll(ctx, newMembership(c.ID, students[2].ID)); err != nil {
		t.Errorf("enroll into freed seat: %v", err)
	}

	m, ok, err := s.Classes.ActiveMembership(ctx, students[0].ID)
	if err != nil || !ok {
		t.Fatalf("ActiveMembership: ok=%v err=%v", ok, err)
	}
	if m.ClassID != other.ID {
		t.Errorf("active membership class = %s, want %s", m.ClassID, other.ID)
	}

	roster, err := s.Classes.Roster(ctx, c.ID)
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if len(roster) != 2 {
		t.Errorf("roster size = %d, want 2", len(roster))
	}

	if err := s.Classes.Withdraw(ctx, c.ID, students[0].ID); !errors.Is(err, class.ErrNotEnrolled) {
		t.Errorf("withdraw non-member: err = %v, want ErrNotEnrolled", err)
	}
}

func testAttendanceUpsert(t *testing.T, s Stores) {
	ctx := context.Background()

	c := newClass("Bees", 0)
	mustSaveClass(t, s, c)
	st := newStudent("Deniz")
	mustSaveStudent(t, s, st)
	if err := s.Classes.Enroll(ctx, newMembership(c.ID, st.ID)); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	first := attendance.Record{
		ID: uuid.NewString(), StudentID: st.ID, ClassID: c.ID,
		Date: "2026-03-02", Status: attendance.StatusPresent,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.Attendance.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Re-marking the same day replaces, never duplicates.
	second := first
	second.ID = uuid.NewString()
	second.Status = attendance.StatusAbsent
	second.Reason = attendance.ReasonIllness
	stored, err := s.Attendance.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if stored.ID != first.ID {
		t.Errorf("re-mark returned id %s, want the original %s", stored.ID, first.ID)
	}
	if _, err := s.Attendance.GetByID(ctx, stored.ID); err != nil {
		t.Errorf("returned id must resolve: %v", err)
	}

	recs, err := s.Attendance.ListByClassDate(ctx, c.ID, "2026-03-02")
	if err != nil {
		t.Fatalf("ListByClassDate: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records for day = %d, want 1", len(recs))
	}
	if recs[0].Status != attendance.StatusAbsent || recs[0].Reason != attendance.ReasonIllness {
		t.Errorf("re-mark not applied: %+v", recs[0])
	}
	if recs[0].ID != first.ID {
		t.Errorf("re-mark replaced the row id: got %s, want %s", recs[0].ID, first.ID)
	}
}

func testAttendanceAggregates(t *testing.T, s Stores) {
	ctx := context.Background()

	c := newClass("Owls", 0)
	mustSaveClass(t, s, c)
	var ids []string
	for _, name := range []string{"Efe", "Filiz", "Gul"} {
		st := newStudent(name)
		mustSaveStudent(t, s, st)
		if err := s.Classes.Enroll(ctx, newMembership(c.ID, st.ID)); err != nil {
			t.Fatalf("enroll: %v", err)
		}
		ids = append(ids, st.ID)
	}

	day := "2026-03-03"
	records := []attendance.Record{
		{ID: uuid.NewString(), StudentID: ids[0], ClassID: c.ID, Date: day, Status: attendance.StatusPresent, CreatedAt: time.Now().UTC()},
		{ID: uuid.NewString(), StudentID: ids[1], ClassID: c.ID, Date: day, Status: attendance.StatusLate, CreatedAt: time.Now().UTC()},
	}
	if err := s.Attendance.SaveBulk(ctx, records); err != nil {
		t.Fatalf("SaveBulk: %v", err)
	}

	sum, err := s.Attendance.DaySummary(ctx, day, c.ID)
	if err != nil {
		t.Fatalf("DaySummary: %v", err)
	}
	// The third student is unmarked but still counted in Total.
	if sum.Total != 3 || sum.Present != 1 || sum.Late != 1 || sum.Absent != 0 {
		t.Errorf("summary = %+v", sum)
	}

	more := []attendance.Record{
		{ID: uuid.NewString(), StudentID: ids[0], ClassID: c.ID, Date: "2026-03-04", Status: attendance.StatusAbsent, Reason: attendance.ReasonPermission, CreatedAt: time.Now().UTC()},
		{ID: uuid.NewString(), StudentID: ids[0], ClassID: c.ID, Date: "2026-03-05", Status: attendance.StatusPresent, CreatedAt: time.Now().UTC()},
	}
	if err := s.Attendance.SaveBulk(ctx, more); err != nil {
		t.Fatalf("SaveBulk more: %v", err)
	}

	stats, err := s.Attendance.StudentStats(ctx, ids[0], "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("StudentStats: %v", err)
	}
	if stats.TotalDays != 3 || stats.PresentDays != 2 || stats.AbsentDays != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if rate := stats.AttendanceRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("attendance rate = %v", rate)
	}

	hist, err := s.Attendance.ListByStudent(ctx, ids[0], "2026-03-04", "")
	if err != nil {
		t.Fatalf("ListByStudent: %v", err)
	}
	if len(hist) != 2 {
		t.Errorf("range list = %d records, want 2", len(hist))
	}
}

func testPartialPayments(t *testing.T, s Stores) {
	ctx := context.Background()

	st := newStudent("Harun")
	mustSaveStudent(t, s, st)
	p := newPayment(st.ID, 500, "2026-04-05")
	if err := s.Payments.Save(ctx, p); err != nil {
		t.Fatalf("save payment: %v", err)
	}

	// Non-positive amounts are rejected and leave no trace.
	_, err := s.Payments.ApplyPartial(ctx, payment.InstallmentRecord{
		ID: uuid.NewString(), PaymentID: p.ID, Amount: 0, CreatedAt: time.Now().UTC(),
	}, "2026-03-20")
	if !errors.Is(err, payment.ErrNonPositiveAmount) {
		t.Fatalf("zero installment: err = %v, want ErrNonPositiveAmount", err)
	}
	hist, err := s.Payments.History(ctx, p.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 0 {
		t.Errorf("rejected installment left %d history rows", len(hist))
	}

	got, err := s.Payments.ApplyPartial(ctx, payment.InstallmentRecord{
		ID: uuid.NewString(), PaymentID: p.ID, Amount: 200, CreatedAt: time.Now().UTC(),
	}, "2026-03-20")
	if err != nil {
		t.Fatalf("first installment: %v", err)
	}
	if got.Status != payment.StatusPartial || got.PartialAmount != 200 {
		t.Errorf("after first installment: %+v", got)
	}

	got, err = s.Payments.ApplyPartial(ctx, payment.InstallmentRecord{
		ID: uuid.NewString(), PaymentID: p.ID, Amount: 300, CreatedAt: time.Now().UTC(),
	}, "2026-03-25")
	if err != nil {
		t.Fatalf("second installment: %v", err)
	}
	if got.Status != payment.StatusPaid {
		t.Errorf("status = %s after full amount, want Paid", got.Status)
	}
	if got.PaidDate != "2026-03-25" {
		t.Errorf("paid date = %q, want 2026-03-25", got.PaidDate)
	}

	// History survives and sums to the accumulator.
	hist, err = s.Payments.History(ctx, p.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history rows = %d, want 2", len(hist))
	}
	var sum float64
	for _, h := range hist {
		sum += h.Amount
	}
	if sum != got.PartialAmount {
		t.Errorf("history sum %v != partial amount %v", sum, got.PartialAmount)
	}

	stored, err := s.Payments.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != payment.StatusPaid || stored.PartialAmount != 500 {
		t.Errorf("persisted payment: %+v", stored)
	}
}

func testPaymentBatchAndFilters(t *testing.T, s Stores) {
	ctx := context.Background()

	st := newStudent("Iris")
	mustSaveStudent(t, s, st)

	pl := payment.Plan{
		ID: uuid.NewString(), StudentID: st.ID, Name: "2026 tuition",
		Type: payment.PlanMonthly, StartDate: "2026-01-01", EndDate: "2026-04-01",
		MonthlyAmount: 400, Active: true, CreatedAt: time.Now().UTC(),
	}
	if err := s.Payments.SavePlan(ctx, pl); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	var batch []payment.Payment
	for i := 0; i < 3; i++ {
		due, err := pl.DueDateForPeriod(i)
		if err != nil {
			t.Fatalf("DueDateForPeriod: %v", err)
		}
		p := newPayment(st.ID, pl.InstallmentAmount(), due)
		p.PlanID = pl.ID
		batch = append(batch, p)
	}
	if err := s.Payments.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	byPlan, err := s.Payments.List(ctx, paymentstore.ListFilter{PlanID: pl.ID})
	if err != nil {
		t.Fatalf("List by plan: %v", err)
	}
	if len(byPlan) != 3 {
		t.Fatalf("payments for plan = %d, want 3", len(byPlan))
	}
	if byPlan[0].DueDate != "2026-01-01" || byPlan[2].DueDate != "2026-03-01" {
		t.Errorf("due date order: %s .. %s", byPlan[0].DueDate, byPlan[2].DueDate)
	}

	inRange, err := s.Payments.List(ctx, paymentstore.ListFilter{
		StudentID: st.ID, DueFrom: "2026-02-01", DueTo: "2026-02-28",
	})
	if err != nil {
		t.Fatalf("List range: %v", err)
	}
	if len(inRange) != 1 {
		t.Errorf("february payments = %d, want 1", len(inRange))
	}

	if err := s.Payments.SoftDelete(ctx, batch[0].ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	byPlan, err = s.Payments.List(ctx, paymentstore.ListFilter{PlanID: pl.ID})
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	if len(byPlan) != 2 {
		t.Errorf("payments after soft delete = %d, want 2", len(byPlan))
	}

	if err := s.Payments.DeactivatePlan(ctx, pl.ID); err != nil {
		t.Fatalf("DeactivatePlan: %v", err)
	}
	plans, err := s.Payments.ListPlans(ctx, st.ID, false)
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("active plans after deactivate = %d, want 0", len(plans))
	}
}

func testReminders(t *testing.T, s Stores) {
	ctx := context.Background()

	st := newStudent("Jale")
	mustSaveStudent(t, s, st)
	p := newPayment(st.ID, 300, "2026-05-05")
	if err := s.Payments.Save(ctx, p); err != nil {
		t.Fatalf("save payment: %v", err)
	}

	due := payment.Reminder{
		ID: uuid.NewString(), PaymentID: p.ID, StudentID: st.ID,
		Type: payment.ReminderEmail, ReminderDate: "2026-05-01",
		DaysBeforeDue: 4, Status: payment.ReminderPending, Message: "Tuition due soon",
	}
	future := payment.Reminder{
		ID: uuid.NewString(), PaymentID: p.ID, StudentID: st.ID,
		Type: payment.ReminderInApp, ReminderDate: "2026-06-01",
		Status: payment.ReminderPending,
	}
	for _, r := range []payment.Reminder{due, future} {
		if err := s.Payments.SaveReminder(ctx, r); err != nil {
			t.Fatalf("SaveReminder: %v", err)
		}
	}

	pending, err := s.Payments.ListDueReminders(ctx, "2026-05-02")
	if err != nil {
		t.Fatalf("ListDueReminders: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != due.ID {
		t.Fatalf("due reminders = %d", len(pending))
	}

	if err := s.Payments.MarkReminder(ctx, due.ID, payment.ReminderSent, "2026-05-02T08:00:00Z"); err != nil {
		t.Fatalf("MarkReminder: %v", err)
	}
	pending, err = s.Payments.ListDueReminders(ctx, "2026-05-02")
	if err != nil {
		t.Fatalf("ListDueReminders after mark: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("sent reminder still listed as due")
	}
}

func testAccountUniqueness(t *testing.T, s Stores) {
	ctx := context.Background()

	u := account.User{
		ID: uuid.NewString(), Username: "gatekeeper", PasswordHash: "x",
		Role: account.RoleStaff, Active: true, CreatedAt: time.Now().UTC(),
	}
	if err := s.Accounts.Save(ctx, u); err != nil {
		t.Fatalf("save user: %v", err)
	}

	dup := account.User{
		ID: uuid.NewString(), Username: "gatekeeper", PasswordHash: "y",
		Role: account.RoleStaff, Active: true, CreatedAt: time.Now().UTC(),
	}
	if err := s.Accounts.Save(ctx, dup); !errors.Is(err, account.ErrUsernameTaken) {
		t.Errorf("duplicate username: err = %v, want ErrUsernameTaken", err)
	}

	got, err := s.Accounts.GetByUsername(ctx, "gatekeeper")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetByUsername returned wrong user")
	}

	if err := s.Accounts.SoftDelete(ctx, u.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	list, err := s.Accounts.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, x := range list {
		if x.ID == u.ID {
			t.Error("deactivated user still listed")
		}
	}
}

func testExpenseTotals(t *testing.T, s Stores) {
	ctx := context.Background()

	entries := []expense.Expense{
		{ID: uuid.NewString(), Category: "food", Amount: 120, Date: "2026-02-03", Active: true, CreatedAt: time.Now().UTC()},
		{ID: uuid.NewString(), Category: "food", Amount: 80, Date: "2026-02-18", Active: true, CreatedAt: time.Now().UTC()},
		{ID: uuid.NewString(), Category: "utilities", Amount: 200, Date: "2026-02-10", Active: true, CreatedAt: time.Now().UTC()},
		{ID: uuid.NewString(), Category: "food", Amount: 999, Date: "2026-03-01", Active: true, CreatedAt: time.Now().UTC()},
	}
	for _, e := range entries {
		if err := s.Expenses.Save(ctx, e); err != nil {
			t.Fatalf("save expense: %v", err)
		}
	}

	totals, err := s.Expenses.TotalByCategory(ctx, "2026-02-01", "2026-02-28")
	if err != nil {
		t.Fatalf("TotalByCategory: %v", err)
	}
	if totals["food"] != 200 || totals["utilities"] != 200 {
		t.Errorf("totals = %v", totals)
	}

	if err := s.Expenses.SoftDelete(ctx, entries[0].ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	totals, err = s.Expenses.TotalByCategory(ctx, "2026-02-01", "2026-02-28")
	if err != nil {
		t.Fatalf("TotalByCategory after delete: %v", err)
	}
	if totals["food"] != 80 {
		t.Errorf("food total after delete = %v, want 80", totals["food"])
	}
}

func testActivityAppendOrder(t *testing.T, s Stores) {
	ctx := context.Background()

	base := time.Now().UTC()
	for i, action := range []string{"student_created", "payment_applied", "student_created"} {
		e := activity.Entry{
			ID: uuid.NewString(), UserID: "u1", Action: action,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Activity.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	list, err := s.Activity.List(ctx, activitystore.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("entries = %d, want 3", len(list))
	}
	if list[0].Action != "student_created" || list[0].CreatedAt.Before(list[2].CreatedAt) {
		t.Errorf("entries not newest-first: %+v", list)
	}

	filtered, err := s.Activity.List(ctx, activitystore.ListFilter{Action: "payment_applied"})
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("filtered entries = %d, want 1", len(filtered))
	}
}

func testSettingsRoundtrip(t *testing.T, s Stores) {
	ctx := context.Background()

	if _, ok, err := s.Settings.Get(ctx, "school_name"); err != nil || ok {
		t.Fatalf("Get missing key: ok=%v err=%v", ok, err)
	}
	if err := s.Settings.Set(ctx, "school_name", "Sunflower Kindergarten"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Settings.Set(ctx, "school_name", "Sunflower Nursery"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := s.Settings.Get(ctx, "school_name")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if v != "Sunflower Nursery" {
		t.Errorf("value = %q", v)
	}
	all, err := s.Settings.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("settings count = %d, want 1", len(all))
	}
}

func testStaffLifecycle(t *testing.T, s Stores) {
	ctx := context.Background()

	member := staff.Staff{
		ID: uuid.NewString(), Name: "Nur Aksoy", Role: "teacher",
		HireDate: "2024-09-01", Active: true,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	if err := s.Staff.Save(ctx, member); err != nil {
		t.Fatalf("save staff: %v", err)
	}

	got, err := s.Staff.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Nur Aksoy" || got.HireDate != "2024-09-01" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if err := s.Staff.SoftDelete(ctx, member.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	list, err := s.Staff.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("deactivated staff still listed")
	}
}

func strPtr(s string) *string { return &s }
