package projections

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	attendancestore "nursery/internal/adapters/storage/attendance"
	classstore "nursery/internal/adapters/storage/class"
	expensestore "nursery/internal/adapters/storage/expense"
	paymentstore "nursery/internal/adapters/storage/payment"
	studentstore "nursery/internal/adapters/storage/student"
	attendancedomain "nursery/internal/domain/attendance"
	classdomain "nursery/internal/domain/class"
	expensedomain "nursery/internal/domain/expense"
	"nursery/internal/domain/payment"
	studentdomain "nursery/internal/domain/student"
)

var reportClock = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	students   *studentstore.MemoryStore
	classes    *classstore.MemoryStore
	attendance *attendancestore.MemoryStore
	payments   *paymentstore.MemoryStore
	expenses   *expensestore.MemoryStore
}

func newFixture() fixture {
	students := studentstore.NewMemoryStore()
	classes := classstore.NewMemoryStore(students)
	return fixture{
		students:   students,
		classes:    classes,
		attendance: attendancestore.NewMemoryStore(classes),
		payments:   paymentstore.NewMemoryStore(),
		expenses:   expensestore.NewMemoryStore(),
	}
}

func (f fixture) dashboardDeps() GetDashboardDeps {
	return GetDashboardDeps{
		StudentStore:    f.students,
		ClassStore:      f.classes,
		AttendanceStore: f.attendance,
		PaymentStore:    f.payments,
		ExpenseStore:    f.expenses,
	}
}

func (f fixture) financeDeps() GetFinanceReportDeps {
	return GetFinanceReportDeps{
		PaymentStore: f.payments,
		ExpenseStore: f.expenses,
	}
}

func (f fixture) seedStudent(t *testing.T, id string) {
	t.Helper()
	st := studentdomain.Student{
		ID:               id,
		Name:             "Student " + id,
		RegistrationDate: "2026-01-15",
		Status:           studentdomain.StatusActive,
		Active:           true,
	}
	if err := f.students.Save(context.Background(), st); err != nil {
		t.Fatalf("seed student %s: %v", id, err)
	}
}

func (f fixture) seedClassWithRoster(t *testing.T, classID string, studentIDs ...string) {
	t.Helper()
	ctx := context.Background()
	c := classdomain.Class{ID: classID, Name: "Class " + classID, Capacity: 20, Active: true}
	if err := f.classes.Save(ctx, c); err != nil {
		t.Fatalf("seed class %s: %v", classID, err)
	}
	for _, sid := range studentIDs {
		f.seedStudent(t, sid)
		m := classdomain.Membership{
			ID:             "m-" + sid,
			ClassID:        classID,
			StudentID:      sid,
			EnrollmentDate: "2026-02-01",
			Active:         true,
		}
		if err := f.classes.Enroll(ctx, m); err != nil {
			t.Fatalf("seed membership %s: %v", sid, err)
		}
	}
}

func (f fixture) seedPayment(t *testing.T, id, dueDate string, amount float64) {
	t.Helper()
	p := payment.Payment{
		ID:        id,
		StudentID: "s1",
		Amount:    amount,
		DueDate:   dueDate,
		Status:    payment.StatusPending,
		Active:    true,
	}
	if err := f.payments.Save(context.Background(), p); err != nil {
		t.Fatalf("seed payment %s: %v", id, err)
	}
}

func (f fixture) payInstallment(t *testing.T, paymentID string, amount float64, at time.Time) {
	t.Helper()
	rec := payment.InstallmentRecord{
		ID:        "h-" + paymentID + "-" + at.Format("20060102"),
		PaymentID: paymentID,
		Amount:    amount,
		CreatedAt: at,
	}
	if _, err := f.payments.ApplyPartial(context.Background(), rec, at.Format("2006-01-02")); err != nil {
		t.Fatalf("pay installment %s: %v", paymentID, err)
	}
}

func (f fixture) seedExpense(t *testing.T, id, category, date string, amount float64) {
	t.Helper()
	e := expensedomain.Expense{
		ID:       id,
		Category: category,
		Amount:   amount,
		Date:     date,
		Active:   true,
	}
	if err := f.expenses.Save(context.Background(), e); err != nil {
		t.Fatalf("seed expense %s: %v", id, err)
	}
}

func TestQueryGetDashboard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.seedClassWithRoster(t, "c1", "s1", "s2")
	if _, err := f.attendance.Upsert(ctx, attendancedomain.Record{
		ID:        "a1",
		StudentID: "s1",
		ClassID:   "c1",
		Date:      "2026-03-10",
		Status:    attendancedomain.StatusPresent,
	}); err != nil {
		t.Fatalf("seed attendance: %v", err)
	}

	f.seedPayment(t, "p-overdue", "2026-02-15", 400)
	f.seedPayment(t, "p-open", "2026-04-15", 400)
	f.seedPayment(t, "p-paid", "2026-03-05", 100)
	f.payInstallment(t, "p-paid", 100, reportClock)

	f.seedExpense(t, "e1", "food", "2026-03-03", 120)
	f.seedExpense(t, "e2", "maintenance", "2026-02-20", 80)

	result, err := QueryGetDashboard(ctx, f.dashboardDeps(), reportClock)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if result.ActiveStudents != 2 {
		t.Errorf("expected 2 active students, got %d", result.ActiveStudents)
	}
	if result.ActiveClasses != 1 {
		t.Errorf("expected 1 active class, got %d", result.ActiveClasses)
	}
	if result.Today.Total != 2 || result.Today.Present != 1 {
		t.Errorf("unexpected day summary %+v", result.Today)
	}
	if result.MonthIncome != 100 {
		t.Errorf("expected march income 100, got %v", result.MonthIncome)
	}
	if result.MonthExpense != 120 {
		t.Errorf("expected march expense 120, got %v", result.MonthExpense)
	}
	if result.OverduePayments != 1 {
		t.Errorf("expected 1 overdue payment, got %d", result.OverduePayments)
	}
	if result.PendingPayments != 1 {
		t.Errorf("expected 1 pending payment, got %d", result.PendingPayments)
	}
}

func TestQueryGetFinanceReport(t *testing.T) {
	f := newFixture()
	f.seedStudent(t, "s1")

	f.seedPayment(t, "p1", "2026-01-15", 400)
	f.seedPayment(t, "p2", "2026-02-15", 400)
	f.payInstallment(t, "p1", 400, time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC))
	f.payInstallment(t, "p2", 150, time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC))

	f.seedExpense(t, "e1", "food", "2026-01-10", 90)
	f.seedExpense(t, "e2", "food", "2026-02-05", 60)
	f.seedExpense(t, "e3", "toys", "2026-02-07", 40)

	report, err := QueryGetFinanceReport(context.Background(), GetFinanceReportQuery{
		From: "2026-01-01",
		To:   "2026-03-31",
	}, f.financeDeps())
	if err != nil {
		t.Fatalf("finance report: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 month rows, got %d", len(report.Rows))
	}

	jan := report.Rows[0]
	if jan.Month != "2026-01" || jan.Income != 400 || jan.Expense != 90 || jan.Net != 310 {
		t.Errorf("unexpected january row %+v", jan)
	}
	feb := report.Rows[1]
	if feb.Month != "2026-02" || feb.Income != 150 || feb.Expense != 100 || feb.Net != 50 {
		t.Errorf("unexpected february row %+v", feb)
	}
	if report.TotalIncome != 550 || report.TotalExpense != 190 {
		t.Errorf("unexpected totals %+v", report)
	}
}

func TestQueryGetYearlyReport(t *testing.T) {
	f := newFixture()
	f.seedStudent(t, "s1")
	f.seedPayment(t, "p1", "2025-12-15", 400)
	f.seedPayment(t, "p2", "2026-01-15", 400)
	f.payInstallment(t, "p1", 400, time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC))
	f.payInstallment(t, "p2", 400, time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC))

	report, err := QueryGetYearlyReport(context.Background(), 2026, f.financeDeps())
	if err != nil {
		t.Fatalf("yearly report: %v", err)
	}
	// December 2025 stays out of the 2026 report.
	if report.TotalIncome != 400 {
		t.Errorf("expected income 400, got %v", report.TotalIncome)
	}
}

func TestWriteFinanceCSV(t *testing.T) {
	report := FinanceReportResult{
		Rows: []MonthlyReportRow{
			{Month: "2026-01", Income: 400, Expense: 90, Net: 310},
			{Month: "2026-02", Income: 150, Expense: 100, Net: 50},
		},
		TotalIncome:  550,
		TotalExpense: 190,
	}

	var buf bytes.Buffer
	if err := WriteFinanceCSV(&buf, report); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 csv lines, got %d", len(lines))
	}
	if lines[0] != "month,income,expense,net" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "2026-01,400.00,90.00,310.00" {
		t.Errorf("unexpected row %q", lines[1])
	}
	if lines[3] != "total,550.00,190.00,360.00" {
		t.Errorf("unexpected totals %q", lines[3])
	}
}
