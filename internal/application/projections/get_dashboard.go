package projections

import (
	"context"
	"time"

	classstore "nursery/internal/adapters/storage/class"
	paymentstore "nursery/internal/adapters/storage/payment"
	studentstore "nursery/internal/adapters/storage/student"
	attendancedomain "nursery/internal/domain/attendance"
	classdomain "nursery/internal/domain/class"
	"nursery/internal/domain/payment"
	studentdomain "nursery/internal/domain/student"
)

// DashboardStudentStore defines the student store interface needed by the dashboard projection.
type DashboardStudentStore interface {
	List(ctx context.Context, filter studentstore.ListFilter) ([]studentdomain.Student, error)
}

// DashboardClassStore defines the class store interface needed by the dashboard projection.
type DashboardClassStore interface {
	List(ctx context.Context, filter classstore.ListFilter) ([]classdomain.Class, error)
}

// DashboardAttendanceStore defines the attendance store interface needed by the dashboard projection.
type DashboardAttendanceStore interface {
	DaySummary(ctx context.Context, date, classID string) (attendancedomain.DaySummary, error)
}

// DashboardPaymentStore defines the payment store interface needed by the dashboard projection.
type DashboardPaymentStore interface {
	List(ctx context.Context, filter paymentstore.ListFilter) ([]payment.Payment, error)
	Installments(ctx context.Context, from, to string) ([]payment.InstallmentRecord, error)
}

// DashboardExpenseStore defines the expense store interface needed by the dashboard projection.
type DashboardExpenseStore interface {
	TotalByCategory(ctx context.Context, from, to string) (map[string]float64, error)
}

// GetDashboardDeps holds dependencies for QueryGetDashboard.
type GetDashboardDeps struct {
	StudentStore    DashboardStudentStore
	ClassStore      DashboardClassStore
	AttendanceStore DashboardAttendanceStore
	PaymentStore    DashboardPaymentStore
	ExpenseStore    DashboardExpenseStore
}

// DashboardResult is the landing-page aggregate.
type DashboardResult struct {
	ActiveStudents  int
	ActiveClasses   int
	Today           attendancedomain.DaySummary
	MonthIncome     float64
	MonthExpense    float64
	PendingPayments int
	OverduePayments int
}

// QueryGetDashboard assembles the counts and current-month sums shown on the
// dashboard. Overdue is derived from due dates at read time; stored statuses
// are never rewritten here.
func QueryGetDashboard(ctx context.Context, deps GetDashboardDeps, now time.Time) (DashboardResult, error) {
	today := now.UTC().Format("2006-01-02")
	monthFrom, monthTo := monthBounds(now.UTC())

	students, err := deps.StudentStore.List(ctx, studentstore.ListFilter{})
	if err != nil {
		return DashboardResult{}, err
	}
	classes, err := deps.ClassStore.List(ctx, classstore.ListFilter{})
	if err != nil {
		return DashboardResult{}, err
	}
	summary, err := deps.AttendanceStore.DaySummary(ctx, today, "")
	if err != nil {
		return DashboardResult{}, err
	}

	recs, err := deps.PaymentStore.Installments(ctx, monthFrom, monthTo)
	if err != nil {
		return DashboardResult{}, err
	}
	var income float64
	for _, rec := range recs {
		income += rec.Amount
	}
	byCat, err := deps.ExpenseStore.TotalByCategory(ctx, monthFrom, monthTo)
	if err != nil {
		return DashboardResult{}, err
	}
	var expense float64
	for _, v := range byCat {
		expense += v
	}

	open, err := deps.PaymentStore.List(ctx, paymentstore.ListFilter{})
	if err != nil {
		return DashboardResult{}, err
	}
	var pending, overdue int
	for _, p := range open {
		switch p.EffectiveStatus(today) {
		case payment.StatusPending, payment.StatusPartial:
			pending++
		case payment.StatusOverdue:
			overdue++
		}
	}

	return DashboardResult{
		ActiveStudents:  len(students),
		ActiveClasses:   len(classes),
		Today:           summary,
		MonthIncome:     income,
		MonthExpense:    expense,
		PendingPayments: pending,
		OverduePayments: overdue,
	}, nil
}

func monthBounds(now time.Time) (string, string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02")
}
