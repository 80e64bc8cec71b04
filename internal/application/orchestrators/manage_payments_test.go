package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	paymentstore "nursery/internal/adapters/storage/payment"
	studentstore "nursery/internal/adapters/storage/student"
	"nursery/internal/domain/payment"
)

func newPaymentDeps(t *testing.T) (PaymentDeps, *paymentstore.MemoryStore, *studentstore.MemoryStore) {
	t.Helper()
	payments := paymentstore.NewMemoryStore()
	students := studentstore.NewMemoryStore()
	deps := PaymentDeps{
		PaymentStore:  payments,
		StudentStore:  students,
		ActivityStore: newActivityLog(),
		Now:           testNow,
	}
	return deps, payments, students
}

func TestExecuteCreatePayment(t *testing.T) {
	deps, _, students := newPaymentDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	p, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID:      "s1",
		Amount:         500,
		DiscountAmount: 50,
		DueDate:        "2026-04-01",
		Note:           "april tuition",
	}, deps)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if p.Status != payment.StatusPending {
		t.Errorf("expected status %q, got %q", payment.StatusPending, p.Status)
	}
	if p.Amount != 450 {
		t.Errorf("expected discounted amount 450, got %v", p.Amount)
	}
	if p.OriginalAmount != 500 {
		t.Errorf("expected original amount 500, got %v", p.OriginalAmount)
	}

	got, err := deps.PaymentStore.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Note != "april tuition" {
		t.Errorf("expected note preserved, got %q", got.Note)
	}
}

func TestExecuteCreatePaymentUnknownStudent(t *testing.T) {
	deps, _, _ := newPaymentDeps(t)

	_, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "ghost",
		Amount:    100,
		DueDate:   "2026-04-01",
	}, deps)
	if err == nil {
		t.Fatal("expected error for unknown student")
	}
}

func TestExecuteApplyInstallment(t *testing.T) {
	deps, payments, students := newPaymentDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	p, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "s1",
		Amount:    500,
		DueDate:   "2026-04-01",
	}, deps)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	after, err := ExecuteApplyInstallment(context.Background(), staffPrincipal(), ApplyInstallmentInput{
		PaymentID: p.ID,
		Amount:    200,
		Method:    "cash",
	}, deps)
	if err != nil {
		t.Fatalf("first installment: %v", err)
	}
	if after.Status != payment.StatusPartial {
		t.Errorf("expected status %q after partial, got %q", payment.StatusPartial, after.Status)
	}
	if after.PartialAmount != 200 {
		t.Errorf("expected accumulator 200, got %v", after.PartialAmount)
	}

	after, err = ExecuteApplyInstallment(context.Background(), staffPrincipal(), ApplyInstallmentInput{
		PaymentID: p.ID,
		Amount:    300,
	}, deps)
	if err != nil {
		t.Fatalf("second installment: %v", err)
	}
	if after.Status != payment.StatusPaid {
		t.Errorf("expected status %q after full payment, got %q", payment.StatusPaid, after.Status)
	}
	if after.PaidDate != fixedTime.Format(payment.DateLayout) {
		t.Errorf("expected paid date %s, got %q", fixedTime.Format(payment.DateLayout), after.PaidDate)
	}

	history, err := payments.History(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
	var sum float64
	for _, rec := range history {
		sum += rec.Amount
	}
	if sum != after.PartialAmount {
		t.Errorf("history sum %v does not match accumulator %v", sum, after.PartialAmount)
	}
}

func TestExecuteApplyInstallmentRejectsNonPositive(t *testing.T) {
	deps, payments, students := newPaymentDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	p, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "s1",
		Amount:    500,
		DueDate:   "2026-04-01",
	}, deps)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	for _, amount := range []float64{0, -50} {
		_, err := ExecuteApplyInstallment(context.Background(), adminPrincipal(), ApplyInstallmentInput{
			PaymentID: p.ID,
			Amount:    amount,
		}, deps)
		if !errors.Is(err, payment.ErrNonPositiveAmount) {
			t.Errorf("amount %v: expected ErrNonPositiveAmount, got %v", amount, err)
		}
	}

	history, err := payments.History(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no history rows after rejected installments, got %d", len(history))
	}
}

func TestExecuteApplyInstallmentAcceptsOverpayment(t *testing.T) {
	deps, _, students := newPaymentDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	p, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "s1",
		Amount:    100,
		DueDate:   "2026-04-01",
	}, deps)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	after, err := ExecuteApplyInstallment(context.Background(), adminPrincipal(), ApplyInstallmentInput{
		PaymentID: p.ID,
		Amount:    150,
	}, deps)
	if err != nil {
		t.Fatalf("overpayment: %v", err)
	}
	if after.Status != payment.StatusPaid {
		t.Errorf("expected status %q, got %q", payment.StatusPaid, after.Status)
	}
	if after.Remaining() != -50 {
		t.Errorf("expected remaining -50, got %v", after.Remaining())
	}
}

func TestExecuteListPaymentsDerivesOverdue(t *testing.T) {
	deps, _, students := newPaymentDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	// Due before the fixed clock's 2026-03-10.
	past, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "s1", Amount: 100, DueDate: "2026-02-01",
	}, deps)
	if err != nil {
		t.Fatalf("create past payment: %v", err)
	}
	if _, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "s1", Amount: 100, DueDate: "2026-06-01",
	}, deps); err != nil {
		t.Fatalf("create future payment: %v", err)
	}

	views, err := ExecuteListPayments(context.Background(), ListPaymentsInput{Status: payment.StatusOverdue}, deps)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 overdue payment, got %d", len(views))
	}
	if views[0].ID != past.ID {
		t.Errorf("expected overdue payment %s, got %s", past.ID, views[0].ID)
	}
	if views[0].EffectiveStatus != payment.StatusOverdue {
		t.Errorf("expected effective status Overdue, got %q", views[0].EffectiveStatus)
	}

	// The stored status stays Pending.
	stored, err := deps.PaymentStore.GetByID(context.Background(), past.ID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if stored.Status != payment.StatusPending {
		t.Errorf("stored status was rewritten to %q", stored.Status)
	}
}

func TestExecuteUpdatePayment(t *testing.T) {
	deps, _, students := newPaymentDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	p, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "s1", Amount: 500, DueDate: "2026-04-01",
	}, deps)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	due := "2026-05-01"
	note := "moved to may"
	updated, err := ExecuteUpdatePayment(context.Background(), adminPrincipal(), p.ID, payment.Update{
		DueDate: &due,
		Note:    &note,
	}, deps)
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if updated.DueDate != "2026-05-01" {
		t.Errorf("expected due date moved, got %q", updated.DueDate)
	}
	if updated.Note != "moved to may" {
		t.Errorf("expected note replaced, got %q", updated.Note)
	}
	if updated.Amount != 500 {
		t.Errorf("untouched amount must survive, got %v", updated.Amount)
	}

	got, err := deps.PaymentStore.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.DueDate != "2026-05-01" {
		t.Errorf("expected persisted due date, got %q", got.DueDate)
	}

	if _, err := ExecuteUpdatePayment(context.Background(), adminPrincipal(), "ghost", payment.Update{Note: &note}, deps); !errors.Is(err, payment.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown payment, got %v", err)
	}
}

func TestExecuteCancelPayment(t *testing.T) {
	deps, payments, students := newPaymentDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	p, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "s1", Amount: 500, DueDate: "2026-04-01",
	}, deps)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := ExecuteApplyInstallment(context.Background(), adminPrincipal(), ApplyInstallmentInput{
		PaymentID: p.ID, Amount: 100,
	}, deps); err != nil {
		t.Fatalf("installment: %v", err)
	}

	cancelled, err := ExecuteCancelPayment(context.Background(), adminPrincipal(), p.ID, deps)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != payment.StatusCancelled {
		t.Errorf("expected status %q, got %q", payment.StatusCancelled, cancelled.Status)
	}

	history, err := payments.History(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("cancel must not discard history, got %d rows", len(history))
	}
}

func TestExecuteGetPayment(t *testing.T) {
	deps, _, students := newPaymentDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	p, err := ExecuteCreatePayment(context.Background(), adminPrincipal(), CreatePaymentInput{
		StudentID: "s1", Amount: 300, DueDate: "2026-04-01",
	}, deps)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := ExecuteApplyInstallment(context.Background(), adminPrincipal(), ApplyInstallmentInput{
		PaymentID: p.ID, Amount: 120,
	}, deps); err != nil {
		t.Fatalf("installment: %v", err)
	}

	detail, err := ExecuteGetPayment(context.Background(), p.ID, deps)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if detail.HistoryTotal != 120 {
		t.Errorf("expected history total 120, got %v", detail.HistoryTotal)
	}
	if !detail.HistoryMatches {
		t.Error("expected history to match the accumulator")
	}
	if detail.Payment.Remaining != 180 {
		t.Errorf("expected remaining 180, got %v", detail.Payment.Remaining)
	}
}

func TestWritePaymentsCSV(t *testing.T) {
	views := []PaymentView{{
		Payment: payment.Payment{
			ID:            "p1",
			StudentID:     "s1",
			Amount:        400,
			PartialAmount: 150,
			DueDate:       "2026-02-15",
			Status:        payment.StatusPending,
		},
		EffectiveStatus: payment.StatusOverdue,
		Remaining:       250,
	}}

	var buf bytes.Buffer
	if err := WritePaymentsCSV(&buf, views); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 csv lines, got %d", len(lines))
	}
	if lines[0] != "id,student_id,amount,paid,remaining,due_date,status" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "p1,s1,400.00,150.00,250.00,2026-02-15,Overdue" {
		t.Errorf("unexpected row %q", lines[1])
	}
}
