package orchestrators

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	paymentstore "nursery/internal/adapters/storage/payment"
	"nursery/internal/domain/account"
	"nursery/internal/domain/payment"
)

// PaymentStore defines the payment persistence interface.
type PaymentStore interface {
	GetByID(ctx context.Context, id string) (payment.Payment, error)
	Save(ctx context.Context, value payment.Payment) error
	InsertBatch(ctx context.Context, payments []payment.Payment) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter paymentstore.ListFilter) ([]payment.Payment, error)
	ApplyPartial(ctx context.Context, rec payment.InstallmentRecord, today string) (payment.Payment, error)
	History(ctx context.Context, paymentID string) ([]payment.InstallmentRecord, error)
}

// CreatePaymentInput carries input for a one-off payment obligation.
type CreatePaymentInput struct {
	StudentID      string
	Amount         float64
	DiscountAmount float64
	DueDate        string
	Note           string
}

// PaymentDeps holds dependencies for payment management.
type PaymentDeps struct {
	PaymentStore  PaymentStore
	StudentStore  StudentLookup
	ActivityStore ActivityStore
	Now           func() time.Time // nil means time.Now
}

func (d PaymentDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// ExecuteCreatePayment records a payment obligation outside any plan.
// PRE: student exists, DueDate set
// POST: Payment persisted as Pending
func ExecuteCreatePayment(ctx context.Context, principal account.Principal, input CreatePaymentInput, deps PaymentDeps) (payment.Payment, error) {
	if _, err := deps.StudentStore.GetByID(ctx, input.StudentID); err != nil {
		return payment.Payment{}, err
	}
	p := payment.Payment{
		ID:             uuid.New().String(),
		StudentID:      input.StudentID,
		Amount:         input.Amount - input.DiscountAmount,
		OriginalAmount: input.Amount,
		DiscountAmount: input.DiscountAmount,
		DueDate:        input.DueDate,
		Status:         payment.StatusPending,
		Note:           input.Note,
		Active:         true,
		CreatedAt:      deps.now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return payment.Payment{}, err
	}
	if err := deps.PaymentStore.Save(ctx, p); err != nil {
		return payment.Payment{}, err
	}

	slog.Info("payment_event", "event", "payment_created", "payment_id", p.ID, "student_id", p.StudentID, "amount", p.Amount, "due", p.DueDate)
	recordActivity(ctx, deps.ActivityStore, principal, "payment_created", map[string]any{"payment_id": p.ID, "student_id": p.StudentID, "amount": p.Amount})
	return p, nil
}

// ApplyInstallmentInput carries one incoming partial or full payment.
type ApplyInstallmentInput struct {
	PaymentID string
	Amount    float64
	Method    string
}

// ExecuteApplyInstallment applies an incoming amount to a payment. The
// amount accumulates; reaching the full amount closes the payment as Paid.
// Overpayment is accepted.
// PRE: Amount > 0
// POST: History row appended; accumulator and status consistent
func ExecuteApplyInstallment(ctx context.Context, principal account.Principal, input ApplyInstallmentInput, deps PaymentDeps) (payment.Payment, error) {
	today := deps.now().UTC().Format(payment.DateLayout)
	rec := payment.InstallmentRecord{
		ID:        uuid.New().String(),
		PaymentID: input.PaymentID,
		Amount:    input.Amount,
		CreatedBy: principal.UserID,
		CreatedAt: deps.now().UTC(),
	}
	p, err := deps.PaymentStore.ApplyPartial(ctx, rec, today)
	if err != nil {
		return payment.Payment{}, err
	}
	if input.Method != "" && p.Method != input.Method {
		p.Method = input.Method
		if err := deps.PaymentStore.Save(ctx, p); err != nil {
			return payment.Payment{}, err
		}
	}

	slog.Info("payment_event", "event", "installment_applied", "payment_id", p.ID, "amount", input.Amount, "status", p.Status, "remaining", p.Remaining())
	recordActivity(ctx, deps.ActivityStore, principal, "installment_applied", map[string]any{"payment_id": p.ID, "amount": input.Amount, "status": p.Status})
	return p, nil
}

// ExecuteUpdatePayment applies a typed partial update to a payment. Fields
// absent from the update are left untouched; partial history is not
// affected.
// PRE: paymentID references an existing payment
// POST: Only the provided fields change; the result re-validates
func ExecuteUpdatePayment(ctx context.Context, principal account.Principal, paymentID string, update payment.Update, deps PaymentDeps) (payment.Payment, error) {
	p, err := deps.PaymentStore.GetByID(ctx, paymentID)
	if err != nil {
		return payment.Payment{}, err
	}
	p.Apply(update)
	if err := p.Validate(); err != nil {
		return payment.Payment{}, err
	}
	if err := deps.PaymentStore.Save(ctx, p); err != nil {
		return payment.Payment{}, err
	}
	slog.Info("payment_event", "event", "payment_updated", "payment_id", p.ID)
	recordActivity(ctx, deps.ActivityStore, principal, "payment_updated", map[string]string{"payment_id": p.ID})
	return p, nil
}

// ExecuteCancelPayment marks a payment Cancelled. The row and its history
// remain.
// POST: Status is Cancelled; partial history untouched
func ExecuteCancelPayment(ctx context.Context, principal account.Principal, paymentID string, deps PaymentDeps) (payment.Payment, error) {
	p, err := deps.PaymentStore.GetByID(ctx, paymentID)
	if err != nil {
		return payment.Payment{}, err
	}
	p.Status = payment.StatusCancelled
	if err := deps.PaymentStore.Save(ctx, p); err != nil {
		return payment.Payment{}, err
	}
	slog.Info("payment_event", "event", "payment_cancelled", "payment_id", p.ID)
	recordActivity(ctx, deps.ActivityStore, principal, "payment_cancelled", map[string]string{"payment_id": p.ID})
	return p, nil
}

// ExecuteDeletePayment soft-deletes a payment.
func ExecuteDeletePayment(ctx context.Context, principal account.Principal, paymentID string, deps PaymentDeps) error {
	if err := deps.PaymentStore.SoftDelete(ctx, paymentID); err != nil {
		return err
	}
	recordActivity(ctx, deps.ActivityStore, principal, "payment_deleted", map[string]string{"payment_id": paymentID})
	return nil
}

// ListPaymentsInput selects payments. Status may be any stored status or
// Overdue, which is derived at read time from due dates.
type ListPaymentsInput struct {
	StudentID string
	PlanID    string
	Status    string
	DueFrom   string
	DueTo     string
	Limit     int
	Offset    int
}

// PaymentView is a payment with its date-derived status.
type PaymentView struct {
	payment.Payment
	EffectiveStatus string
	Remaining       float64
}

// ExecuteListPayments returns payments with Overdue derived, never stored.
/// INVARIANT: the stored status is never rewritten by a read
func ExecuteListPayments(ctx context.Context, input ListPaymentsInput, deps PaymentDeps) ([]PaymentView, error) {
	today := deps.now().UTC().Format(payment.DateLayout)

	filter := paymentstore.ListFilter{
		StudentID: input.StudentID,
		PlanID:    input.PlanID,
		DueFrom:   input.DueFrom,
		DueTo:     input.DueTo,
		Limit:     input.Limit,
		Offset:    input.Offset,
	}
	// Overdue is not a stored value: fetch the candidate statuses and
	// narrow after deriving.
	derived := input.Status == payment.StatusOverdue
	if !derived {
		filter.Status = input.Status
	}

	payments, err := deps.PaymentStore.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		eff := p.EffectiveStatus(today)
		if derived && eff != payment.StatusOverdue {
			continue
		}
		views = append(views, PaymentView{Payment: p, EffectiveStatus: eff, Remaining: p.Remaining()})
	}
	return views, nil
}

// PaymentDetailResult pairs a payment with its installment history.
type PaymentDetailResult struct {
	Payment        PaymentView
	History        []payment.InstallmentRecord
	HistoryTotal   float64
	HistoryMatches bool // history sum equals the accumulator
}

// ExecuteGetPayment returns one payment with its history.
func ExecuteGetPayment(ctx context.Context, paymentID string, deps PaymentDeps) (PaymentDetailResult, error) {
	p, err := deps.PaymentStore.GetByID(ctx, paymentID)
	if err != nil {
		return PaymentDetailResult{}, err
	}
	hist, err := deps.PaymentStore.History(ctx, paymentID)
	if err != nil {
		return PaymentDetailResult{}, err
	}
	if hist == nil {
		hist = []payment.InstallmentRecord{}
	}
	var total float64
	for _, h := range hist {
		total += h.Amount
	}
	today := deps.now().UTC().Format(payment.DateLayout)
	return PaymentDetailResult{
		Payment:        PaymentView{Payment: p, EffectiveStatus: p.EffectiveStatus(today), Remaining: p.Remaining()},
		History:        hist,
		HistoryTotal:   total,
		HistoryMatches: total == p.PartialAmount,
	}, nil
}

// WritePaymentsCSV serializes payment rows as CSV with effective statuses.
func WritePaymentsCSV(w io.Writer, payments []PaymentView) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "student_id", "amount", "paid", "remaining", "due_date", "status"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, v := range payments {
		rec := []string{
			v.ID,
			v.StudentID,
			fmt.Sprintf("%.2f", v.Amount),
			fmt.Sprintf("%.2f", v.PartialAmount),
			fmt.Sprintf("%.2f", v.Remaining),
			v.DueDate,
			v.EffectiveStatus,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
