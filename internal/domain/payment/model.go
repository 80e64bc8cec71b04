package payment

import (
	"errors"
	"fmt"
	"time"
)

// Payment status constants. Stored values use these exact spellings.
const (
	StatusPaid      = "Paid"
	StatusPending   = "Pending"
	StatusOverdue   = "Overdue"
	StatusPartial   = "Partial"
	StatusCancelled = "Cancelled"
)

// Plan cadence constants.
const (
	PlanMonthly    = "monthly"
	PlanQuarterly  = "quarterly"
	PlanSemiAnnual = "semi_annual"
	PlanAnnual     = "annual"
	PlanCustom     = "custom"
)

// ValidStatuses contains all valid stored payment status values.
var ValidStatuses = []string{StatusPaid, StatusPending, StatusOverdue, StatusPartial, StatusCancelled}

// ValidPlanTypes contains all valid plan cadence values.
var ValidPlanTypes = []string{PlanMonthly, PlanQuarterly, PlanSemiAnnual, PlanAnnual, PlanCustom}

// Domain errors
var (
	ErrNotFound          = errors.New("payment not found")
	ErrPlanNotFound      = errors.New("payment plan not found")
	ErrInvalidStatus     = errors.New("status must be one of: Paid, Pending, Overdue, Partial, Cancelled")
	ErrInvalidPlanType   = errors.New("plan type must be one of: monthly, quarterly, semi_annual, annual, custom")
	ErrNonPositiveAmount = errors.New("installment amount must be greater than zero")
)

// DateLayout is the storage format for date-only fields.
const DateLayout = "2006-01-02"

// Payment is a single payment obligation. PartialAmount is a derived cache
// of the installment history; the history rows are the source of truth and
// are never discarded.
type Payment struct {
	ID               string
	StudentID        string
	PlanID           string // empty when not generated from a plan
	Amount           float64
	OriginalAmount   float64
	DiscountAmount   float64
	DueDate          string // YYYY-MM-DD
	PaidDate         string // YYYY-MM-DD, empty until paid
	Method           string
	Status           string
	PartialAmount    float64
	Note             string
	ReceiptPath      string
	RequiresApproval bool
	ApprovedBy       string
	ApprovedAt       string
	Active           bool
	CreatedAt        time.Time
}

// Validate checks if the Payment has valid data.
func (p *Payment) Validate() error {
	if p.StudentID == "" {
		return errors.New("payment must be associated with a student")
	}
	if p.DueDate == "" {
		return errors.New("payment due date must be set")
	}
	if !contains(ValidStatuses, p.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// Update carries a typed partial update for a payment. Nil fields are left
// unchanged. Status moves through ApplyInstallment and cancellation, not
// here.
type Update struct {
	Amount      *float64
	DueDate     *string
	Method      *string
	Note        *string
	ReceiptPath *string
}

// Apply copies the non-nil fields of the update onto the payment.
// POST: Payment reflects the update; caller must re-Validate
func (p *Payment) Apply(u Update) {
	if u.Amount != nil {
		p.Amount = *u.Amount
	}
	if u.DueDate != nil {
		p.DueDate = *u.DueDate
	}
	if u.Method != nil {
		p.Method = *u.Method
	}
	if u.Note != nil {
		p.Note = *u.Note
	}
	if u.ReceiptPath != nil {
		p.ReceiptPath = *u.ReceiptPath
	}
}

// EffectiveStatus derives the status as of the given date. A Pending or
// Partial payment whose due date has passed reads as Overdue. The derived
// value is never written back; every read site computes it the same way.
func (p *Payment) EffectiveStatus(today string) string {
	if (p.Status == StatusPending || p.Status == StatusPartial) && p.DueDate != "" && p.DueDate < today {
		return StatusOverdue
	}
	return p.Status
}

// Remaining returns the unpaid balance. Overpayment makes this negative.
func (p *Payment) Remaining() float64 {
	return p.Amount - p.PartialAmount
}

// ApplyInstallment accumulates an incoming amount into the payment and
// transitions status. Amounts must be positive; overpayment is accepted and
// leaves the accumulator above the full amount.
// PRE: amount > 0
// POST: Status is Paid (with PaidDate=today) or Partial
func (p *Payment) ApplyInstallment(amount float64, today string) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	p.PartialAmount += amount
	if p.PartialAmount >= p.Amount {
		p.Status = StatusPaid
		p.PaidDate = today
	} else {
		p.Status = StatusPartial
	}
	return nil
}

// InstallmentRecord is one immutable row of the partial-payment history.
type InstallmentRecord struct {
	ID        string
	PaymentID string
	Amount    float64
	CreatedBy string // user id, optional
	CreatedAt time.Time
}

// Plan is a recurring-payment template that expands into a bounded series
// of payments.
type Plan struct {
	ID              string
	StudentID       string
	Name            string
	Type            string
	StartDate       string // YYYY-MM-DD
	EndDate         string // YYYY-MM-DD, optional
	MonthlyAmount   float64
	TotalAmount     float64
	DiscountAmount  float64
	DiscountPercent float64
	Active          bool
	CreatedAt       time.Time
}

// Validate checks if the Plan has valid data.
func (pl *Plan) Validate() error {
	if pl.StudentID == "" {
		return errors.New("plan must be associated with a student")
	}
	if pl.StartDate == "" {
		return errors.New("plan start date must be set")
	}
	if !contains(ValidPlanTypes, pl.Type) {
		return ErrInvalidPlanType
	}
	return nil
}

// PlanUpdate carries a typed partial update for a plan. Only descriptive
// fields are mutable; cadence and dates are fixed once the schedule is
// generated.
type PlanUpdate struct {
	Name            *string
	DiscountAmount  *float64
	DiscountPercent *float64
}

// Apply copies the non-nil fields of the update onto the plan. Generated
// payments keep their amounts; the discounts affect future generations only.
func (pl *Plan) Apply(u PlanUpdate) {
	if u.Name != nil {
		pl.Name = *u.Name
	}
	if u.DiscountAmount != nil {
		pl.DiscountAmount = *u.DiscountAmount
	}
	if u.DiscountPercent != nil {
		pl.DiscountPercent = *u.DiscountPercent
	}
}

// CadenceMonths returns the period length in months for the plan's type.
// Custom plans default to 12.
func (pl *Plan) CadenceMonths() int {
	switch pl.Type {
	case PlanMonthly:
		return 1
	case PlanQuarterly:
		return 3
	case PlanSemiAnnual:
		return 6
	case PlanAnnual:
		return 12
	default:
		return 12
	}
}

// PeriodCount returns how many payments the plan expands into. Without an
// end date a plan yields its single nominal period. With one, the count is
// the calendar-accurate number of months between start and end divided by
// the cadence, rounded up, with a floor of one.
func (pl *Plan) PeriodCount() (int, error) {
	if pl.EndDate == "" {
		return 1, nil
	}
	start, err := time.Parse(DateLayout, pl.StartDate)
	if err != nil {
		return 0, fmt.Errorf("invalid plan start date %q: %w", pl.StartDate, err)
	}
	end, err := time.Parse(DateLayout, pl.EndDate)
	if err != nil {
		return 0, fmt.Errorf("invalid plan end date %q: %w", pl.EndDate, err)
	}
	if end.Before(start) {
		return 0, errors.New("plan end date is before start date")
	}
	months := monthsBetween(start, end)
	cadence := pl.CadenceMonths()
	count := (months + cadence - 1) / cadence
	if count < 1 {
		count = 1
	}
	return count, nil
}

// DueDateForPeriod returns the due date for the i-th generated payment
// (0-based): the start date advanced by i cadence lengths.
func (pl *Plan) DueDateForPeriod(i int) (string, error) {
	start, err := time.Parse(DateLayout, pl.StartDate)
	if err != nil {
		return "", fmt.Errorf("invalid plan start date %q: %w", pl.StartDate, err)
	}
	return start.AddDate(0, i*pl.CadenceMonths(), 0).Format(DateLayout), nil
}

// InstallmentAmount is the per-period charge: the monthly amount less the
// flat discount. No floor is enforced; a discount exceeding the amount
// yields a negative charge.
func (pl *Plan) InstallmentAmount() float64 {
	return pl.MonthlyAmount - pl.DiscountAmount
}

// monthsBetween counts whole calendar months from start to end, counting a
// partial trailing month as one.
func monthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() > start.Day() {
		months++
	}
	if months < 1 {
		months = 1
	}
	return months
}

// Reminder schedules a notification for an upcoming or overdue payment.
const (
	ReminderPending = "pending"
	ReminderSent    = "sent"
	ReminderFailed  = "failed"
)

// Reminder delivery channel constants.
const (
	ReminderEmail = "email"
	ReminderSMS   = "sms"
	ReminderInApp = "in_app"
)

// Reminder rows are hard-deleted once unlinked; they carry no history value.
type Reminder struct {
	ID            string
	PaymentID     string
	StudentID     string
	Type          string
	ReminderDate  string // YYYY-MM-DD
	DaysBeforeDue int
	SentAt        string // RFC3339, empty until dispatched
	Status        string
	Message       string // markdown body for email reminders
}

// Validate checks if the Reminder has valid data.
func (r *Reminder) Validate() error {
	if r.PaymentID == "" {
		return errors.New("reminder must reference a payment")
	}
	if r.ReminderDate == "" {
		return errors.New("reminder date must be set")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
