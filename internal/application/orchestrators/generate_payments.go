package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	paymentstore "nursery/internal/adapters/storage/payment"
	"nursery/internal/domain/account"
	"nursery/internal/domain/payment"
)

// PlanStore defines the payment plan persistence interface.
type PlanStore interface {
	SavePlan(ctx context.Context, pl payment.Plan) error
	GetPlan(ctx context.Context, id string) (payment.Plan, error)
	ListPlans(ctx context.Context, studentID string, includeInactive bool) ([]payment.Plan, error)
	DeactivatePlan(ctx context.Context, id string) error
	InsertBatch(ctx context.Context, payments []payment.Payment) error
	List(ctx context.Context, filter paymentstore.ListFilter) ([]payment.Payment, error)
}

// CreatePlanInput carries input for plan creation.
type CreatePlanInput struct {
	StudentID       string
	Name            string
	Type            string
	StartDate       string
	EndDate         string
	MonthlyAmount   float64
	DiscountAmount  float64
	DiscountPercent float64
}

// CreatePlanResult carries the plan and its generated payments.
type CreatePlanResult struct {
	Plan     payment.Plan
	Payments []payment.Payment
}

// PlanDeps holds dependencies for plan management.
type PlanDeps struct {
	PlanStore     PlanStore
	StudentStore  StudentLookup
	ActivityStore ActivityStore
	Now           func() time.Time // nil means time.Now
}

func (d PlanDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// ExecuteCreatePlan creates a plan and expands it into its payment series.
// Due dates advance by whole cadence periods from the start date; the count
// follows the calendar months between start and end, not a fixed divisor.
// PRE: plan validates; start/end dates parse
// POST: Plan persisted; one Pending payment per period, due dates ascending
// INVARIANT: every generated payment carries the plan id
func ExecuteCreatePlan(ctx context.Context, principal account.Principal, input CreatePlanInput, deps PlanDeps) (CreatePlanResult, error) {
	if _, err := deps.StudentStore.GetByID(ctx, input.StudentID); err != nil {
		return CreatePlanResult{}, err
	}

	pl := payment.Plan{
		ID:              uuid.New().String(),
		StudentID:       input.StudentID,
		Name:            input.Name,
		Type:            input.Type,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		MonthlyAmount:   input.MonthlyAmount,
		DiscountAmount:  input.DiscountAmount,
		DiscountPercent: input.DiscountPercent,
		Active:          true,
		CreatedAt:       deps.now().UTC(),
	}
	if err := pl.Validate(); err != nil {
		return CreatePlanResult{}, err
	}

	payments, err := expandPlan(pl, deps.now().UTC())
	if err != nil {
		return CreatePlanResult{}, err
	}
	for _, p := range payments {
		pl.TotalAmount += p.Amount
	}

	if err := deps.PlanStore.SavePlan(ctx, pl); err != nil {
		return CreatePlanResult{}, err
	}
	if err := deps.PlanStore.InsertBatch(ctx, payments); err != nil {
		return CreatePlanResult{}, err
	}

	slog.Info("payment_event", "event", "plan_created", "plan_id", pl.ID, "student_id", pl.StudentID, "type", pl.Type, "payments", len(payments))
	recordActivity(ctx, deps.ActivityStore, principal, "plan_created", map[string]any{"plan_id": pl.ID, "student_id": pl.StudentID, "payments": len(payments)})
	return CreatePlanResult{Plan: pl, Payments: payments}, nil
}

// expandPlan expands a plan into one Pending payment per period, due dates
// ascending, every payment carrying the plan id.
func expandPlan(pl payment.Plan, createdAt time.Time) ([]payment.Payment, error) {
	count, err := pl.PeriodCount()
	if err != nil {
		return nil, err
	}
	installment := pl.InstallmentAmount()

	payments := make([]payment.Payment, 0, count)
	for i := 0; i < count; i++ {
		due, err := pl.DueDateForPeriod(i)
		if err != nil {
			return nil, err
		}
		p := payment.Payment{
			ID:             uuid.New().String(),
			StudentID:      pl.StudentID,
			PlanID:         pl.ID,
			Amount:         installment,
			OriginalAmount: pl.MonthlyAmount,
			DiscountAmount: pl.DiscountAmount,
			DueDate:        due,
			Status:         payment.StatusPending,
			Active:         true,
			CreatedAt:      createdAt,
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// ExecuteGeneratePayments expands an existing plan into its payment series.
// Periods that already carry a payment are skipped, so re-running the
// generation fills gaps without duplicating rows.
// PRE: planID references an existing plan
// POST: Every period of the plan has a payment; only missing ones are new
func ExecuteGeneratePayments(ctx context.Context, principal account.Principal, planID string, deps PlanDeps) ([]payment.Payment, error) {
	pl, err := deps.PlanStore.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	generated, err := expandPlan(pl, deps.now().UTC())
	if err != nil {
		return nil, err
	}

	existing, err := deps.PlanStore.List(ctx, paymentstore.ListFilter{PlanID: pl.ID, IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		taken[p.DueDate] = true
	}

	missing := make([]payment.Payment, 0, len(generated))
	for _, p := range generated {
		if taken[p.DueDate] {
			continue
		}
		missing = append(missing, p)
	}
	if err := deps.PlanStore.InsertBatch(ctx, missing); err != nil {
		return nil, err
	}

	slog.Info("payment_event", "event", "payments_generated", "plan_id", pl.ID, "payments", len(missing))
	recordActivity(ctx, deps.ActivityStore, principal, "payments_generated", map[string]any{"plan_id": pl.ID, "payments": len(missing)})
	return missing, nil
}

// ExecuteUpdatePlan applies a typed partial update to a plan. Payments
// already generated from the plan are not regenerated.
// PRE: planID references an existing plan
// POST: Only the provided fields change; the result re-validates
func ExecuteUpdatePlan(ctx context.Context, principal account.Principal, planID string, update payment.PlanUpdate, deps PlanDeps) (payment.Plan, error) {
	pl, err := deps.PlanStore.GetPlan(ctx, planID)
	if err != nil {
		return payment.Plan{}, err
	}
	pl.Apply(update)
	if err := pl.Validate(); err != nil {
		return payment.Plan{}, err
	}
	if err := deps.PlanStore.SavePlan(ctx, pl); err != nil {
		return payment.Plan{}, err
	}
	slog.Info("payment_event", "event", "plan_updated", "plan_id", pl.ID)
	recordActivity(ctx, deps.ActivityStore, principal, "plan_updated", map[string]string{"plan_id": pl.ID})
	return pl, nil
}

// ExecuteDeactivatePlan retires a plan without touching the payments it
// already generated.
func ExecuteDeactivatePlan(ctx context.Context, principal account.Principal, planID string, deps PlanDeps) error {
	if err := deps.PlanStore.DeactivatePlan(ctx, planID); err != nil {
		return err
	}
	slog.Info("payment_event", "event", "plan_deactivated", "plan_id", planID)
	recordActivity(ctx, deps.ActivityStore, principal, "plan_deactivated", map[string]string{"plan_id": planID})
	return nil
}

// ExecuteListPlans returns a student's plans, or all plans for an empty id.
func ExecuteListPlans(ctx context.Context, studentID string, includeInactive bool, deps PlanDeps) ([]payment.Plan, error) {
	plans, err := deps.PlanStore.ListPlans(ctx, studentID, includeInactive)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []payment.Plan{}
	}
	return plans, nil
}
