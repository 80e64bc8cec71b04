package orchestrators

import (
	"context"
	"errors"
	"testing"

	paymentstore "nursery/internal/adapters/storage/payment"
	studentstore "nursery/internal/adapters/storage/student"
	"nursery/internal/domain/payment"
)

func newPlanDeps(t *testing.T) (PlanDeps, *paymentstore.MemoryStore, *studentstore.MemoryStore) {
	t.Helper()
	payments := paymentstore.NewMemoryStore()
	students := studentstore.NewMemoryStore()
	deps := PlanDeps{
		PlanStore:     payments,
		StudentStore:  students,
		ActivityStore: newActivityLog(),
		Now:           testNow,
	}
	return deps, payments, students
}

func TestExecuteCreatePlanMonthly(t *testing.T) {
	deps, payments, students := newPlanDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	result, err := ExecuteCreatePlan(context.Background(), adminPrincipal(), CreatePlanInput{
		StudentID:     "s1",
		Name:          "spring term",
		Type:          payment.PlanMonthly,
		StartDate:     "2026-01-15",
		EndDate:       "2026-06-15",
		MonthlyAmount: 400,
	}, deps)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	// Jan 15 to Jun 15 spans five whole calendar months.
	if len(result.Payments) != 5 {
		t.Fatalf("expected 5 payments, got %d", len(result.Payments))
	}
	wantDue := []string{"2026-01-15", "2026-02-15", "2026-03-15", "2026-04-15", "2026-05-15"}
	for i, p := range result.Payments {
		if p.DueDate != wantDue[i] {
			t.Errorf("payment %d: expected due %s, got %s", i, wantDue[i], p.DueDate)
		}
		if p.Amount != 400 {
			t.Errorf("payment %d: expected amount 400, got %v", i, p.Amount)
		}
		if p.Status != payment.StatusPending {
			t.Errorf("payment %d: expected Pending, got %q", i, p.Status)
		}
		if p.PlanID != result.Plan.ID {
			t.Errorf("payment %d: not linked to plan", i)
		}
	}
	if result.Plan.TotalAmount != 2000 {
		t.Errorf("expected plan total 2000, got %v", result.Plan.TotalAmount)
	}

	stored, err := payments.List(context.Background(), paymentstore.ListFilter{PlanID: result.Plan.ID})
	if err != nil {
		t.Fatalf("list by plan: %v", err)
	}
	if len(stored) != 5 {
		t.Errorf("expected 5 persisted payments, got %d", len(stored))
	}
}

func TestExecuteCreatePlanQuarterlyRoundsUp(t *testing.T) {
	deps, _, students := newPlanDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	result, err := ExecuteCreatePlan(context.Background(), adminPrincipal(), CreatePlanInput{
		StudentID:     "s1",
		Name:          "year",
		Type:          payment.PlanQuarterly,
		StartDate:     "2026-01-01",
		EndDate:       "2026-08-01",
		MonthlyAmount: 300,
	}, deps)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	// Seven months at a three-month cadence rounds up to three periods.
	if len(result.Payments) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(result.Payments))
	}
	wantDue := []string{"2026-01-01", "2026-04-01", "2026-07-01"}
	for i, p := range result.Payments {
		if p.DueDate != wantDue[i] {
			t.Errorf("payment %d: expected due %s, got %s", i, wantDue[i], p.DueDate)
		}
	}
}

func TestExecuteCreatePlanAppliesDiscount(t *testing.T) {
	deps, _, students := newPlanDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	result, err := ExecuteCreatePlan(context.Background(), adminPrincipal(), CreatePlanInput{
		StudentID:      "s1",
		Name:           "sibling discount",
		Type:           payment.PlanMonthly,
		StartDate:      "2026-01-01",
		EndDate:        "2026-03-01",
		MonthlyAmount:  400,
		DiscountAmount: 60,
	}, deps)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	for i, p := range result.Payments {
		if p.Amount != 340 {
			t.Errorf("payment %d: expected discounted 340, got %v", i, p.Amount)
		}
		if p.OriginalAmount != 400 {
			t.Errorf("payment %d: expected original 400, got %v", i, p.OriginalAmount)
		}
	}
}

func TestExecuteCreatePlanWithoutEndDate(t *testing.T) {
	deps, _, students := newPlanDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	result, err := ExecuteCreatePlan(context.Background(), adminPrincipal(), CreatePlanInput{
		StudentID:     "s1",
		Name:          "open-ended",
		Type:          payment.PlanMonthly,
		StartDate:     "2026-01-01",
		MonthlyAmount: 400,
	}, deps)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if len(result.Payments) != 1 {
		t.Fatalf("expected 1 payment for an open-ended plan, got %d", len(result.Payments))
	}
}

func TestExecuteCreatePlanRejectsEndBeforeStart(t *testing.T) {
	deps, _, students := newPlanDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	_, err := ExecuteCreatePlan(context.Background(), adminPrincipal(), CreatePlanInput{
		StudentID:     "s1",
		Name:          "backwards",
		Type:          payment.PlanMonthly,
		StartDate:     "2026-06-01",
		EndDate:       "2026-01-01",
		MonthlyAmount: 400,
	}, deps)
	if err == nil {
		t.Fatal("expected error for end date before start date")
	}
}

func TestExecuteGeneratePayments(t *testing.T) {
	deps, payments, students := newPlanDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	pl := payment.Plan{
		ID:            "pl1",
		StudentID:     "s1",
		Name:          "term",
		Type:          payment.PlanMonthly,
		StartDate:     "2026-01-01",
		EndDate:       "2026-04-01",
		MonthlyAmount: 400,
		Active:        true,
	}
	if err := payments.SavePlan(context.Background(), pl); err != nil {
		t.Fatalf("save plan: %v", err)
	}

	generated, err := ExecuteGeneratePayments(context.Background(), adminPrincipal(), "pl1", deps)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(generated) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(generated))
	}
	for _, p := range generated {
		if p.PlanID != "pl1" {
			t.Errorf("payment %s missing plan id, got %q", p.ID, p.PlanID)
		}
	}

	// Re-running generates nothing new; the schedule is already covered.
	again, err := ExecuteGeneratePayments(context.Background(), adminPrincipal(), "pl1", deps)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected idempotent regeneration, got %d new payments", len(again))
	}

	stored, err := payments.List(context.Background(), paymentstore.ListFilter{PlanID: "pl1"})
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(stored) != 3 {
		t.Errorf("expected 3 stored payments, got %d", len(stored))
	}
}

func TestExecuteGeneratePaymentsUnknownPlan(t *testing.T) {
	deps, _, _ := newPlanDeps(t)

	_, err := ExecuteGeneratePayments(context.Background(), adminPrincipal(), "ghost", deps)
	if !errors.Is(err, payment.ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestExecuteUpdatePlan(t *testing.T) {
	deps, payments, students := newPlanDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	result, err := ExecuteCreatePlan(context.Background(), adminPrincipal(), CreatePlanInput{
		StudentID:     "s1",
		Name:          "term",
		Type:          payment.PlanMonthly,
		StartDate:     "2026-01-01",
		EndDate:       "2026-03-01",
		MonthlyAmount: 400,
	}, deps)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	name := "spring term"
	discount := 25.0
	updated, err := ExecuteUpdatePlan(context.Background(), adminPrincipal(), result.Plan.ID, payment.PlanUpdate{
		Name:           &name,
		DiscountAmount: &discount,
	}, deps)
	if err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if updated.Name != "spring term" {
		t.Errorf("expected renamed plan, got %q", updated.Name)
	}
	if updated.DiscountAmount != 25 {
		t.Errorf("expected discount 25, got %v", updated.DiscountAmount)
	}
	if updated.StartDate != "2026-01-01" {
		t.Errorf("untouched start date must survive, got %q", updated.StartDate)
	}

	generated, err := payments.List(context.Background(), paymentstore.ListFilter{PlanID: result.Plan.ID})
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	for _, p := range generated {
		if p.Amount != 400 {
			t.Errorf("updating the plan must not touch generated payments, got %v", p.Amount)
		}
	}

	if _, err := ExecuteUpdatePlan(context.Background(), adminPrincipal(), "ghost", payment.PlanUpdate{Name: &name}, deps); err == nil {
		t.Error("expected error for unknown plan")
	}
}

func TestExecuteDeactivatePlanKeepsPayments(t *testing.T) {
	deps, payments, students := newPlanDeps(t)
	seedStudent(t, students, "s1", "Ada Demir")

	result, err := ExecuteCreatePlan(context.Background(), adminPrincipal(), CreatePlanInput{
		StudentID:     "s1",
		Name:          "term",
		Type:          payment.PlanMonthly,
		StartDate:     "2026-01-01",
		EndDate:       "2026-03-01",
		MonthlyAmount: 400,
	}, deps)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	if err := ExecuteDeactivatePlan(context.Background(), adminPrincipal(), result.Plan.ID, deps); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	plans, err := ExecuteListPlans(context.Background(), "s1", false, deps)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("expected no active plans, got %d", len(plans))
	}

	remaining, err := payments.List(context.Background(), paymentstore.ListFilter{PlanID: result.Plan.ID})
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("deactivating the plan must keep its payments, got %d", len(remaining))
	}
}
