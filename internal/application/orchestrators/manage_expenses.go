package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nursery/internal/adapters/storage/expense"
	"nursery/internal/domain/account"
	domain "nursery/internal/domain/expense"
)

// ExpenseStore defines the expense persistence interface.
type ExpenseStore interface {
	GetByID(ctx context.Context, id string) (domain.Expense, error)
	Save(ctx context.Context, value domain.Expense) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter expense.ListFilter) ([]domain.Expense, error)
	TotalByCategory(ctx context.Context, from, to string) (map[string]float64, error)
}

// CreateExpenseInput carries input for expense creation.
type CreateExpenseInput struct {
	Category    string
	Description string
	Amount      float64
	Date        string
}

// ExpenseDeps holds dependencies for expense management.
type ExpenseDeps struct {
	ExpenseStore  ExpenseStore
	ActivityStore ActivityStore
}

// ExecuteCreateExpense records a new expense.
func ExecuteCreateExpense(ctx context.Context, principal account.Principal, input CreateExpenseInput, deps ExpenseDeps) (domain.Expense, error) {
	e := domain.Expense{
		ID:          uuid.New().String(),
		Category:    input.Category,
		Description: input.Description,
		Amount:      input.Amount,
		Date:        input.Date,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if e.Date == "" {
		e.Date = time.Now().UTC().Format("2006-01-02")
	}
	if err := e.Validate(); err != nil {
		return domain.Expense{}, err
	}
	if err := deps.ExpenseStore.Save(ctx, e); err != nil {
		return domain.Expense{}, err
	}
	slog.Info("expense_event", "event", "expense_created", "expense_id", e.ID, "category", e.Category, "amount", e.Amount)
	recordActivity(ctx, deps.ActivityStore, principal, "expense_created", map[string]any{"expense_id": e.ID, "category": e.Category, "amount": e.Amount})
	return e, nil
}

// ExecuteUpdateExpense applies a partial update to an expense.
func ExecuteUpdateExpense(ctx context.Context, principal account.Principal, id string, update domain.Update, deps ExpenseDeps) (domain.Expense, error) {
	e, err := deps.ExpenseStore.GetByID(ctx, id)
	if err != nil {
		return domain.Expense{}, err
	}
	e.Apply(update)
	if err := e.Validate(); err != nil {
		return domain.Expense{}, err
	}
	if err := deps.ExpenseStore.Save(ctx, e); err != nil {
		return domain.Expense{}, err
	}
	slog.Info("expense_event", "event", "expense_updated", "expense_id", e.ID)
	recordActivity(ctx, deps.ActivityStore, principal, "expense_updated", map[string]string{"expense_id": e.ID})
	return e, nil
}

// ExecuteDeleteExpense soft-deletes an expense.
func ExecuteDeleteExpense(ctx context.Context, principal account.Principal, id string, deps ExpenseDeps) error {
	if err := deps.ExpenseStore.SoftDelete(ctx, id); err != nil {
		return err
	}
	slog.Info("expense_event", "event", "expense_deleted", "expense_id", id)
	recordActivity(ctx, deps.ActivityStore, principal, "expense_deleted", map[string]string{"expense_id": id})
	return nil
}

// ExecuteListExpenses returns expenses matching the filter.
func ExecuteListExpenses(ctx context.Context, filter expense.ListFilter, deps ExpenseDeps) ([]domain.Expense, error) {
	list, err := deps.ExpenseStore.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Expense{}
	}
	return list, nil
}

// ExpenseSummaryResult carries per-category totals and their sum.
type ExpenseSummaryResult struct {
	ByCategory map[string]float64
	Total      float64
}

// ExecuteExpenseSummary totals active expenses per category in a date range.
func ExecuteExpenseSummary(ctx context.Context, from, to string, deps ExpenseDeps) (ExpenseSummaryResult, error) {
	byCat, err := deps.ExpenseStore.TotalByCategory(ctx, from, to)
	if err != nil {
		return ExpenseSummaryResult{}, err
	}
	var total float64
	for _, v := range byCat {
		total += v
	}
	return ExpenseSummaryResult{ByCategory: byCat, Total: total}, nil
}
