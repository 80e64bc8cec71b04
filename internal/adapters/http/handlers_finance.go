package web

import (
	"log/slog"
	"net/http"
	"time"

	expenseStore "nursery/internal/adapters/storage/expense"
	"nursery/internal/application/listutil"
	"nursery/internal/application/orchestrators"
	"nursery/internal/application/projections"
	expenseDomain "nursery/internal/domain/expense"
	paymentDomain "nursery/internal/domain/payment"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// --- Payments ---

// handlePayments handles GET (list) and POST (create) for /api/payments.
// The list derives Overdue from the due date at read time; ?format=csv
// streams the same rows as a CSV export.
func handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		pp := listutil.ParsePageParams(q)
		input := orchestrators.ListPaymentsInput{
			StudentID: q.Get("student_id"),
			PlanID:    q.Get("plan_id"),
			Status:    q.Get("status"),
			DueFrom:   q.Get("due_from"),
			DueTo:     q.Get("due_to"),
			Limit:     pp.PerPage,
			Offset:    pp.Offset(),
		}
		payments, err := orchestrators.ExecuteListPayments(r.Context(), input, paymentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		if q.Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="payments.csv"`)
			if err := orchestrators.WritePaymentsCSV(w, payments); err != nil {
				slog.Error("csv_export_failed", "error", err)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Payments": payments})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.CreatePaymentInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		p, err := orchestrators.ExecuteCreatePayment(r.Context(), principal, input, paymentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePaymentByID handles GET (detail with history), PATCH, and DELETE
// for /api/payments/{id}.
func handlePaymentByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		detail, err := orchestrators.ExecuteGetPayment(r.Context(), id, paymentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodPatch:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var update paymentDomain.Update
		if err := strictDecode(r, &update); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		p, err := orchestrators.ExecuteUpdatePayment(r.Context(), principal, id, update, paymentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := orchestrators.ExecuteDeletePayment(r.Context(), principal, id, paymentDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePaymentInstallments handles POST /api/payments/{id}/installments,
// applying a partial payment to the accumulator.
func handlePaymentInstallments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var input orchestrators.ApplyInstallmentInput
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	input.PaymentID = r.PathValue("id")
	p, err := orchestrators.ExecuteApplyInstallment(r.Context(), principal, input, paymentDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePaymentCancel handles POST /api/payments/{id}/cancel.
func handlePaymentCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	p, err := orchestrators.ExecuteCancelPayment(r.Context(), principal, r.PathValue("id"), paymentDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Plans ---

// handlePlans handles GET (list by student) and POST (create + generate the
// payment schedule) for /api/plans.
func handlePlans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		plans, err := orchestrators.ExecuteListPlans(r.Context(), q.Get("student_id"), q.Get("include_inactive") == "true", planDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Plans": plans})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.CreatePlanInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		result, err := orchestrators.ExecuteCreatePlan(r.Context(), principal, input, planDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePlanGenerate handles POST /api/plans/{id}/generate, filling in any
// payments missing from the plan's schedule.
func handlePlanGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	payments, err := orchestrators.ExecuteGeneratePayments(r.Context(), principal, r.PathValue("id"), planDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"Payments": payments})
}

// handlePlanByID handles PATCH and DELETE for /api/plans/{id}. Deactivating
// a plan keeps its already-generated payments.
func handlePlanByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPatch:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var update paymentDomain.PlanUpdate
		if err := strictDecode(r, &update); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		pl, err := orchestrators.ExecuteUpdatePlan(r.Context(), principal, id, update, planDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pl)
	case http.MethodDelete:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := orchestrators.ExecuteDeactivatePlan(r.Context(), principal, id, planDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- Expenses ---

// handleExpenses handles GET (list) and POST (create) for /api/expenses.
func handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		pp := listutil.ParsePageParams(q)
		expenses, err := orchestrators.ExecuteListExpenses(r.Context(), expenseStore.ListFilter{
			Category:        q.Get("category"),
			From:            q.Get("from"),
			To:              q.Get("to"),
			IncludeInactive: q.Get("include_inactive") == "true",
			Limit:           pp.PerPage,
			Offset:          pp.Offset(),
		}, expenseDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Expenses": expenses})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.CreateExpenseInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		e, err := orchestrators.ExecuteCreateExpense(r.Context(), principal, input, expenseDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleExpenseByID handles PATCH and DELETE for /api/expenses/{id}.
func handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPatch:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var update expenseDomain.Update
		if err := strictDecode(r, &update); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		e, err := orchestrators.ExecuteUpdateExpense(r.Context(), principal, id, update, expenseDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	case http.MethodDelete:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := orchestrators.ExecuteDeleteExpense(r.Context(), principal, id, expenseDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleExpenseSummary handles GET /api/expenses/summary?from=&to=.
func handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summary, err := orchestrators.ExecuteExpenseSummary(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"), expenseDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- Reminders ---

// handleReminders handles GET (due today or before) and POST (schedule) for
// /api/reminders.
func handleReminders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		day := r.URL.Query().Get("due")
		if day == "" {
			day = timeNow().UTC().Format("2006-01-02")
		}
		reminders, err := stores.PaymentStore.ListDueReminders(r.Context(), day)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Reminders": reminders})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.ScheduleReminderInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		rem, err := orchestrators.ExecuteScheduleReminder(r.Context(), principal, input, reminderDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rem)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleRemindersDispatch handles POST /api/reminders/dispatch, delivering
// every reminder that has come due.
func handleRemindersDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, err := orchestrators.ExecuteDispatchReminders(r.Context(), reminderDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReminderByID handles DELETE /api/reminders/{id}.
func handleReminderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := orchestrators.ExecuteDeleteReminder(r.Context(), principal, r.PathValue("id"), reminderDeps()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Reports ---

// handleDashboard handles GET /api/reports/dashboard.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, err := projections.QueryGetDashboard(r.Context(), dashboardDeps(), timeNow().UTC())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleFinanceReport handles GET /api/reports/finance.
// ?year=2026 selects a whole-year report; otherwise ?from=&to= bound the
// range. ?format=csv streams the monthly rows as CSV.
func handleFinanceReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	var (
		report projections.FinanceReportResult
		err    error
	)
	if yearStr := q.Get("year"); yearStr != "" {
		year := parseIntDefault(yearStr, 0)
		if year < 1 {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		report, err = projections.QueryGetYearlyReport(r.Context(), year, financeDeps())
	} else {
		report, err = projections.QueryGetFinanceReport(r.Context(), projections.GetFinanceReportQuery{
			From: q.Get("from"),
			To:   q.Get("to"),
		}, financeDeps())
	}
	if err != nil {
		respondError(w, err)
		return
	}

	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="finance.csv"`)
		if err := projections.WriteFinanceCSV(w, report); err != nil {
			slog.Error("csv_export_failed", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- Deps wiring ---

func paymentDeps() orchestrators.PaymentDeps {
	return orchestrators.PaymentDeps{
		PaymentStore:  stores.PaymentStore,
		StudentStore:  stores.StudentStore,
		ActivityStore: stores.ActivityStore,
	}
}

func planDeps() orchestrators.PlanDeps {
	return orchestrators.PlanDeps{
		PlanStore:     stores.PaymentStore,
		StudentStore:  stores.StudentStore,
		ActivityStore: stores.ActivityStore,
	}
}

func expenseDeps() orchestrators.ExpenseDeps {
	return orchestrators.ExpenseDeps{
		ExpenseStore:  stores.ExpenseStore,
		ActivityStore: stores.ActivityStore,
	}
}

func reminderDeps() orchestrators.ReminderDeps {
	return orchestrators.ReminderDeps{
		ReminderStore: stores.PaymentStore,
		StudentStore:  stores.StudentStore,
		SettingsStore: stores.SettingsStore,
		EmailSender:   emailSender,
		ActivityStore: stores.ActivityStore,
	}
}

func dashboardDeps() projections.GetDashboardDeps {
	return projections.GetDashboardDeps{
		StudentStore:    stores.StudentStore,
		ClassStore:      stores.ClassStore,
		AttendanceStore: stores.AttendanceStore,
		PaymentStore:    stores.PaymentStore,
		ExpenseStore:    stores.ExpenseStore,
	}
}

func financeDeps() projections.GetFinanceReportDeps {
	return projections.GetFinanceReportDeps{
		PaymentStore: stores.PaymentStore,
		ExpenseStore: stores.ExpenseStore,
	}
}
