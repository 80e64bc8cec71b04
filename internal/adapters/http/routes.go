package web

import (
	"net/http"

	"nursery/internal/adapters/http/middleware"
	"nursery/internal/domain/account"
)

// registerRoutes wires every API path onto the mux. Method dispatch happens
// inside the handlers; the route table stays a flat list so the whole
// surface is readable in one place.
func registerRoutes(mux *http.ServeMux) {
	authed := middleware.RequireAuth
	admin := middleware.RequireRole(account.RoleAdmin)

	handle := func(pattern string, wrap func(http.Handler) http.Handler, h http.HandlerFunc) {
		mux.Handle(pattern, wrap(h))
	}

	// Auth
	mux.HandleFunc("/api/login", handleLogin)
	mux.HandleFunc("/api/logout", handleLogout)
	handle("/api/password", authed, handleChangePassword)

	// Students
	handle("/api/students", authed, handleStudents)
	handle("/api/students/{id}", authed, handleStudentByID)
	handle("/api/students/{id}/vaccinations", authed, handleStudentVaccinations)
	handle("/api/students/{id}/attendance", authed, handleStudentAttendance)
	handle("/api/vaccinations/{id}", authed, handleVaccinationByID)

	// Classes
	handle("/api/classes", authed, handleClasses)
	handle("/api/classes/{id}", authed, handleClassByID)
	handle("/api/classes/{id}/enroll", authed, handleClassEnroll)
	handle("/api/classes/{id}/students/{studentID}", authed, handleClassWithdraw)
	handle("/api/classes/{id}/attendance", authed, handleClassAttendance)

	// Attendance
	handle("/api/attendance", authed, handleAttendance)
	handle("/api/attendance/bulk", authed, handleAttendanceBulk)
	handle("/api/attendance/{id}", authed, handleAttendanceByID)

	// Payments and plans
	handle("/api/payments", authed, handlePayments)
	handle("/api/payments/{id}", authed, handlePaymentByID)
	handle("/api/payments/{id}/installments", authed, handlePaymentInstallments)
	handle("/api/payments/{id}/cancel", authed, handlePaymentCancel)
	handle("/api/plans", authed, handlePlans)
	handle("/api/plans/{id}", authed, handlePlanByID)
	handle("/api/plans/{id}/generate", authed, handlePlanGenerate)

	// Expenses
	handle("/api/expenses", authed, handleExpenses)
	handle("/api/expenses/summary", authed, handleExpenseSummary)
	handle("/api/expenses/{id}", authed, handleExpenseByID)

	// Reminders
	handle("/api/reminders", authed, handleReminders)
	handle("/api/reminders/dispatch", authed, handleRemindersDispatch)
	handle("/api/reminders/{id}", authed, handleReminderByID)

	// Reports
	handle("/api/reports/dashboard", authed, handleDashboard)
	handle("/api/reports/finance", authed, handleFinanceReport)

	// Staff and events
	handle("/api/staff", authed, handleStaff)
	handle("/api/staff/{id}", authed, handleStaffByID)
	handle("/api/events", authed, handleEvents)
	handle("/api/events/{id}", authed, handleEventByID)

	// Settings and activity log
	handle("/api/settings", authed, handleSettings)
	handle("/api/activity", admin, handleActivity)

	// Admin
	handle("/api/users", admin, handleUsers)
	handle("/api/users/{id}", admin, handleUserByID)
	handle("/api/admin/backup", admin, handleBackup)
	handle("/api/admin/restore", admin, handleRestore)
	handle("/api/admin/perf", admin, handlePerf)
}
