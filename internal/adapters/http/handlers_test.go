package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nursery/internal/adapters/http/middleware"
	accountStore "nursery/internal/adapters/storage/account"
	activityStore "nursery/internal/adapters/storage/activity"
	attendanceStore "nursery/internal/adapters/storage/attendance"
	classStore "nursery/internal/adapters/storage/class"
	eventStore "nursery/internal/adapters/storage/event"
	expenseStore "nursery/internal/adapters/storage/expense"
	paymentStore "nursery/internal/adapters/storage/payment"
	settingsStore "nursery/internal/adapters/storage/settings"
	staffStore "nursery/internal/adapters/storage/staff"
	studentStore "nursery/internal/adapters/storage/student"

	accountDomain "nursery/internal/domain/account"
	classDomain "nursery/internal/domain/class"
	paymentDomain "nursery/internal/domain/payment"
	studentDomain "nursery/internal/domain/student"
)

// newTestStores builds a fresh in-memory store graph and resets the session
// store so tests never leak state into each other.
func newTestStores() *Stores {
	students := studentStore.NewMemoryStore()
	classes := classStore.NewMemoryStore(students)
	sessions = middleware.NewSessionStore()
	return &Stores{
		AccountStore:    accountStore.NewMemoryStore(),
		StudentStore:    students,
		ClassStore:      classes,
		AttendanceStore: attendanceStore.NewMemoryStore(classes),
		PaymentStore:    paymentStore.NewMemoryStore(),
		ExpenseStore:    expenseStore.NewMemoryStore(),
		StaffStore:      staffStore.NewMemoryStore(),
		EventStore:      eventStore.NewMemoryStore(),
		SettingsStore:   settingsStore.NewMemoryStore(),
		ActivityStore:   activityStore.NewMemoryStore(),
	}
}

func authRequest(method, url string, body string, sess middleware.Session) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	ctx := middleware.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx)
}

var adminSession = middleware.Session{
	UserID:    "user-admin",
	Username:  "admin",
	Role:      accountDomain.RoleAdmin,
	CreatedAt: time.Now(),
}

var staffSession = middleware.Session{
	UserID:    "user-staff",
	Username:  "staff",
	Role:      accountDomain.RoleStaff,
	CreatedAt: time.Now(),
}

func seedStudent(t *testing.T, id, name string) {
	t.Helper()
	err := stores.StudentStore.Save(context.Background(), studentDomain.Student{
		ID:     id,
		Name:   name,
		Status: studentDomain.StatusActive,
		Active: true,
	})
	if err != nil {
		t.Fatalf("seed student: %v", err)
	}
}

// --- Auth ---

func TestHandleLogin(t *testing.T) {
	stores = newTestStores()
	u := accountDomain.User{
		ID:       "u1",
		Username: "director",
		Role:     accountDomain.RoleAdmin,
		Active:   true,
	}
	if err := u.SetPassword("correct horse"); err != nil {
		t.Fatal(err)
	}
	if err := stores.AccountStore.Save(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(`{"Username":"director","Password":"correct horse"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		Token string
		Role  string
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.Role != accountDomain.RoleAdmin {
		t.Errorf("got role %q, want admin", resp.Role)
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	stores = newTestStores()
	u := accountDomain.User{ID: "u1", Username: "director", Role: accountDomain.RoleAdmin, Active: true}
	u.SetPassword("correct horse")
	stores.AccountStore.Save(context.Background(), u)

	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(`{"Username":"director","Password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// --- Students ---

func TestHandleStudents_POST_Unauthenticated(t *testing.T) {
	stores = newTestStores()
	req := httptest.NewRequest("POST", "/api/students", strings.NewReader(`{"Name":"Amira"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handleStudents(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleStudents_CreateAndList(t *testing.T) {
	stores = newTestStores()

	req := authRequest("POST", "/api/students", `{"Name":"Amira Haddad","BirthDate":"2022-04-01"}`, staffSession)
	rec := httptest.NewRecorder()
	handleStudents(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	req = authRequest("GET", "/api/students", "", staffSession)
	rec = httptest.NewRecorder()
	handleStudents(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct{ Students []studentDomain.Student }
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Students) != 1 || resp.Students[0].Name != "Amira Haddad" {
		t.Errorf("got %+v, want one student named Amira Haddad", resp.Students)
	}
}

func TestHandleStudents_POST_EmptyName(t *testing.T) {
	stores = newTestStores()
	req := authRequest("POST", "/api/students", `{"Name":""}`, staffSession)
	rec := httptest.NewRecorder()
	handleStudents(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleStudentByID_NotFound(t *testing.T) {
	stores = newTestStores()
	req := authRequest("GET", "/api/students/nope", "", staffSession)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	handleStudentByID(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// --- Classes ---

func TestHandleClasses_CreateEnrollWithdraw(t *testing.T) {
	stores = newTestStores()
	seedStudent(t, "s1", "Amira")

	req := authRequest("POST", "/api/classes", `{"Name":"Butterflies","AgeGroup":"3-4","Capacity":12}`, adminSession)
	rec := httptest.NewRecorder()
	handleClasses(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create class: got %d: %s", rec.Code, rec.Body.String())
	}
	var c classDomain.Class
	json.NewDecoder(rec.Body).Decode(&c)

	req = authRequest("POST", "/api/classes/"+c.ID+"/enroll", `{"StudentID":"s1"}`, adminSession)
	req.SetPathValue("id", c.ID)
	rec = httptest.NewRecorder()
	handleClassEnroll(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("enroll: got %d: %s", rec.Code, rec.Body.String())
	}

	// Enrolling the same student twice conflicts.
	req = authRequest("POST", "/api/classes/"+c.ID+"/enroll", `{"StudentID":"s1"}`, adminSession)
	req.SetPathValue("id", c.ID)
	rec = httptest.NewRecorder()
	handleClassEnroll(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate enroll: got %d, want %d", rec.Code, http.StatusConflict)
	}

	req = authRequest("DELETE", "/api/classes/"+c.ID+"/students/s1", "", adminSession)
	req.SetPathValue("id", c.ID)
	req.SetPathValue("studentID", "s1")
	rec = httptest.NewRecorder()
	handleClassWithdraw(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("withdraw: got %d", rec.Code)
	}
}

// --- Attendance ---

func TestHandleAttendance_Mark(t *testing.T) {
	stores = newTestStores()
	seedStudent(t, "s1", "Amira")
	stores.ClassStore.Save(context.Background(), classDomain.Class{ID: "c1", Name: "Butterflies", AgeGroup: "3-4", Capacity: 12, Active: true})
	stores.ClassStore.Enroll(context.Background(), classDomain.Membership{
		ID: "m1", ClassID: "c1", StudentID: "s1", EnrollmentDate: "2026-02-01", Active: true,
	})

	body := `{"StudentID":"s1","ClassID":"c1","Date":"2026-03-10","Status":"present"}`
	req := authRequest("POST", "/api/attendance", body, staffSession)
	rec := httptest.NewRecorder()
	handleAttendance(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

// --- Payments ---

func TestHandlePayments_CreateAndApplyInstallment(t *testing.T) {
	stores = newTestStores()
	seedStudent(t, "s1", "Amira")

	req := authRequest("POST", "/api/payments", `{"StudentID":"s1","Amount":400,"DueDate":"2026-04-15"}`, adminSession)
	rec := httptest.NewRecorder()
	handlePayments(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rec.Code, rec.Body.String())
	}
	var p paymentDomain.Payment
	json.NewDecoder(rec.Body).Decode(&p)

	req = authRequest("POST", "/api/payments/"+p.ID+"/installments", `{"Amount":150,"Method":"cash"}`, adminSession)
	req.SetPathValue("id", p.ID)
	rec = httptest.NewRecorder()
	handlePaymentInstallments(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("installment: got %d: %s", rec.Code, rec.Body.String())
	}
	json.NewDecoder(rec.Body).Decode(&p)
	if p.PartialAmount != 150 {
		t.Errorf("got partial %v, want 150", p.PartialAmount)
	}

	req = authRequest("GET", "/api/payments/"+p.ID, "", adminSession)
	req.SetPathValue("id", p.ID)
	rec = httptest.NewRecorder()
	handlePaymentByID(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail: got %d", rec.Code)
	}
	var detail struct{ HistoryTotal float64 }
	json.NewDecoder(rec.Body).Decode(&detail)
	if detail.HistoryTotal != 150 {
		t.Errorf("got history total %v, want 150", detail.HistoryTotal)
	}
}

func TestHandlePaymentByID_Patch(t *testing.T) {
	stores = newTestStores()
	seedStudent(t, "s1", "Amira")

	req := authRequest("POST", "/api/payments", `{"StudentID":"s1","Amount":400,"DueDate":"2026-04-15"}`, adminSession)
	rec := httptest.NewRecorder()
	handlePayments(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rec.Code, rec.Body.String())
	}
	var p paymentDomain.Payment
	json.NewDecoder(rec.Body).Decode(&p)

	req = authRequest("PATCH", "/api/payments/"+p.ID, `{"DueDate":"2026-05-15","Note":"rescheduled"}`, adminSession)
	req.SetPathValue("id", p.ID)
	rec = httptest.NewRecorder()
	handlePaymentByID(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: got %d: %s", rec.Code, rec.Body.String())
	}
	json.NewDecoder(rec.Body).Decode(&p)
	if p.DueDate != "2026-05-15" {
		t.Errorf("got due date %q, want 2026-05-15", p.DueDate)
	}
	if p.Note != "rescheduled" {
		t.Errorf("got note %q, want rescheduled", p.Note)
	}
	if p.Amount != 400 {
		t.Errorf("amount must be untouched, got %v", p.Amount)
	}
}

func TestHandlePayments_CSVExport(t *testing.T) {
	stores = newTestStores()
	seedStudent(t, "s1", "Amira")
	req := authRequest("POST", "/api/payments", `{"StudentID":"s1","Amount":400,"DueDate":"2026-04-15"}`, adminSession)
	rec := httptest.NewRecorder()
	handlePayments(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	req = authRequest("GET", "/api/payments?format=csv", "", adminSession)
	rec = httptest.NewRecorder()
	handlePayments(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("got content type %q, want text/csv", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "id,student_id,amount,") {
		t.Errorf("unexpected CSV header: %q", rec.Body.String())
	}
}

// --- Plans ---

func TestHandlePlans_CreateGeneratesPayments(t *testing.T) {
	stores = newTestStores()
	seedStudent(t, "s1", "Amira")

	body := `{"StudentID":"s1","Name":"Spring term","Type":"monthly","StartDate":"2026-01-01","EndDate":"2026-03-31","MonthlyAmount":100}`
	req := authRequest("POST", "/api/plans", body, adminSession)
	rec := httptest.NewRecorder()
	handlePlans(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	req = authRequest("GET", "/api/payments?student_id=s1", "", adminSession)
	rec = httptest.NewRecorder()
	handlePayments(rec, req)
	var resp struct {
		Payments []struct{ Amount float64 }
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Payments) != 3 {
		t.Errorf("got %d generated payments, want 3", len(resp.Payments))
	}
}

func TestHandlePlanGenerate(t *testing.T) {
	stores = newTestStores()
	seedStudent(t, "s1", "Amira")

	body := `{"StudentID":"s1","Name":"Spring term","Type":"monthly","StartDate":"2026-01-01","EndDate":"2026-03-31","MonthlyAmount":100}`
	req := authRequest("POST", "/api/plans", body, adminSession)
	rec := httptest.NewRecorder()
	handlePlans(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create plan: got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Plan struct{ ID string }
	}
	json.NewDecoder(rec.Body).Decode(&created)

	// The schedule already exists, so regeneration adds nothing.
	req = authRequest("POST", "/api/plans/"+created.Plan.ID+"/generate", "", adminSession)
	req.SetPathValue("id", created.Plan.ID)
	rec = httptest.NewRecorder()
	handlePlanGenerate(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate: got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Payments []struct{ ID string }
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Payments) != 0 {
		t.Errorf("got %d new payments, want 0", len(resp.Payments))
	}

	req = authRequest("POST", "/api/plans/ghost/generate", "", adminSession)
	req.SetPathValue("id", "ghost")
	rec = httptest.NewRecorder()
	handlePlanGenerate(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown plan: got %d, want 404", rec.Code)
	}
}

// --- Expenses ---

func TestHandleExpenses_CreateAndSummary(t *testing.T) {
	stores = newTestStores()

	req := authRequest("POST", "/api/expenses", `{"Category":"food","Description":"Groceries","Amount":120.5,"Date":"2026-03-05"}`, adminSession)
	rec := httptest.NewRecorder()
	handleExpenses(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	req = authRequest("GET", "/api/expenses/summary?from=2026-03-01&to=2026-03-31", "", adminSession)
	rec = httptest.NewRecorder()
	handleExpenseSummary(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: got %d", rec.Code)
	}
	var resp struct {
		ByCategory map[string]float64
		Total      float64
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Total != 120.5 || resp.ByCategory["food"] != 120.5 {
		t.Errorf("got %+v, want food 120.5", resp)
	}
}

// --- Reports ---

func TestHandleDashboard_Empty(t *testing.T) {
	stores = newTestStores()
	req := authRequest("GET", "/api/reports/dashboard", "", staffSession)
	rec := httptest.NewRecorder()
	handleDashboard(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleFinanceReport_CSV(t *testing.T) {
	stores = newTestStores()
	req := authRequest("GET", "/api/reports/finance?year=2026&format=csv", "", adminSession)
	rec := httptest.NewRecorder()
	handleFinanceReport(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "month,income,expense,net") {
		t.Errorf("unexpected CSV header: %q", rec.Body.String())
	}
}

// --- Users ---

func TestHandleUsers_POST_NonAdmin(t *testing.T) {
	stores = newTestStores()
	req := authRequest("POST", "/api/users", `{"Username":"helper","Password":"long enough pw","Role":"staff"}`, staffSession)
	rec := httptest.NewRecorder()
	handleUsers(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestHandleUsers_POST_Admin(t *testing.T) {
	stores = newTestStores()
	req := authRequest("POST", "/api/users", `{"Username":"helper","Password":"long enough pw","Role":"staff"}`, adminSession)
	rec := httptest.NewRecorder()
	handleUsers(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	var u accountDomain.User
	json.NewDecoder(rec.Body).Decode(&u)
	if u.PasswordHash != "" {
		t.Error("password hash must not leak in responses")
	}
}

// --- Settings ---

func TestHandleSettings_PutAndGet(t *testing.T) {
	stores = newTestStores()

	req := authRequest("PUT", "/api/settings", `{"Key":"nursery_name","Value":"Sunflower House"}`, adminSession)
	rec := httptest.NewRecorder()
	handleSettings(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put: got %d: %s", rec.Code, rec.Body.String())
	}

	req = authRequest("GET", "/api/settings", "", adminSession)
	rec = httptest.NewRecorder()
	handleSettings(rec, req)
	var resp struct{ Settings map[string]string }
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Settings["nursery_name"] != "Sunflower House" {
		t.Errorf("got %+v", resp.Settings)
	}
}

// --- Staff and events ---

func TestHandleStaff_Create(t *testing.T) {
	stores = newTestStores()
	req := authRequest("POST", "/api/staff", `{"Name":"Leila Mansour","Role":"teacher","HireDate":"2025-09-01"}`, adminSession)
	rec := httptest.NewRecorder()
	handleStaff(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleEvents_Create(t *testing.T) {
	stores = newTestStores()
	req := authRequest("POST", "/api/events", `{"Name":"Spring fair","Date":"2026-04-20","Location":"Main hall"}`, adminSession)
	rec := httptest.NewRecorder()
	handleEvents(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
}

// --- Backup ---

func TestHandleBackup_MemoryBackend(t *testing.T) {
	stores = newTestStores()
	req := authRequest("POST", "/api/admin/backup", "", adminSession)
	rec := httptest.NewRecorder()
	handleBackup(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
