package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"nursery/internal/adapters/http/middleware"
	"nursery/internal/application/listutil"
	"nursery/internal/application/orchestrators"
	accountDomain "nursery/internal/domain/account"
	attendanceDomain "nursery/internal/domain/attendance"
	classDomain "nursery/internal/domain/class"
	eventDomain "nursery/internal/domain/event"
	expenseDomain "nursery/internal/domain/expense"
	paymentDomain "nursery/internal/domain/payment"
	staffDomain "nursery/internal/domain/staff"
	studentDomain "nursery/internal/domain/student"
)

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps domain sentinel errors onto HTTP status codes.
// Unrecognised errors are treated as internal.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studentDomain.ErrNotFound),
		errors.Is(err, studentDomain.ErrVaccinationNotFound),
		errors.Is(err, classDomain.ErrNotFound),
		errors.Is(err, paymentDomain.ErrNotFound),
		errors.Is(err, paymentDomain.ErrPlanNotFound),
		errors.Is(err, expenseDomain.ErrNotFound),
		errors.Is(err, eventDomain.ErrNotFound),
		errors.Is(err, staffDomain.ErrNotFound),
		errors.Is(err, attendanceDomain.ErrNotFound),
		errors.Is(err, accountDomain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, accountDomain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, accountDomain.ErrInvalidCredential):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, classDomain.ErrAlreadyEnrolled),
		errors.Is(err, accountDomain.ErrUsernameTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, studentDomain.ErrEmptyName),
		errors.Is(err, studentDomain.ErrInvalidStatus),
		errors.Is(err, classDomain.ErrEmptyName),
		errors.Is(err, classDomain.ErrEmptyAgeGroup),
		errors.Is(err, classDomain.ErrClassFull),
		errors.Is(err, classDomain.ErrNotEnrolled),
		errors.Is(err, paymentDomain.ErrInvalidStatus),
		errors.Is(err, paymentDomain.ErrInvalidPlanType),
		errors.Is(err, paymentDomain.ErrNonPositiveAmount),
		errors.Is(err, attendanceDomain.ErrInvalidStatus),
		errors.Is(err, accountDomain.ErrEmptyUsername),
		errors.Is(err, accountDomain.ErrInvalidRole),
		errors.Is(err, accountDomain.ErrEmptyPassword),
		errors.Is(err, accountDomain.ErrPasswordTooShort),
		errors.Is(err, accountDomain.ErrWrongPassword):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		internalError(w, err)
	}
}

// requirePrincipal extracts the authenticated principal, or writes a 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (accountDomain.Principal, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return accountDomain.Principal{}, false
	}
	return sess.Principal(), true
}

// --- Auth ---

// handleLogin handles POST /api/login.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.LoginInput
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	principal, err := orchestrators.ExecuteLogin(r.Context(), input, loginDeps())
	if err != nil {
		respondError(w, err)
		return
	}

	token, err := sessions.Create(principal.UserID, principal.Username, principal.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]any{
		"Token":    token,
		"UserID":   principal.UserID,
		"Username": principal.Username,
		"Role":     principal.Role,
	})
}

// handleLogout handles POST /api/logout.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("nursery_session"); err == nil && cookie.Value != "" {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword handles POST /api/password.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var input orchestrators.ChangePasswordInput
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if input.UserID == "" {
		input.UserID = principal.UserID
	}

	if err := orchestrators.ExecuteChangePassword(r.Context(), principal, input, loginDeps()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Students ---

// handleStudents handles GET (list) and POST (create) for /api/students.
func handleStudents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		lp := listutil.ParseListParams(r.URL.Query(), []string{"status", "class_id"})
		input := orchestrators.ListStudentsInput{
			Status:          lp.Filters["status"],
			ClassID:         lp.Filters["class_id"],
			Search:          lp.Search,
			IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
			Limit:           lp.PerPage,
			Offset:          lp.Offset(),
		}
		students, err := orchestrators.ExecuteListStudents(r.Context(), input, studentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Students": students})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.CreateStudentInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		st, err := orchestrators.ExecuteCreateStudent(r.Context(), principal, input, studentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, st)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleStudentByID handles GET, PATCH and DELETE for /api/students/{id}.
func handleStudentByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		st, err := stores.StudentStore.GetByID(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodPatch:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var update studentDomain.Update
		if err := strictDecode(r, &update); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		st, err := orchestrators.ExecuteUpdateStudent(r.Context(), principal, orchestrators.UpdateStudentInput{
			StudentID: id,
			Update:    update,
		}, studentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodDelete:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := orchestrators.ExecuteDeleteStudent(r.Context(), principal, id, studentDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleStudentVaccinations handles GET (list) and POST (add) for
// /api/students/{id}/vaccinations.
func handleStudentVaccinations(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		vaccinations, err := stores.StudentStore.ListVaccinations(r.Context(), studentID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Vaccinations": vaccinations})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.AddVaccinationInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		input.StudentID = studentID
		v, err := orchestrators.ExecuteAddVaccination(r.Context(), principal, input, studentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleVaccinationByID handles PATCH and DELETE for /api/vaccinations/{id}.
func handleVaccinationByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPatch:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var update studentDomain.VaccinationUpdate
		if err := strictDecode(r, &update); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		v, err := orchestrators.ExecuteUpdateVaccination(r.Context(), principal, id, update, studentDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	case http.MethodDelete:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := orchestrators.ExecuteDeleteVaccination(r.Context(), principal, id, studentDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- Classes ---

// handleClasses handles GET (list) and POST (create) for /api/classes.
func handleClasses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		includeInactive := r.URL.Query().Get("include_inactive") == "true"
		classes, err := orchestrators.ExecuteListClasses(r.Context(), includeInactive, classDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Classes": classes})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.CreateClassInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		c, err := orchestrators.ExecuteCreateClass(r.Context(), principal, input, classDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleClassByID handles GET (roster), PATCH and DELETE for /api/classes/{id}.
// Deleting a class also clears its students' class link.
func handleClassByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		roster, err := orchestrators.ExecuteGetClassRoster(r.Context(), id, classDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roster)
	case http.MethodPatch:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var update classDomain.Update
		if err := strictDecode(r, &update); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		c, err := orchestrators.ExecuteUpdateClass(r.Context(), principal, orchestrators.UpdateClassInput{
			ClassID: id,
			Update:  update,
		}, classDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := orchestrators.ExecuteDeleteClass(r.Context(), principal, id, classDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleClassEnroll handles POST /api/classes/{id}/enroll.
func handleClassEnroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var input orchestrators.EnrollStudentInput
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	input.ClassID = r.PathValue("id")
	if err := orchestrators.ExecuteEnrollStudent(r.Context(), principal, input, classDeps()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClassWithdraw handles DELETE /api/classes/{id}/students/{studentID}.
func handleClassWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteWithdrawStudent(r.Context(), principal, r.PathValue("id"), r.PathValue("studentID"), classDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Attendance ---

// handleAttendance handles GET (day summary) and POST (mark one) for /api/attendance.
func handleAttendance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		summary, err := orchestrators.ExecuteAttendanceOverview(r.Context(), orchestrators.AttendanceOverviewInput{
			Date:    r.URL.Query().Get("date"),
			ClassID: r.URL.Query().Get("class_id"),
		}, attendanceDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.MarkAttendanceInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		rec, err := orchestrators.ExecuteMarkAttendance(r.Context(), principal, input, attendanceDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAttendanceBulk handles POST /api/attendance/bulk, marking a whole
// class roster in one call. All-or-nothing: one off-roster student rejects
// the batch.
func handleAttendanceBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var input orchestrators.MarkClassAttendanceInput
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	n, err := orchestrators.ExecuteMarkClassAttendance(r.Context(), principal, input, attendanceDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"Marked": n})
}

// handleClassAttendance handles GET /api/classes/{id}/attendance?date=.
func handleClassAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	records, err := stores.AttendanceStore.ListByClassDate(r.Context(), r.PathValue("id"), r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"Records": records})
}

// handleStudentAttendance handles GET /api/students/{id}/attendance?from=&to=.
func handleStudentAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, err := orchestrators.ExecuteStudentAttendance(r.Context(), orchestrators.StudentAttendanceInput{
		StudentID: r.PathValue("id"),
		From:      r.URL.Query().Get("from"),
		To:        r.URL.Query().Get("to"),
	}, attendanceDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAttendanceByID handles DELETE /api/attendance/{id}.
func handleAttendanceByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := orchestrators.ExecuteDeleteAttendance(r.Context(), principal, r.PathValue("id"), attendanceDeps()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Deps wiring ---

func loginDeps() orchestrators.LoginDeps {
	return orchestrators.LoginDeps{
		AccountStore:  stores.AccountStore,
		ActivityStore: stores.ActivityStore,
	}
}

func studentDeps() orchestrators.StudentDeps {
	return orchestrators.StudentDeps{
		StudentStore:  stores.StudentStore,
		ActivityStore: stores.ActivityStore,
	}
}

func classDeps() orchestrators.ClassDeps {
	return orchestrators.ClassDeps{
		ClassStore:    stores.ClassStore,
		StudentStore:  stores.StudentStore,
		ActivityStore: stores.ActivityStore,
	}
}

func attendanceDeps() orchestrators.AttendanceDeps {
	return orchestrators.AttendanceDeps{
		AttendanceStore: stores.AttendanceStore,
		RosterStore:     stores.ClassStore,
		ActivityStore:   stores.ActivityStore,
	}
}

// parseIntDefault parses s or falls back to def.
func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
