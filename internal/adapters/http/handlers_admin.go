package web

import (
	"net/http"
	"time"

	eventStore "nursery/internal/adapters/storage/event"
	"nursery/internal/application/listutil"
	"nursery/internal/application/orchestrators"
	eventDomain "nursery/internal/domain/event"
	staffDomain "nursery/internal/domain/staff"
)

// --- Users ---

// handleUsers handles GET (list) and POST (create) for /api/users.
// Both are admin-only; the orchestrators enforce that again.
func handleUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		users, err := orchestrators.ExecuteListUsers(r.Context(), principal, r.URL.Query().Get("include_inactive") == "true", loginDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Users": users})
	case http.MethodPost:
		var input orchestrators.CreateUserInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		u, err := orchestrators.ExecuteCreateUser(r.Context(), principal, input, loginDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleUserByID handles DELETE /api/users/{id} (deactivate). Any live
// sessions for the account are revoked so the deactivation takes effect
// immediately.
func handleUserByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	userID := r.PathValue("id")
	if err := orchestrators.ExecuteDeactivateUser(r.Context(), principal, userID, loginDeps()); err != nil {
		respondError(w, err)
		return
	}
	sessions.DeleteByUserID(userID)
	w.WriteHeader(http.StatusNoContent)
}

// --- Settings ---

// handleSettings handles GET (all settings) and PUT (upsert one) for
// /api/settings.
func handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		all, err := orchestrators.ExecuteGetSettings(r.Context(), settingsDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Settings": all})
	case http.MethodPut:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input struct {
			Key   string
			Value string
		}
		if err := strictDecode(r, &input); err != nil || input.Key == "" {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err := orchestrators.ExecuteUpdateSetting(r.Context(), principal, input.Key, input.Value, settingsDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- Activity log ---

// handleActivity handles GET /api/activity, newest first.
func handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	pp := listutil.ParsePageParams(q)
	result, err := orchestrators.ExecuteListActivity(r.Context(), orchestrators.ListActivityInput{
		UserID: q.Get("user_id"),
		Action: q.Get("action"),
		Limit:  pp.PerPage,
		Offset: pp.Offset(),
	}, orchestrators.ListActivityDeps{ActivityStore: stores.ActivityStore})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Staff ---

// handleStaff handles GET (list) and POST (create) for /api/staff.
func handleStaff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := orchestrators.ExecuteListStaff(r.Context(), r.URL.Query().Get("include_inactive") == "true", staffDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Staff": list})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.CreateStaffInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		s, err := orchestrators.ExecuteCreateStaff(r.Context(), principal, input, staffDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleStaffByID handles GET, PATCH and DELETE for /api/staff/{id}.
func handleStaffByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		s, err := stores.StaffStore.GetByID(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	case http.MethodPatch:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var update staffDomain.Update
		if err := strictDecode(r, &update); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		s, err := orchestrators.ExecuteUpdateStaff(r.Context(), principal, id, update, staffDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	case http.MethodDelete:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		if err := orchestrators.ExecuteDeleteStaff(r.Context(), principal, id, staffDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- Events ---

// handleEvents handles GET (list) and POST (create) for /api/events.
func handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		pp := listutil.ParsePageParams(q)
		events, err := orchestrators.ExecuteListEvents(r.Context(), eventStore.ListFilter{
			Status:          q.Get("status"),
			From:            q.Get("from"),
			To:              q.Get("to"),
			IncludeInactive: q.Get("include_inactive") == "true",
			Limit:           pp.PerPage,
			Offset:          pp.Offset(),
		}, eventDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Events": events})
	case http.MethodPost:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var input orchestrators.CreateEventInput
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		e, err := orchestrators.ExecuteCreateEvent(r.Context(), principal, input, eventDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleEventByID handles GET, PATCH and DELETE for /api/events/{id}.
func handleEventByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		e, err := stores.EventStore.GetByID(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	case http.MethodPatch:
		principal, ok := requirePrincipal(w, r)
		if !ok {
			return
		}
		var update eventDomain.Update
		if err := strictDecode(r, &update); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		e, err := orchestrators.ExecuteUpdateEvent(r.Context(), principal, id, update, eventDeps())
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
		if err := orchestrators.ExecuteDeleteEvent(r.Context(), principal, id, eventDeps()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- Backup ---

// handleBackup handles POST /api/admin/backup. Only available on the SQLite
// backend; the memory backend has no file to copy.
func handleBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if stores.Manager == nil {
		http.Error(w, "Backups require the sqlite backend", http.StatusServiceUnavailable)
		return
	}
	path, err := orchestrators.ExecuteBackup(r.Context(), principal, stores.BackupDir, backupDeps())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"Path": path})
}

// handleRestore handles POST /api/admin/restore with a JSON body naming the
// snapshot file to restore from.
func handleRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if stores.Manager == nil {
		http.Error(w, "Restore requires the sqlite backend", http.StatusServiceUnavailable)
		return
	}
	var input struct {
		Path string
	}
	if err := strictDecode(r, &input); err != nil || input.Path == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := orchestrators.ExecuteRestore(r.Context(), principal, input.Path, backupDeps()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Performance ---

// handlePerf handles GET /api/admin/perf, returning request latency
// percentiles over a trailing window.
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	minutes := parseIntDefault(r.URL.Query().Get("minutes"), 60)
	top := parseIntDefault(r.URL.Query().Get("top"), 10)
	since := timeNow().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(since, top))
}

// --- Deps wiring ---

func settingsDeps() orchestrators.SettingsDeps {
	return orchestrators.SettingsDeps{
		SettingsStore: stores.SettingsStore,
		ActivityStore: stores.ActivityStore,
	}
}

func staffDeps() orchestrators.StaffDeps {
	return orchestrators.StaffDeps{
		StaffStore:    stores.StaffStore,
		ActivityStore: stores.ActivityStore,
	}
}

func eventDeps() orchestrators.EventDeps {
	return orchestrators.EventDeps{
		EventStore:    stores.EventStore,
		ActivityStore: stores.ActivityStore,
	}
}

func backupDeps() orchestrators.BackupDeps {
	return orchestrators.BackupDeps{
		Manager:       stores.Manager,
		ActivityStore: stores.ActivityStore,
	}
}
