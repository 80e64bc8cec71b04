package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nursery/internal/domain/account"
)

func TestSessionStore_CreateGetDelete(t *testing.T) {
	ss := NewSessionStore()
	token, err := ss.Create("u1", "director", account.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	sess, ok := ss.Get(token)
	if !ok {
		t.Fatal("expected session")
	}
	if sess.UserID != "u1" || sess.Role != account.RoleAdmin {
		t.Errorf("got %+v", sess)
	}

	ss.Delete(token)
	if _, ok := ss.Get(token); ok {
		t.Error("session should be gone after Delete")
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	ss := NewSessionStore()
	ss.sessions["stale"] = Session{
		UserID:    "u1",
		Username:  "director",
		Role:      account.RoleAdmin,
		CreatedAt: time.Now().Add(-SessionTTL - time.Minute),
	}
	if _, ok := ss.Get("stale"); ok {
		t.Error("expired session should not be returned")
	}
	if _, still := ss.sessions["stale"]; still {
		t.Error("expired session should be evicted")
	}
}

func TestSessionStore_DeleteByUserID(t *testing.T) {
	ss := NewSessionStore()
	t1, _ := ss.Create("u1", "director", account.RoleAdmin)
	t2, _ := ss.Create("u1", "director", account.RoleAdmin)
	t3, _ := ss.Create("u2", "helper", account.RoleStaff)

	ss.DeleteByUserID("u1")
	if _, ok := ss.Get(t1); ok {
		t.Error("first u1 session should be gone")
	}
	if _, ok := ss.Get(t2); ok {
		t.Error("second u1 session should be gone")
	}
	if _, ok := ss.Get(t3); !ok {
		t.Error("u2 session should survive")
	}
}

func TestTokenFromRequest_BearerHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/students", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	if got := tokenFromRequest(req); got != "abc123" {
		t.Errorf("got %q, want abc123", got)
	}
}

func TestTokenFromRequest_CookieWins(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/students", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	if got := tokenFromRequest(req); got != "from-cookie" {
		t.Errorf("got %q, want from-cookie", got)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(account.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// No session at all.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no session: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Wrong role.
	req := httptest.NewRequest("GET", "/api/users", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{UserID: "u1", Role: account.RoleStaff, CreatedAt: time.Now()}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("staff: got %d, want %d", rec.Code, http.StatusForbidden)
	}

	// Matching role passes through.
	req = httptest.NewRequest("GET", "/api/users", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{UserID: "u1", Role: account.RoleAdmin, CreatedAt: time.Now()}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_SetsSessionFromBearer(t *testing.T) {
	ss := NewSessionStore()
	token, _ := ss.Create("u1", "director", account.RoleAdmin)

	var got Session
	var ok bool
	handler := Auth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetSessionFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/students", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ok || got.UserID != "u1" {
		t.Errorf("got %+v ok=%v, want session for u1", got, ok)
	}
}
