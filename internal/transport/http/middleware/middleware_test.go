package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/platform/metrics"
	"hrdesk/internal/platform/requestctx"
)

type fakeSessions map[string]bool

func (f fakeSessions) SessionActive(_ context.Context, id string) (bool, error) {
	active, ok := f[id]
	if !ok {
		return false, errors.New("lookup failed")
	}
	return active, nil
}

func mustToken(t *testing.T, secret, role, session string) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", TenantID: "t1", Role: role, SessionID: session}, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	token := mustToken(t, secret, auth.RoleManager, "s1")

	var got auth.UserContext
	handler := Auth(secret, fakeSessions{"s1": true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got.UserID != "u1" || got.Role != auth.RoleManager || got.SessionID != "s1" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestAuthMiddlewareIgnoresRevokedAndBadTokens(t *testing.T) {
	secret := "test-secret"
	cases := map[string]string{
		"missing":       "",
		"wrong scheme":  "Basic abc",
		"bad signature": "Bearer " + mustToken(t, "other-secret", auth.RoleAdmin, "s1"),
		"revoked":       "Bearer " + mustToken(t, secret, auth.RoleAdmin, "s2"),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			handler := Auth(secret, fakeSessions{"s1": true, "s2": false})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, ok := GetUser(r.Context()); ok {
					t.Fatal("did not expect user in context")
				}
			}))
			req := httptest.NewRequest(http.MethodGet, "/?access_token="+mustToken(t, secret, auth.RoleAdmin, "s1"), nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
		})
	}
}

func TestAuthMiddlewareWebsocketQueryToken(t *testing.T) {
	secret := "test-secret"
	var ok bool
	handler := Auth(secret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = GetUser(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/shared/notifications/ws?access_token="+mustToken(t, secret, auth.RoleEmployee, "s1"), nil)
	req.Header.Set("Upgrade", "websocket")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !ok {
		t.Fatal("expected query token to authenticate websocket upgrade")
	}
}

func TestAuthMiddlewareSessionLookupError(t *testing.T) {
	secret := "test-secret"
	handler := Auth(secret, fakeSessions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, secret, auth.RoleAdmin, "unknown"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(auth.RoleManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	cases := []struct {
		name   string
		user   *auth.UserContext
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"employee", &auth.UserContext{UserID: "u1", Role: auth.RoleEmployee}, http.StatusForbidden},
		{"manager", &auth.UserContext{UserID: "u2", Role: auth.RoleManager}, http.StatusNoContent},
		{"admin", &auth.UserContext{UserID: "u3", Role: auth.RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/manager/team", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), *tc.user))
			}
			rec := httptest.NewRecorder()
			guard.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	guard := RequirePermission(auth.PermExpensesPay)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: auth.RoleManager}))
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("manager should not pay expenses, got %d", rec.Code)
	}
}

func TestRequestIDPropagatesAndRecordsClientIP(t *testing.T) {
	var gotID, gotIP string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		gotIP = requestctx.GetClientIP(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	req.RemoteAddr = "198.51.100.7:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if gotID != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected request id to propagate, got %q", gotID)
	}
	if gotIP != "198.51.100.7" {
		t.Fatalf("expected client ip, got %q", gotIP)
	}
}

func TestRecovererReturnsJSON500(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("internal_error")) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestLoggerRecordsMetrics(t *testing.T) {
	collector := metrics.New()
	handler := Logger(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	snap := collector.Snapshot()
	if snap["requestsTotal"] != uint64(1) || snap["clientErrorsTotal"] != uint64(1) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	declared := httptest.NewRecorder()
	handler.ServeHTTP(declared, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("0123456789")))
	if declared.Code != http.StatusRequestEntityTooLarge || !strings.Contains(declared.Body.String(), "payload_too_large") {
		t.Fatalf("expected envelope 413, got %d %s", declared.Code, declared.Body.String())
	}

	streamed := httptest.NewRequest(http.MethodPut, "/", io.NopCloser(bytes.NewBufferString("0123456789")))
	streamed.ContentLength = -1
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, streamed)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected read past limit to fail, got %d", rec.Code)
	}

	small := httptest.NewRecorder()
	handler.ServeHTTP(small, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("ok")))
	if small.Code != http.StatusNoContent {
		t.Fatalf("expected small body to pass, got %d", small.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	for _, prod := range []bool{false, true} {
		rec := httptest.NewRecorder()
		SecureHeaders(prod)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Cache-Control") != "no-store" {
			t.Fatalf("missing base headers: %v", rec.Header())
		}
		if hsts := rec.Header().Get("Strict-Transport-Security") != ""; hsts != prod {
			t.Fatalf("prod=%v but hsts present=%v", prod, hsts)
		}
	}
}
