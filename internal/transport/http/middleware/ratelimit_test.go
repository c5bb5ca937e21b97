package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrdesk/internal/domain/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	store, err := NewRateLimitStore(nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	limited := RateLimit(store, 1, time.Minute)(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/api/employee/expenses", nil)
	first = first.WithContext(WithUser(first.Context(), auth.UserContext{TenantID: "tenant-1", UserID: "user-1"}))
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}
	if firstRec.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("expected limit header, got %q", firstRec.Header().Get("X-RateLimit-Limit"))
	}

	second := httptest.NewRequest(http.MethodPost, "/api/employee/expenses", nil)
	second = second.WithContext(WithUser(second.Context(), auth.UserContext{TenantID: "tenant-1", UserID: "user-1"}))
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by user key, got %d", secondRec.Code)
	}
	if secondRec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	store, _ := NewRateLimitStore(nil)
	limited := RateLimit(store, 1, time.Minute)(okHandler())

	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/api/shared/holidays", nil)
		req.RemoteAddr = "203.0.113.10:4444"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}

	other := httptest.NewRequest(http.MethodGet, "/api/shared/holidays", nil)
	other.RemoteAddr = "203.0.113.99:4444"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, other)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("different ip should have its own budget, got %d", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	store, _ := NewRateLimitStore(nil)
	limited := RateLimit(store, 0, time.Minute)(okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected limiter to be disabled, got %d", rec.Code)
		}
	}
}

func TestSensitiveLimitThrottlesLoginByEmail(t *testing.T) {
	store, _ := NewRateLimitStore(nil)
	limited := SensitiveMutationRateLimit(store, 4, time.Minute, nil)(okHandler())

	send := func(email, ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":"`+email+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := send("a@example.com", "192.0.2.1:1"); code != http.StatusNoContent {
		t.Fatalf("expected first login to pass, got %d", code)
	}
	if code := send("A@example.com", "192.0.2.2:1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected same email from another ip to be throttled, got %d", code)
	}
}

func TestSensitiveLimitKeysCredentialChangesByUser(t *testing.T) {
	store, _ := NewRateLimitStore(nil)
	limited := SensitiveMutationRateLimit(store, 4, time.Minute, nil)(okHandler())

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/shared/auth/password", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.50:1"
		req = req.WithContext(WithUser(req.Context(), auth.UserContext{TenantID: "tenant-1", UserID: userID}))
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}
	// one office NAT, two people changing passwords
	if code := send("alice"); code != http.StatusNoContent {
		t.Fatalf("expected first user to pass, got %d", code)
	}
	if code := send("bob"); code != http.StatusNoContent {
		t.Fatalf("expected second user on the same ip to have their own budget, got %d", code)
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("expected repeat from the first user to be throttled, got %d", code)
	}
}

func TestSensitiveRateScope(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   sensitiveScope
	}{
		{http.MethodPost, "/api/auth/login", sensitiveScopeAuth},
		{http.MethodPost, "/api/shared/auth/password", sensitiveScopeCredential},
		{http.MethodPost, "/api/shared/auth/mfa/enable", sensitiveScopeCredential},
		{http.MethodPost, "/api/admin/payroll/generate", sensitiveScopeActor},
		{http.MethodPost, "/api/admin/payroll/abc/finalize", sensitiveScopeActor},
		{http.MethodPost, "/api/admin/jobs/attendance.absence_sweep/run", sensitiveScopeActor},
		{http.MethodGet, "/api/auth/login", sensitiveScopeNone},
		{http.MethodPost, "/api/employee/expenses", sensitiveScopeNone},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := sensitiveRateScope(req); got != tc.want {
			t.Errorf("%s %s: got %q want %q", tc.method, tc.path, got, tc.want)
		}
	}
}
