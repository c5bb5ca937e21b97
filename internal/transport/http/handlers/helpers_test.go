package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"hrdesk/internal/app/server"
	"hrdesk/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Total int `json:"total"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testEnv struct {
	t      *testing.T
	cfg    config.Config
	app    *server.App
	server *httptest.Server
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		Addr:               ":0",
		AppBaseURL:         "http://localhost:8080",
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		Environment:        "test",
		LogLevel:           "error",
		SeedTenantName:     "Test Tenant",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		WorkDayStart:       "09:00",
		WorkDayEnd:         "17:00",
		WorkTimezone:       "UTC",
		TaxRatePercent:     "10",
		MetricsEnabled:     true,
	}
}

// newTestEnv boots the full app against TEST_DATABASE_URL or skips.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	ts := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		ts.Close()
		app.Close()
	})
	return &testEnv{t: t, cfg: cfg, app: app, server: ts}
}

func (e *testEnv) adminToken() string {
	return e.login(e.cfg.SeedAdminEmail, e.cfg.SeedAdminPassword)
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	env := e.expect(http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": password}, http.StatusOK)
	var payload struct {
		Token string `json:"token"`
	}
	decode(e.t, env.Data, &payload)
	if payload.Token == "" {
		e.t.Fatal("expected token")
	}
	return payload.Token
}

// createUser creates a user through the admin API and returns its id.
func (e *testEnv) createUser(adminToken, role string, extra map[string]any) (string, string) {
	e.t.Helper()
	email := fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano())
	body := map[string]any{
		"email":      email,
		"password":   "Password123!",
		"firstName":  "Test",
		"lastName":   role,
		"role":       role,
		"baseSalary": 3000,
		"currency":   "USD",
		"hireDate":   "2024-01-15",
	}
	for k, v := range extra {
		body[k] = v
	}
	env := e.expect(http.MethodPost, "/api/admin/users", adminToken, body, http.StatusCreated)
	return dataID(e.t, env), email
}

func (e *testEnv) do(method, path, token string, body any, headers map[string]string) (int, envelope, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("failed to marshal payload: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		e.t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		e.t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(raw, &env); err != nil {
			e.t.Fatalf("failed to decode response: %v: %s", err, raw)
		}
	}
	return resp.StatusCode, env, raw
}

func (e *testEnv) expect(method, path, token string, body any, want int) envelope {
	e.t.Helper()
	status, env, raw := e.do(method, path, token, body, nil)
	if status != want {
		e.t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, want, status, raw)
	}
	return env
}

func decode(t *testing.T, raw json.RawMessage, dst any) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("failed to decode data: %v: %s", err, raw)
	}
}

func dataID(t *testing.T, env envelope) string {
	t.Helper()
	var payload struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &payload)
	if payload.ID == "" {
		t.Fatalf("expected id in %s", env.Data)
	}
	return payload.ID
}

func dataStatus(t *testing.T, env envelope) string {
	t.Helper()
	var payload struct {
		Status string `json:"status"`
	}
	decode(t, env.Data, &payload)
	return payload.Status
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}
