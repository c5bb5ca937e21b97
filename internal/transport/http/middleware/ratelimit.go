package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"hrdesk/internal/platform/metrics"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

type rateLimiter struct {
	instance  *limiter.Limiter
	prefix    string
	keyFn     RateLimitKeyFunc
	collector *metrics.Collector
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

func WithMetrics(collector *metrics.Collector) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.collector = collector
	}
}

// NewRateLimitStore shares counters through redis when a client is given so
// every replica enforces the same budget.
func NewRateLimitStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memorystore.NewStore(), nil
	}
	return redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   "hrdesk:ratelimit",
		MaxRetry: 3,
	})
}

func RateLimit(store limiter.Store, limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(store, "general", limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies tighter budgets to credential endpoints
// and to payroll and job triggers.
func SensitiveMutationRateLimit(store limiter.Store, baseLimit int, window time.Duration, collector *metrics.Collector) func(http.Handler) http.Handler {
	authLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	authByIP := newRateLimiter(store, "auth-ip", authLimit, window, clientIPKey)
	authByEmail := newRateLimiter(store, "auth-email", authLimit, window, AuthEmailOrIPKey("email"))
	credentialByActor := newRateLimiter(store, "credential", authLimit, window, actorOrIPKey)
	sensitiveByActor := newRateLimiter(store, "sensitive", mutationLimit, window, actorOrIPKey)
	for _, rl := range []*rateLimiter{authByIP, authByEmail, credentialByActor, sensitiveByActor} {
		if rl != nil {
			rl.collector = collector
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !authByIP.enforce(w, r) {
					return
				}
				if !authByEmail.enforce(w, r) {
					return
				}
			case sensitiveScopeCredential:
				if !credentialByActor.enforce(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !sensitiveByActor.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	normalizedField := strings.TrimSpace(field)
	if normalizedField == "" {
		normalizedField = "email"
	}
	return func(r *http.Request) string {
		email := extractJSONField(r, normalizedField)
		if email == "" {
			return clientIPKey(r)
		}
		return "email:" + strings.ToLower(email)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.TenantID + ":" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	return "ip:" + shared.ClientIP(r)
}

func newRateLimiter(store limiter.Store, prefix string, limit int, window time.Duration, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	rl := &rateLimiter{prefix: prefix, keyFn: keyFn}
	if store != nil && limit > 0 && window > 0 {
		rl.instance = limiter.New(store, limiter.Rate{Period: window, Limit: int64(limit)})
	}
	return rl
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl == nil || rl.instance == nil {
		return true
	}

	key := rl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	state, err := rl.instance.Get(r.Context(), rl.prefix+":"+key)
	if err != nil {
		slog.Warn("rate limit store unavailable", "err", err, "path", r.URL.Path)
		return true
	}
	resetIn := durationSeconds(time.Until(time.Unix(state.Reset, 0)))

	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(state.Remaining, 0), 10))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))

	if state.Reached {
		w.Header().Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
		rl.collector.Inc("http.rate_limited")
		slog.Warn("rate limit exceeded",
			"key", key,
			"scope", rl.prefix,
			"path", r.URL.Path,
			"method", r.Method,
			"limit", state.Limit,
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}

	return true
}

// durationSeconds rounds up so clients never retry before the window resets.
func durationSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

const maxPeekBytes = 64 << 10

// extractJSONField peeks at a JSON body and restores it for the handler.
func extractJSONField(r *http.Request, field string) string {
	if r == nil || r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	var value string
	if json.Unmarshal(payload[field], &value) != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
	// signed-in credential changes: auth budget, keyed per user rather than per IP
	sensitiveScopeCredential sensitiveScope = "credential"
)

type scopeRule struct {
	prefix string
	suffix string
	scope  sensitiveScope
}

// Exact paths are matched as prefix == suffix == path.
var sensitiveRules = []scopeRule{
	{"/api/auth/login", "/api/auth/login", sensitiveScopeAuth},
	{"/api/auth/request-reset", "/api/auth/request-reset", sensitiveScopeAuth},
	{"/api/auth/reset", "/api/auth/reset", sensitiveScopeAuth},
	{"/api/shared/auth/mfa/", "", sensitiveScopeCredential},
	{"/api/shared/auth/password", "/api/shared/auth/password", sensitiveScopeCredential},
	{"/api/admin/payroll/generate", "/api/admin/payroll/generate", sensitiveScopeActor},
	{"/api/admin/payroll/", "/finalize", sensitiveScopeActor},
	{"/api/admin/payroll/", "/pay", sensitiveScopeActor},
	{"/api/admin/jobs/", "/run", sensitiveScopeActor},
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	if r == nil {
		return sensitiveScopeNone
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	for _, rule := range sensitiveRules {
		if rule.prefix == rule.suffix {
			if path == rule.prefix {
				return rule.scope
			}
			continue
		}
		if strings.HasPrefix(path, rule.prefix) && strings.HasSuffix(path, rule.suffix) {
			return rule.scope
		}
	}
	return sensitiveScopeNone
}
