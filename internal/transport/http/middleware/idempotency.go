package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/platform/querier"
	"hrdesk/internal/transport/http/api"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

const (
	IdempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

type StoredResponse struct {
	Status int
	Body   []byte
}

// ClaimState says what the caller holding a key should do next.
type ClaimState int

const (
	// ClaimAcquired means this request owns the key and must run the handler.
	ClaimAcquired ClaimState = iota
	// ClaimInFlight means another request holds the key and has not finished.
	ClaimInFlight
	// ClaimCompleted means a stored response is available for replay.
	ClaimCompleted
)

type IdempotencyStore interface {
	Claim(ctx context.Context, tenantID, userID, endpoint, key, requestHash string) (ClaimState, StoredResponse, error)
	Complete(ctx context.Context, tenantID, userID, endpoint, key string, resp StoredResponse) error
	Release(ctx context.Context, tenantID, userID, endpoint, key string) error
}

type PGIdempotencyStore struct {
	DB querier.Querier
}

func NewIdempotencyStore(db querier.Querier) *PGIdempotencyStore {
	return &PGIdempotencyStore{DB: db}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Claim inserts a pending row for the key. The primary key serialises
// concurrent claims, so only one request ever sees ClaimAcquired.
func (s *PGIdempotencyStore) Claim(ctx context.Context, tenantID, userID, endpoint, key, requestHash string) (ClaimState, StoredResponse, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO idempotency_keys (tenant_id, user_id, key, endpoint, request_hash)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (tenant_id, user_id, key, endpoint) DO NOTHING
  `, tenantID, userID, key, endpoint, requestHash)
	if err != nil {
		return 0, StoredResponse{}, err
	}
	if tag.RowsAffected() == 1 {
		return ClaimAcquired, StoredResponse{}, nil
	}

	var storedHash string
	var resp StoredResponse
	err = s.DB.QueryRow(ctx, `
    SELECT request_hash, status_code, response_body
    FROM idempotency_keys
    WHERE tenant_id = $1 AND user_id = $2 AND key = $3 AND endpoint = $4
  `, tenantID, userID, key, endpoint).Scan(&storedHash, &resp.Status, &resp.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		// released between our insert and select
		return ClaimInFlight, StoredResponse{}, nil
	}
	if err != nil {
		return 0, StoredResponse{}, err
	}
	return classifyClaim(storedHash, requestHash, resp)
}

func classifyClaim(storedHash, requestHash string, resp StoredResponse) (ClaimState, StoredResponse, error) {
	if storedHash != requestHash {
		return 0, StoredResponse{}, ErrIdempotencyConflict
	}
	if resp.Status == 0 {
		return ClaimInFlight, StoredResponse{}, nil
	}
	return ClaimCompleted, resp, nil
}

func (s *PGIdempotencyStore) Complete(ctx context.Context, tenantID, userID, endpoint, key string, resp StoredResponse) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE idempotency_keys SET status_code = $5, response_body = $6
    WHERE tenant_id = $1 AND user_id = $2 AND key = $3 AND endpoint = $4
  `, tenantID, userID, key, endpoint, resp.Status, resp.Body)
	return err
}

// Release drops a pending claim so a failed request can be retried with the
// same key.
func (s *PGIdempotencyStore) Release(ctx context.Context, tenantID, userID, endpoint, key string) error {
	_, err := s.DB.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE tenant_id = $1 AND user_id = $2 AND key = $3 AND endpoint = $4 AND status_code = 0
  `, tenantID, userID, key, endpoint)
	return err
}

// DeleteBefore prunes keys older than cutoff.
func (s *PGIdempotencyStore) DeleteBefore(ctx context.Context, tenantID string, cutoff time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `DELETE FROM idempotency_keys WHERE tenant_id = $1 AND created_at < $2`, tenantID, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

// Idempotent replays the first successful response for a repeated
// Idempotency-Key. Requests without the header are untouched.
func Idempotent(store IdempotencyStore, endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			user, ok := GetUser(r.Context())
			if store == nil || key == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				api.Fail(w, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key too long", GetRequestID(r.Context()))
				return
			}

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read request body", GetRequestID(r.Context()))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			requestHash := RequestHash(append([]byte(r.URL.Path+"\n"), raw...))

			state, stored, err := store.Claim(r.Context(), user.TenantID, user.UserID, endpoint, key, requestHash)
			switch {
			case errors.Is(err, ErrIdempotencyConflict):
				api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different request", GetRequestID(r.Context()))
				return
			case err != nil:
				slog.Warn("idempotency claim failed", "endpoint", endpoint, "err", err)
				next.ServeHTTP(w, r)
				return
			case state == ClaimInFlight:
				w.Header().Set("Retry-After", "1")
				api.Fail(w, http.StatusConflict, "idempotency_in_progress", "a request with this idempotency key is still running", GetRequestID(r.Context()))
				return
			case state == ClaimCompleted:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			// the request context may already be cancelled by a departed client
			ctx := context.WithoutCancel(r.Context())
			completed := false
			defer func() {
				if completed {
					return
				}
				// failed or panicked: free the key so the client can retry
				if err := store.Release(ctx, user.TenantID, user.UserID, endpoint, key); err != nil {
					slog.Warn("idempotency release failed", "endpoint", endpoint, "err", err)
				}
			}()

			recorder := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			if recorder.status < 200 || recorder.status >= 300 {
				return
			}
			if err := store.Complete(ctx, user.TenantID, user.UserID, endpoint, key, StoredResponse{Status: recorder.status, Body: recorder.body.Bytes()}); err != nil {
				slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err)
				return
			}
			completed = true
		})
	}
}
