package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/platform/requestctx"
	"hrdesk/internal/transport/http/api"
)

// WriteError maps service and database errors to the JSON envelope. Anything
// unrecognised is logged and reported with the fallback code as a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMessage string) {
	requestID := requestctx.GetRequestID(r.Context())

	if v, ok := domainerr.AsValidation(err); ok {
		FailValidation(w, requestID, v.Fields)
		return
	}
	switch {
	case errors.Is(err, domainerr.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
		return
	case errors.Is(err, domainerr.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
		return
	case errors.Is(err, domainerr.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
		return
	case errors.Is(err, domainerr.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			api.Fail(w, http.StatusConflict, "duplicate", "record already exists", requestID)
			return
		case "23503":
			if r.Method == http.MethodDelete {
				api.Fail(w, http.StatusConflict, "in_use", "record is still referenced", requestID)
				return
			}
			api.Fail(w, http.StatusBadRequest, "invalid_reference", "referenced record does not exist", requestID)
			return
		case "23514", "22P02":
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "value rejected by constraint", requestID)
			return
		}
	}

	slog.Error(fallbackMessage, "err", err, "requestId", requestID, "path", r.URL.Path)
	api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMessage, requestID)
}
