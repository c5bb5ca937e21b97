package applicationshandler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrdesk/internal/domain/applications"
	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

type Handler struct {
	Service     *applications.Service
	Audit       audit.Recorder
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *applications.Service, recorder audit.Recorder, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Audit: recorder, Idempotency: idem}
}

func (h *Handler) RegisterEmployee(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermApplicationsSubmit))
		r.Get("/", h.handleListOwn)
		r.With(middleware.Idempotent(h.Idempotency, "employee.applications.create")).Post("/", h.handleSubmit)
		r.Get("/{applicationID}", h.handleGet)
		r.Delete("/{applicationID}", h.handleDeleteOwn)
	})
}

// RegisterReview mounts the review routes; the service scopes managers to their team.
func (h *Handler) RegisterReview(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermApplicationsReview))
		r.Get("/", h.handleList)
		r.Get("/{applicationID}", h.handleGet)
		r.Post("/{applicationID}/approve", h.handleDecision(applications.DecisionApprove))
		r.Post("/{applicationID}/reject", h.handleDecision(applications.DecisionReject))
	})
}

type submitRequest struct {
	Type               string  `json:"type" validate:"required,oneof=leave sick_leave remote_work overtime transfer other"`
	Title              string  `json:"title" validate:"required,max=200"`
	Reason             string  `json:"reason" validate:"max=2000"`
	StartDate          string  `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate            string  `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	TargetDepartmentID *string `json:"targetDepartmentId" validate:"omitempty,uuid"`
}

type reviewRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload submitRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	in := applications.NewApplication{
		Type:               payload.Type,
		Title:              payload.Title,
		Reason:             payload.Reason,
		TargetDepartmentID: payload.TargetDepartmentID,
	}
	in.StartDate = parseOptionalDate(payload.StartDate)
	in.EndDate = parseOptionalDate(payload.EndDate)

	app, err := h.Service.Submit(r.Context(), user, in)
	if err != nil {
		shared.WriteError(w, r, err, "application_create_failed", "failed to submit application")
		return
	}
	api.Created(w, app, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, own bool) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, to, err := shared.DateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	filter := applications.Filter{
		UserID: q.Get("userId"),
		Status: q.Get("status"),
		Type:   q.Get("type"),
		From:   from,
		To:     to,
	}
	page := shared.Page(r)
	var result applications.ListResult
	if own {
		result, err = h.Service.ListOwn(r.Context(), user, filter, page.Limit, page.Offset)
	} else {
		result, err = h.Service.List(r.Context(), user, filter, page.Limit, page.Offset)
	}
	if err != nil {
		shared.WriteError(w, r, err, "application_list_failed", "failed to list applications")
		return
	}
	api.Paged(w, result.Applications, result.Total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	app, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, r, err, "application_fetch_failed", "failed to fetch application")
		return
	}
	api.Success(w, app, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteOwn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if _, err := h.Service.DeleteOwn(r.Context(), user, chi.URLParam(r, "applicationID")); err != nil {
		shared.WriteError(w, r, err, "application_delete_failed", "failed to delete application")
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDecision(decision string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.CurrentUser(w, r)
		if !ok {
			return
		}
		var payload reviewRequest
		if r.ContentLength != 0 && !shared.Decode(w, r, &payload) {
			return
		}
		id := chi.URLParam(r, "applicationID")
		before, after, err := h.Service.Review(r.Context(), user, id, decision, strings.TrimSpace(payload.Note))
		if err != nil {
			shared.WriteError(w, r, err, "application_review_failed", "failed to review application")
			return
		}
		shared.Audit(r.Context(), h.Audit, user, "application."+decision, "application", id, before, after)
		api.Success(w, after, middleware.GetRequestID(r.Context()))
	}
}

// parseOptionalDate assumes the value already passed datetime validation.
func parseOptionalDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(shared.DateLayout, raw)
	if err != nil {
		return nil
	}
	return &parsed
}
