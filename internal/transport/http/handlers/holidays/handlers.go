package holidayshandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/holidays"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

type Handler struct {
	Service *holidays.Service
	Audit   audit.Recorder
}

func NewHandler(service *holidays.Service, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/holidays", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite)).Put("/{holidayID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite)).Delete("/{holidayID}", h.handleDelete)
	})
}

func (h *Handler) RegisterShared(r chi.Router) {
	r.Get("/holidays", h.handleList)
}

type holidayRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=500"`
}

func (p holidayRequest) input() holidays.Input {
	date, _ := time.Parse(shared.DateLayout, p.Date)
	return holidays.Input{Name: p.Name, Date: date, Description: p.Description}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())
	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1900 || parsed > 9999 {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "year", Reason: "must be a four digit year"}})
			return
		}
		year = parsed
	}
	items, err := h.Service.List(r.Context(), user.TenantID, year)
	if err != nil {
		shared.WriteError(w, r, err, "holiday_list_failed", "failed to list holidays")
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload holidayRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	holiday, err := h.Service.Create(r.Context(), user.TenantID, payload.input())
	if err != nil {
		shared.WriteError(w, r, err, "holiday_create_failed", "failed to create holiday")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "holiday.create", "holiday", holiday.ID, nil, holiday)
	api.Created(w, holiday, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload holidayRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	id := chi.URLParam(r, "holidayID")
	before, after, err := h.Service.Update(r.Context(), user.TenantID, id, payload.input())
	if err != nil {
		shared.WriteError(w, r, err, "holiday_update_failed", "failed to update holiday")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "holiday.update", "holiday", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "holidayID")
	before, err := h.Service.Delete(r.Context(), user.TenantID, id)
	if err != nil {
		shared.WriteError(w, r, err, "holiday_delete_failed", "failed to delete holiday")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "holiday.delete", "holiday", id, before, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}
