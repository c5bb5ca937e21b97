package dashboardhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrdesk/internal/domain/dashboard"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

type Handler struct {
	Service *dashboard.Service
}

func NewHandler(service *dashboard.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/dashboard", h.handleAdmin)
}

func (h *Handler) RegisterManager(r chi.Router) {
	r.Get("/dashboard", h.handleManager)
}

func (h *Handler) RegisterEmployee(r chi.Router) {
	r.Get("/dashboard", h.handleEmployee)
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Admin(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err, "dashboard_failed", "failed to load dashboard")
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleManager(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Manager(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err, "dashboard_failed", "failed to load dashboard")
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Employee(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err, "dashboard_failed", "failed to load dashboard")
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}
