package announcementshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrdesk/internal/domain/announcements"
	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

type Handler struct {
	Service *announcements.Service
	Audit   audit.Recorder
}

func NewHandler(service *announcements.Service, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

// RegisterAuthoring mounts the publish routes for admins and managers.
// Audience limits for managers are enforced by the service.
func (h *Handler) RegisterAuthoring(r chi.Router) {
	r.Route("/announcements", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermAnnouncementsWrite))
		r.Get("/", h.handleList)
		r.Post("/", h.handlePublish)
		r.Get("/{announcementID}", h.handleGet)
		r.Put("/{announcementID}", h.handleUpdate)
		r.Delete("/{announcementID}", h.handleDelete)
	})
}

func (h *Handler) RegisterShared(r chi.Router) {
	r.Get("/announcements", h.handleVisible)
	r.Get("/announcements/{announcementID}", h.handleGet)
}

type announcementRequest struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Body         string  `json:"body" validate:"required"`
	Audience     string  `json:"audience" validate:"omitempty,oneof=all department role"`
	DepartmentID *string `json:"departmentId" validate:"omitempty,uuid"`
	Role         *string `json:"role" validate:"omitempty,oneof=Admin Manager Employee"`
	Pinned       bool    `json:"pinned"`
	ExpiresAt    string  `json:"expiresAt"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (announcements.Input, bool) {
	var payload announcementRequest
	if !shared.Decode(w, r, &payload) {
		return announcements.Input{}, false
	}
	in := announcements.Input{
		Title:        payload.Title,
		Body:         payload.Body,
		Audience:     payload.Audience,
		DepartmentID: payload.DepartmentID,
		Role:         payload.Role,
		Pinned:       payload.Pinned,
	}
	if in.Audience == "" {
		in.Audience = announcements.AudienceAll
	}
	if payload.ExpiresAt != "" {
		expires, err := shared.ParseDate(payload.ExpiresAt)
		if err != nil {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "expiresAt", Reason: "must be an RFC3339 timestamp or YYYY-MM-DD"}})
			return announcements.Input{}, false
		}
		expires = expires.UTC()
		in.ExpiresAt = &expires
	}
	return in, true
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	a, err := h.Service.Publish(r.Context(), user, in)
	if err != nil {
		shared.WriteError(w, r, err, "announcement_create_failed", "failed to publish announcement")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "announcement.create", "announcement", a.ID, nil, a)
	api.Created(w, a, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "announcementID")
	before, after, err := h.Service.Update(r.Context(), user, id, in)
	if err != nil {
		shared.WriteError(w, r, err, "announcement_update_failed", "failed to update announcement")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "announcement.update", "announcement", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "announcementID")
	before, err := h.Service.Delete(r.Context(), user, id)
	if err != nil {
		shared.WriteError(w, r, err, "announcement_delete_failed", "failed to delete announcement")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "announcement.delete", "announcement", id, before, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := announcements.Filter{
		Audience:       q.Get("audience"),
		AuthorID:       q.Get("authorId"),
		IncludeExpired: q.Get("includeExpired") == "true",
	}
	page := shared.Page(r)
	items, total, err := h.Service.List(r.Context(), user, filter, page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, r, err, "announcement_list_failed", "failed to list announcements")
		return
	}
	api.Paged(w, items, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleVisible(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	items, total, err := h.Service.Visible(r.Context(), user, page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, r, err, "announcement_list_failed", "failed to list announcements")
		return
	}
	api.Paged(w, items, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	a, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "announcementID"))
	if err != nil {
		shared.WriteError(w, r, err, "announcement_fetch_failed", "failed to fetch announcement")
		return
	}
	api.Success(w, a, middleware.GetRequestID(r.Context()))
}
