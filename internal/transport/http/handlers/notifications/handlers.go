package notificationshandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrdesk/internal/domain/notifications"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

// Socket upgrades a request into a push session for one user.
type Socket interface {
	Serve(w http.ResponseWriter, r *http.Request, tenantID, userID string) error
}

type Handler struct {
	Service *notifications.Service
	Socket  Socket
}

func NewHandler(service *notifications.Service, socket Socket) *Handler {
	return &Handler{Service: service, Socket: socket}
}

func (h *Handler) RegisterShared(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/read-all", h.handleMarkAllRead)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		if h.Socket != nil {
			r.Get("/ws", h.handleSocket)
		}
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"
	items, total, err := h.Service.List(r.Context(), user.TenantID, user.UserID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, r, err, "notification_list_failed", "failed to list notifications")
		return
	}
	api.Paged(w, items, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	count, err := h.Service.UnreadCount(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		shared.WriteError(w, r, err, "notification_count_failed", "failed to count notifications")
		return
	}
	api.Success(w, map[string]int{"unread": count}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Service.MarkRead(r.Context(), user.TenantID, user.UserID, notificationID); err != nil {
		shared.WriteError(w, r, err, "notification_update_failed", "failed to update notification")
		return
	}
	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.MarkAllRead(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		shared.WriteError(w, r, err, "notification_update_failed", "failed to update notifications")
		return
	}
	api.Success(w, map[string]int64{"updated": updated}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := h.Socket.Serve(w, r, user.TenantID, user.UserID); err != nil {
		slog.Warn("websocket upgrade failed", "userId", user.UserID, "err", err)
	}
}
