package authhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/notifications"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

const defaultResetHost = "localhost:8080"

type Mailer interface {
	Email(ctx context.Context, msg notifications.Message) error
}

type Handler struct {
	Service      *auth.Service
	Mailer       Mailer
	Audit        audit.Recorder
	ResetBaseURL string
}

func NewHandler(service *auth.Service, mailer Mailer, recorder audit.Recorder, resetBaseURL string) *Handler {
	return &Handler{Service: service, Mailer: mailer, Audit: recorder, ResetBaseURL: resetBaseURL}
}

// RegisterPublic mounts the unauthenticated /api/auth routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/request-reset", h.handleRequestReset)
	r.Post("/reset", h.handleResetPassword)
	r.With(middleware.RequireAuth).Post("/logout", h.handleLogout)
	r.With(middleware.RequireAuth).Post("/refresh", h.handleRefresh)
}

// RegisterShared mounts the account routes every signed-in user has.
func (h *Handler) RegisterShared(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/mfa/setup", h.handleMFASetup)
		r.Post("/mfa/enable", h.handleMFAEnable)
		r.Post("/mfa/disable", h.handleMFADisable)
		r.Post("/password", h.handleChangePassword)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfaCode"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	session, err := h.Service.Login(r.Context(), auth.LoginInput{Email: payload.Email, Password: payload.Password, MFACode: payload.MFACode})
	if err != nil {
		h.fail(w, r, err, "login_failed", "failed to sign in")
		return
	}
	api.Success(w, map[string]any{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user":      map[string]string{"id": session.UserID, "tenantId": session.TenantID, "role": session.Role},
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.Logout(r.Context(), user); err != nil {
		slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	session, err := h.Service.Refresh(r.Context(), user)
	if err != nil {
		h.fail(w, r, err, "refresh_failed", "failed to refresh session")
		return
	}
	api.Success(w, map[string]any{"token": session.Token, "expiresAt": session.ExpiresAt}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	req, err := h.Service.RequestReset(r.Context(), payload.Email)
	if err != nil {
		slog.Warn("password reset request failed", "err", err)
	}
	if req != nil && h.Mailer != nil {
		if err := h.Mailer.Email(r.Context(), resetMessage(h.ResetBaseURL, *req, auth.ResetTokenTTL)); err != nil {
			slog.Warn("password reset email failed", "userId", req.UserID, "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "reset_requested"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	if err := h.Service.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		h.fail(w, r, err, "reset_failed", "failed to reset password")
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload changePasswordRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	if err := h.Service.ChangePassword(r.Context(), user.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		h.fail(w, r, err, "password_change_failed", "failed to change password")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "auth.password.change", "user", user.UserID, nil, nil)
	api.Success(w, map[string]string{"status": "password_changed"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	setup, err := h.Service.SetupMFA(r.Context(), user.UserID)
	if err != nil {
		h.fail(w, r, err, "mfa_setup_failed", "failed to generate mfa secret")
		return
	}
	api.Success(w, setup, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enable bool) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload mfaCodeRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	toggle, status, action := h.Service.DisableMFA, "disabled", "auth.mfa.disable"
	if enable {
		toggle, status, action = h.Service.EnableMFA, "enabled", "auth.mfa.enable"
	}
	if err := toggle(r.Context(), user.UserID, payload.Code); err != nil {
		if errors.Is(err, auth.ErrMFAInvalid) {
			api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", middleware.GetRequestID(r.Context()))
			return
		}
		h.fail(w, r, err, "mfa_update_failed", "failed to update mfa")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, action, "user", user.UserID, nil, map[string]string{"mfa": status})
	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", requestID)
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", requestID)
	case errors.Is(err, auth.ErrSessionInvalid):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", requestID)
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", requestID)
	case errors.Is(err, auth.ErrMFANotSetUp):
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", requestID)
	case errors.Is(err, auth.ErrInvalidResetToken):
		api.Fail(w, http.StatusBadRequest, "invalid_token", "invalid or expired token", requestID)
	case errors.Is(err, auth.ErrWeakPassword):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "newPassword", Reason: "must have at least 8 characters"}})
	default:
		shared.WriteError(w, r, err, code, message)
	}
}

// resetLink points at the SPA reset screen under baseURL, or localhost when
// baseURL is not an absolute URL.
func resetLink(baseURL, token string) string {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || !u.IsAbs() || u.Host == "" {
		u = &url.URL{Scheme: "http", Host: defaultResetHost}
	}
	u.Path = path.Join("/", u.Path, "reset-password")
	u.RawQuery = url.Values{"token": {token}}.Encode()
	u.Fragment = ""
	return u.String()
}

func resetMessage(baseURL string, req auth.ResetRequest, ttl time.Duration) notifications.Message {
	var body strings.Builder
	body.WriteString("A password reset was requested for your HRDesk account.\n\n")
	fmt.Fprintf(&body, "Open this link within %s to choose a new password:\n%s\n\n", ttl.Round(time.Minute), resetLink(baseURL, req.Token))
	body.WriteString("If you did not ask for this, no action is needed.")
	return notifications.Message{To: req.Email, Subject: "Reset your HRDesk password", Body: body.String()}
}
