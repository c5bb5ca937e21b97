package jobshandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/platform/jobs"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

type Handler struct {
	Service *jobs.Service
	Audit   audit.Recorder
}

func NewHandler(service *jobs.Service, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermJobsRun))
		r.Get("/", h.handleTypes)
		r.Get("/runs", h.handleRuns)
		r.Post("/{jobType}/run", h.handleRun)
	})
}

func (h *Handler) handleTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Service.Types(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	runs, total, err := h.Service.ListRuns(r.Context(), user.TenantID, r.URL.Query().Get("type"), page.Limit, page.Offset)
	if err != nil {
		shared.WriteError(w, r, err, "job_runs_failed", "failed to list job runs")
		return
	}
	api.Paged(w, runs, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())
	jobType := chi.URLParam(r, "jobType")
	details, err := h.Service.RunNow(r.Context(), jobType, user.TenantID)
	if errors.Is(err, jobs.ErrUnknownJob) {
		api.Fail(w, http.StatusNotFound, "job_not_found", "unknown job type", reqID)
		return
	}
	if err != nil {
		shared.WriteError(w, r, err, "job_run_failed", "job run failed")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "job.run", "job", jobType, nil, details)
	api.Success(w, map[string]any{"jobType": jobType, "details": details}, reqID)
}
