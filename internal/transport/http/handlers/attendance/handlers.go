package attendancehandler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrdesk/internal/domain/attendance"
	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/platform/export"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

type Handler struct {
	Service *attendance.Service
	Audit   audit.Recorder
}

func NewHandler(service *attendance.Service, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

func (h *Handler) RegisterEmployee(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermAttendanceRecord))
		r.Post("/check-in", h.handleCheckIn)
		r.Post("/check-out", h.handleCheckOut)
		r.Get("/today", h.handleToday)
		r.Get("/", h.handleHistory)
		r.Get("/corrections", h.handleListOwnCorrections)
		r.Post("/corrections", h.handleSubmitCorrection)
	})
}

func (h *Handler) RegisterManager(r chi.Router) {
	r.Route("/attendance", h.reviewRoutes)
}

// RegisterAdmin adds the export and the on-demand sweep to the review routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceExport)).Get("/export", h.handleExport)
		r.With(middleware.RequirePermission(auth.PermJobsRun)).Post("/sweep", h.handleSweep)
		h.reviewRoutes(r)
	})
}

func (h *Handler) reviewRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermAttendanceReview))
		r.Get("/", h.handleList)
		r.Get("/summary", h.handleSummary)
		r.Get("/corrections", h.handleListCorrections)
		r.Post("/corrections/{correctionID}/approve", h.handleCorrectionDecision(attendance.DecisionApprove))
		r.Post("/corrections/{correctionID}/reject", h.handleCorrectionDecision(attendance.DecisionReject))
		r.Get("/{recordID}", h.handleGet)
	})
}

type correctionRequest struct {
	WorkDate          string `json:"workDate" validate:"required,datetime=2006-01-02"`
	RequestedCheckIn  string `json:"requestedCheckIn"`
	RequestedCheckOut string `json:"requestedCheckOut"`
	Reason            string `json:"reason" validate:"required,max=1000"`
}

type reviewRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type sweepRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	rec, err := h.Service.CheckIn(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err, "check_in_failed", "failed to check in")
		return
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	rec, err := h.Service.CheckOut(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err, "check_out_failed", "failed to check out")
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	rec, err := h.Service.Today(r.Context(), user)
	if err != nil {
		shared.WriteError(w, r, err, "attendance_fetch_failed", "failed to fetch today's attendance")
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
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
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	var (
		records []attendance.Record
		total   int
		err     error
	)
	if own {
		records, total, err = h.Service.History(r.Context(), user, filter, page.Limit, page.Offset)
	} else {
		records, total, err = h.Service.List(r.Context(), user, filter, page.Limit, page.Offset)
	}
	if err != nil {
		shared.WriteError(w, r, err, "attendance_list_failed", "failed to list attendance")
		return
	}
	api.Paged(w, records, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	rec, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, r, err, "attendance_fetch_failed", "failed to fetch attendance record")
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())
	raw := r.URL.Query().Get("period")
	if raw == "" {
		raw = time.Now().UTC().Format(shared.PeriodLayout)
	}
	period, err := shared.ParsePeriod(raw)
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "period", Reason: "must be YYYY-MM"}})
		return
	}
	rows, err := h.Service.MonthlySummary(r.Context(), user, period, attendance.Filter{UserID: r.URL.Query().Get("userId")})
	if err != nil {
		shared.WriteError(w, r, err, "attendance_summary_failed", "failed to summarize attendance")
		return
	}
	api.Success(w, rows, reqID)
}

func (h *Handler) handleSubmitCorrection(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload correctionRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	workDate, _ := v.Date("workDate", payload.WorkDate)
	in := attendance.NewCorrection{WorkDate: workDate, Reason: payload.Reason}
	in.RequestedCheckIn = optionalTime(v, "requestedCheckIn", payload.RequestedCheckIn)
	in.RequestedCheckOut = optionalTime(v, "requestedCheckOut", payload.RequestedCheckOut)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	c, err := h.Service.SubmitCorrection(r.Context(), user, in)
	if err != nil {
		shared.WriteError(w, r, err, "correction_create_failed", "failed to submit correction")
		return
	}
	api.Created(w, c, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListOwnCorrections(w http.ResponseWriter, r *http.Request) {
	h.listCorrections(w, r, true)
}

func (h *Handler) handleListCorrections(w http.ResponseWriter, r *http.Request) {
	h.listCorrections(w, r, false)
}

func (h *Handler) listCorrections(w http.ResponseWriter, r *http.Request, own bool) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := attendance.CorrectionFilter{UserID: q.Get("userId"), Status: q.Get("status")}
	page := shared.Page(r)
	var (
		items []attendance.Correction
		total int
		err   error
	)
	if own {
		items, total, err = h.Service.ListOwnCorrections(r.Context(), user, filter, page.Limit, page.Offset)
	} else {
		items, total, err = h.Service.ListCorrections(r.Context(), user, filter, page.Limit, page.Offset)
	}
	if err != nil {
		shared.WriteError(w, r, err, "correction_list_failed", "failed to list corrections")
		return
	}
	api.Paged(w, items, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCorrectionDecision(decision string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.CurrentUser(w, r)
		if !ok {
			return
		}
		var payload reviewRequest
		if r.ContentLength != 0 && !shared.Decode(w, r, &payload) {
			return
		}
		id := chi.URLParam(r, "correctionID")
		before, after, err := h.Service.ReviewCorrection(r.Context(), user, id, decision, strings.TrimSpace(payload.Note))
		if err != nil {
			shared.WriteError(w, r, err, "correction_review_failed", "failed to review correction")
			return
		}
		shared.Audit(r.Context(), h.Audit, user, "attendance_correction."+decision, "attendance_correction", id, before, after)
		api.Success(w, after, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	from, _ := v.Date("from", r.URL.Query().Get("from"))
	to, _ := v.Date("to", r.URL.Query().Get("to"))
	if !v.HasIssues() {
		v.DateOrder("from", from, "to", to)
	}
	if v.Reject(w, reqID) {
		return
	}
	body, err := h.Service.Export(r.Context(), user, from, to)
	if err != nil {
		shared.WriteError(w, r, err, "attendance_export_failed", "failed to export attendance")
		return
	}
	filename := fmt.Sprintf("attendance-%s-%s.xlsx", from.Format(shared.DateLayout), to.Format(shared.DateLayout))
	api.Attachment(w, export.ContentTypeXLSX, filename, body)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload sweepRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	date, err := time.Parse(shared.DateLayout, payload.Date)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "date", Reason: "must be YYYY-MM-DD"}})
		return
	}
	result, err := h.Service.Sweep(r.Context(), user.TenantID, date)
	if err != nil {
		shared.WriteError(w, r, err, "attendance_sweep_failed", "failed to run absence sweep")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "attendance.sweep", "attendance", result.Date, nil, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func parseFilter(w http.ResponseWriter, r *http.Request) (attendance.Filter, bool) {
	q := r.URL.Query()
	from, to, err := shared.DateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return attendance.Filter{}, false
	}
	return attendance.Filter{UserID: q.Get("userId"), Status: q.Get("status"), From: from, To: to}, true
}

func optionalTime(v *shared.Validator, field, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		v.Add(field, "must be an RFC3339 timestamp")
		return nil
	}
	return &parsed
}
