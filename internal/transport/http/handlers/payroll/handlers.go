package payrollhandler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/payroll"
	"hrdesk/internal/platform/export"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

const contentTypePDF = "application/pdf"

type Handler struct {
	Service     *payroll.Service
	Audit       audit.Recorder
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *payroll.Service, recorder audit.Recorder, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Audit: recorder, Idempotency: idem}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/", h.handleCreate)
		r.With(
			middleware.RequirePermission(auth.PermPayrollWrite),
			middleware.Idempotent(h.Idempotency, "admin.payroll.generate"),
		).Post("/generate", h.handleGenerate)
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/summary", h.handleSummary)
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/register", h.handleRegister)
		r.Route("/{recordID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/", h.handleGet)
			r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/payslip", h.handlePayslip)
			r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/adjustments", h.handleAddAdjustment)
			r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Delete("/adjustments/{adjustmentID}", h.handleRemoveAdjustment)
			r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/finalize", h.handleFinalize)
			r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/pay", h.handlePay)
		})
	})
}

// RegisterEmployee exposes the caller's own finalized and paid records.
func (h *Handler) RegisterEmployee(r chi.Router) {
	r.Route("/salary", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermPayrollRead))
		r.Get("/", h.handleListOwn)
		r.Get("/{recordID}", h.handleGet)
		r.Get("/{recordID}/payslip", h.handlePayslip)
	})
}

type adjustmentRequest struct {
	Kind        string          `json:"kind" validate:"required,oneof=bonus allowance overtime absence_deduction lateness_deduction tax_deduction"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Description string          `json:"description" validate:"max=500"`
}

type createRequest struct {
	UserID      string              `json:"userId" validate:"required,uuid"`
	Period      string              `json:"period" validate:"required,datetime=2006-01"`
	BaseSalary  *decimal.Decimal    `json:"baseSalary"`
	Adjustments []adjustmentRequest `json:"adjustments" validate:"omitempty,dive"`
}

type generateRequest struct {
	Period string `json:"period" validate:"required,datetime=2006-01"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload createRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	in := payroll.NewRecord{UserID: payload.UserID, Period: payload.Period, BaseSalary: payload.BaseSalary}
	for _, a := range payload.Adjustments {
		in.Adjustments = append(in.Adjustments, payroll.NewAdjustment{Kind: a.Kind, Amount: a.Amount, Description: a.Description})
	}
	rec, err := h.Service.Create(r.Context(), user, in)
	if err != nil {
		shared.WriteError(w, r, err, "salary_create_failed", "failed to create salary record")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "salary.create", "salary_record", rec.ID, nil, rec)
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload generateRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	result, err := h.Service.Generate(r.Context(), user, payload.Period)
	if err != nil {
		shared.WriteError(w, r, err, "payroll_generate_failed", "failed to generate payroll")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "payroll.generate", "payroll_period", result.Period, nil, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *Handler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, own bool) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := payroll.Filter{UserID: q.Get("userId"), Period: q.Get("period"), Status: q.Get("status")}
	page := shared.Page(r)
	var (
		records []payroll.Record
		total   int
		err     error
	)
	if own {
		records, total, err = h.Service.ListOwn(r.Context(), user, filter, page.Limit, page.Offset)
	} else {
		records, total, err = h.Service.List(r.Context(), user, filter, page.Limit, page.Offset)
	}
	if err != nil {
		shared.WriteError(w, r, err, "salary_list_failed", "failed to list salary records")
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
		shared.WriteError(w, r, err, "salary_fetch_failed", "failed to fetch salary record")
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload adjustmentRequest
	if !shared.Decode(w, r, &payload) {
		return
	}
	id := chi.URLParam(r, "recordID")
	before, after, err := h.Service.AddAdjustment(r.Context(), user, id, payroll.NewAdjustment{
		Kind:        payload.Kind,
		Amount:      payload.Amount,
		Description: payload.Description,
	})
	if err != nil {
		shared.WriteError(w, r, err, "salary_adjust_failed", "failed to add adjustment")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "salary.adjustment_add", "salary_record", id, before, after)
	api.Created(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRemoveAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "recordID")
	before, after, err := h.Service.RemoveAdjustment(r.Context(), user, id, chi.URLParam(r, "adjustmentID"))
	if err != nil {
		shared.WriteError(w, r, err, "salary_adjust_failed", "failed to remove adjustment")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, "salary.adjustment_remove", "salary_record", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "salary.finalize", h.Service.Finalize)
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "salary.pay", h.Service.Pay)
}

type transitionFunc func(ctx context.Context, caller auth.UserContext, id string) (payroll.Record, payroll.Record, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, fn transitionFunc) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "recordID")
	before, after, err := fn(r.Context(), user, id)
	if err != nil {
		shared.WriteError(w, r, err, "salary_update_failed", "failed to update salary record")
		return
	}
	shared.Audit(r.Context(), h.Audit, user, action, "salary_record", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = h.Service.CurrentPeriod()
	}
	summary, err := h.Service.Summary(r.Context(), user, period)
	if err != nil {
		shared.WriteError(w, r, err, "payroll_summary_failed", "failed to summarize payroll")
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = h.Service.CurrentPeriod()
	}
	body, err := h.Service.Register(r.Context(), user, period)
	if err != nil {
		shared.WriteError(w, r, err, "payroll_register_failed", "failed to export payroll register")
		return
	}
	api.Attachment(w, export.ContentTypeXLSX, fmt.Sprintf("payroll-%s.xlsx", period), body)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	body, filename, err := h.Service.Payslip(r.Context(), user, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, r, err, "payslip_failed", "failed to render payslip")
		return
	}
	api.Attachment(w, contentTypePDF, filename, body)
}
