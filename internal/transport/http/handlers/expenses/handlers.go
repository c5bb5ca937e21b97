package expenseshandler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/expenses"
	"hrdesk/internal/platform/export"
	"hrdesk/internal/transport/http/api"
	"hrdesk/internal/transport/http/middleware"
	"hrdesk/internal/transport/http/shared"
)

type Handler struct {
	Service     *expenses.Service
	Audit       audit.Recorder
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *expenses.Service, recorder audit.Recorder, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Audit: recorder, Idempotency: idem}
}

func (h *Handler) RegisterEmployee(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermExpensesSubmit))
		r.Get("/", h.handleListOwn)
		r.With(middleware.Idempotent(h.Idempotency, "employee.expenses.create")).Post("/", h.handleSubmit)
		r.Get("/{expenseID}", h.handleGet)
		r.Delete("/{expenseID}", h.handleDeleteOwn)
	})
}

func (h *Handler) RegisterManager(r chi.Router) {
	r.Route("/expenses", h.reviewRoutes)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermExpensesReview)).Get("/summary", h.handleSummary)
		r.With(middleware.RequirePermission(auth.PermExpensesReview)).Get("/export", h.handleExport)
		r.With(middleware.RequirePermission(auth.PermExpensesPay)).Post("/{expenseID}/pay", h.handleDecision(expenses.ActionPay))
		h.reviewRoutes(r)
	})
}

func (h *Handler) reviewRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermExpensesReview))
		r.Get("/", h.handleList)
		r.Get("/{expenseID}", h.handleGet)
		r.Post("/{expenseID}/approve", h.handleDecision(expenses.ActionApprove))
		r.Post("/{expenseID}/reject", h.handleDecision(expenses.ActionReject))
	})
}

type submitRequest struct {
	DepartmentID *string         `json:"departmentId" validate:"omitempty,uuid"`
	Category     string          `json:"category" validate:"required"`
	Description  string          `json:"description" validate:"required,max=1000"`
	Amount       decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency     string          `json:"currency" validate:"omitempty,len=3"`
	ExpenseDate  string          `json:"expenseDate" validate:"required,datetime=2006-01-02"`
}

type decisionRequest struct {
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
	v := shared.NewValidator()
	v.Enum("category", payload.Category, expenses.Categories, "must be one of: "+strings.Join(expenses.Categories, ", "))
	date, _ := v.Date("expenseDate", payload.ExpenseDate)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	e, err := h.Service.Submit(r.Context(), user, expenses.NewExpense{
		DepartmentID: payload.DepartmentID,
		Category:     payload.Category,
		Description:  payload.Description,
		Amount:       payload.Amount,
		Currency:     payload.Currency,
		ExpenseDate:  date,
	})
	if err != nil {
		shared.WriteError(w, r, err, "expense_create_failed", "failed to submit expense")
		return
	}
	api.Created(w, e, middleware.GetRequestID(r.Context()))
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
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	var (
		items []expenses.Expense
		total int
		err   error
	)
	if own {
		items, total, err = h.Service.ListOwn(r.Context(), user, filter, page.Limit, page.Offset)
	} else {
		items, total, err = h.Service.List(r.Context(), user, filter, page.Limit, page.Offset)
	}
	if err != nil {
		shared.WriteError(w, r, err, "expense_list_failed", "failed to list expenses")
		return
	}
	api.Paged(w, items, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	e, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "expenseID"))
	if err != nil {
		shared.WriteError(w, r, err, "expense_fetch_failed", "failed to fetch expense")
		return
	}
	api.Success(w, e, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteOwn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if _, err := h.Service.DeleteOwn(r.Context(), user, chi.URLParam(r, "expenseID")); err != nil {
		shared.WriteError(w, r, err, "expense_delete_failed", "failed to delete expense")
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDecision(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.CurrentUser(w, r)
		if !ok {
			return
		}
		var payload decisionRequest
		if r.ContentLength != 0 && !shared.Decode(w, r, &payload) {
			return
		}
		id := chi.URLParam(r, "expenseID")
		before, after, err := h.Service.Decide(r.Context(), user, id, action, strings.TrimSpace(payload.Note))
		if err != nil {
			shared.WriteError(w, r, err, "expense_update_failed", "failed to update expense")
			return
		}
		shared.Audit(r.Context(), h.Audit, user, "expense."+action, "expense", id, before, after)
		api.Success(w, after, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	rows, err := h.Service.Summary(r.Context(), user, filter)
	if err != nil {
		shared.WriteError(w, r, err, "expense_summary_failed", "failed to summarize expenses")
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	body, err := h.Service.Export(r.Context(), user, filter)
	if err != nil {
		shared.WriteError(w, r, err, "expense_export_failed", "failed to export expenses")
		return
	}
	api.Attachment(w, export.ContentTypeXLSX, fmt.Sprintf("expenses-%s.xlsx", time.Now().UTC().Format(shared.DateLayout)), body)
}

func parseFilter(w http.ResponseWriter, r *http.Request) (expenses.Filter, bool) {
	q := r.URL.Query()
	from, to, err := shared.DateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return expenses.Filter{}, false
	}
	return expenses.Filter{
		UserID:       q.Get("userId"),
		DepartmentID: q.Get("departmentId"),
		Status:       q.Get("status"),
		Category:     q.Get("category"),
		From:         from,
		To:           to,
	}, true
}
