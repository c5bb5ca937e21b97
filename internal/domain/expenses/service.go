package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/core"
	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/domain/notifications"
	"hrdesk/internal/platform/export"
)

type TeamChecker interface {
	IsTeamMember(ctx context.Context, tenantID, managerID, userID string) (bool, error)
}

type DepartmentLookup interface {
	GetDepartment(ctx context.Context, tenantID, departmentID string) (core.Department, error)
}

type Notifier interface {
	Notify(ctx context.Context, tenantID, userID string, draft notifications.Draft) error
}

type Service struct {
	store       StoreAPI
	Team        TeamChecker
	Departments DepartmentLookup
	Notifier    Notifier
	Currency    string
}

func NewService(store StoreAPI, team TeamChecker, departments DepartmentLookup, notifier Notifier) *Service {
	return &Service{store: store, Team: team, Departments: departments, Notifier: notifier, Currency: "USD"}
}

func (s *Service) Submit(ctx context.Context, caller auth.UserContext, in NewExpense) (Expense, error) {
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Description = strings.TrimSpace(in.Description)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.Currency
	}
	if !slices.Contains(Categories, in.Category) {
		return Expense{}, domainerr.Invalid("category", "must be one of: "+strings.Join(Categories, ", "))
	}
	if !in.Amount.IsPositive() {
		return Expense{}, domainerr.Invalid("amount", "must be greater than 0")
	}
	if in.ExpenseDate.IsZero() {
		return Expense{}, domainerr.Invalid("expenseDate", "is required")
	}
	if in.ExpenseDate.After(time.Now().AddDate(0, 0, 1)) {
		return Expense{}, domainerr.Invalid("expenseDate", "must not be in the future")
	}
	if in.DepartmentID != nil && strings.TrimSpace(*in.DepartmentID) == "" {
		in.DepartmentID = nil
	}
	if in.DepartmentID != nil {
		if _, err := s.Departments.GetDepartment(ctx, caller.TenantID, *in.DepartmentID); err != nil {
			if errors.Is(err, core.ErrDepartmentNotFound) {
				return Expense{}, domainerr.Invalid("departmentId", "department does not exist")
			}
			return Expense{}, err
		}
	}
	in.Amount = in.Amount.Round(2)

	id, err := s.store.Create(ctx, caller.TenantID, caller.UserID, in)
	if err != nil {
		return Expense{}, err
	}
	return s.store.Get(ctx, caller.TenantID, id)
}

func (s *Service) List(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) ([]Expense, int, error) {
	s.scope(caller, &filter)
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

func (s *Service) ListOwn(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) ([]Expense, int, error) {
	filter.UserID = caller.UserID
	filter.TeamOf = ""
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

func (s *Service) Get(ctx context.Context, caller auth.UserContext, id string) (Expense, error) {
	e, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Expense{}, err
	}
	if e.UserID == caller.UserID || caller.IsAdmin() {
		return e, nil
	}
	if err := s.requireTeam(ctx, caller, e.UserID); err != nil {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (s *Service) CountPending(ctx context.Context, caller auth.UserContext) (int, error) {
	filter := Filter{Status: StatusPending}
	s.scope(caller, &filter)
	_, total, err := s.store.List(ctx, caller.TenantID, filter, 1, 0)
	return total, err
}

func (s *Service) DeleteOwn(ctx context.Context, caller auth.UserContext, id string) (Expense, error) {
	e, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Expense{}, err
	}
	if e.UserID != caller.UserID {
		return Expense{}, ErrNotFound
	}
	if e.Status != StatusPending {
		return Expense{}, fmt.Errorf("only pending expenses can be deleted: %w", domainerr.ErrInvalidState)
	}
	ok, err := s.store.DeletePending(ctx, caller.TenantID, id, caller.UserID)
	if err != nil {
		return Expense{}, err
	}
	if !ok {
		return Expense{}, ErrTransition
	}
	return e, nil
}

// Decide applies action (approve, reject or pay) and returns the expense
// before and after. Paying is reserved to admins.
func (s *Service) Decide(ctx context.Context, caller auth.UserContext, id, action, note string) (Expense, Expense, error) {
	before, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Expense{}, Expense{}, err
	}
	if action == ActionPay && !caller.IsAdmin() {
		return Expense{}, Expense{}, domainerr.ErrForbidden
	}
	if action != ActionPay && before.UserID == caller.UserID {
		return Expense{}, Expense{}, ErrSelfReview
	}
	if err := s.requireTeam(ctx, caller, before.UserID); err != nil {
		return Expense{}, Expense{}, err
	}
	next, err := NextStatus(before.Status, action)
	if err != nil {
		return Expense{}, Expense{}, err
	}
	if err := s.store.Transition(ctx, caller.TenantID, id, before.Status, next, caller.UserID, strings.TrimSpace(note)); err != nil {
		return Expense{}, Expense{}, err
	}
	after, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Expense{}, Expense{}, err
	}
	s.notify(ctx, caller.TenantID, after)
	return before, after, nil
}

func (s *Service) Summary(ctx context.Context, caller auth.UserContext, filter Filter) ([]SummaryRow, error) {
	s.scope(caller, &filter)
	return s.store.Summary(ctx, caller.TenantID, filter)
}

// Export renders the filtered expenses and the department summary as .xlsx.
func (s *Service) Export(ctx context.Context, caller auth.UserContext, filter Filter) ([]byte, error) {
	s.scope(caller, &filter)
	items, _, err := s.store.List(ctx, caller.TenantID, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	summary, err := s.store.Summary(ctx, caller.TenantID, filter)
	if err != nil {
		return nil, err
	}

	itemRows := make([][]any, 0, len(items))
	for _, e := range items {
		amount, _ := e.Amount.Float64()
		itemRows = append(itemRows, []any{
			e.ExpenseDate.Format("2006-01-02"), e.UserName, e.DepartmentName, e.Category,
			e.Description, amount, e.Currency, e.Status,
		})
	}
	summaryRows := make([][]any, 0, len(summary))
	for _, row := range summary {
		total, _ := row.Total.Float64()
		summaryRows = append(summaryRows, []any{row.DepartmentName, row.Status, row.Count, total})
	}
	return export.Workbook(
		export.Sheet{
			Name:    "Expenses",
			Headers: []string{"Date", "Employee", "Department", "Category", "Description", "Amount", "Currency", "Status"},
			Rows:    itemRows,
		},
		export.Sheet{
			Name:    "By department",
			Headers: []string{"Department", "Status", "Count", "Total"},
			Rows:    summaryRows,
		},
	)
}

func (s *Service) scope(caller auth.UserContext, filter *Filter) {
	switch {
	case caller.IsAdmin():
	case caller.IsManager():
		filter.TeamOf = caller.UserID
	default:
		filter.UserID = caller.UserID
	}
}

func (s *Service) requireTeam(ctx context.Context, caller auth.UserContext, userID string) error {
	if caller.IsAdmin() {
		return nil
	}
	if !caller.IsManager() {
		return domainerr.ErrForbidden
	}
	ok, err := s.Team.IsTeamMember(ctx, caller.TenantID, caller.UserID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("expense is outside your team: %w", domainerr.ErrForbidden)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, tenantID string, e Expense) {
	if s.Notifier == nil {
		return
	}
	kind := notifications.TypeExpenseDecided
	if e.Status == StatusPaid {
		kind = notifications.TypeExpensePaid
	}
	draft := notifications.Draft{
		Type:  kind,
		Title: fmt.Sprintf("Your %s expense of %s %s was %s", e.Category, e.Amount.StringFixed(2), e.Currency, e.Status),
		Body:  e.ReviewNote,
		Link:  "/expenses/" + e.ID,
	}
	if err := s.Notifier.Notify(ctx, tenantID, e.UserID, draft); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("expense notification failed", "expenseId", e.ID, "err", err)
	}
}
