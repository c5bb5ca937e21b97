package expenses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/core"
	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/domain/notifications"
)

type fakeStore struct {
	items   map[string]Expense
	depts   map[string]string
	deleted map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:   map[string]Expense{},
		depts:   map[string]string{"emp": "dept-eng"},
		deleted: map[string]bool{},
	}
}

func (f *fakeStore) List(_ context.Context, _ string, filter Filter, _, _ int) ([]Expense, int, error) {
	var out []Expense
	for id, e := range f.items {
		if f.deleted[id] || (filter.UserID != "" && e.UserID != filter.UserID) || (filter.Status != "" && e.Status != filter.Status) {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeStore) Get(_ context.Context, _, id string) (Expense, error) {
	e, ok := f.items[id]
	if !ok || f.deleted[id] {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) Create(_ context.Context, _, userID string, in NewExpense) (string, error) {
	id := "exp-" + string(rune('a'+len(f.items)))
	dept := in.DepartmentID
	if dept == nil {
		if d, ok := f.depts[userID]; ok {
			dept = &d
		}
	}
	f.items[id] = Expense{
		ID: id, UserID: userID, DepartmentID: dept, Category: in.Category, Description: in.Description,
		Amount: in.Amount, Currency: in.Currency, ExpenseDate: in.ExpenseDate, Status: StatusPending,
	}
	return id, nil
}

func (f *fakeStore) DeletePending(_ context.Context, _, id, userID string) (bool, error) {
	e := f.items[id]
	if e.UserID != userID || e.Status != StatusPending {
		return false, nil
	}
	f.deleted[id] = true
	return true, nil
}

func (f *fakeStore) Transition(_ context.Context, _, id, from, to, actorID, note string) error {
	e := f.items[id]
	if e.Status != from {
		return ErrTransition
	}
	e.Status = to
	if to == StatusPaid {
		e.PaidBy = &actorID
	} else {
		e.ReviewerID = &actorID
		e.ReviewNote = note
	}
	f.items[id] = e
	return nil
}

func (f *fakeStore) Summary(context.Context, string, Filter) ([]SummaryRow, error) { return nil, nil }

type fakeTeam map[string]string

func (t fakeTeam) IsTeamMember(_ context.Context, _, managerID, userID string) (bool, error) {
	return t[userID] == managerID, nil
}

// fakeDepartments holds the departments of tenant t1 only.
type fakeDepartments map[string]bool

func (d fakeDepartments) GetDepartment(_ context.Context, tenantID, id string) (core.Department, error) {
	if tenantID != "t1" || !d[id] {
		return core.Department{}, core.ErrDepartmentNotFound
	}
	return core.Department{ID: id}, nil
}

type recorder struct{ types []string }

func (r *recorder) Notify(_ context.Context, _, _ string, d notifications.Draft) error {
	r.types = append(r.types, d.Type)
	return nil
}

var (
	admin    = auth.UserContext{UserID: "admin", TenantID: "t1", Role: auth.RoleAdmin}
	manager  = auth.UserContext{UserID: "mgr", TenantID: "t1", Role: auth.RoleManager}
	employee = auth.UserContext{UserID: "emp", TenantID: "t1", Role: auth.RoleEmployee}
)

func newTestService() (*Service, *fakeStore, *recorder) {
	store := newFakeStore()
	rec := &recorder{}
	return NewService(store, fakeTeam{"emp": "mgr"}, fakeDepartments{"dept-eng": true, "dept-ops": true}, rec), store, rec
}

func submit(t *testing.T, svc *Service, caller auth.UserContext, amount string) Expense {
	t.Helper()
	e, err := svc.Submit(context.Background(), caller, NewExpense{
		Category: "Travel", Amount: decimal.RequireFromString(amount), ExpenseDate: time.Now().AddDate(0, 0, -2),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return e
}

func TestSubmitDefaultsDepartmentAndCurrency(t *testing.T) {
	svc, _, _ := newTestService()
	e := submit(t, svc, employee, "42.499")
	if e.DepartmentID == nil || *e.DepartmentID != "dept-eng" {
		t.Fatalf("expected submitter department, got %v", e.DepartmentID)
	}
	if e.Currency != "USD" || e.Category != "travel" || !e.Amount.Equal(decimal.RequireFromString("42.50")) {
		t.Fatalf("unexpected normalisation %+v", e)
	}
}

func TestSubmitChecksExplicitDepartment(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	in := func(dept string) NewExpense {
		return NewExpense{Category: "travel", Amount: decimal.RequireFromString("10"), ExpenseDate: time.Now(), DepartmentID: &dept}
	}

	e, err := svc.Submit(ctx, employee, in("dept-ops"))
	if err != nil || e.DepartmentID == nil || *e.DepartmentID != "dept-ops" {
		t.Fatalf("expected explicit department to be kept, got %+v %v", e, err)
	}

	_, err = svc.Submit(ctx, employee, in("dept-other-tenant"))
	verr, ok := domainerr.AsValidation(err)
	if !ok || verr.Fields[0].Field != "departmentId" {
		t.Fatalf("expected departmentId validation error, got %v", err)
	}

	outsider := auth.UserContext{UserID: "emp", TenantID: "t2", Role: auth.RoleEmployee}
	if _, err := svc.Submit(ctx, outsider, in("dept-eng")); err == nil {
		t.Fatal("expected another tenant's department to be rejected")
	}
}

func TestSubmitRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newTestService()
	for _, amount := range []string{"0", "-5"} {
		_, err := svc.Submit(context.Background(), employee, NewExpense{
			Category: "meals", Amount: decimal.RequireFromString(amount), ExpenseDate: time.Now(),
		})
		if _, ok := domainerr.AsValidation(err); !ok {
			t.Fatalf("amount %s: expected validation error, got %v", amount, err)
		}
	}
}

func TestDecideForwardOnly(t *testing.T) {
	svc, _, rec := newTestService()
	ctx := context.Background()
	e := submit(t, svc, employee, "100")

	if _, _, err := svc.Decide(ctx, manager, e.ID, ActionPay, ""); !errors.Is(err, domainerr.ErrForbidden) {
		t.Fatalf("expected manager pay to be forbidden, got %v", err)
	}
	if _, _, err := svc.Decide(ctx, admin, e.ID, ActionPay, ""); !errors.Is(err, domainerr.ErrInvalidState) {
		t.Fatalf("expected pending -> paid to fail, got %v", err)
	}
	if _, after, err := svc.Decide(ctx, manager, e.ID, ActionApprove, "fine"); err != nil || after.Status != StatusApproved {
		t.Fatalf("approve: %+v %v", after, err)
	}
	if _, _, err := svc.Decide(ctx, admin, e.ID, ActionReject, ""); !errors.Is(err, domainerr.ErrInvalidState) {
		t.Fatalf("expected approved -> rejected to fail, got %v", err)
	}
	if _, after, err := svc.Decide(ctx, admin, e.ID, ActionPay, ""); err != nil || after.Status != StatusPaid {
		t.Fatalf("pay: %+v %v", after, err)
	}
	if _, _, err := svc.Decide(ctx, admin, e.ID, ActionApprove, ""); !errors.Is(err, domainerr.ErrInvalidState) {
		t.Fatalf("expected paid to be final, got %v", err)
	}
	want := []string{notifications.TypeExpenseDecided, notifications.TypeExpensePaid}
	if len(rec.types) != 2 || rec.types[0] != want[0] || rec.types[1] != want[1] {
		t.Fatalf("unexpected notifications %v", rec.types)
	}
}

func TestDecidePermissions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	own := submit(t, svc, manager, "10")
	if _, _, err := svc.Decide(ctx, manager, own.ID, ActionApprove, ""); !errors.Is(err, domainerr.ErrForbidden) {
		t.Fatalf("expected self approval to be forbidden, got %v", err)
	}
	other := submit(t, svc, auth.UserContext{UserID: "stranger", TenantID: "t1", Role: auth.RoleEmployee}, "10")
	if _, _, err := svc.Decide(ctx, manager, other.ID, ActionApprove, ""); !errors.Is(err, domainerr.ErrForbidden) {
		t.Fatalf("expected outside team to be forbidden, got %v", err)
	}
}

func TestDeleteOwnPending(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	e := submit(t, svc, employee, "10")
	if _, err := svc.DeleteOwn(ctx, manager, e.ID); !errors.Is(err, domainerr.ErrNotFound) {
		t.Fatalf("expected not found for non-owner, got %v", err)
	}
	if _, err := svc.DeleteOwn(ctx, employee, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, employee, e.ID); !errors.Is(err, domainerr.ErrNotFound) {
		t.Fatalf("expected deleted expense to be gone, got %v", err)
	}
}
