package applications

import (
	"context"
	"errors"
	"testing"
	"time"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/core"
	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/domain/notifications"
)

type fakeStore struct {
	apps    map[string]Application
	nextID  int
	moved   map[string]string
	deleted map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{apps: map[string]Application{}, moved: map[string]string{}, deleted: map[string]bool{}}
}

func (f *fakeStore) List(_ context.Context, _ string, filter Filter, _, _ int) (ListResult, error) {
	var out []Application
	for _, a := range f.apps {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		out = append(out, a)
	}
	return ListResult{Applications: out, Total: len(out)}, nil
}

func (f *fakeStore) Get(_ context.Context, _, id string) (Application, error) {
	a, ok := f.apps[id]
	if !ok || f.deleted[id] {
		return Application{}, ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) Create(_ context.Context, _, userID string, in NewApplication, days float64) (string, error) {
	f.nextID++
	id := "app-" + string(rune('0'+f.nextID))
	f.apps[id] = Application{
		ID: id, UserID: userID, Type: in.Type, Title: in.Title, Reason: in.Reason,
		StartDate: in.StartDate, EndDate: in.EndDate, Days: days,
		TargetDepartmentID: in.TargetDepartmentID, Status: StatusPending,
	}
	return id, nil
}

func (f *fakeStore) DeletePending(_ context.Context, _, id, userID string) (bool, error) {
	a, ok := f.apps[id]
	if !ok || a.UserID != userID || a.Status != StatusPending {
		return false, nil
	}
	f.deleted[id] = true
	return true, nil
}

func (f *fakeStore) Decide(_ context.Context, _, id, status, reviewerID, note string) error {
	a := f.apps[id]
	if a.Status != StatusPending {
		return ErrAlreadyFinal
	}
	a.Status = status
	a.ReviewerID = &reviewerID
	a.ReviewNote = note
	f.apps[id] = a
	if status == StatusApproved && a.Type == TypeTransfer && a.TargetDepartmentID != nil {
		f.moved[a.UserID] = *a.TargetDepartmentID
	}
	return nil
}

func (f *fakeStore) CountPending(context.Context, string, Filter) (int, error) { return 0, nil }

type fakeTeam map[string]string

func (t fakeTeam) IsTeamMember(_ context.Context, _, managerID, userID string) (bool, error) {
	return t[userID] == managerID, nil
}

type fakeDirectory map[string]core.User

func (d fakeDirectory) Lookup(_ context.Context, _, userID string) (core.User, error) {
	u, ok := d[userID]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

type weekdayCalendar struct{}

func (weekdayCalendar) WorkingDays(_ context.Context, _ string, from, to time.Time) (int, error) {
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			n++
		}
	}
	return n, nil
}

type recordingNotifier struct {
	sent []notifications.Draft
	to   []string
}

func (r *recordingNotifier) Notify(_ context.Context, _, userID string, draft notifications.Draft) error {
	r.sent = append(r.sent, draft)
	r.to = append(r.to, userID)
	return nil
}

var (
	admin    = auth.UserContext{UserID: "admin", TenantID: "t1", Role: auth.RoleAdmin}
	manager  = auth.UserContext{UserID: "mgr", TenantID: "t1", Role: auth.RoleManager}
	employee = auth.UserContext{UserID: "emp", TenantID: "t1", Role: auth.RoleEmployee}
	outsider = auth.UserContext{UserID: "other", TenantID: "t1", Role: auth.RoleEmployee}
)

func newTestService() (*Service, *fakeStore, *recordingNotifier) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	dept := "dept-a"
	svc := NewService(store,
		fakeTeam{"emp": "mgr"},
		fakeDirectory{"emp": {ID: "emp", DepartmentID: &dept}, "mgr": {ID: "mgr"}},
		weekdayCalendar{},
		notifier,
	)
	return svc, store, notifier
}

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSubmitCountsWorkingDays(t *testing.T) {
	svc, _, _ := newTestService()
	// Friday to Tuesday spans one weekend.
	app, err := svc.Submit(context.Background(), employee, NewApplication{
		Type: TypeLeave, Title: "Trip", StartDate: date("2024-05-10"), EndDate: date("2024-05-14"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if app.Days != 3 || app.Status != StatusPending {
		t.Fatalf("expected 3 pending days, got %+v", app)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService()
	other := "dept-b"
	same := "dept-a"
	cases := map[string]NewApplication{
		"unknown type":        {Type: "holiday", Title: "x"},
		"missing title":       {Type: TypeOther},
		"inverted range":      {Type: TypeLeave, Title: "x", StartDate: date("2024-05-10"), EndDate: date("2024-05-09")},
		"weekend only leave":  {Type: TypeLeave, Title: "x", StartDate: date("2024-05-11"), EndDate: date("2024-05-12")},
		"transfer no target":  {Type: TypeTransfer, Title: "x"},
		"transfer same dept":  {Type: TypeTransfer, Title: "x", TargetDepartmentID: &same},
		"leave missing dates": {Type: TypeSickLeave, Title: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), employee, in)
			if _, ok := domainerr.AsValidation(err); !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if _, err := svc.Submit(context.Background(), employee, NewApplication{Type: TypeTransfer, Title: "Move", TargetDepartmentID: &other}); err != nil {
		t.Fatalf("valid transfer: %v", err)
	}
}

func TestReviewForwardOnly(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()
	app, err := svc.Submit(ctx, employee, NewApplication{Type: TypeOther, Title: "Parking spot"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, after, err := svc.Review(ctx, manager, app.ID, DecisionApprove, "ok")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if after.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", after.Status)
	}
	if len(notifier.to) != 1 || notifier.to[0] != "emp" || notifier.sent[0].Type != notifications.TypeApplicationDecided {
		t.Fatalf("expected applicant notification, got %+v", notifier)
	}

	if _, _, err := svc.Review(ctx, admin, app.ID, DecisionReject, ""); !errors.Is(err, domainerr.ErrInvalidState) {
		t.Fatalf("expected invalid state on second review, got %v", err)
	}
}

func TestReviewPermissions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	own, _ := svc.Submit(ctx, manager, NewApplication{Type: TypeOther, Title: "Mine"})
	if _, _, err := svc.Review(ctx, manager, own.ID, DecisionApprove, ""); !errors.Is(err, domainerr.ErrForbidden) {
		t.Fatalf("expected self review to be forbidden, got %v", err)
	}

	foreign, _ := svc.Submit(ctx, outsider, NewApplication{Type: TypeOther, Title: "Not yours"})
	if _, _, err := svc.Review(ctx, manager, foreign.ID, DecisionApprove, ""); !errors.Is(err, domainerr.ErrForbidden) {
		t.Fatalf("expected outside team to be forbidden, got %v", err)
	}
	if _, _, err := svc.Review(ctx, employee, foreign.ID, DecisionApprove, ""); !errors.Is(err, domainerr.ErrForbidden) {
		t.Fatalf("expected employee review to be forbidden, got %v", err)
	}
	if _, _, err := svc.Review(ctx, admin, foreign.ID, DecisionReject, "no"); err != nil {
		t.Fatalf("admin review: %v", err)
	}
}

func TestApprovedTransferMovesUser(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	target := "dept-b"
	app, err := svc.Submit(ctx, employee, NewApplication{Type: TypeTransfer, Title: "Move", TargetDepartmentID: &target})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := svc.Review(ctx, admin, app.ID, DecisionApprove, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if store.moved["emp"] != "dept-b" {
		t.Fatalf("expected user moved to dept-b, got %v", store.moved)
	}
}

func TestDeleteOwnPendingOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	app, _ := svc.Submit(ctx, employee, NewApplication{Type: TypeOther, Title: "Desk"})

	if _, err := svc.DeleteOwn(ctx, outsider, app.ID); !errors.Is(err, domainerr.ErrNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
	decided, _ := svc.Submit(ctx, employee, NewApplication{Type: TypeOther, Title: "Chair"})
	if _, _, err := svc.Review(ctx, manager, decided.ID, DecisionReject, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.DeleteOwn(ctx, employee, decided.ID); !errors.Is(err, domainerr.ErrInvalidState) {
		t.Fatalf("expected invalid state for decided application, got %v", err)
	}
	if _, err := svc.DeleteOwn(ctx, employee, app.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, employee, app.ID); !errors.Is(err, domainerr.ErrNotFound) {
		t.Fatalf("expected deleted application to be gone, got %v", err)
	}
}

func TestGetScopes(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	app, _ := svc.Submit(ctx, employee, NewApplication{Type: TypeOther, Title: "Desk"})

	if _, err := svc.Get(ctx, manager, app.ID); err != nil {
		t.Fatalf("manager should see team application: %v", err)
	}
	if _, err := svc.Get(ctx, outsider, app.ID); !errors.Is(err, domainerr.ErrNotFound) {
		t.Fatalf("expected not found for other employee, got %v", err)
	}
}
