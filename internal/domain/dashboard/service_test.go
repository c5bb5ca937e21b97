package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"hrdesk/internal/domain/attendance"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/payroll"
)

type fakeStore struct{}

func (fakeStore) HeadcountByStatus(context.Context, string) (map[string]int, error) {
	return map[string]int{"active": 12, "terminated": 2}, nil
}
func (fakeStore) DepartmentCount(context.Context, string) (int, error)  { return 3, nil }
func (fakeStore) TeamSize(context.Context, string, string) (int, error) { return 5, nil }

// counter returns a different count per role so scoping is visible.
type counter map[string]int

func (c counter) CountPending(_ context.Context, caller auth.UserContext) (int, error) {
	return c[caller.Role], nil
}

type fakeAttendance struct{ err error }

func (f fakeAttendance) Today(context.Context, auth.UserContext) (*attendance.Record, error) {
	return &attendance.Record{Status: attendance.StatusLate, LateMinutes: 15}, f.err
}
func (f fakeAttendance) TodayCounts(context.Context, auth.UserContext) (map[string]int, error) {
	return map[string]int{attendance.StatusPresent: 8, attendance.StatusLate: 2}, f.err
}
func (f fakeAttendance) CountPendingCorrections(context.Context, auth.UserContext) (int, error) {
	return 4, f.err
}

type fakePayroll struct{ period string }

func (f *fakePayroll) CurrentPeriod() string { return "2024-05" }
func (f *fakePayroll) Summary(_ context.Context, _ auth.UserContext, period string) (payroll.PeriodSummary, error) {
	f.period = period
	return payroll.PeriodSummary{Period: period, Count: 10, Net: decimal.NewFromInt(42000)}, nil
}
func (f *fakePayroll) LatestOwn(context.Context, auth.UserContext) (*payroll.Record, error) {
	return &payroll.Record{Period: "2024-04", NetSalary: decimal.NewFromInt(3100)}, nil
}

type unread int

func (u unread) UnreadCount(context.Context, string, string) (int, error) { return int(u), nil }

func newTestService(att fakeAttendance) (*Service, *fakePayroll) {
	pay := &fakePayroll{}
	apps := counter{auth.RoleAdmin: 7, auth.RoleManager: 2, auth.RoleEmployee: 1}
	exps := counter{auth.RoleAdmin: 9, auth.RoleManager: 3, auth.RoleEmployee: 0}
	return NewService(fakeStore{}, apps, exps, att, pay, unread(6)), pay
}

func TestAdminDashboard(t *testing.T) {
	svc, pay := newTestService(fakeAttendance{})
	view, err := svc.Admin(context.Background(), auth.UserContext{UserID: "a", TenantID: "t1", Role: auth.RoleAdmin})
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if view.Headcount["active"] != 12 || view.Departments != 3 {
		t.Fatalf("unexpected headcount %+v", view)
	}
	if view.Pending != (Pending{Applications: 7, Expenses: 9, Corrections: 4}) {
		t.Fatalf("unexpected pending %+v", view.Pending)
	}
	if pay.period != "2024-05" || view.Payroll.Count != 10 {
		t.Fatalf("expected current period payroll, got %q %+v", pay.period, view.Payroll)
	}
}

func TestManagerDashboard(t *testing.T) {
	svc, _ := newTestService(fakeAttendance{})
	view, err := svc.Manager(context.Background(), auth.UserContext{UserID: "m", TenantID: "t1", Role: auth.RoleManager})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if view.TeamSize != 5 || view.Pending.Applications != 2 || view.AttendanceToday[attendance.StatusLate] != 2 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestEmployeeDashboard(t *testing.T) {
	svc, _ := newTestService(fakeAttendance{})
	view, err := svc.Employee(context.Background(), auth.UserContext{UserID: "e", TenantID: "t1", Role: auth.RoleEmployee})
	if err != nil {
		t.Fatalf("employee: %v", err)
	}
	if view.Today == nil || view.Today.LateMinutes != 15 || view.UnreadNotifications != 6 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.LatestSalary == nil || !view.LatestSalary.NetSalary.Equal(decimal.NewFromInt(3100)) {
		t.Fatalf("unexpected latest salary %+v", view.LatestSalary)
	}
}

func TestDashboardPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	svc, _ := newTestService(fakeAttendance{err: boom})
	if _, err := svc.Admin(context.Background(), auth.UserContext{TenantID: "t1", Role: auth.RoleAdmin}); !errors.Is(err, boom) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
}
