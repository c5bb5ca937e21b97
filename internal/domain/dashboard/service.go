package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"hrdesk/internal/domain/attendance"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/payroll"
)

type StoreAPI interface {
	HeadcountByStatus(ctx context.Context, tenantID string) (map[string]int, error)
	DepartmentCount(ctx context.Context, tenantID string) (int, error)
	TeamSize(ctx context.Context, tenantID, managerID string) (int, error)
}

type PendingCounter interface {
	CountPending(ctx context.Context, caller auth.UserContext) (int, error)
}

type AttendanceSource interface {
	Today(ctx context.Context, caller auth.UserContext) (*attendance.Record, error)
	TodayCounts(ctx context.Context, caller auth.UserContext) (map[string]int, error)
	CountPendingCorrections(ctx context.Context, caller auth.UserContext) (int, error)
}

type PayrollSource interface {
	CurrentPeriod() string
	Summary(ctx context.Context, caller auth.UserContext, period string) (payroll.PeriodSummary, error)
	LatestOwn(ctx context.Context, caller auth.UserContext) (*payroll.Record, error)
}

type UnreadCounter interface {
	UnreadCount(ctx context.Context, tenantID, userID string) (int, error)
}

type Pending struct {
	Applications int `json:"applications"`
	Expenses     int `json:"expenses"`
	Corrections  int `json:"corrections"`
}

type AdminView struct {
	Headcount       map[string]int        `json:"headcount"`
	Departments     int                   `json:"departments"`
	Pending         Pending               `json:"pending"`
	AttendanceToday map[string]int        `json:"attendanceToday"`
	Payroll         payroll.PeriodSummary `json:"payroll"`
}

type ManagerView struct {
	TeamSize        int            `json:"teamSize"`
	Pending         Pending        `json:"pending"`
	AttendanceToday map[string]int `json:"attendanceToday"`
}

type EmployeeView struct {
	Today               *attendance.Record `json:"today"`
	PendingApplications int                `json:"pendingApplications"`
	PendingExpenses     int                `json:"pendingExpenses"`
	LatestSalary        *payroll.Record    `json:"latestSalary"`
	UnreadNotifications int                `json:"unreadNotifications"`
}

type Service struct {
	store         StoreAPI
	Applications  PendingCounter
	Expenses      PendingCounter
	Attendance    AttendanceSource
	Payroll       PayrollSource
	Notifications UnreadCounter
}

func NewService(store StoreAPI, applications, expenses PendingCounter, attendance AttendanceSource, payroll PayrollSource, notifications UnreadCounter) *Service {
	return &Service{
		store:         store,
		Applications:  applications,
		Expenses:      expenses,
		Attendance:    attendance,
		Payroll:       payroll,
		Notifications: notifications,
	}
}

func (s *Service) Admin(ctx context.Context, caller auth.UserContext) (AdminView, error) {
	var view AdminView
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.Headcount, err = s.store.HeadcountByStatus(ctx, caller.TenantID)
		return err
	})
	g.Go(func() (err error) {
		view.Departments, err = s.store.DepartmentCount(ctx, caller.TenantID)
		return err
	})
	g.Go(func() (err error) {
		view.AttendanceToday, err = s.Attendance.TodayCounts(ctx, caller)
		return err
	})
	g.Go(func() (err error) {
		view.Payroll, err = s.Payroll.Summary(ctx, caller, s.Payroll.CurrentPeriod())
		return err
	})
	s.pending(ctx, g, caller, &view.Pending)
	if err := g.Wait(); err != nil {
		return AdminView{}, err
	}
	return view, nil
}

func (s *Service) Manager(ctx context.Context, caller auth.UserContext) (ManagerView, error) {
	var view ManagerView
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.TeamSize, err = s.store.TeamSize(ctx, caller.TenantID, caller.UserID)
		return err
	})
	g.Go(func() (err error) {
		view.AttendanceToday, err = s.Attendance.TodayCounts(ctx, caller)
		return err
	})
	s.pending(ctx, g, caller, &view.Pending)
	if err := g.Wait(); err != nil {
		return ManagerView{}, err
	}
	return view, nil
}

func (s *Service) Employee(ctx context.Context, caller auth.UserContext) (EmployeeView, error) {
	var view EmployeeView
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.Today, err = s.Attendance.Today(ctx, caller)
		return err
	})
	g.Go(func() (err error) {
		view.PendingApplications, err = s.Applications.CountPending(ctx, caller)
		return err
	})
	g.Go(func() (err error) {
		view.PendingExpenses, err = s.Expenses.CountPending(ctx, caller)
		return err
	})
	g.Go(func() (err error) {
		view.LatestSalary, err = s.Payroll.LatestOwn(ctx, caller)
		return err
	})
	g.Go(func() (err error) {
		view.UnreadNotifications, err = s.Notifications.UnreadCount(ctx, caller.TenantID, caller.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return EmployeeView{}, err
	}
	return view, nil
}

func (s *Service) pending(ctx context.Context, g *errgroup.Group, caller auth.UserContext, out *Pending) {
	g.Go(func() (err error) {
		out.Applications, err = s.Applications.CountPending(ctx, caller)
		return err
	})
	g.Go(func() (err error) {
		out.Expenses, err = s.Expenses.CountPending(ctx, caller)
		return err
	})
	g.Go(func() (err error) {
		out.Corrections, err = s.Attendance.CountPendingCorrections(ctx, caller)
		return err
	})
}
