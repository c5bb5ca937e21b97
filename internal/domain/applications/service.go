package applications

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/core"
	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/domain/notifications"
)

// TeamChecker answers whether userID reports to managerID.
type TeamChecker interface {
	IsTeamMember(ctx context.Context, tenantID, managerID, userID string) (bool, error)
}

// Directory resolves the applicant's current record.
type Directory interface {
	Lookup(ctx context.Context, tenantID, userID string) (core.User, error)
}

// Calendar counts working days between two dates, inclusive.
type Calendar interface {
	WorkingDays(ctx context.Context, tenantID string, from, to time.Time) (int, error)
}

type Notifier interface {
	Notify(ctx context.Context, tenantID, userID string, draft notifications.Draft) error
}

type Service struct {
	store     StoreAPI
	Team      TeamChecker
	Directory Directory
	Calendar  Calendar
	Notifier  Notifier
}

func NewService(store StoreAPI, team TeamChecker, directory Directory, calendar Calendar, notifier Notifier) *Service {
	return &Service{store: store, Team: team, Directory: directory, Calendar: calendar, Notifier: notifier}
}

func (s *Service) Submit(ctx context.Context, caller auth.UserContext, in NewApplication) (Application, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Reason = strings.TrimSpace(in.Reason)
	if !slices.Contains(Types, in.Type) {
		return Application{}, domainerr.Invalid("type", "must be one of: "+strings.Join(Types, ", "))
	}
	if in.Title == "" {
		return Application{}, domainerr.Invalid("title", "is required")
	}
	if err := validateDates(in.Type, in.StartDate, in.EndDate); err != nil {
		return Application{}, err
	}
	if in.Type == TypeTransfer {
		if err := s.checkTransfer(ctx, caller, in.TargetDepartmentID); err != nil {
			return Application{}, err
		}
	} else {
		in.TargetDepartmentID = nil
	}

	var days float64
	if in.StartDate != nil && in.EndDate != nil {
		n, err := s.Calendar.WorkingDays(ctx, caller.TenantID, *in.StartDate, *in.EndDate)
		if err != nil {
			return Application{}, err
		}
		if CountsAsLeave(in.Type) && n == 0 {
			return Application{}, domainerr.Invalid("endDate", "range contains no working days")
		}
		days = float64(n)
	}

	id, err := s.store.Create(ctx, caller.TenantID, caller.UserID, in, days)
	if err != nil {
		return Application{}, err
	}
	return s.store.Get(ctx, caller.TenantID, id)
}

func (s *Service) checkTransfer(ctx context.Context, caller auth.UserContext, target *string) error {
	if target == nil || strings.TrimSpace(*target) == "" {
		return domainerr.Invalid("targetDepartmentId", "is required for transfer applications")
	}
	user, err := s.Directory.Lookup(ctx, caller.TenantID, caller.UserID)
	if err != nil {
		return err
	}
	if user.DepartmentID != nil && *user.DepartmentID == *target {
		return domainerr.Invalid("targetDepartmentId", "must differ from the current department")
	}
	return nil
}

// List scopes the filter to what caller may see: admins see everything,
// managers their team, employees their own applications.
func (s *Service) List(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) (ListResult, error) {
	switch {
	case caller.IsAdmin():
	case caller.IsManager():
		filter.TeamOf = caller.UserID
	default:
		filter.UserID = caller.UserID
	}
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

func (s *Service) ListOwn(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) (ListResult, error) {
	filter.UserID = caller.UserID
	filter.TeamOf = ""
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

func (s *Service) Get(ctx context.Context, caller auth.UserContext, id string) (Application, error) {
	app, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Application{}, err
	}
	if err := s.authorizeView(ctx, caller, app); err != nil {
		return Application{}, err
	}
	return app, nil
}

func (s *Service) CountPending(ctx context.Context, caller auth.UserContext) (int, error) {
	var filter Filter
	switch {
	case caller.IsAdmin():
	case caller.IsManager():
		filter.TeamOf = caller.UserID
	default:
		filter.UserID = caller.UserID
	}
	return s.store.CountPending(ctx, caller.TenantID, filter)
}

// DeleteOwn removes the caller's pending application.
func (s *Service) DeleteOwn(ctx context.Context, caller auth.UserContext, id string) (Application, error) {
	app, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Application{}, err
	}
	if app.UserID != caller.UserID {
		return Application{}, ErrNotFound
	}
	if app.Status != StatusPending {
		return Application{}, fmt.Errorf("only pending applications can be deleted: %w", domainerr.ErrInvalidState)
	}
	ok, err := s.store.DeletePending(ctx, caller.TenantID, id, caller.UserID)
	if err != nil {
		return Application{}, err
	}
	if !ok {
		return Application{}, ErrAlreadyFinal
	}
	return app, nil
}

// Review applies decision and returns the application before and after.
func (s *Service) Review(ctx context.Context, caller auth.UserContext, id, decision, note string) (Application, Application, error) {
	before, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Application{}, Application{}, err
	}
	if before.UserID == caller.UserID {
		return Application{}, Application{}, ErrSelfReview
	}
	if err := s.authorizeReview(ctx, caller, before); err != nil {
		return Application{}, Application{}, err
	}
	status, err := NextStatus(before.Status, decision)
	if err != nil {
		return Application{}, Application{}, err
	}
	if err := s.store.Decide(ctx, caller.TenantID, id, status, caller.UserID, strings.TrimSpace(note)); err != nil {
		return Application{}, Application{}, err
	}
	after, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Application{}, Application{}, err
	}
	s.notifyDecision(ctx, caller.TenantID, after)
	return before, after, nil
}

func (s *Service) authorizeView(ctx context.Context, caller auth.UserContext, app Application) error {
	if caller.IsAdmin() || app.UserID == caller.UserID {
		return nil
	}
	if caller.IsManager() {
		return s.authorizeReview(ctx, caller, app)
	}
	return ErrNotFound
}

func (s *Service) authorizeReview(ctx context.Context, caller auth.UserContext, app Application) error {
	if caller.IsAdmin() {
		return nil
	}
	if !caller.IsManager() {
		return ErrForbidden
	}
	ok, err := s.Team.IsTeamMember(ctx, caller.TenantID, caller.UserID, app.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("application is outside your team: %w", domainerr.ErrForbidden)
	}
	return nil
}

func (s *Service) notifyDecision(ctx context.Context, tenantID string, app Application) {
	if s.Notifier == nil {
		return
	}
	draft := notifications.Draft{
		Type:  notifications.TypeApplicationDecided,
		Title: fmt.Sprintf("Your %s application was %s", strings.ReplaceAll(app.Type, "_", " "), app.Status),
		Body:  app.Title,
		Link:  "/applications/" + app.ID,
	}
	if app.ReviewNote != "" {
		draft.Body = app.Title + ": " + app.ReviewNote
	}
	if err := s.Notifier.Notify(ctx, tenantID, app.UserID, draft); err != nil {
		slog.Warn("application decision notification failed", "applicationId", app.ID, "err", err)
	}
}
