package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/domain/holidays"
	"hrdesk/internal/domain/notifications"
)

type TeamChecker interface {
	IsTeamMember(ctx context.Context, tenantID, managerID, userID string) (bool, error)
}

// Calendar returns the tenant holidays between two dates.
type Calendar interface {
	Between(ctx context.Context, tenantID string, from, to time.Time) (holidays.Set, error)
}

type Notifier interface {
	Notify(ctx context.Context, tenantID, userID string, draft notifications.Draft) error
}

type Service struct {
	store    StoreAPI
	Schedule Schedule
	Team     TeamChecker
	Calendar Calendar
	Notifier Notifier
	Now      func() time.Time
}

func NewService(store StoreAPI, schedule Schedule, team TeamChecker, calendar Calendar, notifier Notifier) *Service {
	return &Service{store: store, Schedule: schedule, Team: team, Calendar: calendar, Notifier: notifier, Now: time.Now}
}

func (s *Service) CheckIn(ctx context.Context, caller auth.UserContext) (Record, error) {
	now := s.Now().Truncate(time.Second)
	workDate := s.Schedule.WorkDate(now)
	start, end, err := s.Schedule.Bounds(workDate)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		UserID:         caller.UserID,
		WorkDate:       workDate,
		CheckIn:        &now,
		ScheduledStart: start,
		ScheduledEnd:   end,
	}
	rec.apply(Compute(rec.CheckIn, nil, start, end))
	return s.store.CheckIn(ctx, caller.TenantID, rec)
}

func (s *Service) CheckOut(ctx context.Context, caller auth.UserContext) (Record, error) {
	now := s.Now().Truncate(time.Second)
	rec, err := s.store.GetByDate(ctx, caller.TenantID, caller.UserID, s.Schedule.WorkDate(now))
	if errors.Is(err, ErrNotFound) {
		return Record{}, ErrNoOpenCheckIn
	}
	if err != nil {
		return Record{}, err
	}
	if rec.CheckIn == nil {
		return Record{}, ErrNoOpenCheckIn
	}
	if rec.CheckOut != nil {
		return Record{}, ErrAlreadyCheckedOut
	}
	if now.Before(*rec.CheckIn) {
		return Record{}, domainerr.Invalid("checkOut", "must not precede check-in")
	}
	m := Compute(rec.CheckIn, &now, rec.ScheduledStart, rec.ScheduledEnd)
	if err := s.store.CheckOut(ctx, caller.TenantID, rec.ID, now, m); err != nil {
		return Record{}, err
	}
	return s.store.Get(ctx, caller.TenantID, rec.ID)
}

// Today returns the caller's record for the current work date, or nil.
func (s *Service) Today(ctx context.Context, caller auth.UserContext) (*Record, error) {
	rec, err := s.store.GetByDate(ctx, caller.TenantID, caller.UserID, s.Schedule.WorkDate(s.Now()))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) History(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) ([]Record, int, error) {
	filter.UserID = caller.UserID
	filter.TeamOf = ""
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

// List returns tenant-wide records for admins and team records for managers.
func (s *Service) List(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) ([]Record, int, error) {
	s.scope(caller, &filter)
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

func (s *Service) Get(ctx context.Context, caller auth.UserContext, id string) (Record, error) {
	rec, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID == caller.UserID || caller.IsAdmin() {
		return rec, nil
	}
	if err := s.requireTeam(ctx, caller, rec.UserID); err != nil {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// MonthlySummary aggregates records per user for a YYYY-MM period.
func (s *Service) MonthlySummary(ctx context.Context, caller auth.UserContext, period time.Time, filter Filter) ([]Summary, error) {
	from := time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	filter.From, filter.To = &from, &to
	s.scope(caller, &filter)
	return s.store.Summaries(ctx, caller.TenantID, filter)
}

// PeriodTotals returns per-user summaries keyed by user id for every user in
// the tenant. Payroll generation reads absences and lateness from it.
func (s *Service) PeriodTotals(ctx context.Context, tenantID string, from, to time.Time) (map[string]Summary, error) {
	rows, err := s.store.Summaries(ctx, tenantID, Filter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	out := make(map[string]Summary, len(rows))
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}

// TodayCounts breaks today's records down by status.
func (s *Service) TodayCounts(ctx context.Context, caller auth.UserContext) (map[string]int, error) {
	teamOf := ""
	if !caller.IsAdmin() {
		teamOf = caller.UserID
	}
	return s.store.StatusCounts(ctx, caller.TenantID, s.Schedule.WorkDate(s.Now()), teamOf)
}

// Sweep marks users with no record on workDate as absent or on leave.
// Weekends and holidays are skipped. Running it twice is harmless.
func (s *Service) Sweep(ctx context.Context, tenantID string, workDate time.Time) (SweepResult, error) {
	workDate = time.Date(workDate.Year(), workDate.Month(), workDate.Day(), 0, 0, 0, 0, time.UTC)
	result := SweepResult{Date: workDate.Format("2006-01-02")}
	if holidays.IsWeekend(workDate) {
		result.Skipped = "weekend"
		return result, nil
	}
	set, err := s.Calendar.Between(ctx, tenantID, workDate, workDate)
	if err != nil {
		return SweepResult{}, err
	}
	if set.Contains(workDate) {
		result.Skipped = "holiday"
		return result, nil
	}
	start, end, err := s.Schedule.Bounds(workDate)
	if err != nil {
		return SweepResult{}, err
	}
	result, err = s.store.MarkAbsences(ctx, tenantID, workDate, start, end)
	if err != nil {
		return SweepResult{}, err
	}
	slog.Info("absence sweep completed", "tenantId", tenantID, "date", result.Date, "absent", result.Absent, "onLeave", result.OnLeave)
	return result, nil
}

// SweepYesterday is the scheduled job entry point.
func (s *Service) SweepYesterday(ctx context.Context, tenantID string) (any, error) {
	yesterday := s.Schedule.WorkDate(s.Now()).AddDate(0, 0, -1)
	return s.Sweep(ctx, tenantID, yesterday)
}

func (s *Service) SubmitCorrection(ctx context.Context, caller auth.UserContext, in NewCorrection) (Correction, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return Correction{}, domainerr.Invalid("reason", "is required")
	}
	if in.RequestedCheckIn == nil && in.RequestedCheckOut == nil {
		return Correction{}, domainerr.Invalid("requestedCheckIn", "requestedCheckIn or requestedCheckOut is required")
	}
	if in.RequestedCheckIn != nil && in.RequestedCheckOut != nil && in.RequestedCheckOut.Before(*in.RequestedCheckIn) {
		return Correction{}, domainerr.Invalid("requestedCheckOut", "must not precede requestedCheckIn")
	}
	workDate := time.Date(in.WorkDate.Year(), in.WorkDate.Month(), in.WorkDate.Day(), 0, 0, 0, 0, time.UTC)
	if workDate.After(s.Schedule.WorkDate(s.Now())) {
		return Correction{}, domainerr.Invalid("workDate", "must not be in the future")
	}
	if in.RequestedCheckIn != nil && !s.Schedule.WorkDate(*in.RequestedCheckIn).Equal(workDate) {
		return Correction{}, domainerr.Invalid("requestedCheckIn", "must fall on workDate")
	}
	// a check-out may run past midnight into the following day
	if in.RequestedCheckOut != nil {
		day := s.Schedule.WorkDate(*in.RequestedCheckOut)
		if !day.Equal(workDate) && !day.Equal(workDate.AddDate(0, 0, 1)) {
			return Correction{}, domainerr.Invalid("requestedCheckOut", "must fall on workDate or the day after")
		}
	}

	pending, err := s.store.HasPendingCorrection(ctx, caller.TenantID, caller.UserID, workDate)
	if err != nil {
		return Correction{}, err
	}
	if pending {
		return Correction{}, ErrPendingCorrection
	}

	c := Correction{
		UserID:            caller.UserID,
		WorkDate:          workDate,
		RequestedCheckIn:  in.RequestedCheckIn,
		RequestedCheckOut: in.RequestedCheckOut,
		Reason:            in.Reason,
	}
	existing, err := s.store.GetByDate(ctx, caller.TenantID, caller.UserID, workDate)
	switch {
	case err == nil:
		c.AttendanceID = &existing.ID
		c.OriginalCheckIn = existing.CheckIn
		c.OriginalCheckOut = existing.CheckOut
	case !errors.Is(err, ErrNotFound):
		return Correction{}, err
	}

	id, err := s.store.CreateCorrection(ctx, caller.TenantID, c)
	if err != nil {
		return Correction{}, err
	}
	return s.store.GetCorrection(ctx, caller.TenantID, id)
}

func (s *Service) ListCorrections(ctx context.Context, caller auth.UserContext, filter CorrectionFilter, limit, offset int) ([]Correction, int, error) {
	switch {
	case caller.IsAdmin():
	case caller.IsManager():
		filter.TeamOf = caller.UserID
	default:
		filter.UserID = caller.UserID
	}
	return s.store.ListCorrections(ctx, caller.TenantID, filter, limit, offset)
}

func (s *Service) ListOwnCorrections(ctx context.Context, caller auth.UserContext, filter CorrectionFilter, limit, offset int) ([]Correction, int, error) {
	filter.UserID = caller.UserID
	filter.TeamOf = ""
	return s.store.ListCorrections(ctx, caller.TenantID, filter, limit, offset)
}

func (s *Service) CountPendingCorrections(ctx context.Context, caller auth.UserContext) (int, error) {
	_, total, err := s.ListCorrections(ctx, caller, CorrectionFilter{Status: CorrectionPending}, 1, 0)
	return total, err
}

// ReviewCorrection decides a pending request. Approval recomputes the day's
// record from the requested times, keeping the recorded value for any time
// the request leaves out.
func (s *Service) ReviewCorrection(ctx context.Context, caller auth.UserContext, id, decision, note string) (Correction, Correction, error) {
	before, err := s.store.GetCorrection(ctx, caller.TenantID, id)
	if err != nil {
		return Correction{}, Correction{}, err
	}
	if before.UserID == caller.UserID {
		return Correction{}, Correction{}, ErrSelfReview
	}
	if err := s.requireTeam(ctx, caller, before.UserID); err != nil {
		return Correction{}, Correction{}, err
	}
	if before.Status != CorrectionPending {
		return Correction{}, Correction{}, ErrAlreadyDecided
	}
	note = strings.TrimSpace(note)

	switch decision {
	case DecisionApprove:
		rec, err := s.corrected(ctx, caller.TenantID, before)
		if err != nil {
			return Correction{}, Correction{}, err
		}
		if err := s.store.ApplyCorrection(ctx, caller.TenantID, id, caller.UserID, note, rec); err != nil {
			return Correction{}, Correction{}, err
		}
	case DecisionReject:
		if err := s.store.RejectCorrection(ctx, caller.TenantID, id, caller.UserID, note); err != nil {
			return Correction{}, Correction{}, err
		}
	default:
		return Correction{}, Correction{}, domainerr.Invalid("decision", "must be one of: approve, reject")
	}

	after, err := s.store.GetCorrection(ctx, caller.TenantID, id)
	if err != nil {
		return Correction{}, Correction{}, err
	}
	s.notify(ctx, caller.TenantID, after)
	return before, after, nil
}

func (s *Service) corrected(ctx context.Context, tenantID string, c Correction) (Record, error) {
	rec, err := s.store.GetByDate(ctx, tenantID, c.UserID, c.WorkDate)
	if errors.Is(err, ErrNotFound) {
		start, end, berr := s.Schedule.Bounds(c.WorkDate)
		if berr != nil {
			return Record{}, berr
		}
		rec = Record{UserID: c.UserID, WorkDate: c.WorkDate, ScheduledStart: start, ScheduledEnd: end}
	} else if err != nil {
		return Record{}, err
	}
	if c.RequestedCheckIn != nil {
		rec.CheckIn = c.RequestedCheckIn
	}
	if c.RequestedCheckOut != nil {
		rec.CheckOut = c.RequestedCheckOut
	}
	if rec.CheckIn != nil && rec.CheckOut != nil && rec.CheckOut.Before(*rec.CheckIn) {
		return Record{}, domainerr.Invalid("requestedCheckOut", "corrected check-out would precede check-in")
	}
	rec.apply(Compute(rec.CheckIn, rec.CheckOut, rec.ScheduledStart, rec.ScheduledEnd))
	rec.Note = "corrected"
	return rec, nil
}

func (s *Service) notify(ctx context.Context, tenantID string, c Correction) {
	if s.Notifier == nil {
		return
	}
	draft := notifications.Draft{
		Type:  notifications.TypeCorrectionDecided,
		Title: fmt.Sprintf("Attendance correction for %s was %s", c.WorkDate.Format("2006-01-02"), c.Status),
		Body:  c.ReviewNote,
		Link:  "/attendance/corrections/" + c.ID,
	}
	if err := s.Notifier.Notify(ctx, tenantID, c.UserID, draft); err != nil {
		slog.Warn("correction notification failed", "correctionId", c.ID, "err", err)
	}
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
		return ErrOutsideTeam
	}
	return nil
}
