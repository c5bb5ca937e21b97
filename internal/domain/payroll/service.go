package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hrdesk/internal/domain/attendance"
	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/core"
	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/domain/notifications"
)

type Directory interface {
	Lookup(ctx context.Context, tenantID, userID string) (core.User, error)
}

// AttendanceSource supplies per-user absences and lateness for a date range.
type AttendanceSource interface {
	PeriodTotals(ctx context.Context, tenantID string, from, to time.Time) (map[string]attendance.Summary, error)
}

type Calendar interface {
	WorkingDays(ctx context.Context, tenantID string, from, to time.Time) (int, error)
}

type Notifier interface {
	Notify(ctx context.Context, tenantID, userID string, draft notifications.Draft) error
}

type Rates struct {
	TaxPercent        decimal.Decimal
	LatenessPerMinute decimal.Decimal
}

type Service struct {
	store      StoreAPI
	Directory  Directory
	Attendance AttendanceSource
	Calendar   Calendar
	Notifier   Notifier
	Rates      Rates
	Now        func() time.Time
}

func NewService(store StoreAPI, directory Directory, attendance AttendanceSource, calendar Calendar, notifier Notifier, rates Rates) *Service {
	return &Service{
		store:      store,
		Directory:  directory,
		Attendance: attendance,
		Calendar:   calendar,
		Notifier:   notifier,
		Rates:      rates,
		Now:        time.Now,
	}
}

// ParsePeriod validates a YYYY-MM period and returns its first and last day.
func ParsePeriod(period string) (time.Time, time.Time, error) {
	start, err := time.Parse(PeriodLayout, strings.TrimSpace(period))
	if err != nil {
		return time.Time{}, time.Time{}, domainerr.Invalid("period", "must be a valid period in YYYY-MM format")
	}
	return start, start.AddDate(0, 1, -1), nil
}

// CurrentPeriod is the YYYY-MM period containing now.
func (s *Service) CurrentPeriod() string {
	return s.Now().Format(PeriodLayout)
}

func (s *Service) Create(ctx context.Context, caller auth.UserContext, in NewRecord) (Record, error) {
	if _, _, err := ParsePeriod(in.Period); err != nil {
		return Record{}, err
	}
	user, err := s.Directory.Lookup(ctx, caller.TenantID, in.UserID)
	if errors.Is(err, core.ErrUserNotFound) {
		return Record{}, domainerr.Invalid("userId", "does not exist")
	}
	if err != nil {
		return Record{}, err
	}
	base := decimal.Zero
	if user.BaseSalary != nil {
		base = *user.BaseSalary
	}
	if in.BaseSalary != nil {
		if in.BaseSalary.IsNegative() {
			return Record{}, domainerr.Invalid("baseSalary", "must not be negative")
		}
		base = *in.BaseSalary
	}

	adjustments := make([]Adjustment, 0, len(in.Adjustments))
	for i, a := range in.Adjustments {
		adj, err := s.manualAdjustment(caller, a)
		if err != nil {
			var verr *domainerr.ValidationError
			if errors.As(err, &verr) {
				for j := range verr.Fields {
					verr.Fields[j].Field = fmt.Sprintf("adjustments[%d].%s", i, verr.Fields[j].Field)
				}
			}
			return Record{}, err
		}
		adjustments = append(adjustments, adj)
	}
	return s.create(ctx, caller.TenantID, in.UserID, strings.TrimSpace(in.Period), base, user.Currency, adjustments)
}

func (s *Service) create(ctx context.Context, tenantID, userID, period string, base decimal.Decimal, currency string, adjustments []Adjustment) (Record, error) {
	rec := Record{UserID: userID, Period: period, Currency: currency}
	if rec.Currency == "" {
		rec.Currency = "USD"
	}
	rec.applyTotals(ComputeSalary(base.Round(2), linesOf(adjustments)))
	id, err := s.store.Create(ctx, tenantID, rec, adjustments)
	if err != nil {
		return Record{}, err
	}
	return s.store.Get(ctx, tenantID, id)
}

// Generate creates a draft for every active user without a record in period.
// Absences and lateness come from attendance, tax from the configured rate.
func (s *Service) Generate(ctx context.Context, caller auth.UserContext, period string) (GenerateResult, error) {
	from, to, err := ParsePeriod(period)
	if err != nil {
		return GenerateResult{}, err
	}
	period = from.Format(PeriodLayout)
	workingDays, err := s.Calendar.WorkingDays(ctx, caller.TenantID, from, to)
	if err != nil {
		return GenerateResult{}, err
	}
	totals, err := s.Attendance.PeriodTotals(ctx, caller.TenantID, from, to)
	if err != nil {
		return GenerateResult{}, err
	}
	payees, err := s.store.Payees(ctx, caller.TenantID, period)
	if err != nil {
		return GenerateResult{}, err
	}

	result := GenerateResult{Period: period, WorkingDays: workingDays}
	for _, p := range payees {
		adjustments := s.derivedAdjustments(caller, p, workingDays, totals[p.UserID])
		if _, err := s.create(ctx, caller.TenantID, p.UserID, period, p.BaseSalary, p.Currency, adjustments); err != nil {
			if errors.Is(err, ErrDuplicate) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("generate record for %s: %w", p.UserID, err)
		}
		result.Created++
	}
	slog.Info("payroll generated", "tenantId", caller.TenantID, "period", period, "created", result.Created, "skipped", result.Skipped)
	return result, nil
}

func (s *Service) derivedAdjustments(caller auth.UserContext, p Payee, workingDays int, summary attendance.Summary) []Adjustment {
	actor := caller.UserID
	var out []Adjustment
	if amount := AbsenceDeduction(p.BaseSalary, workingDays, summary.Absences); amount.IsPositive() {
		out = append(out, Adjustment{
			Kind: KindAbsenceDeduction, Amount: amount, Source: SourceAttendance, CreatedBy: &actor,
			Description: fmt.Sprintf("%d absence(s) over %d working days", summary.Absences, workingDays),
		})
	}
	if amount := LatenessDeduction(summary.LateMinutes, s.Rates.LatenessPerMinute); amount.IsPositive() {
		out = append(out, Adjustment{
			Kind: KindLatenessDeduction, Amount: amount, Source: SourceAttendance, CreatedBy: &actor,
			Description: fmt.Sprintf("%d late minute(s)", summary.LateMinutes),
		})
	}
	if amount := TaxFor(p.BaseSalary, s.Rates.TaxPercent); amount.IsPositive() {
		out = append(out, Adjustment{
			Kind: KindTaxDeduction, Amount: amount, Source: SourceTax, CreatedBy: &actor,
			Description: fmt.Sprintf("Tax at %s%%", s.Rates.TaxPercent.String()),
		})
	}
	return out
}

func (s *Service) manualAdjustment(caller auth.UserContext, in NewAdjustment) (Adjustment, error) {
	if !slices.Contains(Kinds, in.Kind) {
		return Adjustment{}, domainerr.Invalid("kind", "must be one of: "+strings.Join(Kinds, ", "))
	}
	if !in.Amount.IsPositive() {
		return Adjustment{}, domainerr.Invalid("amount", "must be greater than 0")
	}
	actor := caller.UserID
	return Adjustment{
		Kind:        in.Kind,
		Amount:      in.Amount.Round(2),
		Description: strings.TrimSpace(in.Description),
		Source:      SourceManual,
		CreatedBy:   &actor,
	}, nil
}

func (s *Service) AddAdjustment(ctx context.Context, caller auth.UserContext, recordID string, in NewAdjustment) (Record, Record, error) {
	adj, err := s.manualAdjustment(caller, in)
	if err != nil {
		return Record{}, Record{}, err
	}
	before, err := s.store.Get(ctx, caller.TenantID, recordID)
	if err != nil {
		return Record{}, Record{}, err
	}
	if before.Status != StatusDraft {
		return Record{}, Record{}, ErrNotDraft
	}
	if _, err := s.store.AddAdjustment(ctx, caller.TenantID, recordID, adj); err != nil {
		return Record{}, Record{}, err
	}
	after, err := s.store.Get(ctx, caller.TenantID, recordID)
	return before, after, err
}

func (s *Service) RemoveAdjustment(ctx context.Context, caller auth.UserContext, recordID, adjustmentID string) (Record, Record, error) {
	before, err := s.store.Get(ctx, caller.TenantID, recordID)
	if err != nil {
		return Record{}, Record{}, err
	}
	if before.Status != StatusDraft {
		return Record{}, Record{}, ErrNotDraft
	}
	if err := s.store.RemoveAdjustment(ctx, caller.TenantID, recordID, adjustmentID); err != nil {
		return Record{}, Record{}, err
	}
	after, err := s.store.Get(ctx, caller.TenantID, recordID)
	return before, after, err
}

func (s *Service) Finalize(ctx context.Context, caller auth.UserContext, id string) (Record, Record, error) {
	return s.transition(ctx, caller, id, StatusDraft, StatusFinalized)
}

func (s *Service) Pay(ctx context.Context, caller auth.UserContext, id string) (Record, Record, error) {
	return s.transition(ctx, caller, id, StatusFinalized, StatusPaid)
}

func (s *Service) transition(ctx context.Context, caller auth.UserContext, id, from, to string) (Record, Record, error) {
	before, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Record{}, Record{}, err
	}
	if before.Status != from {
		return Record{}, Record{}, fmt.Errorf("%s record cannot become %s: %w", before.Status, to, ErrTransition)
	}
	if err := s.store.Transition(ctx, caller.TenantID, id, from, to); err != nil {
		return Record{}, Record{}, err
	}
	after, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Record{}, Record{}, err
	}
	s.notify(ctx, caller.TenantID, after)
	return before, after, nil
}

func (s *Service) List(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) ([]Record, int, error) {
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

// ListOwn returns the caller's records once they have left draft.
func (s *Service) ListOwn(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) ([]Record, int, error) {
	filter.UserID = caller.UserID
	filter.Status = ""
	filter.Statuses = []string{StatusFinalized, StatusPaid}
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

// Get hides drafts and other users' records from non-admins.
func (s *Service) Get(ctx context.Context, caller auth.UserContext, id string) (Record, error) {
	rec, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Record{}, err
	}
	if caller.IsAdmin() {
		return rec, nil
	}
	if rec.UserID != caller.UserID || rec.Status == StatusDraft {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// LatestOwn returns the caller's most recent finalized or paid record, or nil.
func (s *Service) LatestOwn(ctx context.Context, caller auth.UserContext) (*Record, error) {
	records, _, err := s.ListOwn(ctx, caller, Filter{}, 1, 0)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

func (s *Service) Summary(ctx context.Context, caller auth.UserContext, period string) (PeriodSummary, error) {
	from, _, err := ParsePeriod(period)
	if err != nil {
		return PeriodSummary{}, err
	}
	period = from.Format(PeriodLayout)
	rows, err := s.store.Summary(ctx, caller.TenantID, period)
	if err != nil {
		return PeriodSummary{}, err
	}
	out := PeriodSummary{Period: period, ByStatus: rows}
	for _, row := range rows {
		out.Count += row.Count
		out.Gross = out.Gross.Add(row.Gross)
		out.Net = out.Net.Add(row.Net)
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, tenantID string, rec Record) {
	if s.Notifier == nil {
		return
	}
	draft := notifications.Draft{
		Type:  notifications.TypeSalaryFinalized,
		Title: fmt.Sprintf("Your salary for %s is ready", rec.Period),
		Body:  fmt.Sprintf("Net pay %s %s", rec.NetSalary.StringFixed(2), rec.Currency),
		Link:  "/payroll/" + rec.ID,
	}
	if rec.Status == StatusPaid {
		draft.Type = notifications.TypeSalaryPaid
		draft.Title = fmt.Sprintf("Your salary for %s has been paid", rec.Period)
	}
	if err := s.Notifier.Notify(ctx, tenantID, rec.UserID, draft); err != nil {
		slog.Warn("salary notification failed", "recordId", rec.ID, "err", err)
	}
}
