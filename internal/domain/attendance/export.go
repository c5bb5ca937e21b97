package attendance

import (
	"context"
	"time"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/platform/export"
)

// Export renders the records and per-user summary between from and to as an .xlsx workbook.
func (s *Service) Export(ctx context.Context, caller auth.UserContext, from, to time.Time) ([]byte, error) {
	filter := Filter{From: &from, To: &to}
	s.scope(caller, &filter)
	records, _, err := s.store.List(ctx, caller.TenantID, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	summaries, err := s.store.Summaries(ctx, caller.TenantID, filter)
	if err != nil {
		return nil, err
	}

	loc := s.Schedule.loc()
	recordRows := make([][]any, 0, len(records))
	for _, r := range records {
		recordRows = append(recordRows, []any{
			r.WorkDate.Format("2006-01-02"), r.UserName, clockOf(r.CheckIn, loc), clockOf(r.CheckOut, loc),
			r.Status, r.LateMinutes, r.EarlyDepartureMinutes, r.WorkedMinutes, r.Note,
		})
	}
	summaryRows := make([][]any, 0, len(summaries))
	for _, sum := range summaries {
		summaryRows = append(summaryRows, []any{
			sum.UserName, sum.DaysPresent, sum.LateCount, sum.LateMinutes, sum.EarlyDepartures,
			sum.Absences, sum.LeaveDays, sum.WorkedMinutes,
		})
	}

	return export.Workbook(
		export.Sheet{
			Name:    "Attendance",
			Headers: []string{"Date", "Employee", "Check in", "Check out", "Status", "Late min", "Early min", "Worked min", "Note"},
			Rows:    recordRows,
		},
		export.Sheet{
			Name:    "Summary",
			Headers: []string{"Employee", "Days present", "Late count", "Late min", "Early departures", "Absences", "Leave days", "Worked min"},
			Rows:    summaryRows,
		},
	)
}

func clockOf(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04")
}
