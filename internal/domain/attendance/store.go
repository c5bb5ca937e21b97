package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/domain/core"
	"hrdesk/internal/platform/querier"
)

type StoreAPI interface {
	Get(ctx context.Context, tenantID, id string) (Record, error)
	GetByDate(ctx context.Context, tenantID, userID string, workDate time.Time) (Record, error)
	CheckIn(ctx context.Context, tenantID string, rec Record) (Record, error)
	CheckOut(ctx context.Context, tenantID, id string, checkOut time.Time, m Metrics) error
	List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Record, int, error)
	Summaries(ctx context.Context, tenantID string, filter Filter) ([]Summary, error)
	StatusCounts(ctx context.Context, tenantID string, workDate time.Time, teamOf string) (map[string]int, error)
	MarkAbsences(ctx context.Context, tenantID string, workDate, scheduledStart, scheduledEnd time.Time) (SweepResult, error)

	GetCorrection(ctx context.Context, tenantID, id string) (Correction, error)
	ListCorrections(ctx context.Context, tenantID string, filter CorrectionFilter, limit, offset int) ([]Correction, int, error)
	HasPendingCorrection(ctx context.Context, tenantID, userID string, workDate time.Time) (bool, error)
	CreateCorrection(ctx context.Context, tenantID string, c Correction) (string, error)
	ApplyCorrection(ctx context.Context, tenantID, id, reviewerID, note string, rec Record) error
	RejectCorrection(ctx context.Context, tenantID, id, reviewerID, note string) error
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const recordColumns = `
    r.id, r.user_id, COALESCE(u.first_name || ' ' || u.last_name, ''), r.work_date, r.check_in, r.check_out,
    r.scheduled_start, r.scheduled_end, r.is_late, r.late_minutes, r.is_early_departure,
    r.early_departure_minutes, r.worked_minutes, r.status, r.note, r.created_at, r.updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.WorkDate, &r.CheckIn, &r.CheckOut,
		&r.ScheduledStart, &r.ScheduledEnd, &r.IsLate, &r.LateMinutes, &r.IsEarlyDeparture,
		&r.EarlyDepartureMinutes, &r.WorkedMinutes, &r.Status, &r.Note, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (Record, error) {
	r, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records r JOIN users u ON u.id = r.user_id
    WHERE r.tenant_id = $1 AND r.id = $2
  `, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func (s *Store) GetByDate(ctx context.Context, tenantID, userID string, workDate time.Time) (Record, error) {
	r, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records r JOIN users u ON u.id = r.user_id
    WHERE r.tenant_id = $1 AND r.user_id = $2 AND r.work_date = $3
  `, tenantID, userID, workDate))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

// CheckIn inserts the day's record. A row left by the absence sweep, which has
// no check-in, is taken over; any other existing row is a conflict.
func (s *Store) CheckIn(ctx context.Context, tenantID string, rec Record) (Record, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance_records (tenant_id, user_id, work_date, check_in, scheduled_start, scheduled_end,
      is_late, late_minutes, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (user_id, work_date) DO UPDATE
      SET check_in = EXCLUDED.check_in, is_late = EXCLUDED.is_late, late_minutes = EXCLUDED.late_minutes,
          status = EXCLUDED.status, updated_at = now()
      WHERE attendance_records.check_in IS NULL
    RETURNING id
  `, tenantID, rec.UserID, rec.WorkDate, rec.CheckIn, rec.ScheduledStart, rec.ScheduledEnd,
		rec.IsLate, rec.LateMinutes, rec.Status).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrAlreadyCheckedIn
	}
	if err != nil {
		return Record{}, err
	}
	return s.Get(ctx, tenantID, id)
}

func (s *Store) CheckOut(ctx context.Context, tenantID, id string, checkOut time.Time, m Metrics) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE attendance_records
    SET check_out = $3, is_late = $4, late_minutes = $5, is_early_departure = $6,
        early_departure_minutes = $7, worked_minutes = $8, status = $9, updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND check_in IS NOT NULL AND check_out IS NULL
  `, tenantID, id, checkOut, m.IsLate, m.LateMinutes, m.IsEarlyDeparture,
		m.EarlyDepartureMinutes, m.WorkedMinutes, m.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyCheckedOut
	}
	return nil
}

func buildWhere(tenantID string, filter Filter) (string, []any) {
	where := "WHERE r.tenant_id = $1"
	args := []any{tenantID}
	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.UserID != "" {
		add("r.user_id::text = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("r.status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("r.work_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("r.work_date <= $%d", *filter.To)
	}
	if filter.TeamOf != "" {
		args = append(args, filter.TeamOf)
		where += " AND " + core.TeamPredicate("r.user_id", len(args))
	}
	return where, args
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Record, int, error) {
	where, args := buildWhere(tenantID, filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM attendance_records r "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + recordColumns + " FROM attendance_records r JOIN users u ON u.id = r.user_id " + where +
		" ORDER BY r.work_date DESC, u.last_name, u.first_name"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *Store) Summaries(ctx context.Context, tenantID string, filter Filter) ([]Summary, error) {
	where, args := buildWhere(tenantID, filter)
	rows, err := s.DB.Query(ctx, `
    SELECT r.user_id, COALESCE(u.first_name || ' ' || u.last_name, ''),
           COUNT(1) FILTER (WHERE r.check_in IS NOT NULL),
           COUNT(1) FILTER (WHERE r.is_late),
           COALESCE(SUM(r.late_minutes), 0),
           COUNT(1) FILTER (WHERE r.is_early_departure),
           COUNT(1) FILTER (WHERE r.status = 'absent'),
           COUNT(1) FILTER (WHERE r.status = 'on_leave'),
           COALESCE(SUM(r.worked_minutes), 0)
    FROM attendance_records r JOIN users u ON u.id = r.user_id
    `+where+`
    GROUP BY r.user_id, u.first_name, u.last_name
    ORDER BY u.last_name, u.first_name
  `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.UserID, &sum.UserName, &sum.DaysPresent, &sum.LateCount, &sum.LateMinutes,
			&sum.EarlyDepartures, &sum.Absences, &sum.LeaveDays, &sum.WorkedMinutes); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) StatusCounts(ctx context.Context, tenantID string, workDate time.Time, teamOf string) (map[string]int, error) {
	where, args := buildWhere(tenantID, Filter{From: &workDate, To: &workDate, TeamOf: teamOf})
	rows, err := s.DB.Query(ctx, "SELECT r.status, COUNT(1) FROM attendance_records r "+where+" GROUP BY r.status", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// MarkAbsences inserts a record for every active user without one on workDate.
// Users covered by an approved leave application are marked on leave.
func (s *Store) MarkAbsences(ctx context.Context, tenantID string, workDate, scheduledStart, scheduledEnd time.Time) (SweepResult, error) {
	rows, err := s.DB.Query(ctx, `
    INSERT INTO attendance_records (tenant_id, user_id, work_date, scheduled_start, scheduled_end, status)
    SELECT u.tenant_id, u.id, $2::date, $3, $4,
           CASE WHEN EXISTS (
             SELECT 1 FROM applications a
             WHERE a.user_id = u.id AND a.status = 'approved' AND a.deleted_at IS NULL
               AND a.type IN ('leave', 'sick_leave')
               AND $2::date BETWEEN a.start_date AND a.end_date
           ) THEN 'on_leave' ELSE 'absent' END
    FROM users u
    WHERE u.tenant_id = $1 AND u.status = 'active' AND u.deleted_at IS NULL
      AND (u.hire_date IS NULL OR u.hire_date <= $2::date)
    ON CONFLICT (user_id, work_date) DO NOTHING
    RETURNING status
  `, tenantID, workDate, scheduledStart, scheduledEnd)
	if err != nil {
		return SweepResult{}, err
	}
	defer rows.Close()

	result := SweepResult{Date: workDate.Format("2006-01-02")}
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return SweepResult{}, err
		}
		if status == StatusOnLeave {
			result.OnLeave++
		} else {
			result.Absent++
		}
	}
	return result, rows.Err()
}
