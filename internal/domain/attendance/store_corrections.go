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

const correctionSelect = `
    SELECT c.id, c.attendance_id::text, c.user_id, COALESCE(u.first_name || ' ' || u.last_name, ''), c.work_date,
           c.original_check_in, c.original_check_out, c.requested_check_in, c.requested_check_out,
           c.reason, c.status, c.reviewer_id::text, c.reviewed_at, c.review_note, c.created_at
    FROM attendance_corrections c
    JOIN users u ON u.id = c.user_id`

func scanCorrection(row pgx.Row) (Correction, error) {
	var c Correction
	err := row.Scan(&c.ID, &c.AttendanceID, &c.UserID, &c.UserName, &c.WorkDate,
		&c.OriginalCheckIn, &c.OriginalCheckOut, &c.RequestedCheckIn, &c.RequestedCheckOut,
		&c.Reason, &c.Status, &c.ReviewerID, &c.ReviewedAt, &c.ReviewNote, &c.CreatedAt)
	return c, err
}

func (s *Store) GetCorrection(ctx context.Context, tenantID, id string) (Correction, error) {
	c, err := scanCorrection(s.DB.QueryRow(ctx, correctionSelect+`
    WHERE c.tenant_id = $1 AND c.id = $2
  `, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Correction{}, ErrCorrectionNotFound
	}
	return c, err
}

func (s *Store) ListCorrections(ctx context.Context, tenantID string, filter CorrectionFilter, limit, offset int) ([]Correction, int, error) {
	where := "WHERE c.tenant_id = $1"
	args := []any{tenantID}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND c.user_id::text = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND c.status = $%d", len(args))
	}
	if filter.TeamOf != "" {
		args = append(args, filter.TeamOf)
		where += " AND " + core.TeamPredicate("c.user_id", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM attendance_corrections c "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf("%s %s ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d",
		correctionSelect, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Correction{}
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (s *Store) HasPendingCorrection(ctx context.Context, tenantID, userID string, workDate time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM attendance_corrections
      WHERE tenant_id = $1 AND user_id = $2 AND work_date = $3 AND status = 'pending'
    )
  `, tenantID, userID, workDate).Scan(&exists)
	return exists, err
}

func (s *Store) CreateCorrection(ctx context.Context, tenantID string, c Correction) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance_corrections (tenant_id, attendance_id, user_id, work_date,
      original_check_in, original_check_out, requested_check_in, requested_check_out, reason)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, tenantID, c.AttendanceID, c.UserID, c.WorkDate, c.OriginalCheckIn, c.OriginalCheckOut,
		c.RequestedCheckIn, c.RequestedCheckOut, c.Reason).Scan(&id)
	return id, err
}

// ApplyCorrection approves the request and writes rec as the day's record,
// creating it when the user never checked in.
func (s *Store) ApplyCorrection(ctx context.Context, tenantID, id, reviewerID, note string, rec Record) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		if err := decide(ctx, q, tenantID, id, CorrectionApproved, reviewerID, note); err != nil {
			return err
		}
		var attendanceID string
		err := q.QueryRow(ctx, `
      INSERT INTO attendance_records (tenant_id, user_id, work_date, check_in, check_out,
        scheduled_start, scheduled_end, is_late, late_minutes, is_early_departure,
        early_departure_minutes, worked_minutes, status, note)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
      ON CONFLICT (user_id, work_date) DO UPDATE
        SET check_in = EXCLUDED.check_in, check_out = EXCLUDED.check_out,
            is_late = EXCLUDED.is_late, late_minutes = EXCLUDED.late_minutes,
            is_early_departure = EXCLUDED.is_early_departure,
            early_departure_minutes = EXCLUDED.early_departure_minutes,
            worked_minutes = EXCLUDED.worked_minutes, status = EXCLUDED.status,
            note = EXCLUDED.note, updated_at = now()
      RETURNING id
    `, tenantID, rec.UserID, rec.WorkDate, rec.CheckIn, rec.CheckOut,
			rec.ScheduledStart, rec.ScheduledEnd, rec.IsLate, rec.LateMinutes, rec.IsEarlyDeparture,
			rec.EarlyDepartureMinutes, rec.WorkedMinutes, rec.Status, rec.Note).Scan(&attendanceID)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `UPDATE attendance_corrections SET attendance_id = $3 WHERE tenant_id = $1 AND id = $2`,
			tenantID, id, attendanceID)
		return err
	})
}

func (s *Store) RejectCorrection(ctx context.Context, tenantID, id, reviewerID, note string) error {
	return decide(ctx, s.DB, tenantID, id, CorrectionRejected, reviewerID, note)
}

func decide(ctx context.Context, q querier.Querier, tenantID, id, status, reviewerID, note string) error {
	tag, err := q.Exec(ctx, `
    UPDATE attendance_corrections
    SET status = $3, reviewer_id = $4, reviewed_at = now(), review_note = $5
    WHERE tenant_id = $1 AND id = $2 AND status = 'pending'
  `, tenantID, id, status, reviewerID, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDecided
	}
	return nil
}
