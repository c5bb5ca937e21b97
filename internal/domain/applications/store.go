package applications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/domain/core"
	"hrdesk/internal/platform/querier"
)

type StoreAPI interface {
	List(ctx context.Context, tenantID string, filter Filter, limit, offset int) (ListResult, error)
	Get(ctx context.Context, tenantID, id string) (Application, error)
	Create(ctx context.Context, tenantID, userID string, in NewApplication, days float64) (string, error)
	DeletePending(ctx context.Context, tenantID, id, userID string) (bool, error)
	Decide(ctx context.Context, tenantID, id, status, reviewerID, note string) error
	CountPending(ctx context.Context, tenantID string, filter Filter) (int, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const applicationSelect = `
    SELECT a.id, a.user_id, COALESCE(u.first_name || ' ' || u.last_name, ''), a.type, a.title, a.reason,
           a.start_date, a.end_date, a.days::float8, a.target_department_id::text, a.status,
           a.reviewer_id::text, a.reviewed_at, a.review_note, a.created_at, a.updated_at
    FROM applications a
    JOIN users u ON u.id = a.user_id`

func scanApplication(row pgx.Row) (Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.UserID, &a.ApplicantName, &a.Type, &a.Title, &a.Reason,
		&a.StartDate, &a.EndDate, &a.Days, &a.TargetDepartmentID, &a.Status,
		&a.ReviewerID, &a.ReviewedAt, &a.ReviewNote, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func buildWhere(tenantID string, filter Filter) (string, []any) {
	where := "WHERE a.tenant_id = $1 AND a.deleted_at IS NULL"
	args := []any{tenantID}
	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.UserID != "" {
		add("a.user_id::text = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("a.status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("a.type = $%d", filter.Type)
	}
	if filter.From != nil {
		add("a.created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("a.created_at < $%d", filter.To.AddDate(0, 0, 1))
	}
	if filter.TeamOf != "" {
		args = append(args, filter.TeamOf)
		where += " AND " + core.TeamPredicate("a.user_id", len(args))
	}
	return where, args
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) (ListResult, error) {
	where, args := buildWhere(tenantID, filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM applications a "+where, args...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf("%s %s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d",
		applicationSelect, where, len(args)-1, len(args)), args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	out := []Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return ListResult{}, err
		}
		out = append(out, a)
	}
	return ListResult{Applications: out, Total: total}, rows.Err()
}

func (s *Store) CountPending(ctx context.Context, tenantID string, filter Filter) (int, error) {
	filter.Status = StatusPending
	where, args := buildWhere(tenantID, filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM applications a "+where, args...).Scan(&total)
	return total, err
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (Application, error) {
	a, err := scanApplication(s.DB.QueryRow(ctx, applicationSelect+`
    WHERE a.tenant_id = $1 AND a.id = $2 AND a.deleted_at IS NULL
  `, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Application{}, ErrNotFound
	}
	return a, err
}

func (s *Store) Create(ctx context.Context, tenantID, userID string, in NewApplication, days float64) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO applications (tenant_id, user_id, type, title, reason, start_date, end_date, days, target_department_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, tenantID, userID, in.Type, in.Title, in.Reason, in.StartDate, in.EndDate, days, in.TargetDepartmentID).Scan(&id)
	return id, err
}

// DeletePending soft deletes the caller's own application while it is still pending.
func (s *Store) DeletePending(ctx context.Context, tenantID, id, userID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE applications SET deleted_at = now(), updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND user_id = $3 AND status = 'pending' AND deleted_at IS NULL
  `, tenantID, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Decide moves a pending application to status. An approved transfer also
// moves the applicant to the target department in the same transaction.
func (s *Store) Decide(ctx context.Context, tenantID, id, status, reviewerID, note string) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		var userID, appType string
		var target *string
		err := q.QueryRow(ctx, `
      UPDATE applications
      SET status = $3, reviewer_id = $4, reviewed_at = now(), review_note = $5, updated_at = now()
      WHERE tenant_id = $1 AND id = $2 AND status = 'pending' AND deleted_at IS NULL
      RETURNING user_id, type, target_department_id::text
    `, tenantID, id, status, reviewerID, note).Scan(&userID, &appType, &target)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAlreadyFinal
		}
		if err != nil {
			return err
		}
		if status != StatusApproved || appType != TypeTransfer || target == nil {
			return nil
		}
		_, err = q.Exec(ctx, `
      UPDATE users SET department_id = $3, updated_at = now()
      WHERE tenant_id = $1 AND id = $2
    `, tenantID, userID, *target)
		return err
	})
}
