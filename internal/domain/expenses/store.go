package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/domain/core"
	"hrdesk/internal/platform/querier"
)

type StoreAPI interface {
	List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Expense, int, error)
	Get(ctx context.Context, tenantID, id string) (Expense, error)
	Create(ctx context.Context, tenantID, userID string, in NewExpense) (string, error)
	DeletePending(ctx context.Context, tenantID, id, userID string) (bool, error)
	Transition(ctx context.Context, tenantID, id, from, to, actorID, note string) error
	Summary(ctx context.Context, tenantID string, filter Filter) ([]SummaryRow, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const expenseSelect = `
    SELECT e.id, e.user_id, COALESCE(u.first_name || ' ' || u.last_name, ''), e.department_id::text,
           COALESCE(d.name, ''), e.category, e.description, e.amount, e.currency, e.expense_date,
           e.status, e.reviewer_id::text, e.reviewed_at, e.review_note, e.paid_by::text, e.paid_at,
           e.created_at, e.updated_at
    FROM expenses e
    JOIN users u ON u.id = e.user_id
    LEFT JOIN departments d ON d.id = e.department_id`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.UserID, &e.UserName, &e.DepartmentID, &e.DepartmentName,
		&e.Category, &e.Description, &e.Amount, &e.Currency, &e.ExpenseDate,
		&e.Status, &e.ReviewerID, &e.ReviewedAt, &e.ReviewNote, &e.PaidBy, &e.PaidAt,
		&e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func buildWhere(tenantID string, filter Filter) (string, []any) {
	where := "WHERE e.tenant_id = $1 AND e.deleted_at IS NULL"
	args := []any{tenantID}
	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.UserID != "" {
		add("e.user_id::text = $%d", filter.UserID)
	}
	if filter.DepartmentID != "" {
		add("e.department_id::text = $%d", filter.DepartmentID)
	}
	if filter.Status != "" {
		add("e.status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add("e.category = $%d", filter.Category)
	}
	if filter.From != nil {
		add("e.expense_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("e.expense_date <= $%d", *filter.To)
	}
	if filter.TeamOf != "" {
		args = append(args, filter.TeamOf)
		where += " AND " + core.TeamPredicate("e.user_id", len(args))
	}
	return where, args
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Expense, int, error) {
	where, args := buildWhere(tenantID, filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM expenses e "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := expenseSelect + " " + where + " ORDER BY e.expense_date DESC, e.created_at DESC"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (Expense, error) {
	e, err := scanExpense(s.DB.QueryRow(ctx, expenseSelect+`
    WHERE e.tenant_id = $1 AND e.id = $2 AND e.deleted_at IS NULL
  `, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	return e, err
}

// Create stores the expense. A missing department falls back to the
// submitter's current department. An explicit one must already be checked
// against the tenant's directory.
func (s *Store) Create(ctx context.Context, tenantID, userID string, in NewExpense) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO expenses (tenant_id, user_id, department_id, category, description, amount, currency, expense_date)
    SELECT $1, u.id, COALESCE($3::uuid, u.department_id), $4, $5, $6, $7, $8
    FROM users u
    WHERE u.tenant_id = $1 AND u.id = $2
    RETURNING id
  `, tenantID, userID, in.DepartmentID, in.Category, in.Description, in.Amount, in.Currency, in.ExpenseDate).Scan(&id)
	return id, err
}

func (s *Store) DeletePending(ctx context.Context, tenantID, id, userID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE expenses SET deleted_at = now(), updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND user_id = $3 AND status = 'pending' AND deleted_at IS NULL
  `, tenantID, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Transition moves the expense from one status to the next. The from status is
// part of the WHERE clause so a concurrent decision loses cleanly.
func (s *Store) Transition(ctx context.Context, tenantID, id, from, to, actorID, note string) error {
	var query string
	args := []any{tenantID, id, from, to, actorID}
	if to == StatusPaid {
		query = `
      UPDATE expenses SET status = $4, paid_by = $5, paid_at = now(), updated_at = now()
      WHERE tenant_id = $1 AND id = $2 AND status = $3 AND deleted_at IS NULL`
	} else {
		query = `
      UPDATE expenses SET status = $4, reviewer_id = $5, reviewed_at = now(), review_note = $6, updated_at = now()
      WHERE tenant_id = $1 AND id = $2 AND status = $3 AND deleted_at IS NULL`
		args = append(args, note)
	}
	tag, err := s.DB.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransition
	}
	return nil
}

func (s *Store) Summary(ctx context.Context, tenantID string, filter Filter) ([]SummaryRow, error) {
	where, args := buildWhere(tenantID, filter)
	rows, err := s.DB.Query(ctx, `
    SELECT e.department_id::text, COALESCE(d.name, 'Unassigned'), e.status, COUNT(1), COALESCE(SUM(e.amount), 0)
    FROM expenses e
    LEFT JOIN departments d ON d.id = e.department_id
    `+where+`
    GROUP BY e.department_id, d.name, e.status
    ORDER BY COALESCE(d.name, 'Unassigned'), e.status
  `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SummaryRow{}
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.DepartmentID, &row.DepartmentName, &row.Status, &row.Count, &row.Total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
