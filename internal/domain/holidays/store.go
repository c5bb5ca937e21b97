package holidays

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/platform/querier"
)

type StoreAPI interface {
	List(ctx context.Context, tenantID string, year int) ([]Holiday, error)
	Get(ctx context.Context, tenantID, id string) (Holiday, error)
	Create(ctx context.Context, tenantID string, in Input) (string, error)
	Update(ctx context.Context, tenantID, id string, in Input) error
	Delete(ctx context.Context, tenantID, id string) error
	DatesBetween(ctx context.Context, tenantID string, from, to time.Time) ([]time.Time, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context, tenantID string, year int) ([]Holiday, error) {
	query := `
    SELECT id, name, holiday_date, description, created_at
    FROM holidays
    WHERE tenant_id = $1`
	args := []any{tenantID}
	if year > 0 {
		query += " AND EXTRACT(YEAR FROM holiday_date) = $2"
		args = append(args, year)
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY holiday_date", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Holiday{}
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Description, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (Holiday, error) {
	var h Holiday
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, holiday_date, description, created_at
    FROM holidays WHERE tenant_id = $1 AND id = $2
  `, tenantID, id).Scan(&h.ID, &h.Name, &h.Date, &h.Description, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Holiday{}, ErrNotFound
	}
	return h, err
}

func (s *Store) Create(ctx context.Context, tenantID string, in Input) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (tenant_id, name, holiday_date, description)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, in.Name, in.Date, in.Description).Scan(&id)
	return id, err
}

func (s *Store) Update(ctx context.Context, tenantID, id string, in Input) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE holidays SET name = $3, holiday_date = $4, description = $5
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, id, in.Name, in.Date, in.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM holidays WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DatesBetween(ctx context.Context, tenantID string, from, to time.Time) ([]time.Time, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT holiday_date FROM holidays
    WHERE tenant_id = $1 AND holiday_date BETWEEN $2 AND $3
  `, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
