package dashboard

import (
	"context"

	"hrdesk/internal/domain/core"
	"hrdesk/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) HeadcountByStatus(ctx context.Context, tenantID string) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1) FROM users
    WHERE tenant_id = $1 AND deleted_at IS NULL
    GROUP BY status
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

func (s *Store) DepartmentCount(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM departments WHERE tenant_id = $1", tenantID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) TeamSize(ctx context.Context, tenantID, managerID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM users u
    WHERE u.tenant_id = $1 AND u.deleted_at IS NULL AND u.status = 'active' AND u.id::text <> $2
      AND `+core.TeamPredicate("u.id", 2), tenantID, managerID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
