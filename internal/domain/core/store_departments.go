package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/platform/querier"
)

const departmentSelect = `
    SELECT d.id, d.name, d.description, d.manager_id::text,
           COALESCE(m.first_name || ' ' || m.last_name, ''),
           (SELECT COUNT(1) FROM users u WHERE u.department_id = d.id AND u.deleted_at IS NULL),
           d.created_at, d.updated_at
    FROM departments d
    LEFT JOIN users m ON m.id = d.manager_id`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.ManagerID, &d.ManagerName, &d.EmployeeCount, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *Store) ListDepartments(ctx context.Context, tenantID string) ([]Department, error) {
	rows, err := s.DB.Query(ctx, departmentSelect+`
    WHERE d.tenant_id = $1
    ORDER BY d.name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, tenantID, departmentID string) (Department, error) {
	d, err := scanDepartment(s.DB.QueryRow(ctx, departmentSelect+`
    WHERE d.tenant_id = $1 AND d.id = $2
  `, tenantID, departmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Department{}, ErrDepartmentNotFound
	}
	return d, err
}

func (s *Store) CreateDepartment(ctx context.Context, tenantID string, in DepartmentInput) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (tenant_id, name, description, manager_id)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, in.Name, in.Description, in.ManagerID).Scan(&id)
	return id, err
}

func (s *Store) UpdateDepartment(ctx context.Context, tenantID, departmentID string, in DepartmentInput) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE departments SET name = $3, description = $4, manager_id = $5, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, departmentID, in.Name, in.Description, in.ManagerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, tenantID, departmentID string) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		if _, err := q.Exec(ctx, `
      UPDATE users SET department_id = NULL
      WHERE tenant_id = $1 AND department_id = $2 AND deleted_at IS NOT NULL
    `, tenantID, departmentID); err != nil {
			return err
		}
		tag, err := q.Exec(ctx, `DELETE FROM departments WHERE tenant_id = $1 AND id = $2`, tenantID, departmentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrDepartmentNotFound
		}
		return nil
	})
}

func (s *Store) DepartmentMemberCount(ctx context.Context, tenantID, departmentID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM users
    WHERE tenant_id = $1 AND department_id = $2 AND deleted_at IS NULL
  `, tenantID, departmentID).Scan(&count)
	return count, err
}

func (s *Store) DepartmentNames(ctx context.Context, tenantID string) ([]DepartmentName, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name FROM departments WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DepartmentName{}
	for rows.Next() {
		var d DepartmentName
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
