package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const userColumns = `
    u.id, u.email, u.first_name, u.last_name, u.phone, u.role,
    u.department_id::text, COALESCE(d.name, ''), u.manager_id::text,
    u.position, u.employment_type, u.hire_date, u.base_salary, u.currency,
    u.bank_account_enc, u.status, u.mfa_enabled, u.last_login, u.created_at, u.updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role,
		&u.DepartmentID, &u.DepartmentName, &u.ManagerID,
		&u.Position, &u.EmploymentType, &u.HireDate, &u.BaseSalary, &u.Currency,
		&u.bankAccountEnc, &u.Status, &u.MFAEnabled, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func buildUserWhere(tenantID string, filter UserFilter) (string, []any) {
	where := "WHERE u.tenant_id = $1 AND u.deleted_at IS NULL"
	args := []any{tenantID}
	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (lower(u.email) LIKE $%d OR lower(u.first_name || ' ' || u.last_name) LIKE $%d)", n, n)
	}
	if filter.DepartmentID != "" {
		add("u.department_id::text = $%d", filter.DepartmentID)
	}
	if filter.Role != "" {
		add("u.role = $%d", filter.Role)
	}
	if filter.Status != "" {
		add("u.status = $%d", filter.Status)
	}
	if filter.TeamOf != "" {
		args = append(args, filter.TeamOf)
		where += " AND " + TeamPredicate("u.id", len(args))
	}
	return where, args
}

func (s *Store) ListUsers(ctx context.Context, tenantID string, filter UserFilter, limit, offset int) ([]User, int, error) {
	where, args := buildUserWhere(tenantID, filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users u "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
    SELECT %s
    FROM users u
    LEFT JOIN departments d ON d.id = u.department_id
    %s
    ORDER BY u.last_name, u.first_name
    LIMIT $%d OFFSET $%d
  `, userColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, tenantID, userID string) (User, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, `
    SELECT `+userColumns+`
    FROM users u
    LEFT JOIN departments d ON d.id = u.department_id
    WHERE u.tenant_id = $1 AND u.id = $2 AND u.deleted_at IS NULL
  `, tenantID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, tenantID string, rec UserRecord) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, first_name, last_name, phone, role,
      department_id, manager_id, position, employment_type, hire_date, base_salary, currency,
      bank_account_enc, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    RETURNING id
  `, tenantID, rec.Email, rec.PasswordHash, rec.FirstName, rec.LastName, rec.Phone, rec.Role,
		rec.DepartmentID, rec.ManagerID, rec.Position, rec.EmploymentType, rec.HireDate, rec.BaseSalary, rec.Currency,
		rec.BankAccountEnc, rec.Status).Scan(&id)
	return id, err
}

func (s *Store) UpdateUser(ctx context.Context, tenantID, userID string, rec UserRecord) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users
    SET email = $3, first_name = $4, last_name = $5, phone = $6, role = $7,
        department_id = $8, manager_id = $9, position = $10, employment_type = $11,
        hire_date = $12, base_salary = $13, currency = $14, bank_account_enc = $15,
        status = $16, updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
  `, tenantID, userID, rec.Email, rec.FirstName, rec.LastName, rec.Phone, rec.Role,
		rec.DepartmentID, rec.ManagerID, rec.Position, rec.EmploymentType,
		rec.HireDate, rec.BaseSalary, rec.Currency, rec.BankAccountEnc, rec.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, tenantID, userID string, in ProfileUpdate) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET first_name = $3, last_name = $4, phone = $5, updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
  `, tenantID, userID, in.FirstName, in.LastName, in.Phone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TerminateUser soft deletes the account and revokes its sessions.
func (s *Store) TerminateUser(ctx context.Context, tenantID, userID string) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		tag, err := q.Exec(ctx, `
      UPDATE users SET status = 'terminated', deleted_at = now(), updated_at = now()
      WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
    `, tenantID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		if _, err := q.Exec(ctx, `UPDATE departments SET manager_id = NULL WHERE tenant_id = $1 AND manager_id = $2`, tenantID, userID); err != nil {
			return err
		}
		_, err = q.Exec(ctx, `UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
		return err
	})
}

func (s *Store) IsTeamMember(ctx context.Context, tenantID, managerID, userID string) (bool, error) {
	var ok bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM users u
      WHERE u.tenant_id = $1 AND u.id = $3 AND `+TeamPredicate("u.id", 2)+`
    )
  `, tenantID, managerID, userID).Scan(&ok)
	return ok, err
}

func (s *Store) TeamMemberIDs(ctx context.Context, tenantID, managerID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id FROM users u
    WHERE u.tenant_id = $1 AND u.deleted_at IS NULL AND `+TeamPredicate("u.id", 2),
		tenantID, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
