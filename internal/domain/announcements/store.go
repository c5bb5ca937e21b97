package announcements

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrdesk/internal/platform/querier"
)

type StoreAPI interface {
	List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Announcement, int, error)
	Get(ctx context.Context, tenantID, id string) (Announcement, error)
	Create(ctx context.Context, tenantID, authorID string, in Input) (string, error)
	Update(ctx context.Context, tenantID, id string, in Input) error
	Delete(ctx context.Context, tenantID, id string) (bool, error)
	Recipients(ctx context.Context, tenantID string, a Announcement) ([]string, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const announcementSelect = `
    SELECT a.id, a.title, a.body, a.author_id, COALESCE(u.first_name || ' ' || u.last_name, ''),
           a.audience, a.department_id::text, COALESCE(d.name, ''), a.role, a.pinned,
           a.published_at, a.expires_at, a.created_at, a.updated_at
    FROM announcements a
    JOIN users u ON u.id = a.author_id
    LEFT JOIN departments d ON d.id = a.department_id`

func scanAnnouncement(row pgx.Row) (Announcement, error) {
	var a Announcement
	err := row.Scan(&a.ID, &a.Title, &a.Body, &a.AuthorID, &a.AuthorName,
		&a.Audience, &a.DepartmentID, &a.DepartmentName, &a.Role, &a.Pinned,
		&a.PublishedAt, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func buildWhere(tenantID string, filter Filter) (string, []any) {
	where := "WHERE a.tenant_id = $1 AND a.deleted_at IS NULL"
	args := []any{tenantID}
	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}
	if !filter.IncludeExpired {
		where += " AND (a.expires_at IS NULL OR a.expires_at > now())"
	}
	if filter.AuthorID != "" {
		add("a.author_id::text = $%d", filter.AuthorID)
	}
	if filter.Audience != "" {
		add("a.audience = $%d", filter.Audience)
	}
	if v := filter.Viewer; v != nil {
		args = append(args, v.UserID, v.Role, v.DepartmentID)
		n := len(args)
		where += fmt.Sprintf(` AND (a.audience = 'all'
        OR a.author_id::text = $%d
        OR (a.audience = 'role' AND a.role = $%d)
        OR (a.audience = 'department' AND $%d <> '' AND a.department_id::text = $%d))`, n-2, n-1, n, n)
	}
	return where, args
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Announcement, int, error) {
	where, args := buildWhere(tenantID, filter)

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM announcements a "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf("%s %s ORDER BY a.pinned DESC, a.published_at DESC LIMIT $%d OFFSET $%d",
		announcementSelect, where, len(args)-1, len(args))
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (Announcement, error) {
	a, err := scanAnnouncement(s.DB.QueryRow(ctx,
		announcementSelect+" WHERE a.tenant_id = $1 AND a.id = $2 AND a.deleted_at IS NULL", tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Announcement{}, ErrNotFound
	}
	return a, err
}

func (s *Store) Create(ctx context.Context, tenantID, authorID string, in Input) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO announcements (tenant_id, author_id, title, body, audience, department_id, role, pinned, expires_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, tenantID, authorID, in.Title, in.Body, in.Audience, in.DepartmentID, in.Role, in.Pinned, in.ExpiresAt).Scan(&id)
	return id, err
}

func (s *Store) Update(ctx context.Context, tenantID, id string, in Input) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE announcements
    SET title = $3, body = $4, audience = $5, department_id = $6, role = $7, pinned = $8, expires_at = $9, updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
  `, tenantID, id, in.Title, in.Body, in.Audience, in.DepartmentID, in.Role, in.Pinned, in.ExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE announcements SET deleted_at = now(), updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
  `, tenantID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Recipients lists the active users an announcement reaches, excluding its author.
func (s *Store) Recipients(ctx context.Context, tenantID string, a Announcement) ([]string, error) {
	where := "WHERE tenant_id = $1 AND status = 'active' AND deleted_at IS NULL AND id::text <> $2"
	args := []any{tenantID, a.AuthorID}
	switch a.Audience {
	case AudienceDepartment:
		if a.DepartmentID == nil {
			return nil, nil
		}
		args = append(args, *a.DepartmentID)
		where += " AND department_id::text = $3"
	case AudienceRole:
		if a.Role == nil {
			return nil, nil
		}
		args = append(args, *a.Role)
		where += " AND role = $3"
	}
	rows, err := s.DB.Query(ctx, "SELECT id FROM users "+where, args...)
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
