package notifications

import (
	"context"

	"hrdesk/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, tenantID string, userIDs []string, draft Draft) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    INSERT INTO notifications (tenant_id, user_id, type, title, body, link)
    SELECT $1, u.id, $3, $4, $5, $6
    FROM users u
    WHERE u.tenant_id = $1 AND u.id = ANY($2::uuid[]) AND u.deleted_at IS NULL
    RETURNING id, user_id, created_at
  `, tenantID, userIDs, draft.Type, draft.Title, draft.Body, draft.Link)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n := Notification{Type: draft.Type, Title: draft.Title, Body: draft.Body, Link: draft.Link}
		if err := rows.Scan(&n.ID, &n.UserID, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UserEmails(ctx context.Context, tenantID string, userIDs []string) (map[string]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, email FROM users
    WHERE tenant_id = $1 AND id = ANY($2::uuid[]) AND status = 'active'
  `, tenantID, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		out[id] = email
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	where := "WHERE tenant_id = $1 AND user_id = $2"
	if unreadOnly {
		where += " AND read_at IS NULL"
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications "+where, tenantID, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id, type, title, body, link, read_at, created_at
    FROM notifications `+where+`
    ORDER BY created_at DESC
    LIMIT $3 OFFSET $4
  `, tenantID, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Link, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (s *Store) UnreadCount(ctx context.Context, tenantID, userID string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM notifications
    WHERE tenant_id = $1 AND user_id = $2 AND read_at IS NULL
  `, tenantID, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, tenantID, userID, notificationID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE tenant_id = $1 AND user_id = $2 AND id = $3
  `, tenantID, userID, notificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE tenant_id = $1 AND user_id = $2 AND read_at IS NULL
  `, tenantID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
