package notifications

import "context"

type StoreAPI interface {
	Create(ctx context.Context, tenantID string, userIDs []string, draft Draft) ([]Notification, error)
	UserEmails(ctx context.Context, tenantID string, userIDs []string) (map[string]string, error)
	List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Notification, int, error)
	UnreadCount(ctx context.Context, tenantID, userID string) (int, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error)
}
