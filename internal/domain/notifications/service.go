package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher pushes a payload to a user's open websocket sessions.
type Publisher interface {
	Publish(ctx context.Context, tenantID, userID string, payload any) error
}

// Queue runs work after the request has returned.
type Queue interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

type Service struct {
	store  StoreAPI
	Mailer Mailer
	Push   Publisher
	// Queue is optional. Without it email copies are sent inline.
	Queue Queue
}

func New(store StoreAPI, mailer Mailer, push Publisher) *Service {
	return &Service{store: store, Mailer: mailer, Push: push}
}

func (s *Service) Notify(ctx context.Context, tenantID, userID string, draft Draft) error {
	_, err := s.NotifyMany(ctx, tenantID, []string{userID}, draft)
	return err
}

// NotifyMany stores one notification per recipient, then pushes and emails
// them. Push and email failures are logged, not returned.
func (s *Service) NotifyMany(ctx context.Context, tenantID string, userIDs []string, draft Draft) ([]Notification, error) {
	recipients := dedupe(userIDs)
	if len(recipients) == 0 {
		return nil, nil
	}
	created, err := s.store.Create(ctx, tenantID, recipients, draft)
	if err != nil {
		return nil, err
	}

	if s.Push != nil {
		for _, n := range created {
			if err := s.Push.Publish(ctx, tenantID, n.UserID, pushFrame{Event: EventNotification, Notification: n}); err != nil {
				slog.Warn("notification push failed", "userId", n.UserID, "err", err)
			}
		}
	}

	if s.Mailer != nil {
		emails, err := s.store.UserEmails(ctx, tenantID, recipients)
		if err != nil {
			slog.Warn("notification email lookup failed", "err", err)
			return created, nil
		}
		var batch []Message
		for _, n := range created {
			if to := emails[n.UserID]; to != "" {
				batch = append(batch, Message{To: to, Subject: n.Title, Body: n.Body})
			}
		}
		s.sendBatch(ctx, batch)
	}
	return created, nil
}

func (s *Service) sendBatch(ctx context.Context, batch []Message) {
	if len(batch) == 0 {
		return
	}
	send := func(ctx context.Context) error {
		for _, msg := range batch {
			if err := s.Mailer.Send(ctx, msg); err != nil {
				slog.Warn("notification email send failed", "to", msg.To, "err", err)
			}
		}
		return nil
	}
	if s.Queue != nil && s.Queue.Submit("notifications.email", send) {
		return
	}
	if s.Queue != nil {
		slog.Warn("notification emails dropped", "count", len(batch))
		return
	}
	_ = send(ctx)
}

// Email sends a message that has no in-app counterpart, such as a reset link.
func (s *Service) Email(ctx context.Context, msg Message) error {
	if s.Mailer == nil {
		return nil
	}
	return s.Mailer.Send(ctx, msg)
}

func (s *Service) List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Notification, int, error) {
	return s.store.List(ctx, tenantID, userID, unreadOnly, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, tenantID, userID string) (int, error) {
	return s.store.UnreadCount(ctx, tenantID, userID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	found, err := s.store.MarkRead(ctx, tenantID, userID, notificationID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	return s.store.MarkAllRead(ctx, tenantID, userID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
