package announcements

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"hrdesk/internal/domain/auth"
	"hrdesk/internal/domain/core"
	"hrdesk/internal/domain/domainerr"
	"hrdesk/internal/domain/notifications"
)

const maxTitleLength = 200

type Directory interface {
	Lookup(ctx context.Context, tenantID, userID string) (core.User, error)
}

type Notifier interface {
	NotifyMany(ctx context.Context, tenantID string, userIDs []string, draft notifications.Draft) ([]notifications.Notification, error)
}

type Service struct {
	store     StoreAPI
	Directory Directory
	Notifier  Notifier
	Now       func() time.Time
}

func NewService(store StoreAPI, directory Directory, notifier Notifier) *Service {
	return &Service{store: store, Directory: directory, Notifier: notifier, Now: time.Now}
}

// Publish creates an announcement and notifies everyone in its audience.
// Managers may only address their own department.
func (s *Service) Publish(ctx context.Context, caller auth.UserContext, in Input) (Announcement, error) {
	if err := s.prepare(ctx, caller, &in); err != nil {
		return Announcement{}, err
	}
	id, err := s.store.Create(ctx, caller.TenantID, caller.UserID, in)
	if err != nil {
		return Announcement{}, err
	}
	a, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Announcement{}, err
	}
	s.notify(ctx, caller.TenantID, a)
	return a, nil
}

func (s *Service) Update(ctx context.Context, caller auth.UserContext, id string, in Input) (Announcement, Announcement, error) {
	before, err := s.editable(ctx, caller, id)
	if err != nil {
		return Announcement{}, Announcement{}, err
	}
	if err := s.prepare(ctx, caller, &in); err != nil {
		return Announcement{}, Announcement{}, err
	}
	if err := s.store.Update(ctx, caller.TenantID, id, in); err != nil {
		return Announcement{}, Announcement{}, err
	}
	after, err := s.store.Get(ctx, caller.TenantID, id)
	return before, after, err
}

func (s *Service) Delete(ctx context.Context, caller auth.UserContext, id string) (Announcement, error) {
	before, err := s.editable(ctx, caller, id)
	if err != nil {
		return Announcement{}, err
	}
	ok, err := s.store.Delete(ctx, caller.TenantID, id)
	if err != nil {
		return Announcement{}, err
	}
	if !ok {
		return Announcement{}, ErrNotFound
	}
	return before, nil
}

// Visible lists what the caller may read: unexpired, audience matched, pinned first.
func (s *Service) Visible(ctx context.Context, caller auth.UserContext, limit, offset int) ([]Announcement, int, error) {
	viewer, err := s.viewer(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	return s.store.List(ctx, caller.TenantID, Filter{Viewer: &viewer}, limit, offset)
}

// List is the management view. Admins see everything, managers their own posts.
func (s *Service) List(ctx context.Context, caller auth.UserContext, filter Filter, limit, offset int) ([]Announcement, int, error) {
	filter.Viewer = nil
	if !caller.IsAdmin() {
		filter.AuthorID = caller.UserID
	}
	return s.store.List(ctx, caller.TenantID, filter, limit, offset)
}

func (s *Service) Get(ctx context.Context, caller auth.UserContext, id string) (Announcement, error) {
	a, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Announcement{}, err
	}
	if caller.IsAdmin() || a.AuthorID == caller.UserID {
		return a, nil
	}
	viewer, err := s.viewer(ctx, caller)
	if err != nil {
		return Announcement{}, err
	}
	if !visibleTo(a, viewer, s.Now()) {
		return Announcement{}, ErrNotFound
	}
	return a, nil
}

func (s *Service) editable(ctx context.Context, caller auth.UserContext, id string) (Announcement, error) {
	a, err := s.store.Get(ctx, caller.TenantID, id)
	if err != nil {
		return Announcement{}, err
	}
	if !caller.IsAdmin() && a.AuthorID != caller.UserID {
		return Announcement{}, ErrForbidden
	}
	return a, nil
}

func (s *Service) viewer(ctx context.Context, caller auth.UserContext) (Viewer, error) {
	v := Viewer{UserID: caller.UserID, Role: caller.Role}
	user, err := s.Directory.Lookup(ctx, caller.TenantID, caller.UserID)
	if err != nil {
		return Viewer{}, err
	}
	if user.DepartmentID != nil {
		v.DepartmentID = *user.DepartmentID
	}
	return v, nil
}

func (s *Service) prepare(ctx context.Context, caller auth.UserContext, in *Input) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.Audience = strings.TrimSpace(in.Audience)
	if in.Audience == "" {
		in.Audience = AudienceAll
	}
	if in.Title == "" {
		return domainerr.Invalid("title", "is required")
	}
	if len(in.Title) > maxTitleLength {
		return domainerr.Invalid("title", "must be at most 200 characters")
	}
	if in.Body == "" {
		return domainerr.Invalid("body", "is required")
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.Now()) {
		return domainerr.Invalid("expiresAt", "must be in the future")
	}

	if !caller.IsAdmin() {
		user, err := s.Directory.Lookup(ctx, caller.TenantID, caller.UserID)
		if err != nil {
			return err
		}
		if user.DepartmentID == nil {
			return ErrForbidden
		}
		if in.Audience != AudienceDepartment && in.Audience != AudienceAll {
			return ErrForbidden
		}
		if in.DepartmentID != nil && *in.DepartmentID != *user.DepartmentID {
			return ErrForbidden
		}
		in.Audience = AudienceDepartment
		in.DepartmentID = user.DepartmentID
	}

	switch in.Audience {
	case AudienceAll:
		in.DepartmentID, in.Role = nil, nil
	case AudienceDepartment:
		if in.DepartmentID == nil || strings.TrimSpace(*in.DepartmentID) == "" {
			return domainerr.Invalid("departmentId", "is required for a department audience")
		}
		in.Role = nil
	case AudienceRole:
		if in.Role == nil || !auth.ValidRole(*in.Role) {
			return domainerr.Invalid("role", "must be one of: "+strings.Join(auth.Roles, ", "))
		}
		in.DepartmentID = nil
	default:
		return domainerr.Invalid("audience", "must be one of: "+strings.Join(Audiences, ", "))
	}
	return nil
}

func (s *Service) notify(ctx context.Context, tenantID string, a Announcement) {
	if s.Notifier == nil {
		return
	}
	recipients, err := s.store.Recipients(ctx, tenantID, a)
	if err != nil {
		slog.Warn("announcement recipients lookup failed", "announcementId", a.ID, "err", err)
		return
	}
	if len(recipients) == 0 {
		return
	}
	draft := notifications.Draft{
		Type:  notifications.TypeAnnouncementPublished,
		Title: a.Title,
		Body:  excerpt(a.Body, 140),
		Link:  "/announcements/" + a.ID,
	}
	if _, err := s.Notifier.NotifyMany(ctx, tenantID, recipients, draft); err != nil {
		slog.Warn("announcement notification failed", "announcementId", a.ID, "recipients", len(recipients), "err", err)
	}
}

func visibleTo(a Announcement, v Viewer, now time.Time) bool {
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	switch a.Audience {
	case AudienceAll:
		return true
	case AudienceDepartment:
		return a.DepartmentID != nil && v.DepartmentID != "" && *a.DepartmentID == v.DepartmentID
	case AudienceRole:
		return a.Role != nil && *a.Role == v.Role
	}
	return false
}

func excerpt(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
