package holidays

import (
	"context"
	"strings"
	"time"

	"hrdesk/internal/domain/domainerr"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, tenantID string, year int) ([]Holiday, error) {
	return s.store.List(ctx, tenantID, year)
}

func (s *Service) Create(ctx context.Context, tenantID string, in Input) (Holiday, error) {
	if err := normalize(&in); err != nil {
		return Holiday{}, err
	}
	id, err := s.store.Create(ctx, tenantID, in)
	if err != nil {
		return Holiday{}, err
	}
	return s.store.Get(ctx, tenantID, id)
}

func (s *Service) Update(ctx context.Context, tenantID, id string, in Input) (Holiday, Holiday, error) {
	before, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return Holiday{}, Holiday{}, err
	}
	if err := normalize(&in); err != nil {
		return Holiday{}, Holiday{}, err
	}
	if err := s.store.Update(ctx, tenantID, id, in); err != nil {
		return Holiday{}, Holiday{}, err
	}
	after, err := s.store.Get(ctx, tenantID, id)
	return before, after, err
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) (Holiday, error) {
	before, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return Holiday{}, err
	}
	return before, s.store.Delete(ctx, tenantID, id)
}

// Between loads the holiday set covering [from, to].
func (s *Service) Between(ctx context.Context, tenantID string, from, to time.Time) (Set, error) {
	dates, err := s.store.DatesBetween(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	return NewSet(dates...), nil
}

func (s *Service) WorkingDays(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	set, err := s.Between(ctx, tenantID, from, to)
	if err != nil {
		return 0, err
	}
	return CountWorkingDays(from, to, set), nil
}

func normalize(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return domainerr.Invalid("name", "is required")
	}
	if in.Date.IsZero() {
		return domainerr.Invalid("date", "is required")
	}
	in.Date = dateOf(in.Date)
	return nil
}
