package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymdesk/internal/apperr"
	"gymdesk/internal/clock"
	"gymdesk/internal/logger"
)

var ErrNoActiveSubscription = apperr.NotFound("no active subscription")

type Service interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetByID(ctx context.Context, id int) (*Subscription, error)
	GetActiveForUser(ctx context.Context, userID int) (*Subscription, error)
	ListForUser(ctx context.Context, userID int) ([]Subscription, error)
	Renew(ctx context.Context, id int) (*Subscription, error)
	Suspend(ctx context.Context, id int) (*Subscription, error)
	Cancel(ctx context.Context, id int) (*Subscription, error)
}

type ServiceOption func(*service)

func WithClock(c clock.Clock) ServiceOption {
	return func(s *service) { s.now = c }
}

func WithLocation(loc *time.Location) ServiceOption {
	return func(s *service) { s.loc = loc }
}

type service struct {
	repo RepositoryInterface
	now  clock.Clock
	loc  *time.Location
}

func NewService(repo RepositoryInterface, opts ...ServiceOption) Service {
	s := &service{repo: repo, now: clock.System(), loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) today() time.Time {
	return clock.Date(s.now(), s.loc)
}

func (s *service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.repo.ListPlans(ctx)
}

func (s *service) GetByID(ctx context.Context, id int) (*Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("subscription not found")
		}
		return nil, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return sub, nil
}

func (s *service) GetActiveForUser(ctx context.Context, userID int) (*Subscription, error) {
	sub, err := s.repo.GetActiveForUser(ctx, userID, s.today())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("active subscription for user %d: %w", userID, err)
	}
	return sub, nil
}

func (s *service) ListForUser(ctx context.Context, userID int) ([]Subscription, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Renew starts a new period today, or the day after the current period when
// it is still running, and resets the visit allowance from the plan.
func (s *service) Renew(ctx context.Context, id int) (*Subscription, error) {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("get plan %d: %w", sub.PlanID, err)
	}

	today := s.today()
	start := today
	if sub.Status == StatusActive && !sub.EndDate.Before(today) {
		start = clock.Date(sub.EndDate, time.UTC).AddDate(0, 0, 1)
	}
	end := start.AddDate(0, 0, plan.DurationDays)

	var remaining *int
	if plan.VisitQuota != nil {
		q := *plan.VisitQuota
		remaining = &q
	}

	if err := s.repo.Renew(ctx, id, start, end, remaining); err != nil {
		return nil, fmt.Errorf("renew subscription %d: %w", id, err)
	}
	logger.Infof("Subscription renewed: ID=%d, User=%d, Until=%s", id, sub.UserID, end.Format("2006-01-02"))

	return s.GetByID(ctx, id)
}

func (s *service) Suspend(ctx context.Context, id int) (*Subscription, error) {
	return s.transition(ctx, id, []Status{StatusActive}, StatusSuspended)
}

func (s *service) Cancel(ctx context.Context, id int) (*Subscription, error) {
	return s.transition(ctx, id, []Status{StatusActive, StatusSuspended, StatusExpired}, StatusInactive)
}

func (s *service) transition(ctx context.Context, id int, from []Status, to Status) (*Subscription, error) {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, fmt.Errorf("update subscription %d: %w", id, err)
	}
	if !ok {
		return nil, apperr.Invalid("cannot move subscription from %s to %s", sub.Status, to)
	}
	logger.Infof("Subscription status changed: ID=%d, %s -> %s", id, sub.Status, to)

	return s.GetByID(ctx, id)
}
