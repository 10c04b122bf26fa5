package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymdesk/internal/apperr"
	"gymdesk/internal/clock"
	"gymdesk/internal/db"
	"gymdesk/internal/events"
	"gymdesk/internal/logger"
	"gymdesk/internal/member"
	"gymdesk/internal/metrics"
	"gymdesk/internal/subscription"

	"github.com/jmoiron/sqlx"
)

const DefaultTokenTTL = 5 * time.Minute

type Members interface {
	GetByID(ctx context.Context, id int) (*member.Member, error)
	GetActive(ctx context.Context, id int) (*member.Member, error)
}

// Subscriptions is the subscription storage used to read the entitlement and
// to consume visits inside the check-in transaction.
type Subscriptions interface {
	GetActiveForUser(ctx context.Context, userID int, today time.Time) (*subscription.Subscription, error)
	GetActiveForUserTx(ctx context.Context, tx *sqlx.Tx, userID int, today time.Time) (*subscription.Subscription, error)
	ApplyVisitTx(ctx context.Context, tx *sqlx.Tx, change subscription.VisitChange) error
}

type Service interface {
	Mint(ctx context.Context, userID int) (*MintResult, error)
	Verify(ctx context.Context, token string) (*VerifyResult, error)
	CreateCheckIn(ctx context.Context, req CreateCheckInRequest) (*CreateResult, error)
	List(ctx context.Context, filter Filter) ([]CheckIn, error)
	Statistics(ctx context.Context, filter Filter) (*Stats, error)
}

type ServiceOption func(*service)

func WithClock(c clock.Clock) ServiceOption {
	return func(s *service) { s.now = c }
}

func WithLocation(loc *time.Location) ServiceOption {
	return func(s *service) { s.loc = loc }
}

func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithNonceStore makes every QR code single use.
func WithNonceStore(store NonceStore) ServiceOption {
	return func(s *service) { s.nonces = store }
}

func WithPublisher(p events.Publisher) ServiceOption {
	return func(s *service) {
		if p != nil {
			s.events = p
		}
	}
}

type service struct {
	repo    RepositoryInterface
	members Members
	subs    Subscriptions
	tx      db.Transactor
	secret  string
	ttl     time.Duration
	nonces  NonceStore
	events  events.Publisher
	now     clock.Clock
	loc     *time.Location
}

func NewService(repo RepositoryInterface, members Members, subs Subscriptions, tx db.Transactor, secret string, opts ...ServiceOption) Service {
	s := &service{
		repo:    repo,
		members: members,
		subs:    subs,
		tx:      tx,
		secret:  secret,
		ttl:     DefaultTokenTTL,
		events:  events.Nop{},
		now:     clock.System(),
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Mint(ctx context.Context, userID int) (*MintResult, error) {
	if _, err := s.members.GetActive(ctx, userID); err != nil {
		return nil, err
	}

	token, claims, err := signToken(userID, s.now().Truncate(time.Second), s.ttl, s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign qr token: %w", err)
	}

	logger.Debugf("QR token minted: User=%d", userID)
	return &MintResult{Token: token, IssuedAt: claims.IssuedAt, ExpiresAt: claims.ExpiresAt}, nil
}

func (s *service) Verify(ctx context.Context, raw string) (*VerifyResult, error) {
	now := s.now()

	tok, err := parseToken(raw, s.secret, s.ttl, now)
	if err != nil {
		if errors.Is(err, errExpiredToken) {
			metrics.RecordQRVerification("expired")
			return nil, apperr.Expired("QR code has expired, ask the member to refresh it")
		}
		metrics.RecordQRVerification("invalid")
		return nil, apperr.Invalid("invalid QR code")
	}

	m, err := s.members.GetByID(ctx, tok.UserID)
	if err != nil {
		metrics.RecordQRVerification("not_found")
		return nil, err
	}

	result := &VerifyResult{
		UserID:         m.ID,
		Name:           m.Name,
		Email:          m.Email,
		Status:         m.Status,
		MembershipType: m.MembershipLabel(),
	}
	if !m.IsActive() {
		result.Message = fmt.Sprintf("Account is %s", m.Status)
		metrics.RecordQRVerification("forbidden")
		return result, apperr.Forbidden("account is %s", m.Status)
	}

	from, to := clock.MonthBounds(now, s.loc)
	count, err := s.repo.CountForUser(ctx, m.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count monthly check-ins: %w", err)
	}
	result.MonthlyCheckIns = count

	active, err := s.subs.GetActiveForUser(ctx, m.ID, clock.Date(now, s.loc))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		active = nil
	case err != nil:
		return nil, fmt.Errorf("load subscription: %w", err)
	default:
		result.RemainingVisits = active.RemainingVisits
	}

	result.Tier = subscription.ResolveTier(active, m.MembershipLabel())
	switch result.Tier {
	case subscription.TierLimited:
		limit := subscription.MonthlyLimitedCap
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		result.MonthlyLimit = &limit
		result.RemainingMonth = &remaining
		if count >= limit {
			result.Message = fmt.Sprintf("Monthly limit of %d visits reached", limit)
			metrics.RecordQRVerification("limit_reached")
			return result, apperr.LimitReached("monthly limit of %d visits reached", limit)
		}
		result.Message = fmt.Sprintf("%d of %d visits left this month", remaining, limit)
	case subscription.TierUnlimited:
		result.Message = "Unlimited membership"
	case subscription.TierSingle:
		result.Message = "Single visit"
	default:
		result.UnknownTier = true
		result.Message = "Membership type not recognised, entry allowed"
	}

	if s.nonces != nil {
		claimed, err := s.nonces.Claim(ctx, tok.Nonce, tok.ExpiresAt.Sub(now))
		if err != nil {
			logger.Warn("QR nonce store unavailable, replay check skipped", "error", err)
		} else if !claimed {
			metrics.RecordQRVerification("replayed")
			return nil, apperr.Invalid("QR code has already been used")
		}
	}

	result.Valid = true
	metrics.RecordQRVerification("valid")
	return result, nil
}

func (s *service) CreateCheckIn(ctx context.Context, req CreateCheckInRequest) (*CreateResult, error) {
	if _, err := s.members.GetActive(ctx, req.UserID); err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = MethodQR
	}
	today := clock.Date(s.now(), s.loc)

	result := &CreateResult{}
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		sub, err := s.subs.GetActiveForUserTx(ctx, tx, req.UserID, today)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			logger.Debugf("Check-in without active subscription: User=%d", req.UserID)
		case err != nil:
			return fmt.Errorf("lock subscription: %w", err)
		default:
			if change, ok := sub.ConsumeVisit(); ok {
				if err := s.subs.ApplyVisitTx(ctx, tx, change); err != nil {
					return fmt.Errorf("consume visit: %w", err)
				}
				result.Subscription = &change
			}
		}

		created, err := s.repo.CreateTx(ctx, tx, &CheckIn{
			UserID:     req.UserID,
			Method:     method,
			LocationID: req.LocationID,
			Notes:      req.Notes,
		})
		if err != nil {
			return fmt.Errorf("insert check-in: %w", err)
		}
		result.CheckIn = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCheckIn(method)
	logger.Infof("Check-in recorded: ID=%d, User=%d, Method=%s", result.CheckIn.ID, req.UserID, method)
	if result.Subscription != nil && result.Subscription.Status == subscription.StatusExpired {
		logger.Infof("Subscription %d used its last visit", result.Subscription.SubscriptionID)
	}

	s.events.Publish(ctx, events.CheckInRecorded, map[string]interface{}{
		"check_in_id": result.CheckIn.ID,
		"user_id":     req.UserID,
		"method":      method,
		"location_id": req.LocationID,
	})
	return result, nil
}

// resolve turns calendar dates into instants in the gym's time zone.
func (s *service) resolve(f Filter) Window {
	w := Window{UserID: f.UserID, Limit: f.Limit}
	if f.Start != nil {
		from := time.Date(f.Start.Year(), f.Start.Month(), f.Start.Day(), 0, 0, 0, 0, s.loc)
		w.From = &from
	}
	if f.End != nil {
		to := time.Date(f.End.Year(), f.End.Month(), f.End.Day()+1, 0, 0, 0, 0, s.loc)
		w.To = &to
	}
	if w.Limit <= 0 {
		w.Limit = defaultListLimit
	}
	if w.Limit > maxListLimit {
		w.Limit = maxListLimit
	}
	return w
}

func (s *service) List(ctx context.Context, filter Filter) ([]CheckIn, error) {
	return s.repo.List(ctx, s.resolve(filter))
}

func (s *service) Statistics(ctx context.Context, filter Filter) (*Stats, error) {
	w := s.resolve(filter)

	totals, err := s.repo.Totals(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("check-in totals: %w", err)
	}
	hours, err := s.repo.HourlyCounts(ctx, w, s.loc.String())
	if err != nil {
		return nil, fmt.Errorf("hourly check-ins: %w", err)
	}

	stats := &Stats{TotalCheckIns: totals.Total, UniqueUsers: totals.UniqueUsers}
	best := 0
	for _, h := range hours {
		if h.Hour < 0 || h.Hour > 23 {
			continue
		}
		stats.Hourly[h.Hour] = h.Count
		if h.Count > best {
			best = h.Count
			hour := h.Hour
			stats.PeakHour = &hour
		}
	}
	return stats, nil
}
