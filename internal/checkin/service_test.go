package checkin

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"gymdesk/internal/apperr"
	"gymdesk/internal/member"
	"gymdesk/internal/subscription"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 11, 4, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memRepo struct {
	clock    *testClock
	checkIns []CheckIn
	hours    []HourCount
	totals   Totals
}

func (r *memRepo) CreateTx(_ context.Context, _ *sqlx.Tx, c *CheckIn) (*CheckIn, error) {
	created := *c
	created.ID = len(r.checkIns) + 1
	created.CheckedInAt = r.clock.Now()
	r.checkIns = append(r.checkIns, created)
	return &created, nil
}

func (r *memRepo) CountForUser(_ context.Context, userID int, from, to time.Time) (int, error) {
	n := 0
	for _, c := range r.checkIns {
		if c.UserID == userID && !c.CheckedInAt.Before(from) && c.CheckedInAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) List(_ context.Context, w Window) ([]CheckIn, error) {
	return r.checkIns, nil
}

func (r *memRepo) Totals(_ context.Context, _ Window) (*Totals, error) {
	t := r.totals
	return &t, nil
}

func (r *memRepo) HourlyCounts(_ context.Context, _ Window, _ string) ([]HourCount, error) {
	return r.hours, nil
}

// seed adds n check-ins for userID at the given time.
func (r *memRepo) seed(userID, n int, at time.Time) {
	for i := 0; i < n; i++ {
		r.checkIns = append(r.checkIns, CheckIn{ID: len(r.checkIns) + 1, UserID: userID, CheckedInAt: at, Method: MethodQR})
	}
}

type fakeMembers map[int]*member.Member

func (f fakeMembers) GetByID(_ context.Context, id int) (*member.Member, error) {
	m, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return m, nil
}

func (f fakeMembers) GetActive(ctx context.Context, id int) (*member.Member, error) {
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return m, apperr.Forbidden("account is %s", m.Status)
	}
	return m, nil
}

type fakeSubs struct {
	active   map[int]*subscription.Subscription
	applyErr error
	applied  []subscription.VisitChange
}

func (f *fakeSubs) GetActiveForUser(_ context.Context, userID int, _ time.Time) (*subscription.Subscription, error) {
	if s, ok := f.active[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubs) GetActiveForUserTx(ctx context.Context, _ *sqlx.Tx, userID int, today time.Time) (*subscription.Subscription, error) {
	return f.GetActiveForUser(ctx, userID, today)
}

func (f *fakeSubs) ApplyVisitTx(_ context.Context, _ *sqlx.Tx, change subscription.VisitChange) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, change)
	for _, sub := range f.active {
		if sub.ID == change.SubscriptionID {
			sub.RemainingVisits = change.RemainingVisits
			sub.Status = change.Status
		}
	}
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type memNonces map[string]bool

func (m memNonces) Claim(_ context.Context, nonce string, _ time.Duration) (bool, error) {
	if m[nonce] {
		return false, nil
	}
	m[nonce] = true
	return true, nil
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

type fixture struct {
	clock   *testClock
	repo    *memRepo
	members fakeMembers
	subs    *fakeSubs
	svc     Service
}

func newFixture(opts ...ServiceOption) *fixture {
	clk := &testClock{t: fixedNow}
	f := &fixture{
		clock: clk,
		repo:  &memRepo{clock: clk},
		members: fakeMembers{
			1: {ID: 1, Name: "Lim", Email: "lim@gym.test", Status: member.StatusActive, MembershipType: strPtr("Monthly Limited")},
			2: {ID: 2, Name: "Una", Email: "una@gym.test", Status: member.StatusActive, MembershipType: strPtr("Monthly Unlimited")},
			3: {ID: 3, Name: "Sus", Email: "sus@gym.test", Status: member.StatusSuspended, MembershipType: strPtr("Monthly Unlimited")},
			4: {ID: 4, Name: "Odd", Email: "odd@gym.test", Status: member.StatusActive, MembershipType: strPtr("Corporate")},
		},
		subs: &fakeSubs{active: map[int]*subscription.Subscription{}},
	}
	opts = append([]ServiceOption{WithClock(clk.Now)}, opts...)
	f.svc = NewService(f.repo, f.members, f.subs, fakeTx{}, testSecret, opts...)
	return f
}

func (f *fixture) mint(t *testing.T, userID int) string {
	t.Helper()
	res, err := f.svc.Mint(context.Background(), userID)
	require.NoError(t, err)
	return res.Token
}

func TestService_MintThenVerify(t *testing.T) {
	f := newFixture()

	minted, err := f.svc.Mint(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, minted.ExpiresAt.Equal(fixedNow.Add(5*time.Minute)))

	res, err := f.svc.Verify(context.Background(), minted.Token)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, subscription.TierUnlimited, res.Tier)
	assert.Equal(t, "Una", res.Name)
}

func TestService_MintRejectsInactive(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Mint(context.Background(), 3)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Mint(context.Background(), 99)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestService_VerifyExpiredAfterWindow(t *testing.T) {
	f := newFixture()
	token := f.mint(t, 2)

	f.clock.Advance(6 * time.Minute)

	_, err := f.svc.Verify(context.Background(), token)
	assert.Equal(t, apperr.KindExpired, apperr.KindOf(err))
}

func TestService_VerifyMalformed(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Verify(context.Background(), "Zm9vOmJhcg==")
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestService_VerifyInactiveReturnsIdentity(t *testing.T) {
	f := newFixture()
	token := f.mint(t, 2)
	f.members[2].Status = member.StatusSuspended

	res, err := f.svc.Verify(context.Background(), token)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	require.NotNil(t, res)
	assert.Equal(t, 2, res.UserID)
	assert.Equal(t, "una@gym.test", res.Email)
	assert.False(t, res.Valid)
}

func TestService_LimitedPlanMonthlyCap(t *testing.T) {
	f := newFixture()
	f.repo.seed(1, 11, fixedNow.AddDate(0, 0, -2))
	// Visits in the previous month do not count.
	f.repo.seed(1, 5, time.Date(2025, 10, 30, 9, 0, 0, 0, time.UTC))

	res, err := f.svc.Verify(context.Background(), f.mint(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 11, res.MonthlyCheckIns)
	require.NotNil(t, res.RemainingMonth)
	assert.Equal(t, 1, *res.RemainingMonth)

	_, err = f.svc.CreateCheckIn(context.Background(), CreateCheckInRequest{UserID: 1})
	require.NoError(t, err)

	res, err = f.svc.Verify(context.Background(), f.mint(t, 1))
	assert.Equal(t, apperr.KindLimitReached, apperr.KindOf(err))
	require.NotNil(t, res)
	assert.Equal(t, 12, res.MonthlyCheckIns)
	assert.Equal(t, "Lim", res.Name)
	require.NotNil(t, res.MonthlyLimit)
	assert.Equal(t, subscription.MonthlyLimitedCap, *res.MonthlyLimit)
}

func TestService_UnlimitedPlanNeverCapped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		res, err := f.svc.Verify(ctx, f.mint(t, 2))
		require.NoError(t, err, "visit %d", i+1)
		assert.True(t, res.Valid)

		_, err = f.svc.CreateCheckIn(ctx, CreateCheckInRequest{UserID: 2})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
	}

	n, _ := f.repo.CountForUser(ctx, 2, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 20, n)
}

func TestService_PlanTierOverridesMembershipType(t *testing.T) {
	f := newFixture()
	// Member 2's legacy type says unlimited, the active plan is limited.
	f.subs.active[2] = &subscription.Subscription{ID: 9, UserID: 2, Status: subscription.StatusActive, PlanTier: subscription.TierLimited, RemainingVisits: intPtr(4)}
	f.repo.seed(2, 12, fixedNow.Add(-time.Hour))

	res, err := f.svc.Verify(context.Background(), f.mint(t, 2))
	assert.Equal(t, apperr.KindLimitReached, apperr.KindOf(err))
	require.NotNil(t, res.RemainingVisits)
	assert.Equal(t, 4, *res.RemainingVisits)
}

func TestService_UnknownTierAllowedAndFlagged(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Verify(context.Background(), f.mint(t, 4))
	require.NoError(t, err)
	assert.True(t, res.UnknownTier)
	assert.Equal(t, subscription.TierUnknown, res.Tier)
}

func TestService_VerifyReplayRejected(t *testing.T) {
	f := newFixture(WithNonceStore(memNonces{}))
	token := f.mint(t, 2)

	_, err := f.svc.Verify(context.Background(), token)
	require.NoError(t, err)

	_, err = f.svc.Verify(context.Background(), token)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestService_CreateCheckInConsumesVisits(t *testing.T) {
	f := newFixture()
	f.subs.active[1] = &subscription.Subscription{ID: 5, UserID: 1, Status: subscription.StatusActive, PlanTier: subscription.TierLimited, RemainingVisits: intPtr(1)}

	res, err := f.svc.CreateCheckIn(context.Background(), CreateCheckInRequest{UserID: 1, LocationID: intPtr(2), Notes: strPtr("front desk")})
	require.NoError(t, err)
	assert.Equal(t, MethodQR, res.CheckIn.Method)
	require.NotNil(t, res.Subscription)
	assert.Equal(t, 0, *res.Subscription.RemainingVisits)
	assert.Equal(t, subscription.StatusExpired, res.Subscription.Status)
	require.Len(t, f.subs.applied, 1)
}

func TestService_CreateCheckInUnlimitedAndWithoutSubscription(t *testing.T) {
	f := newFixture()
	f.subs.active[2] = &subscription.Subscription{ID: 6, UserID: 2, Status: subscription.StatusActive, PlanTier: subscription.TierUnlimited}

	res, err := f.svc.CreateCheckIn(context.Background(), CreateCheckInRequest{UserID: 2, Method: MethodManual})
	require.NoError(t, err)
	assert.Nil(t, res.Subscription)
	assert.Equal(t, MethodManual, res.CheckIn.Method)

	res, err = f.svc.CreateCheckIn(context.Background(), CreateCheckInRequest{UserID: 4})
	require.NoError(t, err)
	assert.NotNil(t, res.CheckIn)
	assert.Empty(t, f.subs.applied)
}

func TestService_CreateCheckInStoreErrorAborts(t *testing.T) {
	f := newFixture()
	f.subs.active[1] = &subscription.Subscription{ID: 5, UserID: 1, Status: subscription.StatusActive, RemainingVisits: intPtr(3)}
	f.subs.applyErr = errors.New("connection reset")

	_, err := f.svc.CreateCheckIn(context.Background(), CreateCheckInRequest{UserID: 1})
	require.Error(t, err)
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	assert.Empty(t, f.repo.checkIns)
}

func TestService_CreateCheckInInactiveMember(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateCheckIn(context.Background(), CreateCheckInRequest{UserID: 3})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestService_Statistics(t *testing.T) {
	f := newFixture()
	f.repo.totals = Totals{Total: 9, UniqueUsers: 4}
	f.repo.hours = []HourCount{{Hour: 7, Count: 2}, {Hour: 18, Count: 5}, {Hour: 19, Count: 2}}

	stats, err := f.svc.Statistics(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 9, stats.TotalCheckIns)
	assert.Equal(t, 4, stats.UniqueUsers)
	require.NotNil(t, stats.PeakHour)
	assert.Equal(t, 18, *stats.PeakHour)
	assert.Equal(t, 5, stats.Hourly[18])
}

func TestService_StatisticsEmpty(t *testing.T) {
	f := newFixture()

	stats, err := f.svc.Statistics(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCheckIns)
	assert.Nil(t, stats.PeakHour)
}
