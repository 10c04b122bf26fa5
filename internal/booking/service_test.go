package booking

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"gymdesk/internal/apperr"
	"gymdesk/internal/member"
	"gymdesk/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tuesday, so day_of_week 2 slots run today.
var fixedNow = time.Date(2025, 11, 4, 10, 0, 0, 0, time.UTC)

var today = time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)

// memStore keeps slots and bookings in memory and serializes Create the way
// the slot row lock does in Postgres.
type memStore struct {
	mu       sync.Mutex
	slots    map[int]*schedule.Slot
	bookings []*Booking
}

func newMemStore(slots ...*schedule.Slot) *memStore {
	s := &memStore{slots: map[int]*schedule.Slot{}}
	for _, slot := range slots {
		s.slots[slot.ID] = slot
	}
	return s
}

func (s *memStore) Get(_ context.Context, id int) (*schedule.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, apperr.NotFound("slot not found")
	}
	cp := *slot
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, userID, slotID int, date time.Time) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !slot.IsActive() {
		return nil, ErrSlotNotActive
	}

	confirmed := 0
	for _, b := range s.bookings {
		if b.ScheduleSlotID != slotID || !b.BookingDate.Equal(date) || !b.IsConfirmed() {
			continue
		}
		if b.UserID == userID {
			return nil, ErrAlreadyBooked
		}
		confirmed++
	}
	if confirmed >= slot.Capacity {
		return nil, ErrSlotFull
	}

	b := &Booking{
		ID:             len(s.bookings) + 1,
		UserID:         userID,
		ScheduleSlotID: slotID,
		BookingDate:    date,
		Status:         StatusConfirmed,
		BookedAt:       fixedNow,
	}
	s.bookings = append(s.bookings, b)
	cp := *b
	return &cp, nil
}

func (s *memStore) GetByID(_ context.Context, id int) (*BookingWithDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > len(s.bookings) {
		return nil, sql.ErrNoRows
	}
	return &BookingWithDetails{Booking: *s.bookings[id-1]}, nil
}

func (s *memStore) Transition(_ context.Context, id int, status string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > len(s.bookings) {
		return nil, ErrNotConfirmed
	}
	b := s.bookings[id-1]
	if !b.IsConfirmed() {
		return nil, ErrNotConfirmed
	}
	b.Status = status
	if status == StatusCancelled {
		at := fixedNow
		b.CancelledAt = &at
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) List(_ context.Context, filter Filter) ([]BookingWithDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []BookingWithDetails{}
	for _, b := range s.bookings {
		if filter.UserID != nil && b.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Upcoming && (b.BookingDate.Before(filter.Today) || !b.IsConfirmed()) {
			continue
		}
		out = append(out, BookingWithDetails{Booking: *b})
	}
	return out, nil
}

func (s *memStore) count(from, to time.Time, key func(*Booking) int) map[int]*Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int]*Counts{}
	for _, b := range s.bookings {
		if b.BookingDate.Before(from) || b.BookingDate.After(to) {
			continue
		}
		k := key(b)
		if out[k] == nil {
			out[k] = &Counts{}
		}
		switch b.Status {
		case StatusConfirmed:
			out[k].Confirmed++
		case StatusCancelled:
			out[k].Cancelled++
		case StatusAttended:
			out[k].Attended++
		case StatusNoShow:
			out[k].NoShow++
		}
	}
	return out
}

func (s *memStore) StatsByDay(_ context.Context, from, to time.Time) ([]DayStats, error) {
	out := []DayStats{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := d
		counts := s.count(day, day, func(*Booking) int { return 0 })
		if c, ok := counts[0]; ok {
			out = append(out, DayStats{Day: day, Counts: *c})
		}
	}
	return out, nil
}

func (s *memStore) StatsByClass(_ context.Context, from, to time.Time) ([]ClassStats, error) {
	counts := s.count(from, to, func(b *Booking) int { return s.slots[b.ScheduleSlotID].ClassID })
	out := []ClassStats{}
	for classID, c := range counts {
		out = append(out, ClassStats{ClassID: classID, Counts: *c})
	}
	return out, nil
}

func (s *memStore) confirmed(slotID int, date time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.ScheduleSlotID == slotID && b.BookingDate.Equal(date) && b.IsConfirmed() {
			n++
		}
	}
	return n
}

type fakeMembers map[int]*member.Member

func (f fakeMembers) GetActive(_ context.Context, id int) (*member.Member, error) {
	m, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	if !m.IsActive() {
		return m, apperr.Forbidden("account is %s", m.Status)
	}
	return m, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func activeMembers(ids ...int) fakeMembers {
	members := fakeMembers{}
	for _, id := range ids {
		members[id] = &member.Member{ID: id, Status: member.StatusActive}
	}
	return members
}

func yogaSlot(capacity int) *schedule.Slot {
	return &schedule.Slot{
		ID: 1, ClassID: 1, DayOfWeek: 2, StartTime: "09:00:00", EndTime: "10:00:00",
		Capacity: capacity, IsRecurring: true, Status: schedule.StatusActive, ClassName: "Yoga",
	}
}

func newTestService(store *memStore, members fakeMembers, pub *recordingPublisher) Service {
	return NewService(store, members, store, pub, WithClock(func() time.Time { return fixedNow }))
}

func TestService_BookCancelRebook(t *testing.T) {
	store := newMemStore(yogaSlot(1))
	pub := &recordingPublisher{}
	svc := newTestService(store, activeMembers(1, 2), pub)
	ctx := context.Background()

	a, err := svc.BookSlot(ctx, 1, 1, today)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, a.Status)

	_, err = svc.BookSlot(ctx, 2, 1, today)
	assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))

	_, err = svc.Cancel(ctx, a.ID, 1, false)
	require.NoError(t, err)

	b, err := svc.BookSlot(ctx, 2, 1, today)
	require.NoError(t, err)
	assert.Equal(t, 2, b.UserID)
	assert.Equal(t, 1, store.confirmed(1, today))
	assert.Equal(t, []string{"booking.confirmed", "booking.cancelled", "booking.confirmed"}, pub.events)
}

func TestService_BookSlotDuplicate(t *testing.T) {
	store := newMemStore(yogaSlot(5))
	svc := newTestService(store, activeMembers(1), &recordingPublisher{})
	ctx := context.Background()

	_, err := svc.BookSlot(ctx, 1, 1, today)
	require.NoError(t, err)

	_, err = svc.BookSlot(ctx, 1, 1, today)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 1, store.confirmed(1, today))
}

func TestService_BookSlotPreconditions(t *testing.T) {
	cancelled := yogaSlot(5)
	cancelled.ID = 2
	cancelled.Status = schedule.StatusCancelled

	members := activeMembers(1)
	members[3] = &member.Member{ID: 3, Status: member.StatusSuspended}

	tests := []struct {
		name   string
		userID int
		slotID int
		date   time.Time
		kind   apperr.Kind
	}{
		{"unknown user", 99, 1, today, apperr.KindNotFound},
		{"inactive user", 3, 1, today, apperr.KindForbidden},
		{"unknown slot", 1, 42, today, apperr.KindNotFound},
		{"cancelled slot", 1, 2, today, apperr.KindInvalid},
		{"past date", 1, 1, today.AddDate(0, 0, -7), apperr.KindInvalid},
		{"wrong weekday", 1, 1, today.AddDate(0, 0, 1), apperr.KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(yogaSlot(5), cancelled)
			svc := newTestService(store, members, &recordingPublisher{})

			_, err := svc.BookSlot(context.Background(), tt.userID, tt.slotID, tt.date)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Empty(t, store.bookings)
		})
	}
}

func TestService_OneOffSlotOnlyOnItsDate(t *testing.T) {
	date := today.AddDate(0, 0, 3)
	slot := yogaSlot(5)
	slot.IsRecurring = false
	slot.SpecificDate = &date
	slot.DayOfWeek = int(date.Weekday())

	svc := newTestService(newMemStore(slot), activeMembers(1), &recordingPublisher{})

	_, err := svc.BookSlot(context.Background(), 1, 1, date.AddDate(0, 0, 7))
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = svc.BookSlot(context.Background(), 1, 1, date)
	assert.NoError(t, err)
}

func TestService_ConcurrentBookingsRespectCapacity(t *testing.T) {
	const attempts = 50
	store := newMemStore(yogaSlot(3))

	ids := make([]int, attempts)
	for i := range ids {
		ids[i] = i + 1
	}
	svc := newTestService(store, activeMembers(ids...), &recordingPublisher{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	kinds := map[apperr.Kind]int{}
	for _, id := range ids {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			_, err := svc.BookSlot(context.Background(), userID, 1, today)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				kinds["ok"]++
				return
			}
			kinds[apperr.KindOf(err)]++
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, kinds["ok"])
	assert.Equal(t, attempts-3, kinds[apperr.KindCapacityExceeded])
	assert.Equal(t, 3, store.confirmed(1, today))
}

func TestService_CancelRules(t *testing.T) {
	store := newMemStore(yogaSlot(5))
	svc := newTestService(store, activeMembers(1, 2), &recordingPublisher{})
	ctx := context.Background()

	b, err := svc.BookSlot(ctx, 1, 1, today)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, b.ID, 2, false)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.Cancel(ctx, 99, 1, false)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	cancelled, err := svc.Cancel(ctx, b.ID, 2, true)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = svc.Cancel(ctx, b.ID, 1, false)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestService_MarkAttendedRules(t *testing.T) {
	future := today.AddDate(0, 0, 7)
	store := newMemStore(yogaSlot(5))
	svc := newTestService(store, activeMembers(1, 2), &recordingPublisher{})
	ctx := context.Background()

	now, err := svc.BookSlot(ctx, 1, 1, today)
	require.NoError(t, err)
	later, err := svc.BookSlot(ctx, 2, 1, future)
	require.NoError(t, err)

	_, err = svc.MarkAttended(ctx, later.ID)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	attended, err := svc.MarkAttended(ctx, now.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAttended, attended.Status)

	_, err = svc.MarkNoShow(ctx, now.ID)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestService_ListForUserUpcoming(t *testing.T) {
	store := newMemStore(yogaSlot(5))
	svc := newTestService(store, activeMembers(1), &recordingPublisher{})
	ctx := context.Background()

	first, err := svc.BookSlot(ctx, 1, 1, today)
	require.NoError(t, err)
	_, err = svc.BookSlot(ctx, 1, 1, today.AddDate(0, 0, 7))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, first.ID, 1, false)
	require.NoError(t, err)

	all, err := svc.ListForUser(ctx, 1, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	upcoming, err := svc.ListForUser(ctx, 1, "", true)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, today.AddDate(0, 0, 7), upcoming[0].BookingDate)
}

func TestService_Report(t *testing.T) {
	store := newMemStore(yogaSlot(5))
	svc := newTestService(store, activeMembers(1, 2, 3, 4), &recordingPublisher{})
	ctx := context.Background()

	ids := make([]int, 0, 3)
	for _, user := range []int{1, 2, 3} {
		b, err := svc.BookSlot(ctx, user, 1, today)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	_, err := svc.BookSlot(ctx, 4, 1, today.AddDate(0, 0, 7))
	require.NoError(t, err)

	_, err = svc.MarkAttended(ctx, ids[0])
	require.NoError(t, err)
	_, err = svc.MarkNoShow(ctx, ids[1])
	require.NoError(t, err)

	report, err := svc.Report(ctx, nil, nil)
	require.NoError(t, err)

	assert.True(t, report.To.Equal(today))
	assert.True(t, report.From.Equal(today.AddDate(0, 0, -29)))
	assert.Equal(t, Counts{Confirmed: 1, Attended: 1, NoShow: 1}, report.Totals)
	require.NotNil(t, report.AttendanceRate)
	assert.InDelta(t, 0.5, *report.AttendanceRate, 1e-9)
	require.Len(t, report.Days, 1)
	require.Len(t, report.Classes, 1)
	assert.Equal(t, 1, report.Classes[0].ClassID)
}

func TestService_ReportRange(t *testing.T) {
	svc := newTestService(newMemStore(yogaSlot(5)), activeMembers(1), &recordingPublisher{})
	ctx := context.Background()

	from := today.AddDate(0, 0, 1)
	_, err := svc.Report(ctx, &from, &today)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	longAgo := today.AddDate(-2, 0, 0)
	_, err = svc.Report(ctx, &longAgo, &today)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	report, err := svc.Report(ctx, &today, &today)
	require.NoError(t, err)
	assert.Nil(t, report.AttendanceRate)
	assert.Empty(t, report.Days)
}
