package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymdesk/internal/api"
	"gymdesk/internal/apperr"
	"gymdesk/internal/clock"
	"gymdesk/internal/events"
	"gymdesk/internal/logger"
	"gymdesk/internal/member"
	"gymdesk/internal/metrics"
	"gymdesk/internal/schedule"
)

type Members interface {
	GetActive(ctx context.Context, id int) (*member.Member, error)
}

type Slots interface {
	Get(ctx context.Context, id int) (*schedule.Slot, error)
}

type Service interface {
	BookSlot(ctx context.Context, userID, slotID int, date time.Time) (*Booking, error)
	Cancel(ctx context.Context, bookingID, requesterID int, isAdmin bool) (*Booking, error)
	MarkAttended(ctx context.Context, bookingID int) (*Booking, error)
	MarkNoShow(ctx context.Context, bookingID int) (*Booking, error)
	Get(ctx context.Context, bookingID int) (*BookingWithDetails, error)
	ListForUser(ctx context.Context, userID int, status string, upcoming bool) ([]BookingWithDetails, error)
	ListAll(ctx context.Context, filter Filter) ([]BookingWithDetails, error)
	// Report defaults to the 30 days ending today.
	Report(ctx context.Context, from, to *time.Time) (*Report, error)
}

type ServiceOption func(*service)

func WithClock(c clock.Clock) ServiceOption {
	return func(s *service) { s.now = c }
}

func WithLocation(loc *time.Location) ServiceOption {
	return func(s *service) { s.loc = loc }
}

type service struct {
	repo    RepositoryInterface
	members Members
	slots   Slots
	events  events.Publisher
	now     clock.Clock
	loc     *time.Location
}

func NewService(repo RepositoryInterface, members Members, slots Slots, publisher events.Publisher, opts ...ServiceOption) Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &service{
		repo:    repo,
		members: members,
		slots:   slots,
		events:  publisher,
		now:     clock.System(),
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) today() time.Time {
	return clock.Date(s.now(), s.loc)
}

func (s *service) BookSlot(ctx context.Context, userID, slotID int, date time.Time) (*Booking, error) {
	if _, err := s.members.GetActive(ctx, userID); err != nil {
		return nil, err
	}

	slot, err := s.slots.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !slot.IsActive() {
		return nil, apperr.Invalid("slot is not active")
	}

	date = clock.Date(date, time.UTC)
	if date.Before(s.today()) {
		return nil, apperr.Invalid("cannot book a date in the past")
	}
	if !slot.Occurs(date) {
		return nil, apperr.Invalid("slot does not run on %s", date.Format(api.DateLayout))
	}

	booking, err := s.repo.Create(ctx, userID, slotID, date)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, apperr.NotFound("slot not found")
		case errors.Is(err, ErrSlotNotActive):
			metrics.RecordBooking("rejected")
			return nil, apperr.Invalid("slot is not active")
		case errors.Is(err, ErrAlreadyBooked):
			metrics.RecordBooking("duplicate")
			return nil, apperr.Conflict("you already have a booking for this class on %s", date.Format(api.DateLayout))
		case errors.Is(err, ErrSlotFull):
			metrics.RecordBooking("full")
			return nil, apperr.CapacityExceeded("class is full on %s", date.Format(api.DateLayout))
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.RecordBooking(StatusConfirmed)
	logger.Infof("Booking confirmed: ID=%d, User=%d, Slot=%d, Date=%s", booking.ID, userID, slotID, date.Format(api.DateLayout))

	s.events.Publish(ctx, events.BookingConfirmed, map[string]interface{}{
		"booking_id":   booking.ID,
		"user_id":      userID,
		"slot_id":      slotID,
		"class":        slot.ClassName,
		"booking_date": date.Format(api.DateLayout),
		"start_time":   slot.StartTime,
	})
	return booking, nil
}

func (s *service) Cancel(ctx context.Context, bookingID, requesterID int, isAdmin bool) (*Booking, error) {
	current, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != requesterID && !isAdmin {
		return nil, apperr.Forbidden("you can only cancel your own bookings")
	}
	if !current.IsConfirmed() {
		return nil, apperr.Invalid("booking is already %s", current.Status)
	}

	return s.transition(ctx, &current.Booking, StatusCancelled, events.BookingCancelled)
}

func (s *service) MarkAttended(ctx context.Context, bookingID int) (*Booking, error) {
	return s.markPast(ctx, bookingID, StatusAttended, events.BookingAttended)
}

func (s *service) MarkNoShow(ctx context.Context, bookingID int) (*Booking, error) {
	return s.markPast(ctx, bookingID, StatusNoShow, events.BookingNoShow)
}

// markPast records the outcome of a class that has already taken place.
func (s *service) markPast(ctx context.Context, bookingID int, status, eventType string) (*Booking, error) {
	current, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !current.IsConfirmed() {
		return nil, apperr.Invalid("booking is already %s", current.Status)
	}
	if current.BookingDate.After(s.today()) {
		return nil, apperr.Invalid("cannot mark a booking for %s before the class date", current.BookingDate.Format(api.DateLayout))
	}

	return s.transition(ctx, &current.Booking, status, eventType)
}

func (s *service) transition(ctx context.Context, current *Booking, status, eventType string) (*Booking, error) {
	updated, err := s.repo.Transition(ctx, current.ID, status)
	if err != nil {
		if errors.Is(err, ErrNotConfirmed) {
			return nil, apperr.Invalid("booking is no longer confirmed")
		}
		return nil, fmt.Errorf("update booking %d: %w", current.ID, err)
	}

	metrics.RecordBookingTransition(status)
	logger.Infof("Booking %s: ID=%d, User=%d", status, updated.ID, updated.UserID)

	s.events.Publish(ctx, eventType, map[string]interface{}{
		"booking_id":   updated.ID,
		"user_id":      updated.UserID,
		"slot_id":      updated.ScheduleSlotID,
		"booking_date": updated.BookingDate.Format(api.DateLayout),
	})
	return updated, nil
}

func (s *service) Get(ctx context.Context, bookingID int) (*BookingWithDetails, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("booking not found")
		}
		return nil, fmt.Errorf("get booking %d: %w", bookingID, err)
	}
	return b, nil
}

func (s *service) ListForUser(ctx context.Context, userID int, status string, upcoming bool) ([]BookingWithDetails, error) {
	return s.repo.List(ctx, Filter{
		UserID:   &userID,
		Status:   status,
		Upcoming: upcoming,
		Today:    s.today(),
	})
}

func (s *service) ListAll(ctx context.Context, filter Filter) ([]BookingWithDetails, error) {
	if filter.Upcoming {
		filter.Today = s.today()
	}
	return s.repo.List(ctx, filter)
}

const (
	defaultReportDays = 30
	maxReportDays     = 366
)

func (s *service) Report(ctx context.Context, from, to *time.Time) (*Report, error) {
	end := s.today()
	if to != nil {
		end = clock.Date(*to, time.UTC)
	}
	start := end.AddDate(0, 0, -(defaultReportDays - 1))
	if from != nil {
		start = clock.Date(*from, time.UTC)
	}
	if start.After(end) {
		return nil, apperr.Invalid("start must not be after end")
	}
	if end.Sub(start) >= maxReportDays*24*time.Hour {
		return nil, apperr.Invalid("report range is limited to %d days", maxReportDays)
	}

	days, err := s.repo.StatsByDay(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("booking stats by day: %w", err)
	}
	classes, err := s.repo.StatsByClass(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("booking stats by class: %w", err)
	}

	report := &Report{From: start, To: end, Days: days, Classes: classes}
	for _, d := range days {
		report.Totals.add(d.Counts)
	}
	if marked := report.Totals.Attended + report.Totals.NoShow; marked > 0 {
		rate := float64(report.Totals.Attended) / float64(marked)
		report.AttendanceRate = &rate
	}
	return report, nil
}
