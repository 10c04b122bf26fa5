package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymdesk/internal/api"
	"gymdesk/internal/apperr"
	"gymdesk/internal/catalog"
	"gymdesk/internal/events"
	"gymdesk/internal/logger"
	"gymdesk/internal/metrics"
)

// Catalog is the part of the class catalog the registry depends on.
type Catalog interface {
	GetClass(ctx context.Context, id int) (*catalog.Class, error)
	GetInstructor(ctx context.Context, id int) (*catalog.Instructor, error)
}

type Service interface {
	Create(ctx context.Context, req CreateSlotRequest) (*Slot, error)
	Update(ctx context.Context, id int, req UpdateSlotRequest) (*Slot, error)
	Cancel(ctx context.Context, id int, reason *string) (*CancelResult, error)
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*Slot, error)
	List(ctx context.Context, filter Filter) ([]Slot, error)
	ListWeekly(ctx context.Context) (map[int][]SlotWithEnrollment, error)
	Availability(ctx context.Context, id int, date time.Time) (*Availability, error)
}

type service struct {
	repo    RepositoryInterface
	catalog Catalog
	events  events.Publisher
}

func NewService(repo RepositoryInterface, catalog Catalog, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &service{repo: repo, catalog: catalog, events: publisher}
}

func validTimes(start, end string) error {
	if !api.IsClock(start) || !api.IsClock(end) {
		return apperr.Invalid("times must be in HH:MM format")
	}
	if api.NormalizeClock(end) <= api.NormalizeClock(start) {
		return apperr.Invalid("end_time must be after start_time")
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateSlotRequest) (*Slot, error) {
	if err := validTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	slot := &Slot{
		ClassID:      req.ClassID,
		InstructorID: req.InstructorID,
		StartTime:    api.NormalizeClock(req.StartTime),
		EndTime:      api.NormalizeClock(req.EndTime),
		IsRecurring:  true,
	}
	if req.IsRecurring != nil {
		slot.IsRecurring = *req.IsRecurring
	}

	switch {
	case slot.IsRecurring:
		if req.SpecificDate != nil {
			return nil, apperr.Invalid("specific_date is only allowed for one-off slots")
		}
		if req.DayOfWeek == nil {
			return nil, apperr.Invalid("day_of_week is required for recurring slots")
		}
		slot.DayOfWeek = *req.DayOfWeek
	default:
		if req.SpecificDate == nil {
			return nil, apperr.Invalid("specific_date is required for one-off slots")
		}
		date, err := api.ParseDate(*req.SpecificDate)
		if err != nil {
			return nil, apperr.Invalid("specific_date must be YYYY-MM-DD")
		}
		slot.SpecificDate = &date
		slot.DayOfWeek = int(date.Weekday())
		if req.DayOfWeek != nil && *req.DayOfWeek != slot.DayOfWeek {
			return nil, apperr.Invalid("day_of_week does not match specific_date")
		}
	}
	if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
		return nil, apperr.Invalid("day_of_week must be between 0 and 6")
	}

	class, err := s.catalog.GetClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	slot.Capacity = class.MaxCapacity
	if req.Capacity != nil {
		slot.Capacity = *req.Capacity
	}
	if slot.Capacity < 1 {
		return nil, apperr.Invalid("capacity must be at least 1")
	}

	if slot.InstructorID != nil {
		if _, err := s.catalog.GetInstructor(ctx, *slot.InstructorID); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.Create(ctx, slot)
	if err != nil {
		if errors.Is(err, ErrInstructorBusy) {
			return nil, apperr.ScheduleConflict("instructor already teaches at this time on day %d", slot.DayOfWeek)
		}
		return nil, fmt.Errorf("create slot: %w", err)
	}

	logger.Infof("Slot created: ID=%d, Class=%d, Day=%d, %s-%s", created.ID, created.ClassID, created.DayOfWeek, created.StartTime, created.EndTime)
	return created, nil
}

func (s *service) Update(ctx context.Context, id int, req UpdateSlotRequest) (*Slot, error) {
	slot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.InstructorID != nil {
		if _, err := s.catalog.GetInstructor(ctx, *req.InstructorID); err != nil {
			return nil, err
		}
		slot.InstructorID = req.InstructorID
	}
	if req.DayOfWeek != nil {
		if slot.SpecificDate != nil && !slot.IsRecurring && *req.DayOfWeek != slot.DayOfWeek {
			return nil, apperr.Invalid("day_of_week of a one-off slot follows its date")
		}
		slot.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if req.Capacity != nil {
		slot.Capacity = *req.Capacity
	}

	if err := validTimes(slot.StartTime, slot.EndTime); err != nil {
		return nil, err
	}
	slot.StartTime = api.NormalizeClock(slot.StartTime)
	slot.EndTime = api.NormalizeClock(slot.EndTime)

	updated, err := s.repo.Update(ctx, slot)
	if err != nil {
		switch {
		case errors.Is(err, ErrInstructorBusy):
			return nil, apperr.ScheduleConflict("instructor already teaches at this time on day %d", slot.DayOfWeek)
		case errors.Is(err, ErrCapacityBelowBookings):
			return nil, apperr.Conflict("capacity %d is below confirmed bookings on an upcoming date", slot.Capacity)
		case errors.Is(err, ErrHasFutureBookings):
			return nil, apperr.Conflict("slot has upcoming confirmed bookings; cancel it instead of moving it")
		case errors.Is(err, sql.ErrNoRows):
			return nil, apperr.NotFound("slot not found")
		}
		return nil, fmt.Errorf("update slot %d: %w", id, err)
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, id int, reason *string) (*CancelResult, error) {
	slot, cancelled, err := s.repo.Cancel(ctx, id, reason)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, apperr.NotFound("slot not found")
		case errors.Is(err, ErrSlotNotActive):
			return nil, apperr.Invalid("slot is already cancelled")
		}
		return nil, fmt.Errorf("cancel slot %d: %w", id, err)
	}

	metrics.RecordSlotCancellation(len(cancelled))
	logger.Infof("Slot cancelled: ID=%d, bookings cancelled=%d", id, len(cancelled))

	s.events.Publish(ctx, events.SlotCancelled, map[string]interface{}{
		"slot_id":  id,
		"class":    slot.ClassName,
		"reason":   reason,
		"bookings": cancelled,
	})

	return &CancelResult{Slot: slot, CancelledBookings: len(cancelled), Bookings: cancelled}, nil
}

func (s *service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return apperr.NotFound("slot not found")
		case errors.Is(err, ErrHasConfirmedBookings):
			return apperr.Conflict("slot has confirmed bookings; cancel it instead")
		}
		return fmt.Errorf("delete slot %d: %w", id, err)
	}
	logger.Infof("Slot deleted: ID=%d", id)
	return nil
}

func (s *service) Get(ctx context.Context, id int) (*Slot, error) {
	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("slot not found")
		}
		return nil, fmt.Errorf("get slot %d: %w", id, err)
	}
	return slot, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]Slot, error) {
	return s.repo.List(ctx, filter)
}

// ListWeekly groups active recurring slots by day of week. Every day has an
// entry, empty when nothing runs that day.
func (s *service) ListWeekly(ctx context.Context) (map[int][]SlotWithEnrollment, error) {
	slots, err := s.repo.ListWeekly(ctx)
	if err != nil {
		return nil, err
	}

	week := make(map[int][]SlotWithEnrollment, 7)
	for d := 0; d < 7; d++ {
		week[d] = []SlotWithEnrollment{}
	}
	for _, slot := range slots {
		week[slot.DayOfWeek] = append(week[slot.DayOfWeek], slot)
	}
	return week, nil
}

func (s *service) Availability(ctx context.Context, id int, date time.Time) (*Availability, error) {
	slot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slot.Occurs(date) {
		return nil, apperr.Invalid("slot does not run on %s", date.Format(api.DateLayout))
	}

	booked, err := s.repo.CountConfirmed(ctx, id, date)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	available := slot.Capacity - booked
	if available < 0 {
		available = 0
	}
	return &Availability{
		SlotID:    id,
		Date:      date.Format(api.DateLayout),
		Capacity:  slot.Capacity,
		Booked:    booked,
		Available: available,
		IsFull:    available == 0 || !slot.IsActive(),
	}, nil
}
