package schedule

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInstructorBusy       = errors.New("instructor has an overlapping slot")
	ErrSlotNotActive        = errors.New("slot is not active")
	ErrHasConfirmedBookings = errors.New("slot has confirmed bookings")

	ErrCapacityBelowBookings = errors.New("capacity below confirmed bookings")
	ErrHasFutureBookings     = errors.New("slot has future confirmed bookings")
)

type RepositoryInterface interface {
	// Create inserts slot after checking the instructor's other active slots
	// for overlap, serialized per instructor.
	Create(ctx context.Context, slot *Slot) (*Slot, error)
	// Update applies the changed fields of slot, re-checking overlap. It refuses
	// to drop capacity below any upcoming date's confirmed count, and to move
	// the day or times while upcoming confirmed bookings exist.
	Update(ctx context.Context, slot *Slot) (*Slot, error)
	GetByID(ctx context.Context, id int) (*Slot, error)
	List(ctx context.Context, filter Filter) ([]Slot, error)
	ListWeekly(ctx context.Context) ([]SlotWithEnrollment, error)
	CountConfirmed(ctx context.Context, slotID int, date time.Time) (int, error)
	// Cancel marks the slot cancelled and cancels its confirmed bookings in one transaction.
	Cancel(ctx context.Context, id int, reason *string) (*Slot, []CancelledBooking, error)
	// Delete removes the slot unless a confirmed booking references it.
	Delete(ctx context.Context, id int) error
}
