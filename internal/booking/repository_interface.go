package booking

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSlotNotActive = errors.New("slot is not active")
	ErrAlreadyBooked = errors.New("user already has a confirmed booking for this slot and date")
	ErrSlotFull      = errors.New("slot is full for this date")
	ErrNotConfirmed  = errors.New("booking is not confirmed")
)

type RepositoryInterface interface {
	// Create books a seat while holding the slot row lock. It returns
	// sql.ErrNoRows for a missing slot, ErrSlotNotActive, ErrAlreadyBooked or
	// ErrSlotFull when the booking cannot be taken.
	Create(ctx context.Context, userID, slotID int, date time.Time) (*Booking, error)
	GetByID(ctx context.Context, id int) (*BookingWithDetails, error)
	// Transition moves a confirmed booking to status. ErrNotConfirmed means
	// the booking was no longer confirmed when the update ran.
	Transition(ctx context.Context, id int, status string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]BookingWithDetails, error)

	// Both stats methods bound booking_date inclusively.
	StatsByDay(ctx context.Context, from, to time.Time) ([]DayStats, error)
	StatsByClass(ctx context.Context, from, to time.Time) ([]ClassStats, error)
}
