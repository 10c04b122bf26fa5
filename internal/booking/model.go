package booking

import "time"

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusAttended  = "attended"
	StatusNoShow    = "no_show"
)

// Booking fields use camelCase on the wire, matching the booking request bodies.
type Booking struct {
	ID             int        `db:"id" json:"id"`
	UserID         int        `db:"user_id" json:"userId"`
	ScheduleSlotID int        `db:"schedule_slot_id" json:"scheduleSlotId"`
	BookingDate    time.Time  `db:"booking_date" json:"bookingDate"`
	Status         string     `db:"status" json:"status"`
	BookedAt       time.Time  `db:"booked_at" json:"bookedAt"`
	CancelledAt    *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

type BookingWithDetails struct {
	Booking
	ClassName   string `db:"class_name" json:"className"`
	StartTime   string `db:"start_time" json:"startTime"`
	EndTime     string `db:"end_time" json:"endTime"`
	MemberName  string `db:"member_name" json:"memberName"`
	MemberEmail string `db:"member_email" json:"memberEmail"`
}

// Filter narrows booking listings. Upcoming keeps confirmed bookings dated
// on or after Today.
type Filter struct {
	UserID   *int
	SlotID   *int
	Date     *time.Time
	Status   string
	Upcoming bool
	Today    time.Time
}

type BookSlotRequest struct {
	UserID         int    `json:"userId" binding:"required,min=1"`
	ScheduleSlotID int    `json:"scheduleSlotId" binding:"required,min=1"`
	BookingDate    string `json:"bookingDate" binding:"required,date"`
}

// CancelBookingRequest names the requester. The body may be empty, in which
// case the authenticated caller is the requester.
type CancelBookingRequest struct {
	UserID *int `json:"userId" binding:"omitempty,min=1"`
}

type BookSlotResponse struct {
	Booking *Booking `json:"booking"`
	Message string   `json:"message" example:"Booking confirmed"`
}
