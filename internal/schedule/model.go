package schedule

import "time"

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

type Slot struct {
	ID           int        `db:"id" json:"id"`
	ClassID      int        `db:"class_id" json:"class_id"`
	InstructorID *int       `db:"instructor_id" json:"instructor_id"`
	DayOfWeek    int        `db:"day_of_week" json:"day_of_week"`
	StartTime    string     `db:"start_time" json:"start_time"`
	EndTime      string     `db:"end_time" json:"end_time"`
	Capacity     int        `db:"capacity" json:"capacity"`
	IsRecurring  bool       `db:"is_recurring" json:"is_recurring"`
	SpecificDate *time.Time `db:"specific_date" json:"specific_date,omitempty"`
	Status       string     `db:"status" json:"status"`
	CancelReason *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	ClassName      string  `db:"class_name" json:"class_name"`
	InstructorName *string `db:"instructor_name" json:"instructor_name,omitempty"`
}

func (s *Slot) IsActive() bool {
	return s.Status == StatusActive
}

// Occurs reports whether the slot takes place on date.
func (s *Slot) Occurs(date time.Time) bool {
	if !s.IsRecurring && s.SpecificDate != nil {
		y1, m1, d1 := s.SpecificDate.Date()
		y2, m2, d2 := date.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}
	return int(date.Weekday()) == s.DayOfWeek
}

type SlotWithEnrollment struct {
	Slot
	Enrollment int `db:"enrollment" json:"enrollment"`
}

type Availability struct {
	SlotID    int    `json:"slot_id"`
	Date      string `json:"date"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Available int    `json:"available"`
	IsFull    bool   `json:"is_full"`
}

// CancelledBooking identifies a booking cancelled by a slot cancellation.
type CancelledBooking struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	BookingDate time.Time `db:"booking_date" json:"booking_date"`
}

type CancelResult struct {
	Slot              *Slot              `json:"slot"`
	CancelledBookings int                `json:"cancelled_bookings"`
	Bookings          []CancelledBooking `json:"-"`
}

type Filter struct {
	DayOfWeek    *int
	ClassID      *int
	InstructorID *int
	Status       string
}

type CreateSlotRequest struct {
	ClassID      int     `json:"class_id" binding:"required,min=1"`
	InstructorID *int    `json:"instructor_id" binding:"omitempty,min=1"`
	DayOfWeek    *int    `json:"day_of_week" binding:"omitempty,gte=0,lte=6"`
	StartTime    string  `json:"start_time" binding:"required,clock"`
	EndTime      string  `json:"end_time" binding:"required,clock"`
	Capacity     *int    `json:"capacity" binding:"omitempty,min=1,max=500"`
	IsRecurring  *bool   `json:"is_recurring"`
	SpecificDate *string `json:"specific_date" binding:"omitempty,date"`
}

type UpdateSlotRequest struct {
	InstructorID *int    `json:"instructor_id" binding:"omitempty,min=1"`
	DayOfWeek    *int    `json:"day_of_week" binding:"omitempty,gte=0,lte=6"`
	StartTime    *string `json:"start_time" binding:"omitempty,clock"`
	EndTime      *string `json:"end_time" binding:"omitempty,clock"`
	Capacity     *int    `json:"capacity" binding:"omitempty,min=1,max=500"`
}

type CancelSlotRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}
