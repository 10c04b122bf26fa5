package checkin

import (
	"time"

	"gymdesk/internal/subscription"
)

const (
	MethodQR     = "qr"
	MethodManual = "manual"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// CheckIn is an attendance record. Rows are never updated once written.
type CheckIn struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	CheckedInAt time.Time `db:"checked_in_at" json:"checked_in_at"`
	Method      string    `db:"method" json:"method"`
	LocationID  *int      `db:"location_id" json:"location_id,omitempty"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`

	MemberName string `db:"member_name" json:"member_name,omitempty"`
}

// Filter selects check-ins. Start and End are calendar dates, both inclusive.
type Filter struct {
	UserID *int
	Start  *time.Time
	End    *time.Time
	Limit  int
}

// Window is a Filter resolved to instants: [From, To).
type Window struct {
	UserID *int
	From   *time.Time
	To     *time.Time
	Limit  int
}

type Totals struct {
	Total       int `db:"total"`
	UniqueUsers int `db:"unique_users"`
}

type HourCount struct {
	Hour  int `db:"hour"`
	Count int `db:"count"`
}

type Stats struct {
	TotalCheckIns int     `json:"total_check_ins"`
	UniqueUsers   int     `json:"unique_users"`
	PeakHour      *int    `json:"peak_hour"`
	Hourly        [24]int `json:"hourly"`
}

type MintResult struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyResult describes the member behind a scanned code and their visit
// entitlement. It is returned alongside Forbidden and LimitReached errors so
// the front desk can show why entry was refused.
type VerifyResult struct {
	Valid           bool              `json:"valid"`
	UserID          int               `json:"user_id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Status          string            `json:"status"`
	MembershipType  string            `json:"membership_type,omitempty"`
	Tier            subscription.Tier `json:"tier"`
	UnknownTier     bool              `json:"unknown_tier,omitempty"`
	MonthlyCheckIns int               `json:"monthly_check_ins"`
	MonthlyLimit    *int              `json:"monthly_limit,omitempty"`
	RemainingMonth  *int              `json:"remaining_this_month,omitempty"`
	RemainingVisits *int              `json:"remaining_visits,omitempty"`
	Message         string            `json:"message"`
}

type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

type CreateCheckInRequest struct {
	UserID     int     `json:"user_id" binding:"required,min=1"`
	LocationID *int    `json:"location_id" binding:"omitempty,min=1"`
	Notes      *string `json:"notes" binding:"omitempty,max=500"`
	Method     string  `json:"method" binding:"omitempty,oneof=qr manual"`
}

type CreateResult struct {
	CheckIn      *CheckIn                  `json:"check_in"`
	Subscription *subscription.VisitChange `json:"subscription,omitempty"`
}
