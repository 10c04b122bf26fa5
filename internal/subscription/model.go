package subscription

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Tier is the entitlement class of a plan.
type Tier string

const (
	TierLimited   Tier = "limited"
	TierUnlimited Tier = "unlimited"
	TierSingle    Tier = "single"
	TierUnknown   Tier = "unknown"
)

// MonthlyLimitedCap is the number of visits a limited plan allows per calendar month.
const MonthlyLimitedCap = 12

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
	StatusInactive  Status = "inactive"
)

var folder = cases.Fold()

// ParseTier classifies a free-text membership type such as "Monthly Unlimited".
// "unlimited" must be tested first since it contains "limited".
func ParseTier(membershipType string) Tier {
	s := folder.String(membershipType)
	switch {
	case strings.Contains(s, "unlimited"):
		return TierUnlimited
	case strings.Contains(s, "limited"):
		return TierLimited
	case strings.Contains(s, "single"):
		return TierSingle
	default:
		return TierUnknown
	}
}

// ResolveTier prefers the tier of the active subscription's plan and falls back
// to the member's legacy membership type.
func ResolveTier(active *Subscription, membershipType string) Tier {
	if active != nil && active.PlanTier != "" {
		return active.PlanTier
	}
	return ParseTier(membershipType)
}

type Plan struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Tier         Tier      `db:"tier" json:"tier"`
	VisitQuota   *int      `db:"visit_quota" json:"visit_quota"`
	DurationDays int       `db:"duration_days" json:"duration_days"`
	PriceCents   int64     `db:"price_cents" json:"price_cents"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Subscription struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"user_id"`
	PlanID          int       `db:"plan_id" json:"plan_id"`
	StartDate       time.Time `db:"start_date" json:"start_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	RemainingVisits *int      `db:"remaining_visits" json:"remaining_visits"`
	Status          Status    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	PlanName string `db:"plan_name" json:"plan_name"`
	PlanTier Tier   `db:"plan_tier" json:"plan_tier"`
}

// VisitChange is the result of consuming one visit.
type VisitChange struct {
	SubscriptionID  int    `json:"subscription_id"`
	RemainingVisits *int   `json:"remaining_visits"`
	Status          Status `json:"status"`
}

// ConsumeVisit computes the state after one visit. Unlimited subscriptions
// are unchanged; finite ones are decremented, floored at zero, and expire
// on reaching zero.
func (s *Subscription) ConsumeVisit() (VisitChange, bool) {
	change := VisitChange{SubscriptionID: s.ID, RemainingVisits: s.RemainingVisits, Status: s.Status}
	if s.RemainingVisits == nil {
		return change, false
	}

	remaining := *s.RemainingVisits - 1
	if remaining < 0 {
		remaining = 0
	}
	change.RemainingVisits = &remaining
	if remaining == 0 {
		change.Status = StatusExpired
	}
	return change, true
}
