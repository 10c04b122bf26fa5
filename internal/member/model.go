package member

import "time"

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

type Member struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Role           string    `db:"role" json:"role"`
	Status         string    `db:"status" json:"status"`
	MembershipType *string   `db:"membership_type" json:"membership_type,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

func (m *Member) MembershipLabel() string {
	if m.MembershipType == nil {
		return ""
	}
	return *m.MembershipType
}
