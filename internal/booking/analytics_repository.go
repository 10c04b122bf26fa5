package booking

import (
	"context"
	"time"
)

// Counts tallies bookings by status.
type Counts struct {
	Confirmed int `db:"confirmed" json:"confirmed"`
	Cancelled int `db:"cancelled" json:"cancelled"`
	Attended  int `db:"attended" json:"attended"`
	NoShow    int `db:"no_show" json:"no_show"`
}

func (c *Counts) add(o Counts) {
	c.Confirmed += o.Confirmed
	c.Cancelled += o.Cancelled
	c.Attended += o.Attended
	c.NoShow += o.NoShow
}

type DayStats struct {
	Day time.Time `db:"day" json:"day"`
	Counts
}

type ClassStats struct {
	ClassID   int    `db:"class_id" json:"class_id"`
	ClassName string `db:"class_name" json:"class_name"`
	Counts
}

// Report summarizes bookings whose class date falls in [From, To].
type Report struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Totals Counts    `json:"totals"`

	// AttendanceRate is attended over attended plus no-shows; nil until
	// anything has been marked.
	AttendanceRate *float64     `json:"attendance_rate"`
	Days           []DayStats   `json:"days"`
	Classes        []ClassStats `json:"classes"`
}

const countColumns = `
	COUNT(*) FILTER (WHERE b.status = 'confirmed') AS confirmed,
	COUNT(*) FILTER (WHERE b.status = 'cancelled') AS cancelled,
	COUNT(*) FILTER (WHERE b.status = 'attended')  AS attended,
	COUNT(*) FILTER (WHERE b.status = 'no_show')   AS no_show`

func (r *Repository) StatsByDay(ctx context.Context, from, to time.Time) ([]DayStats, error) {
	query := `
		SELECT b.booking_date AS day,` + countColumns + `
		FROM bookings b
		WHERE b.booking_date BETWEEN $1 AND $2
		GROUP BY b.booking_date
		ORDER BY day`

	stats := []DayStats{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *Repository) StatsByClass(ctx context.Context, from, to time.Time) ([]ClassStats, error) {
	query := `
		SELECT c.id AS class_id, c.name AS class_name,` + countColumns + `
		FROM bookings b
		JOIN schedule_slots s ON s.id = b.schedule_slot_id
		JOIN classes c ON c.id = s.class_id
		WHERE b.booking_date BETWEEN $1 AND $2
		GROUP BY c.id, c.name
		ORDER BY COUNT(*) DESC, c.name`

	stats := []ClassStats{}
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}
