// Package clock holds the time source shared by the services and the
// calendar-date helpers used for DATE columns.
package clock

import "time"

type Clock func() time.Time

func System() Clock {
	return time.Now
}

// Date truncates t to its calendar day in loc, expressed as midnight UTC the
// way Postgres DATE values are scanned.
func Date(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first instant of t's month in loc and the first instant of the next.
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, _ := t.In(loc).Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
