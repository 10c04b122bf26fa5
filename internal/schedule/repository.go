package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gymdesk/internal/db"

	"github.com/jmoiron/sqlx"
)

// instructorLockSpace namespaces the advisory locks taken per instructor.
const instructorLockSpace = 7101

const slotSelect = `
	SELECT s.id, s.class_id, s.instructor_id, s.day_of_week, s.start_time, s.end_time,
	       s.capacity, s.is_recurring, s.specific_date, s.status, s.cancel_reason,
	       s.created_at, s.updated_at, c.name AS class_name, i.name AS instructor_name
	FROM schedule_slots s
	JOIN classes c ON c.id = s.class_id
	LEFT JOIN instructors i ON i.id = s.instructor_id`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) checkOverlapTx(ctx context.Context, tx *sqlx.Tx, slot *Slot) error {
	if slot.InstructorID == nil {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, instructorLockSpace, *slot.InstructorID); err != nil {
		return fmt.Errorf("lock instructor %d: %w", *slot.InstructorID, err)
	}

	busy, err := db.Exists(ctx, tx, `
		SELECT EXISTS(
			SELECT 1 FROM schedule_slots
			WHERE instructor_id = $1
			  AND day_of_week = $2
			  AND status = 'active'
			  AND id <> $3
			  AND start_time < $5
			  AND end_time > $4
		)
	`, *slot.InstructorID, slot.DayOfWeek, slot.ID, slot.StartTime, slot.EndTime)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if busy {
		return ErrInstructorBusy
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, slot *Slot) (*Slot, error) {
	var id int
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.checkOverlapTx(ctx, tx, slot); err != nil {
			return err
		}
		return tx.GetContext(ctx, &id, `
			INSERT INTO schedule_slots (class_id, instructor_id, day_of_week, start_time, end_time, capacity, is_recurring, specific_date, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'active')
			RETURNING id
		`, slot.ClassID, slot.InstructorID, slot.DayOfWeek, slot.StartTime, slot.EndTime,
			slot.Capacity, slot.IsRecurring, slot.SpecificDate)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Update(ctx context.Context, slot *Slot) (*Slot, error) {
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var cur struct {
			Status    string `db:"status"`
			DayOfWeek int    `db:"day_of_week"`
			StartTime string `db:"start_time"`
			EndTime   string `db:"end_time"`
		}
		if err := tx.GetContext(ctx, &cur, `
			SELECT status, day_of_week, start_time, end_time
			FROM schedule_slots WHERE id = $1 FOR UPDATE
		`, slot.ID); err != nil {
			return err
		}

		var peak int
		if err := tx.GetContext(ctx, &peak, `
			SELECT COALESCE(MAX(cnt), 0) FROM (
				SELECT COUNT(*) AS cnt FROM bookings
				WHERE schedule_slot_id = $1 AND status = 'confirmed' AND booking_date >= CURRENT_DATE
				GROUP BY booking_date
			) per_day
		`, slot.ID); err != nil {
			return fmt.Errorf("count future bookings: %w", err)
		}
		if slot.Capacity < peak {
			return ErrCapacityBelowBookings
		}
		moved := slot.DayOfWeek != cur.DayOfWeek || slot.StartTime != cur.StartTime || slot.EndTime != cur.EndTime
		if moved && peak > 0 {
			return ErrHasFutureBookings
		}

		if cur.Status == StatusActive {
			if err := r.checkOverlapTx(ctx, tx, slot); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE schedule_slots
			SET instructor_id = $2,
			    day_of_week = $3,
			    start_time = $4,
			    end_time = $5,
			    capacity = $6,
			    updated_at = NOW()
			WHERE id = $1
		`, slot.ID, slot.InstructorID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.Capacity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, slot.ID)
}

func (r *Repository) GetByID(ctx context.Context, id int) (*Slot, error) {
	var s Slot
	if err := r.db.GetContext(ctx, &s, slotSelect+` WHERE s.id = $1`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Slot, error) {
	query := slotSelect
	var conds []string
	var args []interface{}

	add := func(col string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if filter.DayOfWeek != nil {
		add("s.day_of_week", *filter.DayOfWeek)
	}
	if filter.ClassID != nil {
		add("s.class_id", *filter.ClassID)
	}
	if filter.InstructorID != nil {
		add("s.instructor_id", *filter.InstructorID)
	}
	if filter.Status != "" {
		add("s.status", filter.Status)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.day_of_week ASC, s.start_time ASC"

	slots := []Slot{}
	err := r.db.SelectContext(ctx, &slots, query, args...)
	return slots, err
}

func (r *Repository) ListWeekly(ctx context.Context) ([]SlotWithEnrollment, error) {
	slots := []SlotWithEnrollment{}
	err := r.db.SelectContext(ctx, &slots, `
		SELECT s.id, s.class_id, s.instructor_id, s.day_of_week, s.start_time, s.end_time,
		       s.capacity, s.is_recurring, s.specific_date, s.status, s.cancel_reason,
		       s.created_at, s.updated_at, c.name AS class_name, i.name AS instructor_name,
		       COUNT(b.id) AS enrollment
		FROM schedule_slots s
		JOIN classes c ON c.id = s.class_id
		LEFT JOIN instructors i ON i.id = s.instructor_id
		LEFT JOIN bookings b ON b.schedule_slot_id = s.id AND b.status = 'confirmed'
		WHERE s.status = 'active' AND s.is_recurring
		GROUP BY s.id, c.name, i.name
		ORDER BY s.day_of_week ASC, s.start_time ASC
	`)
	return slots, err
}

func (r *Repository) CountConfirmed(ctx context.Context, slotID int, date time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM bookings
		WHERE schedule_slot_id = $1 AND booking_date = $2 AND status = 'confirmed'
	`, slotID, date)
	return n, err
}

func (r *Repository) Cancel(ctx context.Context, id int, reason *string) (*Slot, []CancelledBooking, error) {
	cancelled := []CancelledBooking{}
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var status string
		if err := tx.GetContext(ctx, &status, `SELECT status FROM schedule_slots WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}
		if status != StatusActive {
			return ErrSlotNotActive
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE schedule_slots
			SET status = 'cancelled', cancel_reason = $2, updated_at = NOW()
			WHERE id = $1
		`, id, reason); err != nil {
			return err
		}

		return tx.SelectContext(ctx, &cancelled, `
			UPDATE bookings
			SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
			WHERE schedule_slot_id = $1 AND status = 'confirmed'
			RETURNING id, user_id, booking_date
		`, id)
	})
	if err != nil {
		return nil, nil, err
	}

	slot, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return slot, cancelled, nil
}

func (r *Repository) Delete(ctx context.Context, id int) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked int
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM schedule_slots WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}

		var confirmed int
		if err := tx.GetContext(ctx, &confirmed, `
			SELECT COUNT(*) FROM bookings WHERE schedule_slot_id = $1 AND status = 'confirmed'
		`, id); err != nil {
			return err
		}
		if confirmed > 0 {
			return ErrHasConfirmedBookings
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM schedule_slots WHERE id = $1`, id)
		return err
	})
}
