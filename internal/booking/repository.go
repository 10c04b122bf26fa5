package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymdesk/internal/db"

	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, user_id, schedule_slot_id, booking_date, status, booked_at, cancelled_at, updated_at`

const detailsSelect = `
	SELECT b.id, b.user_id, b.schedule_slot_id, b.booking_date, b.status, b.booked_at,
	       b.cancelled_at, b.updated_at,
	       c.name AS class_name, s.start_time, s.end_time,
	       m.name AS member_name, m.email AS member_email
	FROM bookings b
	JOIN schedule_slots s ON s.id = b.schedule_slot_id
	JOIN classes c ON c.id = s.class_id
	JOIN members m ON m.id = b.user_id`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, userID, slotID int, date time.Time) (*Booking, error) {
	var booking Booking
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var slot struct {
			Status   string `db:"status"`
			Capacity int    `db:"capacity"`
		}
		// Concurrent bookings and slot cancellation queue on this lock.
		if err := tx.GetContext(ctx, &slot, `
			SELECT status, capacity FROM schedule_slots WHERE id = $1 FOR UPDATE
		`, slotID); err != nil {
			return err
		}
		if slot.Status != "active" {
			return ErrSlotNotActive
		}

		duplicate, err := db.Exists(ctx, tx, `
			SELECT EXISTS(
				SELECT 1 FROM bookings
				WHERE user_id = $1 AND schedule_slot_id = $2 AND booking_date = $3 AND status = 'confirmed'
			)
		`, userID, slotID, date)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if duplicate {
			return ErrAlreadyBooked
		}

		var confirmed int
		if err := tx.GetContext(ctx, &confirmed, `
			SELECT COUNT(*) FROM bookings
			WHERE schedule_slot_id = $1 AND booking_date = $2 AND status = 'confirmed'
		`, slotID, date); err != nil {
			return fmt.Errorf("count bookings: %w", err)
		}
		if confirmed >= slot.Capacity {
			return ErrSlotFull
		}

		return tx.GetContext(ctx, &booking, `
			INSERT INTO bookings (user_id, schedule_slot_id, booking_date, status, booked_at, updated_at)
			VALUES ($1, $2, $3, 'confirmed', NOW(), NOW())
			RETURNING `+bookingColumns, userID, slotID, date)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyBooked
		}
		return nil, err
	}
	return &booking, nil
}

func (r *Repository) GetByID(ctx context.Context, id int) (*BookingWithDetails, error) {
	var b BookingWithDetails
	if err := r.db.GetContext(ctx, &b, detailsSelect+` WHERE b.id = $1`, id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) Transition(ctx context.Context, id int, status string) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `
		UPDATE bookings
		SET status = $2,
		    cancelled_at = CASE WHEN $3 THEN NOW() ELSE cancelled_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING `+bookingColumns, id, status, status == StatusCancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotConfirmed
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]BookingWithDetails, error) {
	query := detailsSelect
	var conds []string
	var args []interface{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != nil {
		add("b.user_id = $%d", *filter.UserID)
	}
	if filter.SlotID != nil {
		add("b.schedule_slot_id = $%d", *filter.SlotID)
	}
	if filter.Date != nil {
		add("b.booking_date = $%d", *filter.Date)
	}
	if filter.Status != "" {
		add("b.status = $%d", filter.Status)
	}
	if filter.Upcoming {
		add("b.booking_date >= $%d", filter.Today)
		conds = append(conds, "b.status = 'confirmed'")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter.Upcoming {
		query += " ORDER BY b.booking_date ASC, s.start_time ASC"
	} else {
		query += " ORDER BY b.booking_date DESC, s.start_time DESC"
	}

	bookings := []BookingWithDetails{}
	err := r.db.SelectContext(ctx, &bookings, query, args...)
	return bookings, err
}
