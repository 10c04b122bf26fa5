package checkin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// where renders w as a WHERE clause, numbering placeholders after args.
func (w Window) where(args []interface{}) (string, []interface{}) {
	var conds []string
	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if w.UserID != nil {
		add("ci.user_id = $%d", *w.UserID)
	}
	if w.From != nil {
		add("ci.checked_in_at >= $%d", *w.From)
	}
	if w.To != nil {
		add("ci.checked_in_at < $%d", *w.To)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, c *CheckIn) (*CheckIn, error) {
	var created CheckIn
	err := tx.GetContext(ctx, &created, `
		INSERT INTO check_ins (user_id, checked_in_at, method, location_id, notes)
		VALUES ($1, NOW(), $2, $3, $4)
		RETURNING id, user_id, checked_in_at, method, location_id, notes
	`, c.UserID, c.Method, c.LocationID, c.Notes)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *Repository) CountForUser(ctx context.Context, userID int, from, to time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM check_ins
		WHERE user_id = $1 AND checked_in_at >= $2 AND checked_in_at < $3
	`, userID, from, to)
	return n, err
}

func (r *Repository) List(ctx context.Context, w Window) ([]CheckIn, error) {
	where, args := w.where(nil)
	args = append(args, w.Limit)
	query := `
		SELECT ci.id, ci.user_id, ci.checked_in_at, ci.method, ci.location_id, ci.notes,
		       m.name AS member_name
		FROM check_ins ci
		JOIN members m ON m.id = ci.user_id` + where +
		fmt.Sprintf(" ORDER BY ci.checked_in_at DESC LIMIT $%d", len(args))

	checkIns := []CheckIn{}
	err := r.db.SelectContext(ctx, &checkIns, query, args...)
	return checkIns, err
}

func (r *Repository) Totals(ctx context.Context, w Window) (*Totals, error) {
	where, args := w.where(nil)

	var t Totals
	err := r.db.GetContext(ctx, &t, `
		SELECT COUNT(*) AS total, COUNT(DISTINCT ci.user_id) AS unique_users
		FROM check_ins ci`+where, args...)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) HourlyCounts(ctx context.Context, w Window, tz string) ([]HourCount, error) {
	where, args := w.where([]interface{}{tz})

	hours := []HourCount{}
	err := r.db.SelectContext(ctx, &hours, `
		SELECT EXTRACT(HOUR FROM ci.checked_in_at AT TIME ZONE $1)::int AS hour, COUNT(*) AS count
		FROM check_ins ci`+where+`
		GROUP BY hour
		ORDER BY hour`, args...)
	return hours, err
}
