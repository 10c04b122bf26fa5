package subscription

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const subscriptionColumns = `
	s.id, s.user_id, s.plan_id, s.start_date, s.end_date, s.remaining_visits,
	s.status, s.created_at, s.updated_at, p.name AS plan_name, p.tier AS plan_tier`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListPlans(ctx context.Context) ([]Plan, error) {
	plans := []Plan{}
	err := r.db.SelectContext(ctx, &plans, `
		SELECT id, name, tier, visit_quota, duration_days, price_cents, status, created_at
		FROM plans
		WHERE status = 'active'
		ORDER BY price_cents, id
	`)
	return plans, err
}

func (r *Repository) GetPlanByID(ctx context.Context, id int) (*Plan, error) {
	var p Plan
	err := r.db.GetContext(ctx, &p, `
		SELECT id, name, tier, visit_quota, duration_days, price_cents, status, created_at
		FROM plans
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int) (*Subscription, error) {
	var s Subscription
	err := r.db.GetContext(ctx, &s, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID int) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.user_id = $1
		ORDER BY s.start_date DESC, s.id DESC
	`, userID)
	return subs, err
}

const activeForUserQuery = `
	SELECT ` + subscriptionColumns + `
	FROM subscriptions s
	JOIN plans p ON p.id = s.plan_id
	WHERE s.user_id = $1
	  AND s.status = 'active'
	  AND s.start_date <= $2
	  AND s.end_date >= $2
	ORDER BY s.end_date DESC
	LIMIT 1`

func (r *Repository) GetActiveForUser(ctx context.Context, userID int, today time.Time) (*Subscription, error) {
	var s Subscription
	if err := r.db.GetContext(ctx, &s, activeForUserQuery, userID, today); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetActiveForUserTx locks the active subscription row until tx ends.
func (r *Repository) GetActiveForUserTx(ctx context.Context, tx *sqlx.Tx, userID int, today time.Time) (*Subscription, error) {
	var s Subscription
	if err := tx.GetContext(ctx, &s, activeForUserQuery+` FOR UPDATE OF s`, userID, today); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) ApplyVisitTx(ctx context.Context, tx *sqlx.Tx, change VisitChange) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET remaining_visits = $2,
		    status = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, change.SubscriptionID, change.RemainingVisits, change.Status)
	return err
}

func (r *Repository) Renew(ctx context.Context, id int, start, end time.Time, remaining *int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET start_date = $2,
		    end_date = $3,
		    remaining_visits = $4,
		    status = 'active',
		    updated_at = NOW()
		WHERE id = $1
	`, id, start, end, remaining)
	return err
}

// UpdateStatus moves the subscription to `to` only while its status is one of from.
func (r *Repository) UpdateStatus(ctx context.Context, id int, from []Status, to Status) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, to, pq.Array(allowed))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
