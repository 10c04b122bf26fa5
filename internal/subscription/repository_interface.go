package subscription

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type RepositoryInterface interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlanByID(ctx context.Context, id int) (*Plan, error)
	GetByID(ctx context.Context, id int) (*Subscription, error)
	ListForUser(ctx context.Context, userID int) ([]Subscription, error)
	GetActiveForUser(ctx context.Context, userID int, today time.Time) (*Subscription, error)
	GetActiveForUserTx(ctx context.Context, tx *sqlx.Tx, userID int, today time.Time) (*Subscription, error)
	ApplyVisitTx(ctx context.Context, tx *sqlx.Tx, change VisitChange) error
	Renew(ctx context.Context, id int, start, end time.Time, remaining *int) error
	UpdateStatus(ctx context.Context, id int, from []Status, to Status) (bool, error)
}
