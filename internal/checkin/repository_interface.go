package checkin

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type RepositoryInterface interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, c *CheckIn) (*CheckIn, error)
	// CountForUser counts the user's check-ins in [from, to).
	CountForUser(ctx context.Context, userID int, from, to time.Time) (int, error)
	List(ctx context.Context, w Window) ([]CheckIn, error)
	Totals(ctx context.Context, w Window) (*Totals, error)
	// HourlyCounts groups check-ins by hour of day in the named time zone.
	HourlyCounts(ctx context.Context, w Window, tz string) ([]HourCount, error)
}
