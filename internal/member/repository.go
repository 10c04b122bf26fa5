package member

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id int) (*Member, error) {
	query := `
		SELECT id, name, email, role, status, membership_type, created_at
		FROM members
		WHERE id = $1
	`

	var m Member
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, err
	}

	return &m, nil
}
