package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymdesk/internal/apperr"
)

type Service interface {
	GetByID(ctx context.Context, id int) (*Member, error)
	// GetActive returns the member when it exists and its account is active.
	// An inactive member is returned together with a Forbidden error.
	GetActive(ctx context.Context, id int) (*Member, error)
}

type service struct {
	repo RepositoryInterface
}

func NewService(repo RepositoryInterface) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id int) (*Member, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("find member %d: %w", id, err)
	}
	return m, nil
}

func (s *service) GetActive(ctx context.Context, id int) (*Member, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return m, apperr.Forbidden("account is %s", m.Status)
	}
	return m, nil
}
