package member

import "context"

type RepositoryInterface interface {
	FindByID(ctx context.Context, id int) (*Member, error)
}
