package repository

import (
	"context"

	"github.com/ymatsuda/member-api/internal/domain/entity"
)

// PostRepository defines persistence for the sample business entity.
type PostRepository interface {
	Create(ctx context.Context, p *entity.Post) error
	GetByID(ctx context.Context, id int64) (*entity.Post, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Post, error)
	Update(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id int64) error
}
