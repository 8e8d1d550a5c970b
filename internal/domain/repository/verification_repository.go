package repository

import (
	"context"

	"github.com/ymatsuda/member-api/internal/domain/entity"
)

// VerificationRepository defines one-time token persistence.
type VerificationRepository interface {
	// Upsert replaces any outstanding token for the same identifier.
	Upsert(ctx context.Context, v *entity.Verification) error
	GetByValue(ctx context.Context, value string) (*entity.Verification, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
