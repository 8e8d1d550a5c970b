package repository

import (
	"context"

	"github.com/ymatsuda/member-api/internal/domain/entity"
)

// AccountRepository defines credential/OAuth account persistence.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByProvider(ctx context.Context, providerID, accountID string) (*entity.Account, error)
	// GetCredential returns the password-bearing account for a user, nil if
	// the user only has OAuth links.
	GetCredential(ctx context.Context, userID string) (*entity.Account, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateTokens(ctx context.Context, a *entity.Account) error
	DeleteByUserID(ctx context.Context, userID string) error
}
