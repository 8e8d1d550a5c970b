package repository

import (
	"context"
	"errors"

	"github.com/ymatsuda/member-api/internal/domain/entity"
)

// ErrUserWithdrawn is returned by Create when the user row carries a
// deleted_at stamp.
var ErrUserWithdrawn = errors.New("user is withdrawn")

// SessionRepository defines session persistence.
type SessionRepository interface {
	// Create inserts the session. The insert re-checks that the user has not
	// been withdrawn, so a login racing a withdrawal cannot leave a live
	// session behind an anonymized account.
	Create(ctx context.Context, s *entity.Session) error
	GetByToken(ctx context.Context, token string) (*entity.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID string) error
}
