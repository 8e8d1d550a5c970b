package repository

import (
	"context"
	"errors"

	"github.com/ymatsuda/member-api/internal/domain/entity"
)

// ErrDuplicateEmail is returned by Create when another live user already
// holds the email. Covers the race between the pre-insert lookup and the
// insert itself.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository defines user persistence. Lookups return (nil, nil) when no
// row matches.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	SetEmailVerified(ctx context.Context, id string) error

	// Withdraw soft-deletes the user in a single transaction: anonymize the
	// user row, then delete every session and account row for that user. The
	// explicit deletes stay even though the schema declares cascades; the user
	// row is never hard-deleted, so the cascade never fires. Returns false
	// when the user was already withdrawn (the call is then a no-op).
	Withdraw(ctx context.Context, id string) (bool, error)
}
