package application

import (
	"context"

	"github.com/ymatsuda/member-api/internal/domain/entity"
)

// IdentityProvider is the narrow contract the HTTP layer and middleware
// depend on. AuthService is the in-tree implementation; any session library
// honoring these operations could be swapped in behind it.
type IdentityProvider interface {
	Register(ctx context.Context, in RegisterInput) (*entity.User, error)
	Login(ctx context.Context, in LoginInput) (*entity.Session, *entity.User, error)
	GetSession(ctx context.Context, token string) (*entity.Session, *entity.User, error)
	InvalidateSession(ctx context.Context, token string) error
	SendVerificationEmail(ctx context.Context, userID string) error
	ConfirmEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}
