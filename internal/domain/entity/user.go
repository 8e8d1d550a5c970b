package entity

import (
	"fmt"
	"time"
)

// WithdrawnName is the placeholder written over a user's name when the
// account is withdrawn.
const WithdrawnName = "withdrawn user"

// User is the aggregate root for the identity domain. A user is never
// hard-deleted; withdrawal anonymizes the row and stamps DeletedAt.
type User struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	Image         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Withdrawn reports whether the account has been soft-deleted.
func (u *User) Withdrawn() bool {
	return u.DeletedAt != nil
}

// AnonymizedEmail returns the synthetic address written over a withdrawn
// user's email. The original address becomes free for re-registration.
func AnonymizedEmail(userID string) string {
	return fmt.Sprintf("deleted_%s@deleted.local", userID)
}
