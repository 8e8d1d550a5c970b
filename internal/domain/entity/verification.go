package entity

import "time"

// Verification purposes. The identifier column is "<purpose>:<userID>" so a
// fresh token replaces any outstanding one for the same user and purpose.
const (
	PurposeEmailVerify   = "email-verify"
	PurposePasswordReset = "password-reset"
)

// Verification is a one-time token proving control of an email address or
// authorizing a password reset. Consumed on use, treated as absent past expiry.
type Verification struct {
	ID         string
	Identifier string
	Value      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// VerificationIdentifier builds the identifier column value.
func VerificationIdentifier(purpose, userID string) string {
	return purpose + ":" + userID
}
