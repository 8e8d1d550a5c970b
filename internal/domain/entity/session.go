package entity

import "time"

// Session is a server-issued login bound to a user, presented via cookie.
// Sessions live in Postgres so that withdrawal can revoke every one of them
// with a single delete.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
