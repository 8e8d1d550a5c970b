package entity

import "time"

// Provider identifiers for account rows.
const (
	ProviderCredential = "credential"
	ProviderGoogle     = "google"
)

// Account links a user to a credential or OAuth grant. A credential account
// carries the bcrypt password hash; an OAuth account carries provider tokens.
// Unique on (ProviderID, AccountID).
type Account struct {
	ID                    string
	UserID                string
	AccountID             string // provider-side subject; equals UserID for credential accounts
	ProviderID            string
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  *time.Time
	RefreshTokenExpiresAt *time.Time
	Scope                 string
	IDToken               string
	Password              string // bcrypt hash, credential provider only
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
