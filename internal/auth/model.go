package auth

import "time"

// Account providers.
const (
	ProviderCredential = "credential"
	ProviderGoogle     = "google"
)

// Session is a server-side login. Only the SHA-256 hash of the token is stored.
type Session struct {
	ID        string
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Account links a user to a sign-in method.
type Account struct {
	ID           string
	AccountID    string
	ProviderID   string
	UserID       string
	PasswordHash string
	CreatedAt    time.Time
}

// ClientInfo describes the device a session is created for.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// Profile is an identity asserted by an external provider.
type Profile struct {
	Provider  string
	AccountID string
	Email     string
	Name      string
	Image     string
	// Verified is the provider's claim that the user controls Email.
	Verified bool
}
