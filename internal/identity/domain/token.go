package domain

import "time"

// TokenPair is what a successful login, signup, or refresh returns: a
// short-lived signed access token and the opaque refresh secret.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken models the stored refresh token record. Only the SHA-256
// fingerprint of the secret is persisted; the secret itself is returned to
// the client once and never stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // base64url SHA-256 of the opaque secret
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Live reports whether the record still backs a usable client-held secret.
// A record leaves the live state by revocation or by its expiry passing;
// neither transition reverses.
func (t RefreshToken) Live(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
