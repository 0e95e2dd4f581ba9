package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience - typical range is 7d to 30d.
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour
)

// Entry is a single (type, value) claim carried in the token payload.
type Entry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Claims are the access-token claims. The aggregated claim entries ride in
// the "claims" array; sub and jti are mirrored into the registered claims so
// standard JWT tooling can read them.
type Claims struct {
	jwt.RegisteredClaims

	// Entries is the full aggregated claim set, in precedence order.
	Entries []Entry `json:"claims,omitempty"`
}

// NewAccessClaims builds minimally-correct claims: iat=nbf=now, exp=now+ttl,
// all as whole Unix seconds.
func NewAccessClaims(
	subject, jti string,
	entries []Entry,
	ttl time.Duration,
	issuer, audience string,
	now time.Time,
) Claims {
	now = now.UTC().Truncate(time.Second)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Entries: entries,
	}
}

// ValidateIssuer checks for an exact issuer match. No substring or
// case-insensitive matching.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks that the expected audience is present, compared
// exactly.
func (c *Claims) ValidateAudience(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if !slices.Contains(c.Audience, expected) {
		return ErrAudience
	}

	return nil
}

// ValidateTime ensures the token isn't expired (exp) and isn't used before it
// is valid (nbf) at the supplied instant. Zero clock-skew tolerance.
func (c *Claims) ValidateTime(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
