package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a token and gives you back the claims if it's legit.
// The `now` parameter pins every time check to one instant so callers (and
// tests) control the clock.
type Verifier interface {
	Verify(token string, now time.Time) (Claims, error)
}

// The distinct failure reasons exist for server-side logging only. Callers
// facing a client must collapse all of them into a single undifferentiated
// "unauthenticated" result so the endpoint can't be used as a validity oracle.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// HS256Verifier validates tokens signed with the shared symmetric key.
type HS256Verifier struct {
	key      []byte
	issuer   string
	audience string
}

// NewVerifierHS256 creates a verifier bound to an issuer and audience, both
// matched exactly during Verify.
func NewVerifierHS256(key []byte, issuer, audience string) (*HS256Verifier, error) {
	if len(key) < MinKeyBytes {
		return nil, fmt.Errorf("jwtx: verification key must be at least %d bytes, got %d", MinKeyBytes, len(key))
	}

	k := make([]byte, len(key))
	copy(k, key)

	return &HS256Verifier{key: k, issuer: issuer, audience: audience}, nil
}

// Verify checks the signature (constant-time HMAC compare inside golang-jwt),
// then issuer, audience, exp and nbf against `now` with zero leeway.
func (v *HS256Verifier) Verify(tokenStr string, now time.Time) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrAlgMismatch
		}
		return v.key, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTime(now); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// mapParseError folds golang-jwt's error chain onto our sentinel errors so
// logs stay uniform regardless of which layer rejected the token.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	default:
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}
}
