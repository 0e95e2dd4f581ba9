package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyBytes is the minimum accepted HMAC key length. 32 bytes gives the
// 256 bits of entropy HS256 assumes; anything shorter weakens the signature.
const MinKeyBytes = 32

// Signer is our interface for anything that can sign token claims.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256Signer signs tokens with a symmetric server-held key.
type HS256Signer struct {
	key []byte
}

// NewSignerHS256 creates an HS256 signer. It refuses keys shorter than
// MinKeyBytes rather than silently signing with weak material.
func NewSignerHS256(key []byte) (*HS256Signer, error) {
	if len(key) < MinKeyBytes {
		return nil, fmt.Errorf("jwtx: signing key must be at least %d bytes, got %d", MinKeyBytes, len(key))
	}

	// Copy so a caller mutating its buffer can't change the signing key.
	k := make([]byte, len(key))
	copy(k, key)

	return &HS256Signer{key: k}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes the claims and turns them into a compact signed token string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	if claims.ExpiresAt == nil {
		return "", errors.New("jwtx: claims missing expiry")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}
