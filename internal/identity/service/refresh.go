package service

import (
	"context"
	"errors"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/cryptox"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/idx"
)

var ErrInvalidRefresh = errors.New("invalid_refresh_token")

// RefreshService manages opaque refresh secrets. Only the SHA-256
// fingerprint of a secret is ever persisted; the cleartext exists solely in
// the response that hands it to the client.
type RefreshService struct {
	Store store.Store
	TTL   time.Duration
}

// Mint generates a fresh opaque secret and the record describing it, without
// persisting anything. Callers persist the record themselves, typically
// inside a transaction alongside the revocation of a predecessor.
func (s *RefreshService) Mint(userID string, now time.Time) (string, domain.RefreshToken, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}
	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(opaque),
		ExpiresAt: now.Add(s.TTL),
	}
	return opaque, rt, nil
}

// Generate mints and persists a refresh secret for the user, returning the
// cleartext secret.
func (s *RefreshService) Generate(ctx context.Context, userID string) (string, error) {
	opaque, rt, err := s.Mint(userID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return "", err
	}
	return opaque, nil
}

// Validate resolves an opaque secret to its live record, checking ownership.
// Unknown, expired, revoked, and misattributed secrets all collapse to
// ErrInvalidRefresh.
func (s *RefreshService) Validate(ctx context.Context, secret, userID string) (domain.RefreshToken, error) {
	fp := cryptox.FingerprintToken(secret)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.RefreshToken{}, ErrInvalidRefresh
		}
		return domain.RefreshToken{}, err
	}
	if !rt.Live(time.Now().UTC()) || rt.UserID != userID {
		return domain.RefreshToken{}, ErrInvalidRefresh
	}
	return rt, nil
}

// Revoke invalidates a single secret. Revoking a secret that does not exist
// is not an error; logout must succeed no matter what the client presents.
func (s *RefreshService) Revoke(ctx context.Context, secret string) error {
	fp := cryptox.FingerprintToken(secret)
	err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// RevokeAll invalidates every secret belonging to a user.
func (s *RefreshService) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
}
