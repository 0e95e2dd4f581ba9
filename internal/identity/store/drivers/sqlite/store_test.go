package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func record(userID string, expiresAt time.Time) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: "hash-" + idx.New().String(),
		ExpiresAt: expiresAt,
	}
}

func TestRefreshTokens_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("user-1", time.Now().Add(time.Hour))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, rec.TokenHash)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, rec.UserID, got.UserID)
	require.False(t, got.Revoked)
	require.False(t, got.CreatedAt.IsZero())
	require.WithinDuration(t, rec.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestRefreshTokens_GetUnknownHash(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RefreshTokens().GetRefreshTokenByHash(context.Background(), "no-such-hash")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshTokens_DuplicateHashRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("user-1", time.Now().Add(time.Hour))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))

	dup := record("user-2", time.Now().Add(time.Hour))
	dup.TokenHash = rec.TokenHash
	require.Error(t, s.RefreshTokens().CreateRefreshToken(ctx, dup))
}

func TestRefreshTokens_Revoke(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("user-1", time.Now().Add(time.Hour))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))

	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, rec.TokenHash))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, rec.TokenHash)
	require.NoError(t, err)
	require.True(t, got.Revoked)

	t.Run("unknown hash reports not found", func(t *testing.T) {
		err := s.RefreshTokens().RevokeRefreshToken(ctx, "no-such-hash")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRefreshTokens_RevokeAllForUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a1 := record("user-a", time.Now().Add(time.Hour))
	a2 := record("user-a", time.Now().Add(time.Hour))
	b1 := record("user-b", time.Now().Add(time.Hour))
	for _, rec := range []domain.RefreshToken{a1, a2, b1} {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))
	}

	require.NoError(t, s.RefreshTokens().RevokeAllUserRefreshTokens(ctx, "user-a"))

	for _, hash := range []string{a1.TokenHash, a2.TokenHash} {
		got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		require.NoError(t, err)
		require.True(t, got.Revoked)
	}

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, b1.TokenHash)
	require.NoError(t, err)
	require.False(t, got.Revoked, "other users' records stay live")
}

func TestRefreshTokens_DeleteExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expired := record("user-1", time.Now().Add(-time.Minute))
	live := record("user-1", time.Now().Add(time.Hour))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, expired))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, live))

	require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx))

	_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, expired.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, live.TokenHash)
	require.NoError(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("user-1", time.Now().Add(time.Hour))
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, rec.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound, "rolled back insert should not be visible")
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := record("user-1", time.Now().Add(time.Hour))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, old))

	replacement := record("user-1", time.Now().Add(time.Hour))
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, old.TokenHash); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, replacement)
	})
	require.NoError(t, err)

	revoked, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, old.TokenHash)
	require.NoError(t, err)
	require.True(t, revoked.Revoked)

	created, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, replacement.TokenHash)
	require.NoError(t, err)
	require.False(t, created.Revoked)
}
