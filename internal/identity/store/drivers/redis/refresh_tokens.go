package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	"github.com/redis/go-redis/v9"
)

type refreshTokensRepo struct {
	client redis.UniversalClient
	prefix string
}

// record is the wire form persisted in Redis. Same fields as the domain
// record minus the hash, which is the key.
type record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *refreshTokensRepo) tokenKey(hash string) string {
	return r.prefix + ":rt:" + hash
}

func (r *refreshTokensRepo) userKey(userID string) string {
	return r.prefix + ":user:" + userID + ":rt"
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	encoded, err := json.Marshal(record{
		ID:        t.ID,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt.UTC(),
		Revoked:   t.Revoked,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	})
	if err != nil {
		return err
	}

	// NX so a fingerprint collision surfaces instead of silently replacing a
	// different user's record.
	ok, err := r.client.SetNX(ctx, r.tokenKey(t.TokenHash), encoded, time.Until(t.ExpiresAt)).Result()
	if err != nil {
		return fmt.Errorf("redis: create refresh token: %w", err)
	}
	if !ok {
		return fmt.Errorf("redis: refresh token hash already exists")
	}

	if err := r.client.SAdd(ctx, r.userKey(t.UserID), t.TokenHash).Err(); err != nil {
		return fmt.Errorf("redis: index refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	raw, err := r.client.Get(ctx, r.tokenKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("redis: get refresh token: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.RefreshToken{}, fmt.Errorf("redis: decode refresh token: %w", err)
	}

	return domain.RefreshToken{
		ID:        rec.ID,
		UserID:    rec.UserID,
		TokenHash: hash,
		ExpiresAt: rec.ExpiresAt,
		Revoked:   rec.Revoked,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	t, err := r.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		return err
	}
	if t.Revoked {
		return nil
	}

	t.Revoked = true
	t.UpdatedAt = time.Now().UTC()

	encoded, err := json.Marshal(record{
		ID:        t.ID,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt,
		Revoked:   t.Revoked,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	})
	if err != nil {
		return err
	}

	// KEEPTTL: a revoked record stays visible (and revoked) until its natural
	// expiry, so replays resolve to an explicit revoked row.
	if err := r.client.Set(ctx, r.tokenKey(hash), encoded, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("redis: revoke refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	hashes, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis: list user refresh tokens: %w", err)
	}

	for _, hash := range hashes {
		if err := r.RevokeRefreshToken(ctx, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Expired out from under the index; drop the stale entry.
				_ = r.client.SRem(ctx, r.userKey(userID), hash).Err()
				continue
			}
			return err
		}
	}
	return nil
}

// DeleteExpiredRefreshTokens prunes stale entries from the per-user index
// sets. The records themselves expire via their key TTL without any help.
func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+":user:*:rt", 100).Iterator()
	for iter.Next(ctx) {
		userKey := iter.Val()

		hashes, err := r.client.SMembers(ctx, userKey).Result()
		if err != nil {
			return fmt.Errorf("redis: sweep index %s: %w", userKey, err)
		}
		for _, hash := range hashes {
			exists, err := r.client.Exists(ctx, r.tokenKey(hash)).Result()
			if err != nil {
				return fmt.Errorf("redis: sweep check: %w", err)
			}
			if exists == 0 {
				if err := r.client.SRem(ctx, userKey, hash).Err(); err != nil {
					return fmt.Errorf("redis: sweep remove: %w", err)
				}
			}
		}
	}
	return iter.Err()
}
