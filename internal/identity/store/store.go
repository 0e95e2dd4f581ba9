package store

import (
	"context"
	"errors"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface for refresh token persistence.
// Concrete drivers (sqlite, redis) implement this. The engine only needs a
// key-value-like store keyed by token hash with a per-user index; anything
// satisfying that contract can back it.
type Store interface {
	RefreshTokens() RefreshTokens

	// ApplyMigrations prepares the driver's schema. Schemaless drivers no-op.
	ApplyMigrations() error

	// WithTx executes fn within a transaction when the driver supports one.
	// If fn returns an error the transaction is rolled back, otherwise it is
	// committed. Drivers without multi-operation transactions run fn against
	// themselves; callers must order operations to fail closed regardless.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record. The record holds
	// only the fingerprint of the secret.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record for a fingerprint, revoked and
	// expired records included; liveness is the caller's check.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked on the record with this fingerprint.
	// Returns ErrNotFound when no such record exists.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllUserRefreshTokens revokes every live record for a user
	// ("log out everywhere").
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is optional housekeeping; expired records
	// already fail validation without it.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
