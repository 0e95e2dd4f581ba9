// Package redis provides a refresh token store backed by Redis. Records are
// JSON-encoded under their token hash with a TTL at the record's expiry, so
// Redis itself prunes expired rows; a per-user set indexes hashes for bulk
// revocation.
package redis

import (
	"context"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client redis.UniversalClient
	prefix string
}

// NewStore wraps an existing Redis client. prefix namespaces this service's
// keys; it defaults to "identity".
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "identity"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ApplyMigrations is a no-op; Redis is schemaless.
func (s *Store) ApplyMigrations() error { return nil }

// WithTx runs fn against the store itself. Redis has no transaction covering
// a read-modify-write across keys in this shape; rotation safety comes from
// the revoke-before-create ordering, which fails closed if interrupted.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(noopTx{s})
}

func (s *Store) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{client: s.client, prefix: s.prefix}
}

// noopTx satisfies store.Tx for a driver without multi-operation
// transactions. Commit and Rollback do nothing; each command is already
// atomic on the server.
type noopTx struct {
	*Store
}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }
