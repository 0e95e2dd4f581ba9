package sqlite

import (
	"context"
	"database/sql"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the outer DB stays open.
func (t *txStore) Close() error { return nil }

// Ping is a no-op for transactions; the connection already exists.
func (t *txStore) Ping(ctx context.Context) error { return nil }

// WithTx inside a transaction is not supported; could emulate with SAVEPOINT
// if a caller ever needs it.
func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{db: t.tx}
}

// ApplyMigrations is a no-op; migrations are applied before any transaction starts.
func (t *txStore) ApplyMigrations() error { return nil }
