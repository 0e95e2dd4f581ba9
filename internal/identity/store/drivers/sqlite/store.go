package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed refresh token store. SQL lives next to the repo
// methods; the schema comes from the embedded migrations.
type Store struct {
	db *sql.DB
}

// dbtx abstracts *sql.DB and *sql.Tx so repos run unchanged inside and
// outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes fn within a transaction, automatically handling
// commit/rollback. Rotation uses this so revoke-old and create-new land
// together.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	wrapped := newTx(tx)

	// Rollback is safe to call after commit; this covers early returns and panics.
	defer func() {
		_ = wrapped.Rollback()
	}()

	if err := fn(wrapped); err != nil {
		return err
	}

	return wrapped.Commit()
}

func (s *Store) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{db: s.db}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
