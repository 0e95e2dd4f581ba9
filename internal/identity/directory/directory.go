// Package directory resolves users, their credentials, and the attributes
// attached to them. The session layer treats it as the single source of
// identity data; token persistence lives elsewhere.
package directory

import (
	"context"
	"errors"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
)

var (
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUsernameTaken      = errors.New("username_taken")
)

type Directory interface {
	// Authenticate verifies a name/password pair and returns the matching
	// user. Unknown names and bad passwords both return
	// ErrInvalidCredentials so callers cannot probe for accounts.
	Authenticate(ctx context.Context, name, password string) (domain.User, error)

	// Register creates a new user with the given credentials.
	Register(ctx context.Context, name, email, password string) (domain.User, error)

	// Lookup fetches a user by id.
	Lookup(ctx context.Context, userID string) (domain.User, error)

	// Roles returns the role names held by a user, in assignment order.
	Roles(ctx context.Context, userID string) ([]string, error)

	// UserClaims returns the claims attached directly to a user.
	UserClaims(ctx context.Context, userID string) ([]domain.ClaimEntry, error)

	// RoleClaims returns the claims inherited through a role.
	RoleClaims(ctx context.Context, role string) ([]domain.ClaimEntry, error)
}
