package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/claims"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/directory"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/store"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/jwtx"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/slogx"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUsernameTaken   = directory.ErrUsernameTaken
)

// SessionService drives the session lifecycle: credential login, refresh
// rotation, and logout. Every failure a client can trigger surfaces as
// ErrUnauthenticated (or ErrUsernameTaken on signup); the distinguishing
// detail goes to the log, never to the caller.
type SessionService struct {
	Store      store.Store
	Directory  directory.Directory
	Aggregator *claims.Aggregator
	Signer     jwtx.Signer
	Refresh    *RefreshService
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
}

// SessionInfo is the authenticated view of a session's subject.
type SessionInfo struct {
	User   domain.User
	Roles  []string
	Claims []domain.ClaimEntry
}

// BeginSession authenticates a name/password pair and issues a fresh token
// pair for the user.
func (s *SessionService) BeginSession(ctx context.Context, name, password string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	user, err := s.Directory.Authenticate(ctx, name, password)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) {
			l.Info("login rejected", slog.String("name", name))
			return domain.User{}, domain.TokenPair{}, ErrUnauthenticated
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	access, err := s.signAccess(ctx, user, now)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	refreshOpaque, rt, err := s.Refresh.Mint(user.ID, now)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("session started", slog.String("user_id", user.ID))

	return user, domain.TokenPair{AccessToken: access, RefreshToken: refreshOpaque}, nil
}

// Signup registers a new account and immediately begins a session for it.
func (s *SessionService) Signup(ctx context.Context, name, email, password string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	user, err := s.Directory.Register(ctx, name, email, password)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	access, err := s.signAccess(ctx, user, now)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	refreshOpaque, rt, err := s.Refresh.Mint(user.ID, now)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("user registered", slog.String("user_id", user.ID))

	return user, domain.TokenPair{AccessToken: access, RefreshToken: refreshOpaque}, nil
}

// RefreshSession rotates a refresh secret. The presented secret must be
// live and owned by the authenticated user; the old secret is revoked before
// its replacement is written, so a crash between the two steps leaves the
// user logged out rather than holding two live secrets.
func (s *SessionService) RefreshSession(ctx context.Context, userID, refreshOpaque string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	old, err := s.Refresh.Validate(ctx, refreshOpaque, userID)
	if err != nil {
		if errors.Is(err, ErrInvalidRefresh) {
			l.Info("refresh rejected", slog.String("user_id", userID))
			return domain.User{}, domain.TokenPair{}, ErrUnauthenticated
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	user, err := s.Directory.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrUnauthenticated
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	access, err := s.signAccess(ctx, user, now)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	newOpaque, newRT, err := s.Refresh.Mint(user.ID, now)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, old.TokenHash); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRT)
	}); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("session refreshed", slog.String("user_id", user.ID))

	return user, domain.TokenPair{AccessToken: access, RefreshToken: newOpaque}, nil
}

// EndSession revokes the presented refresh secret. It never fails for
// client-supplied reasons; logout always succeeds.
func (s *SessionService) EndSession(ctx context.Context, refreshOpaque string) error {
	return s.Refresh.Revoke(ctx, refreshOpaque)
}

// EndAllSessions revokes every refresh secret belonging to the user.
func (s *SessionService) EndAllSessions(ctx context.Context, userID string) error {
	return s.Refresh.RevokeAll(ctx, userID)
}

// Introspect resolves the authenticated user id into the full session view.
func (s *SessionService) Introspect(ctx context.Context, userID string) (SessionInfo, error) {
	user, err := s.Directory.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return SessionInfo{}, ErrUnauthenticated
		}
		return SessionInfo{}, err
	}

	roles, err := s.Directory.Roles(ctx, userID)
	if err != nil {
		return SessionInfo{}, err
	}

	set, err := s.Aggregator.Aggregate(ctx, user)
	if err != nil {
		return SessionInfo{}, err
	}

	return SessionInfo{User: user, Roles: roles, Claims: set.Entries()}, nil
}

func (s *SessionService) signAccess(ctx context.Context, user domain.User, now time.Time) (string, error) {
	set, err := s.Aggregator.Aggregate(ctx, user)
	if err != nil {
		return "", err
	}

	jti, _ := set.Get(domain.ClaimTypeTokenID)

	entries := make([]jwtx.Entry, 0, set.Len())
	for _, e := range set.Entries() {
		entries = append(entries, jwtx.Entry{Type: e.Type, Value: e.Value})
	}

	tokenClaims := jwtx.NewAccessClaims(
		user.ID,
		jti,
		entries,
		s.AccessTTL,
		s.Issuer,
		s.Audience,
		now,
	)
	return s.Signer.Sign(tokenClaims)
}
