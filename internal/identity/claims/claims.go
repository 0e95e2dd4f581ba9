// Package claims assembles the claim set embedded in access tokens. Claims
// are gathered from an ordered list of sources and deduplicated with
// first-seen-wins semantics, so earlier sources take precedence over later
// ones for identical entries.
package claims

import (
	"context"
	"fmt"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/directory"
	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/idx"
)

// Source contributes claims for a user. A failing source aborts the whole
// aggregation; tokens are never issued from partial claim sets.
type Source interface {
	Name() string
	Claims(ctx context.Context, user domain.User) ([]domain.ClaimEntry, error)
}

type Aggregator struct {
	sources []Source
}

// NewAggregator builds the standard pipeline: registered identity claims,
// role memberships, claims attached directly to the user, then claims
// inherited through roles.
func NewAggregator(dir directory.Directory) *Aggregator {
	return &Aggregator{
		sources: []Source{
			standardSource{},
			roleSource{dir: dir},
			userClaimSource{dir: dir},
			roleClaimSource{dir: dir},
		},
	}
}

// NewAggregatorWithSources builds an aggregator over an explicit source
// list, in the order given.
func NewAggregatorWithSources(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// Aggregate runs every source in order and folds the results into a single
// deduplicated set. Each call mints a fresh token id.
func (a *Aggregator) Aggregate(ctx context.Context, user domain.User) (*domain.ClaimSet, error) {
	set := domain.NewClaimSet()
	for _, src := range a.sources {
		entries, err := src.Claims(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("claims: source %s: %w", src.Name(), err)
		}
		set.Add(entries...)
	}
	return set, nil
}

// standardSource emits the registered identity claims plus a unique token id.
type standardSource struct{}

func (standardSource) Name() string { return "standard" }

func (standardSource) Claims(ctx context.Context, user domain.User) ([]domain.ClaimEntry, error) {
	entries := []domain.ClaimEntry{
		{Type: domain.ClaimTypeSubject, Value: user.ID},
		{Type: domain.ClaimTypeName, Value: user.Name},
	}
	if user.Email != "" {
		entries = append(entries, domain.ClaimEntry{Type: domain.ClaimTypeEmail, Value: user.Email})
	}
	entries = append(entries, domain.ClaimEntry{Type: domain.ClaimTypeTokenID, Value: idx.New().String()})
	return entries, nil
}

// roleSource emits one role claim per membership.
type roleSource struct {
	dir directory.Directory
}

func (roleSource) Name() string { return "roles" }

func (s roleSource) Claims(ctx context.Context, user domain.User) ([]domain.ClaimEntry, error) {
	roles, err := s.dir.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.ClaimEntry, 0, len(roles))
	for _, role := range roles {
		entries = append(entries, domain.ClaimEntry{Type: domain.ClaimTypeRole, Value: role})
	}
	return entries, nil
}

// userClaimSource emits claims attached directly to the user record.
type userClaimSource struct {
	dir directory.Directory
}

func (userClaimSource) Name() string { return "user_claims" }

func (s userClaimSource) Claims(ctx context.Context, user domain.User) ([]domain.ClaimEntry, error) {
	return s.dir.UserClaims(ctx, user.ID)
}

// roleClaimSource emits claims inherited through each of the user's roles,
// in role assignment order.
type roleClaimSource struct {
	dir directory.Directory
}

func (roleClaimSource) Name() string { return "role_claims" }

func (s roleClaimSource) Claims(ctx context.Context, user domain.User) ([]domain.ClaimEntry, error) {
	roles, err := s.dir.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	var entries []domain.ClaimEntry
	for _, role := range roles {
		inherited, err := s.dir.RoleClaims(ctx, role)
		if err != nil {
			return nil, err
		}
		entries = append(entries, inherited...)
	}
	return entries, nil
}
