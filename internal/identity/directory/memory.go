package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/jcoliz/NuxtIdentity-sub000/internal/identity/domain"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/cryptox"
	"github.com/jcoliz/NuxtIdentity-sub000/pkg/idx"
)

type memoryUser struct {
	user         domain.User
	passwordHash string
	roles        []string
	claims       []domain.ClaimEntry
}

// Memory is an in-process Directory backed by maps. Accounts registered at
// runtime live alongside any seeded at construction.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*memoryUser // keyed by user id
	byName     map[string]string      // lowercased name -> user id
	roleClaims map[string][]domain.ClaimEntry
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*memoryUser),
		byName:     make(map[string]string),
		roleClaims: make(map[string][]domain.ClaimEntry),
	}
}

// Seed creates a user with pre-assigned roles and claims, bypassing the
// uniqueness error path. Used for bootstrap accounts from config.
func (m *Memory) Seed(name, email, password string, roles []string, claims []domain.ClaimEntry) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u := domain.User{
		ID:    idx.New().String(),
		Name:  name,
		Email: email,
	}
	m.users[u.ID] = &memoryUser{
		user:         u,
		passwordHash: hash,
		roles:        append([]string(nil), roles...),
		claims:       append([]domain.ClaimEntry(nil), claims...),
	}
	m.byName[strings.ToLower(name)] = u.ID
	return u, nil
}

// SetRoleClaims registers the claims inherited by members of a role.
func (m *Memory) SetRoleClaims(role string, claims []domain.ClaimEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleClaims[role] = append([]domain.ClaimEntry(nil), claims...)
}

// AssignRole appends a role to a user's assignment list.
func (m *Memory) AssignRole(userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	for _, r := range u.roles {
		if r == role {
			return nil
		}
	}
	u.roles = append(u.roles, role)
	return nil
}

// AttachClaim adds a claim directly to a user.
func (m *Memory) AttachClaim(userID string, claim domain.ClaimEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.claims = append(u.claims, claim)
	return nil
}

func (m *Memory) Authenticate(ctx context.Context, name, password string) (domain.User, error) {
	m.mu.RLock()
	id, ok := m.byName[strings.ToLower(name)]
	var u *memoryUser
	if ok {
		u = m.users[id]
	}
	m.mu.RUnlock()

	if u == nil {
		// Burn a hash anyway so timing does not reveal whether the
		// account exists.
		_ = cryptox.VerifyPassword(password, unknownUserHash)
		return domain.User{}, ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, u.passwordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u.user, nil
}

func (m *Memory) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(name)
	if _, exists := m.byName[key]; exists {
		return domain.User{}, ErrUsernameTaken
	}

	u := domain.User{
		ID:    idx.New().String(),
		Name:  name,
		Email: email,
	}
	m.users[u.ID] = &memoryUser{user: u, passwordHash: hash}
	m.byName[key] = u.ID
	return u, nil
}

func (m *Memory) Lookup(ctx context.Context, userID string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return u.user, nil
}

func (m *Memory) Roles(ctx context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return append([]string(nil), u.roles...), nil
}

func (m *Memory) UserClaims(ctx context.Context, userID string) ([]domain.ClaimEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return append([]domain.ClaimEntry(nil), u.claims...), nil
}

func (m *Memory) RoleClaims(ctx context.Context, role string) ([]domain.ClaimEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ClaimEntry(nil), m.roleClaims[role]...), nil
}

// unknownUserHash is a throwaway argon2id hash verified against when the
// account does not exist, keeping the failure path's cost uniform.
var unknownUserHash = cryptox.MustHashPassword("placeholder-for-constant-time")
