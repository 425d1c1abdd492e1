package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/ids"
)

type memStore struct {
	mu      sync.Mutex
	users   map[string]User
	roles   map[string]map[RoleName]struct{}
	refresh map[string]RefreshToken
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]User{},
		roles:   map[string]map[RoleName]struct{}{},
		refresh: map[string]RefreshToken{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u NewUser) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return User{}, apperr.Conflict("Email already registered")
		}
	}
	now := time.Now().UTC()
	user := User{
		ID:           ids.New(),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) FindUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, apperr.NotFound("user")
	}
	return u, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, apperr.NotFound("user")
}

func (m *memStore) ListUsers(_ context.Context, f UserFilter) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		if f.Search != "" && !strings.Contains(strings.ToLower(u.Email+u.FirstName+u.LastName), strings.ToLower(f.Search)) {
			continue
		}
		if f.Role != "" {
			if _, ok := m.roles[u.ID][f.Role]; !ok {
				continue
			}
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memStore) UpdateUser(_ context.Context, id string, upd UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, apperr.NotFound("user")
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.City != nil {
		u.City = *upd.City
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.IsVerified != nil {
		u.IsVerified = *upd.IsVerified
	}
	m.users[id] = u
	return u, nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperr.NotFound("user")
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memStore) TouchLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.LastLoginAt = &at
	m.users[id] = u
	return nil
}

func (m *memStore) AssignRole(_ context.Context, userID string, role RoleName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[userID] == nil {
		m.roles[userID] = map[RoleName]struct{}{}
	}
	m.roles[userID][role] = struct{}{}
	return nil
}

func (m *memStore) Grants(_ context.Context, userID string) ([]RoleName, []Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roles []RoleName
	perms := map[Permission]struct{}{}
	for r := range m.roles[userID] {
		roles = append(roles, r)
		for _, info := range Roles {
			if info.Name == r {
				for _, p := range info.Grants {
					perms[p] = struct{}{}
				}
			}
		}
	}
	var out []Permission
	for p := range perms {
		out = append(out, p)
	}
	return roles, out, nil
}

func (m *memStore) CreateRefreshToken(_ context.Context, tok RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tok.ID] = tok
	return nil
}

func (m *memStore) FindRefreshToken(_ context.Context, id string) (RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.refresh[id]
	if !ok {
		return RefreshToken{}, apperr.NotFound("refresh token")
	}
	return tok, nil
}

func (m *memStore) RevokeRefreshToken(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok := m.refresh[id]
	tok.Revoked = true
	m.refresh[id] = tok
	return nil
}

func (m *memStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, tok := range m.refresh {
		if tok.UserID == userID {
			tok.Revoked = true
			m.refresh[id] = tok
		}
	}
	return nil
}
