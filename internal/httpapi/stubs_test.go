package httpapi

import (
	"context"
	"sync"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ids"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

// authStore keeps users in memory. Methods the handlers never reach fall
// through to the nil embedded Store.
type authStore struct {
	auth.Store

	mu      sync.Mutex
	users   map[string]auth.User
	roles   map[string]map[auth.RoleName]struct{}
	refresh map[string]auth.RefreshToken
}

func newAuthStore() *authStore {
	return &authStore{
		users:   map[string]auth.User{},
		roles:   map[string]map[auth.RoleName]struct{}{},
		refresh: map[string]auth.RefreshToken{},
	}
}

func (m *authStore) CreateUser(_ context.Context, u auth.NewUser) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	user := auth.User{
		ID:           ids.New(),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *authStore) FindUser(_ context.Context, id string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.User{}, apperr.NotFound("user")
	}
	return u, nil
}

func (m *authStore) FindUserByEmail(_ context.Context, email string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, apperr.NotFound("user")
}

func (m *authStore) TouchLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.LastLoginAt = &at
	m.users[id] = u
	return nil
}

func (m *authStore) AssignRole(_ context.Context, userID string, role auth.RoleName) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[userID] == nil {
		m.roles[userID] = map[auth.RoleName]struct{}{}
	}
	m.roles[userID][role] = struct{}{}
	return nil
}

func (m *authStore) Grants(_ context.Context, userID string) ([]auth.RoleName, []auth.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roles []auth.RoleName
	var perms []auth.Permission
	for r := range m.roles[userID] {
		roles = append(roles, r)
		for _, info := range auth.Roles {
			if info.Name == r {
				perms = append(perms, info.Grants...)
			}
		}
	}
	return roles, perms, nil
}

func (m *authStore) CreateRefreshToken(_ context.Context, tok auth.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tok.ID] = tok
	return nil
}

func (m *authStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
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

// welfareStore backs training programs and projects, enough for the
// participation and donation flows.
type welfareStore struct {
	welfare.Store

	mu           sync.Mutex
	nextID       int64
	programs     map[int64]lifecycle.Window
	participants map[int64]map[string]bool
	projects     map[int64]welfare.Project
	donations    map[int64]welfare.Donation
}

func newWelfareStore() *welfareStore {
	return &welfareStore{
		programs:     map[int64]lifecycle.Window{},
		participants: map[int64]map[string]bool{},
		projects:     map[int64]welfare.Project{},
		donations:    map[int64]welfare.Donation{},
	}
}

func (s *welfareStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *welfareStore) addProgram(w lifecycle.Window) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.programs[id] = w
	return id
}

func (s *welfareStore) addProject(p welfare.Project) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	s.projects[p.ID] = p
	return p.ID
}

func (s *welfareStore) LockActivity(_ context.Context, kind welfare.Activity, id int64) (lifecycle.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.programs[id]
	if kind != welfare.ActivityTrainingProgram || !ok {
		return lifecycle.Window{}, apperr.NotFound(kind.Entity())
	}
	w.Count = len(s.participants[id])
	return w, nil
}

func (s *welfareStore) HasParticipant(_ context.Context, _ welfare.Activity, id int64, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants[id][userID], nil
}

func (s *welfareStore) CreateTrainingEnrollment(_ context.Context, programID int64, userID string) (welfare.TrainingEnrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participants[programID] == nil {
		s.participants[programID] = map[string]bool{}
	}
	s.participants[programID][userID] = true
	return welfare.TrainingEnrollment{
		ID:             s.id(),
		ProgramID:      programID,
		ParticipantID:  userID,
		EnrollmentDate: time.Now().UTC(),
	}, nil
}

func (s *welfareStore) GetProject(_ context.Context, id int64) (welfare.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return welfare.Project{}, apperr.NotFound("project")
	}
	return p, nil
}

func (s *welfareStore) ListProjectExpenses(context.Context, int64) ([]welfare.ProjectExpense, error) {
	return nil, nil
}

func (s *welfareStore) FindDonationByKey(_ context.Context, donorID, key string) (welfare.Donation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.donations {
		if d.DonorID == donorID && d.IdempotencyKey == key {
			return d, true, nil
		}
	}
	return welfare.Donation{}, false, nil
}

func (s *welfareStore) CreateDonation(_ context.Context, d welfare.Donation) (welfare.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id()
	s.donations[d.ID] = d
	return d, nil
}

func (s *welfareStore) CreatePaymentTransaction(_ context.Context, t welfare.PaymentTransaction) (welfare.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	return t, nil
}

func (s *welfareStore) GetDonationForUpdate(_ context.Context, id int64) (welfare.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return welfare.Donation{}, apperr.NotFound("donation")
	}
	return d, nil
}

func (s *welfareStore) CompleteDonation(_ context.Context, id int64, at time.Time) (welfare.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.donations[id]
	d.PaymentStatus = lifecycle.StatusCompleted
	d.ProcessedAt = &at
	s.donations[id] = d
	return d, nil
}

func (s *welfareStore) IncrementRaised(_ context.Context, projectID int64, amount ledger.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return apperr.NotFound("project")
	}
	p.RaisedAmount += amount
	s.projects[projectID] = p
	return nil
}

func (s *welfareStore) SetTransactionStatus(context.Context, int64, lifecycle.Status, time.Time) error {
	return nil
}

func (s *welfareStore) AddDonorTotal(context.Context, string, ledger.Money) error {
	return nil
}
