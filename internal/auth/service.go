package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/ids"
	"ongon.org/internal/uow"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Service implements registration, login, token rotation and user
// administration.
type Service struct {
	store  Store
	signer *Signer
	tx     uow.Runner
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithTx runs multi-step operations in a unit of work.
func WithTx(r uow.Runner) ServiceOption {
	return func(s *Service) error {
		if r != nil {
			s.tx = r
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, signer *Signer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if signer == nil {
		return nil, errors.New("auth: signer is required")
	}
	svc := &Service{
		store:      store,
		signer:     signer,
		tx:         uow.Nop(),
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Registration is the sign-up payload.
type Registration struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone"`
}

// Register creates an active user holding the beneficiary role and logs it in.
func (s *Service) Register(ctx context.Context, reg Registration) (User, TokenPair, error) {
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	first, last := strings.TrimSpace(reg.FirstName), strings.TrimSpace(reg.LastName)
	if first == "" || last == "" {
		return User{}, TokenPair{}, apperr.Validation("first_name and last_name are required")
	}
	hash, err := HashPassword(reg.Password)
	if err != nil {
		return User{}, TokenPair{}, err
	}

	var (
		user User
		pair TokenPair
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store.FindUserByEmail(txCtx, email); err == nil {
			return apperr.Conflict("Email already registered")
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		created, err := s.store.CreateUser(txCtx, NewUser{
			Email:        email,
			PasswordHash: hash,
			FirstName:    first,
			LastName:     last,
			Phone:        strings.TrimSpace(reg.Phone),
		})
		if err != nil {
			return err
		}
		if err := s.store.AssignRole(txCtx, created.ID, RoleBeneficiary); err != nil {
			return err
		}
		principal, err := s.principal(txCtx, created.ID)
		if err != nil {
			return err
		}
		user = principal.User
		pair, err = s.mintTokens(txCtx, principal)
		return err
	})
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Login authenticates credentials and issues fresh tokens.
func (s *Service) Login(ctx context.Context, email, password string) (User, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return User{}, TokenPair{}, apperr.Validation("email and password are required")
	}
	invalid := apperr.Unauthorized("Invalid email or password")
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return User{}, TokenPair{}, invalid
		}
		return User{}, TokenPair{}, err
	}
	if !PasswordMatches(user.PasswordHash, password) {
		return User{}, TokenPair{}, invalid
	}
	if !user.IsActive {
		return User{}, TokenPair{}, apperr.Unauthorized("Account is deactivated")
	}

	var pair TokenPair
	var principal Principal
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.TouchLogin(txCtx, user.ID, s.now().UTC()); err != nil {
			return err
		}
		var err error
		principal, err = s.principal(txCtx, user.ID)
		if err != nil {
			return err
		}
		pair, err = s.mintTokens(txCtx, principal)
		return err
	})
	if err != nil {
		return User{}, TokenPair{}, err
	}
	return principal.User, pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A token whose secret does not match is revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	tokenID, secret, err := splitRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}
	var (
		pair     TokenPair
		mismatch bool
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		record, err := s.store.FindRefreshToken(txCtx, tokenID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Unauthorized("invalid refresh token")
			}
			return err
		}
		if record.Revoked || s.now().After(record.ExpiresAt) {
			return apperr.Unauthorized("invalid refresh token")
		}
		if !secureCompareHash(record.TokenHash, secret) {
			// Commit the revocation; the rejection is returned afterwards.
			mismatch = true
			return s.store.RevokeRefreshToken(txCtx, record.ID)
		}
		principal, err := s.principal(txCtx, record.UserID)
		if err != nil {
			return err
		}
		if !principal.User.IsActive {
			return apperr.Unauthorized("Account is deactivated")
		}
		if err := s.store.RevokeRefreshToken(txCtx, record.ID); err != nil {
			return err
		}
		pair, err = s.mintTokens(txCtx, principal)
		return err
	})
	if err != nil {
		return TokenPair{}, err
	}
	if mismatch {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}
	return pair, nil
}

// Logout revokes every refresh token of the user.
func (s *Service) Logout(ctx context.Context, p Principal) error {
	return s.store.RevokeUserRefreshTokens(ctx, p.ID())
}

// Authenticate validates an access token and resolves the principal.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	principal, err := s.principal(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !principal.User.IsActive {
		return Principal{}, ErrInvalidToken
	}
	return principal, nil
}

// Principal loads a user with its resolved grants.
func (s *Service) Principal(ctx context.Context, userID string) (Principal, error) {
	return s.principal(ctx, userID)
}

func (s *Service) principal(ctx context.Context, userID string) (Principal, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	roles, perms, err := s.store.Grants(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	user.Roles = roles
	return NewPrincipal(user, roles, perms), nil
}

// ChangePassword replaces the password after checking the current one and
// revokes outstanding refresh tokens.
func (s *Service) ChangePassword(ctx context.Context, p Principal, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("current_password and new_password are required")
	}
	user, err := s.store.FindUser(ctx, p.ID())
	if err != nil {
		return err
	}
	if !PasswordMatches(user.PasswordHash, current) {
		return apperr.Validation("Current password is incorrect")
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdatePassword(txCtx, user.ID, hash); err != nil {
			return err
		}
		return s.store.RevokeUserRefreshTokens(txCtx, user.ID)
	})
}

// ListUsers requires user management.
func (s *Service) ListUsers(ctx context.Context, p Principal, f UserFilter) ([]User, int, error) {
	if !p.HasPermission(PermUserManagement) {
		return nil, 0, apperr.Forbidden("Insufficient permissions")
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.store.ListUsers(ctx, f)
}

// GetUser allows self-access or user management.
func (s *Service) GetUser(ctx context.Context, p Principal, id string) (User, error) {
	if !p.CanManage(id, PermUserManagement) {
		return User{}, apperr.Forbidden("Insufficient permissions")
	}
	target, err := s.principal(ctx, id)
	if err != nil {
		return User{}, err
	}
	return target.User, nil
}

// UpdateUser applies upd. Account flags require user management.
func (s *Service) UpdateUser(ctx context.Context, p Principal, id string, upd UserUpdate) (User, error) {
	if !p.CanManage(id, PermUserManagement) {
		return User{}, apperr.Forbidden("Insufficient permissions")
	}
	if (upd.IsActive != nil || upd.IsVerified != nil) && !p.HasPermission(PermUserManagement) {
		return User{}, apperr.Forbidden("Only administrators can change account status")
	}
	if upd.FirstName != nil && strings.TrimSpace(*upd.FirstName) == "" {
		return User{}, apperr.Validation("first_name cannot be empty")
	}
	if upd.LastName != nil && strings.TrimSpace(*upd.LastName) == "" {
		return User{}, apperr.Validation("last_name cannot be empty")
	}
	if upd.Empty() {
		return s.GetUser(ctx, p, id)
	}
	var out User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		updated, err := s.store.UpdateUser(txCtx, id, upd)
		if err != nil {
			return err
		}
		roles, _, err := s.store.Grants(txCtx, id)
		if err != nil {
			return err
		}
		updated.Roles = roles
		out = updated
		return nil
	})
	return out, err
}

// DeleteUser hard-deletes a user. Administrators cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, p Principal, id string) error {
	if !p.HasPermission(PermUserManagement) {
		return apperr.Forbidden("Insufficient permissions")
	}
	if id == p.ID() {
		return apperr.Validation("Cannot delete your own account")
	}
	return s.store.DeleteUser(ctx, id)
}

// AssignRole grants role to a user. Re-assigning a held role is a no-op.
func (s *Service) AssignRole(ctx context.Context, p Principal, userID string, role RoleName) error {
	if !p.HasPermission(PermUserManagement) {
		return apperr.Forbidden("Insufficient permissions")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store.FindUser(txCtx, userID); err != nil {
			return err
		}
		return s.store.AssignRole(txCtx, userID, role)
	})
}

// GrantRole adds role to the user without a permission check. Used when a
// profile creation implies a role.
func (s *Service) GrantRole(ctx context.Context, userID string, role RoleName) error {
	return s.store.AssignRole(ctx, userID, role)
}

func (s *Service) mintTokens(ctx context.Context, principal Principal) (TokenPair, error) {
	now := s.now()
	access, accessExp, err := s.signer.Sign(principal.User.ID, principal.RoleNames(), s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rec, err := s.generateRefreshToken(principal.User.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.CreateRefreshToken(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *Service) generateRefreshToken(userID string, now time.Time) (string, RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", RefreshToken{}, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	sum := sha256.Sum256([]byte(secret))
	rec := RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		TokenHash: hex.EncodeToString(sum[:]),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	return tokenID + "." + secret, rec, nil
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash string, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", apperr.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("invalid email address")
	}
	return email, nil
}
