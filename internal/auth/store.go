package auth

import (
	"context"
	"time"
)

// Store describes the persistence the identity service needs. Lookups of
// missing rows return apperr.ErrNotFound; duplicate emails apperr.ErrConflict.
type Store interface {
	CreateUser(ctx context.Context, u NewUser) (User, error)
	FindUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]User, int, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error

	// AssignRole is additive; assigning a held role is a no-op.
	AssignRole(ctx context.Context, userID string, role RoleName) error
	// Grants returns the user's roles and the union of their permissions.
	Grants(ctx context.Context, userID string) ([]RoleName, []Permission, error)

	CreateRefreshToken(ctx context.Context, tok RefreshToken) error
	FindRefreshToken(ctx context.Context, id string) (RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}
