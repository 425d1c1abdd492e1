package auth

import (
	"time"

	"ongon.org/internal/lifecycle"
)

// User is a platform account.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	PasswordHash string         `json:"-"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	DateOfBirth  lifecycle.Date `json:"date_of_birth"`
	Gender       string         `json:"gender,omitempty"`
	Address      string         `json:"address,omitempty"`
	City         string         `json:"city,omitempty"`
	Country      string         `json:"country,omitempty"`
	IsActive     bool           `json:"is_active"`
	IsVerified   bool           `json:"is_verified"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Roles        []RoleName     `json:"roles"`
}

// FullName joins first and last names.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// NewUser carries the columns set on registration.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
}

// UserUpdate lists the mutable user fields. Nil means unchanged. IsActive
// and IsVerified require user management.
type UserUpdate struct {
	FirstName   *string         `json:"first_name"`
	LastName    *string         `json:"last_name"`
	Phone       *string         `json:"phone"`
	DateOfBirth *lifecycle.Date `json:"date_of_birth"`
	Gender      *string         `json:"gender"`
	Address     *string         `json:"address"`
	City        *string         `json:"city"`
	Country     *string         `json:"country"`
	IsActive    *bool           `json:"is_active"`
	IsVerified  *bool           `json:"is_verified"`
}

// Empty reports an update without fields.
func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Phone == nil && u.DateOfBirth == nil &&
		u.Gender == nil && u.Address == nil && u.City == nil && u.Country == nil &&
		u.IsActive == nil && u.IsVerified == nil
}

// UserFilter narrows user listings.
type UserFilter struct {
	Search string
	Role   RoleName
	Limit  int
	Offset int
}

// RefreshToken is a persisted, hashed refresh credential.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
