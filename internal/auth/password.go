package auth

import (
	"golang.org/x/crypto/bcrypt"

	"ongon.org/internal/apperr"
)

// MinPasswordLength is enforced on registration and password change.
const MinPasswordLength = 8

// bcrypt ignores input past 72 bytes, so longer passwords are refused
// rather than silently truncated.
const maxPasswordBytes = 72

// HashPassword returns the bcrypt hash of a password that satisfies the
// length rules.
func HashPassword(password string) (string, error) {
	switch {
	case len(password) < MinPasswordLength:
		return "", apperr.Validation("password must be at least %d characters", MinPasswordLength)
	case len(password) > maxPasswordBytes:
		return "", apperr.Validation("password must be at most %d bytes", maxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// PasswordMatches reports whether password hashes to hash. A malformed or
// empty hash never matches.
func PasswordMatches(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
