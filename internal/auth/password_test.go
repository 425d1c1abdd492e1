package auth

import (
	"errors"
	"strings"
	"testing"

	"ongon.org/internal/apperr"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !PasswordMatches(hash, "s3cret-pass") {
		t.Fatalf("expected password to match its hash")
	}
	if PasswordMatches(hash, "other-pass") {
		t.Fatalf("expected mismatch for a different password")
	}
	if PasswordMatches("", "s3cret-pass") {
		t.Fatalf("expected empty hash never to match")
	}
}

func TestHashPasswordLengthRules(t *testing.T) {
	for _, pw := range []string{"", "short", strings.Repeat("x", maxPasswordBytes+1)} {
		if _, err := HashPassword(pw); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("password of %d bytes: expected validation error, got %v", len(pw), err)
		}
	}
}
