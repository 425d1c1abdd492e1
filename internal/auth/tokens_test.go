package auth

import (
	"slices"
	"testing"
	"time"
)

func TestSignerRoundTrip(t *testing.T) {
	signer, err := NewSigner("test-secret", "test-issuer", nil)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, exp, err := signer.Sign("user-42", []RoleName{"Admin", RoleDonor, RoleAdmin}, 30*time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiration, got %v", exp)
	}
	claims, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if len(claims.Roles) != 2 || !slices.Contains(claims.Roles, "admin") || !slices.Contains(claims.Roles, "donor") {
		t.Fatalf("roles were not deduplicated: %v", claims.Roles)
	}
}

func TestSignerRejectsForeignAndExpiredTokens(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	signer, _ := NewSigner("secret-a", "ongon", clock)
	other, _ := NewSigner("secret-b", "ongon", clock)

	token, _, err := signer.Sign("user-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := other.Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := signer.Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
	if _, err := signer.Parse("  "); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner(" ", "", nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
