package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ongon.org/internal/apperr"
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	signer, err := NewSigner("unit-test-secret", "ongon", nil)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	svc, err := NewService(store, signer, WithAccessTTL(time.Minute), WithRefreshTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func register(t *testing.T, svc *Service, email string) (User, TokenPair) {
	t.Helper()
	user, pair, err := svc.Register(context.Background(), Registration{
		Email:     email,
		Password:  "s3cret-pass",
		FirstName: "Rahim",
		LastName:  "Uddin",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return user, pair
}

func TestRegisterAssignsBeneficiary(t *testing.T) {
	svc, _ := newTestService(t)
	user, pair := register(t, svc, "  Rahim@Example.org ")
	if user.Email != "rahim@example.org" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if len(user.Roles) != 1 || user.Roles[0] != RoleBeneficiary {
		t.Fatalf("expected beneficiary role, got %v", user.Roles)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "Bearer" {
		t.Fatalf("unexpected token pair: %+v", pair)
	}
	p, err := svc.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.ID() != user.ID || !p.HasRole(RoleBeneficiary) {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "dup@example.org")
	_, _, err := svc.Register(context.Background(), Registration{
		Email: "DUP@example.org", Password: "another-pass", FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if apperr.Message(err) != "Email already registered" {
		t.Fatalf("unexpected message: %s", apperr.Message(err))
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	cases := []Registration{
		{Email: "not-an-email", Password: "longenough", FirstName: "A", LastName: "B"},
		{Email: "a@example.org", Password: "short", FirstName: "A", LastName: "B"},
		{Email: "a@example.org", Password: "longenough", FirstName: " ", LastName: "B"},
	}
	for _, reg := range cases {
		if _, _, err := svc.Register(context.Background(), reg); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", reg, err)
		}
	}
}

func TestLoginFailures(t *testing.T) {
	svc, store := newTestService(t)
	user, _ := register(t, svc, "login@example.org")

	if _, _, err := svc.Login(context.Background(), "login@example.org", "wrong-pass"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.org", "s3cret-pass"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}

	inactive := false
	if _, err := store.UpdateUser(context.Background(), user.ID, UserUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	_, _, err := svc.Login(context.Background(), "login@example.org", "s3cret-pass")
	if !errors.Is(err, apperr.ErrUnauthorized) || !strings.Contains(apperr.Message(err), "deactivated") {
		t.Fatalf("expected deactivated error, got %v", err)
	}
}

func TestLoginTouchesLastLogin(t *testing.T) {
	svc, store := newTestService(t)
	user, _ := register(t, svc, "touch@example.org")
	if _, _, err := svc.Login(context.Background(), "TOUCH@example.org", "s3cret-pass"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	stored, _ := store.FindUser(context.Background(), user.ID)
	if stored.LastLoginAt == nil {
		t.Fatal("expected last_login_at to be set")
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newTestService(t)
	_, pair := register(t, svc, "rotate@example.org")

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected reuse of rotated token to fail, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), "garbage"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected malformed token to fail, got %v", err)
	}
}

func TestRefreshRevokesOnSecretMismatch(t *testing.T) {
	svc, store := newTestService(t)
	_, pair := register(t, svc, "mismatch@example.org")
	id := strings.SplitN(pair.RefreshToken, ".", 2)[0]

	if _, err := svc.Refresh(context.Background(), id+".forged"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	rec, _ := store.FindRefreshToken(context.Background(), id)
	if !rec.Revoked {
		t.Fatal("expected token to be revoked after mismatch")
	}
}

func TestChangePasswordRevokesRefreshTokens(t *testing.T) {
	svc, _ := newTestService(t)
	user, pair := register(t, svc, "change@example.org")
	p, err := svc.Principal(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), p, "wrong-current", "brand-new-pass"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), p, "s3cret-pass", "brand-new-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("expected refresh token to be revoked")
	}
	if _, _, err := svc.Login(context.Background(), "change@example.org", "brand-new-pass"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}

func TestUserAdministration(t *testing.T) {
	svc, store := newTestService(t)
	admin, _ := register(t, svc, "admin@example.org")
	other, _ := register(t, svc, "other@example.org")
	if err := store.AssignRole(context.Background(), admin.ID, RoleAdmin); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	adminP, _ := svc.Principal(context.Background(), admin.ID)
	otherP, _ := svc.Principal(context.Background(), other.ID)

	if _, _, err := svc.ListUsers(context.Background(), otherP, UserFilter{}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden list, got %v", err)
	}
	users, total, err := svc.ListUsers(context.Background(), adminP, UserFilter{})
	if err != nil || total != 2 || len(users) != 2 {
		t.Fatalf("ListUsers: %d users, total %d, err %v", len(users), total, err)
	}

	if _, err := svc.GetUser(context.Background(), otherP, admin.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden get, got %v", err)
	}
	if _, err := svc.GetUser(context.Background(), otherP, other.ID); err != nil {
		t.Fatalf("self get: %v", err)
	}

	verified := true
	if _, err := svc.UpdateUser(context.Background(), otherP, other.ID, UserUpdate{IsVerified: &verified}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden flag change, got %v", err)
	}
	city := "Dhaka"
	updated, err := svc.UpdateUser(context.Background(), otherP, other.ID, UserUpdate{City: &city})
	if err != nil || updated.City != "Dhaka" {
		t.Fatalf("self update: %+v %v", updated, err)
	}
	updated, err = svc.UpdateUser(context.Background(), adminP, other.ID, UserUpdate{IsVerified: &verified})
	if err != nil || !updated.IsVerified {
		t.Fatalf("admin update: %+v %v", updated, err)
	}

	if err := svc.DeleteUser(context.Background(), adminP, admin.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected self delete to fail, got %v", err)
	}
	if err := svc.DeleteUser(context.Background(), otherP, admin.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if err := svc.DeleteUser(context.Background(), adminP, other.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := store.FindUser(context.Background(), other.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected deleted user to be gone, got %v", err)
	}
}

func TestAssignRoleIsAdditiveAndIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	admin, _ := register(t, svc, "root@example.org")
	user, _ := register(t, svc, "instructor@example.org")
	_ = store.AssignRole(context.Background(), admin.ID, RoleAdmin)
	adminP, _ := svc.Principal(context.Background(), admin.ID)

	for i := 0; i < 2; i++ {
		if err := svc.AssignRole(context.Background(), adminP, user.ID, RoleEducator); err != nil {
			t.Fatalf("AssignRole #%d: %v", i, err)
		}
	}
	p, _ := svc.Principal(context.Background(), user.ID)
	if len(p.Roles) != 2 || !p.HasRole(RoleEducator) || !p.HasRole(RoleBeneficiary) {
		t.Fatalf("unexpected roles: %v", p.RoleNames())
	}
	if err := svc.AssignRole(context.Background(), adminP, user.ID, "wizard"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected unknown role to fail validation, got %v", err)
	}
	if err := svc.AssignRole(context.Background(), adminP, "missing", RoleDonor); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
