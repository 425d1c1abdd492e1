package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ongon.org/internal/auth"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer abc.def", want: "abc.def"},
		{header: "bearer   abc.def ", want: "abc.def"},
		{header: "", wantErr: true},
		{header: "Bearer ", wantErr: true},
		{header: "Basic dXNlcjpwYXNz", wantErr: true},
		{header: "Bear", wantErr: true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error, got token %q", tc.header, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.header, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	rr := httptest.NewRecorder()
	requireAuth(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header set")
	}
}

func TestRequireAuthAllowsPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), auth.NewPrincipal(auth.User{ID: "user-1"}, nil, nil)))

	rr := httptest.NewRecorder()
	requireAuth(okHandler()).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	handler := requirePermission(auth.PermReportAccess)(okHandler())

	viewer := auth.NewPrincipal(auth.User{ID: "user-1"}, []auth.RoleName{auth.RoleBeneficiary}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/dashboard", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(auth.ContextWithPrincipal(req.Context(), viewer)))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	admin := auth.NewPrincipal(auth.User{ID: "user-2"}, []auth.RoleName{auth.RoleAdmin}, []auth.Permission{auth.PermReportAccess})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(auth.ContextWithPrincipal(req.Context(), admin)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", rr.Code)
	}
}
