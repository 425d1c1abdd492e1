package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"ongon.org/internal/audit"
	"ongon.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// authenticate resolves the bearer token, when one is sent, into the
// request principal. Anonymous requests pass through; an invalid token is
// rejected even on public routes.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		header := r.Header.Get(authHeader)
		if r.Method == http.MethodOptions || strings.TrimSpace(header) == "" {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ongon"`)
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		principal, err := a.auth.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ongon", error="invalid_token"`)
				writeError(w, r, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			writeServiceError(w, r, "httpapi.authenticate", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(ctx, principal)))
	})
}

// requireAuth rejects anonymous requests.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ongon"`)
			writeError(w, r, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requirePermission rejects principals without perm.
func requirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !p.HasPermission(perm) {
				writeError(w, r, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principal returns the caller. Anonymous callers get the zero Principal,
// which holds no roles or permissions.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
