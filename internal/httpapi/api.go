// Package httpapi exposes the welfare services over a chi router.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"ongon.org/internal/audit"
	"ongon.org/internal/auth"
	"ongon.org/internal/config"
	"ongon.org/internal/obs"
	"ongon.org/internal/welfare"
)

const serviceName = "ongon-api"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CachePinger is satisfied by the Redis catalog cache.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks the database and, when configured, the cache.
type ReadyProbe struct {
	DB    Pinger
	Cache CachePinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Cache != nil {
		if err := rp.Cache.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// API is the HTTP layer.
type API struct {
	svc      *welfare.Services
	auth     *auth.Service
	ready    ReadyProbe
	version  string
	server   config.HTTPServer
	paging   config.Pagination
	validate *validator.Validate
}

// Option configures the API.
type Option func(*API)

// WithServerConfig applies CORS, body size and rate limit settings.
func WithServerConfig(c config.HTTPServer) Option {
	return func(a *API) { a.server = c }
}

// WithPagination sets the listing defaults.
func WithPagination(p config.Pagination) Option {
	return func(a *API) {
		if p.DefaultPerPage > 0 {
			a.paging.DefaultPerPage = p.DefaultPerPage
		}
		if p.MaxPerPage > 0 {
			a.paging.MaxPerPage = p.MaxPerPage
		}
	}
}

// New builds the API over the welfare and identity services.
func New(rp ReadyProbe, version string, svc *welfare.Services, authSvc *auth.Service, opts ...Option) (*API, error) {
	if svc == nil {
		return nil, errors.New("httpapi: welfare services are required")
	}
	if authSvc == nil {
		return nil, errors.New("httpapi: auth service is required")
	}
	a := &API{
		svc:      svc,
		auth:     authSvc,
		ready:    rp,
		version:  version,
		paging:   config.Pagination{DefaultPerPage: welfare.DefaultPerPage, MaxPerPage: welfare.MaxPerPage},
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Handler returns the routed and instrumented handler.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		Logging,
		middleware.Recoverer,
		obs.Instrument,
		SecurityHeaders,
		CORS(a.server.CORSOrigins),
		MaxBodyBytes(a.server.MaxBodyBytes),
		RateLimit(a.server.RateLimitBurst, a.server.RateLimitPerSec),
		render.SetContentType(render.ContentTypeJSON),
		a.authenticate,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", a.Info)
		r.Get("/health", a.Healthz)
		r.Route("/auth", a.authRoutes)
		r.Route("/users", a.userRoutes)
		r.Route("/education", a.educationRoutes)
		r.Route("/healthcare", a.healthcareRoutes)
		r.Route("/agriculture", a.agricultureRoutes)
		r.Route("/business", a.businessRoutes)
		r.Route("/community", a.communityRoutes)
		r.Route("/projects", a.projectRoutes)
		r.Get("/search", a.search)
		r.With(requireAuth, requirePermission(auth.PermReportAccess)).Get("/analytics/dashboard", a.dashboard)
	})
	return r
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.SetReady(false)
		requestLogger(r, "httpapi.ready").Warn("readiness check failed", obs.Err(err))
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, r, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "ONGON API",
		"service": serviceName,
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"modules": []string{"education", "healthcare", "agriculture", "business", "community", "projects"},
	})
}

// audit records a state change. kv alternates field names and values.
func (a *API) audit(r *http.Request, event string, kv ...any) {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			fields[key] = kv[i+1]
		}
	}
	if err := audit.LogEvent(r.Context(), event, fields); err != nil {
		requestLogger(r, "httpapi.audit").Warn("audit event dropped", obs.Err(err))
	}
}
