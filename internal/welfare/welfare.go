// Package welfare implements the ONGON modules: education, healthcare,
// agriculture, business and microfinance, community and donation projects.
//
// Services receive an authenticated auth.Principal, enforce ownership and
// permissions, and run multi-step writes inside a uow.Runner so that every
// failure rolls the whole operation back.
package welfare

import (
	"context"
	"errors"
	"time"

	"ongon.org/internal/auth"
	"ongon.org/internal/uow"
)

// Store is everything the welfare services persist.
type Store interface {
	ParticipationStore
	ProfileStore
	EducationStore
	HealthcareStore
	AgricultureStore
	BusinessStore
	CommunityStore
	ProjectStore
	InsightStore
}

// RoleGranter adds a role to a user. Creating a profile implies its role.
type RoleGranter interface {
	GrantRole(ctx context.Context, userID string, role auth.RoleName) error
}

// Services groups the module services over one store.
type Services struct {
	Profiles    *Profiles
	Education   *Education
	Healthcare  *Healthcare
	Agriculture *Agriculture
	Business    *Business
	Community   *Community
	Projects    *Projects
	Insights    *Insights
}

// Option configures the shared service settings.
type Option func(*base)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithTx sets the unit-of-work runner. Without it writes are not atomic.
func WithTx(r uow.Runner) Option {
	return func(b *base) {
		if r != nil {
			b.tx = r
		}
	}
}

// WithCatalogCache puts a read-through cache in front of the static catalogs.
func WithCatalogCache(c CatalogCache) Option {
	return func(b *base) {
		if c != nil {
			b.cache = c
		}
	}
}

// New wires the module services.
func New(store Store, roles RoleGranter, opts ...Option) (*Services, error) {
	if store == nil {
		return nil, errors.New("welfare: store is required")
	}
	if roles == nil {
		return nil, errors.New("welfare: role granter is required")
	}
	b := &base{tx: uow.Nop(), now: time.Now, roles: roles, cache: noCache{}}
	for _, opt := range opts {
		opt(b)
	}
	b.part = participation{store: store, tx: b.tx, now: b.clock}
	return &Services{
		Profiles:    &Profiles{base: b, store: store},
		Education:   &Education{base: b, store: store},
		Healthcare:  &Healthcare{base: b, store: store},
		Agriculture: &Agriculture{base: b, store: store},
		Business:    &Business{base: b, store: store},
		Community:   &Community{base: b, store: store},
		Projects:    &Projects{base: b, store: store},
		Insights:    &Insights{base: b, store: store},
	}, nil
}

type base struct {
	tx    uow.Runner
	now   func() time.Time
	roles RoleGranter
	cache CatalogCache
	part  participation
}

func (b *base) clock() time.Time { return b.now().UTC() }
