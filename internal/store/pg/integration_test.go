//go:build integration

package pg

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/bootstrap"
	"ongon.org/internal/config"
	"ongon.org/internal/migrate"
	"ongon.org/internal/welfare"
)

func startPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ongon"),
		postgres.WithUsername("ongon"),
		postgres.WithPassword("ongon"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	s, err := Open(config.Postgres{DSN: dsn, MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = migrate.NewManager(s.DB()).Up(ctx)
	require.NoError(t, err, "migrate")
	return s
}

func createUsers(t *testing.T, s *Store, n int) []auth.Principal {
	t.Helper()
	out := make([]auth.Principal, 0, n)
	for i := range n {
		u, err := s.CreateUser(context.Background(), auth.NewUser{
			Email:        fmt.Sprintf("user%d@example.org", i),
			PasswordHash: "x",
			FirstName:    fmt.Sprintf("User %d", i),
		})
		require.NoError(t, err)
		out = append(out, auth.NewPrincipal(u, nil, nil))
	}
	return out
}

func newWelfare(t *testing.T, s *Store) *welfare.Services {
	t.Helper()
	svc, err := welfare.New(s, s, welfare.WithTx(s))
	require.NoError(t, err)
	return svc
}

func TestIntegrationLastSeatGoesToOneEnrollment(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()
	users := createUsers(t, s, 8)

	var courseID int64
	err := s.DB().QueryRowContext(ctx, `
		insert into courses (title, instructor_id, is_published, enrollment_limit)
		values ('Digital literacy', $1, true, 1) returning id
	`, users[0].ID()).Scan(&courseID)
	require.NoError(t, err)

	svc := newWelfare(t, s)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for _, u := range users[1:] {
		wg.Add(1)
		go func(p auth.Principal) {
			defer wg.Done()
			_, err := svc.Education.Enroll(ctx, p, courseID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			assert.ErrorIs(t, err, apperr.ErrConflict)
			rejected++
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, len(users)-2, rejected)
	n, err := s.count(ctx, `select count(*) from course_enrollments where course_id = $1`, courseID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIntegrationDonationConfirmedOnce(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()
	users := createUsers(t, s, 2)
	manager, donor := users[0], users[1]

	var projectID int64
	err := s.DB().QueryRowContext(ctx, `
		insert into projects (title, manager_id, target_amount) values ('Tube wells', $1, 1000) returning id
	`, manager.ID()).Scan(&projectID)
	require.NoError(t, err)

	svc := newWelfare(t, s)
	d, err := svc.Projects.Donate(ctx, donor, projectID, welfare.DonationInput{Amount: 500}, "key-1")
	require.NoError(t, err)
	again, err := svc.Projects.Donate(ctx, donor, projectID, welfare.DonationInput{Amount: 500}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, d.ID, again.ID)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Projects.ConfirmDonation(ctx, donor, d.ID); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)

	pr, err := svc.Projects.Get(ctx, projectID)
	require.NoError(t, err)
	assert.EqualValues(t, 500, pr.RaisedAmount)
	assert.InDelta(t, 50.0, pr.ProgressPercentage, 0.001)

	rec, err := svc.Projects.Reconcile(ctx, auth.NewPrincipal(manager.User, nil, []auth.Permission{auth.PermProjectManagement}), projectID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestIntegrationSeedIsIdempotent(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()
	seeder, err := bootstrap.NewSeeder(s, s)
	require.NoError(t, err)

	first, err := seeder.Run(ctx)
	require.NoError(t, err)
	assert.Positive(t, first.Total())

	second, err := seeder.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Total())

	n, err := s.count(ctx, `select count(*) from roles`)
	require.NoError(t, err)
	assert.Equal(t, first.Roles, n)
}
