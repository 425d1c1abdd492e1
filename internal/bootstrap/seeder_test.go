package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/auth"
	"ongon.org/internal/welfare"
)

type memStore struct {
	names map[string]bool
	fail  string
}

func (m *memStore) ensure(key string) (bool, error) {
	if m.names == nil {
		m.names = map[string]bool{}
	}
	if key == m.fail {
		return false, errors.New("boom")
	}
	if m.names[key] {
		return false, nil
	}
	m.names[key] = true
	return true, nil
}

func (m *memStore) EnsurePermission(_ context.Context, p auth.PermissionInfo) (bool, error) {
	return m.ensure("perm:" + string(p.Name))
}

func (m *memStore) EnsureRole(_ context.Context, r auth.RoleInfo) (bool, error) {
	return m.ensure("role:" + string(r.Name))
}

func (m *memStore) EnsureRoleGrant(_ context.Context, role auth.RoleName, perm auth.Permission) (bool, error) {
	return m.ensure("grant:" + string(role) + "/" + string(perm))
}

func (m *memStore) EnsureCourseCategory(_ context.Context, name, _ string) (bool, error) {
	return m.ensure("course:" + name)
}

func (m *memStore) EnsureJobCategory(_ context.Context, name, _ string) (bool, error) {
	return m.ensure("job:" + name)
}

func (m *memStore) EnsureLoanProduct(_ context.Context, p welfare.LoanProduct) (bool, error) {
	return m.ensure("loan:" + p.Name)
}

func (m *memStore) EnsureCrop(_ context.Context, c welfare.Crop) (bool, error) {
	return m.ensure("crop:" + c.Name)
}

func TestSeederIsIdempotent(t *testing.T) {
	store := &memStore{}
	s, err := NewSeeder(store, nil)
	require.NoError(t, err)

	first, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(auth.Permissions), first.Permissions)
	assert.Equal(t, len(auth.Roles), first.Roles)
	assert.Equal(t, len(auth.Permissions), first.Grants, "admin holds every permission")
	assert.Equal(t, 5, first.CourseCategories)
	assert.Equal(t, 5, first.JobCategories)
	assert.Equal(t, 4, first.LoanProducts)
	assert.Equal(t, 4, first.Crops)
	rows := len(store.names)

	second, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Total())
	assert.Len(t, store.names, rows)
}

func TestSeederWrapsFailures(t *testing.T) {
	s, err := NewSeeder(&memStore{fail: "crop:Potato"}, nil)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed crop Potato")
}

func TestCatalogAmountsWithinLimits(t *testing.T) {
	for _, p := range LoanProducts {
		assert.Less(t, p.MinAmount, p.MaxAmount, p.Name)
		assert.Positive(t, p.TenureMonths, p.Name)
	}
}
