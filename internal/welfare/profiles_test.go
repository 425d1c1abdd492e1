package welfare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
)

func TestDonorProfileGrantsRoleOnce(t *testing.T) {
	svc, _, roles := newServices(t)
	ctx := context.Background()

	prof, err := svc.Profiles.CreateDonorProfile(ctx, user("donor"), DonorProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, "individual", prof.DonorType)
	assert.Equal(t, []auth.RoleName{auth.RoleDonor}, roles.grants["donor"])

	_, err = svc.Profiles.CreateDonorProfile(ctx, user("donor"), DonorProfileInput{})
	requireKind(t, err, apperr.ErrConflict, "Donor profile already exists")
	assert.Len(t, roles.grants["donor"], 1)
}
