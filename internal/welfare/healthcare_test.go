package welfare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/apperr"
)

func TestBloodDonorEligibility(t *testing.T) {
	cases := []struct {
		name     string
		daysAgo  int
		eligible bool
	}{
		{"donated 30 days ago", 30, false},
		{"donated 100 days ago", 100, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newServices(t)
			last := today().AddDays(-tc.daysAgo)
			d, err := svc.Healthcare.RegisterBloodDonor(context.Background(), user("donor"), BloodDonorInput{
				BloodGroup:       "o+",
				LastDonationDate: last,
			})
			require.NoError(t, err)
			assert.Equal(t, "O+", d.BloodGroup)
			assert.Equal(t, tc.eligible, d.CanDonate)
			assert.Equal(t, last.AddDays(90), d.NextEligibleDate)
		})
	}
}

func TestBloodDonorWithoutHistoryCanDonate(t *testing.T) {
	svc, _, _ := newServices(t)
	d, err := svc.Healthcare.RegisterBloodDonor(context.Background(), user("donor"), BloodDonorInput{BloodGroup: "AB-"})
	require.NoError(t, err)
	assert.True(t, d.CanDonate)
}

func TestBloodDonorRegistersOnce(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()
	_, err := svc.Healthcare.RegisterBloodDonor(ctx, user("donor"), BloodDonorInput{BloodGroup: "A+"})
	require.NoError(t, err)
	_, err = svc.Healthcare.RegisterBloodDonor(ctx, user("donor"), BloodDonorInput{BloodGroup: "A+"})
	requireKind(t, err, apperr.ErrConflict, "Already registered as blood donor")
}

func TestBloodDonorRejectsUnknownGroup(t *testing.T) {
	svc, _, _ := newServices(t)
	_, err := svc.Healthcare.RegisterBloodDonor(context.Background(), user("donor"), BloodDonorInput{BloodGroup: "C+"})
	requireKind(t, err, apperr.ErrValidation, "")
}
