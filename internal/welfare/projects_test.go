package welfare

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
)

func addProject(store *fakeStore, status lifecycle.Status, target ledger.Money) int64 {
	store.mu.Lock()
	defer store.mu.Unlock()
	id := store.id()
	store.projects[id] = Project{ID: id, Title: "Clean water", ManagerID: "manager", Status: status, TargetAmount: target}
	return id
}

func TestDonateAndConfirm(t *testing.T) {
	svc, store, _ := newServices(t)
	ctx := context.Background()
	projectID := addProject(store, lifecycle.StatusActive, ledger.FromTaka(1000))
	donor := user("donor", auth.RoleDonor)
	store.donorProfile["donor"] = DonorProfile{UserID: "donor"}

	d, err := svc.Projects.Donate(ctx, donor, projectID, DonationInput{Amount: ledger.FromTaka(500)}, "")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, d.PaymentStatus)
	assert.Equal(t, "one_time", d.DonationType)
	assert.Equal(t, ledger.Currency, d.Currency)
	assert.Equal(t, lifecycle.StatusPending, store.txns[d.ID].Status)

	pr, err := svc.Projects.Get(ctx, projectID)
	require.NoError(t, err)
	assert.Zero(t, pr.RaisedAmount, "pending donations are not counted")

	confirmed, err := svc.Projects.ConfirmDonation(ctx, donor, d.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, confirmed.PaymentStatus)
	require.NotNil(t, confirmed.ProcessedAt)

	pr, err = svc.Projects.Get(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, ledger.FromTaka(500), pr.RaisedAmount)
	assert.InDelta(t, 50.0, pr.ProgressPercentage, 1e-9)
	assert.Equal(t, lifecycle.StatusSuccess, store.txns[d.ID].Status)
	assert.Equal(t, ledger.FromTaka(500), store.donorProfile["donor"].TotalDonated)

	_, err = svc.Projects.ConfirmDonation(ctx, donor, d.ID)
	requireKind(t, err, apperr.ErrConflict, "Donation already processed")

	rec, err := svc.Projects.Reconcile(ctx, manager("auditor", auth.PermProjectManagement), projectID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestConfirmDonationOnlyByDonor(t *testing.T) {
	svc, store, _ := newServices(t)
	ctx := context.Background()
	projectID := addProject(store, lifecycle.StatusActive, 0)

	d, err := svc.Projects.Donate(ctx, user("donor"), projectID, DonationInput{Amount: 100}, "")
	require.NoError(t, err)
	_, err = svc.Projects.ConfirmDonation(ctx, user("someone-else"), d.ID)
	requireKind(t, err, apperr.ErrForbidden, "Access denied")
}

func TestDonateRequiresActiveProject(t *testing.T) {
	svc, store, _ := newServices(t)
	projectID := addProject(store, lifecycle.StatusOnHold, ledger.FromTaka(1000))
	_, err := svc.Projects.Donate(context.Background(), user("donor"), projectID, DonationInput{Amount: 100}, "")
	requireKind(t, err, apperr.ErrConflict, "Project is not accepting donations")
}

func TestDonateRejectsNonPositiveAmount(t *testing.T) {
	svc, store, _ := newServices(t)
	projectID := addProject(store, lifecycle.StatusActive, 0)
	_, err := svc.Projects.Donate(context.Background(), user("donor"), projectID, DonationInput{Amount: 0}, "")
	requireKind(t, err, apperr.ErrValidation, "amount must be greater than zero")
}

func TestDonateIdempotencyKey(t *testing.T) {
	svc, store, _ := newServices(t)
	ctx := context.Background()
	projectID := addProject(store, lifecycle.StatusActive, 0)
	in := DonationInput{Amount: ledger.FromTaka(250)}

	first, err := svc.Projects.Donate(ctx, user("donor"), projectID, in, "key-1")
	require.NoError(t, err)
	again, err := svc.Projects.Donate(ctx, user("donor"), projectID, in, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, store.donations, 1)

	_, err = svc.Projects.Donate(ctx, user("donor"), projectID, DonationInput{Amount: 1}, "key-1")
	requireKind(t, err, apperr.ErrConflict, "")
}

func TestReconcileReportsDrift(t *testing.T) {
	svc, store, _ := newServices(t)
	projectID := addProject(store, lifecycle.StatusActive, 0)
	p := store.projects[projectID]
	p.RaisedAmount = 700
	store.projects[projectID] = p

	_, err := svc.Projects.Reconcile(context.Background(), user("donor"), projectID)
	requireKind(t, err, apperr.ErrForbidden, "")

	rec, err := svc.Projects.Reconcile(context.Background(), manager("auditor", auth.PermProjectManagement), projectID)
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.Equal(t, ledger.Money(700), rec.Difference)
}

func TestExpenseTotalCountsApprovedOnly(t *testing.T) {
	approver := "auditor"
	total := expenseTotal([]ProjectExpense{
		{Amount: 300, ApprovedBy: &approver},
		{Amount: 200},
	})
	assert.Equal(t, ledger.Money(300), total)
}

// racingDonations stores a donation under the same key right before the
// insert and then reports the unique violation, as Postgres does when two
// requests carrying one Idempotency-Key race.
type racingDonations struct {
	*fakeStore
}

func (r racingDonations) CreateDonation(ctx context.Context, d Donation) (Donation, error) {
	if _, err := r.fakeStore.CreateDonation(ctx, d); err != nil {
		return Donation{}, err
	}
	return Donation{}, apperr.ErrConflict
}

func TestDonateIdempotencyKeyLostRace(t *testing.T) {
	store := newFakeStore()
	svc, err := New(racingDonations{store}, &fakeRoles{}, WithClock(func() time.Time { return testNow }), WithTx(&serialRunner{}))
	require.NoError(t, err)
	ctx := context.Background()
	projectID := addProject(store, lifecycle.StatusActive, 0)

	d, err := svc.Projects.Donate(ctx, user("donor"), projectID, DonationInput{Amount: ledger.FromTaka(250)}, "key-race")
	require.NoError(t, err)
	assert.Equal(t, "key-race", d.IdempotencyKey)
	assert.Len(t, store.donations, 1)
	assert.Contains(t, store.donations, d.ID)

	_, err = svc.Projects.Donate(ctx, user("donor"), projectID, DonationInput{Amount: 1}, "key-race")
	requireKind(t, err, apperr.ErrConflict, "Idempotency-Key was used for a different donation")
}
