package welfare

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
)

var testNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func today() lifecycle.Date { return lifecycle.DateOf(testNow) }

func ptr[T any](v T) *T { return &v }

type activityKey struct {
	kind Activity
	id   int64
}

// fakeStore keeps just enough state for the service tests. Methods it does
// not override fall through to the nil embedded Store and panic.
type fakeStore struct {
	Store

	mu           sync.Mutex
	nextID       int64
	windows      map[activityKey]*lifecycle.Window
	participants map[activityKey]map[string]bool

	courses      map[int64]Course
	donors       map[string]BloodDonor
	donorProfile map[string]DonorProfile
	products     map[int64]LoanProduct
	loanApps     map[int64]LoanApplication
	loans        map[int64]Loan
	payments     map[int64][]LoanPayment
	projects     map[int64]Project
	donations    map[int64]Donation
	txns         map[int64]PaymentTransaction
	posts        map[int64]ForumPost
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		windows:      map[activityKey]*lifecycle.Window{},
		participants: map[activityKey]map[string]bool{},
		courses:      map[int64]Course{},
		donors:       map[string]BloodDonor{},
		donorProfile: map[string]DonorProfile{},
		products:     map[int64]LoanProduct{},
		loanApps:     map[int64]LoanApplication{},
		loans:        map[int64]Loan{},
		payments:     map[int64][]LoanPayment{},
		projects:     map[int64]Project{},
		donations:    map[int64]Donation{},
		txns:         map[int64]PaymentTransaction{},
		posts:        map[int64]ForumPost{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addActivity(kind Activity, w lifecycle.Window) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.windows[activityKey{kind, id}] = &w
	return id
}

func (f *fakeStore) LockActivity(_ context.Context, kind Activity, id int64) (lifecycle.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[activityKey{kind, id}]
	if !ok {
		return lifecycle.Window{}, apperr.NotFound(kind.Entity())
	}
	return *w, nil
}

func (f *fakeStore) HasParticipant(_ context.Context, kind Activity, id int64, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participants[activityKey{kind, id}][userID], nil
}

// join records a participant and mirrors the unique constraint.
func (f *fakeStore) join(kind Activity, id int64, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := activityKey{kind, id}
	if f.participants[key] == nil {
		f.participants[key] = map[string]bool{}
	}
	if f.participants[key][userID] {
		return 0, apperr.ErrConflict
	}
	f.participants[key][userID] = true
	f.windows[key].Count++
	return f.id(), nil
}

func (f *fakeStore) CreateEnrollment(_ context.Context, courseID int64, studentID string) (Enrollment, error) {
	id, err := f.join(ActivityCourse, courseID, studentID)
	return Enrollment{ID: id, CourseID: courseID, StudentID: studentID}, err
}

func (f *fakeStore) CreateTrainingEnrollment(_ context.Context, programID int64, participantID string) (TrainingEnrollment, error) {
	id, err := f.join(ActivityTrainingProgram, programID, participantID)
	return TrainingEnrollment{ID: id, ProgramID: programID, ParticipantID: participantID}, err
}

func (f *fakeStore) CreateEventRegistration(_ context.Context, eventID int64, participantID, _ string) (EventRegistration, error) {
	id, err := f.join(ActivityEvent, eventID, participantID)
	return EventRegistration{ID: id, EventID: eventID, ParticipantID: participantID}, err
}

func (f *fakeStore) CreateJobApplication(_ context.Context, a JobApplication) (JobApplication, error) {
	id, err := f.join(ActivityJobPosting, a.JobID, a.ApplicantID)
	a.ID = id
	return a, err
}

func (f *fakeStore) CreateCourse(_ context.Context, instructorID string, in CourseInput) (Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := Course{ID: f.id(), Title: in.Title, InstructorID: instructorID, EnrollmentLimit: in.EnrollmentLimit}
	f.courses[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetBloodDonorByUser(_ context.Context, userID string) (BloodDonor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donors[userID]
	if !ok {
		return BloodDonor{}, apperr.NotFound("blood donor")
	}
	return d, nil
}

func (f *fakeStore) CreateBloodDonor(_ context.Context, userID string, in BloodDonorInput) (BloodDonor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := BloodDonor{
		ID:               f.id(),
		UserID:           userID,
		BloodGroup:       in.BloodGroup,
		LastDonationDate: in.LastDonationDate,
		HealthStatus:     in.HealthStatus,
		IsAvailable:      true,
	}
	f.donors[userID] = d
	return d, nil
}

func (f *fakeStore) GetDonorProfile(_ context.Context, userID string) (DonorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donorProfile[userID]
	if !ok {
		return DonorProfile{}, apperr.NotFound("donor profile")
	}
	return d, nil
}

func (f *fakeStore) CreateDonorProfile(_ context.Context, userID string, in DonorProfileInput) (DonorProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := DonorProfile{ID: f.id(), UserID: userID, DonorType: *in.DonorType}
	f.donorProfile[userID] = d
	return d, nil
}

func (f *fakeStore) AddDonorTotal(_ context.Context, donorID string, amount ledger.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.donorProfile[donorID]; ok {
		d.TotalDonated += amount
		f.donorProfile[donorID] = d
	}
	return nil
}

func (f *fakeStore) GetLoanProduct(_ context.Context, id int64) (LoanProduct, error) {
	p, ok := f.products[id]
	if !ok {
		return LoanProduct{}, apperr.NotFound("loan product")
	}
	return p, nil
}

func (f *fakeStore) CreateLoanApplication(_ context.Context, a LoanApplication) (LoanApplication, error) {
	a.ID = f.id()
	f.loanApps[a.ID] = a
	return a, nil
}

func (f *fakeStore) GetLoanApplication(_ context.Context, id int64) (LoanApplication, error) {
	a, ok := f.loanApps[id]
	if !ok {
		return LoanApplication{}, apperr.NotFound("loan application")
	}
	return a, nil
}

func (f *fakeStore) ReviewLoanApplication(_ context.Context, id int64, status lifecycle.Status, reviewerID, notes string, at time.Time) (LoanApplication, error) {
	a := f.loanApps[id]
	a.Status, a.ReviewedBy, a.ReviewNotes, a.ReviewedAt = status, &reviewerID, notes, &at
	f.loanApps[id] = a
	return a, nil
}

func (f *fakeStore) CreateLoan(_ context.Context, l Loan) (Loan, error) {
	l.ID = f.id()
	f.loans[l.ID] = l
	return l, nil
}

func (f *fakeStore) GetLoanForUpdate(_ context.Context, id int64) (Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return Loan{}, apperr.NotFound("loan")
	}
	return l, nil
}

func (f *fakeStore) ListLoanPayments(_ context.Context, loanID int64) ([]LoanPayment, error) {
	return append([]LoanPayment(nil), f.payments[loanID]...), nil
}

func (f *fakeStore) CreateLoanPayment(_ context.Context, pay LoanPayment) (LoanPayment, error) {
	pay.ID = f.id()
	f.payments[pay.LoanID] = append(f.payments[pay.LoanID], pay)
	return pay, nil
}

func (f *fakeStore) SetLoanStatus(_ context.Context, id int64, status lifecycle.Status) error {
	l := f.loans[id]
	l.Status = status
	f.loans[id] = l
	return nil
}

func (f *fakeStore) GetProject(_ context.Context, id int64) (Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return Project{}, apperr.NotFound("project")
	}
	return p, nil
}

func (f *fakeStore) ListProjectExpenses(context.Context, int64) ([]ProjectExpense, error) {
	return nil, nil
}

func (f *fakeStore) FindDonationByKey(_ context.Context, donorID, key string) (Donation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.donations {
		if d.DonorID == donorID && d.IdempotencyKey == key {
			return d, true, nil
		}
	}
	return Donation{}, false, nil
}

func (f *fakeStore) CreateDonation(_ context.Context, d Donation) (Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = f.id()
	f.donations[d.ID] = d
	return d, nil
}

func (f *fakeStore) CreatePaymentTransaction(_ context.Context, t PaymentTransaction) (PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.id()
	f.txns[t.DonationID] = t
	return t, nil
}

func (f *fakeStore) GetDonationForUpdate(_ context.Context, id int64) (Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.donations[id]
	if !ok {
		return Donation{}, apperr.NotFound("donation")
	}
	return d, nil
}

func (f *fakeStore) CompleteDonation(_ context.Context, id int64, at time.Time) (Donation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.donations[id]
	d.PaymentStatus, d.ProcessedAt = lifecycle.StatusCompleted, &at
	f.donations[id] = d
	return d, nil
}

func (f *fakeStore) IncrementRaised(_ context.Context, projectID int64, amount ledger.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.projects[projectID]
	p.RaisedAmount += amount
	f.projects[projectID] = p
	return nil
}

func (f *fakeStore) SetTransactionStatus(_ context.Context, donationID int64, status lifecycle.Status, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.txns[donationID]
	t.Status = status
	f.txns[donationID] = t
	return nil
}

func (f *fakeStore) CompletedDonationAmounts(_ context.Context, projectID int64) ([]ledger.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledger.Money
	for _, d := range f.donations {
		if d.ProjectID == projectID && d.PaymentStatus == lifecycle.StatusCompleted {
			out = append(out, d.Amount)
		}
	}
	return out, nil
}

func (f *fakeStore) GetForumPost(_ context.Context, id int64) (ForumPost, error) {
	p, ok := f.posts[id]
	if !ok {
		return ForumPost{}, apperr.NotFound("post")
	}
	return p, nil
}

type fakeRoles struct {
	mu     sync.Mutex
	grants map[string][]auth.RoleName
}

func (r *fakeRoles) GrantRole(_ context.Context, userID string, role auth.RoleName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grants == nil {
		r.grants = map[string][]auth.RoleName{}
	}
	r.grants[userID] = append(r.grants[userID], role)
	return nil
}

// serialRunner stands in for the row lock a database transaction holds.
type serialRunner struct{ mu sync.Mutex }

func (r *serialRunner) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

func newServices(t *testing.T) (*Services, *fakeStore, *fakeRoles) {
	t.Helper()
	store := newFakeStore()
	roles := &fakeRoles{}
	svc, err := New(store, roles, WithClock(func() time.Time { return testNow }), WithTx(&serialRunner{}))
	require.NoError(t, err)
	return svc, store, roles
}

func user(id string, roles ...auth.RoleName) auth.Principal {
	return auth.NewPrincipal(auth.User{ID: id, IsActive: true}, roles, nil)
}

func manager(id string, perms ...auth.Permission) auth.Principal {
	return auth.NewPrincipal(auth.User{ID: id, IsActive: true}, nil, perms)
}

func requireKind(t *testing.T, err, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	if msg != "" {
		require.Equal(t, msg, apperr.Message(err))
	}
}
