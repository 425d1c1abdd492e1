package pg

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/uow"
	"ongon.org/internal/welfare"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db), mock
}

func TestRunInTxCommitsAndNests(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("update projects").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTx(context.Background(), func(txCtx context.Context) error {
		_, ok := uow.From(txCtx)
		require.True(t, ok)
		return s.RunInTx(txCtx, func(inner context.Context) error {
			return s.IncrementRaised(inner, 1, 500)
		})
	})
	require.NoError(t, err)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := s.RunInTx(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, "Course"))

	err := mapError(sql.ErrNoRows, "Course")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Course not found", apperr.Message(err))

	assert.Equal(t, apperr.ErrConflict, mapError(&pgconn.PgError{Code: pgErrUniqueViolation}, "Course"))

	err = mapError(&pgconn.PgError{Code: pgErrForeignKeyViolation}, "Course")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other, "Course"))
}

func TestFilterNumbersPlaceholders(t *testing.T) {
	var w filter
	w.add("is_active")
	w.add("category = ?", "education")
	w.add("(title ilike ? or description ilike ?)", "%x%", "%x%")
	page := w.page(20, 40)

	assert.Equal(t, " where is_active and category = $1 and (title ilike $2 or description ilike $3)", w.where())
	assert.Equal(t, " limit $4 offset $5", page)
	assert.Equal(t, []any{"education", "%x%", "%x%", 20, 40}, w.args)
}

func TestSetterSkipsNilFields(t *testing.T) {
	title := "Rice farming"
	var featured *bool
	var set setter
	setIf(&set, "title", &title)
	setIf(&set, "is_featured", featured)
	set.touch()

	q, args := set.statement("projects", "id", int64(7))
	assert.Equal(t, "update projects set title = $1, updated_at = now() where id = $2", q)
	assert.Equal(t, []any{"Rice farming", int64(7)}, args)
}

func TestLockActivityCountsParticipants(t *testing.T) {
	s, mock := newMock(t)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("select is_published, enrollment_limit, end_date from courses where id = $1 for update")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"is_published", "enrollment_limit", "end_date"}).AddRow(true, 1, end))
	mock.ExpectQuery(regexp.QuoteMeta("select count(*) from course_enrollments where course_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w, err := s.LockActivity(context.Background(), welfare.ActivityCourse, 3)
	require.NoError(t, err)
	require.NotNil(t, w.Capacity)
	assert.Equal(t, 1, *w.Capacity)
	assert.Equal(t, 1, w.Count)
	assert.False(t, w.IsOpen(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLockActivityVolunteerCountsRejectedApplications(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("select is_active, volunteers_needed, end_date from volunteer_opportunities where id = $1 for update")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "volunteers_needed", "end_date"}).AddRow(true, 1, nil))
	mock.ExpectQuery(regexp.QuoteMeta("select count(*) from volunteer_applications where opportunity_id = $1") + "$").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w, err := s.LockActivity(context.Background(), welfare.ActivityVolunteerOpportunity, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Count)
	assert.False(t, w.IsOpen(time.Now()), "a rejected application still holds its slot")
}

func TestLockActivityUncappedSkipsCount(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("select is_active, null::integer, application_deadline from job_postings")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "cap", "application_deadline"}).AddRow(true, nil, nil))

	w, err := s.LockActivity(context.Background(), welfare.ActivityJobPosting, 9)
	require.NoError(t, err)
	assert.Nil(t, w.Capacity)
	assert.Nil(t, w.Deadline)
	assert.True(t, w.IsOpen(time.Now()))
}

func TestLockActivityEventDeadlineIsInstant(t *testing.T) {
	s, mock := newMock(t)
	deadline := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("from events where id = \\$1 for update").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "capacity", "registration_deadline"}).AddRow(true, nil, deadline))

	w, err := s.LockActivity(context.Background(), welfare.ActivityEvent, 4)
	require.NoError(t, err)
	assert.True(t, w.IsOpen(deadline.Add(-time.Minute)))
	assert.False(t, w.IsOpen(deadline.Add(time.Minute)))
}

func TestLockActivityMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("from scholarships").WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)

	_, err := s.LockActivity(context.Background(), welfare.ActivityScholarship, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Scholarship not found", apperr.Message(err))
}

func TestLockActivityUnknownKind(t *testing.T) {
	s, _ := newMock(t)
	_, err := s.LockActivity(context.Background(), welfare.Activity("raffle"), 1)
	assert.Error(t, err)
}

func TestGrantsDeduplicates(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("from user_roles").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"role", "perm"}).
			AddRow("admin", "user_management").
			AddRow("admin", "report_access").
			AddRow("donor", nil))

	roles, perms, err := s.Grants(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []auth.RoleName{"admin", "donor"}, roles)
	assert.Equal(t, []auth.Permission{"user_management", "report_access"}, perms)
}

func TestEnsureReportsInsert(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("insert into roles").WithArgs("donor", "Gives money").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into roles").WithArgs("donor", "Gives money").WillReturnResult(sqlmock.NewResult(0, 0))

	r := auth.RoleInfo{Name: "donor", Description: "Gives money"}
	ok, err := s.EnsureRole(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.EnsureRole(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementRaisedMissingProject(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("set raised_amount = raised_amount + $2")).
		WithArgs(int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.IncrementRaised(context.Background(), 5, 100)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFindDonationByKeyMiss(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("from donations d").WithArgs("u1", "key-1").WillReturnError(sql.ErrNoRows)

	_, ok, err := s.FindDonationByKey(context.Background(), "u1", "key-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchRejectsUnknownCategory(t *testing.T) {
	s, _ := newMock(t)
	_, err := s.Search(context.Background(), "weather", "rain", 10)
	assert.Error(t, err)
}

func TestSearchVisibleRows(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("from job_postings")).
		WithArgs("%driver%", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description"}).AddRow(1, "Driver", "Dhaka"))

	hits, err := s.Search(context.Background(), welfare.SearchJobs, "driver", 10)
	require.NoError(t, err)
	assert.Equal(t, []welfare.SearchHit{{ID: 1, Title: "Driver", Description: "Dhaka", Type: welfare.SearchJobs}}, hits)
}

func TestTextsScan(t *testing.T) {
	var v texts
	require.NoError(t, v.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, texts{"a", "b"}, v)
	require.NoError(t, v.Scan(nil))
	assert.Empty(t, v)
	assert.Equal(t, "[]", jsonList(nil))
}

func TestRefreshMismatchCommitsRevocation(t *testing.T) {
	s, mock := newMock(t)
	signer, err := auth.NewSigner("test-secret", "ongon-test", nil)
	require.NoError(t, err)
	svc, err := auth.NewService(s, signer, auth.WithTx(s))
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("from refresh_tokens where id = \\$1").
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked"}).
			AddRow("tok-1", "user-1", "0000", now.Add(time.Hour), now, false))
	mock.ExpectExec(regexp.QuoteMeta("update refresh_tokens set revoked = true where id = $1")).
		WithArgs("tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err = svc.Refresh(context.Background(), "tok-1.forged")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestLockEnrollmentTakesRowLock(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("where e.course_id = $1 and e.student_id = $2 for update of e")).
		WithArgs(int64(3), "student-1").
		WillReturnError(sql.ErrNoRows)

	_, err := s.LockEnrollment(context.Background(), 3, "student-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
