package welfare

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
)

func TestCreateCourseRequiresEducatorOrPermission(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()
	in := CourseInput{Title: "Digital literacy"}

	_, err := svc.Education.CreateCourse(ctx, user("learner", auth.RoleBeneficiary), in)
	requireKind(t, err, apperr.ErrForbidden, "Insufficient permissions")
	assert.Equal(t, http.StatusForbidden, apperr.Status(err))

	c, err := svc.Education.CreateCourse(ctx, user("instructor", auth.RoleEducator), in)
	require.NoError(t, err)
	assert.Equal(t, "instructor", c.InstructorID)

	_, err = svc.Education.CreateCourse(ctx, manager("staff", auth.PermCourseManagement), in)
	require.NoError(t, err)
}

func TestCreateCourseValidation(t *testing.T) {
	svc, _, _ := newServices(t)
	ctx := context.Background()
	instructor := user("instructor", auth.RoleEducator)

	_, err := svc.Education.CreateCourse(ctx, instructor, CourseInput{Title: "  "})
	requireKind(t, err, apperr.ErrValidation, "title is required")

	_, err = svc.Education.CreateCourse(ctx, instructor, CourseInput{Title: "Bookkeeping", EnrollmentLimit: ptr(-1)})
	requireKind(t, err, apperr.ErrValidation, "enrollment_limit cannot be negative")
}

// submissionStore records the order of store calls made while submitting.
type submissionStore struct {
	Store

	calls       []string
	submissions int
}

func (s *submissionStore) GetAssessment(_ context.Context, id int64) (Assessment, error) {
	s.calls = append(s.calls, "assessment")
	return Assessment{
		ID:              id,
		CourseID:        3,
		AttemptsAllowed: 1,
		Questions:       []Question{{ID: 1, Type: "multiple_choice", Marks: 5}},
	}, nil
}

func (s *submissionStore) LockEnrollment(_ context.Context, courseID int64, studentID string) (Enrollment, error) {
	s.calls = append(s.calls, "lock")
	if studentID != "student" {
		return Enrollment{}, apperr.NotFound("enrollment")
	}
	return Enrollment{ID: 1, CourseID: courseID, StudentID: studentID}, nil
}

func (s *submissionStore) CountSubmissions(context.Context, int64, string) (int, error) {
	s.calls = append(s.calls, "count")
	return s.submissions, nil
}

func (s *submissionStore) AnswerKey(context.Context, int64) (map[int64]string, error) {
	return map[int64]string{1: "b"}, nil
}

func (s *submissionStore) CreateSubmission(_ context.Context, sub Submission) (Submission, error) {
	s.calls = append(s.calls, "insert")
	s.submissions++
	sub.ID = int64(s.submissions)
	return sub, nil
}

func TestSubmitLocksEnrollmentBeforeCountingAttempts(t *testing.T) {
	store := &submissionStore{}
	svc, err := New(store, &fakeRoles{}, WithClock(func() time.Time { return testNow }), WithTx(&serialRunner{}))
	require.NoError(t, err)
	ctx := context.Background()

	sub, err := svc.Education.Submit(ctx, user("student"), 9, map[string]string{"1": "b"})
	require.NoError(t, err)
	require.NotNil(t, sub.ObtainedMarks)
	assert.Equal(t, 5, *sub.ObtainedMarks)
	assert.Equal(t, []string{"assessment", "lock", "count", "insert"}, store.calls)

	_, err = svc.Education.Submit(ctx, user("student"), 9, map[string]string{"1": "a"})
	requireKind(t, err, apperr.ErrConflict, "Maximum attempts exceeded")

	_, err = svc.Education.Submit(ctx, user("stranger"), 9, nil)
	requireKind(t, err, apperr.ErrForbidden, "Access denied")
}
