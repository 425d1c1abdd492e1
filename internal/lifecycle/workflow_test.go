package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ongon.org/internal/apperr"
)

func TestApplicationWorkflowNoUnrejecting(t *testing.T) {
	flow := LoanApplicationFlow
	assert.Equal(t, StatusPending, flow.Initial())
	assert.NoError(t, flow.Transition(StatusPending, StatusApproved))
	assert.NoError(t, flow.Transition(StatusApproved, StatusDisbursed))

	err := flow.Transition(StatusRejected, StatusApproved)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.True(t, flow.Terminal(StatusRejected))
	assert.True(t, flow.Terminal(StatusDisbursed))
}

func TestWorkflowUnknownStatusIsValidation(t *testing.T) {
	err := ScholarshipApplicationFlow.Transition(StatusPending, Status("maybe"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestJobApplicationPipeline(t *testing.T) {
	flow := JobApplicationFlow
	path := []Status{StatusApplied, StatusShortlisted, StatusInterviewed, StatusSelected}
	for i := 0; i < len(path)-1; i++ {
		assert.NoError(t, flow.Transition(path[i], path[i+1]))
	}
	assert.Error(t, flow.Transition(StatusApplied, StatusSelected))
	for _, s := range path[:3] {
		assert.True(t, flow.CanTransition(s, StatusRejected), "reject from %s", s)
	}
}

func TestDonationCannotCompleteTwice(t *testing.T) {
	assert.NoError(t, DonationFlow.Transition(StatusPending, StatusCompleted))
	assert.ErrorIs(t, DonationFlow.Transition(StatusCompleted, StatusCompleted), apperr.ErrConflict)
}
