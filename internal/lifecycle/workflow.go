package lifecycle

import (
	"fmt"
	"slices"

	"ongon.org/internal/apperr"
)

// Status is a workflow state stored as text.
type Status string

// Workflow is a closed transition table. States without outgoing edges are
// terminal.
type Workflow struct {
	name    string
	initial Status
	edges   map[Status][]Status
}

// NewWorkflow builds a workflow named after the record it governs.
func NewWorkflow(name string, initial Status, edges map[Status][]Status) Workflow {
	return Workflow{name: name, initial: initial, edges: edges}
}

func (w Workflow) Name() string    { return w.name }
func (w Workflow) Initial() Status { return w.initial }

// Known reports whether s appears anywhere in the table.
func (w Workflow) Known(s Status) bool {
	if s == w.initial {
		return true
	}
	if _, ok := w.edges[s]; ok {
		return true
	}
	for _, targets := range w.edges {
		if slices.Contains(targets, s) {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (w Workflow) Terminal(s Status) bool {
	return len(w.edges[s]) == 0
}

// CanTransition reports whether from -> to is an edge.
func (w Workflow) CanTransition(from, to Status) bool {
	return slices.Contains(w.edges[from], to)
}

// Transition validates from -> to. Unknown targets are validation errors,
// illegal moves are conflicts.
func (w Workflow) Transition(from, to Status) error {
	if !w.Known(to) {
		return apperr.Validation("unknown %s status %q", w.name, to)
	}
	if !w.CanTransition(from, to) {
		return apperr.Conflict("cannot change %s status from %s to %s", w.name, from, to)
	}
	return nil
}

func (w Workflow) String() string {
	return fmt.Sprintf("workflow(%s)", w.name)
}

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusDisbursed   Status = "disbursed"
	StatusAccepted    Status = "accepted"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusRefunded    Status = "refunded"
	StatusSuccess     Status = "success"
	StatusActive      Status = "active"
	StatusClosed      Status = "closed"
	StatusDefaulted   Status = "defaulted"
	StatusCancelled   Status = "cancelled"
	StatusOnHold      Status = "on_hold"
	StatusFulfilled   Status = "fulfilled"
	StatusScheduled   Status = "scheduled"
	StatusApplied     Status = "applied"
	StatusShortlisted Status = "shortlisted"
	StatusInterviewed Status = "interviewed"
	StatusSelected    Status = "selected"
	StatusPlanned     Status = "planned"
	StatusPlanted     Status = "planted"
	StatusGrowing     Status = "growing"
	StatusHarvested   Status = "harvested"
)

var (
	LoanApplicationFlow = NewWorkflow("loan application", StatusPending, map[Status][]Status{
		StatusPending:  {StatusApproved, StatusRejected},
		StatusApproved: {StatusDisbursed},
	})

	ScholarshipApplicationFlow = NewWorkflow("scholarship application", StatusPending, map[Status][]Status{
		StatusPending: {StatusApproved, StatusRejected},
	})

	VolunteerApplicationFlow = NewWorkflow("volunteer application", StatusPending, map[Status][]Status{
		StatusPending: {StatusAccepted, StatusRejected},
	})

	JobApplicationFlow = NewWorkflow("job application", StatusApplied, map[Status][]Status{
		StatusApplied:     {StatusShortlisted, StatusRejected},
		StatusShortlisted: {StatusInterviewed, StatusRejected},
		StatusInterviewed: {StatusSelected, StatusRejected},
	})

	DonationFlow = NewWorkflow("donation", StatusPending, map[Status][]Status{
		StatusPending:   {StatusCompleted, StatusFailed},
		StatusCompleted: {StatusRefunded},
	})

	PaymentTransactionFlow = NewWorkflow("payment transaction", StatusPending, map[Status][]Status{
		StatusPending: {StatusSuccess, StatusFailed},
	})

	ProjectFlow = NewWorkflow("project", StatusActive, map[Status][]Status{
		StatusActive: {StatusOnHold, StatusCompleted, StatusCancelled},
		StatusOnHold: {StatusActive, StatusCancelled},
	})

	LoanFlow = NewWorkflow("loan", StatusActive, map[Status][]Status{
		StatusActive: {StatusClosed, StatusDefaulted},
	})

	CropCycleFlow = NewWorkflow("crop cycle", StatusPlanned, map[Status][]Status{
		StatusPlanned: {StatusPlanted, StatusFailed},
		StatusPlanted: {StatusGrowing, StatusFailed},
		StatusGrowing: {StatusHarvested, StatusFailed},
	})

	ProductInquiryFlow = NewWorkflow("product inquiry", StatusPending, map[Status][]Status{
		StatusPending:  {StatusAccepted, StatusRejected},
		StatusAccepted: {StatusCompleted},
	})

	ConsultationFlow = NewWorkflow("consultation", StatusScheduled, map[Status][]Status{
		StatusScheduled: {StatusCompleted, StatusCancelled},
	})

	BloodRequestFlow = NewWorkflow("blood request", StatusActive, map[Status][]Status{
		StatusActive: {StatusFulfilled, StatusCancelled},
	})
)
