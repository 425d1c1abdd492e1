package welfare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/lifecycle"
	"ongon.org/internal/obs"
	"ongon.org/internal/uow"
)

// Activity names a kind of capacity-limited activity users join.
type Activity string

const (
	ActivityCourse               Activity = "course"
	ActivityTrainingProgram      Activity = "training_program"
	ActivityEvent                Activity = "event"
	ActivityVolunteerOpportunity Activity = "volunteer_opportunity"
	ActivityJobPosting           Activity = "job_posting"
	ActivityScholarship          Activity = "scholarship"
	ActivityMedicalCamp          Activity = "medical_camp"
)

type activityText struct {
	entity    string
	closed    string
	duplicate string
}

var activities = map[Activity]activityText{
	ActivityCourse:               {"course", "Enrollment is closed for this course", "Already enrolled in this course"},
	ActivityTrainingProgram:      {"training program", "Enrollment is closed for this program", "Already enrolled in this program"},
	ActivityEvent:                {"event", "Registration is closed for this event", "Already registered for this event"},
	ActivityVolunteerOpportunity: {"volunteer opportunity", "Applications are closed for this opportunity", "Already applied for this opportunity"},
	ActivityJobPosting:           {"job posting", "Applications are closed for this job", "Already applied for this job"},
	ActivityScholarship:          {"scholarship", "Applications are closed for this scholarship", "Already applied for this scholarship"},
	ActivityMedicalCamp:          {"medical camp", "Registration is closed for this camp", "Already registered for this camp"},
}

// Entity is the human name of the activity kind.
func (a Activity) Entity() string { return activities[a].entity }

// Known reports whether a is a supported activity.
func (a Activity) Known() bool {
	_, ok := activities[a]
	return ok
}

// ParticipationStore locks activities and checks for existing participants.
type ParticipationStore interface {
	// LockActivity locks the activity row until the enclosing transaction
	// ends and returns its window with the current participant count.
	// A missing activity is apperr.ErrNotFound.
	LockActivity(ctx context.Context, kind Activity, id int64) (lifecycle.Window, error)
	HasParticipant(ctx context.Context, kind Activity, id int64, userID string) (bool, error)
}

// participation runs the join flow: fetch or 404, re-check the window,
// reject duplicates, insert. All steps share one transaction and the
// activity row stays locked until it commits, so two requests cannot both
// take the last place.
type participation struct {
	store ParticipationStore
	tx    uow.Runner
	now   func() time.Time
}

func (p participation) join(ctx context.Context, kind Activity, id int64, userID string, insert func(txCtx context.Context) error) error {
	text, ok := activities[kind]
	if !ok {
		return fmt.Errorf("unknown activity %q", kind)
	}
	err := p.tx.RunInTx(ctx, func(txCtx context.Context) error {
		window, err := p.store.LockActivity(txCtx, kind, id)
		if err != nil {
			return err
		}
		if !window.IsOpen(p.now()) {
			return apperr.Conflict("%s", text.closed)
		}
		exists, err := p.store.HasParticipant(txCtx, kind, id, userID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("%s", text.duplicate)
		}
		if err := insert(txCtx); err != nil {
			// The unique constraint backs up the existence check.
			if err == apperr.ErrConflict {
				return apperr.Conflict("%s", text.duplicate)
			}
			return err
		}
		return nil
	})
	obs.ObserveParticipation(string(kind), outcome(err))
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, apperr.ErrConflict):
		return "rejected"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
