package pg

import (
	"context"
	"database/sql"
	"fmt"

	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

// activityTable describes where an activity and its participants live.
type activityTable struct {
	table    string
	active   string
	capacity string // empty when uncapped
	deadline string
	instant  bool   // deadline is a timestamp rather than a date
	joins    string // participant table
	parent   string // participant column referencing the activity
	member   string // participant column holding the user
	counted  string // extra predicate on counted participants
}

var activityTables = map[welfare.Activity]activityTable{
	welfare.ActivityCourse: {
		table: "courses", active: "is_published", capacity: "enrollment_limit", deadline: "end_date",
		joins: "course_enrollments", parent: "course_id", member: "student_id",
	},
	welfare.ActivityTrainingProgram: {
		table: "training_programs", active: "is_active", capacity: "max_participants", deadline: "end_date",
		joins: "training_enrollments", parent: "program_id", member: "participant_id",
	},
	welfare.ActivityEvent: {
		table: "events", active: "is_active", capacity: "capacity", deadline: "registration_deadline", instant: true,
		joins: "event_registrations", parent: "event_id", member: "participant_id",
	},
	welfare.ActivityVolunteerOpportunity: {
		table: "volunteer_opportunities", active: "is_active", capacity: "volunteers_needed", deadline: "end_date",
		joins: "volunteer_applications", parent: "opportunity_id", member: "volunteer_id",
	},
	welfare.ActivityJobPosting: {
		table: "job_postings", active: "is_active", deadline: "application_deadline",
		joins: "job_applications", parent: "job_id", member: "applicant_id",
	},
	welfare.ActivityScholarship: {
		table: "scholarships", active: "is_active", capacity: "total_slots", deadline: "application_deadline",
		joins: "scholarship_applications", parent: "scholarship_id", member: "applicant_id", counted: "status = 'approved'",
	},
	welfare.ActivityMedicalCamp: {
		table: "medical_camps", active: "is_active", capacity: "capacity", deadline: "end_date",
		joins: "camp_registrations", parent: "camp_id", member: "user_id",
	},
}

func tableFor(kind welfare.Activity) (activityTable, error) {
	t, ok := activityTables[kind]
	if !ok {
		return activityTable{}, fmt.Errorf("unknown activity %q", kind)
	}
	return t, nil
}

// LockActivity takes a row lock on the activity for the rest of the
// transaction, then counts its participants.
func (s *Store) LockActivity(ctx context.Context, kind welfare.Activity, id int64) (lifecycle.Window, error) {
	t, err := tableFor(kind)
	if err != nil {
		return lifecycle.Window{}, err
	}
	capacity := "null::integer"
	if t.capacity != "" {
		capacity = t.capacity
	}
	var (
		w       lifecycle.Window
		limit   sql.NullInt64
		day     lifecycle.Date
		instant sql.NullTime
	)
	var deadline any = &day
	if t.instant {
		deadline = &instant
	}
	q := fmt.Sprintf(`select %s, %s, %s from %s where id = $1 for update`, t.active, capacity, t.deadline, t.table)
	if err := s.conn(ctx).QueryRowContext(ctx, q, id).Scan(&w.Active, &limit, deadline); err != nil {
		return lifecycle.Window{}, mapError(err, kind.Entity())
	}
	if limit.Valid {
		n := int(limit.Int64)
		w.Capacity = &n
	}
	switch {
	case t.instant && instant.Valid:
		w.Deadline = lifecycle.AtInstant(instant.Time)
	case !t.instant && !day.IsZero():
		w.Deadline = lifecycle.OnDate(day)
	}
	if w.Capacity != nil {
		count := fmt.Sprintf(`select count(*) from %s where %s = $1`, t.joins, t.parent)
		if t.counted != "" {
			count += " and " + t.counted
		}
		if err := s.conn(ctx).QueryRowContext(ctx, count, id).Scan(&w.Count); err != nil {
			return lifecycle.Window{}, err
		}
	}
	return w, nil
}

func (s *Store) HasParticipant(ctx context.Context, kind welfare.Activity, id int64, userID string) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var exists bool
	q := fmt.Sprintf(`select exists (select 1 from %s where %s = $1 and %s = $2)`, t.joins, t.parent, t.member)
	err = s.conn(ctx).QueryRowContext(ctx, q, id, userID).Scan(&exists)
	return exists, err
}
