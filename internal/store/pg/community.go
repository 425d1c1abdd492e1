package pg

import (
	"context"
	"time"

	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

const forumSelect = `
	select f.id, f.name, f.description, f.category, f.moderator_id, f.is_public, f.is_active,
		(select count(*) from forum_posts p where p.forum_id = f.id), f.created_at
	from forums f`

func scanForum(row scanner) (welfare.Forum, error) {
	var f welfare.Forum
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.Category, &f.ModeratorID, &f.IsPublic, &f.IsActive,
		&f.PostCount, &f.CreatedAt)
	return f, mapError(err, "Forum")
}

func (s *Store) ListForums(ctx context.Context) ([]welfare.Forum, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, forumSelect+` where f.is_active and f.is_public order by f.name`)
	return collect(rows, err, scanForum)
}

func (s *Store) GetForum(ctx context.Context, id int64) (welfare.Forum, error) {
	return scanForum(s.conn(ctx).QueryRowContext(ctx, forumSelect+` where f.id = $1`, id))
}

func (s *Store) CreateForum(ctx context.Context, moderatorID string, in welfare.ForumInput) (welfare.Forum, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into forums (name, description, category, moderator_id, is_public)
		values ($1, $2, $3, $4, coalesce($5, true))
		returning id
	`, in.Name, in.Description, in.Category, moderatorID, in.IsPublic).Scan(&id)
	if err != nil {
		return welfare.Forum{}, mapError(err, "Forum")
	}
	return s.GetForum(ctx, id)
}

const forumPostSelect = `
	select p.id, p.forum_id, p.author_id, p.title, p.content, p.is_pinned, p.is_locked, p.views_count,
		p.likes_count, (select count(*) from forum_replies r where r.post_id = p.id), p.created_at, p.updated_at
	from forum_posts p`

func scanForumPost(row scanner) (welfare.ForumPost, error) {
	var p welfare.ForumPost
	err := row.Scan(&p.ID, &p.ForumID, &p.AuthorID, &p.Title, &p.Content, &p.IsPinned, &p.IsLocked, &p.ViewsCount,
		&p.LikesCount, &p.ReplyCount, &p.CreatedAt, &p.UpdatedAt)
	return p, mapError(err, "Post")
}

// ListForumPosts puts pinned posts first.
func (s *Store) ListForumPosts(ctx context.Context, forumID int64, pg welfare.Page) ([]welfare.ForumPost, int, error) {
	var w filter
	w.add("p.forum_id = ?", forumID)
	total, err := s.count(ctx, `select count(*) from forum_posts p`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := forumPostSelect + w.where() + ` order by p.is_pinned desc, p.created_at desc` + w.page(pg.Limit(), pg.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanForumPost)
	return items, total, err
}

func (s *Store) GetForumPost(ctx context.Context, id int64) (welfare.ForumPost, error) {
	return scanForumPost(s.conn(ctx).QueryRowContext(ctx, forumPostSelect+` where p.id = $1`, id))
}

func (s *Store) CreateForumPost(ctx context.Context, forumID int64, authorID string, in welfare.ForumPostInput) (welfare.ForumPost, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into forum_posts (forum_id, author_id, title, content) values ($1, $2, $3, $4) returning id
	`, forumID, authorID, in.Title, in.Content).Scan(&id)
	if err != nil {
		return welfare.ForumPost{}, mapError(err, "Forum")
	}
	return scanForumPost(s.conn(ctx).QueryRowContext(ctx, forumPostSelect+` where p.id = $1`, id))
}

const forumReplyColumns = `id, post_id, author_id, content, parent_reply_id, likes_count, created_at`

func scanForumReply(row scanner) (welfare.ForumReply, error) {
	var r welfare.ForumReply
	err := row.Scan(&r.ID, &r.PostID, &r.AuthorID, &r.Content, &r.ParentReplyID, &r.LikesCount, &r.CreatedAt)
	return r, mapError(err, "Reply")
}

func (s *Store) ListForumReplies(ctx context.Context, postID int64) ([]welfare.ForumReply, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select `+forumReplyColumns+` from forum_replies where post_id = $1 order by created_at, id`, postID)
	return collect(rows, err, scanForumReply)
}

func (s *Store) GetForumReply(ctx context.Context, id int64) (welfare.ForumReply, error) {
	return scanForumReply(s.conn(ctx).QueryRowContext(ctx,
		`select `+forumReplyColumns+` from forum_replies where id = $1`, id))
}

func (s *Store) CreateForumReply(ctx context.Context, postID int64, authorID string, in welfare.ForumReplyInput) (welfare.ForumReply, error) {
	return scanForumReply(s.conn(ctx).QueryRowContext(ctx, `
		insert into forum_replies (post_id, author_id, content, parent_reply_id)
		values ($1, $2, $3, $4)
		returning `+forumReplyColumns,
		postID, authorID, in.Content, in.ParentReplyID))
}

const eventSelect = `
	select e.id, e.title, e.description, e.event_type, e.organizer_id, e.start_datetime, e.end_datetime,
		e.location_address, e.is_online, e.meeting_link, e.capacity, e.registration_fee,
		e.registration_deadline, e.is_public, e.is_active,
		(select count(*) from event_registrations r where r.event_id = e.id), e.created_at
	from events e`

func scanEvent(row scanner) (welfare.Event, error) {
	var e welfare.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventType, &e.OrganizerID, &e.StartDatetime, &e.EndDatetime,
		&e.LocationAddress, &e.IsOnline, &e.MeetingLink, &e.Capacity, &e.RegistrationFee,
		&e.RegistrationDeadline, &e.IsPublic, &e.IsActive, &e.RegistrationCount, &e.CreatedAt)
	return e, mapError(err, "Event")
}

// ListEvents returns active public events that have not started before from.
func (s *Store) ListEvents(ctx context.Context, f welfare.EventFilter, from time.Time, p welfare.Page) ([]welfare.Event, int, error) {
	var w filter
	w.add("e.is_active and e.is_public")
	w.add("(e.start_datetime is null or e.start_datetime >= ?)", from)
	if f.EventType != "" {
		w.add("e.event_type = ?", f.EventType)
	}
	if f.Location != "" {
		w.add("e.location_address ilike ?", like(f.Location))
	}
	total, err := s.count(ctx, `select count(*) from events e`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := eventSelect + w.where() + ` order by e.start_datetime nulls last, e.id` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanEvent)
	return items, total, err
}

func (s *Store) GetEvent(ctx context.Context, id int64) (welfare.Event, error) {
	return scanEvent(s.conn(ctx).QueryRowContext(ctx, eventSelect+` where e.id = $1`, id))
}

func (s *Store) CreateEvent(ctx context.Context, organizerID string, in welfare.EventInput) (welfare.Event, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into events (title, description, event_type, organizer_id, start_datetime, end_datetime,
			location_address, is_online, meeting_link, capacity, registration_fee, registration_deadline, is_public)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, coalesce($13, true))
		returning id
	`, in.Title, in.Description, in.EventType, organizerID, in.StartDatetime, in.EndDatetime,
		in.LocationAddress, in.IsOnline, in.MeetingLink, in.Capacity, in.RegistrationFee, in.RegistrationDeadline,
		in.IsPublic).Scan(&id)
	if err != nil {
		return welfare.Event{}, mapError(err, "Event")
	}
	return s.GetEvent(ctx, id)
}

const eventRegistrationSelect = `
	select r.id, r.event_id, e.title, e.start_datetime, r.participant_id, r.registration_date,
		r.attendance_status, r.payment_status, r.special_requirements
	from event_registrations r
	join events e on e.id = r.event_id`

func scanEventRegistration(row scanner) (welfare.EventRegistration, error) {
	var r welfare.EventRegistration
	err := row.Scan(&r.ID, &r.EventID, &r.EventTitle, &r.StartDatetime, &r.ParticipantID, &r.RegistrationDate,
		&r.AttendanceStatus, &r.PaymentStatus, &r.SpecialRequirements)
	return r, mapError(err, "Registration")
}

// CreateEventRegistration marks free events as paid.
func (s *Store) CreateEventRegistration(ctx context.Context, eventID int64, participantID, requirements string) (welfare.EventRegistration, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into event_registrations (event_id, participant_id, special_requirements, payment_status)
		select $1, $2, $3, case when e.registration_fee = 0 then 'paid' else 'pending' end
		from events e where e.id = $1
		returning id
	`, eventID, participantID, requirements).Scan(&id)
	if err != nil {
		return welfare.EventRegistration{}, mapError(err, "Event")
	}
	return scanEventRegistration(s.conn(ctx).QueryRowContext(ctx, eventRegistrationSelect+` where r.id = $1`, id))
}

func (s *Store) ListEventRegistrationsByParticipant(ctx context.Context, participantID string) ([]welfare.EventRegistration, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		eventRegistrationSelect+` where r.participant_id = $1 order by e.start_datetime desc nulls last`, participantID)
	return collect(rows, err, scanEventRegistration)
}

const opportunitySelect = `
	select o.id, o.title, o.description, o.organization_id, o.category, o.skills_required, o.time_commitment,
		o.location_address, o.is_remote, o.start_date, o.end_date, o.volunteers_needed, o.is_active,
		(select count(*) from volunteer_applications a where a.opportunity_id = o.id),
		o.created_at
	from volunteer_opportunities o`

func scanOpportunity(row scanner) (welfare.VolunteerOpportunity, error) {
	var (
		o      welfare.VolunteerOpportunity
		skills texts
	)
	err := row.Scan(&o.ID, &o.Title, &o.Description, &o.OrganizationID, &o.Category, &skills, &o.TimeCommitment,
		&o.LocationAddress, &o.IsRemote, &o.StartDate, &o.EndDate, &o.VolunteersNeeded, &o.IsActive,
		&o.ApplicationCount, &o.CreatedAt)
	o.SkillsRequired = skills
	return o, mapError(err, "Volunteer opportunity")
}

func (s *Store) ListVolunteerOpportunities(ctx context.Context, category string, p welfare.Page) ([]welfare.VolunteerOpportunity, int, error) {
	var w filter
	w.add("o.is_active")
	if category != "" {
		w.add("o.category = ?", category)
	}
	total, err := s.count(ctx, `select count(*) from volunteer_opportunities o`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := opportunitySelect + w.where() + ` order by o.start_date nulls last, o.id` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanOpportunity)
	return items, total, err
}

func (s *Store) GetVolunteerOpportunity(ctx context.Context, id int64) (welfare.VolunteerOpportunity, error) {
	return scanOpportunity(s.conn(ctx).QueryRowContext(ctx, opportunitySelect+` where o.id = $1`, id))
}

func (s *Store) CreateVolunteerOpportunity(ctx context.Context, organizationID string, in welfare.VolunteerOpportunityInput) (welfare.VolunteerOpportunity, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into volunteer_opportunities (title, description, organization_id, category, skills_required,
			time_commitment, location_address, is_remote, start_date, end_date, volunteers_needed)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning id
	`, in.Title, in.Description, organizationID, in.Category, jsonList(in.SkillsRequired),
		in.TimeCommitment, in.LocationAddress, in.IsRemote, in.StartDate, in.EndDate, in.VolunteersNeeded).Scan(&id)
	if err != nil {
		return welfare.VolunteerOpportunity{}, mapError(err, "Volunteer opportunity")
	}
	return s.GetVolunteerOpportunity(ctx, id)
}

const volunteerApplicationSelect = `
	select a.id, a.opportunity_id, o.title, o.organization_id, a.volunteer_id, a.motivation, a.availability,
		a.status, a.applied_at, a.reviewed_at, a.reviewed_by
	from volunteer_applications a
	join volunteer_opportunities o on o.id = a.opportunity_id`

func scanVolunteerApplication(row scanner) (welfare.VolunteerApplication, error) {
	var a welfare.VolunteerApplication
	err := row.Scan(&a.ID, &a.OpportunityID, &a.OpportunityTitle, &a.OrganizationID, &a.VolunteerID, &a.Motivation,
		&a.Availability, &a.Status, &a.AppliedAt, &a.ReviewedAt, &a.ReviewedBy)
	return a, mapError(err, "Volunteer application")
}

func (s *Store) CreateVolunteerApplication(ctx context.Context, a welfare.VolunteerApplication) (welfare.VolunteerApplication, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into volunteer_applications (opportunity_id, volunteer_id, motivation, availability, status, applied_at)
		values ($1, $2, $3, $4, $5, $6)
		returning id
	`, a.OpportunityID, a.VolunteerID, a.Motivation, a.Availability, a.Status, a.AppliedAt).Scan(&id)
	if err != nil {
		return welfare.VolunteerApplication{}, mapError(err, "Volunteer opportunity")
	}
	return s.GetVolunteerApplication(ctx, id)
}

func (s *Store) GetVolunteerApplication(ctx context.Context, id int64) (welfare.VolunteerApplication, error) {
	return scanVolunteerApplication(s.conn(ctx).QueryRowContext(ctx, volunteerApplicationSelect+` where a.id = $1`, id))
}

func (s *Store) ListVolunteerApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]welfare.VolunteerApplication, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		volunteerApplicationSelect+` where a.volunteer_id = $1 order by a.applied_at desc`, volunteerID)
	return collect(rows, err, scanVolunteerApplication)
}

func (s *Store) ReviewVolunteerApplication(ctx context.Context, id int64, status lifecycle.Status, reviewerID string, at time.Time) (welfare.VolunteerApplication, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update volunteer_applications set status = $2, reviewed_by = $3, reviewed_at = $4 where id = $1
	`, id, status, reviewerID, at)
	if err != nil {
		return welfare.VolunteerApplication{}, err
	}
	if err := affected(res, "Volunteer application"); err != nil {
		return welfare.VolunteerApplication{}, err
	}
	return s.GetVolunteerApplication(ctx, id)
}

const volunteerHoursSelect = `
	select h.id, h.volunteer_id, h.opportunity_id, o.organization_id, h.date, h.hours_worked,
		h.activity_description, h.verified_by, h.verified_at, h.created_at
	from volunteer_hours h
	left join volunteer_opportunities o on o.id = h.opportunity_id`

func scanVolunteerHours(row scanner) (welfare.VolunteerHours, error) {
	var h welfare.VolunteerHours
	err := row.Scan(&h.ID, &h.VolunteerID, &h.OpportunityID, &h.OrganizationID, &h.Date, &h.HoursWorked,
		&h.ActivityDescription, &h.VerifiedBy, &h.VerifiedAt, &h.CreatedAt)
	h.IsVerified = h.VerifiedAt != nil
	return h, mapError(err, "Volunteer hours")
}

func (s *Store) CreateVolunteerHours(ctx context.Context, volunteerID string, in welfare.VolunteerHoursInput) (welfare.VolunteerHours, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into volunteer_hours (volunteer_id, opportunity_id, date, hours_worked, activity_description)
		values ($1, $2, $3, $4, $5)
		returning id
	`, volunteerID, in.OpportunityID, in.Date, in.HoursWorked, in.ActivityDescription).Scan(&id)
	if err != nil {
		return welfare.VolunteerHours{}, mapError(err, "Volunteer opportunity")
	}
	return s.GetVolunteerHours(ctx, id)
}

func (s *Store) GetVolunteerHours(ctx context.Context, id int64) (welfare.VolunteerHours, error) {
	return scanVolunteerHours(s.conn(ctx).QueryRowContext(ctx, volunteerHoursSelect+` where h.id = $1`, id))
}

func (s *Store) ListVolunteerHoursByVolunteer(ctx context.Context, volunteerID string) ([]welfare.VolunteerHours, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		volunteerHoursSelect+` where h.volunteer_id = $1 order by h.date desc, h.id desc`, volunteerID)
	return collect(rows, err, scanVolunteerHours)
}

func (s *Store) VerifyVolunteerHours(ctx context.Context, id int64, verifierID string, at time.Time) (welfare.VolunteerHours, error) {
	res, err := s.conn(ctx).ExecContext(ctx,
		`update volunteer_hours set verified_by = $2, verified_at = $3 where id = $1`, id, verifierID, at)
	if err != nil {
		return welfare.VolunteerHours{}, err
	}
	if err := affected(res, "Volunteer hours"); err != nil {
		return welfare.VolunteerHours{}, err
	}
	return s.GetVolunteerHours(ctx, id)
}

func (s *Store) AddVolunteerHours(ctx context.Context, volunteerID string, hours float64) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		update volunteer_profiles
		set total_hours_volunteered = total_hours_volunteered + $2, updated_at = now()
		where user_id = $1
	`, volunteerID, hours)
	return err
}
