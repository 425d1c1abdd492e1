package welfare

import (
	"context"
	"strings"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
)

// Forum is a discussion board.
type Forum struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	ModeratorID *string   `json:"moderator_id"`
	IsPublic    bool      `json:"is_public"`
	IsActive    bool      `json:"is_active"`
	PostCount   int       `json:"post_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ForumInput creates a forum.
type ForumInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsPublic    *bool  `json:"is_public"`
}

// ForumPost is a thread in a forum.
type ForumPost struct {
	ID         int64     `json:"id"`
	ForumID    int64     `json:"forum_id"`
	AuthorID   string    `json:"author_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	IsPinned   bool      `json:"is_pinned"`
	IsLocked   bool      `json:"is_locked"`
	ViewsCount int       `json:"views_count"`
	LikesCount int       `json:"likes_count"`
	ReplyCount int       `json:"reply_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ForumPostInput starts a thread.
type ForumPostInput struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

// ForumReply answers a post, optionally nested under another reply.
type ForumReply struct {
	ID            int64     `json:"id"`
	PostID        int64     `json:"post_id"`
	AuthorID      string    `json:"author_id"`
	Content       string    `json:"content"`
	ParentReplyID *int64    `json:"parent_reply_id"`
	LikesCount    int       `json:"likes_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// ForumReplyInput answers a post.
type ForumReplyInput struct {
	Content       string `json:"content" validate:"required"`
	ParentReplyID *int64 `json:"parent_reply_id"`
}

// Event is a community gathering with a registration deadline.
type Event struct {
	ID                   int64        `json:"id"`
	Title                string       `json:"title"`
	Description          string       `json:"description,omitempty"`
	EventType            string       `json:"event_type,omitempty"`
	OrganizerID          string       `json:"organizer_id"`
	StartDatetime        *time.Time   `json:"start_datetime"`
	EndDatetime          *time.Time   `json:"end_datetime"`
	LocationAddress      string       `json:"location_address,omitempty"`
	IsOnline             bool         `json:"is_online"`
	MeetingLink          string       `json:"meeting_link,omitempty"`
	Capacity             *int         `json:"capacity"`
	RegistrationFee      ledger.Money `json:"registration_fee"`
	RegistrationDeadline *time.Time   `json:"registration_deadline"`
	IsPublic             bool         `json:"is_public"`
	IsActive             bool         `json:"is_active"`
	RegistrationCount    int          `json:"registration_count"`
	IsRegistrationOpen   bool         `json:"is_registration_open"`
	CreatedAt            time.Time    `json:"created_at"`
}

// Window is the event's registration window. The deadline is an instant.
func (e Event) Window() lifecycle.Window {
	w := lifecycle.Window{Active: e.IsActive, Capacity: e.Capacity, Count: e.RegistrationCount}
	if e.RegistrationDeadline != nil {
		w.Deadline = lifecycle.AtInstant(*e.RegistrationDeadline)
	}
	return w
}

// EventInput creates an event.
type EventInput struct {
	Title                string       `json:"title" validate:"required,max=255"`
	Description          string       `json:"description"`
	EventType            string       `json:"event_type" validate:"omitempty,oneof=workshop seminar camp fundraiser"`
	StartDatetime        *time.Time   `json:"start_datetime"`
	EndDatetime          *time.Time   `json:"end_datetime"`
	LocationAddress      string       `json:"location_address"`
	IsOnline             bool         `json:"is_online"`
	MeetingLink          string       `json:"meeting_link"`
	Capacity             *int         `json:"capacity" validate:"omitempty,min=0"`
	RegistrationFee      ledger.Money `json:"registration_fee" validate:"min=0"`
	RegistrationDeadline *time.Time   `json:"registration_deadline"`
	IsPublic             *bool        `json:"is_public"`
}

// EventFilter narrows event listings.
type EventFilter struct {
	EventType string
	Location  string
}

// EventRegistration is a participant's seat at an event.
type EventRegistration struct {
	ID                  int64      `json:"id"`
	EventID             int64      `json:"event_id"`
	EventTitle          string     `json:"event_title,omitempty"`
	StartDatetime       *time.Time `json:"start_datetime,omitempty"`
	ParticipantID       string     `json:"participant_id"`
	RegistrationDate    time.Time  `json:"registration_date"`
	AttendanceStatus    string     `json:"attendance_status"`
	PaymentStatus       string     `json:"payment_status"`
	SpecialRequirements string     `json:"special_requirements,omitempty"`
}

// VolunteerOpportunity is a call for volunteers.
type VolunteerOpportunity struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	OrganizationID   string         `json:"organization_id"`
	Category         string         `json:"category,omitempty"`
	SkillsRequired   []string       `json:"skills_required"`
	TimeCommitment   string         `json:"time_commitment,omitempty"`
	LocationAddress  string         `json:"location_address,omitempty"`
	IsRemote         bool           `json:"is_remote"`
	StartDate        lifecycle.Date `json:"start_date"`
	EndDate          lifecycle.Date `json:"end_date"`
	VolunteersNeeded *int           `json:"volunteers_needed"`
	IsActive         bool           `json:"is_active"`
	ApplicationCount int            `json:"application_count"`
	IsOpen           bool           `json:"is_open"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Window is the opportunity's application window.
func (v VolunteerOpportunity) Window() lifecycle.Window {
	return lifecycle.Window{
		Active:   v.IsActive,
		Capacity: v.VolunteersNeeded,
		Count:    v.ApplicationCount,
		Deadline: lifecycle.OnDate(v.EndDate),
	}
}

// VolunteerOpportunityInput creates an opportunity.
type VolunteerOpportunityInput struct {
	Title            string         `json:"title" validate:"required,max=255"`
	Description      string         `json:"description"`
	Category         string         `json:"category" validate:"omitempty,oneof=education healthcare environment disaster_relief"`
	SkillsRequired   []string       `json:"skills_required"`
	TimeCommitment   string         `json:"time_commitment"`
	LocationAddress  string         `json:"location_address"`
	IsRemote         bool           `json:"is_remote"`
	StartDate        lifecycle.Date `json:"start_date"`
	EndDate          lifecycle.Date `json:"end_date"`
	VolunteersNeeded *int           `json:"volunteers_needed" validate:"omitempty,min=0"`
}

// VolunteerApplication is a volunteer's application to an opportunity.
type VolunteerApplication struct {
	ID               int64            `json:"id"`
	OpportunityID    int64            `json:"opportunity_id"`
	OpportunityTitle string           `json:"opportunity_title,omitempty"`
	OrganizationID   string           `json:"-"`
	VolunteerID      string           `json:"volunteer_id"`
	Motivation       string           `json:"motivation,omitempty"`
	Availability     string           `json:"availability,omitempty"`
	Status           lifecycle.Status `json:"status"`
	AppliedAt        time.Time        `json:"applied_at"`
	ReviewedAt       *time.Time       `json:"reviewed_at"`
	ReviewedBy       *string          `json:"reviewed_by"`
}

// VolunteerHours is a logged work session.
type VolunteerHours struct {
	ID                  int64          `json:"id"`
	VolunteerID         string         `json:"volunteer_id"`
	OpportunityID       *int64         `json:"opportunity_id"`
	OrganizationID      *string        `json:"-"`
	Date                lifecycle.Date `json:"date"`
	HoursWorked         float64        `json:"hours_worked"`
	ActivityDescription string         `json:"activity_description,omitempty"`
	VerifiedBy          *string        `json:"verified_by"`
	VerifiedAt          *time.Time     `json:"verified_at"`
	IsVerified          bool           `json:"is_verified"`
	CreatedAt           time.Time      `json:"created_at"`
}

// VolunteerHoursInput logs hours.
type VolunteerHoursInput struct {
	OpportunityID       *int64         `json:"opportunity_id"`
	Date                lifecycle.Date `json:"date"`
	HoursWorked         float64        `json:"hours_worked" validate:"gt=0,lte=24"`
	ActivityDescription string         `json:"activity_description"`
}

// CommunityStore persists forums, events and volunteering.
type CommunityStore interface {
	ListForums(ctx context.Context) ([]Forum, error)
	GetForum(ctx context.Context, id int64) (Forum, error)
	CreateForum(ctx context.Context, moderatorID string, in ForumInput) (Forum, error)
	ListForumPosts(ctx context.Context, forumID int64, p Page) ([]ForumPost, int, error)
	GetForumPost(ctx context.Context, id int64) (ForumPost, error)
	CreateForumPost(ctx context.Context, forumID int64, authorID string, in ForumPostInput) (ForumPost, error)
	ListForumReplies(ctx context.Context, postID int64) ([]ForumReply, error)
	GetForumReply(ctx context.Context, id int64) (ForumReply, error)
	CreateForumReply(ctx context.Context, postID int64, authorID string, in ForumReplyInput) (ForumReply, error)

	ListEvents(ctx context.Context, f EventFilter, from time.Time, p Page) ([]Event, int, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	CreateEvent(ctx context.Context, organizerID string, in EventInput) (Event, error)
	CreateEventRegistration(ctx context.Context, eventID int64, participantID, requirements string) (EventRegistration, error)
	ListEventRegistrationsByParticipant(ctx context.Context, participantID string) ([]EventRegistration, error)

	ListVolunteerOpportunities(ctx context.Context, category string, p Page) ([]VolunteerOpportunity, int, error)
	GetVolunteerOpportunity(ctx context.Context, id int64) (VolunteerOpportunity, error)
	CreateVolunteerOpportunity(ctx context.Context, organizationID string, in VolunteerOpportunityInput) (VolunteerOpportunity, error)
	CreateVolunteerApplication(ctx context.Context, a VolunteerApplication) (VolunteerApplication, error)
	GetVolunteerApplication(ctx context.Context, id int64) (VolunteerApplication, error)
	ListVolunteerApplicationsByVolunteer(ctx context.Context, volunteerID string) ([]VolunteerApplication, error)
	ReviewVolunteerApplication(ctx context.Context, id int64, status lifecycle.Status, reviewerID string, at time.Time) (VolunteerApplication, error)
	CreateVolunteerHours(ctx context.Context, volunteerID string, in VolunteerHoursInput) (VolunteerHours, error)
	GetVolunteerHours(ctx context.Context, id int64) (VolunteerHours, error)
	ListVolunteerHoursByVolunteer(ctx context.Context, volunteerID string) ([]VolunteerHours, error)
	VerifyVolunteerHours(ctx context.Context, id int64, verifierID string, at time.Time) (VolunteerHours, error)
	// AddVolunteerHours adds to the volunteer profile total when one exists.
	AddVolunteerHours(ctx context.Context, volunteerID string, hours float64) error
}

// Community implements forums, events and volunteering.
type Community struct {
	*base
	store CommunityStore
}

// Forums lists active public forums.
func (s *Community) Forums(ctx context.Context) ([]Forum, error) {
	return s.store.ListForums(ctx)
}

// CreateForum opens a forum moderated by the caller.
func (s *Community) CreateForum(ctx context.Context, p auth.Principal, in ForumInput) (Forum, error) {
	if !p.HasPermission(auth.PermEventManagement) {
		return Forum{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := required("name", in.Name); err != nil {
		return Forum{}, err
	}
	f, err := s.store.CreateForum(ctx, p.ID(), in)
	if err == apperr.ErrConflict {
		return Forum{}, apperr.Conflict("Forum %q already exists", in.Name)
	}
	return f, err
}

func (s *Community) openForum(ctx context.Context, id int64) (Forum, error) {
	f, err := s.store.GetForum(ctx, id)
	if err != nil {
		return Forum{}, err
	}
	if !f.IsActive {
		return Forum{}, apperr.NotFound("forum")
	}
	return f, nil
}

// Posts lists a forum's threads, pinned first.
func (s *Community) Posts(ctx context.Context, forumID int64, p Page) (List[ForumPost], error) {
	if _, err := s.openForum(ctx, forumID); err != nil {
		return List[ForumPost]{}, err
	}
	items, total, err := s.store.ListForumPosts(ctx, forumID, p)
	if err != nil {
		return List[ForumPost]{}, err
	}
	return NewList(items, total, p), nil
}

// CreatePost starts a thread.
func (s *Community) CreatePost(ctx context.Context, p auth.Principal, forumID int64, in ForumPostInput) (ForumPost, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := required("title", in.Title); err != nil {
		return ForumPost{}, err
	}
	if err := required("content", in.Content); err != nil {
		return ForumPost{}, err
	}
	if _, err := s.openForum(ctx, forumID); err != nil {
		return ForumPost{}, err
	}
	return s.store.CreateForumPost(ctx, forumID, p.ID(), in)
}

// Replies lists replies to a post, oldest first.
func (s *Community) Replies(ctx context.Context, postID int64) ([]ForumReply, error) {
	if _, err := s.store.GetForumPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.store.ListForumReplies(ctx, postID)
}

// Reply answers a post. Locked posts take no replies and a parent reply
// must belong to the same post.
func (s *Community) Reply(ctx context.Context, p auth.Principal, postID int64, in ForumReplyInput) (ForumReply, error) {
	if err := required("content", in.Content); err != nil {
		return ForumReply{}, err
	}
	post, err := s.store.GetForumPost(ctx, postID)
	if err != nil {
		return ForumReply{}, err
	}
	if post.IsLocked {
		return ForumReply{}, apperr.Conflict("Post is locked")
	}
	if in.ParentReplyID != nil {
		parent, err := s.store.GetForumReply(ctx, *in.ParentReplyID)
		if err != nil {
			return ForumReply{}, err
		}
		if parent.PostID != postID {
			return ForumReply{}, apperr.Validation("parent reply belongs to another post")
		}
	}
	return s.store.CreateForumReply(ctx, postID, p.ID(), in)
}

func (s *Community) decorateEvent(e Event) Event {
	e.IsRegistrationOpen = e.Window().IsOpen(s.clock())
	return e
}

// Events lists upcoming public events.
func (s *Community) Events(ctx context.Context, f EventFilter, p Page) (List[Event], error) {
	f.Location = strings.TrimSpace(f.Location)
	items, total, err := s.store.ListEvents(ctx, f, s.clock(), p)
	if err != nil {
		return List[Event]{}, err
	}
	for i := range items {
		items[i] = s.decorateEvent(items[i])
	}
	return NewList(items, total, p), nil
}

// Event returns one event.
func (s *Community) Event(ctx context.Context, id int64) (Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	return s.decorateEvent(e), nil
}

// CreateEvent schedules an event organised by the caller.
func (s *Community) CreateEvent(ctx context.Context, p auth.Principal, in EventInput) (Event, error) {
	if !p.HasPermission(auth.PermEventManagement) && !p.HasRole(auth.RoleOrganization) {
		return Event{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := required("title", in.Title); err != nil {
		return Event{}, err
	}
	if err := nonNegative("capacity", in.Capacity); err != nil {
		return Event{}, err
	}
	if in.StartDatetime != nil && in.EndDatetime != nil && in.EndDatetime.Before(*in.StartDatetime) {
		return Event{}, apperr.Validation("end_datetime cannot be before start_datetime")
	}
	e, err := s.store.CreateEvent(ctx, p.ID(), in)
	if err != nil {
		return Event{}, err
	}
	return s.decorateEvent(e), nil
}

// RegisterForEvent registers the caller.
func (s *Community) RegisterForEvent(ctx context.Context, p auth.Principal, eventID int64, requirements string) (EventRegistration, error) {
	var out EventRegistration
	err := s.part.join(ctx, ActivityEvent, eventID, p.ID(), func(txCtx context.Context) error {
		r, err := s.store.CreateEventRegistration(txCtx, eventID, p.ID(), strings.TrimSpace(requirements))
		out = r
		return err
	})
	return out, err
}

// MyEventRegistrations lists the caller's registrations.
func (s *Community) MyEventRegistrations(ctx context.Context, p auth.Principal) ([]EventRegistration, error) {
	return s.store.ListEventRegistrationsByParticipant(ctx, p.ID())
}

func (s *Community) decorateOpportunity(v VolunteerOpportunity) VolunteerOpportunity {
	v.IsOpen = v.Window().IsOpen(s.clock())
	if v.SkillsRequired == nil {
		v.SkillsRequired = []string{}
	}
	return v
}

// Opportunities lists active volunteer opportunities.
func (s *Community) Opportunities(ctx context.Context, category string, p Page) (List[VolunteerOpportunity], error) {
	items, total, err := s.store.ListVolunteerOpportunities(ctx, strings.TrimSpace(category), p)
	if err != nil {
		return List[VolunteerOpportunity]{}, err
	}
	for i := range items {
		items[i] = s.decorateOpportunity(items[i])
	}
	return NewList(items, total, p), nil
}

// Opportunity returns one opportunity.
func (s *Community) Opportunity(ctx context.Context, id int64) (VolunteerOpportunity, error) {
	v, err := s.store.GetVolunteerOpportunity(ctx, id)
	if err != nil {
		return VolunteerOpportunity{}, err
	}
	return s.decorateOpportunity(v), nil
}

// CreateOpportunity publishes an opportunity owned by the caller.
func (s *Community) CreateOpportunity(ctx context.Context, p auth.Principal, in VolunteerOpportunityInput) (VolunteerOpportunity, error) {
	if !p.HasPermission(auth.PermEventManagement) && !p.HasRole(auth.RoleOrganization) {
		return VolunteerOpportunity{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := required("title", in.Title); err != nil {
		return VolunteerOpportunity{}, err
	}
	if err := nonNegative("volunteers_needed", in.VolunteersNeeded); err != nil {
		return VolunteerOpportunity{}, err
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return VolunteerOpportunity{}, apperr.Validation("end_date cannot be before start_date")
	}
	v, err := s.store.CreateVolunteerOpportunity(ctx, p.ID(), in)
	if err != nil {
		return VolunteerOpportunity{}, err
	}
	return s.decorateOpportunity(v), nil
}

// ApplyToVolunteer files the caller's application.
func (s *Community) ApplyToVolunteer(ctx context.Context, p auth.Principal, opportunityID int64, motivation, availability string) (VolunteerApplication, error) {
	var out VolunteerApplication
	err := s.part.join(ctx, ActivityVolunteerOpportunity, opportunityID, p.ID(), func(txCtx context.Context) error {
		a, err := s.store.CreateVolunteerApplication(txCtx, VolunteerApplication{
			OpportunityID: opportunityID,
			VolunteerID:   p.ID(),
			Motivation:    strings.TrimSpace(motivation),
			Availability:  strings.TrimSpace(availability),
			Status:        lifecycle.VolunteerApplicationFlow.Initial(),
			AppliedAt:     s.clock(),
		})
		out = a
		return err
	})
	return out, err
}

// MyVolunteerApplications lists the caller's applications.
func (s *Community) MyVolunteerApplications(ctx context.Context, p auth.Principal) ([]VolunteerApplication, error) {
	return s.store.ListVolunteerApplicationsByVolunteer(ctx, p.ID())
}

// ReviewVolunteerApplication accepts or rejects a pending application.
func (s *Community) ReviewVolunteerApplication(ctx context.Context, p auth.Principal, id int64, status lifecycle.Status) (VolunteerApplication, error) {
	var out VolunteerApplication
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.store.GetVolunteerApplication(txCtx, id)
		if err != nil {
			return err
		}
		if !p.CanManage(app.OrganizationID, auth.PermEventManagement) {
			return apperr.Forbidden("Access denied")
		}
		if err := lifecycle.VolunteerApplicationFlow.Transition(app.Status, status); err != nil {
			return err
		}
		out, err = s.store.ReviewVolunteerApplication(txCtx, id, status, p.ID(), s.clock())
		return err
	})
	return out, err
}

// LogHours records the caller's volunteer hours.
func (s *Community) LogHours(ctx context.Context, p auth.Principal, in VolunteerHoursInput) (VolunteerHours, error) {
	if in.HoursWorked <= 0 || in.HoursWorked > 24 {
		return VolunteerHours{}, apperr.Validation("hours_worked must be between 0 and 24")
	}
	if in.Date.IsZero() {
		in.Date = lifecycle.DateOf(s.clock())
	}
	if in.Date.After(lifecycle.DateOf(s.clock())) {
		return VolunteerHours{}, apperr.Validation("date cannot be in the future")
	}
	if in.OpportunityID != nil {
		if _, err := s.store.GetVolunteerOpportunity(ctx, *in.OpportunityID); err != nil {
			return VolunteerHours{}, err
		}
	}
	return s.store.CreateVolunteerHours(ctx, p.ID(), in)
}

// MyHours lists the caller's logged hours.
func (s *Community) MyHours(ctx context.Context, p auth.Principal) ([]VolunteerHours, error) {
	return s.store.ListVolunteerHoursByVolunteer(ctx, p.ID())
}

// VerifyHours confirms logged hours and adds them to the volunteer's
// profile total.
func (s *Community) VerifyHours(ctx context.Context, p auth.Principal, id int64) (VolunteerHours, error) {
	var out VolunteerHours
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		h, err := s.store.GetVolunteerHours(txCtx, id)
		if err != nil {
			return err
		}
		owner := ""
		if h.OrganizationID != nil {
			owner = *h.OrganizationID
		}
		if !p.CanManage(owner, auth.PermEventManagement) {
			return apperr.Forbidden("Access denied")
		}
		if h.VolunteerID == p.ID() {
			return apperr.Forbidden("Cannot verify your own hours")
		}
		if h.IsVerified {
			return apperr.Conflict("Hours already verified")
		}
		out, err = s.store.VerifyVolunteerHours(txCtx, id, p.ID(), s.clock())
		if err != nil {
			return err
		}
		return s.store.AddVolunteerHours(txCtx, h.VolunteerID, h.HoursWorked)
	})
	return out, err
}
