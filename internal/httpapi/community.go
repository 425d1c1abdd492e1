package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ongon.org/internal/welfare"
)

func (a *API) communityRoutes(r chi.Router) {
	r.Get("/forums", a.listForums)
	r.Get("/forums/{id}/posts", a.listForumPosts)
	r.Get("/posts/{id}/replies", a.listForumReplies)
	r.Get("/events", a.listEvents)
	r.Get("/events/{id}", a.getEvent)
	r.Get("/volunteer-opportunities", a.listOpportunities)
	r.Get("/volunteer-opportunities/{id}", a.getOpportunity)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/forums", a.createForum)
		r.Post("/forums/{id}/posts", a.createForumPost)
		r.Post("/posts/{id}/replies", a.replyToPost)
		r.Post("/events", a.createEvent)
		r.Post("/events/{id}/register", a.registerForEvent)
		r.Get("/my-event-registrations", a.myEventRegistrations)
		r.Post("/volunteer-opportunities", a.createOpportunity)
		r.Post("/volunteer-opportunities/{id}/apply", a.applyToVolunteer)
		r.Get("/my-volunteer-applications", a.myVolunteerApplications)
		r.Post("/volunteer-applications/{id}/review", a.reviewVolunteerApplication)
		r.Post("/volunteer-hours", a.logVolunteerHours)
		r.Get("/my-volunteer-hours", a.myVolunteerHours)
		r.Post("/volunteer-hours/{id}/verify", a.verifyVolunteerHours)
	})
}

type eventRegistrationRequest struct {
	SpecialRequirements string `json:"special_requirements"`
}

type volunteerApplicationRequest struct {
	Motivation   string `json:"motivation"`
	Availability string `json:"availability"`
}

func (a *API) listForums(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Community.Forums(r.Context())
	if err != nil {
		writeServiceError(w, r, "httpapi.list_forums", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) createForum(w http.ResponseWriter, r *http.Request) {
	var in welfare.ForumInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	f, err := a.svc.Community.CreateForum(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_forum", err)
		return
	}
	a.audit(r, "forum.created", "forum_id", f.ID)
	writeJSON(w, r, http.StatusCreated, f)
}

func (a *API) listForumPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := a.svc.Community.Posts(r.Context(), id, a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_forum_posts", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) createForumPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in welfare.ForumPostInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	post, err := a.svc.Community.CreatePost(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_forum_post", err)
		return
	}
	a.audit(r, "forum_post.created", "forum_id", id, "post_id", post.ID)
	writeJSON(w, r, http.StatusCreated, post)
}

func (a *API) listForumReplies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := a.svc.Community.Replies(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.list_forum_replies", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) replyToPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in welfare.ForumReplyInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	reply, err := a.svc.Community.Reply(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, "httpapi.reply_to_post", err)
		return
	}
	a.audit(r, "forum_reply.created", "post_id", id, "reply_id", reply.ID)
	writeJSON(w, r, http.StatusCreated, reply)
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	f := welfare.EventFilter{EventType: queryText(r, "event_type"), Location: queryText(r, "location")}
	list, err := a.svc.Community.Events(r.Context(), f, a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_events", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ev, err := a.svc.Community.Event(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_event", err)
		return
	}
	writeJSON(w, r, http.StatusOK, ev)
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	var in welfare.EventInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	ev, err := a.svc.Community.CreateEvent(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_event", err)
		return
	}
	a.audit(r, "event.created", "event_id", ev.ID)
	writeJSON(w, r, http.StatusCreated, ev)
}

func (a *API) registerForEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req eventRegistrationRequest
	if r.ContentLength != 0 && !a.decodeJSON(w, r, &req) {
		return
	}
	reg, err := a.svc.Community.RegisterForEvent(r.Context(), principal(r), id, req.SpecialRequirements)
	if err != nil {
		writeServiceError(w, r, "httpapi.register_event", err)
		return
	}
	a.audit(r, "event.registered", "event_id", id, "registration_id", reg.ID)
	writeJSON(w, r, http.StatusCreated, reg)
}

func (a *API) myEventRegistrations(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Community.MyEventRegistrations(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_event_registrations", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) listOpportunities(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Community.Opportunities(r.Context(), queryText(r, "category"), a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_opportunities", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) getOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := a.svc.Community.Opportunity(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_opportunity", err)
		return
	}
	writeJSON(w, r, http.StatusOK, o)
}

func (a *API) createOpportunity(w http.ResponseWriter, r *http.Request) {
	var in welfare.VolunteerOpportunityInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	o, err := a.svc.Community.CreateOpportunity(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_opportunity", err)
		return
	}
	a.audit(r, "volunteer_opportunity.created", "opportunity_id", o.ID)
	writeJSON(w, r, http.StatusCreated, o)
}

func (a *API) applyToVolunteer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req volunteerApplicationRequest
	if r.ContentLength != 0 && !a.decodeJSON(w, r, &req) {
		return
	}
	app, err := a.svc.Community.ApplyToVolunteer(r.Context(), principal(r), id, req.Motivation, req.Availability)
	if err != nil {
		writeServiceError(w, r, "httpapi.apply_volunteer", err)
		return
	}
	a.audit(r, "volunteer_opportunity.applied", "opportunity_id", id, "application_id", app.ID)
	writeJSON(w, r, http.StatusCreated, app)
}

func (a *API) myVolunteerApplications(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Community.MyVolunteerApplications(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_volunteer_applications", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) reviewVolunteerApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	app, err := a.svc.Community.ReviewVolunteerApplication(r.Context(), principal(r), id, req.Status)
	if err != nil {
		writeServiceError(w, r, "httpapi.review_volunteer_application", err)
		return
	}
	a.audit(r, "volunteer_application.reviewed", "application_id", id, "status", string(req.Status))
	writeJSON(w, r, http.StatusOK, app)
}

func (a *API) logVolunteerHours(w http.ResponseWriter, r *http.Request) {
	var in welfare.VolunteerHoursInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	h, err := a.svc.Community.LogHours(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.log_volunteer_hours", err)
		return
	}
	a.audit(r, "volunteer_hours.logged", "hours_id", h.ID, "hours", in.HoursWorked)
	writeJSON(w, r, http.StatusCreated, h)
}

func (a *API) myVolunteerHours(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Community.MyHours(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_volunteer_hours", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) verifyVolunteerHours(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h, err := a.svc.Community.VerifyHours(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.verify_volunteer_hours", err)
		return
	}
	a.audit(r, "volunteer_hours.verified", "hours_id", id)
	writeJSON(w, r, http.StatusOK, h)
}
