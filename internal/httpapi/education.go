package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ongon.org/internal/category"
	"ongon.org/internal/welfare"
)

func (a *API) educationRoutes(r chi.Router) {
	r.Get("/categories", a.courseCategories)
	r.Get("/courses", a.listCourses)
	r.Get("/courses/{id}", a.getCourse)
	r.Get("/scholarships", a.listScholarships)
	r.Get("/scholarships/{id}", a.getScholarship)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/categories", a.createCourseCategory)
		r.Post("/courses", a.createCourse)
		r.Put("/courses/{id}", a.updateCourse)
		r.Post("/courses/{id}/enroll", a.enrollInCourse)
		r.Get("/courses/{id}/students", a.courseStudents)
		r.Get("/courses/{id}/lessons", a.courseLessons)
		r.Post("/courses/{id}/lessons", a.addLesson)
		r.Get("/courses/{id}/assessments", a.courseAssessments)
		r.Post("/courses/{id}/assessments", a.createAssessment)
		r.Get("/my-courses", a.myCourses)
		r.Get("/my-courses-as-instructor", a.myTaughtCourses)
		r.Post("/lessons/{id}/complete", a.completeLesson)
		r.Get("/enrollments/{id}/progress", a.enrollmentProgress)
		r.Get("/assessments/{id}", a.getAssessment)
		r.Post("/assessments/{id}/submit", a.submitAssessment)
		r.Post("/scholarships", a.createScholarship)
		r.Post("/scholarships/{id}/apply", a.applyForScholarship)
		r.Get("/my-scholarship-applications", a.myScholarshipApplications)
		r.Post("/scholarship-applications/{id}/review", a.reviewScholarshipApplication)
	})
}

type submissionRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

type scholarshipApplicationRequest struct {
	ApplicationData map[string]any `json:"application_data"`
	Documents       []string       `json:"documents"`
}

func (a *API) courseCategories(w http.ResponseWriter, r *http.Request) {
	tree, err := a.svc.Education.CategoryTree(r.Context())
	if err != nil {
		writeServiceError(w, r, "httpapi.course_categories", err)
		return
	}
	writeJSON(w, r, http.StatusOK, tree)
}

func (a *API) createCourseCategory(w http.ResponseWriter, r *http.Request) {
	var n category.Node
	if !a.decodeJSON(w, r, &n) {
		return
	}
	created, err := a.svc.Education.CreateCategory(r.Context(), principal(r), n)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_course_category", err)
		return
	}
	a.audit(r, "course_category.created", "category_id", created.ID)
	writeJSON(w, r, http.StatusCreated, created)
}

func (a *API) listCourses(w http.ResponseWriter, r *http.Request) {
	f := welfare.CourseFilter{
		Search:        queryText(r, "search"),
		Difficulty:    queryText(r, "difficulty"),
		PublishedOnly: true,
	}
	var ok bool
	if f.CategoryID, ok = queryInt64(w, r, "category_id"); !ok {
		return
	}
	if f.IsFree, ok = queryBool(w, r, "is_free"); !ok {
		return
	}
	list, err := a.svc.Education.ListCourses(r.Context(), f, a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_courses", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := a.svc.Education.Course(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_course", err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (a *API) createCourse(w http.ResponseWriter, r *http.Request) {
	var in welfare.CourseInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	c, err := a.svc.Education.CreateCourse(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_course", err)
		return
	}
	a.audit(r, "course.created", "course_id", c.ID)
	writeJSON(w, r, http.StatusCreated, c)
}

func (a *API) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var upd welfare.CourseUpdate
	if !a.decodeJSON(w, r, &upd) {
		return
	}
	c, err := a.svc.Education.UpdateCourse(r.Context(), principal(r), id, upd)
	if err != nil {
		writeServiceError(w, r, "httpapi.update_course", err)
		return
	}
	a.audit(r, "course.updated", "course_id", id)
	writeJSON(w, r, http.StatusOK, c)
}

func (a *API) enrollInCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := a.svc.Education.Enroll(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.enroll_course", err)
		return
	}
	a.audit(r, "course.enrolled", "course_id", id, "enrollment_id", e.ID)
	writeJSON(w, r, http.StatusCreated, e)
}

func (a *API) courseStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := a.svc.Education.Students(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.course_students", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) courseLessons(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := a.svc.Education.Lessons(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.course_lessons", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) addLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var l welfare.Lesson
	if !a.decodeJSON(w, r, &l) {
		return
	}
	created, err := a.svc.Education.AddLesson(r.Context(), principal(r), id, l)
	if err != nil {
		writeServiceError(w, r, "httpapi.add_lesson", err)
		return
	}
	a.audit(r, "lesson.created", "course_id", id, "lesson_id", created.ID)
	writeJSON(w, r, http.StatusCreated, created)
}

func (a *API) courseAssessments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := a.svc.Education.Assessments(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.course_assessments", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) createAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in welfare.AssessmentInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	created, err := a.svc.Education.CreateAssessment(r.Context(), principal(r), id, in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_assessment", err)
		return
	}
	a.audit(r, "assessment.created", "course_id", id, "assessment_id", created.ID)
	writeJSON(w, r, http.StatusCreated, created)
}

func (a *API) myCourses(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Education.MyCourses(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_courses", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) myTaughtCourses(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Education.MyTaughtCourses(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_taught_courses", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) completeLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := a.svc.Education.CompleteLesson(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.complete_lesson", err)
		return
	}
	a.audit(r, "lesson.completed", "lesson_id", id, "enrollment_id", e.ID)
	writeJSON(w, r, http.StatusOK, e)
}

func (a *API) enrollmentProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := a.svc.Education.EnrollmentProgress(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.enrollment_progress", err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

func (a *API) getAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	as, err := a.svc.Education.Assessment(r.Context(), principal(r), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_assessment", err)
		return
	}
	writeJSON(w, r, http.StatusOK, as)
}

func (a *API) submitAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req submissionRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	sub, err := a.svc.Education.Submit(r.Context(), principal(r), id, req.Answers)
	if err != nil {
		writeServiceError(w, r, "httpapi.submit_assessment", err)
		return
	}
	a.audit(r, "assessment.submitted", "assessment_id", id, "submission_id", sub.ID)
	writeJSON(w, r, http.StatusCreated, sub)
}

func (a *API) listScholarships(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Education.ListScholarships(r.Context(), a.page(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.list_scholarships", err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (a *API) getScholarship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := a.svc.Education.Scholarship(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "httpapi.get_scholarship", err)
		return
	}
	writeJSON(w, r, http.StatusOK, s)
}

func (a *API) createScholarship(w http.ResponseWriter, r *http.Request) {
	var in welfare.ScholarshipInput
	if !a.decodeJSON(w, r, &in) {
		return
	}
	s, err := a.svc.Education.CreateScholarship(r.Context(), principal(r), in)
	if err != nil {
		writeServiceError(w, r, "httpapi.create_scholarship", err)
		return
	}
	a.audit(r, "scholarship.created", "scholarship_id", s.ID)
	writeJSON(w, r, http.StatusCreated, s)
}

func (a *API) applyForScholarship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req scholarshipApplicationRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	app, err := a.svc.Education.ApplyForScholarship(r.Context(), principal(r), id, req.ApplicationData, req.Documents)
	if err != nil {
		writeServiceError(w, r, "httpapi.apply_scholarship", err)
		return
	}
	a.audit(r, "scholarship.applied", "scholarship_id", id, "application_id", app.ID)
	writeJSON(w, r, http.StatusCreated, app)
}

func (a *API) myScholarshipApplications(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.Education.MyScholarshipApplications(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "httpapi.my_scholarship_applications", err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (a *API) reviewScholarshipApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var rev welfare.Review
	if !a.decodeJSON(w, r, &rev) {
		return
	}
	app, err := a.svc.Education.ReviewScholarshipApplication(r.Context(), principal(r), id, rev)
	if err != nil {
		writeServiceError(w, r, "httpapi.review_scholarship_application", err)
		return
	}
	a.audit(r, "scholarship_application.reviewed", "application_id", id, "status", string(app.Status))
	writeJSON(w, r, http.StatusOK, app)
}
