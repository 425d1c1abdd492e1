package welfare

import (
	"context"
	"errors"
	"strings"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/category"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
)

// Course is a published learning course. EnrollmentCount is loaded with the
// row; IsEnrollmentOpen is derived on read.
type Course struct {
	ID                 int64          `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	CategoryID         *int64         `json:"category_id"`
	CategoryName       string         `json:"category_name,omitempty"`
	InstructorID       string         `json:"instructor_id"`
	InstructorName     string         `json:"instructor_name,omitempty"`
	DifficultyLevel    string         `json:"difficulty_level,omitempty"`
	DurationHours      *int           `json:"duration_hours"`
	Language           string         `json:"language"`
	Prerequisites      string         `json:"prerequisites,omitempty"`
	LearningObjectives []string       `json:"learning_objectives"`
	Price              ledger.Money   `json:"price"`
	IsFree             bool           `json:"is_free"`
	IsPublished        bool           `json:"is_published"`
	EnrollmentLimit    *int           `json:"enrollment_limit"`
	StartDate          lifecycle.Date `json:"start_date"`
	EndDate            lifecycle.Date `json:"end_date"`
	EnrollmentCount    int            `json:"enrollment_count"`
	IsEnrollmentOpen   bool           `json:"is_enrollment_open"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Window is the course's enrollment window.
func (c Course) Window() lifecycle.Window {
	return lifecycle.Window{
		Active:   c.IsPublished,
		Capacity: c.EnrollmentLimit,
		Count:    c.EnrollmentCount,
		Deadline: lifecycle.OnDate(c.EndDate),
	}
}

// CourseInput creates a course.
type CourseInput struct {
	Title              string         `json:"title" validate:"required,max=255"`
	Description        string         `json:"description"`
	CategoryID         *int64         `json:"category_id"`
	DifficultyLevel    string         `json:"difficulty_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationHours      *int           `json:"duration_hours" validate:"omitempty,min=0"`
	Language           string         `json:"language"`
	Prerequisites      string         `json:"prerequisites"`
	LearningObjectives []string       `json:"learning_objectives"`
	Price              ledger.Money   `json:"price" validate:"min=0"`
	IsFree             *bool          `json:"is_free"`
	EnrollmentLimit    *int           `json:"enrollment_limit" validate:"omitempty,min=0"`
	StartDate          lifecycle.Date `json:"start_date"`
	EndDate            lifecycle.Date `json:"end_date"`
}

// CourseUpdate patches a course. Nil fields are unchanged.
type CourseUpdate struct {
	Title              *string         `json:"title" validate:"omitempty,max=255"`
	Description        *string         `json:"description"`
	CategoryID         *int64          `json:"category_id"`
	DifficultyLevel    *string         `json:"difficulty_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationHours      *int            `json:"duration_hours" validate:"omitempty,min=0"`
	Language           *string         `json:"language"`
	Prerequisites      *string         `json:"prerequisites"`
	LearningObjectives []string        `json:"learning_objectives"`
	Price              *ledger.Money   `json:"price" validate:"omitempty,min=0"`
	IsFree             *bool           `json:"is_free"`
	IsPublished        *bool           `json:"is_published"`
	EnrollmentLimit    *int            `json:"enrollment_limit" validate:"omitempty,min=0"`
	StartDate          *lifecycle.Date `json:"start_date"`
	EndDate            *lifecycle.Date `json:"end_date"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	CategoryID    *int64
	Search        string
	Difficulty    string
	IsFree        *bool
	PublishedOnly bool
}

// Enrollment is a student's participation in a course.
type Enrollment struct {
	ID                 int64      `json:"id"`
	CourseID           int64      `json:"course_id"`
	CourseTitle        string     `json:"course_title,omitempty"`
	StudentID          string     `json:"student_id"`
	StudentName        string     `json:"student_name,omitempty"`
	EnrollmentDate     time.Time  `json:"enrollment_date"`
	CompletionDate     *time.Time `json:"completion_date"`
	ProgressPercentage float64    `json:"progress_percentage"`
	CertificateIssued  bool       `json:"certificate_issued"`
	IsCompleted        bool       `json:"is_completed"`
}

// Lesson is one unit of course content.
type Lesson struct {
	ID              int64     `json:"id"`
	CourseID        int64     `json:"course_id"`
	Title           string    `json:"title" validate:"required,max=255"`
	Content         string    `json:"content,omitempty"`
	ContentType     string    `json:"content_type,omitempty" validate:"omitempty,oneof=text video audio document"`
	ContentURL      string    `json:"content_url,omitempty"`
	DurationMinutes *int      `json:"duration_minutes" validate:"omitempty,min=0"`
	SortOrder       int       `json:"sort_order"`
	IsPublished     bool      `json:"is_published"`
	CreatedAt       time.Time `json:"created_at"`
}

// Question is an assessment question. CorrectAnswer never leaves the server.
type Question struct {
	ID            int64    `json:"id"`
	Text          string   `json:"question_text" validate:"required"`
	Type          string   `json:"question_type" validate:"required,oneof=multiple_choice true_false essay fill_blank"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"-"`
	Marks         int      `json:"marks" validate:"min=0"`
	SortOrder     int      `json:"sort_order"`
}

// QuestionInput carries the correct answer on creation only.
type QuestionInput struct {
	Question
	CorrectAnswer string `json:"correct_answer"`
}

// Assessment is a quiz, assignment or exam attached to a course.
type Assessment struct {
	ID               int64      `json:"id"`
	CourseID         int64      `json:"course_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	AssessmentType   string     `json:"assessment_type"`
	TotalMarks       *int       `json:"total_marks"`
	PassingMarks     *int       `json:"passing_marks"`
	TimeLimitMinutes *int       `json:"time_limit_minutes"`
	AttemptsAllowed  int        `json:"attempts_allowed"`
	IsPublished      bool       `json:"is_published"`
	Questions        []Question `json:"questions,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// AssessmentInput creates an assessment with its questions.
type AssessmentInput struct {
	Title            string          `json:"title" validate:"required"`
	Description      string          `json:"description"`
	AssessmentType   string          `json:"assessment_type" validate:"omitempty,oneof=quiz assignment exam"`
	TotalMarks       *int            `json:"total_marks" validate:"omitempty,min=0"`
	PassingMarks     *int            `json:"passing_marks" validate:"omitempty,min=0"`
	TimeLimitMinutes *int            `json:"time_limit_minutes" validate:"omitempty,min=0"`
	AttemptsAllowed  int             `json:"attempts_allowed" validate:"min=0"`
	IsPublished      bool            `json:"is_published"`
	Questions        []QuestionInput `json:"questions" validate:"dive"`
}

// Submission is a student's answers to an assessment. PercentageScore and
// IsPassed are derived and null until graded.
type Submission struct {
	ID              int64             `json:"id"`
	AssessmentID    int64             `json:"assessment_id"`
	StudentID       string            `json:"student_id"`
	Answers         map[string]string `json:"answers"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	GradedAt        *time.Time        `json:"graded_at"`
	TotalMarks      *int              `json:"total_marks"`
	ObtainedMarks   *int              `json:"obtained_marks"`
	Feedback        string            `json:"feedback,omitempty"`
	PercentageScore *float64          `json:"percentage_score"`
	IsPassed        *bool             `json:"is_passed"`
}

// Scholarship offers funding with a limited number of slots. Approved
// applications consume slots.
type Scholarship struct {
	ID                  int64          `json:"id"`
	Name                string         `json:"name"`
	Description         string         `json:"description,omitempty"`
	Amount              *ledger.Money  `json:"amount"`
	EligibilityCriteria string         `json:"eligibility_criteria,omitempty"`
	SelectionCriteria   string         `json:"selection_criteria,omitempty"`
	ApplicationDeadline lifecycle.Date `json:"application_deadline"`
	TotalSlots          *int           `json:"total_slots"`
	AvailableSlots      *int           `json:"available_slots"`
	ApprovedCount       int            `json:"-"`
	ApplicationCount    int            `json:"application_count"`
	IsActive            bool           `json:"is_active"`
	IsApplicationOpen   bool           `json:"is_application_open"`
	CreatedBy           string         `json:"created_by"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Window is the scholarship's application window.
func (s Scholarship) Window() lifecycle.Window {
	return lifecycle.Window{
		Active:   s.IsActive,
		Capacity: s.TotalSlots,
		Count:    s.ApprovedCount,
		Deadline: lifecycle.OnDate(s.ApplicationDeadline),
	}
}

// ScholarshipInput creates a scholarship.
type ScholarshipInput struct {
	Name                string         `json:"name" validate:"required"`
	Description         string         `json:"description"`
	Amount              *ledger.Money  `json:"amount" validate:"omitempty,gt=0"`
	EligibilityCriteria string         `json:"eligibility_criteria"`
	SelectionCriteria   string         `json:"selection_criteria"`
	ApplicationDeadline lifecycle.Date `json:"application_deadline"`
	TotalSlots          *int           `json:"total_slots" validate:"omitempty,min=0"`
}

// ScholarshipApplication is a user's application for a scholarship.
type ScholarshipApplication struct {
	ID              int64            `json:"id"`
	ScholarshipID   int64            `json:"scholarship_id"`
	ScholarshipName string           `json:"scholarship_name,omitempty"`
	ApplicantID     string           `json:"applicant_id"`
	ApplicationData map[string]any   `json:"application_data"`
	Documents       []string         `json:"documents"`
	Status          lifecycle.Status `json:"status"`
	AppliedAt       time.Time        `json:"applied_at"`
	ReviewedAt      *time.Time       `json:"reviewed_at"`
	ReviewedBy      *string          `json:"reviewed_by"`
	ReviewNotes     string           `json:"review_notes,omitempty"`
}

// Review is a status decision with optional notes.
type Review struct {
	Status lifecycle.Status `json:"status" validate:"required"`
	Notes  string           `json:"notes"`
}

// EducationStore persists the education module.
type EducationStore interface {
	ListCourseCategories(ctx context.Context) ([]category.Node, error)
	CreateCourseCategory(ctx context.Context, n category.Node) (category.Node, error)

	ListCourses(ctx context.Context, f CourseFilter, p Page) ([]Course, int, error)
	GetCourse(ctx context.Context, id int64) (Course, error)
	CreateCourse(ctx context.Context, instructorID string, in CourseInput) (Course, error)
	UpdateCourse(ctx context.Context, id int64, upd CourseUpdate) (Course, error)
	ListCoursesByInstructor(ctx context.Context, instructorID string) ([]Course, error)

	CreateEnrollment(ctx context.Context, courseID int64, studentID string) (Enrollment, error)
	GetEnrollment(ctx context.Context, id int64) (Enrollment, error)
	FindEnrollment(ctx context.Context, courseID int64, studentID string) (Enrollment, error)
	// LockEnrollment is FindEnrollment holding a row lock until the unit of
	// work ends.
	LockEnrollment(ctx context.Context, courseID int64, studentID string) (Enrollment, error)
	ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
	ListEnrollmentsByCourse(ctx context.Context, courseID int64) ([]Enrollment, error)
	UpdateEnrollmentProgress(ctx context.Context, id int64, progress float64, completedAt *time.Time) (Enrollment, error)

	CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
	GetLesson(ctx context.Context, id int64) (Lesson, error)
	ListLessons(ctx context.Context, courseID int64) ([]Lesson, error)
	CountLessons(ctx context.Context, courseID int64) (int, error)
	CompleteLesson(ctx context.Context, enrollmentID, lessonID int64, at time.Time) error
	CountCompletedLessons(ctx context.Context, enrollmentID int64) (int, error)

	CreateAssessment(ctx context.Context, courseID int64, in AssessmentInput) (Assessment, error)
	GetAssessment(ctx context.Context, id int64) (Assessment, error)
	ListAssessments(ctx context.Context, courseID int64) ([]Assessment, error)
	// AnswerKey returns the correct answers keyed by question id.
	AnswerKey(ctx context.Context, assessmentID int64) (map[int64]string, error)
	CountSubmissions(ctx context.Context, assessmentID int64, studentID string) (int, error)
	CreateSubmission(ctx context.Context, s Submission) (Submission, error)

	ListScholarships(ctx context.Context, p Page) ([]Scholarship, int, error)
	GetScholarship(ctx context.Context, id int64) (Scholarship, error)
	CreateScholarship(ctx context.Context, createdBy string, in ScholarshipInput) (Scholarship, error)
	CreateScholarshipApplication(ctx context.Context, a ScholarshipApplication) (ScholarshipApplication, error)
	GetScholarshipApplication(ctx context.Context, id int64) (ScholarshipApplication, error)
	ListScholarshipApplicationsByApplicant(ctx context.Context, applicantID string) ([]ScholarshipApplication, error)
	ReviewScholarshipApplication(ctx context.Context, id int64, status lifecycle.Status, reviewerID, notes string, at time.Time) (ScholarshipApplication, error)
}

// Education implements courses, lessons, assessments and scholarships.
type Education struct {
	*base
	store EducationStore
}

func canTeach(p auth.Principal) bool {
	return p.HasRole(auth.RoleEducator) || p.HasPermission(auth.PermCourseManagement)
}

func (s *Education) decorateCourse(c Course) Course {
	c.IsEnrollmentOpen = c.Window().IsOpen(s.clock())
	if c.LearningObjectives == nil {
		c.LearningObjectives = []string{}
	}
	return c
}

func (s *Education) decorateScholarship(sc Scholarship) Scholarship {
	sc.IsApplicationOpen = sc.Window().IsOpen(s.clock())
	if r := sc.Window().Remaining(); r != nil {
		sc.AvailableSlots = r
	}
	return sc
}

// CategoryTree renders the course categories.
func (s *Education) CategoryTree(ctx context.Context) ([]category.View, error) {
	nodes, err := cached(ctx, s.cache, CacheKeyCourseCategories, s.store.ListCourseCategories)
	if err != nil {
		return nil, err
	}
	return category.New(nodes).Render(category.DefaultMaxDepth), nil
}

// CreateCategory adds a course category under an optional parent.
func (s *Education) CreateCategory(ctx context.Context, p auth.Principal, n category.Node) (category.Node, error) {
	if !p.HasPermission(auth.PermCourseManagement) {
		return category.Node{}, apperr.Forbidden("Insufficient permissions")
	}
	n.Name = strings.TrimSpace(n.Name)
	if err := required("name", n.Name); err != nil {
		return category.Node{}, err
	}
	nodes, err := s.store.ListCourseCategories(ctx)
	if err != nil {
		return category.Node{}, err
	}
	if err := category.New(nodes).CheckParent(n.ParentID, category.DefaultMaxDepth); err != nil {
		return category.Node{}, err
	}
	n.IsActive = true
	created, err := s.store.CreateCourseCategory(ctx, n)
	if err != nil {
		return category.Node{}, err
	}
	invalidate(ctx, s.cache, CacheKeyCourseCategories)
	return created, nil
}

// ListCourses lists published courses.
func (s *Education) ListCourses(ctx context.Context, f CourseFilter, p Page) (List[Course], error) {
	f.PublishedOnly = true
	f.Search = strings.TrimSpace(f.Search)
	courses, total, err := s.store.ListCourses(ctx, f, p)
	if err != nil {
		return List[Course]{}, err
	}
	for i := range courses {
		courses[i] = s.decorateCourse(courses[i])
	}
	return NewList(courses, total, p), nil
}

// Course returns a course. Unpublished courses are visible only to their
// instructor and course managers.
func (s *Education) Course(ctx context.Context, p auth.Principal, id int64) (Course, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !c.IsPublished && !p.CanManage(c.InstructorID, auth.PermCourseManagement) {
		return Course{}, apperr.NotFound("course")
	}
	return s.decorateCourse(c), nil
}

// CreateCourse creates an unpublished course taught by the caller.
func (s *Education) CreateCourse(ctx context.Context, p auth.Principal, in CourseInput) (Course, error) {
	if !canTeach(p) {
		return Course{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := required("title", in.Title); err != nil {
		return Course{}, err
	}
	if err := nonNegative("enrollment_limit", in.EnrollmentLimit); err != nil {
		return Course{}, err
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return Course{}, apperr.Validation("end_date cannot be before start_date")
	}
	if in.Language == "" {
		in.Language = "bn"
	}
	if in.IsFree == nil {
		free := in.Price.IsZero()
		in.IsFree = &free
	}
	c, err := s.store.CreateCourse(ctx, p.ID(), in)
	if err != nil {
		return Course{}, err
	}
	return s.decorateCourse(c), nil
}

// UpdateCourse patches a course owned by the caller.
func (s *Education) UpdateCourse(ctx context.Context, p auth.Principal, id int64, upd CourseUpdate) (Course, error) {
	var out Course
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		c, err := s.store.GetCourse(txCtx, id)
		if err != nil {
			return err
		}
		if !p.CanManage(c.InstructorID, auth.PermCourseManagement) {
			return apperr.Forbidden("Insufficient permissions")
		}
		upd.Title = trimmed(upd.Title)
		if upd.Title != nil && *upd.Title == "" {
			return apperr.Validation("title cannot be empty")
		}
		if err := nonNegative("enrollment_limit", upd.EnrollmentLimit); err != nil {
			return err
		}
		updated, err := s.store.UpdateCourse(txCtx, id, upd)
		if err != nil {
			return err
		}
		out = s.decorateCourse(updated)
		return nil
	})
	return out, err
}

// Enroll enrolls the caller in a course.
func (s *Education) Enroll(ctx context.Context, p auth.Principal, courseID int64) (Enrollment, error) {
	var out Enrollment
	err := s.part.join(ctx, ActivityCourse, courseID, p.ID(), func(txCtx context.Context) error {
		e, err := s.store.CreateEnrollment(txCtx, courseID, p.ID())
		out = e
		return err
	})
	return out, err
}

// MyCourses lists the caller's enrollments.
func (s *Education) MyCourses(ctx context.Context, p auth.Principal) ([]Enrollment, error) {
	return s.store.ListEnrollmentsByStudent(ctx, p.ID())
}

// MyTaughtCourses lists courses the caller teaches.
func (s *Education) MyTaughtCourses(ctx context.Context, p auth.Principal) ([]Course, error) {
	courses, err := s.store.ListCoursesByInstructor(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	for i := range courses {
		courses[i] = s.decorateCourse(courses[i])
	}
	return courses, nil
}

// Students lists enrollments of a course for its instructor.
func (s *Education) Students(ctx context.Context, p auth.Principal, courseID int64) ([]Enrollment, error) {
	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !p.CanManage(c.InstructorID, auth.PermCourseManagement) {
		return nil, apperr.Forbidden("Insufficient permissions")
	}
	return s.store.ListEnrollmentsByCourse(ctx, courseID)
}

// AddLesson appends a lesson to a course.
func (s *Education) AddLesson(ctx context.Context, p auth.Principal, courseID int64, l Lesson) (Lesson, error) {
	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return Lesson{}, err
	}
	if !p.CanManage(c.InstructorID, auth.PermCourseManagement) {
		return Lesson{}, apperr.Forbidden("Insufficient permissions")
	}
	l.Title = strings.TrimSpace(l.Title)
	if err := required("title", l.Title); err != nil {
		return Lesson{}, err
	}
	if l.ContentType == "" {
		l.ContentType = "text"
	}
	l.CourseID = courseID
	return s.store.CreateLesson(ctx, l)
}

// CompleteLesson records lesson completion for the caller and recomputes the
// enrollment's progress. Reaching 100 percent completes the enrollment.
func (s *Education) CompleteLesson(ctx context.Context, p auth.Principal, lessonID int64) (Enrollment, error) {
	var out Enrollment
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		lesson, err := s.store.GetLesson(txCtx, lessonID)
		if err != nil {
			return err
		}
		enrollment, err := s.store.FindEnrollment(txCtx, lesson.CourseID, p.ID())
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Forbidden("Not enrolled in this course")
			}
			return err
		}
		now := s.clock()
		if err := s.store.CompleteLesson(txCtx, enrollment.ID, lessonID, now); err != nil {
			return err
		}
		total, err := s.store.CountLessons(txCtx, lesson.CourseID)
		if err != nil {
			return err
		}
		done, err := s.store.CountCompletedLessons(txCtx, enrollment.ID)
		if err != nil {
			return err
		}
		progress := 0.0
		if total > 0 {
			progress = min(float64(done)/float64(total)*100, 100)
		}
		var completedAt *time.Time
		if progress >= 100 {
			completedAt = enrollment.CompletionDate
			if completedAt == nil {
				completedAt = &now
			}
		}
		out, err = s.store.UpdateEnrollmentProgress(txCtx, enrollment.ID, progress, completedAt)
		return err
	})
	return out, err
}

// EnrollmentProgress returns one of the caller's enrollments.
func (s *Education) EnrollmentProgress(ctx context.Context, p auth.Principal, enrollmentID int64) (Enrollment, error) {
	e, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	if e.StudentID != p.ID() {
		return Enrollment{}, apperr.Forbidden("Access denied")
	}
	return e, nil
}

// CreateAssessment attaches an assessment to a course.
func (s *Education) CreateAssessment(ctx context.Context, p auth.Principal, courseID int64, in AssessmentInput) (Assessment, error) {
	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return Assessment{}, err
	}
	if !p.CanManage(c.InstructorID, auth.PermCourseManagement) {
		return Assessment{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := required("title", in.Title); err != nil {
		return Assessment{}, err
	}
	if in.AttemptsAllowed <= 0 {
		in.AttemptsAllowed = 1
	}
	if in.AssessmentType == "" {
		in.AssessmentType = "quiz"
	}
	if in.TotalMarks == nil && len(in.Questions) > 0 {
		total := 0
		for _, q := range in.Questions {
			total += q.Marks
		}
		in.TotalMarks = &total
	}
	if in.TotalMarks != nil && in.PassingMarks != nil && *in.PassingMarks > *in.TotalMarks {
		return Assessment{}, apperr.Validation("passing_marks cannot exceed total_marks")
	}
	var out Assessment
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		created, err := s.store.CreateAssessment(txCtx, courseID, in)
		out = created
		return err
	})
	return out, err
}

// canViewCourseContent allows enrolled students and course managers.
func (s *Education) canViewCourseContent(ctx context.Context, p auth.Principal, courseID int64) error {
	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if p.CanManage(c.InstructorID, auth.PermCourseManagement) {
		return nil
	}
	if _, err := s.store.FindEnrollment(ctx, courseID, p.ID()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Forbidden("Access denied")
		}
		return err
	}
	return nil
}

// Lessons lists a course's lessons for its staff and enrolled students.
func (s *Education) Lessons(ctx context.Context, p auth.Principal, courseID int64) ([]Lesson, error) {
	if err := s.canViewCourseContent(ctx, p, courseID); err != nil {
		return nil, err
	}
	return s.store.ListLessons(ctx, courseID)
}

// Assessments lists a course's assessments.
func (s *Education) Assessments(ctx context.Context, p auth.Principal, courseID int64) ([]Assessment, error) {
	if err := s.canViewCourseContent(ctx, p, courseID); err != nil {
		return nil, err
	}
	return s.store.ListAssessments(ctx, courseID)
}

// Assessment returns an assessment with its questions, without answers.
func (s *Education) Assessment(ctx context.Context, p auth.Principal, id int64) (Assessment, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	if err := s.canViewCourseContent(ctx, p, a.CourseID); err != nil {
		return Assessment{}, err
	}
	return a, nil
}

// Submit records the caller's answers. Objective questions are graded
// immediately; an assessment with essay questions stays ungraded.
func (s *Education) Submit(ctx context.Context, p auth.Principal, assessmentID int64, answers map[string]string) (Submission, error) {
	var out Submission
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.GetAssessment(txCtx, assessmentID)
		if err != nil {
			return err
		}
		// Serialises the student's submissions against the attempt count.
		if _, err := s.store.LockEnrollment(txCtx, a.CourseID, p.ID()); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Forbidden("Access denied")
			}
			return err
		}
		attempts, err := s.store.CountSubmissions(txCtx, assessmentID, p.ID())
		if err != nil {
			return err
		}
		if attempts >= a.AttemptsAllowed {
			return apperr.Conflict("Maximum attempts exceeded")
		}
		key, err := s.store.AnswerKey(txCtx, assessmentID)
		if err != nil {
			return err
		}
		sub := Submission{
			AssessmentID: assessmentID,
			StudentID:    p.ID(),
			Answers:      answers,
			SubmittedAt:  s.clock(),
			TotalMarks:   a.TotalMarks,
		}
		if obtained, ok := grade(a.Questions, key, answers); ok {
			sub.ObtainedMarks = &obtained
			graded := sub.SubmittedAt
			sub.GradedAt = &graded
		}
		created, err := s.store.CreateSubmission(txCtx, sub)
		if err != nil {
			return err
		}
		out = scoreSubmission(created, a.PassingMarks)
		return nil
	})
	return out, err
}

// grade sums the marks of correctly answered objective questions. It
// reports false when any question needs manual grading.
func grade(questions []Question, key map[int64]string, answers map[string]string) (int, bool) {
	obtained := 0
	for _, q := range questions {
		if q.Type == "essay" {
			return 0, false
		}
		given := answers[formatID(q.ID)]
		if strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(key[q.ID])) && given != "" {
			obtained += q.Marks
		}
	}
	return obtained, true
}

func scoreSubmission(sub Submission, passing *int) Submission {
	sub.PercentageScore = ledger.Percentage(sub.ObtainedMarks, sub.TotalMarks)
	sub.IsPassed = ledger.Passed(sub.ObtainedMarks, passing)
	if sub.Answers == nil {
		sub.Answers = map[string]string{}
	}
	return sub
}

// ListScholarships lists active scholarships.
func (s *Education) ListScholarships(ctx context.Context, p Page) (List[Scholarship], error) {
	items, total, err := s.store.ListScholarships(ctx, p)
	if err != nil {
		return List[Scholarship]{}, err
	}
	for i := range items {
		items[i] = s.decorateScholarship(items[i])
	}
	return NewList(items, total, p), nil
}

// Scholarship returns a scholarship.
func (s *Education) Scholarship(ctx context.Context, id int64) (Scholarship, error) {
	sc, err := s.store.GetScholarship(ctx, id)
	if err != nil {
		return Scholarship{}, err
	}
	return s.decorateScholarship(sc), nil
}

// CreateScholarship creates an active scholarship.
func (s *Education) CreateScholarship(ctx context.Context, p auth.Principal, in ScholarshipInput) (Scholarship, error) {
	if !p.HasPermission(auth.PermCourseManagement) {
		return Scholarship{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := required("name", in.Name); err != nil {
		return Scholarship{}, err
	}
	if err := nonNegative("total_slots", in.TotalSlots); err != nil {
		return Scholarship{}, err
	}
	sc, err := s.store.CreateScholarship(ctx, p.ID(), in)
	if err != nil {
		return Scholarship{}, err
	}
	return s.decorateScholarship(sc), nil
}

// ApplyForScholarship files the caller's application.
func (s *Education) ApplyForScholarship(ctx context.Context, p auth.Principal, scholarshipID int64, data map[string]any, documents []string) (ScholarshipApplication, error) {
	var out ScholarshipApplication
	err := s.part.join(ctx, ActivityScholarship, scholarshipID, p.ID(), func(txCtx context.Context) error {
		a, err := s.store.CreateScholarshipApplication(txCtx, ScholarshipApplication{
			ScholarshipID:   scholarshipID,
			ApplicantID:     p.ID(),
			ApplicationData: data,
			Documents:       documents,
			Status:          lifecycle.ScholarshipApplicationFlow.Initial(),
			AppliedAt:       s.clock(),
		})
		out = a
		return err
	})
	return out, err
}

// MyScholarshipApplications lists the caller's applications.
func (s *Education) MyScholarshipApplications(ctx context.Context, p auth.Principal) ([]ScholarshipApplication, error) {
	return s.store.ListScholarshipApplicationsByApplicant(ctx, p.ID())
}

// ReviewScholarshipApplication approves or rejects a pending application.
// Approval consumes a slot and fails once none are left.
func (s *Education) ReviewScholarshipApplication(ctx context.Context, p auth.Principal, id int64, r Review) (ScholarshipApplication, error) {
	if !p.HasPermission(auth.PermCourseManagement) {
		return ScholarshipApplication{}, apperr.Forbidden("Insufficient permissions")
	}
	var out ScholarshipApplication
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.store.GetScholarshipApplication(txCtx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.ScholarshipApplicationFlow.Transition(app.Status, r.Status); err != nil {
			return err
		}
		if r.Status == lifecycle.StatusApproved {
			window, err := s.part.store.LockActivity(txCtx, ActivityScholarship, app.ScholarshipID)
			if err != nil {
				return err
			}
			if window.Full() {
				return apperr.Conflict("No scholarship slots available")
			}
		}
		out, err = s.store.ReviewScholarshipApplication(txCtx, id, r.Status, p.ID(), strings.TrimSpace(r.Notes), s.clock())
		return err
	})
	return out, err
}
