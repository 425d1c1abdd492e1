package pg

import (
	"context"
	"time"

	"ongon.org/internal/category"
	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

func (s *Store) ListCourseCategories(ctx context.Context) ([]category.Node, error) {
	return s.categories(ctx, "course_categories")
}

func (s *Store) CreateCourseCategory(ctx context.Context, n category.Node) (category.Node, error) {
	return s.createCategory(ctx, "course_categories", n)
}

func (s *Store) categories(ctx context.Context, table string) ([]category.Node, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, parent_id, name, description, sort_order, is_active
		from `+table+` order by sort_order, name`)
	return collect(rows, err, scanCategory)
}

func (s *Store) createCategory(ctx context.Context, table string, n category.Node) (category.Node, error) {
	return scanCategory(s.conn(ctx).QueryRowContext(ctx, `
		insert into `+table+` (parent_id, name, description, sort_order, is_active)
		values ($1, $2, $3, $4, $5)
		returning id, parent_id, name, description, sort_order, is_active
	`, n.ParentID, n.Name, n.Description, n.SortOrder, n.IsActive))
}

func scanCategory(row scanner) (category.Node, error) {
	var n category.Node
	err := row.Scan(&n.ID, &n.ParentID, &n.Name, &n.Description, &n.SortOrder, &n.IsActive)
	return n, mapError(err, "Category")
}

const courseSelect = `
	select c.id, c.title, c.description, c.category_id, coalesce(cc.name, ''), c.instructor_id,
		trim(u.first_name || ' ' || u.last_name), c.difficulty_level, c.duration_hours, c.language,
		c.prerequisites, c.learning_objectives, c.price, c.is_free, c.is_published, c.enrollment_limit,
		c.start_date, c.end_date,
		(select count(*) from course_enrollments e where e.course_id = c.id),
		c.created_at, c.updated_at
	from courses c
	join users u on u.id = c.instructor_id
	left join course_categories cc on cc.id = c.category_id`

func scanCourse(row scanner) (welfare.Course, error) {
	var (
		c          welfare.Course
		objectives texts
	)
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.CategoryID, &c.CategoryName, &c.InstructorID,
		&c.InstructorName, &c.DifficultyLevel, &c.DurationHours, &c.Language,
		&c.Prerequisites, &objectives, &c.Price, &c.IsFree, &c.IsPublished, &c.EnrollmentLimit,
		&c.StartDate, &c.EndDate, &c.EnrollmentCount, &c.CreatedAt, &c.UpdatedAt)
	c.LearningObjectives = objectives
	return c, mapError(err, "Course")
}

func (s *Store) ListCourses(ctx context.Context, f welfare.CourseFilter, p welfare.Page) ([]welfare.Course, int, error) {
	var w filter
	if f.PublishedOnly {
		w.add("c.is_published")
	}
	if f.CategoryID != nil {
		w.add("c.category_id = ?", *f.CategoryID)
	}
	if f.Difficulty != "" {
		w.add("c.difficulty_level = ?", f.Difficulty)
	}
	if f.IsFree != nil {
		w.add("c.is_free = ?", *f.IsFree)
	}
	if f.Search != "" {
		w.add("(c.title ilike ? or c.description ilike ?)", like(f.Search), like(f.Search))
	}
	total, err := s.count(ctx, `select count(*) from courses c`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := courseSelect + w.where() + ` order by c.created_at desc` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanCourse)
	return items, total, err
}

func (s *Store) GetCourse(ctx context.Context, id int64) (welfare.Course, error) {
	return scanCourse(s.conn(ctx).QueryRowContext(ctx, courseSelect+` where c.id = $1`, id))
}

func (s *Store) CreateCourse(ctx context.Context, instructorID string, in welfare.CourseInput) (welfare.Course, error) {
	language := in.Language
	if language == "" {
		language = "bn"
	}
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into courses (title, description, category_id, instructor_id, difficulty_level, duration_hours,
			language, prerequisites, learning_objectives, price, is_free, enrollment_limit, start_date, end_date)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, coalesce($11, true), $12, $13, $14)
		returning id
	`, in.Title, in.Description, in.CategoryID, instructorID, in.DifficultyLevel, in.DurationHours,
		language, in.Prerequisites, jsonList(in.LearningObjectives), in.Price, in.IsFree, in.EnrollmentLimit,
		in.StartDate, in.EndDate).Scan(&id)
	if err != nil {
		return welfare.Course{}, mapError(err, "Course")
	}
	return s.GetCourse(ctx, id)
}

func (s *Store) UpdateCourse(ctx context.Context, id int64, upd welfare.CourseUpdate) (welfare.Course, error) {
	var set setter
	setIf(&set, "title", upd.Title)
	setIf(&set, "description", upd.Description)
	setIf(&set, "category_id", upd.CategoryID)
	setIf(&set, "difficulty_level", upd.DifficultyLevel)
	setIf(&set, "duration_hours", upd.DurationHours)
	setIf(&set, "language", upd.Language)
	setIf(&set, "prerequisites", upd.Prerequisites)
	if upd.LearningObjectives != nil {
		set.set("learning_objectives", jsonList(upd.LearningObjectives))
	}
	setIf(&set, "price", upd.Price)
	setIf(&set, "is_free", upd.IsFree)
	setIf(&set, "is_published", upd.IsPublished)
	setIf(&set, "enrollment_limit", upd.EnrollmentLimit)
	setIf(&set, "start_date", upd.StartDate)
	setIf(&set, "end_date", upd.EndDate)
	if !set.empty() {
		set.touch()
		q, args := set.statement("courses", "id", id)
		res, err := s.conn(ctx).ExecContext(ctx, q, args...)
		if err != nil {
			return welfare.Course{}, mapError(err, "Course")
		}
		if err := affected(res, "Course"); err != nil {
			return welfare.Course{}, err
		}
	}
	return s.GetCourse(ctx, id)
}

func (s *Store) ListCoursesByInstructor(ctx context.Context, instructorID string) ([]welfare.Course, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		courseSelect+` where c.instructor_id = $1 order by c.created_at desc`, instructorID)
	return collect(rows, err, scanCourse)
}

const enrollmentSelect = `
	select e.id, e.course_id, c.title, e.student_id, trim(u.first_name || ' ' || u.last_name),
		e.enrollment_date, e.completion_date, e.progress_percentage, e.certificate_issued
	from course_enrollments e
	join courses c on c.id = e.course_id
	join users u on u.id = e.student_id`

func scanEnrollment(row scanner) (welfare.Enrollment, error) {
	var e welfare.Enrollment
	err := row.Scan(&e.ID, &e.CourseID, &e.CourseTitle, &e.StudentID, &e.StudentName,
		&e.EnrollmentDate, &e.CompletionDate, &e.ProgressPercentage, &e.CertificateIssued)
	e.IsCompleted = e.CompletionDate != nil
	return e, mapError(err, "Enrollment")
}

func (s *Store) CreateEnrollment(ctx context.Context, courseID int64, studentID string) (welfare.Enrollment, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into course_enrollments (course_id, student_id) values ($1, $2) returning id
	`, courseID, studentID).Scan(&id)
	if err != nil {
		return welfare.Enrollment{}, mapError(err, "Course")
	}
	return s.GetEnrollment(ctx, id)
}

func (s *Store) GetEnrollment(ctx context.Context, id int64) (welfare.Enrollment, error) {
	return scanEnrollment(s.conn(ctx).QueryRowContext(ctx, enrollmentSelect+` where e.id = $1`, id))
}

func (s *Store) FindEnrollment(ctx context.Context, courseID int64, studentID string) (welfare.Enrollment, error) {
	return scanEnrollment(s.conn(ctx).QueryRowContext(ctx,
		enrollmentSelect+` where e.course_id = $1 and e.student_id = $2`, courseID, studentID))
}

func (s *Store) LockEnrollment(ctx context.Context, courseID int64, studentID string) (welfare.Enrollment, error) {
	return scanEnrollment(s.conn(ctx).QueryRowContext(ctx,
		enrollmentSelect+` where e.course_id = $1 and e.student_id = $2 for update of e`, courseID, studentID))
}

func (s *Store) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]welfare.Enrollment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		enrollmentSelect+` where e.student_id = $1 order by e.enrollment_date desc`, studentID)
	return collect(rows, err, scanEnrollment)
}

func (s *Store) ListEnrollmentsByCourse(ctx context.Context, courseID int64) ([]welfare.Enrollment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		enrollmentSelect+` where e.course_id = $1 order by e.enrollment_date`, courseID)
	return collect(rows, err, scanEnrollment)
}

func (s *Store) UpdateEnrollmentProgress(ctx context.Context, id int64, progress float64, completedAt *time.Time) (welfare.Enrollment, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update course_enrollments set progress_percentage = $2, completion_date = $3 where id = $1
	`, id, progress, completedAt)
	if err != nil {
		return welfare.Enrollment{}, err
	}
	if err := affected(res, "Enrollment"); err != nil {
		return welfare.Enrollment{}, err
	}
	return s.GetEnrollment(ctx, id)
}

const lessonColumns = `id, course_id, title, content, content_type, content_url, duration_minutes,
	sort_order, is_published, created_at`

func scanLesson(row scanner) (welfare.Lesson, error) {
	var l welfare.Lesson
	err := row.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.ContentType, &l.ContentURL, &l.DurationMinutes,
		&l.SortOrder, &l.IsPublished, &l.CreatedAt)
	return l, mapError(err, "Lesson")
}

func (s *Store) CreateLesson(ctx context.Context, l welfare.Lesson) (welfare.Lesson, error) {
	return scanLesson(s.conn(ctx).QueryRowContext(ctx, `
		insert into lessons (course_id, title, content, content_type, content_url, duration_minutes,
			sort_order, is_published)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+lessonColumns,
		l.CourseID, l.Title, l.Content, l.ContentType, l.ContentURL, l.DurationMinutes, l.SortOrder, l.IsPublished))
}

func (s *Store) GetLesson(ctx context.Context, id int64) (welfare.Lesson, error) {
	return scanLesson(s.conn(ctx).QueryRowContext(ctx, `select `+lessonColumns+` from lessons where id = $1`, id))
}

// ListLessons returns a course's lessons in display order.
func (s *Store) ListLessons(ctx context.Context, courseID int64) ([]welfare.Lesson, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select `+lessonColumns+` from lessons where course_id = $1 order by sort_order, id`, courseID)
	return collect(rows, err, scanLesson)
}

func (s *Store) CountLessons(ctx context.Context, courseID int64) (int, error) {
	return s.count(ctx, `select count(*) from lessons where course_id = $1`, courseID)
}

// CompleteLesson is idempotent per enrollment and lesson.
func (s *Store) CompleteLesson(ctx context.Context, enrollmentID, lessonID int64, at time.Time) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		insert into lesson_progress (enrollment_id, lesson_id, completed_at) values ($1, $2, $3)
		on conflict do nothing
	`, enrollmentID, lessonID, at)
	return mapError(err, "Lesson")
}

func (s *Store) CountCompletedLessons(ctx context.Context, enrollmentID int64) (int, error) {
	return s.count(ctx, `select count(*) from lesson_progress where enrollment_id = $1`, enrollmentID)
}

const assessmentColumns = `id, course_id, title, description, assessment_type, total_marks, passing_marks,
	time_limit_minutes, attempts_allowed, is_published, created_at`

func scanAssessment(row scanner) (welfare.Assessment, error) {
	var a welfare.Assessment
	err := row.Scan(&a.ID, &a.CourseID, &a.Title, &a.Description, &a.AssessmentType, &a.TotalMarks, &a.PassingMarks,
		&a.TimeLimitMinutes, &a.AttemptsAllowed, &a.IsPublished, &a.CreatedAt)
	return a, mapError(err, "Assessment")
}

func (s *Store) CreateAssessment(ctx context.Context, courseID int64, in welfare.AssessmentInput) (welfare.Assessment, error) {
	kind := in.AssessmentType
	if kind == "" {
		kind = "quiz"
	}
	attempts := in.AttemptsAllowed
	if attempts <= 0 {
		attempts = 1
	}
	a, err := scanAssessment(s.conn(ctx).QueryRowContext(ctx, `
		insert into assessments (course_id, title, description, assessment_type, total_marks, passing_marks,
			time_limit_minutes, attempts_allowed, is_published)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning `+assessmentColumns,
		courseID, in.Title, in.Description, kind, in.TotalMarks, in.PassingMarks,
		in.TimeLimitMinutes, attempts, in.IsPublished))
	if err != nil {
		return welfare.Assessment{}, err
	}
	for i, q := range in.Questions {
		question := q.Question
		if question.SortOrder == 0 {
			question.SortOrder = i + 1
		}
		if err := s.conn(ctx).QueryRowContext(ctx, `
			insert into assessment_questions (assessment_id, question_text, question_type, options,
				correct_answer, marks, sort_order)
			values ($1, $2, $3, $4, $5, $6, $7)
			returning id
		`, a.ID, question.Text, question.Type, jsonList(question.Options), q.CorrectAnswer,
			question.Marks, question.SortOrder).Scan(&question.ID); err != nil {
			return welfare.Assessment{}, err
		}
		a.Questions = append(a.Questions, question)
	}
	return a, nil
}

func (s *Store) GetAssessment(ctx context.Context, id int64) (welfare.Assessment, error) {
	a, err := scanAssessment(s.conn(ctx).QueryRowContext(ctx,
		`select `+assessmentColumns+` from assessments where id = $1`, id))
	if err != nil {
		return welfare.Assessment{}, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select id, question_text, question_type, options, marks, sort_order
		from assessment_questions where assessment_id = $1 order by sort_order, id
	`, id)
	a.Questions, err = collect(rows, err, func(row scanner) (welfare.Question, error) {
		var (
			q       welfare.Question
			options texts
		)
		err := row.Scan(&q.ID, &q.Text, &q.Type, &options, &q.Marks, &q.SortOrder)
		q.Options = options
		return q, err
	})
	return a, err
}

func (s *Store) ListAssessments(ctx context.Context, courseID int64) ([]welfare.Assessment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select `+assessmentColumns+` from assessments where course_id = $1 order by created_at`, courseID)
	return collect(rows, err, scanAssessment)
}

func (s *Store) AnswerKey(ctx context.Context, assessmentID int64) (map[int64]string, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select id, correct_answer from assessment_questions where assessment_id = $1`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	key := map[int64]string{}
	for rows.Next() {
		var (
			id     int64
			answer string
		)
		if err := rows.Scan(&id, &answer); err != nil {
			return nil, err
		}
		key[id] = answer
	}
	return key, rows.Err()
}

func (s *Store) CountSubmissions(ctx context.Context, assessmentID int64, studentID string) (int, error) {
	return s.count(ctx, `select count(*) from assessment_submissions where assessment_id = $1 and student_id = $2`,
		assessmentID, studentID)
}

func (s *Store) CreateSubmission(ctx context.Context, sub welfare.Submission) (welfare.Submission, error) {
	answers, err := encodeJSON(sub.Answers)
	if err != nil {
		return welfare.Submission{}, err
	}
	err = s.conn(ctx).QueryRowContext(ctx, `
		insert into assessment_submissions (assessment_id, student_id, answers, submitted_at, graded_at,
			total_marks, obtained_marks, feedback)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`, sub.AssessmentID, sub.StudentID, answers, sub.SubmittedAt, sub.GradedAt,
		sub.TotalMarks, sub.ObtainedMarks, sub.Feedback).Scan(&sub.ID)
	if err != nil {
		return welfare.Submission{}, mapError(err, "Assessment")
	}
	if sub.Answers == nil {
		sub.Answers = map[string]string{}
	}
	return sub, nil
}

const scholarshipSelect = `
	select s.id, s.name, s.description, s.amount, s.eligibility_criteria, s.selection_criteria,
		s.application_deadline, s.total_slots,
		(select count(*) from scholarship_applications a where a.scholarship_id = s.id and a.status = 'approved'),
		(select count(*) from scholarship_applications a where a.scholarship_id = s.id),
		s.is_active, s.created_by, s.created_at
	from scholarships s`

func scanScholarship(row scanner) (welfare.Scholarship, error) {
	var sc welfare.Scholarship
	err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &sc.Amount, &sc.EligibilityCriteria, &sc.SelectionCriteria,
		&sc.ApplicationDeadline, &sc.TotalSlots, &sc.ApprovedCount, &sc.ApplicationCount,
		&sc.IsActive, &sc.CreatedBy, &sc.CreatedAt)
	return sc, mapError(err, "Scholarship")
}

func (s *Store) ListScholarships(ctx context.Context, p welfare.Page) ([]welfare.Scholarship, int, error) {
	var w filter
	w.add("s.is_active")
	total, err := s.count(ctx, `select count(*) from scholarships s`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := scholarshipSelect + w.where() + ` order by s.application_deadline nulls last, s.id` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanScholarship)
	return items, total, err
}

func (s *Store) GetScholarship(ctx context.Context, id int64) (welfare.Scholarship, error) {
	return scanScholarship(s.conn(ctx).QueryRowContext(ctx, scholarshipSelect+` where s.id = $1`, id))
}

func (s *Store) CreateScholarship(ctx context.Context, createdBy string, in welfare.ScholarshipInput) (welfare.Scholarship, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into scholarships (name, description, amount, eligibility_criteria, selection_criteria,
			application_deadline, total_slots, created_by)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`, in.Name, in.Description, in.Amount, in.EligibilityCriteria, in.SelectionCriteria,
		in.ApplicationDeadline, in.TotalSlots, createdBy).Scan(&id)
	if err != nil {
		return welfare.Scholarship{}, mapError(err, "Scholarship")
	}
	return s.GetScholarship(ctx, id)
}

const scholarshipApplicationSelect = `
	select a.id, a.scholarship_id, s.name, a.applicant_id, a.application_data, a.documents, a.status,
		a.applied_at, a.reviewed_at, a.reviewed_by, a.review_notes
	from scholarship_applications a
	join scholarships s on s.id = a.scholarship_id`

func scanScholarshipApplication(row scanner) (welfare.ScholarshipApplication, error) {
	var (
		a    welfare.ScholarshipApplication
		data []byte
		docs texts
	)
	err := row.Scan(&a.ID, &a.ScholarshipID, &a.ScholarshipName, &a.ApplicantID, &data, &docs, &a.Status,
		&a.AppliedAt, &a.ReviewedAt, &a.ReviewedBy, &a.ReviewNotes)
	if err != nil {
		return a, mapError(err, "Scholarship application")
	}
	a.Documents = docs
	a.ApplicationData = map[string]any{}
	return a, decodeJSON(data, &a.ApplicationData)
}

func (s *Store) CreateScholarshipApplication(ctx context.Context, a welfare.ScholarshipApplication) (welfare.ScholarshipApplication, error) {
	data := a.ApplicationData
	if data == nil {
		data = map[string]any{}
	}
	raw, err := encodeJSON(data)
	if err != nil {
		return welfare.ScholarshipApplication{}, err
	}
	var id int64
	err = s.conn(ctx).QueryRowContext(ctx, `
		insert into scholarship_applications (scholarship_id, applicant_id, application_data, documents,
			status, applied_at)
		values ($1, $2, $3, $4, $5, $6)
		returning id
	`, a.ScholarshipID, a.ApplicantID, raw, jsonList(a.Documents), a.Status, a.AppliedAt).Scan(&id)
	if err != nil {
		return welfare.ScholarshipApplication{}, mapError(err, "Scholarship")
	}
	return s.GetScholarshipApplication(ctx, id)
}

func (s *Store) GetScholarshipApplication(ctx context.Context, id int64) (welfare.ScholarshipApplication, error) {
	return scanScholarshipApplication(s.conn(ctx).QueryRowContext(ctx, scholarshipApplicationSelect+` where a.id = $1`, id))
}

func (s *Store) ListScholarshipApplicationsByApplicant(ctx context.Context, applicantID string) ([]welfare.ScholarshipApplication, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		scholarshipApplicationSelect+` where a.applicant_id = $1 order by a.applied_at desc`, applicantID)
	return collect(rows, err, scanScholarshipApplication)
}

func (s *Store) ReviewScholarshipApplication(ctx context.Context, id int64, status lifecycle.Status, reviewerID, notes string, at time.Time) (welfare.ScholarshipApplication, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update scholarship_applications
		set status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5
		where id = $1
	`, id, status, reviewerID, notes, at)
	if err != nil {
		return welfare.ScholarshipApplication{}, err
	}
	if err := affected(res, "Scholarship application"); err != nil {
		return welfare.ScholarshipApplication{}, err
	}
	return s.GetScholarshipApplication(ctx, id)
}
