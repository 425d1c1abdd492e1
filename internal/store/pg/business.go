package pg

import (
	"context"
	"time"

	"ongon.org/internal/category"
	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

const loanProductColumns = `id, name, description, min_amount, max_amount, interest_rate, tenure_months,
	eligibility_criteria, required_documents, is_active`

func scanLoanProduct(row scanner) (welfare.LoanProduct, error) {
	var (
		p    welfare.LoanProduct
		docs texts
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.MinAmount, &p.MaxAmount, &p.InterestRate, &p.TenureMonths,
		&p.EligibilityCriteria, &docs, &p.IsActive)
	p.RequiredDocuments = docs
	return p, mapError(err, "Loan product")
}

func (s *Store) ListLoanProducts(ctx context.Context) ([]welfare.LoanProduct, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select `+loanProductColumns+` from loan_products where is_active order by min_amount, name`)
	return collect(rows, err, scanLoanProduct)
}

func (s *Store) GetLoanProduct(ctx context.Context, id int64) (welfare.LoanProduct, error) {
	return scanLoanProduct(s.conn(ctx).QueryRowContext(ctx,
		`select `+loanProductColumns+` from loan_products where id = $1`, id))
}

const loanApplicationSelect = `
	select a.id, a.applicant_id, a.loan_product_id, p.name, a.requested_amount, a.purpose, a.business_plan,
		a.monthly_income, a.existing_loans, a.collateral_details, a.documents, a.status, a.applied_at,
		a.reviewed_at, a.reviewed_by, a.review_notes
	from loan_applications a
	join loan_products p on p.id = a.loan_product_id`

func scanLoanApplication(row scanner) (welfare.LoanApplication, error) {
	var (
		a    welfare.LoanApplication
		docs texts
	)
	err := row.Scan(&a.ID, &a.ApplicantID, &a.LoanProductID, &a.LoanProductName, &a.RequestedAmount, &a.Purpose,
		&a.BusinessPlan, &a.MonthlyIncome, &a.ExistingLoans, &a.CollateralDetails, &docs, &a.Status, &a.AppliedAt,
		&a.ReviewedAt, &a.ReviewedBy, &a.ReviewNotes)
	a.Documents = docs
	return a, mapError(err, "Loan application")
}

func (s *Store) CreateLoanApplication(ctx context.Context, a welfare.LoanApplication) (welfare.LoanApplication, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into loan_applications (applicant_id, loan_product_id, requested_amount, purpose, business_plan,
			monthly_income, existing_loans, collateral_details, documents, status, applied_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning id
	`, a.ApplicantID, a.LoanProductID, a.RequestedAmount, a.Purpose, a.BusinessPlan,
		a.MonthlyIncome, a.ExistingLoans, a.CollateralDetails, jsonList(a.Documents), a.Status, a.AppliedAt).Scan(&id)
	if err != nil {
		return welfare.LoanApplication{}, mapError(err, "Loan product")
	}
	return s.GetLoanApplication(ctx, id)
}

func (s *Store) GetLoanApplication(ctx context.Context, id int64) (welfare.LoanApplication, error) {
	return scanLoanApplication(s.conn(ctx).QueryRowContext(ctx, loanApplicationSelect+` where a.id = $1`, id))
}

func (s *Store) ListLoanApplications(ctx context.Context, f welfare.LoanApplicationFilter, p welfare.Page) ([]welfare.LoanApplication, int, error) {
	var w filter
	if f.Status != "" {
		w.add("a.status = ?", string(f.Status))
	}
	total, err := s.count(ctx, `select count(*) from loan_applications a`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := loanApplicationSelect + w.where() + ` order by a.applied_at` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanLoanApplication)
	return items, total, err
}

func (s *Store) ListLoanApplicationsByApplicant(ctx context.Context, applicantID string) ([]welfare.LoanApplication, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		loanApplicationSelect+` where a.applicant_id = $1 order by a.applied_at desc`, applicantID)
	return collect(rows, err, scanLoanApplication)
}

func (s *Store) ReviewLoanApplication(ctx context.Context, id int64, status lifecycle.Status, reviewerID, notes string, at time.Time) (welfare.LoanApplication, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update loan_applications set status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5
		where id = $1
	`, id, status, reviewerID, notes, at)
	if err != nil {
		return welfare.LoanApplication{}, err
	}
	if err := affected(res, "Loan application"); err != nil {
		return welfare.LoanApplication{}, err
	}
	return s.GetLoanApplication(ctx, id)
}

const loanColumns = `id, application_id, borrower_id, loan_product_id, principal_amount, interest_rate,
	tenure_months, monthly_emi, disbursement_date, maturity_date, status, created_at`

func scanLoan(row scanner) (welfare.Loan, error) {
	var l welfare.Loan
	err := row.Scan(&l.ID, &l.ApplicationID, &l.BorrowerID, &l.LoanProductID, &l.PrincipalAmount, &l.InterestRate,
		&l.TenureMonths, &l.MonthlyEMI, &l.DisbursementDate, &l.MaturityDate, &l.Status, &l.CreatedAt)
	return l, mapError(err, "Loan")
}

// CreateLoan fails with the conflict sentinel when the application was
// already disbursed.
func (s *Store) CreateLoan(ctx context.Context, l welfare.Loan) (welfare.Loan, error) {
	return scanLoan(s.conn(ctx).QueryRowContext(ctx, `
		insert into loans (application_id, borrower_id, loan_product_id, principal_amount, interest_rate,
			tenure_months, monthly_emi, disbursement_date, maturity_date, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning `+loanColumns,
		l.ApplicationID, l.BorrowerID, l.LoanProductID, l.PrincipalAmount, l.InterestRate,
		l.TenureMonths, l.MonthlyEMI, l.DisbursementDate, l.MaturityDate, l.Status))
}

func (s *Store) GetLoanForUpdate(ctx context.Context, id int64) (welfare.Loan, error) {
	return scanLoan(s.conn(ctx).QueryRowContext(ctx, `select `+loanColumns+` from loans where id = $1 for update`, id))
}

func (s *Store) ListLoansByBorrower(ctx context.Context, borrowerID string) ([]welfare.Loan, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select `+loanColumns+` from loans where borrower_id = $1 order by disbursement_date desc, id desc`, borrowerID)
	return collect(rows, err, scanLoan)
}

const loanPaymentColumns = `id, loan_id, payment_date, amount_paid, payment_method, transaction_reference,
	late_fee, created_at`

func scanLoanPayment(row scanner) (welfare.LoanPayment, error) {
	var p welfare.LoanPayment
	err := row.Scan(&p.ID, &p.LoanID, &p.PaymentDate, &p.AmountPaid, &p.PaymentMethod, &p.TransactionReference,
		&p.LateFee, &p.CreatedAt)
	return p, mapError(err, "Loan payment")
}

func (s *Store) ListLoanPayments(ctx context.Context, loanID int64) ([]welfare.LoanPayment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select `+loanPaymentColumns+` from loan_payments where loan_id = $1 order by payment_date, id`, loanID)
	return collect(rows, err, scanLoanPayment)
}

func (s *Store) CreateLoanPayment(ctx context.Context, pay welfare.LoanPayment) (welfare.LoanPayment, error) {
	return scanLoanPayment(s.conn(ctx).QueryRowContext(ctx, `
		insert into loan_payments (loan_id, payment_date, amount_paid, payment_method, transaction_reference, late_fee)
		values ($1, $2, $3, $4, $5, $6)
		returning `+loanPaymentColumns,
		pay.LoanID, pay.PaymentDate, pay.AmountPaid, pay.PaymentMethod, pay.TransactionReference, pay.LateFee))
}

func (s *Store) SetLoanStatus(ctx context.Context, id int64, status lifecycle.Status) error {
	res, err := s.conn(ctx).ExecContext(ctx, `update loans set status = $2 where id = $1`, id, status)
	if err != nil {
		return err
	}
	return affected(res, "Loan")
}

const trainingProgramSelect = `
	select t.id, t.name, t.description, t.category, t.duration_hours, t.trainer_id, t.max_participants, t.fee,
		t.prerequisites, t.certification_provided, t.start_date, t.end_date, t.location_address, t.is_online,
		t.is_active, (select count(*) from training_enrollments e where e.program_id = t.id), t.created_at
	from training_programs t`

func scanTrainingProgram(row scanner) (welfare.TrainingProgram, error) {
	var t welfare.TrainingProgram
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.DurationHours, &t.TrainerID, &t.MaxParticipants, &t.Fee,
		&t.Prerequisites, &t.CertificationProvided, &t.StartDate, &t.EndDate, &t.LocationAddress, &t.IsOnline,
		&t.IsActive, &t.EnrollmentCount, &t.CreatedAt)
	return t, mapError(err, "Training program")
}

func (s *Store) ListTrainingPrograms(ctx context.Context, p welfare.Page) ([]welfare.TrainingProgram, int, error) {
	var w filter
	w.add("t.is_active")
	total, err := s.count(ctx, `select count(*) from training_programs t`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := trainingProgramSelect + w.where() + ` order by t.start_date nulls last, t.id` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanTrainingProgram)
	return items, total, err
}

func (s *Store) GetTrainingProgram(ctx context.Context, id int64) (welfare.TrainingProgram, error) {
	return scanTrainingProgram(s.conn(ctx).QueryRowContext(ctx, trainingProgramSelect+` where t.id = $1`, id))
}

func (s *Store) CreateTrainingProgram(ctx context.Context, trainerID string, in welfare.TrainingProgramInput) (welfare.TrainingProgram, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into training_programs (name, description, category, duration_hours, trainer_id, max_participants,
			fee, prerequisites, certification_provided, start_date, end_date, location_address, is_online)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		returning id
	`, in.Name, in.Description, in.Category, in.DurationHours, trainerID, in.MaxParticipants,
		in.Fee, in.Prerequisites, in.CertificationProvided, in.StartDate, in.EndDate, in.LocationAddress,
		in.IsOnline).Scan(&id)
	if err != nil {
		return welfare.TrainingProgram{}, mapError(err, "Training program")
	}
	return s.GetTrainingProgram(ctx, id)
}

const trainingEnrollmentSelect = `
	select e.id, e.program_id, t.name, e.participant_id, e.enrollment_date, e.completion_date,
		e.attendance_percentage, e.final_score, e.certificate_issued
	from training_enrollments e
	join training_programs t on t.id = e.program_id`

func scanTrainingEnrollment(row scanner) (welfare.TrainingEnrollment, error) {
	var e welfare.TrainingEnrollment
	err := row.Scan(&e.ID, &e.ProgramID, &e.ProgramName, &e.ParticipantID, &e.EnrollmentDate, &e.CompletionDate,
		&e.AttendancePercentage, &e.FinalScore, &e.CertificateIssued)
	e.IsCompleted = e.CompletionDate != nil
	return e, mapError(err, "Training enrollment")
}

func (s *Store) CreateTrainingEnrollment(ctx context.Context, programID int64, participantID string) (welfare.TrainingEnrollment, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into training_enrollments (program_id, participant_id) values ($1, $2) returning id
	`, programID, participantID).Scan(&id)
	if err != nil {
		return welfare.TrainingEnrollment{}, mapError(err, "Training program")
	}
	return scanTrainingEnrollment(s.conn(ctx).QueryRowContext(ctx, trainingEnrollmentSelect+` where e.id = $1`, id))
}

func (s *Store) ListTrainingEnrollmentsByParticipant(ctx context.Context, participantID string) ([]welfare.TrainingEnrollment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		trainingEnrollmentSelect+` where e.participant_id = $1 order by e.enrollment_date desc`, participantID)
	return collect(rows, err, scanTrainingEnrollment)
}

func (s *Store) ListJobCategories(ctx context.Context) ([]category.Node, error) {
	return s.categories(ctx, "job_categories")
}

const jobSelect = `
	select j.id, j.title, j.description, j.category_id, j.employer_id, j.company_name, j.location_address,
		j.employment_type, j.experience_required, j.skills_required, j.salary_min, j.salary_max,
		j.application_deadline, j.is_active,
		(select count(*) from job_applications a where a.job_id = j.id), j.created_at
	from job_postings j`

func scanJob(row scanner) (welfare.JobPosting, error) {
	var (
		j      welfare.JobPosting
		skills texts
	)
	err := row.Scan(&j.ID, &j.Title, &j.Description, &j.CategoryID, &j.EmployerID, &j.CompanyName, &j.LocationAddress,
		&j.EmploymentType, &j.ExperienceRequired, &skills, &j.SalaryMin, &j.SalaryMax,
		&j.ApplicationDeadline, &j.IsActive, &j.ApplicationCount, &j.CreatedAt)
	j.SkillsRequired = skills
	return j, mapError(err, "Job posting")
}

func (s *Store) ListJobs(ctx context.Context, f welfare.JobFilter, p welfare.Page) ([]welfare.JobPosting, int, error) {
	var w filter
	w.add("j.is_active")
	if f.CategoryID != nil {
		w.add("j.category_id = ?", *f.CategoryID)
	}
	if f.Location != "" {
		w.add("j.location_address ilike ?", like(f.Location))
	}
	if f.EmploymentType != "" {
		w.add("j.employment_type = ?", f.EmploymentType)
	}
	if f.Search != "" {
		w.add("(j.title ilike ? or j.description ilike ? or j.company_name ilike ?)",
			like(f.Search), like(f.Search), like(f.Search))
	}
	total, err := s.count(ctx, `select count(*) from job_postings j`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := jobSelect + w.where() + ` order by j.created_at desc` + w.page(p.Limit(), p.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanJob)
	return items, total, err
}

func (s *Store) GetJob(ctx context.Context, id int64) (welfare.JobPosting, error) {
	return scanJob(s.conn(ctx).QueryRowContext(ctx, jobSelect+` where j.id = $1`, id))
}

func (s *Store) CreateJob(ctx context.Context, employerID string, in welfare.JobPostingInput) (welfare.JobPosting, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into job_postings (title, description, category_id, employer_id, company_name, location_address,
			employment_type, experience_required, skills_required, salary_min, salary_max, application_deadline)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		returning id
	`, in.Title, in.Description, in.CategoryID, employerID, in.CompanyName, in.LocationAddress,
		in.EmploymentType, in.ExperienceRequired, jsonList(in.SkillsRequired), in.SalaryMin, in.SalaryMax,
		in.ApplicationDeadline).Scan(&id)
	if err != nil {
		return welfare.JobPosting{}, mapError(err, "Job category")
	}
	return s.GetJob(ctx, id)
}

func (s *Store) ListJobsByEmployer(ctx context.Context, employerID string) ([]welfare.JobPosting, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, jobSelect+` where j.employer_id = $1 order by j.created_at desc`, employerID)
	return collect(rows, err, scanJob)
}

const jobApplicationSelect = `
	select a.id, a.job_id, j.title, j.employer_id, a.applicant_id, a.cover_letter, a.resume_url, a.status,
		a.applied_at
	from job_applications a
	join job_postings j on j.id = a.job_id`

func scanJobApplication(row scanner) (welfare.JobApplication, error) {
	var a welfare.JobApplication
	err := row.Scan(&a.ID, &a.JobID, &a.JobTitle, &a.EmployerID, &a.ApplicantID, &a.CoverLetter, &a.ResumeURL, &a.Status,
		&a.AppliedAt)
	return a, mapError(err, "Job application")
}

func (s *Store) CreateJobApplication(ctx context.Context, a welfare.JobApplication) (welfare.JobApplication, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into job_applications (job_id, applicant_id, cover_letter, resume_url, status, applied_at)
		values ($1, $2, $3, $4, $5, $6)
		returning id
	`, a.JobID, a.ApplicantID, a.CoverLetter, a.ResumeURL, a.Status, a.AppliedAt).Scan(&id)
	if err != nil {
		return welfare.JobApplication{}, mapError(err, "Job posting")
	}
	return s.GetJobApplication(ctx, id)
}

func (s *Store) GetJobApplication(ctx context.Context, id int64) (welfare.JobApplication, error) {
	return scanJobApplication(s.conn(ctx).QueryRowContext(ctx, jobApplicationSelect+` where a.id = $1`, id))
}

func (s *Store) ListJobApplicationsByApplicant(ctx context.Context, applicantID string) ([]welfare.JobApplication, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		jobApplicationSelect+` where a.applicant_id = $1 order by a.applied_at desc`, applicantID)
	return collect(rows, err, scanJobApplication)
}

func (s *Store) SetJobApplicationStatus(ctx context.Context, id int64, status lifecycle.Status) (welfare.JobApplication, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `update job_applications set status = $2 where id = $1`, id, status)
	if err != nil {
		return welfare.JobApplication{}, err
	}
	if err := affected(res, "Job application"); err != nil {
		return welfare.JobApplication{}, err
	}
	return s.GetJobApplication(ctx, id)
}
