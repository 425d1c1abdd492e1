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

// LoanProduct is a microfinance product on offer.
type LoanProduct struct {
	ID                  int64        `json:"id"`
	Name                string       `json:"name"`
	Description         string       `json:"description,omitempty"`
	MinAmount           ledger.Money `json:"min_amount"`
	MaxAmount           ledger.Money `json:"max_amount"`
	InterestRate        float64      `json:"interest_rate"`
	TenureMonths        int          `json:"tenure_months"`
	EligibilityCriteria string       `json:"eligibility_criteria,omitempty"`
	RequiredDocuments   []string     `json:"required_documents"`
	IsActive            bool         `json:"is_active"`
}

// LoanApplication is a request for a loan product.
type LoanApplication struct {
	ID                int64            `json:"id"`
	ApplicantID       string           `json:"applicant_id"`
	LoanProductID     int64            `json:"loan_product_id"`
	LoanProductName   string           `json:"loan_product_name,omitempty"`
	RequestedAmount   ledger.Money     `json:"requested_amount"`
	Purpose           string           `json:"purpose"`
	BusinessPlan      string           `json:"business_plan,omitempty"`
	MonthlyIncome     *ledger.Money    `json:"monthly_income"`
	ExistingLoans     *ledger.Money    `json:"existing_loans"`
	CollateralDetails string           `json:"collateral_details,omitempty"`
	Documents         []string         `json:"documents"`
	Status            lifecycle.Status `json:"status"`
	AppliedAt         time.Time        `json:"applied_at"`
	ReviewedAt        *time.Time       `json:"reviewed_at"`
	ReviewedBy        *string          `json:"reviewed_by"`
	ReviewNotes       string           `json:"review_notes,omitempty"`
}

// LoanApplicationInput applies for a loan.
type LoanApplicationInput struct {
	LoanProductID     int64         `json:"loan_product_id" validate:"required"`
	RequestedAmount   ledger.Money  `json:"requested_amount" validate:"gt=0"`
	Purpose           string        `json:"purpose" validate:"required"`
	BusinessPlan      string        `json:"business_plan"`
	MonthlyIncome     *ledger.Money `json:"monthly_income" validate:"omitempty,min=0"`
	ExistingLoans     *ledger.Money `json:"existing_loans" validate:"omitempty,min=0"`
	CollateralDetails string        `json:"collateral_details"`
	Documents         []string      `json:"documents"`
}

// Loan is a disbursed loan. The payment aggregates are computed from its
// payment records on every read.
type Loan struct {
	ID               int64            `json:"id"`
	ApplicationID    int64            `json:"application_id"`
	BorrowerID       string           `json:"borrower_id"`
	LoanProductID    int64            `json:"loan_product_id"`
	PrincipalAmount  ledger.Money     `json:"principal_amount"`
	InterestRate     float64          `json:"interest_rate"`
	TenureMonths     int              `json:"tenure_months"`
	MonthlyEMI       ledger.Money     `json:"monthly_emi"`
	DisbursementDate lifecycle.Date   `json:"disbursement_date"`
	MaturityDate     lifecycle.Date   `json:"maturity_date"`
	Status           lifecycle.Status `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	ledger.LoanSummary
}

// Repayable is the total owed over the loan's life.
func (l Loan) Repayable() ledger.Money {
	return ledger.Repayable(l.MonthlyEMI, l.TenureMonths)
}

// LoanPayment is one repayment.
type LoanPayment struct {
	ID                   int64          `json:"id"`
	LoanID               int64          `json:"loan_id"`
	PaymentDate          lifecycle.Date `json:"payment_date"`
	AmountPaid           ledger.Money   `json:"amount_paid" validate:"gt=0"`
	PaymentMethod        string         `json:"payment_method" validate:"omitempty,oneof=cash bkash nagad rocket bank"`
	TransactionReference string         `json:"transaction_reference"`
	LateFee              ledger.Money   `json:"late_fee" validate:"min=0"`
	CreatedAt            time.Time      `json:"created_at"`
}

// TrainingProgram is a skills program with limited seats.
type TrainingProgram struct {
	ID                    int64          `json:"id"`
	Name                  string         `json:"name"`
	Description           string         `json:"description,omitempty"`
	Category              string         `json:"category,omitempty"`
	DurationHours         *int           `json:"duration_hours"`
	TrainerID             string         `json:"trainer_id"`
	MaxParticipants       *int           `json:"max_participants"`
	Fee                   ledger.Money   `json:"fee"`
	Prerequisites         string         `json:"prerequisites,omitempty"`
	CertificationProvided bool           `json:"certification_provided"`
	StartDate             lifecycle.Date `json:"start_date"`
	EndDate               lifecycle.Date `json:"end_date"`
	LocationAddress       string         `json:"location_address,omitempty"`
	IsOnline              bool           `json:"is_online"`
	IsActive              bool           `json:"is_active"`
	EnrollmentCount       int            `json:"enrollment_count"`
	IsEnrollmentOpen      bool           `json:"is_enrollment_open"`
	CreatedAt             time.Time      `json:"created_at"`
}

// Window is the program's enrollment window.
func (t TrainingProgram) Window() lifecycle.Window {
	return lifecycle.Window{
		Active:   t.IsActive,
		Capacity: t.MaxParticipants,
		Count:    t.EnrollmentCount,
		Deadline: lifecycle.OnDate(t.EndDate),
	}
}

// TrainingProgramInput creates a program.
type TrainingProgramInput struct {
	Name                  string         `json:"name" validate:"required"`
	Description           string         `json:"description"`
	Category              string         `json:"category" validate:"omitempty,oneof=technical business soft_skills"`
	DurationHours         *int           `json:"duration_hours" validate:"omitempty,min=0"`
	MaxParticipants       *int           `json:"max_participants" validate:"omitempty,min=0"`
	Fee                   ledger.Money   `json:"fee" validate:"min=0"`
	Prerequisites         string         `json:"prerequisites"`
	CertificationProvided bool           `json:"certification_provided"`
	StartDate             lifecycle.Date `json:"start_date"`
	EndDate               lifecycle.Date `json:"end_date"`
	LocationAddress       string         `json:"location_address"`
	IsOnline              bool           `json:"is_online"`
}

// TrainingEnrollment is a participant's seat in a program.
type TrainingEnrollment struct {
	ID                   int64      `json:"id"`
	ProgramID            int64      `json:"program_id"`
	ProgramName          string     `json:"program_name,omitempty"`
	ParticipantID        string     `json:"participant_id"`
	EnrollmentDate       time.Time  `json:"enrollment_date"`
	CompletionDate       *time.Time `json:"completion_date"`
	AttendancePercentage *float64   `json:"attendance_percentage"`
	FinalScore           *float64   `json:"final_score"`
	CertificateIssued    bool       `json:"certificate_issued"`
	IsCompleted          bool       `json:"is_completed"`
}

// JobPosting is an open position.
type JobPosting struct {
	ID                  int64          `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description,omitempty"`
	CategoryID          *int64         `json:"category_id"`
	EmployerID          string         `json:"employer_id"`
	CompanyName         string         `json:"company_name,omitempty"`
	LocationAddress     string         `json:"location_address,omitempty"`
	EmploymentType      string         `json:"employment_type,omitempty"`
	ExperienceRequired  string         `json:"experience_required,omitempty"`
	SkillsRequired      []string       `json:"skills_required"`
	SalaryMin           *ledger.Money  `json:"salary_min"`
	SalaryMax           *ledger.Money  `json:"salary_max"`
	ApplicationDeadline lifecycle.Date `json:"application_deadline"`
	IsActive            bool           `json:"is_active"`
	ApplicationCount    int            `json:"application_count"`
	IsApplicationOpen   bool           `json:"is_application_open"`
	CreatedAt           time.Time      `json:"created_at"`
}

// Window is the posting's application window. Postings have no capacity.
func (j JobPosting) Window() lifecycle.Window {
	return lifecycle.Window{
		Active:   j.IsActive,
		Count:    j.ApplicationCount,
		Deadline: lifecycle.OnDate(j.ApplicationDeadline),
	}
}

// JobPostingInput creates a posting.
type JobPostingInput struct {
	Title               string         `json:"title" validate:"required,max=255"`
	Description         string         `json:"description"`
	CategoryID          *int64         `json:"category_id"`
	CompanyName         string         `json:"company_name"`
	LocationAddress     string         `json:"location_address"`
	EmploymentType      string         `json:"employment_type" validate:"omitempty,oneof=full_time part_time contract freelance"`
	ExperienceRequired  string         `json:"experience_required"`
	SkillsRequired      []string       `json:"skills_required"`
	SalaryMin           *ledger.Money  `json:"salary_min" validate:"omitempty,min=0"`
	SalaryMax           *ledger.Money  `json:"salary_max" validate:"omitempty,min=0"`
	ApplicationDeadline lifecycle.Date `json:"application_deadline"`
}

// JobFilter narrows job listings.
type JobFilter struct {
	CategoryID     *int64
	Location       string
	EmploymentType string
	Search         string
}

// JobApplication is an application for a posting.
type JobApplication struct {
	ID          int64            `json:"id"`
	JobID       int64            `json:"job_id"`
	JobTitle    string           `json:"job_title,omitempty"`
	EmployerID  string           `json:"-"`
	ApplicantID string           `json:"applicant_id"`
	CoverLetter string           `json:"cover_letter,omitempty"`
	ResumeURL   string           `json:"resume_url,omitempty"`
	Status      lifecycle.Status `json:"status"`
	AppliedAt   time.Time        `json:"applied_at"`
}

// LoanApplicationFilter narrows loan application listings.
type LoanApplicationFilter struct {
	Status lifecycle.Status
}

// BusinessStore persists the business module.
type BusinessStore interface {
	ListLoanProducts(ctx context.Context) ([]LoanProduct, error)
	GetLoanProduct(ctx context.Context, id int64) (LoanProduct, error)

	CreateLoanApplication(ctx context.Context, a LoanApplication) (LoanApplication, error)
	GetLoanApplication(ctx context.Context, id int64) (LoanApplication, error)
	ListLoanApplications(ctx context.Context, f LoanApplicationFilter, p Page) ([]LoanApplication, int, error)
	ListLoanApplicationsByApplicant(ctx context.Context, applicantID string) ([]LoanApplication, error)
	ReviewLoanApplication(ctx context.Context, id int64, status lifecycle.Status, reviewerID, notes string, at time.Time) (LoanApplication, error)

	CreateLoan(ctx context.Context, l Loan) (Loan, error)
	// GetLoanForUpdate locks the loan row until the transaction ends.
	GetLoanForUpdate(ctx context.Context, id int64) (Loan, error)
	ListLoansByBorrower(ctx context.Context, borrowerID string) ([]Loan, error)
	ListLoanPayments(ctx context.Context, loanID int64) ([]LoanPayment, error)
	CreateLoanPayment(ctx context.Context, pay LoanPayment) (LoanPayment, error)
	SetLoanStatus(ctx context.Context, id int64, status lifecycle.Status) error

	ListTrainingPrograms(ctx context.Context, p Page) ([]TrainingProgram, int, error)
	GetTrainingProgram(ctx context.Context, id int64) (TrainingProgram, error)
	CreateTrainingProgram(ctx context.Context, trainerID string, in TrainingProgramInput) (TrainingProgram, error)
	CreateTrainingEnrollment(ctx context.Context, programID int64, participantID string) (TrainingEnrollment, error)
	ListTrainingEnrollmentsByParticipant(ctx context.Context, participantID string) ([]TrainingEnrollment, error)

	ListJobCategories(ctx context.Context) ([]category.Node, error)
	ListJobs(ctx context.Context, f JobFilter, p Page) ([]JobPosting, int, error)
	GetJob(ctx context.Context, id int64) (JobPosting, error)
	CreateJob(ctx context.Context, employerID string, in JobPostingInput) (JobPosting, error)
	ListJobsByEmployer(ctx context.Context, employerID string) ([]JobPosting, error)
	CreateJobApplication(ctx context.Context, a JobApplication) (JobApplication, error)
	GetJobApplication(ctx context.Context, id int64) (JobApplication, error)
	ListJobApplicationsByApplicant(ctx context.Context, applicantID string) ([]JobApplication, error)
	SetJobApplicationStatus(ctx context.Context, id int64, status lifecycle.Status) (JobApplication, error)
}

// Business implements microfinance, training programs and the job board.
type Business struct {
	*base
	store BusinessStore
}

// LoanProducts lists active loan products.
func (s *Business) LoanProducts(ctx context.Context) ([]LoanProduct, error) {
	return cached(ctx, s.cache, CacheKeyLoanProducts, s.store.ListLoanProducts)
}

// LoanProduct returns one loan product.
func (s *Business) LoanProduct(ctx context.Context, id int64) (LoanProduct, error) {
	return s.store.GetLoanProduct(ctx, id)
}

// ApplyForLoan files a pending loan application. The amount must fall
// within the product's limits.
func (s *Business) ApplyForLoan(ctx context.Context, p auth.Principal, in LoanApplicationInput) (LoanApplication, error) {
	if err := positive("requested_amount", in.RequestedAmount); err != nil {
		return LoanApplication{}, err
	}
	in.Purpose = strings.TrimSpace(in.Purpose)
	if err := required("purpose", in.Purpose); err != nil {
		return LoanApplication{}, err
	}
	product, err := s.store.GetLoanProduct(ctx, in.LoanProductID)
	if err != nil {
		return LoanApplication{}, err
	}
	if !product.IsActive {
		return LoanApplication{}, apperr.Validation("Loan product is not available")
	}
	if in.RequestedAmount < product.MinAmount || in.RequestedAmount > product.MaxAmount {
		return LoanApplication{}, apperr.Validation("Amount must be between %s and %s", product.MinAmount, product.MaxAmount)
	}
	return s.store.CreateLoanApplication(ctx, LoanApplication{
		ApplicantID:       p.ID(),
		LoanProductID:     product.ID,
		RequestedAmount:   in.RequestedAmount,
		Purpose:           in.Purpose,
		BusinessPlan:      in.BusinessPlan,
		MonthlyIncome:     in.MonthlyIncome,
		ExistingLoans:     in.ExistingLoans,
		CollateralDetails: in.CollateralDetails,
		Documents:         in.Documents,
		Status:            lifecycle.LoanApplicationFlow.Initial(),
		AppliedAt:         s.clock(),
	})
}

// MyLoanApplications lists the caller's applications.
func (s *Business) MyLoanApplications(ctx context.Context, p auth.Principal) ([]LoanApplication, error) {
	return s.store.ListLoanApplicationsByApplicant(ctx, p.ID())
}

// LoanApplications lists applications for loan officers.
func (s *Business) LoanApplications(ctx context.Context, p auth.Principal, f LoanApplicationFilter, page Page) (List[LoanApplication], error) {
	if !p.HasPermission(auth.PermLoanManagement) {
		return List[LoanApplication]{}, apperr.Forbidden("Insufficient permissions")
	}
	if f.Status != "" && !lifecycle.LoanApplicationFlow.Known(f.Status) {
		return List[LoanApplication]{}, apperr.Validation("unknown status %q", f.Status)
	}
	items, total, err := s.store.ListLoanApplications(ctx, f, page)
	if err != nil {
		return List[LoanApplication]{}, err
	}
	return NewList(items, total, page), nil
}

// ReviewLoanApplication approves or rejects a pending application.
func (s *Business) ReviewLoanApplication(ctx context.Context, p auth.Principal, id int64, r Review) (LoanApplication, error) {
	if !p.HasPermission(auth.PermLoanManagement) {
		return LoanApplication{}, apperr.Forbidden("Insufficient permissions")
	}
	if r.Status == lifecycle.StatusDisbursed {
		return LoanApplication{}, apperr.Validation("use disbursement to disburse a loan")
	}
	var out LoanApplication
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.store.GetLoanApplication(txCtx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.LoanApplicationFlow.Transition(app.Status, r.Status); err != nil {
			return err
		}
		out, err = s.store.ReviewLoanApplication(txCtx, id, r.Status, p.ID(), strings.TrimSpace(r.Notes), s.clock())
		return err
	})
	return out, err
}

// Disburse moves an approved application to disbursed and opens the loan.
func (s *Business) Disburse(ctx context.Context, p auth.Principal, applicationID int64) (Loan, error) {
	if !p.HasPermission(auth.PermLoanManagement) {
		return Loan{}, apperr.Forbidden("Insufficient permissions")
	}
	var out Loan
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.store.GetLoanApplication(txCtx, applicationID)
		if err != nil {
			return err
		}
		if err := lifecycle.LoanApplicationFlow.Transition(app.Status, lifecycle.StatusDisbursed); err != nil {
			return err
		}
		product, err := s.store.GetLoanProduct(txCtx, app.LoanProductID)
		if err != nil {
			return err
		}
		now := s.clock()
		if _, err := s.store.ReviewLoanApplication(txCtx, app.ID, lifecycle.StatusDisbursed, p.ID(), app.ReviewNotes, now); err != nil {
			return err
		}
		today := lifecycle.DateOf(now)
		loan, err := s.store.CreateLoan(txCtx, Loan{
			ApplicationID:    app.ID,
			BorrowerID:       app.ApplicantID,
			LoanProductID:    product.ID,
			PrincipalAmount:  app.RequestedAmount,
			InterestRate:     product.InterestRate,
			TenureMonths:     product.TenureMonths,
			MonthlyEMI:       ledger.EMI(app.RequestedAmount, product.InterestRate, product.TenureMonths),
			DisbursementDate: today,
			MaturityDate:     today.AddMonths(product.TenureMonths),
			Status:           lifecycle.LoanFlow.Initial(),
		})
		if err != nil {
			if err == apperr.ErrConflict {
				return apperr.Conflict("Loan already disbursed")
			}
			return err
		}
		out = summarize(loan, nil)
		return nil
	})
	return out, err
}

func summarize(l Loan, payments []LoanPayment) Loan {
	amounts := make([]ledger.Money, 0, len(payments))
	for _, pay := range payments {
		amounts = append(amounts, pay.AmountPaid)
	}
	l.LoanSummary = ledger.SummarizeLoan(l.Repayable(), amounts)
	return l
}

// MyLoans lists the caller's loans with their payment aggregates.
func (s *Business) MyLoans(ctx context.Context, p auth.Principal) ([]Loan, error) {
	loans, err := s.store.ListLoansByBorrower(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	for i := range loans {
		payments, err := s.store.ListLoanPayments(ctx, loans[i].ID)
		if err != nil {
			return nil, err
		}
		loans[i] = summarize(loans[i], payments)
	}
	return loans, nil
}

// RecordPayment adds a repayment. The loan closes when nothing is
// outstanding; overpayment is rejected.
func (s *Business) RecordPayment(ctx context.Context, p auth.Principal, loanID int64, pay LoanPayment) (Loan, error) {
	if err := positive("amount_paid", pay.AmountPaid); err != nil {
		return Loan{}, err
	}
	if pay.LateFee < 0 {
		return Loan{}, apperr.Validation("late_fee cannot be negative")
	}
	var out Loan
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		loan, err := s.store.GetLoanForUpdate(txCtx, loanID)
		if err != nil {
			return err
		}
		if !p.CanManage(loan.BorrowerID, auth.PermLoanManagement) {
			return apperr.Forbidden("Access denied")
		}
		if loan.Status != lifecycle.StatusActive {
			return apperr.Conflict("Loan is %s", loan.Status)
		}
		payments, err := s.store.ListLoanPayments(txCtx, loanID)
		if err != nil {
			return err
		}
		before := summarize(loan, payments)
		if pay.AmountPaid > before.Outstanding {
			return apperr.Validation("Payment exceeds outstanding balance of %s", before.Outstanding)
		}
		if pay.PaymentDate.IsZero() {
			pay.PaymentDate = lifecycle.DateOf(s.clock())
		}
		pay.LoanID = loanID
		created, err := s.store.CreateLoanPayment(txCtx, pay)
		if err != nil {
			return err
		}
		out = summarize(loan, append(payments, created))
		if out.Outstanding.IsZero() {
			if err := lifecycle.LoanFlow.Transition(loan.Status, lifecycle.StatusClosed); err != nil {
				return err
			}
			if err := s.store.SetLoanStatus(txCtx, loanID, lifecycle.StatusClosed); err != nil {
				return err
			}
			out.Status = lifecycle.StatusClosed
		}
		return nil
	})
	return out, err
}

func (s *Business) decorateProgram(t TrainingProgram) TrainingProgram {
	t.IsEnrollmentOpen = t.Window().IsOpen(s.clock())
	return t
}

// TrainingPrograms lists active programs.
func (s *Business) TrainingPrograms(ctx context.Context, p Page) (List[TrainingProgram], error) {
	items, total, err := s.store.ListTrainingPrograms(ctx, p)
	if err != nil {
		return List[TrainingProgram]{}, err
	}
	for i := range items {
		items[i] = s.decorateProgram(items[i])
	}
	return NewList(items, total, p), nil
}

// TrainingProgram returns one program.
func (s *Business) TrainingProgram(ctx context.Context, id int64) (TrainingProgram, error) {
	t, err := s.store.GetTrainingProgram(ctx, id)
	if err != nil {
		return TrainingProgram{}, err
	}
	return s.decorateProgram(t), nil
}

// CreateTrainingProgram creates an active program trained by the caller.
func (s *Business) CreateTrainingProgram(ctx context.Context, p auth.Principal, in TrainingProgramInput) (TrainingProgram, error) {
	if !p.HasPermission(auth.PermLoanManagement) && !p.HasAnyRole(auth.RoleBusinessOwner, auth.RoleOrganization) {
		return TrainingProgram{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := required("name", in.Name); err != nil {
		return TrainingProgram{}, err
	}
	if err := nonNegative("max_participants", in.MaxParticipants); err != nil {
		return TrainingProgram{}, err
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return TrainingProgram{}, apperr.Validation("end_date cannot be before start_date")
	}
	t, err := s.store.CreateTrainingProgram(ctx, p.ID(), in)
	if err != nil {
		return TrainingProgram{}, err
	}
	return s.decorateProgram(t), nil
}

// EnrollInTraining enrolls the caller in a program.
func (s *Business) EnrollInTraining(ctx context.Context, p auth.Principal, programID int64) (TrainingEnrollment, error) {
	var out TrainingEnrollment
	err := s.part.join(ctx, ActivityTrainingProgram, programID, p.ID(), func(txCtx context.Context) error {
		e, err := s.store.CreateTrainingEnrollment(txCtx, programID, p.ID())
		out = e
		return err
	})
	return out, err
}

// MyTrainingEnrollments lists the caller's program enrollments.
func (s *Business) MyTrainingEnrollments(ctx context.Context, p auth.Principal) ([]TrainingEnrollment, error) {
	return s.store.ListTrainingEnrollmentsByParticipant(ctx, p.ID())
}

// JobCategoryTree renders the job categories.
func (s *Business) JobCategoryTree(ctx context.Context) ([]category.View, error) {
	nodes, err := cached(ctx, s.cache, CacheKeyJobCategories, s.store.ListJobCategories)
	if err != nil {
		return nil, err
	}
	return category.New(nodes).Render(category.DefaultMaxDepth), nil
}

func (s *Business) decorateJob(j JobPosting) JobPosting {
	j.IsApplicationOpen = j.Window().IsOpen(s.clock())
	if j.SkillsRequired == nil {
		j.SkillsRequired = []string{}
	}
	return j
}

// Jobs lists active postings.
func (s *Business) Jobs(ctx context.Context, f JobFilter, p Page) (List[JobPosting], error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Location = strings.TrimSpace(f.Location)
	items, total, err := s.store.ListJobs(ctx, f, p)
	if err != nil {
		return List[JobPosting]{}, err
	}
	for i := range items {
		items[i] = s.decorateJob(items[i])
	}
	return NewList(items, total, p), nil
}

// Job returns one posting.
func (s *Business) Job(ctx context.Context, id int64) (JobPosting, error) {
	j, err := s.store.GetJob(ctx, id)
	if err != nil {
		return JobPosting{}, err
	}
	return s.decorateJob(j), nil
}

// PostJob publishes a posting owned by the caller.
func (s *Business) PostJob(ctx context.Context, p auth.Principal, in JobPostingInput) (JobPosting, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := required("title", in.Title); err != nil {
		return JobPosting{}, err
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMax < *in.SalaryMin {
		return JobPosting{}, apperr.Validation("salary_max cannot be less than salary_min")
	}
	if err := oneOf("employment_type", in.EmploymentType, "full_time", "part_time", "contract", "freelance"); err != nil {
		return JobPosting{}, err
	}
	j, err := s.store.CreateJob(ctx, p.ID(), in)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) && in.CategoryID != nil {
			return JobPosting{}, apperr.NotFound("job category")
		}
		return JobPosting{}, err
	}
	return s.decorateJob(j), nil
}

// ApplyForJob files the caller's application.
func (s *Business) ApplyForJob(ctx context.Context, p auth.Principal, jobID int64, coverLetter, resumeURL string) (JobApplication, error) {
	var out JobApplication
	err := s.part.join(ctx, ActivityJobPosting, jobID, p.ID(), func(txCtx context.Context) error {
		a, err := s.store.CreateJobApplication(txCtx, JobApplication{
			JobID:       jobID,
			ApplicantID: p.ID(),
			CoverLetter: strings.TrimSpace(coverLetter),
			ResumeURL:   strings.TrimSpace(resumeURL),
			Status:      lifecycle.JobApplicationFlow.Initial(),
			AppliedAt:   s.clock(),
		})
		out = a
		return err
	})
	return out, err
}

// MyJobApplications lists the caller's applications.
func (s *Business) MyJobApplications(ctx context.Context, p auth.Principal) ([]JobApplication, error) {
	return s.store.ListJobApplicationsByApplicant(ctx, p.ID())
}

// MyJobPostings lists postings owned by the caller.
func (s *Business) MyJobPostings(ctx context.Context, p auth.Principal) ([]JobPosting, error) {
	items, err := s.store.ListJobsByEmployer(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = s.decorateJob(items[i])
	}
	return items, nil
}

// AdvanceJobApplication lets the employer move an application through the
// hiring pipeline.
func (s *Business) AdvanceJobApplication(ctx context.Context, p auth.Principal, id int64, status lifecycle.Status) (JobApplication, error) {
	var out JobApplication
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		app, err := s.store.GetJobApplication(txCtx, id)
		if err != nil {
			return err
		}
		if app.EmployerID != p.ID() {
			return apperr.Forbidden("Access denied")
		}
		if err := lifecycle.JobApplicationFlow.Transition(app.Status, status); err != nil {
			return err
		}
		out, err = s.store.SetJobApplicationStatus(txCtx, id, status)
		return err
	})
	return out, err
}
