package welfare

import (
	"context"
	"errors"
	"strings"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ids"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
	"ongon.org/internal/obs"
)

// RecentDonationsLimit caps the public donor list of a project.
const RecentDonationsLimit = 50

// Project is a fundraising project. Progress and the approved expense
// total are derived on read.
type Project struct {
	ID                 int64            `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description,omitempty"`
	Category           string           `json:"category,omitempty"`
	ManagerID          string           `json:"manager_id"`
	TargetAmount       ledger.Money     `json:"target_amount"`
	RaisedAmount       ledger.Money     `json:"raised_amount"`
	StartDate          lifecycle.Date   `json:"start_date"`
	EndDate            lifecycle.Date   `json:"end_date"`
	LocationAddress    string           `json:"location_address,omitempty"`
	Images             []string         `json:"images"`
	Documents          []string         `json:"documents"`
	Status             lifecycle.Status `json:"status"`
	IsFeatured         bool             `json:"is_featured"`
	DonationCount      int              `json:"donation_count"`
	ApprovedExpenses   ledger.Money     `json:"total_expenses"`
	ProgressPercentage float64          `json:"progress_percentage"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ProjectInput creates a project.
type ProjectInput struct {
	Title           string         `json:"title" validate:"required,max=255"`
	Description     string         `json:"description"`
	Category        string         `json:"category" validate:"omitempty,oneof=education healthcare agriculture disaster_relief"`
	TargetAmount    ledger.Money   `json:"target_amount" validate:"min=0"`
	StartDate       lifecycle.Date `json:"start_date"`
	EndDate         lifecycle.Date `json:"end_date"`
	LocationAddress string         `json:"location_address"`
	Images          []string       `json:"images"`
	Documents       []string       `json:"documents"`
}

// ProjectUpdate changes a project. Nil fields are left alone.
type ProjectUpdate struct {
	Title           *string           `json:"title"`
	Description     *string           `json:"description"`
	Category        *string           `json:"category"`
	TargetAmount    *ledger.Money     `json:"target_amount"`
	EndDate         *lifecycle.Date   `json:"end_date"`
	LocationAddress *string           `json:"location_address"`
	Images          []string          `json:"images"`
	Documents       []string          `json:"documents"`
	Status          *lifecycle.Status `json:"status"`
	IsFeatured      *bool             `json:"is_featured"`
}

// ProjectFilter narrows project listings. An empty status means active.
type ProjectFilter struct {
	Status       lifecycle.Status
	Category     string
	FeaturedOnly bool
}

// Donation is a gift to a project. Only completed donations count towards
// the raised amount.
type Donation struct {
	ID             int64            `json:"id"`
	DonorID        string           `json:"donor_id,omitempty"`
	DonorName      string           `json:"donor_name,omitempty"`
	ProjectID      int64            `json:"project_id"`
	ProjectTitle   string           `json:"project_title,omitempty"`
	Amount         ledger.Money     `json:"amount"`
	Currency       string           `json:"currency"`
	DonationType   string           `json:"donation_type"`
	Frequency      string           `json:"frequency,omitempty"`
	IsAnonymous    bool             `json:"is_anonymous"`
	Message        string           `json:"message,omitempty"`
	PaymentMethod  string           `json:"payment_method,omitempty"`
	TransactionID  string           `json:"transaction_id"`
	PaymentStatus  lifecycle.Status `json:"payment_status"`
	TaxDeductible  bool             `json:"tax_deductible"`
	ReceiptURL     string           `json:"receipt_url,omitempty"`
	IdempotencyKey string           `json:"-"`
	DonatedAt      time.Time        `json:"donated_at"`
	ProcessedAt    *time.Time       `json:"processed_at"`
}

// DonationInput is a donation request.
type DonationInput struct {
	Amount        ledger.Money `json:"amount" validate:"gt=0"`
	DonationType  string       `json:"donation_type" validate:"omitempty,oneof=one_time recurring"`
	Frequency     string       `json:"frequency" validate:"omitempty,oneof=monthly quarterly yearly"`
	IsAnonymous   bool         `json:"is_anonymous"`
	Message       string       `json:"message"`
	PaymentMethod string       `json:"payment_method" validate:"omitempty,oneof=bkash nagad rocket card bank"`
}

// PaymentTransaction is the gateway side of a donation.
type PaymentTransaction struct {
	ID                   int64            `json:"id"`
	DonationID           int64            `json:"donation_id"`
	TransactionType      string           `json:"transaction_type"`
	Amount               ledger.Money     `json:"amount"`
	Currency             string           `json:"currency"`
	PaymentGateway       string           `json:"payment_gateway,omitempty"`
	GatewayTransactionID string           `json:"gateway_transaction_id"`
	Status               lifecycle.Status `json:"status"`
	ProcessedAt          time.Time        `json:"processed_at"`
}

// ProjectDonations is the public donor list of a project.
type ProjectDonations struct {
	Donations   []Donation   `json:"donations"`
	TotalAmount ledger.Money `json:"total_amount"`
	TotalCount  int          `json:"total_count"`
}

// ProjectExpense is spending against a project. It counts towards the
// project's expense total once approved.
type ProjectExpense struct {
	ID          int64          `json:"id"`
	ProjectID   int64          `json:"project_id"`
	Category    string         `json:"category,omitempty"`
	Description string         `json:"description,omitempty"`
	Amount      ledger.Money   `json:"amount"`
	ExpenseDate lifecycle.Date `json:"expense_date"`
	ReceiptURL  string         `json:"receipt_url,omitempty"`
	ApprovedBy  *string        `json:"approved_by"`
	ApprovedAt  *time.Time     `json:"approved_at"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Approved reports whether the expense has been signed off.
func (e ProjectExpense) Approved() bool { return e.ApprovedBy != nil }

// ExpenseInput records an expense.
type ExpenseInput struct {
	Category    string         `json:"category"`
	Description string         `json:"description" validate:"required"`
	Amount      ledger.Money   `json:"amount" validate:"gt=0"`
	ExpenseDate lifecycle.Date `json:"expense_date"`
	ReceiptURL  string         `json:"receipt_url"`
}

// ProjectStatistics summarises the donation programme.
type ProjectStatistics struct {
	TotalProjects     int          `json:"total_projects"`
	ActiveProjects    int          `json:"active_projects"`
	CompletedProjects int          `json:"completed_projects"`
	TotalRaised       ledger.Money `json:"total_raised"`
	TotalDonations    int          `json:"total_donations"`
	UniqueDonors      int          `json:"unique_donors"`
}

// Reconciliation compares a project's raised amount with its completed
// donations.
type Reconciliation struct {
	ProjectID  int64 `json:"project_id"`
	Consistent bool  `json:"consistent"`
	ledger.Drift
}

// ProjectStore persists projects, donations and expenses.
type ProjectStore interface {
	ListProjects(ctx context.Context, f ProjectFilter, p Page) ([]Project, int, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	CreateProject(ctx context.Context, managerID string, in ProjectInput) (Project, error)
	UpdateProject(ctx context.Context, id int64, u ProjectUpdate) (Project, error)
	ListProjectsByManager(ctx context.Context, managerID string) ([]Project, error)

	FindDonationByKey(ctx context.Context, donorID, key string) (Donation, bool, error)
	CreateDonation(ctx context.Context, d Donation) (Donation, error)
	CreatePaymentTransaction(ctx context.Context, t PaymentTransaction) (PaymentTransaction, error)
	// GetDonationForUpdate locks the donation row until the transaction ends.
	GetDonationForUpdate(ctx context.Context, id int64) (Donation, error)
	CompleteDonation(ctx context.Context, id int64, at time.Time) (Donation, error)
	// IncrementRaised adds amount to the project's raised total in a single
	// statement.
	IncrementRaised(ctx context.Context, projectID int64, amount ledger.Money) error
	SetTransactionStatus(ctx context.Context, donationID int64, status lifecycle.Status, at time.Time) error
	// AddDonorTotal adds to the donor profile total when one exists.
	AddDonorTotal(ctx context.Context, donorID string, amount ledger.Money) error
	ListProjectDonations(ctx context.Context, projectID int64, limit int) ([]Donation, error)
	CompletedDonationAmounts(ctx context.Context, projectID int64) ([]ledger.Money, error)
	ListDonationsByDonor(ctx context.Context, donorID string) ([]Donation, error)

	ListProjectExpenses(ctx context.Context, projectID int64) ([]ProjectExpense, error)
	CreateProjectExpense(ctx context.Context, projectID int64, createdBy string, in ExpenseInput) (ProjectExpense, error)
	GetProjectExpense(ctx context.Context, id int64) (ProjectExpense, error)
	ApproveProjectExpense(ctx context.Context, id int64, approverID string, at time.Time) (ProjectExpense, error)

	ProjectStatistics(ctx context.Context) (ProjectStatistics, error)
}

// Projects implements fundraising projects and donations.
type Projects struct {
	*base
	store ProjectStore
}

func decorateProject(p Project) Project {
	p.ProgressPercentage = ledger.Progress(p.RaisedAmount, p.TargetAmount)
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Documents == nil {
		p.Documents = []string{}
	}
	return p
}

func expenseTotal(expenses []ProjectExpense) ledger.Money {
	parts := make([]ledger.Expense, 0, len(expenses))
	for _, e := range expenses {
		parts = append(parts, ledger.Expense{Amount: e.Amount, Approved: e.Approved()})
	}
	return ledger.ApprovedTotal(parts)
}

// List returns projects, active ones unless a status is given.
func (s *Projects) List(ctx context.Context, f ProjectFilter, p Page) (List[Project], error) {
	if f.Status == "" {
		f.Status = lifecycle.StatusActive
	}
	if !lifecycle.ProjectFlow.Known(f.Status) {
		return List[Project]{}, apperr.Validation("unknown status %q", f.Status)
	}
	items, total, err := s.store.ListProjects(ctx, f, p)
	if err != nil {
		return List[Project]{}, err
	}
	for i := range items {
		items[i] = decorateProject(items[i])
	}
	return NewList(items, total, p), nil
}

// Get returns a project with its approved expense total.
func (s *Projects) Get(ctx context.Context, id int64) (Project, error) {
	pr, err := s.store.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	expenses, err := s.store.ListProjectExpenses(ctx, id)
	if err != nil {
		return Project{}, err
	}
	pr.ApprovedExpenses = expenseTotal(expenses)
	return decorateProject(pr), nil
}

// Create opens an active project managed by the caller.
func (s *Projects) Create(ctx context.Context, p auth.Principal, in ProjectInput) (Project, error) {
	if !p.HasPermission(auth.PermProjectManagement) && !p.HasRole(auth.RoleOrganization) {
		return Project{}, apperr.Forbidden("Insufficient permissions")
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := required("title", in.Title); err != nil {
		return Project{}, err
	}
	if in.TargetAmount < 0 {
		return Project{}, apperr.Validation("target_amount cannot be negative")
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return Project{}, apperr.Validation("end_date cannot be before start_date")
	}
	pr, err := s.store.CreateProject(ctx, p.ID(), in)
	if err != nil {
		return Project{}, err
	}
	return decorateProject(pr), nil
}

// Update changes a project. Status changes follow the project workflow.
func (s *Projects) Update(ctx context.Context, p auth.Principal, id int64, u ProjectUpdate) (Project, error) {
	u.Title = trimmed(u.Title)
	if u.Title != nil && *u.Title == "" {
		return Project{}, apperr.Validation("title cannot be empty")
	}
	if u.TargetAmount != nil && *u.TargetAmount < 0 {
		return Project{}, apperr.Validation("target_amount cannot be negative")
	}
	var out Project
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pr, err := s.store.GetProject(txCtx, id)
		if err != nil {
			return err
		}
		if !p.CanManage(pr.ManagerID, auth.PermProjectManagement) {
			return apperr.Forbidden("Access denied")
		}
		if u.IsFeatured != nil && !p.HasPermission(auth.PermProjectManagement) {
			return apperr.Forbidden("Insufficient permissions")
		}
		if u.Status != nil && *u.Status != pr.Status {
			if err := lifecycle.ProjectFlow.Transition(pr.Status, *u.Status); err != nil {
				return err
			}
		}
		out, err = s.store.UpdateProject(txCtx, id, u)
		return err
	})
	if err != nil {
		return Project{}, err
	}
	return decorateProject(out), nil
}

// MyProjects lists projects managed by the caller.
func (s *Projects) MyProjects(ctx context.Context, p auth.Principal) ([]Project, error) {
	items, err := s.store.ListProjectsByManager(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = decorateProject(items[i])
	}
	return items, nil
}

// Donate records a pending donation and its pending payment transaction.
// A repeated idempotency key returns the donation it first created.
func (s *Projects) Donate(ctx context.Context, p auth.Principal, projectID int64, in DonationInput, idemKey string) (Donation, error) {
	if err := positive("amount", in.Amount); err != nil {
		return Donation{}, err
	}
	if in.DonationType == "" {
		in.DonationType = "one_time"
	}
	if err := oneOf("donation_type", in.DonationType, "one_time", "recurring"); err != nil {
		return Donation{}, err
	}
	if in.DonationType == "recurring" && in.Frequency == "" {
		return Donation{}, apperr.Validation("frequency is required for recurring donations")
	}
	idemKey = strings.TrimSpace(idemKey)
	var out Donation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if idemKey != "" {
			prev, ok, err := s.store.FindDonationByKey(txCtx, p.ID(), idemKey)
			if err != nil {
				return err
			}
			if ok {
				out, err = replayDonation(prev, projectID, in.Amount)
				return err
			}
		}
		pr, err := s.store.GetProject(txCtx, projectID)
		if err != nil {
			return err
		}
		if pr.Status != lifecycle.StatusActive {
			return apperr.Conflict("Project is not accepting donations")
		}
		out, err = s.store.CreateDonation(txCtx, Donation{
			DonorID:        p.ID(),
			ProjectID:      projectID,
			Amount:         in.Amount,
			Currency:       ledger.Currency,
			DonationType:   in.DonationType,
			Frequency:      in.Frequency,
			IsAnonymous:    in.IsAnonymous,
			Message:        strings.TrimSpace(in.Message),
			PaymentMethod:  in.PaymentMethod,
			TransactionID:  ids.Reference("DON"),
			PaymentStatus:  lifecycle.DonationFlow.Initial(),
			TaxDeductible:  true,
			IdempotencyKey: idemKey,
			DonatedAt:      s.clock(),
		})
		if err != nil {
			return err
		}
		_, err = s.store.CreatePaymentTransaction(txCtx, PaymentTransaction{
			DonationID:           out.ID,
			TransactionType:      "donation",
			Amount:               out.Amount,
			Currency:             out.Currency,
			PaymentGateway:       out.PaymentMethod,
			GatewayTransactionID: ids.Reference("TXN"),
			Status:               lifecycle.PaymentTransactionFlow.Initial(),
			ProcessedAt:          out.DonatedAt,
		})
		return err
	})
	if err != nil && idemKey != "" && errors.Is(err, apperr.ErrConflict) {
		// A concurrent request with the same key won the insert.
		prev, ok, ferr := s.store.FindDonationByKey(ctx, p.ID(), idemKey)
		if ferr == nil && ok {
			return replayDonation(prev, projectID, in.Amount)
		}
	}
	return out, err
}

func replayDonation(prev Donation, projectID int64, amount ledger.Money) (Donation, error) {
	if prev.ProjectID != projectID || prev.Amount != amount {
		return Donation{}, apperr.Conflict("Idempotency-Key was used for a different donation")
	}
	return prev, nil
}

// ConfirmDonation completes the caller's pending donation and credits the
// project. The donation row stays locked for the whole unit of work so a
// donation is credited at most once.
func (s *Projects) ConfirmDonation(ctx context.Context, p auth.Principal, donationID int64) (Donation, error) {
	var out Donation
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		d, err := s.store.GetDonationForUpdate(txCtx, donationID)
		if err != nil {
			return err
		}
		if d.DonorID != p.ID() {
			return apperr.Forbidden("Access denied")
		}
		if d.PaymentStatus != lifecycle.StatusPending {
			return apperr.Conflict("Donation already processed")
		}
		if err := lifecycle.DonationFlow.Transition(d.PaymentStatus, lifecycle.StatusCompleted); err != nil {
			return err
		}
		now := s.clock()
		if out, err = s.store.CompleteDonation(txCtx, donationID, now); err != nil {
			return err
		}
		if err := s.store.IncrementRaised(txCtx, d.ProjectID, d.Amount); err != nil {
			return err
		}
		if err := s.store.SetTransactionStatus(txCtx, donationID, lifecycle.StatusSuccess, now); err != nil {
			return err
		}
		return s.store.AddDonorTotal(txCtx, d.DonorID, d.Amount)
	})
	if err == nil {
		obs.ObserveDonationConfirmed()
	}
	return out, err
}

// Donations lists a project's recent public donations and its totals.
// Anonymous donations count towards the totals but are not listed.
func (s *Projects) Donations(ctx context.Context, projectID int64) (ProjectDonations, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return ProjectDonations{}, err
	}
	items, err := s.store.ListProjectDonations(ctx, projectID, RecentDonationsLimit)
	if err != nil {
		return ProjectDonations{}, err
	}
	amounts, err := s.store.CompletedDonationAmounts(ctx, projectID)
	if err != nil {
		return ProjectDonations{}, err
	}
	if items == nil {
		items = []Donation{}
	}
	return ProjectDonations{Donations: items, TotalAmount: ledger.Sum(amounts...), TotalCount: len(amounts)}, nil
}

// MyDonations lists the caller's donations.
func (s *Projects) MyDonations(ctx context.Context, p auth.Principal) ([]Donation, error) {
	return s.store.ListDonationsByDonor(ctx, p.ID())
}

func (s *Projects) managed(ctx context.Context, p auth.Principal, projectID int64) (Project, error) {
	pr, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	if !p.CanManage(pr.ManagerID, auth.PermProjectManagement) {
		return Project{}, apperr.Forbidden("Access denied")
	}
	return pr, nil
}

// Expenses lists a project's expenses for its manager.
func (s *Projects) Expenses(ctx context.Context, p auth.Principal, projectID int64) ([]ProjectExpense, error) {
	if _, err := s.managed(ctx, p, projectID); err != nil {
		return nil, err
	}
	return s.store.ListProjectExpenses(ctx, projectID)
}

// AddExpense records an unapproved expense.
func (s *Projects) AddExpense(ctx context.Context, p auth.Principal, projectID int64, in ExpenseInput) (ProjectExpense, error) {
	if err := positive("amount", in.Amount); err != nil {
		return ProjectExpense{}, err
	}
	in.Description = strings.TrimSpace(in.Description)
	if err := required("description", in.Description); err != nil {
		return ProjectExpense{}, err
	}
	if _, err := s.managed(ctx, p, projectID); err != nil {
		return ProjectExpense{}, err
	}
	if in.ExpenseDate.IsZero() {
		in.ExpenseDate = lifecycle.DateOf(s.clock())
	}
	return s.store.CreateProjectExpense(ctx, projectID, p.ID(), in)
}

// ApproveExpense signs off an expense so it counts towards the total.
func (s *Projects) ApproveExpense(ctx context.Context, p auth.Principal, expenseID int64) (ProjectExpense, error) {
	if !p.HasPermission(auth.PermProjectManagement) {
		return ProjectExpense{}, apperr.Forbidden("Insufficient permissions")
	}
	var out ProjectExpense
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		e, err := s.store.GetProjectExpense(txCtx, expenseID)
		if err != nil {
			return err
		}
		if e.Approved() {
			return apperr.Conflict("Expense already approved")
		}
		out, err = s.store.ApproveProjectExpense(txCtx, expenseID, p.ID(), s.clock())
		return err
	})
	return out, err
}

// Statistics summarises projects and donations.
func (s *Projects) Statistics(ctx context.Context) (ProjectStatistics, error) {
	return s.store.ProjectStatistics(ctx)
}

// Reconcile compares the project's raised amount with the sum of its
// completed donations.
func (s *Projects) Reconcile(ctx context.Context, p auth.Principal, projectID int64) (Reconciliation, error) {
	if !p.HasPermission(auth.PermProjectManagement) {
		return Reconciliation{}, apperr.Forbidden("Insufficient permissions")
	}
	pr, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return Reconciliation{}, err
	}
	amounts, err := s.store.CompletedDonationAmounts(ctx, projectID)
	if err != nil {
		return Reconciliation{}, err
	}
	drift := ledger.Reconcile(pr.RaisedAmount, amounts)
	if !drift.Consistent() {
		obs.Logger().WarnContext(ctx, "raised amount drift",
			"project_id", projectID, "recorded", drift.Recorded, "computed", drift.Computed)
	}
	return Reconciliation{ProjectID: projectID, Consistent: drift.Consistent(), Drift: drift}, nil
}
