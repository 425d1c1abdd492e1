package pg

import (
	"context"
	"errors"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

const projectSelect = `
	select p.id, p.title, p.description, p.category, p.manager_id, p.target_amount, p.raised_amount,
		p.start_date, p.end_date, p.location_address, p.images, p.documents, p.status, p.is_featured,
		(select count(*) from donations d where d.project_id = p.id and d.payment_status = 'completed'),
		p.created_at, p.updated_at
	from projects p`

func scanProject(row scanner) (welfare.Project, error) {
	var (
		p         welfare.Project
		images    texts
		documents texts
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.ManagerID, &p.TargetAmount, &p.RaisedAmount,
		&p.StartDate, &p.EndDate, &p.LocationAddress, &images, &documents, &p.Status, &p.IsFeatured,
		&p.DonationCount, &p.CreatedAt, &p.UpdatedAt)
	p.Images, p.Documents = images, documents
	return p, mapError(err, "Project")
}

func (s *Store) ListProjects(ctx context.Context, f welfare.ProjectFilter, pg welfare.Page) ([]welfare.Project, int, error) {
	var w filter
	w.add("p.status = ?", f.Status)
	if f.Category != "" {
		w.add("p.category = ?", f.Category)
	}
	if f.FeaturedOnly {
		w.add("p.is_featured")
	}
	total, err := s.count(ctx, `select count(*) from projects p`+w.where(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	q := projectSelect + w.where() + ` order by p.is_featured desc, p.created_at desc` + w.page(pg.Limit(), pg.Offset())
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	items, err := collect(rows, err, scanProject)
	return items, total, err
}

func (s *Store) GetProject(ctx context.Context, id int64) (welfare.Project, error) {
	return scanProject(s.conn(ctx).QueryRowContext(ctx, projectSelect+` where p.id = $1`, id))
}

func (s *Store) CreateProject(ctx context.Context, managerID string, in welfare.ProjectInput) (welfare.Project, error) {
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into projects (title, description, category, manager_id, target_amount, start_date, end_date,
			location_address, images, documents, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning id
	`, in.Title, in.Description, in.Category, managerID, in.TargetAmount, in.StartDate, in.EndDate,
		in.LocationAddress, jsonList(in.Images), jsonList(in.Documents), lifecycle.ProjectFlow.Initial()).Scan(&id)
	if err != nil {
		return welfare.Project{}, mapError(err, "Project")
	}
	return s.GetProject(ctx, id)
}

func (s *Store) UpdateProject(ctx context.Context, id int64, u welfare.ProjectUpdate) (welfare.Project, error) {
	var set setter
	setIf(&set, "title", u.Title)
	setIf(&set, "description", u.Description)
	setIf(&set, "category", u.Category)
	setIf(&set, "target_amount", u.TargetAmount)
	setIf(&set, "end_date", u.EndDate)
	setIf(&set, "location_address", u.LocationAddress)
	if u.Images != nil {
		set.set("images", jsonList(u.Images))
	}
	if u.Documents != nil {
		set.set("documents", jsonList(u.Documents))
	}
	setIf(&set, "status", u.Status)
	setIf(&set, "is_featured", u.IsFeatured)
	if !set.empty() {
		set.touch()
		q, args := set.statement("projects", "id", id)
		res, err := s.conn(ctx).ExecContext(ctx, q, args...)
		if err != nil {
			return welfare.Project{}, mapError(err, "Project")
		}
		if err := affected(res, "Project"); err != nil {
			return welfare.Project{}, err
		}
	}
	return s.GetProject(ctx, id)
}

func (s *Store) ListProjectsByManager(ctx context.Context, managerID string) ([]welfare.Project, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, projectSelect+` where p.manager_id = $1 order by p.created_at desc`, managerID)
	return collect(rows, err, scanProject)
}

const donationSelect = `
	select d.id, d.donor_id, case when d.is_anonymous then '' else trim(u.first_name || ' ' || u.last_name) end,
		d.project_id, p.title, d.amount, d.currency, d.donation_type, d.frequency, d.is_anonymous, d.message,
		d.payment_method, d.transaction_id, d.payment_status, d.tax_deductible, d.receipt_url,
		coalesce(d.idempotency_key, ''), d.donated_at, d.processed_at
	from donations d
	join projects p on p.id = d.project_id
	join users u on u.id = d.donor_id`

func scanDonation(row scanner) (welfare.Donation, error) {
	var d welfare.Donation
	err := row.Scan(&d.ID, &d.DonorID, &d.DonorName, &d.ProjectID, &d.ProjectTitle, &d.Amount, &d.Currency,
		&d.DonationType, &d.Frequency, &d.IsAnonymous, &d.Message, &d.PaymentMethod, &d.TransactionID,
		&d.PaymentStatus, &d.TaxDeductible, &d.ReceiptURL, &d.IdempotencyKey, &d.DonatedAt, &d.ProcessedAt)
	return d, mapError(err, "Donation")
}

// FindDonationByKey reports false when the donor never used key.
func (s *Store) FindDonationByKey(ctx context.Context, donorID, key string) (welfare.Donation, bool, error) {
	d, err := scanDonation(s.conn(ctx).QueryRowContext(ctx,
		donationSelect+` where d.donor_id = $1 and d.idempotency_key = $2`, donorID, key))
	if errors.Is(err, apperr.ErrNotFound) {
		return welfare.Donation{}, false, nil
	}
	if err != nil {
		return welfare.Donation{}, false, err
	}
	return d, true, nil
}

func (s *Store) CreateDonation(ctx context.Context, d welfare.Donation) (welfare.Donation, error) {
	var key *string
	if d.IdempotencyKey != "" {
		key = &d.IdempotencyKey
	}
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into donations (donor_id, project_id, amount, currency, donation_type, frequency, is_anonymous,
			message, payment_method, transaction_id, payment_status, tax_deductible, idempotency_key, donated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		returning id
	`, d.DonorID, d.ProjectID, d.Amount, d.Currency, d.DonationType, d.Frequency, d.IsAnonymous,
		d.Message, d.PaymentMethod, d.TransactionID, d.PaymentStatus, d.TaxDeductible, key, d.DonatedAt).Scan(&id)
	if err != nil {
		return welfare.Donation{}, mapError(err, "Project")
	}
	return scanDonation(s.conn(ctx).QueryRowContext(ctx, donationSelect+` where d.id = $1`, id))
}

func (s *Store) CreatePaymentTransaction(ctx context.Context, t welfare.PaymentTransaction) (welfare.PaymentTransaction, error) {
	err := s.conn(ctx).QueryRowContext(ctx, `
		insert into payment_transactions (donation_id, transaction_type, amount, currency, payment_gateway,
			gateway_transaction_id, status, processed_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`, t.DonationID, t.TransactionType, t.Amount, t.Currency, t.PaymentGateway,
		t.GatewayTransactionID, t.Status, t.ProcessedAt).Scan(&t.ID)
	if err != nil {
		return welfare.PaymentTransaction{}, mapError(err, "Donation")
	}
	return t, nil
}

func (s *Store) GetDonationForUpdate(ctx context.Context, id int64) (welfare.Donation, error) {
	return scanDonation(s.conn(ctx).QueryRowContext(ctx, donationSelect+` where d.id = $1 for update of d`, id))
}

func (s *Store) CompleteDonation(ctx context.Context, id int64, at time.Time) (welfare.Donation, error) {
	res, err := s.conn(ctx).ExecContext(ctx,
		`update donations set payment_status = $2, processed_at = $3 where id = $1`, id, lifecycle.StatusCompleted, at)
	if err != nil {
		return welfare.Donation{}, err
	}
	if err := affected(res, "Donation"); err != nil {
		return welfare.Donation{}, err
	}
	return scanDonation(s.conn(ctx).QueryRowContext(ctx, donationSelect+` where d.id = $1`, id))
}

func (s *Store) IncrementRaised(ctx context.Context, projectID int64, amount ledger.Money) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		update projects set raised_amount = raised_amount + $2, updated_at = now() where id = $1
	`, projectID, amount)
	if err != nil {
		return err
	}
	return affected(res, "Project")
}

func (s *Store) SetTransactionStatus(ctx context.Context, donationID int64, status lifecycle.Status, at time.Time) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`update payment_transactions set status = $2, processed_at = $3 where donation_id = $1`, donationID, status, at)
	return err
}

func (s *Store) AddDonorTotal(ctx context.Context, donorID string, amount ledger.Money) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		update donor_profiles set total_donated = total_donated + $2, updated_at = now() where user_id = $1
	`, donorID, amount)
	return err
}

// ListProjectDonations returns the latest completed, non-anonymous donations.
func (s *Store) ListProjectDonations(ctx context.Context, projectID int64, limit int) ([]welfare.Donation, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, donationSelect+`
		where d.project_id = $1 and d.payment_status = 'completed' and not d.is_anonymous
		order by d.donated_at desc
		limit $2
	`, projectID, limit)
	items, err := collect(rows, err, scanDonation)
	for i := range items {
		items[i].DonorID = ""
	}
	return items, err
}

func (s *Store) CompletedDonationAmounts(ctx context.Context, projectID int64) ([]ledger.Money, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select amount from donations where project_id = $1 and payment_status = 'completed' order by id`, projectID)
	return collect(rows, err, func(row scanner) (ledger.Money, error) {
		var m ledger.Money
		return m, row.Scan(&m)
	})
}

func (s *Store) ListDonationsByDonor(ctx context.Context, donorID string) ([]welfare.Donation, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, donationSelect+` where d.donor_id = $1 order by d.donated_at desc`, donorID)
	return collect(rows, err, scanDonation)
}

const expenseColumns = `id, project_id, category, description, amount, expense_date, receipt_url,
	approved_by, approved_at, created_by, created_at`

func scanExpense(row scanner) (welfare.ProjectExpense, error) {
	var e welfare.ProjectExpense
	err := row.Scan(&e.ID, &e.ProjectID, &e.Category, &e.Description, &e.Amount, &e.ExpenseDate, &e.ReceiptURL,
		&e.ApprovedBy, &e.ApprovedAt, &e.CreatedBy, &e.CreatedAt)
	return e, mapError(err, "Expense")
}

func (s *Store) ListProjectExpenses(ctx context.Context, projectID int64) ([]welfare.ProjectExpense, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`select `+expenseColumns+` from project_expenses where project_id = $1 order by expense_date desc nulls last, id desc`,
		projectID)
	return collect(rows, err, scanExpense)
}

func (s *Store) CreateProjectExpense(ctx context.Context, projectID int64, createdBy string, in welfare.ExpenseInput) (welfare.ProjectExpense, error) {
	return scanExpense(s.conn(ctx).QueryRowContext(ctx, `
		insert into project_expenses (project_id, category, description, amount, expense_date, receipt_url, created_by)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+expenseColumns,
		projectID, in.Category, in.Description, in.Amount, in.ExpenseDate, in.ReceiptURL, createdBy))
}

func (s *Store) GetProjectExpense(ctx context.Context, id int64) (welfare.ProjectExpense, error) {
	return scanExpense(s.conn(ctx).QueryRowContext(ctx, `select `+expenseColumns+` from project_expenses where id = $1`, id))
}

func (s *Store) ApproveProjectExpense(ctx context.Context, id int64, approverID string, at time.Time) (welfare.ProjectExpense, error) {
	return scanExpense(s.conn(ctx).QueryRowContext(ctx, `
		update project_expenses set approved_by = $2, approved_at = $3 where id = $1
		returning `+expenseColumns,
		id, approverID, at))
}

func (s *Store) ProjectStatistics(ctx context.Context) (welfare.ProjectStatistics, error) {
	var st welfare.ProjectStatistics
	err := s.conn(ctx).QueryRowContext(ctx, `
		select
			(select count(*) from projects),
			(select count(*) from projects where status = 'active'),
			(select count(*) from projects where status = 'completed'),
			(select coalesce(sum(amount), 0) from donations where payment_status = 'completed'),
			(select count(*) from donations where payment_status = 'completed'),
			(select count(distinct donor_id) from donations where payment_status = 'completed')
	`).Scan(&st.TotalProjects, &st.ActiveProjects, &st.CompletedProjects, &st.TotalRaised, &st.TotalDonations,
		&st.UniqueDonors)
	return st, err
}
