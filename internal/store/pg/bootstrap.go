package pg

import (
	"context"
	"database/sql"

	"ongon.org/internal/auth"
	"ongon.org/internal/bootstrap"
	"ongon.org/internal/welfare"
)

var (
	_ welfare.Store   = (*Store)(nil)
	_ bootstrap.Store = (*Store)(nil)
)

func inserted(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) EnsurePermission(ctx context.Context, p auth.PermissionInfo) (bool, error) {
	return inserted(s.conn(ctx).ExecContext(ctx, `
		insert into permissions (name, module, description) values ($1, $2, $3)
		on conflict (name) do nothing
	`, string(p.Name), p.Module, p.Description))
}

func (s *Store) EnsureRole(ctx context.Context, r auth.RoleInfo) (bool, error) {
	return inserted(s.conn(ctx).ExecContext(ctx, `
		insert into roles (name, description) values ($1, $2)
		on conflict (name) do nothing
	`, string(r.Name), r.Description))
}

// EnsureRoleGrant inserts nothing when either name is unknown.
func (s *Store) EnsureRoleGrant(ctx context.Context, role auth.RoleName, perm auth.Permission) (bool, error) {
	return inserted(s.conn(ctx).ExecContext(ctx, `
		insert into role_permissions (role_id, permission_id)
		select r.id, p.id from roles r, permissions p where r.name = $1 and p.name = $2
		on conflict do nothing
	`, string(role), string(perm)))
}

func (s *Store) EnsureCourseCategory(ctx context.Context, name, description string) (bool, error) {
	return inserted(s.conn(ctx).ExecContext(ctx, `
		insert into course_categories (name, description) values ($1, $2)
		on conflict (name) do nothing
	`, name, description))
}

func (s *Store) EnsureJobCategory(ctx context.Context, name, description string) (bool, error) {
	return inserted(s.conn(ctx).ExecContext(ctx, `
		insert into job_categories (name, description) values ($1, $2)
		on conflict (name) do nothing
	`, name, description))
}

func (s *Store) EnsureLoanProduct(ctx context.Context, p welfare.LoanProduct) (bool, error) {
	return inserted(s.conn(ctx).ExecContext(ctx, `
		insert into loan_products (name, description, min_amount, max_amount, interest_rate, tenure_months,
			eligibility_criteria, required_documents)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict (name) do nothing
	`, p.Name, p.Description, p.MinAmount, p.MaxAmount, p.InterestRate, p.TenureMonths,
		p.EligibilityCriteria, jsonList(p.RequiredDocuments)))
}

func (s *Store) EnsureCrop(ctx context.Context, c welfare.Crop) (bool, error) {
	return inserted(s.conn(ctx).ExecContext(ctx, `
		insert into crops (name, scientific_name, category, growing_season, maturity_days, water_requirements)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (name) do nothing
	`, c.Name, c.ScientificName, c.Category, c.GrowingSeason, c.MaturityDays, c.WaterRequirements))
}
