package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"ongon.org/internal/auth"
	"ongon.org/internal/obs"
	"ongon.org/internal/uow"
	"ongon.org/internal/welfare"
)

// Store inserts catalog rows unless a row with the same name exists. Each
// Ensure method reports whether it inserted.
type Store interface {
	EnsurePermission(ctx context.Context, p auth.PermissionInfo) (bool, error)
	EnsureRole(ctx context.Context, r auth.RoleInfo) (bool, error)
	// EnsureRoleGrant links a role to a permission; an existing link is a no-op.
	EnsureRoleGrant(ctx context.Context, role auth.RoleName, perm auth.Permission) (bool, error)
	EnsureCourseCategory(ctx context.Context, name, description string) (bool, error)
	EnsureJobCategory(ctx context.Context, name, description string) (bool, error)
	EnsureLoanProduct(ctx context.Context, p welfare.LoanProduct) (bool, error)
	EnsureCrop(ctx context.Context, c welfare.Crop) (bool, error)
}

// Report counts the rows a run inserted.
type Report struct {
	Permissions      int
	Roles            int
	Grants           int
	CourseCategories int
	JobCategories    int
	LoanProducts     int
	Crops            int
}

// Total is the number of rows inserted.
func (r Report) Total() int {
	return r.Permissions + r.Roles + r.Grants + r.CourseCategories + r.JobCategories + r.LoanProducts + r.Crops
}

// Seeder writes the default catalog in one unit of work.
type Seeder struct {
	store Store
	tx    uow.Runner
}

// NewSeeder builds a seeder. A nil runner applies rows without a transaction.
func NewSeeder(store Store, tx uow.Runner) (*Seeder, error) {
	if store == nil {
		return nil, errors.New("bootstrap: store is required")
	}
	if tx == nil {
		tx = uow.Nop()
	}
	return &Seeder{store: store, tx: tx}, nil
}

// Run seeds whatever is missing.
func (s *Seeder) Run(ctx context.Context) (Report, error) {
	var rep Report
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		rep = Report{}
		for _, p := range auth.Permissions {
			if err := count(&rep.Permissions, "permission "+string(p.Name))(s.store.EnsurePermission(txCtx, p)); err != nil {
				return err
			}
		}
		for _, r := range auth.Roles {
			if err := count(&rep.Roles, "role "+string(r.Name))(s.store.EnsureRole(txCtx, r)); err != nil {
				return err
			}
			for _, perm := range r.Grants {
				if err := count(&rep.Grants, "grant "+string(perm))(s.store.EnsureRoleGrant(txCtx, r.Name, perm)); err != nil {
					return err
				}
			}
		}
		for _, c := range CourseCategories {
			if err := count(&rep.CourseCategories, "course category "+c.Name)(s.store.EnsureCourseCategory(txCtx, c.Name, c.Description)); err != nil {
				return err
			}
		}
		for _, c := range JobCategories {
			if err := count(&rep.JobCategories, "job category "+c.Name)(s.store.EnsureJobCategory(txCtx, c.Name, c.Description)); err != nil {
				return err
			}
		}
		for _, p := range LoanProducts {
			if err := count(&rep.LoanProducts, "loan product "+p.Name)(s.store.EnsureLoanProduct(txCtx, p)); err != nil {
				return err
			}
		}
		for _, c := range Crops {
			if err := count(&rep.Crops, "crop "+c.Name)(s.store.EnsureCrop(txCtx, c)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	obs.Logger().InfoContext(ctx, "default catalog seeded",
		"inserted", rep.Total(),
		"roles", rep.Roles,
		"permissions", rep.Permissions,
		"loan_products", rep.LoanProducts,
		"crops", rep.Crops)
	return rep, nil
}

func count(n *int, what string) func(bool, error) error {
	return func(inserted bool, err error) error {
		if err != nil {
			return fmt.Errorf("seed %s: %w", what, err)
		}
		if inserted {
			*n++
		}
		return nil
	}
}
