package pg

import (
	"context"
	"fmt"

	"ongon.org/internal/welfare"
)

type searchSource struct {
	table   string
	visible string
}

var searchSources = map[string]searchSource{
	welfare.SearchCourses:  {table: "courses", visible: "is_published"},
	welfare.SearchJobs:     {table: "job_postings", visible: "is_active"},
	welfare.SearchProducts: {table: "products", visible: "is_available"},
	welfare.SearchProjects: {table: "projects", visible: "status = 'active'"},
}

// Search matches q against the title of visible rows, newest first.
func (s *Store) Search(ctx context.Context, category, q string, limit int) ([]welfare.SearchHit, error) {
	src, ok := searchSources[category]
	if !ok {
		return nil, fmt.Errorf("pg: unknown search category %q", category)
	}
	query := fmt.Sprintf(`
		select id, title, description from %s
		where %s and title ilike $1
		order by created_at desc
		limit $2
	`, src.table, src.visible)
	rows, err := s.conn(ctx).QueryContext(ctx, query, like(q), limit)
	return collect(rows, err, func(row scanner) (welfare.SearchHit, error) {
		h := welfare.SearchHit{Type: category}
		return h, row.Scan(&h.ID, &h.Title, &h.Description)
	})
}

func (s *Store) DashboardCounts(ctx context.Context) (welfare.Dashboard, error) {
	var d welfare.Dashboard
	err := s.conn(ctx).QueryRowContext(ctx, `
		select
			(select count(*) from users),
			(select count(*) from users where is_active),
			(select count(*) from courses where is_published),
			(select count(*) from course_enrollments),
			(select count(*) from healthcare_providers where is_verified),
			(select count(*) from consultations),
			(select count(*) from blood_donors where is_available),
			(select count(*) from farmers),
			(select count(*) from products where is_available),
			(select count(*) from loans where status = 'active'),
			(select count(*) from job_postings
				where is_active and (application_deadline is null or application_deadline >= current_date)),
			(select count(*) from events where is_active and (start_datetime is null or start_datetime >= now())),
			(select count(*) from projects where status = 'active'),
			(select count(*) from donations where payment_status = 'completed')
	`).Scan(&d.Users, &d.ActiveUsers, &d.Courses, &d.Enrollments, &d.Providers, &d.Consultations, &d.BloodDonors,
		&d.Farmers, &d.Products, &d.LoansActive, &d.JobsOpen, &d.Events, &d.Projects, &d.DonationsTotal)
	return d, err
}
