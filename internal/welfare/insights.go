package welfare

import (
	"context"
	"strings"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
)

// SearchLimit caps the hits returned per category.
const SearchLimit = 10

// Search categories.
const (
	SearchCourses  = "courses"
	SearchJobs     = "jobs"
	SearchProducts = "products"
	SearchProjects = "projects"
)

var searchCategories = []string{SearchCourses, SearchJobs, SearchProducts, SearchProjects}

// SearchHit is one search result.
type SearchHit struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

// SearchResults groups hits by category.
type SearchResults struct {
	Query   string                 `json:"query"`
	Results map[string][]SearchHit `json:"results"`
	Total   int                    `json:"total"`
}

// Dashboard holds live counts across the modules.
type Dashboard struct {
	Users          int `json:"total_users"`
	ActiveUsers    int `json:"active_users"`
	Courses        int `json:"total_courses"`
	Enrollments    int `json:"total_enrollments"`
	Providers      int `json:"verified_providers"`
	Consultations  int `json:"total_consultations"`
	BloodDonors    int `json:"blood_donors"`
	Farmers        int `json:"total_farmers"`
	Products       int `json:"available_products"`
	LoansActive    int `json:"active_loans"`
	JobsOpen       int `json:"open_jobs"`
	Events         int `json:"upcoming_events"`
	Projects       int `json:"active_projects"`
	DonationsTotal int `json:"completed_donations"`
}

// InsightStore runs the cross-module queries.
type InsightStore interface {
	// Search returns up to limit hits in category whose title contains q.
	Search(ctx context.Context, category, q string, limit int) ([]SearchHit, error)
	DashboardCounts(ctx context.Context) (Dashboard, error)
}

// Insights implements search and the admin dashboard.
type Insights struct {
	*base
	store InsightStore
}

// Search looks q up across courses, jobs, products and projects, or only in
// category when one is given.
func (s *Insights) Search(ctx context.Context, q, category string) (SearchResults, error) {
	q = strings.TrimSpace(q)
	if len(q) < 2 {
		return SearchResults{}, apperr.Validation("query must be at least 2 characters")
	}
	cats := searchCategories
	if category = strings.TrimSpace(category); category != "" {
		if err := oneOf("category", category, searchCategories...); err != nil {
			return SearchResults{}, err
		}
		cats = []string{category}
	}
	out := SearchResults{Query: q, Results: make(map[string][]SearchHit, len(cats))}
	for _, c := range cats {
		hits, err := s.store.Search(ctx, c, q, SearchLimit)
		if err != nil {
			return SearchResults{}, err
		}
		if hits == nil {
			hits = []SearchHit{}
		}
		out.Results[c] = hits
		out.Total += len(hits)
	}
	return out, nil
}

// Dashboard returns the live counts for report viewers.
func (s *Insights) Dashboard(ctx context.Context, p auth.Principal) (Dashboard, error) {
	if !p.HasPermission(auth.PermReportAccess) {
		return Dashboard{}, apperr.Forbidden("Insufficient permissions")
	}
	return s.store.DashboardCounts(ctx)
}
