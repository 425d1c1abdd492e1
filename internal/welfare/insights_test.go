package welfare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
)

type searchStore struct {
	*fakeStore
	seen []string
}

func (s *searchStore) Search(_ context.Context, category, q string, limit int) ([]SearchHit, error) {
	s.seen = append(s.seen, category)
	if category == SearchCourses {
		return []SearchHit{{ID: 1, Title: "Rice " + q, Type: "course"}}, nil
	}
	return nil, nil
}

func TestSearch(t *testing.T) {
	store := &searchStore{fakeStore: newFakeStore()}
	svc, err := New(store, &fakeRoles{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Insights.Search(ctx, "a", "")
	requireKind(t, err, apperr.ErrValidation, "")

	res, err := svc.Insights.Search(ctx, "farming", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Results, 4)
	assert.Empty(t, res.Results[SearchJobs])
	assert.Equal(t, searchCategories, store.seen)

	_, err = svc.Insights.Search(ctx, "farming", "weather")
	requireKind(t, err, apperr.ErrValidation, "")
}

func TestDashboardNeedsReportAccess(t *testing.T) {
	svc, _, _ := newServices(t)
	_, err := svc.Insights.Dashboard(context.Background(), user("member", auth.RoleVolunteer))
	requireKind(t, err, apperr.ErrForbidden, "")
}

func TestNewPageClamps(t *testing.T) {
	p := NewPage(0, 500, 20, 100)
	assert.Equal(t, Page{Number: 1, PerPage: 100}, p)
	assert.Equal(t, 0, p.Offset())

	l := NewList([]int{1, 2}, 41, Page{Number: 3, PerPage: 20})
	assert.Equal(t, 3, l.Pages)
	assert.Equal(t, 3, l.CurrentPage)
}
