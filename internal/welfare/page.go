package welfare

// Paging defaults; the HTTP layer overrides them from configuration.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page selects a window of a listing. Number starts at 1.
type Page struct {
	Number  int
	PerPage int
}

// NewPage clamps the requested page into range.
func NewPage(number, perPage, defaultPerPage, maxPerPage int) Page {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	if maxPerPage <= 0 {
		maxPerPage = MaxPerPage
	}
	if number < 1 {
		number = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return Page{Number: number, PerPage: perPage}
}

func (p Page) normalized() Page {
	return NewPage(p.Number, p.PerPage, DefaultPerPage, MaxPerPage)
}

// Limit is the row limit of the page.
func (p Page) Limit() int { return p.normalized().PerPage }

// Offset is the number of rows skipped before the page.
func (p Page) Offset() int {
	n := p.normalized()
	return (n.Number - 1) * n.PerPage
}

// List is a paginated listing.
type List[T any] struct {
	Items       []T `json:"items"`
	Total       int `json:"total"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
}

// NewList builds the listing response for one page of a total.
func NewList[T any](items []T, total int, p Page) List[T] {
	p = p.normalized()
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return List[T]{Items: items, Total: total, Pages: pages, CurrentPage: p.Number, PerPage: p.PerPage}
}
