package paginate

import "github.com/andresuchdata/erp-reports/backend-go/internal/domain"

// DefaultPerPage is used when a non-positive page size is requested.
const DefaultPerPage = 10

// Navigator owns the PageState of one list page. Out-of-range page numbers
// are never set: navigation that would leave [1, TotalPages] is refused.
type Navigator struct {
	state domain.PageState
}

func NewNavigator(perPage int) *Navigator {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Navigator{state: domain.PageState{
		CurrentPage:  1,
		ItemsPerPage: perPage,
		TotalPages:   1,
	}}
}

// State returns a copy of the current page state.
func (n *Navigator) State() domain.PageState {
	return n.state
}

// Visible returns the rows of the current page.
func (n *Navigator) Visible() []domain.Row {
	rows, _ := Paginate(n.state.AllItems, n.state.CurrentPage, n.state.ItemsPerPage)
	return rows
}

// SetItems replaces the collection and clamps the current page into range.
func (n *Navigator) SetItems(items []domain.Row) {
	n.state.AllItems = items
	n.state.TotalPages = TotalPages(len(items), n.state.ItemsPerPage)
	n.clamp()
}

// SetTotal records the size of a collection the backend pages for us. Only
// the page count is kept; the current page is clamped into range.
func (n *Navigator) SetTotal(count int) {
	n.state.AllItems = nil
	n.state.TotalPages = TotalPages(count, n.state.ItemsPerPage)
	n.clamp()
}

func (n *Navigator) clamp() {
	if n.state.CurrentPage > n.state.TotalPages {
		n.state.CurrentPage = n.state.TotalPages
	}
	if n.state.CurrentPage < 1 {
		n.state.CurrentPage = 1
	}
}

// SetItemsPerPage changes the page size and always returns to page 1.
func (n *Navigator) SetItemsPerPage(perPage int) bool {
	if perPage <= 0 {
		return false
	}
	n.state.ItemsPerPage = perPage
	n.state.CurrentPage = 1
	n.state.TotalPages = TotalPages(len(n.state.AllItems), perPage)
	return true
}

// GoTo moves to page p if it exists.
func (n *Navigator) GoTo(p int) bool {
	if p < 1 || p > n.state.TotalPages {
		return false
	}
	n.state.CurrentPage = p
	return true
}

func (n *Navigator) Next() bool { return n.GoTo(n.state.CurrentPage + 1) }

func (n *Navigator) Prev() bool { return n.GoTo(n.state.CurrentPage - 1) }

func (n *Navigator) HasNext() bool { return n.state.CurrentPage < n.state.TotalPages }

func (n *Navigator) HasPrev() bool { return n.state.CurrentPage > 1 }
