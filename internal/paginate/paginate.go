// Package paginate slices an already-fetched collection into pages.
package paginate

import "github.com/andresuchdata/erp-reports/backend-go/internal/domain"

// TotalPages returns ceil(count/perPage), never less than 1 so an empty
// result reads "page 1 of 1".
func TotalPages(count, perPage int) int {
	if perPage <= 0 || count <= 0 {
		return 1
	}
	return (count + perPage - 1) / perPage
}

// Paginate returns the rows visible on currentPage and the page count.
// Pages outside [1, totalPages] yield no rows.
func Paginate(items []domain.Row, currentPage, perPage int) ([]domain.Row, int) {
	total := TotalPages(len(items), perPage)
	if perPage <= 0 || currentPage < 1 || currentPage > total {
		return []domain.Row{}, total
	}

	start := (currentPage - 1) * perPage
	if start >= len(items) {
		return []domain.Row{}, total
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end], total
}

// FromTotal builds page metadata for server-side pagination, where the backend
// returns one page and a total count.
func FromTotal(total, currentPage, perPage int) domain.PageState {
	pages := TotalPages(total, perPage)
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > pages {
		currentPage = pages
	}
	return domain.PageState{
		CurrentPage:  currentPage,
		ItemsPerPage: perPage,
		TotalPages:   pages,
	}
}
