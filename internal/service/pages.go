package service

import (
	"reflect"
	"sync"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/paginate"
)

// pageView tracks the page a session is looking at on one report. Page
// requests go through its Navigator, so a page-size change returns to page 1
// and a page beyond the last one is refused.
type pageView struct {
	mu     sync.Mutex
	nav    *paginate.Navigator
	filter *domain.Filter
	sized  bool

	// counted is set once the page count of the current filter is known.
	counted bool
}

func newPageView() *pageView {
	return &pageView{nav: paginate.NewNavigator(paginate.DefaultPerPage)}
}

// target resolves the page to load for a request.
func (v *pageView) target(f *domain.Filter, page, perPage int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !reflect.DeepEqual(v.filter, f) {
		v.filter = f.Clone()
		v.counted = false
	}

	if !v.sized || v.nav.State().ItemsPerPage != perPage {
		changed := v.sized
		v.nav.SetItemsPerPage(perPage)
		v.sized = true
		v.counted = false
		if changed {
			return 1
		}
	}

	if !v.counted {
		return page
	}
	if v.nav.GoTo(page) {
		return page
	}
	return v.nav.State().CurrentPage
}

// showItems records a whole fetched collection and returns the page to show.
func (v *pageView) showItems(items []domain.Row, page int) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.nav.SetItems(items)
	v.counted = true
	v.nav.GoTo(page)
	return v.nav.State().CurrentPage
}

// showTotal records the backend's row count. It returns the page to show and
// whether that is the page that was loaded.
func (v *pageView) showTotal(total, page int) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.nav.SetTotal(total)
	v.counted = true
	if v.nav.GoTo(page) {
		return page, true
	}
	return v.nav.State().CurrentPage, false
}

// stale forgets the page count; the next load recounts.
func (v *pageView) stale() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.counted = false
}

func (v *pageView) clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = nil
	v.counted = false
	v.nav.SetItems(nil)
}

func (s *ReportService) viewFor(sessionID, reportName string) *pageView {
	key := sessionID + "|" + reportName

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[key]
	if !ok {
		v = newPageView()
		s.views[key] = v
	}
	return v
}

// Page reports the page a session last saw on a report.
func (s *ReportService) Page(sessionID, reportName string) domain.PageState {
	s.mu.Lock()
	v, ok := s.views[sessionID+"|"+reportName]
	s.mu.Unlock()
	if !ok {
		return paginate.NewNavigator(s.cfg.DefaultPerPage).State()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	state := v.nav.State()
	state.AllItems = nil
	return state
}
