// Package service orchestrates report pages: session checks, filter
// validation, guarded fetches, pagination and table rendering.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/cache"
	"github.com/andresuchdata/erp-reports/backend-go/internal/config"
	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/erpclient"
	"github.com/andresuchdata/erp-reports/backend-go/internal/fetcher"
	"github.com/andresuchdata/erp-reports/backend-go/internal/filter"
	"github.com/andresuchdata/erp-reports/backend-go/internal/paginate"
	"github.com/andresuchdata/erp-reports/backend-go/internal/repository"
	"github.com/andresuchdata/erp-reports/backend-go/internal/report"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"github.com/andresuchdata/erp-reports/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ListQuery is one list request as submitted by the filter bar.
type ListQuery struct {
	SessionID string
	Report    string
	Input     filter.Input
	// Defaults fills a missing date range with the report's default window.
	Defaults bool
	// Reset clears the results instead of loading.
	Reset   bool
	Page    int
	PerPage int
}

func (q ListQuery) hasFilter() bool {
	in := q.Input
	return q.Defaults || q.Reset || in.FromDate != "" || in.ToDate != "" ||
		in.EntityID != "" || in.Search != "" || len(in.Extra) > 0
}

type ReportService struct {
	client      *erpclient.Client
	sessions    *session.Manager
	collections cache.CollectionCache
	runs        repository.ExportRunRepository
	sink        storage.ObjectStorage
	cfg         config.ReportConfig
	now         func() time.Time

	loads singleflight.Group

	mu       sync.Mutex
	fetchers map[string]*fetcher.Fetcher
	views    map[string]*pageView
}

func NewReportService(
	client *erpclient.Client,
	sessions *session.Manager,
	collections cache.CollectionCache,
	runs repository.ExportRunRepository,
	sink storage.ObjectStorage,
	cfg config.ReportConfig,
) *ReportService {
	if collections == nil {
		collections = cache.NewNoopCollectionCache()
	}
	if runs == nil {
		runs = repository.NewNoopExportRunRepository()
	}
	s := &ReportService{
		client:      client,
		sessions:    sessions,
		collections: collections,
		runs:        runs,
		sink:        sink,
		cfg:         cfg,
		now:         time.Now,
		fetchers:    make(map[string]*fetcher.Fetcher),
		views:       make(map[string]*pageView),
	}
	sessions.OnLogout(s.forget)
	return s
}

// Catalog lists the available reports.
func (s *ReportService) Catalog() []domain.ReportDefinition {
	return report.Catalog()
}

// Definition returns one report definition.
func (s *ReportService) Definition(name string) (domain.ReportDefinition, error) {
	return report.Lookup(name)
}

// List loads and renders one page of a report. Filter and paging input is
// validated before any backend call.
func (s *ReportService) List(ctx context.Context, q ListQuery) (*domain.ListResponse, error) {
	def, err := report.Lookup(q.Report)
	if err != nil {
		return nil, err
	}
	page, perPage, err := s.paging(q.Page, q.PerPage)
	if err != nil {
		return nil, err
	}
	filt, err := s.resolveFilter(def, q)
	if err != nil {
		return nil, err
	}

	holder, snap, err := s.session(ctx, q.SessionID)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, def, holder, snap, filt, page, perPage)
}

func (s *ReportService) list(ctx context.Context, def domain.ReportDefinition, holder *session.Holder, snap session.Snapshot, filt *domain.Filter, page, perPage int) (*domain.ListResponse, error) {
	fetch := s.fetcherFor(snap.ID, def.Name)
	view := s.viewFor(snap.ID, def.Name)

	if filt == nil {
		view.clear()
		res, err := fetch.LoadWith(ctx, nil, s.loader(def, holder, snap, nil))
		if err != nil {
			return nil, s.fail(snap.ID, def.Name, err)
		}
		return render(def, nil, res, 1, perPage), nil
	}

	page = view.target(filt, page, perPage)

	if def.Pagination != domain.PaginateServer {
		res, err := fetch.LoadWith(ctx, filt, s.loader(def, holder, snap, nil))
		if err != nil {
			return nil, s.fail(snap.ID, def.Name, err)
		}
		page = view.showItems(res.Items, page)
		return render(def, filt, res, page, perPage), nil
	}

	res, err := fetch.LoadWith(ctx, filt, s.loader(def, holder, snap, &erpclient.Paging{Page: page, Limit: perPage}))
	if err != nil {
		return nil, s.fail(snap.ID, def.Name, err)
	}
	if res.Total >= 0 {
		// The requested page lies past the end: load the page the view fell
		// back to so the rows match the reported page.
		if shown, ok := view.showTotal(res.Total, page); !ok {
			page = shown
			res, err = fetch.LoadWith(ctx, filt, s.loader(def, holder, snap, &erpclient.Paging{Page: page, Limit: perPage}))
			if err != nil {
				return nil, s.fail(snap.ID, def.Name, err)
			}
		}
	}

	return render(def, filt, res, page, perPage), nil
}

func render(def domain.ReportDefinition, filt *domain.Filter, res fetcher.Result, page, perPage int) *domain.ListResponse {
	table := report.NewTable(def)

	if filt == nil {
		return table.Render(report.Page{State: paginate.FromTotal(0, 1, perPage)})
	}

	if def.Pagination == domain.PaginateServer {
		total := res.Total
		if total < 0 {
			total = (page-1)*perPage + len(res.Items)
		}
		state := paginate.FromTotal(total, page, perPage)
		return table.Render(report.Page{
			Rows:   res.Items,
			Offset: (page - 1) * perPage,
			Total:  total,
			State:  state,
		})
	}

	state := paginate.FromTotal(len(res.Items), page, perPage)
	visible, _ := paginate.Paginate(res.Items, state.CurrentPage, perPage)
	return table.Render(report.Page{
		Rows:       visible,
		Offset:     (state.CurrentPage - 1) * perPage,
		Total:      len(res.Items),
		State:      state,
		GrandTotal: report.GrandTotal(def.TotalField, res.Items),
	})
}

// loader fetches under one session snapshot and discards the result if the
// session changed (division switch, logout) while the request was in flight.
func (s *ReportService) loader(def domain.ReportDefinition, holder *session.Holder, snap session.Snapshot, paging *erpclient.Paging) fetcher.LoadFunc {
	return func(ctx context.Context, f *domain.Filter) (fetcher.Result, error) {
		res, err := s.fetchCollection(ctx, def, snap, f, paging)
		if err != nil {
			return fetcher.Result{}, err
		}
		if !holder.Current(snap.Version) {
			log.Debug().
				Str("report", def.Name).
				Uint64("version", snap.Version).
				Msg("session changed during load, discarding result")
			return fetcher.Result{}, fetcher.ErrSuperseded
		}
		return res, nil
	}
}

// fetchCollection reads through the collection cache. Identical concurrent
// loads share one backend call.
func (s *ReportService) fetchCollection(ctx context.Context, def domain.ReportDefinition, snap session.Snapshot, f *domain.Filter, paging *erpclient.Paging) (fetcher.Result, error) {
	key := cache.CollectionKey{
		SessionID:  snap.ID,
		Report:     def.Name,
		DivisionID: snap.DivisionID,
		Filter:     f,
	}
	if paging != nil {
		key.Page, key.Limit = paging.Page, paging.Limit
	}

	if cached, ok, err := s.collections.Get(ctx, key); err == nil && ok {
		return fetcher.Result{Items: cached.Items, Total: cached.Total}, nil
	} else if err != nil {
		log.Warn().Err(err).Str("report", def.Name).Msg("collection cache get failed")
	}

	query := erpclient.BuildQuery(def, f, snap, paging)
	flightKey := snap.ID + "|" + strconv.FormatUint(snap.Version, 10) + "|" + def.Endpoint + "?" + query.Encode()

	v, err, _ := s.loads.Do(flightKey, func() (interface{}, error) {
		return s.client.List(ctx, snap, def.Endpoint, query, def.PayloadField)
	})
	if err != nil {
		return fetcher.Result{}, err
	}
	list := v.(*erpclient.ListResult)

	total := list.Total
	if total < 0 && paging == nil {
		total = len(list.Items)
	}

	if err := s.collections.Set(ctx, key, &cache.Collection{Items: list.Items, Total: total}); err != nil {
		log.Warn().Err(err).Str("report", def.Name).Msg("collection cache set failed")
	}

	return fetcher.Result{Items: list.Items, Total: total}, nil
}

func (s *ReportService) resolveFilter(def domain.ReportDefinition, q ListQuery) (*domain.Filter, error) {
	if q.Reset {
		return filter.Reset(), nil
	}

	f, err := filter.Parse(def, q.Input)
	if err != nil {
		return nil, err
	}
	if q.Defaults && f.FromDate == nil && f.ToDate == nil {
		d := filter.Defaults(def, s.now())
		f.FromDate, f.ToDate = d.FromDate, d.ToDate
	}
	return f, nil
}

func (s *ReportService) paging(page, perPage int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = s.cfg.DefaultPerPage
		if perPage <= 0 {
			perPage = paginate.DefaultPerPage
		}
	}

	if err := filter.Validate(filter.ListRequest{Page: page, PerPage: perPage}); err != nil {
		return 0, 0, err
	}
	if s.cfg.MaxPerPage > 0 && perPage > s.cfg.MaxPerPage {
		return 0, 0, &domain.ValidationError{
			Field:   "perPage",
			Message: fmt.Sprintf("perPage must be at most %d", s.cfg.MaxPerPage),
		}
	}
	return page, perPage, nil
}

// session resolves the caller's session and fails fast on a missing or
// expired token, before any backend call.
func (s *ReportService) session(ctx context.Context, id string) (*session.Holder, session.Snapshot, error) {
	holder, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, session.Snapshot{}, err
	}
	snap := holder.Snapshot()
	if err := snap.Check(s.now()); err != nil {
		s.sessions.HandleError(snap.ID, err)
		return nil, session.Snapshot{}, err
	}
	return holder, snap, nil
}

// fail logs a failed backend interaction and schedules a logout when the
// backend rejected the token.
func (s *ReportService) fail(sessionID, reportName string, err error) error {
	if errors.Is(err, fetcher.ErrSuperseded) || s.sessions.HandleError(sessionID, err) {
		return err
	}
	log.Error().Err(err).Str("report", reportName).Str("session", sessionID).Msg("report load failed")
	return err
}

func (s *ReportService) fetcherFor(sessionID, reportName string) *fetcher.Fetcher {
	key := sessionID + "|" + reportName

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fetchers[key]
	if !ok {
		f = fetcher.New(reportName, nil)
		s.fetchers[key] = f
	}
	return f
}

// State reports the fetch state of a session's report page.
func (s *ReportService) State(sessionID, reportName string) domain.FetchState {
	s.mu.Lock()
	f, ok := s.fetchers[sessionID+"|"+reportName]
	s.mu.Unlock()
	if !ok {
		return domain.StateIdle
	}
	return f.State()
}

// forget drops every fetcher and page view of a session.
func (s *ReportService) forget(sessionID string) {
	prefix := sessionID + "|"

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.fetchers {
		if strings.HasPrefix(key, prefix) {
			delete(s.fetchers, key)
		}
	}
	for key := range s.views {
		if strings.HasPrefix(key, prefix) {
			delete(s.views, key)
		}
	}
}

func (s *ReportService) invalidateSession(sessionID string) {
	prefix := sessionID + "|"

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, f := range s.fetchers {
		if strings.HasPrefix(key, prefix) {
			f.Invalidate()
		}
	}
	for key, v := range s.views {
		if strings.HasPrefix(key, prefix) {
			v.stale()
		}
	}
}
