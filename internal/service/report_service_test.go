package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/erp-reports/backend-go/internal/cache"
	"github.com/andresuchdata/erp-reports/backend-go/internal/config"
	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/erpclient"
	"github.com/andresuchdata/erp-reports/backend-go/internal/erptest"
	"github.com/andresuchdata/erp-reports/backend-go/internal/export"
	"github.com/andresuchdata/erp-reports/backend-go/internal/fetcher"
	"github.com/andresuchdata/erp-reports/backend-go/internal/filter"
	"github.com/andresuchdata/erp-reports/backend-go/internal/repository"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"github.com/andresuchdata/erp-reports/backend-go/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "token-1"

var reportConfig = config.ReportConfig{DefaultPerPage: 10, MaxPerPage: 500, DefaultWindowDays: 7}

type recordingRuns struct {
	mu       sync.Mutex
	created  []domain.ExportRun
	finished map[string]repository.ExportRunResult
}

func newRecordingRuns() *recordingRuns {
	return &recordingRuns{finished: make(map[string]repository.ExportRunResult)}
}

func (r *recordingRuns) Create(ctx context.Context, run *domain.ExportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *run)
	return nil
}

func (r *recordingRuns) Finish(ctx context.Context, id string, result repository.ExportRunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[id] = result
	return nil
}

func (r *recordingRuns) ListRecent(ctx context.Context, report string, limit int) ([]domain.ExportRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ExportRun(nil), r.created...), nil
}

type fixture struct {
	backend   *erptest.Backend
	sessions  *session.Manager
	runs      *recordingRuns
	svc       *ReportService
	sessionID string
}

type fixtureOptions struct {
	transport   http.RoundTripper
	collections cache.CollectionCache
	sink        storage.ObjectStorage
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	backend := erptest.New(t)
	backend.Token = testToken

	sessions := session.NewManager(session.NewMemoryStore(), 10*time.Millisecond)
	t.Cleanup(sessions.Close)

	runs := newRecordingRuns()
	client := erpclient.New(backend.URL(), 5*time.Second, opts.transport)
	svc := NewReportService(client, sessions, opts.collections, runs, opts.sink, reportConfig)

	snap, err := svc.OpenSession(context.Background(), testToken, "")
	require.NoError(t, err)

	return &fixture{backend: backend, sessions: sessions, runs: runs, svc: svc, sessionID: snap.ID}
}

func invoiceRows(n int, division string) []domain.Row {
	rows := make([]domain.Row, n)
	for i := range rows {
		rows[i] = domain.Row{
			"_id":         fmt.Sprintf("inv-%d", i+1),
			"invoiceNo":   fmt.Sprintf("INV-%03d", i+1),
			"invoiceDate": "2024-03-05T08:00:00Z",
			"totalAmount": 10.10,
			"divisionId":  division,
		}
	}
	return rows
}

func productRows(n int) []domain.Row {
	rows := make([]domain.Row, n)
	for i := range rows {
		rows[i] = domain.Row{"_id": fmt.Sprintf("%d", i+1), "code": fmt.Sprintf("P%02d", i+1), "price": 2.5}
	}
	return rows
}

func march() filter.Input {
	return filter.Input{FromDate: "2024-03-01", ToDate: "2024-03-07"}
}

func TestListClientPaginationAndGrandTotal(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("invoice", "invoices", invoiceRows(23, "7"))

	_, err := fx.svc.SwitchDivision(ctx, fx.sessionID, domain.Division{ID: "7", Name: "North"})
	require.NoError(t, err)

	resp, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march(), Page: 3, PerPage: 10})
	require.NoError(t, err)

	assert.Equal(t, 23, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 3, resp.Page)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "inv-21", resp.Items[0].Key)
	assert.Equal(t, "INV-023", resp.Items[2].Cells["Invoice No"])
	require.NotNil(t, resp.GrandTotal)
	assert.Equal(t, "232.30", resp.GrandTotal.StringFixed(2))
	assert.Equal(t, domain.StateSuccess, fx.svc.State(fx.sessionID, "invoices"))

	q := fx.backend.LastQuery("invoice")
	assert.Equal(t, "7", q.Get("divisionId"))
	assert.Empty(t, q.Get("showAllDivisions"))
	assert.Equal(t, "2024-03-01", q.Get("fromDate"))
	assert.Equal(t, "2024-03-07", q.Get("toDate"))
	assert.Empty(t, q.Get("page"), "client-side reports fetch the whole collection")
}

func TestListAllDivisionsSentinel(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("sales", "sales", nil)

	_, err := fx.svc.SwitchDivision(ctx, fx.sessionID, domain.Division{ID: domain.AllDivisionsID, Name: "All"})
	require.NoError(t, err)

	resp, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "sales", Input: march()})
	require.NoError(t, err)
	assert.True(t, resp.Empty)
	assert.Equal(t, domain.NoDataMessage, resp.Message)

	q := fx.backend.LastQuery("sales")
	assert.Equal(t, "true", q.Get("showAllDivisions"))
	_, hasDivision := q["divisionId"]
	assert.False(t, hasDivision)
}

func TestSwitchDivisionEmptyIDClearsSelection(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("invoice", "invoices", invoiceRows(2, ""))

	_, err := fx.svc.SwitchDivision(ctx, fx.sessionID, domain.Division{ID: "7", Name: "North"})
	require.NoError(t, err)

	snap, err := fx.svc.SwitchDivision(ctx, fx.sessionID, domain.Division{ID: "  "})
	require.NoError(t, err)
	assert.Empty(t, snap.DivisionID)
	assert.Empty(t, snap.DivisionName)

	_, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march()})
	require.NoError(t, err)

	q := fx.backend.LastQuery("invoice")
	_, hasDivision := q["divisionId"]
	assert.False(t, hasDivision)
	_, hasAll := q["showAllDivisions"]
	assert.False(t, hasAll)
}

func TestListValidatesBeforeAnyRequest(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	_, err := fx.svc.List(ctx, ListQuery{
		SessionID: fx.sessionID,
		Report:    "invoices",
		Input:     filter.Input{FromDate: "2024-03-08", ToDate: "2024-03-01"},
	})
	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "From date cannot be after To date", vErr.Message)

	_, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", PerPage: 501})
	require.True(t, errors.As(err, &vErr))

	_, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "payroll"})
	assert.ErrorIs(t, err, domain.ErrUnknownReport)

	assert.Zero(t, fx.backend.Hits("invoice"))
}

func TestListMissingBoundStillProceeds(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.backend.Seed("invoice", "invoices", invoiceRows(2, ""))

	resp, err := fx.svc.List(context.Background(), ListQuery{
		SessionID: fx.sessionID,
		Report:    "invoices",
		Input:     filter.Input{ToDate: "2024-03-07"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)

	q := fx.backend.LastQuery("invoice")
	_, hasFrom := q["fromDate"]
	assert.False(t, hasFrom)
}

func TestListDefaultsWindow(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.svc.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }
	fx.backend.Seed("invoice", "invoices", nil)

	_, err := fx.svc.List(context.Background(), ListQuery{SessionID: fx.sessionID, Report: "invoices", Defaults: true})
	require.NoError(t, err)

	q := fx.backend.LastQuery("invoice")
	assert.Equal(t, "2024-03-13", q.Get("fromDate"))
	assert.Equal(t, "2024-03-20", q.Get("toDate"))
}

func TestListServerPagination(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.backend.Seed("product", "data", productRows(25))

	resp, err := fx.svc.List(context.Background(), ListQuery{SessionID: fx.sessionID, Report: "products", Page: 2, PerPage: 10})
	require.NoError(t, err)

	assert.Equal(t, 25, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Items, 10)
	assert.Equal(t, "11", resp.Items[0].Key)
	assert.Equal(t, "2.50", resp.Items[0].Cells["Price"])
	assert.Nil(t, resp.GrandTotal)

	q := fx.backend.LastQuery("product")
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "10", q.Get("limit"))
}

func TestListServerPagePastEndShowsMatchingRows(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("product", "data", productRows(25))

	resp, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "products", Page: 9, PerPage: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 3, resp.TotalPages)
	assert.False(t, resp.Empty)
	require.Len(t, resp.Items, 10)
	assert.Equal(t, "1", resp.Items[0].Key)
	assert.Equal(t, "1", fx.backend.LastQuery("product").Get("page"))

	resp, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "products", Page: 2, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Page)
	require.Len(t, resp.Items, 10)
	assert.Equal(t, "11", resp.Items[0].Key)

	// Once the page count is known, a page past the end is refused without
	// asking the backend for it.
	before := len(fx.backend.Queries("product"))
	resp, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "products", Page: 9, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Page)
	require.Len(t, resp.Items, 10)
	assert.Equal(t, "11", resp.Items[0].Key)

	queries := fx.backend.Queries("product")
	require.Len(t, queries, before+1)
	assert.Equal(t, "2", queries[len(queries)-1].Get("page"))
	assert.Equal(t, 2, fx.svc.Page(fx.sessionID, "products").CurrentPage)
}

func TestListPageSizeChangeReturnsToFirstPage(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("invoice", "invoices", invoiceRows(23, ""))

	resp, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march(), Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Page)
	assert.Equal(t, "inv-21", resp.Items[0].Key)

	resp, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march(), Page: 3, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 5, resp.TotalPages)
	require.Len(t, resp.Items, 5)
	assert.Equal(t, "inv-1", resp.Items[0].Key)

	state := fx.svc.Page(fx.sessionID, "invoices")
	assert.Equal(t, 1, state.CurrentPage)
	assert.Equal(t, 5, state.ItemsPerPage)
	assert.Equal(t, 5, state.TotalPages)

	resp, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march(), Page: 4, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Page)
	assert.Equal(t, "inv-16", resp.Items[0].Key)

	resp, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march(), Page: 9, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Page, "a page past the end keeps the current page")
	assert.Equal(t, "inv-16", resp.Items[0].Key)
}

func TestListNewFilterRecountsPages(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("product", "data", productRows(25))

	_, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "products", Page: 1, PerPage: 10})
	require.NoError(t, err)

	fx.backend.Seed("product", "data", productRows(45))
	resp, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "products", Input: filter.Input{Search: "P"}, Page: 5, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Page)
	assert.Equal(t, "5", fx.backend.LastQuery("product").Get("page"))
}

func TestListResetClearsWithoutRequest(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})

	resp, err := fx.svc.List(context.Background(), ListQuery{SessionID: fx.sessionID, Report: "sales", Reset: true})
	require.NoError(t, err)
	assert.True(t, resp.Empty)
	assert.Zero(t, fx.backend.Hits("sales"))
	assert.Equal(t, domain.StateIdle, fx.svc.State(fx.sessionID, "sales"))
}

func TestListBackendErrorMessage(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.backend.Fail("invoice", http.StatusInternalServerError, `{"message":"Database unavailable"}`)

	_, err := fx.svc.List(context.Background(), ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march()})
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Database unavailable", domain.UserMessage(err))
	assert.Equal(t, domain.StateError, fx.svc.State(fx.sessionID, "invoices"))

	// Not a session error: the session survives.
	_, err = fx.svc.CurrentSession(context.Background(), fx.sessionID)
	assert.NoError(t, err)
}

func TestListRejectedTokenLogsOut(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.backend.Token = "rotated"

	_, err := fx.svc.List(context.Background(), ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march()})
	require.True(t, domain.IsSessionError(err))

	require.Eventually(t, func() bool {
		_, err := fx.svc.CurrentSession(context.Background(), fx.sessionID)
		return errors.Is(err, session.ErrNoSession)
	}, time.Second, 5*time.Millisecond)
}

func TestListExpiredTokenFailsFast(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.backend.Token = ""

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	snap, err := fx.svc.OpenSession(context.Background(), expired, "")
	require.NoError(t, err)

	_, err = fx.svc.List(context.Background(), ListQuery{SessionID: snap.ID, Report: "invoices", Input: march()})
	assert.ErrorIs(t, err, session.ErrTokenExpired)
	assert.Zero(t, fx.backend.Hits("invoice"))
}

// gatedTransport holds the first request until released.
type gatedTransport struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return http.DefaultTransport.RoundTrip(r)
}

func TestDivisionSwitchDiscardsInFlightLoad(t *testing.T) {
	gate := &gatedTransport{started: make(chan struct{}), release: make(chan struct{})}
	fx := newFixture(t, fixtureOptions{transport: gate})
	ctx := context.Background()
	fx.backend.Seed("invoice", "invoices", invoiceRows(3, "7"))

	_, err := fx.svc.SwitchDivision(ctx, fx.sessionID, domain.Division{ID: "7"})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march()})
		errCh <- err
	}()

	<-gate.started
	_, err = fx.svc.SwitchDivision(ctx, fx.sessionID, domain.Division{ID: "8"})
	require.NoError(t, err)
	close(gate.release)

	assert.ErrorIs(t, <-errCh, fetcher.ErrSuperseded)

	resp, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march()})
	require.NoError(t, err)
	assert.True(t, resp.Empty, "division 8 has no invoices")
	assert.Equal(t, "8", fx.backend.LastQuery("invoice").Get("divisionId"))
}

func TestExportEmptyTableNeverRenders(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.backend.Seed("invoice", "invoices", nil)

	_, err := fx.svc.Export(context.Background(), ExportQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march()},
		Format:    "pdf",
		Scope:     "all",
	})
	require.ErrorIs(t, err, export.ErrEmptyTable)
	assert.Equal(t, "Table is Empty", err.Error())

	require.Len(t, fx.runs.created, 1)
	assert.Equal(t, domain.ExportFailed, fx.runs.finished[fx.runs.created[0].ID].Status)
}

func TestExportAllRowsToSink(t *testing.T) {
	sink, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	fx := newFixture(t, fixtureOptions{sink: sink})
	fx.backend.Seed("invoice", "invoices", invoiceRows(23, ""))

	res, err := fx.svc.Export(context.Background(), ExportQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march(), Page: 1, PerPage: 10},
		Format:    "CSV",
	})
	require.NoError(t, err)

	assert.Equal(t, "invoices_2024-03-01_2024-03-07.csv", res.FileName)
	assert.Equal(t, "text/csv", res.ContentType)
	assert.Equal(t, 23, res.Rows)

	records, err := csv.NewReader(bytes.NewReader(res.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 24)
	assert.Equal(t, "Invoice No", records[0][0])
	assert.Equal(t, "10.10", records[1][len(records[1])-1])

	require.NotEmpty(t, res.ArtifactKey)
	var stored bytes.Buffer
	require.NoError(t, sink.DownloadObject(context.Background(), res.ArtifactKey, &stored))
	assert.Equal(t, res.Data, stored.Bytes())

	finished := fx.runs.finished[res.RunID]
	assert.Equal(t, domain.ExportCompleted, finished.Status)
	assert.Equal(t, 23, finished.RowCount)
	assert.Equal(t, res.ArtifactKey, finished.ArtifactKey)
}

func TestExportPageScope(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.backend.Seed("invoice", "invoices", invoiceRows(23, ""))

	res, err := fx.svc.Export(context.Background(), ExportQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march(), Page: 3, PerPage: 10},
		Format:    "xlsx",
		Scope:     "page",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.NotEmpty(t, res.Data)
}

func TestExportServerPageScopePastEndExportsLastPage(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	fx.backend.Seed("product", "data", productRows(25))

	res, err := fx.svc.Export(context.Background(), ExportQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "products", Page: 9, PerPage: 10},
		Format:    "csv",
		Scope:     "page",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)

	queries := fx.backend.Queries("product")
	require.Len(t, queries, 2)
	assert.Equal(t, "9", queries[0].Get("page"))
	assert.Equal(t, "3", queries[1].Get("page"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})

	_, err := fx.svc.Export(context.Background(), ExportQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "invoices"},
		Format:    "docx",
	})
	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "format", vErr.Field)
	assert.Empty(t, fx.runs.created)
}

func TestMutateDeleteInvalidatesAndRefetches(t *testing.T) {
	mr := miniredis.RunT(t)
	collections, err := cache.NewCollectionCache(config.CacheConfig{Enabled: true, RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)

	fx := newFixture(t, fixtureOptions{collections: collections})
	ctx := context.Background()
	fx.backend.Seed("customers", "customers", []domain.Row{
		{"_id": "c1", "name": "Acme"},
		{"_id": "c2", "name": "Globex"},
		{"_id": "c3", "name": "Initech"},
	})

	first, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "customers"})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total)

	// Served from cache.
	_, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "customers"})
	require.NoError(t, err)
	assert.Len(t, fx.backend.Queries("customers"), 1)

	res, err := fx.svc.Mutate(ctx, MutationQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "customers"},
		Action:    ActionDelete,
		ID:        "c2",
	})
	require.NoError(t, err)
	assert.Equal(t, "c2", res.ID)
	require.NotNil(t, res.List)
	assert.Equal(t, 2, res.List.Total)
	assert.Len(t, fx.backend.Queries("customers"), 2)
	assert.Len(t, fx.backend.Rows("customers"), 2)
}

func TestMutateCreateAndView(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("product", "data", productRows(2))

	created, err := fx.svc.Mutate(ctx, MutationQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "products", PerPage: 10},
		Action:    ActionCreate,
		Payload:   map[string]any{"_id": "99", "code": "NEW", "price": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "99", created.ID)
	assert.Nil(t, created.List, "nothing was listed before, so nothing is re-fetched")

	viewed, err := fx.svc.Mutate(ctx, MutationQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "products"},
		Action:    ActionView,
		ID:        "99",
	})
	require.NoError(t, err)
	assert.Equal(t, "NEW", viewed.Entity["code"])
}

func TestMutateUnsupportedAction(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	_, err := fx.svc.Mutate(ctx, MutationQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "invoices"},
		Action:    ActionDelete,
		ID:        "inv-1",
	})
	assert.ErrorIs(t, err, domain.ErrNotSupported)

	_, err = fx.svc.Mutate(ctx, MutationQuery{
		ListQuery: ListQuery{SessionID: fx.sessionID, Report: "customers"},
		Action:    ActionDelete,
	})
	var vErr *domain.ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Zero(t, fx.backend.Hits("customers"))
}

func TestLookups(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("customers", "customers", []domain.Row{{"_id": "c1", "divisionId": "7"}})
	fx.backend.Seed("warehouses", "warehouses", []domain.Row{{"_id": "w1", "divisionId": "7"}, {"_id": "w2", "divisionId": "8"}})
	fx.backend.Seed("divisions", "divisions", []domain.Row{{"_id": "1"}, {"_id": "7"}, {"_id": "8"}})

	_, err := fx.svc.SwitchDivision(ctx, fx.sessionID, domain.Division{ID: "7"})
	require.NoError(t, err)

	lookups, err := fx.svc.Lookups(ctx, fx.sessionID)
	require.NoError(t, err)
	assert.Len(t, lookups.Customers, 1)
	assert.Len(t, lookups.Warehouses, 1)
	assert.Len(t, lookups.Divisions, 3)
	assert.Empty(t, fx.backend.LastQuery("divisions").Get("divisionId"))

	fx.backend.Fail("warehouses", http.StatusBadGateway, `{"message":"warehouse service down"}`)
	_, err = fx.svc.Lookups(ctx, fx.sessionID)
	require.Error(t, err)
	assert.Equal(t, "warehouse service down", domain.UserMessage(err))
}

func TestLogoutDropsPageState(t *testing.T) {
	fx := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	fx.backend.Seed("invoice", "invoices", invoiceRows(1, ""))

	_, err := fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march()})
	require.NoError(t, err)
	assert.Equal(t, domain.StateSuccess, fx.svc.State(fx.sessionID, "invoices"))

	require.NoError(t, fx.svc.Logout(ctx, fx.sessionID))
	assert.Equal(t, domain.StateIdle, fx.svc.State(fx.sessionID, "invoices"))
	assert.Equal(t, 1, fx.svc.Page(fx.sessionID, "invoices").CurrentPage)

	_, err = fx.svc.List(ctx, ListQuery{SessionID: fx.sessionID, Report: "invoices", Input: march()})
	assert.ErrorIs(t, err, session.ErrNoSession)
}
