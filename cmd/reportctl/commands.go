package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/erp-reports/backend-go/internal/config"
	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/erpclient"
	"github.com/andresuchdata/erp-reports/backend-go/internal/filter"
	"github.com/andresuchdata/erp-reports/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/erp-reports/backend-go/internal/report"
	"github.com/andresuchdata/erp-reports/backend-go/internal/service"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"github.com/andresuchdata/erp-reports/backend-go/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

// cliSession is a one-shot gateway session for a single command.
type cliSession struct {
	svc       *service.ReportService
	sessions  *session.Manager
	sessionID string
}

func openSession(c *cli.Context) (*cliSession, error) {
	cfg := config.Load()

	sessions := session.NewManager(session.NewMemoryStore(), 0)
	sink, err := storage.New(c.Context, cfg.Storage)
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("init export storage: %w", err)
	}

	client := erpclient.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout(), nil)
	svc := service.NewReportService(client, sessions, nil, nil, sink, cfg.Report)

	snap, err := svc.OpenSession(c.Context, c.String("token"), "")
	if err != nil {
		sessions.Close()
		return nil, err
	}
	if division := strings.TrimSpace(c.String("division")); division != "" {
		if snap, err = svc.SwitchDivision(c.Context, snap.ID, domain.Division{ID: division}); err != nil {
			sessions.Close()
			return nil, err
		}
	}

	return &cliSession{svc: svc, sessions: sessions, sessionID: snap.ID}, nil
}

func (s *cliSession) Close() {
	s.sessions.Close()
}

func listQuery(c *cli.Context, sessionID string) (service.ListQuery, error) {
	name := c.Args().First()
	if name == "" {
		return service.ListQuery{}, fmt.Errorf("report name is required")
	}
	from, to := c.String("from"), c.String("to")
	return service.ListQuery{
		SessionID: sessionID,
		Report:    name,
		Input: filter.Input{
			FromDate: from,
			ToDate:   to,
			EntityID: c.String("entity"),
			Search:   c.String("search"),
		},
		Defaults: from == "" && to == "",
		Page:     c.Int("page"),
		PerPage:  c.Int("per-page"),
	}, nil
}

// cliError prefers the backend's own message for backend failures.
func cliError(err error) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s (status %d)", domain.UserMessage(err), apiErr.Status)
	}
	return err
}

func runCatalog(c *cli.Context) error {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPORT\tTITLE\tENDPOINT\tPAGINATION\tGRAND TOTAL")
	for _, def := range report.Catalog() {
		total := "-"
		if def.TotalField != "" {
			total = def.TotalField
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", def.Name, def.Title, def.Endpoint, def.Pagination, total)
	}
	return w.Flush()
}

func runList(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	q, err := listQuery(c, sess.sessionID)
	if err != nil {
		return err
	}
	resp, err := sess.svc.List(c.Context, q)
	if err != nil {
		return cliError(err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printTable(c.App.Writer, resp)
}

func printTable(out io.Writer, resp *domain.ListResponse) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	headers := make([]string, len(resp.Columns))
	for i, col := range resp.Columns {
		headers[i] = strings.ToUpper(col.Header)
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	if resp.Empty {
		fmt.Fprintln(w, resp.Message)
		return w.Flush()
	}

	for _, item := range resp.Items {
		cells := make([]string, len(resp.Columns))
		for i, col := range resp.Columns {
			cells[i] = item.Cells[col.Header]
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\npage %d of %d, %d rows", resp.Page, resp.TotalPages, resp.Total)
	if resp.GrandTotal != nil {
		fmt.Fprintf(out, ", grand total %s", resp.GrandTotal.StringFixed(2))
	}
	fmt.Fprintln(out)
	return nil
}

func runExport(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	q, err := listQuery(c, sess.sessionID)
	if err != nil {
		return err
	}
	result, err := sess.svc.Export(c.Context, service.ExportQuery{
		ListQuery: q,
		Format:    c.String("format"),
		Scope:     c.String("scope"),
	})
	if err != nil {
		return cliError(err)
	}

	path := c.String("out")
	if path == "" {
		path = result.FileName
	}
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(c.App.Writer, "wrote %d rows to %s\n", result.Rows, path)
	if result.ArtifactKey != "" {
		fmt.Fprintf(c.App.Writer, "stored as %s\n", result.ArtifactKey)
	}
	return nil
}

func runRecentExports(c *cli.Context) error {
	db, ok := c.Context.Value(dbKey).(*sql.DB)
	if !ok {
		return fmt.Errorf("database connection not initialized")
	}

	repo := postgres.NewExportRunRepository(postgres.Wrap(sqlx.NewDb(db, "pgx")))
	runs, err := repo.ListRecent(c.Context, c.String("report"), c.Int("limit"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tREPORT\tFORMAT\tSCOPE\tROWS\tSTATUS\tFILE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"), run.Report, run.Format, run.Scope, run.RowCount, run.Status, run.FileName)
	}
	return w.Flush()
}
